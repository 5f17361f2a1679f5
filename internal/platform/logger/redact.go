package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"
)

const redacted = "[REDACTED]"

var (
	secretKeyParts    = []string{"token", "authorization", "password", "secret", "api_key", "apikey"}
	recipientKeyParts = []string{"email", "recipient"}
)

type redactor struct {
	enabled bool
	salt    string
}

var (
	redactorOnce sync.Once
	redactorInst *redactor
)

// defaultRedactor reads LOG_REDACTION_ENABLED and LOG_HASH_SALT once.
func defaultRedactor() *redactor {
	redactorOnce.Do(func() {
		r := &redactor{enabled: true, salt: strings.TrimSpace(os.Getenv("LOG_HASH_SALT"))}
		switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_REDACTION_ENABLED"))) {
		case "0", "false", "no", "off":
			r.enabled = false
		}
		redactorInst = r
	})
	return redactorInst
}

// apply rewrites the values of sensitive keys. A trailing key without a
// value is passed through for zap to report.
func (r *redactor) apply(kv []interface{}) []interface{} {
	if !r.enabled || len(kv) == 0 {
		return kv
	}
	out := make([]interface{}, len(kv))
	copy(out, kv)
	for i := 0; i+1 < len(out); i += 2 {
		out[i+1] = r.value(normKey(out[i]), out[i+1])
	}
	return out
}

func (r *redactor) value(key string, v interface{}) interface{} {
	switch {
	case key == "":
		return v
	case containsAny(key, secretKeyParts):
		return redacted
	case containsAny(key, recipientKeyParts):
		return r.hash(v)
	}
	if m, ok := v.(map[string]interface{}); ok {
		out := make(map[string]interface{}, len(m))
		for k, inner := range m {
			out[k] = r.value(normKey(k), inner)
		}
		return out
	}
	return v
}

// hash keeps recipients correlatable across log lines without printing them.
func (r *redactor) hash(v interface{}) string {
	raw := stringify(v)
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(r.salt + raw))
	return "hash:" + hex.EncodeToString(sum[:])[:12]
}

func normKey(k interface{}) string {
	return strings.ToLower(strings.TrimSpace(stringify(k)))
}

func containsAny(s string, parts []string) bool {
	for _, p := range parts {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}
