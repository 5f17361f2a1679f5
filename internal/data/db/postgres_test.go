package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnString(t *testing.T) {
	c := Config{Host: "db", Port: "5433", User: "lib", Password: "p@ss/word", Name: "library"}
	assert.Equal(t, "postgres://lib:p%40ss%2Fword@db:5433/library?sslmode=disable", c.ConnString())

	c.DSN = "  postgres://override  "
	assert.Equal(t, "postgres://override", c.ConnString())
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "pg.internal")
	t.Setenv("POSTGRES_SSLMODE", "")
	c := ConfigFromEnv(Config{Name: "lending"})
	assert.Equal(t, "pg.internal", c.Host)
	assert.Equal(t, "lending", c.Name)
	assert.Equal(t, "disable", c.SSLMode)
}
