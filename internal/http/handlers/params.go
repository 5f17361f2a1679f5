package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/library-backend/internal/data/repos"
)

const (
	defaultPageSize = 20
	maxPageSize     = 1000
)

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

type pageQuery struct {
	page     int
	pageSize int
}

func (p pageQuery) repo() repos.Page {
	return repos.Page{Offset: (p.page - 1) * p.pageSize, Limit: p.pageSize}
}

// parsePage reads ?page=&page_size=. page_size is capped at maxPageSize.
func parsePage(c *gin.Context) (pageQuery, error) {
	p := pageQuery{page: 1, pageSize: defaultPageSize}
	if v := strings.TrimSpace(c.Query("page")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, badRequest("page", "Invalid page.")
		}
		p.page = n
	}
	if v := strings.TrimSpace(c.Query("page_size")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, badRequest("page_size", "Invalid page size.")
		}
		if n > maxPageSize {
			n = maxPageSize
		}
		p.pageSize = n
	}
	return p, nil
}

func queryUUID(c *gin.Context, key string) (*uuid.UUID, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, badRequest(key, "Must be a valid UUID.")
	}
	return &id, nil
}

func queryBool(c *gin.Context, key string) (*bool, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, badRequest(key, "Must be true or false.")
	}
	return &b, nil
}

// parseDate accepts YYYY-MM-DD or RFC 3339.
func parseDate(field string, v *string) (*time.Time, error) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil, nil
	}
	s := strings.TrimSpace(*v)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	return nil, badRequest(field, "Date has wrong format. Use YYYY-MM-DD.")
}

func bodyUUID(field, v string) (uuid.UUID, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return uuid.Nil, badRequest(field, "This field is required.")
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, badRequest(field, "Must be a valid UUID.")
	}
	return id, nil
}
