package apierr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorText(t *testing.T) {
	cause := errors.New("boom")
	assert.Equal(t, "Not found.", Wrap(cause, http.StatusNotFound, "x", "Not found.").Error())
	assert.Equal(t, "boom", Wrap(cause, http.StatusBadRequest, "x", "").Error())
	assert.Equal(t, "x", Wrap(nil, http.StatusBadRequest, "x", "").Error())
	assert.Equal(t, "Conflict", Wrap(nil, http.StatusConflict, "", "").Error())
	assert.Empty(t, (*Error)(nil).Error())
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("boom")
	e := Wrap(cause, http.StatusBadRequest, "bad", "Bad.").OnField("title")
	assert.ErrorIs(t, e, cause)
	assert.Equal(t, "title", e.Field)
	assert.Equal(t, http.StatusBadRequest, e.HTTPStatusCode())
}
