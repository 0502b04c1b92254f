package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestNewMeta(t *testing.T) {
	meta := NewMeta(2, 15, 31)
	assert.Equal(t, 2, meta.CurrentPage)
	assert.Equal(t, 3, meta.LastPage)
	assert.Equal(t, 15, meta.PerPage)
	assert.Equal(t, 31, meta.Total)

	// an empty result set still has one page
	assert.Equal(t, 1, NewMeta(1, 15, 0).LastPage)
	assert.Equal(t, 1, NewMeta(1, 15, 15).LastPage)
	assert.Equal(t, 2, NewMeta(1, 15, 16).LastPage)
}

func TestBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi"},
		{"bearer lowercase-scheme", "lowercase-scheme"},
		{"Basic dXNlcjpwYXNz", ""},
		{"Bearer", ""},
		{"", ""},
	}

	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			c.Request.Header.Set("Authorization", tt.header)
		}
		assert.Equal(t, tt.want, bearerToken(c), "header %q", tt.header)
	}
}

func TestPageParams(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=3&per_page=20", nil)
	page, perPage, offset := pageParams(c)
	assert.Equal(t, 3, page)
	assert.Equal(t, 20, perPage)
	assert.Equal(t, 40, offset)

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=-1&per_page=5000", nil)
	page, perPage, offset = pageParams(c)
	assert.Equal(t, 1, page)
	assert.Equal(t, 15, perPage)
	assert.Equal(t, 0, offset)
}
