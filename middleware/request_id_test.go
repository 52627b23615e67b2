package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestIDRouter(captured *string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/ping", func(c *gin.Context) {
		*captured = GetRequestID(c)
		c.Status(http.StatusOK)
	})
	return router
}

func TestRequestIDGeneratedWhenMissing(t *testing.T) {
	var seen string
	router := requestIDRouter(&seen)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	router.ServeHTTP(w, req)

	require.NotEmpty(t, seen, "handlers must see the generated id")
	assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
}

func TestRequestIDPropagatedFromHeader(t *testing.T) {
	var seen string
	router := requestIDRouter(&seen)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "client-supplied-id")
	router.ServeHTTP(w, req)

	assert.Equal(t, "client-supplied-id", seen)
	assert.Equal(t, "client-supplied-id", w.Header().Get(RequestIDHeader))
}

func TestGetRequestIDWithoutMiddleware(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, "", GetRequestID(c))
}
