package server

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCommandRateLimitKeyRestoresBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	body := `{"caller":{"ref":" 100 "},"server":{"ref":"900"},"args":{}}`

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/commands/clan.status", bytes.NewBufferString(body))

	serverRef, callerRef, err := readCommandRateLimitKey(c)
	require.NoError(t, err)
	assert.Equal(t, "900", serverRef)
	assert.Equal(t, "100", callerRef)

	rest, err := io.ReadAll(c.Request.Body)
	require.NoError(t, err)
	assert.Equal(t, body, string(rest))
}

func TestCommandRateLimitDisabledPassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &Server{}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/v1/commands/:name", srv.CommandRateLimit(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/commands/clan.status", bytes.NewBufferString(`{}`)))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
