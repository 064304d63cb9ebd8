package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// readLimited returns the raw request body, failing past limit bytes.
func readLimited(c *gin.Context, limit int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	return io.ReadAll(c.Request.Body)
}
