package common

import (
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// formOverhead leaves room for multipart headers, the handle field and JSON framing.
const formOverhead = 64 * 1024

// UploadBodyLimit returns the request body ceiling for a route carrying one image of
// at most maxBytes, either as a multipart file or base64 encoded in a data URL.
func UploadBodyLimit(maxBytes int64) int64 {
	return (maxBytes+2)/3*4 + formOverhead
}

// UploadBodyLimitMiddleware rejects bodies larger than UploadBodyLimit(maxBytes)
// with 413 before the handler buffers them.
func UploadBodyLimitMiddleware(maxBytes int64) echo.MiddlewareFunc {
	return middleware.BodyLimit(fmt.Sprintf("%dB", UploadBodyLimit(maxBytes)))
}
