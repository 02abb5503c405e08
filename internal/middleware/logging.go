package middleware

import (
	"bytes"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"resource-portal-go/pkg/log"
)

const maxLoggedBody = 2048

var secretFields = regexp.MustCompile(`"(password|token|refresh_token)"\s*:\s*"[^"]*"`)

// bodyLogWriter copies the response body into a buffer as it is written.
type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyLogWriter) Write(b []byte) (int, error) {
	if room := maxLoggedBody - w.body.Len(); room > 0 {
		if len(b) > room {
			w.body.Write(b[:room])
		} else {
			w.body.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

func loggable(body []byte) string {
	s := secretFields.ReplaceAllString(string(body), `"$1":"***"`)
	if len(s) > maxLoggedBody {
		s = s[:maxLoggedBody] + "...(truncated)"
	}
	return s
}

// RequestLogger logs every request with its status, latency and bodies.
// Multipart bodies are never read; credentials and tokens are masked.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		var requestBody []byte
		isMultipart := strings.HasPrefix(c.ContentType(), "multipart/")
		if c.Request.Body != nil && !isMultipart {
			requestBody, _ = io.ReadAll(io.LimitReader(c.Request.Body, maxLoggedBody+1))
			c.Request.Body = readCloser{io.MultiReader(bytes.NewReader(requestBody), c.Request.Body), c.Request.Body}
		}

		blw := &bodyLogWriter{body: &bytes.Buffer{}, ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		reqLog := loggable(requestBody)
		if isMultipart {
			reqLog = "(multipart omitted)"
		}
		log.Infow("HTTP Request Log",
			"statusCode", c.Writer.Status(),
			"latency", time.Since(startTime).String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"requestBody", reqLog,
			"responseBody", loggable(blw.body.Bytes()),
		)
	}
}

// readCloser replays the sniffed prefix and closes the underlying request body.
type readCloser struct {
	io.Reader
	io.Closer
}
