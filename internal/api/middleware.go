package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	limiter "github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/dharsanguruparan/filevault/internal/common"
	"github.com/dharsanguruparan/filevault/internal/metrics"
	"github.com/dharsanguruparan/filevault/internal/model"
)

const (
	tokenHeader = "X-Token"
	userKey     = "user"
)

var (
	errMalformedBody      = &common.ValidationError{Message: "Malformed body"}
	errPayloadTooLarge    = errors.New("Payload too large")
	errUnauthorizedHeader = fmt.Errorf("missing basic credentials: %w", common.ErrUnauthorized)
)

// LogHandler logs each request with its latency and counts it.
func LogHandler(logger *logrus.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()
		status := c.Writer.Status()
		latency := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if status >= 400 {
			logger.Errorf("from: %s | took: %dms | %d %s %s", c.ClientIP(), latency.Milliseconds(), status, method, path)
			m.ErrorCount.WithLabelValues(route, http.StatusText(status)).Inc()
		} else {
			logger.Infof("from: %s | took: %dms | %d %s %s", c.ClientIP(), latency.Milliseconds(), status, method, path)
		}
		m.RequestCount.WithLabelValues(route, http.StatusText(status)).Inc()
	}
}

// ErrorHandler turns the last error attached by a handler into the JSON
// error body. Unknown errors are logged and hidden behind a 500.
func ErrorHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		err := c.Errors.Last()
		if err == nil || c.Writer.Written() {
			return
		}
		status, message := statusFor(err.Err)
		if status == http.StatusInternalServerError {
			logger.WithError(err.Err).Errorf("%s %s", c.Request.Method, c.Request.URL.Path)
		}
		c.JSON(status, gin.H{"error": message})
	}
}

func statusFor(err error) (int, string) {
	var validation *common.ValidationError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized, common.ErrUnauthorized.Error()
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Message
	case errors.Is(err, common.ErrConflict):
		return http.StatusBadRequest, common.ErrConflict.Error()
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, common.ErrNotFound.Error()
	case errors.Is(err, common.ErrNoContent):
		return http.StatusBadRequest, common.ErrNoContent.Error()
	case errors.Is(err, errPayloadTooLarge), errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, errPayloadTooLarge.Error()
	}
	return http.StatusInternalServerError, "Internal error"
}

// fail hands err to ErrorHandler and stops the chain.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// RateLimiter limits requests per client IP.
// Format examples: "5-M" (5/min), "10-H" (10/hour), "1-S" (1/sec).
func RateLimiter(formatted string) (gin.HandlerFunc, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: invalid rate format %q: %w", formatted, err)
	}
	instance := limiter.New(memory.NewStore(), rate)
	return mgin.NewMiddleware(instance, mgin.WithLimitReachedHandler(func(c *gin.Context) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
	})), nil
}

// BodyLimit caps the request body; reading past it fails with a
// *http.MaxBytesError.
func BodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			fail(c, errPayloadTooLarge)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

// requireUser resolves the X-Token header or aborts with 401.
func (s *Server) requireUser(c *gin.Context) {
	user, err := s.users.Authenticate(c.Request.Context(), c.GetHeader(tokenHeader))
	if err != nil {
		fail(c, err)
		return
	}
	c.Set(userKey, user)
	c.Next()
}

// optionalUser resolves X-Token when it names a live session and otherwise
// continues anonymously.
func (s *Server) optionalUser(c *gin.Context) {
	token := c.GetHeader(tokenHeader)
	if token == "" {
		c.Next()
		return
	}
	user, err := s.users.Authenticate(c.Request.Context(), token)
	switch {
	case err == nil:
		c.Set(userKey, user)
	case !errors.Is(err, common.ErrUnauthorized):
		fail(c, err)
		return
	}
	c.Next()
}

func currentUser(c *gin.Context) *model.User {
	if v, ok := c.Get(userKey); ok {
		if user, ok := v.(*model.User); ok {
			return user
		}
	}
	return nil
}
