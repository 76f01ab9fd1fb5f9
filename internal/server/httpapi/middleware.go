package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/vaultdrop/internal/common"
	"github.com/dmitrijs2005/vaultdrop/internal/server/auth"
	"github.com/gin-gonic/gin"
)

// requestLogger logs one line per request. Only the path is logged so a
// password sent as a query parameter never reaches the logs.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start),
			"client", c.ClientIP(),
		}
		if status >= http.StatusInternalServerError {
			s.logger.Error(c.Request.Context(), "request failed", args...)
			return
		}
		s.logger.Info(c.Request.Context(), "request", args...)
	}
}

const authErrorKey = "auth_error"

// authenticate attaches the caller when a valid bearer token is present.
// A bad or expired token leaves the request anonymous and is remembered, so
// routes that need an account can report why it was refused.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.Set(authErrorKey, common.ErrInvalidToken)
			c.Next()
			return
		}
		id, err := auth.ParseToken(token, s.jwtSecret)
		if err != nil {
			c.Set(authErrorKey, err)
			c.Next()
			return
		}
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

func authFailure(c *gin.Context) error {
	v, ok := c.Get(authErrorKey)
	if !ok {
		return nil
	}
	err, _ := v.(error)
	return err
}

func requireUser(c *gin.Context) {
	if identity(c) == nil {
		err := authFailure(c)
		if err == nil {
			err = common.ErrorUnauthorized
		}
		writeError(c, err)
		c.Abort()
		return
	}
	c.Next()
}

// refuseBadToken stops a request that presented a token which did not
// verify. Uploads would otherwise silently become anonymous.
func refuseBadToken(c *gin.Context) {
	if err := authFailure(c); err != nil {
		writeError(c, err)
		c.Abort()
		return
	}
	c.Next()
}

func identity(c *gin.Context) *auth.Identity {
	return auth.FromContext(c.Request.Context())
}
