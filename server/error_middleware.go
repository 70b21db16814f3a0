package server

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ClientFault marks an error as caused by the caller. Panics carrying a
// ClientFault produce a 400; everything else a 500. Neither body exposes
// internals.
type ClientFault struct {
	Reason string
}

func (e ClientFault) Error() string { return e.Reason }

// ErrorMiddleware recovers from handler panics and writes masked JSON
// bodies. The real error goes to the log only.
func ErrorMiddleware(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				if logger != nil {
					logger.Printf("panic recovered: %v (%s %s)", rec, c.Request.Method, c.Request.URL.Path)
				}
				if _, ok := rec.(ClientFault); ok {
					c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
						"error": "invalid_request",
					})
					return
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "server_error",
				})
			}
		}()
		c.Next()
	}
}

// HandleErrorPage renders the neutral error page the authorize flow sends
// users to when a request cannot be completed.
func HandleErrorPage(c *gin.Context) {
	c.Header("Content-Type", "text/html;charset=UTF-8")
	c.String(http.StatusBadRequest, "<html><body>The request could not be completed.</body></html>")
}
