package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-service/pkg/apperror"
	"github.com/oksasatya/go-auth-service/pkg/response"
)

// ErrorHandler turns the last error pushed with c.Error into the JSON envelope.
// Unclassified errors are logged and reported as a bare 500.
func ErrorHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		WriteError(c, logger, c.Errors.Last().Err)
	}
}

// WriteError writes err as an error envelope and aborts the chain.
func WriteError(c *gin.Context, logger *logrus.Logger, err error) {
	ae := apperror.As(err)
	if ae.Kind == apperror.KindInternal && logger != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"request_id": c.GetString(CtxRequestIDKey),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
		}).Error("request failed")
	}

	var body any = ae.Code
	if len(ae.Details) > 0 {
		body = ae.Details
	}
	response.Error[any](c, ae.Status(), ae.Message, body)
}

// Recovery converts panics into the same 500 envelope.
func Recovery(logger *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		WriteError(c, logger, apperror.Internal(fmt.Errorf("panic: %v", recovered)))
	})
}
