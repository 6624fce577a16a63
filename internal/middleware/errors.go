package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ncruz89/share-space-app-backend/internal/apperr"
	"github.com/ncruz89/share-space-app-backend/internal/uploads"
)

// FileRemover deletes a stored upload by reference.
type FileRemover interface {
	Remove(ref string) error
}

// ErrorResponder renders the last error attached to the context. When the
// request failed it first removes any image stored for it. Responses already
// written by a handler are left alone.
func ErrorResponder(remover FileRemover, logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		requestID := RequestIDFromContext(c)
		removeUpload(c, remover, logger)

		last := c.Errors.Last().Err
		appErr := apperr.From(last)

		if c.Writer.Written() {
			logger.Warn("error after response was written",
				"request_id", requestID, "status", c.Writer.Status(), "error", last)
			return
		}

		if appErr.Kind == apperr.KindInternal {
			logger.Error("request failed", "request_id", requestID, "path", c.Request.URL.Path, "error", last)
		} else {
			logger.Debug("request rejected", "request_id", requestID, "kind", appErr.Kind.String(), "error", last)
		}

		c.JSON(appErr.Status(), gin.H{"message": appErr.Message})
	}
}

// NotFound answers unmatched routes.
func NotFound(c *gin.Context) {
	_ = c.Error(apperr.NotFound("Could not find this route."))
}

// Recovery turns a panic into a 500 and removes the image stored for the
// request, since ErrorResponder never sees a panicking chain return.
func Recovery(remover FileRemover, logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered", "request_id", RequestIDFromContext(c), "panic", recovered)
		removeUpload(c, remover, logger)
		if !c.Writer.Written() {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "An unknown error has occurred."})
		}
	})
}

func removeUpload(c *gin.Context, remover FileRemover, logger *slog.Logger) {
	image, ok := uploads.FromContext(c)
	if !ok || remover == nil {
		return
	}
	if err := remover.Remove(image.Ref); err != nil {
		logger.Warn("remove upload of failed request", "request_id", RequestIDFromContext(c), "path", image.Ref, "error", err)
	}
}
