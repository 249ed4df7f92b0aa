package http

import (
	"errors"
	"net/http"

	"tubequeue/domain/apperror"
	"tubequeue/infrastructure/logger"
	"tubequeue/usecase"

	"github.com/gin-gonic/gin"
)

const (
	messageAuthRejected = "The host's YouTube authorization was rejected. Please ask the host to reconnect."
	messageInternal     = "Something went wrong. Please try again."
)

// writeError turns a usecase error into a status code and a guest-safe body.
func writeError(c *gin.Context, err error) {
	kind := apperror.KindOf(err)
	status := apperror.HTTPStatus(kind)

	entry := logger.GetLogger().WithFields(map[string]interface{}{
		"path":   c.FullPath(),
		"kind":   kind,
		"status": status,
		"error":  err.Error(),
	})
	if reason := apperror.ReasonOf(err); reason != "" {
		entry = entry.WithField("reason", reason)
	}
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Warn("request rejected")
	}

	c.JSON(status, gin.H{"error": string(kind), "message": guestMessage(kind, err)})
}

func guestMessage(kind apperror.Kind, err error) string {
	switch kind {
	case apperror.KindJukeboxNotReady:
		return usecase.MessageNotReady
	case apperror.KindAuthRejected:
		return messageAuthRejected
	case apperror.KindStorage, apperror.KindInternal:
		return messageInternal
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return messageInternal
}
