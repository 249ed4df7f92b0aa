package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"tubequeue/domain/dto"
	"tubequeue/infrastructure/logger"
	"tubequeue/infrastructure/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

const (
	// HostIDKey is the gin context key holding the authenticated host's channel id.
	HostIDKey = "host_id"
	// SessionCookie carries the host session token for browser clients.
	SessionCookie = "host_session"
)

// HostAuth accepts a host session token from the Authorization header
// (Bearer) or the session cookie.
func HostAuth(secretKey string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		res := dto.Res{ResponseCode: "401", ResponseMessage: "Unauthorized"}

		token := bearerToken(ctx.Request.Header.Get("Authorization"))
		if token == "" {
			token, _ = ctx.Cookie(SessionCookie)
		}
		if token == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}

		claims, err := utils.ParseHostToken(token, secretKey)
		if err != nil {
			res.ResponseMessage = abort(err)
			logger.GetLogger().WithField("error", err).Warn("host session rejected")
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}
		ctx.Set(HostIDKey, claims.HostID)
		ctx.Next()
	}
}

func bearerToken(authorization string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(authorization, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authorization, prefix))
}

func abort(err error) string {
	var ve *jwt.ValidationError
	if errors.As(err, &ve) {
		if ve.Errors&jwt.ValidationErrorMalformed != 0 {
			return "That's not even a token"
		} else if ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0 {
			// Token is either expired or not active yet
			return "Session expired, please connect YouTube again"
		}
		return fmt.Sprintf("Couldn't handle this token: %v", err)
	}
	return "Unauthorized"
}
