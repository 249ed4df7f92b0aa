package http

import (
	"crypto/subtle"
	"net/http"
	"net/url"

	"tubequeue/domain/apperror"
	"tubequeue/domain/dto"
	"tubequeue/infrastructure/utils"
	"tubequeue/interfaces/middleware"
	"tubequeue/usecase"

	"github.com/gin-gonic/gin"
)

const oauthStateCookie = "oauth_state"

// IYouTubeAuthHandler defines the host OAuth handlers
type IYouTubeAuthHandler interface {
	GetAuthURL(ctx *gin.Context)
	HandleCallback(ctx *gin.Context)
	Logout(ctx *gin.Context)
}

// YouTubeAuthHandler connects a host's YouTube account
type YouTubeAuthHandler struct {
	authUsecase       usecase.IAuthUsecase
	postLoginRedirect string
	secureCookies     bool
}

// NewYouTubeAuthHandler creates a new YouTube auth handler. When
// postLoginRedirect is set the callback redirects there instead of answering JSON.
func NewYouTubeAuthHandler(authUsecase usecase.IAuthUsecase, postLoginRedirect string, secureCookies bool) IYouTubeAuthHandler {
	return &YouTubeAuthHandler{
		authUsecase:       authUsecase,
		postLoginRedirect: postLoginRedirect,
		secureCookies:     secureCookies,
	}
}

// GetAuthURL handles GET /auth/youtube
func (h *YouTubeAuthHandler) GetAuthURL(ctx *gin.Context) {
	authURL, state, err := h.authUsecase.AuthURL(ctx.Request.Context())
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.SetCookie(oauthStateCookie, state, 600, "/", "", h.secureCookies, true)

	if ctx.Query("redirect") == "true" {
		ctx.Redirect(http.StatusFound, authURL)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"auth_url": authURL,
		"state":    state,
	})
}

// HandleCallback handles GET /auth/youtube/callback
func (h *YouTubeAuthHandler) HandleCallback(ctx *gin.Context) {
	// Check for OAuth error first
	if errorParam := ctx.Query("error"); errorParam != "" {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":       "oauth_error",
			"message":     errorParam,
			"description": ctx.Query("error_description"),
		})
		return
	}

	// The state must come back to the browser that started the flow.
	state := ctx.Query("state")
	if cookie, err := ctx.Cookie(oauthStateCookie); err != nil || cookie == "" ||
		subtle.ConstantTimeCompare([]byte(cookie), []byte(state)) != 1 {
		writeError(ctx, apperror.InvalidInput("OAuth state does not match this browser, please start the login again").WithReason("state_cookie_mismatch"))
		return
	}

	session, err := h.authUsecase.Connect(ctx.Request.Context(), state, ctx.Query("code"))
	if err != nil {
		writeError(ctx, err)
		return
	}

	ctx.SetCookie(oauthStateCookie, "", -1, "/", "", h.secureCookies, true)
	maxAge := int(session.ExpiresAt.Sub(utils.GetCurrentTime()).Seconds())
	ctx.SetCookie(middleware.SessionCookie, session.Token, maxAge, "/", "", h.secureCookies, true)

	if h.postLoginRedirect != "" {
		fragment := url.Values{"token": {session.Token}, "hostId": {session.HostID}}
		ctx.Redirect(http.StatusFound, h.postLoginRedirect+"#"+fragment.Encode())
		return
	}
	ctx.JSON(http.StatusOK, dto.Res{
		ResponseCode:    "200",
		ResponseMessage: "YouTube account connected",
		Data:            session,
	})
}

// Logout handles POST /host/logout
func (h *YouTubeAuthHandler) Logout(ctx *gin.Context) {
	if err := h.authUsecase.Logout(ctx.Request.Context(), ctx.GetString(middleware.HostIDKey)); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.secureCookies, true)
	ctx.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "Logged out"})
}
