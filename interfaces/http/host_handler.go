package http

import (
	"net/http"

	"tubequeue/domain/apperror"
	"tubequeue/domain/dto"
	"tubequeue/interfaces/middleware"
	"tubequeue/usecase"

	"github.com/gin-gonic/gin"
)

// IHostHandler defines the handlers behind the host session middleware
type IHostHandler interface {
	Status(ctx *gin.Context)
	Playlists(ctx *gin.Context)
	Activate(ctx *gin.Context)
	Deactivate(ctx *gin.Context)
}

type HostHandler struct {
	hostUsecase       usecase.IHostUsecase
	activationUsecase usecase.IActivationUsecase
}

func NewHostHandler(hostUsecase usecase.IHostUsecase, activationUsecase usecase.IActivationUsecase) IHostHandler {
	return &HostHandler{hostUsecase: hostUsecase, activationUsecase: activationUsecase}
}

// Status handles GET /host/status
func (h *HostHandler) Status(ctx *gin.Context) {
	status, err := h.hostUsecase.Status(ctx.Request.Context(), ctx.GetString(middleware.HostIDKey))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, status)
}

// Playlists handles GET /host/playlists
func (h *HostHandler) Playlists(ctx *gin.Context) {
	playlists, err := h.hostUsecase.Playlists(ctx.Request.Context(), ctx.GetString(middleware.HostIDKey))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"playlists": playlists})
}

// Activate handles POST /host/jukebox/activate
func (h *HostHandler) Activate(ctx *gin.Context) {
	var req dto.ActivateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		writeError(ctx, apperror.InvalidInput("playlistId is required"))
		return
	}

	rec, err := h.activationUsecase.Activate(ctx.Request.Context(), ctx.GetString(middleware.HostIDKey), req.PlaylistID)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "Jukebox activated", Data: rec})
}

// Deactivate handles POST /host/jukebox/deactivate. Only the host that
// owns the active jukebox can turn it off.
func (h *HostHandler) Deactivate(ctx *gin.Context) {
	prev, err := h.activationUsecase.DeactivateOwnedBy(ctx.Request.Context(), ctx.GetString(middleware.HostIDKey))
	if err != nil {
		writeError(ctx, err)
		return
	}
	if prev == nil {
		ctx.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "Jukebox is not active for this host"})
		return
	}
	ctx.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "Jukebox deactivated", Data: gin.H{"playlistId": prev.SelectedPlaylistID}})
}
