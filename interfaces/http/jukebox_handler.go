package http

import (
	"net/http"
	"strconv"

	"tubequeue/domain/apperror"
	"tubequeue/domain/dto"
	"tubequeue/domain/model"
	"tubequeue/usecase"

	"github.com/gin-gonic/gin"
)

// IJukeboxHandler defines the guest facing handlers
type IJukeboxHandler interface {
	Status(ctx *gin.Context)
	Queue(ctx *gin.Context)
	Playlist(ctx *gin.Context)
	AddSong(ctx *gin.Context)
	Search(ctx *gin.Context)
}

type JukeboxHandler struct {
	jukeboxUsecase usecase.IJukeboxUsecase
	searchUsecase  usecase.ISearchUsecase
}

func NewJukeboxHandler(jukeboxUsecase usecase.IJukeboxUsecase, searchUsecase usecase.ISearchUsecase) IJukeboxHandler {
	return &JukeboxHandler{jukeboxUsecase: jukeboxUsecase, searchUsecase: searchUsecase}
}

// Status handles GET /api/jukebox/status
func (h *JukeboxHandler) Status(ctx *gin.Context) {
	status, err := h.jukeboxUsecase.Status(ctx.Request.Context())
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, status)
}

// Queue handles GET /api/jukebox/queue
func (h *JukeboxHandler) Queue(ctx *gin.Context) {
	entries, err := h.jukeboxUsecase.Queue(ctx.Request.Context())
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"queue": entries})
}

// Playlist handles GET /api/jukebox/playlist
func (h *JukeboxHandler) Playlist(ctx *gin.Context) {
	videos, err := h.jukeboxUsecase.Playlist(ctx.Request.Context())
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"videos": videos})
}

// AddSong handles POST /api/jukebox/songs
func (h *JukeboxHandler) AddSong(ctx *gin.Context) {
	var req dto.AddSongRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		writeError(ctx, apperror.InvalidInput("request body must be JSON with a videoId"))
		return
	}

	res, err := h.jukeboxUsecase.AddSong(ctx.Request.Context(), req)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"success":        true,
		"message":        "Song added to the playlist",
		"playlistItemId": res.PlaylistItemID,
		"entry":          res.Entry,
	})
}

// Search handles GET /api/youtube/search
func (h *JukeboxHandler) Search(ctx *gin.Context) {
	var maxResults int64
	// Support both snake_case and camelCase query params from frontend
	raw := ctx.Query("maxResults")
	if raw == "" {
		raw = ctx.Query("max_results")
	}
	if raw != "" {
		if val, err := strconv.ParseInt(raw, 10, 64); err == nil {
			maxResults = val
		}
	}

	q := ctx.Query("q")
	res, err := h.searchUsecase.Search(ctx.Request.Context(), q, maxResults)
	if err != nil {
		kind := apperror.KindOf(err)
		ctx.JSON(apperror.HTTPStatus(kind), dto.YouTubeSearchResponse{
			Videos: []model.Video{},
			Query:  q,
			Source: "error",
			Error:  guestMessage(kind, err),
		})
		return
	}
	ctx.JSON(http.StatusOK, res)
}
