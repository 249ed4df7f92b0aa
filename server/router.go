package server

import (
	"time"

	httpHandler "tubequeue/interfaces/http"
	"tubequeue/interfaces/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Health      httpHandler.IHealthHandler
	Jukebox     httpHandler.IJukeboxHandler
	Host        httpHandler.IHostHandler
	YouTubeAuth httpHandler.IYouTubeAuthHandler
	// Stream serves the SSE queue feed.
	Stream gin.HandlerFunc
}

type Options struct {
	AllowedOrigins []string
	SecretKey      string
	GuestLimiter   *middleware.IPRateLimiter
}

func InitiateRouter(h Handlers, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     opts.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", h.Health.Healthz)

	// OAuth authentication routes
	router.GET("/auth/youtube", h.YouTubeAuth.GetAuthURL)
	router.GET("/auth/youtube/callback", h.YouTubeAuth.HandleCallback)

	// Guest routes, no session
	api := router.Group("/api")
	{
		jukebox := api.Group("/jukebox")
		jukebox.GET("/status", h.Jukebox.Status)
		jukebox.GET("/queue", h.Jukebox.Queue)
		jukebox.GET("/playlist", h.Jukebox.Playlist)
		if h.Stream != nil {
			jukebox.GET("/stream", h.Stream)
		}
		songs := []gin.HandlerFunc{h.Jukebox.AddSong}
		if opts.GuestLimiter != nil {
			songs = append([]gin.HandlerFunc{middleware.RateLimit(opts.GuestLimiter)}, songs...)
		}
		jukebox.POST("/songs", songs...)

		api.GET("/youtube/search", h.Jukebox.Search)
	}

	host := router.Group("/host")
	host.Use(middleware.HostAuth(opts.SecretKey))
	{
		host.GET("/status", h.Host.Status)
		host.GET("/playlists", h.Host.Playlists)
		host.POST("/jukebox/activate", h.Host.Activate)
		host.POST("/jukebox/deactivate", h.Host.Deactivate)
		host.POST("/logout", h.YouTubeAuth.Logout)
	}

	return router
}
