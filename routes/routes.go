package routes

import (
	"net/http"
	"strings"
	"time"

	"networked/handlers"
	"networked/logger"
	"networked/middleware"
	"networked/models"
	"networked/repository"
	"networked/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Options struct {
	Handler     *handlers.Handler
	Tokens      *middleware.Tokens
	Users       repository.UserRepository
	Sockets     *websocket.Manager
	CORSOrigins []string
	// UploadDir is served under /uploads when files are kept on disk.
	UploadDir   string
	AuthLimiter *middleware.IPRateLimiter
}

// corsConfig allows the listed origins with credentials, or any origin
// without credentials when the list is empty or "*".
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders: []string{"Content-Length", "Content-Type", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func SetupRouter(o Options) *gin.Engine {
	router := gin.New()
	if gin.Mode() == gin.ReleaseMode {
		router.Use(gin.Recovery(), logger.GinLogger())
	} else {
		router.Use(gin.Logger(), gin.Recovery())
	}

	router.Use(cors.New(corsConfig(o.CORSOrigins)))

	h := o.Handler

	router.GET("/health", h.Health)
	router.GET("/ws", gin.WrapF(o.Sockets.Handler(o.Tokens.UserID)))
	if o.UploadDir != "" {
		router.Static("/uploads", o.UploadDir)
	}

	auth := router.Group("/auth")
	if o.AuthLimiter != nil {
		auth.Use(o.AuthLimiter.Middleware())
	}
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.GET("/google/url", h.GoogleAuthURL)
	auth.GET("/google/callback", h.GoogleCallback)

	router.GET("/push/vapid-public-key", h.VapidPublicKey)

	protected := router.Group("/")
	protected.Use(middleware.JWTAuth(o.Tokens), middleware.LoadUser(o.Users))

	protected.GET("/", h.Feed)
	protected.GET("/counters", h.Counters)

	posts := protected.Group("/posts")
	posts.POST("", h.CreatePost)
	posts.POST("/:id/react", h.React)
	posts.POST("/:id/comment", h.Comment)
	posts.DELETE("/:id", h.DeletePost)
	posts.DELETE("/:id/comment/:commentId", h.DeleteComment)

	employers := middleware.RequireRole(models.RoleCompany)
	jobs := protected.Group("/jobs")
	jobs.GET("", h.ListJobs)
	jobs.POST("", employers, h.CreateJob)
	jobs.GET("/my-jobs", employers, h.MyJobs)
	jobs.GET("/:id", h.GetJob)
	jobs.POST("/:id/apply", h.Apply)
	jobs.PUT("/:id/application/:applicantId", employers, h.UpdateApplication)
	jobs.DELETE("/:id", employers, h.CloseJob)

	messages := protected.Group("/messages")
	messages.GET("", h.ListConversations)
	messages.POST("/start/:userId", h.StartConversation)
	messages.GET("/:id", h.OpenConversation)
	messages.POST("/:id", h.SendMessage)

	network := protected.Group("/network")
	network.GET("", h.Directory)
	network.GET("/connections", h.Connections)
	network.POST("/connect/:id", h.Connect())
	network.POST("/accept/:id", h.Accept())
	network.POST("/reject/:id", h.Reject())
	network.POST("/disconnect/:id", h.Disconnect())
	network.POST("/follow/:id", h.Follow())
	network.POST("/unfollow/:id", h.Unfollow())

	notifications := protected.Group("/notifications")
	notifications.GET("", h.ListNotifications)
	notifications.GET("/count", h.UnreadCount)
	notifications.POST("/mark-read", h.MarkAllRead)
	notifications.POST("/:id/read", h.MarkRead)

	profile := protected.Group("/profile")
	profile.GET("", h.GetMyProfile)
	profile.PUT("", h.UpdateMyProfile)
	profile.GET("/cv/download", h.DownloadCV)
	profile.POST("/skills", h.AddSkill())
	profile.DELETE("/skills/:itemId", h.RemoveItem(repository.ListSkills))
	profile.POST("/experience", h.AddExperience())
	profile.DELETE("/experience/:itemId", h.RemoveItem(repository.ListExperiences))
	profile.POST("/education", h.AddEducation())
	profile.DELETE("/education/:itemId", h.RemoveItem(repository.ListEducation))
	profile.POST("/projects", h.AddProject())
	profile.DELETE("/projects/:itemId", h.RemoveItem(repository.ListProjects))
	profile.GET("/:id", h.GetProfile)

	protected.POST("/push/subscribe", h.SubscribePush)

	admin := protected.Group("/admin", middleware.RequireRole(models.RoleAdmin))
	admin.GET("", h.AdminDashboard)
	admin.GET("/users", h.AdminUsers)
	admin.POST("/users/:id/ban", h.BanUser)
	admin.POST("/users/:id/unban", h.UnbanUser)
	admin.DELETE("/users/:id", h.DeleteUser)
	admin.GET("/posts", h.AdminPosts)
	admin.DELETE("/posts/:id", h.AdminDeletePost)
	admin.DELETE("/posts/:id/comments/:commentId", h.AdminDeleteComment)

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/uploads/") {
			c.Status(http.StatusNotFound)
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint not found", "path": c.Request.URL.Path})
	})

	return router
}
