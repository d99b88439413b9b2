package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"networked/config"
	"networked/database"
	"networked/handlers"
	"networked/middleware"
	"networked/push"
	"networked/repository"
	"networked/repository/memstore"
	"networked/routes"
	"networked/scheduler"
	"networked/services"
	"networked/uploads"
	"networked/websocket"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var serveMemory bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, flush, err := setup()
		if err != nil {
			return err
		}
		defer flush()
		if err := cfg.Validate(!serveMemory); err != nil {
			return err
		}
		return serve(cfg)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveMemory, "memory", false, "keep all data in memory instead of MongoDB")
}

// openStore returns the MongoDB store, or the in-memory one with --memory.
func openStore(cfg *config.Config) (*repository.Store, func(), error) {
	if serveMemory {
		zap.S().Warn("Running with the in-memory store, data is lost on exit")
		return memstore.New(), func() {}, nil
	}

	zap.S().Info("Connecting to MongoDB...")
	db, err := database.ConnectWithRetry(cfg.MongoURI, cfg.MongoDatabase, 3, 2*time.Second)
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.EnsureIndexes(ctx, db); err != nil {
		_ = database.DisconnectMongo()
		return nil, nil, err
	}
	closeFn := func() {
		if err := database.DisconnectMongo(); err != nil {
			zap.S().Errorf("MongoDB disconnect: %v", err)
		}
	}
	return repository.NewMongoStore(db), closeFn, nil
}

func openUploads(cfg *config.Config) (*uploads.Uploader, string, error) {
	if cfg.CloudinaryURL != "" {
		storage, err := uploads.NewCloudinaryStorage(cfg.CloudinaryURL, "networked")
		if err != nil {
			return nil, "", err
		}
		zap.S().Info("Uploads go to Cloudinary")
		return uploads.New(storage, cfg.MaxUploadBytes), "", nil
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, "", errors.Wrap(err, "create upload dir")
	}
	storage := &uploads.DiskStorage{Root: cfg.UploadDir, URLPrefix: "/uploads"}
	return uploads.New(storage, cfg.MaxUploadBytes), cfg.UploadDir, nil
}

func googleConfig(cfg *config.Config) *oauth2.Config {
	if !cfg.GoogleEnabled() {
		zap.S().Warn("Google sign-in not configured, set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET")
		return nil
	}
	redirect := cfg.GoogleRedirectURL
	if redirect == "" {
		redirect = "http://localhost:" + cfg.Port + "/auth/google/callback"
	}
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  redirect,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

func serve(cfg *config.Config) error {
	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	tokens := middleware.NewTokens(cfg.JWTSecret, cfg.TokenTTL)

	// Typing frames only arrive once the server is listening, by which time
	// h is set.
	var h *handlers.Handler
	sockets := websocket.NewManager(func(ctx context.Context, userID, conversationID string, typing bool) error {
		return h.Typing(ctx, userID, conversationID, typing)
	})
	go sockets.Start()
	defer sockets.Stop()

	pusher := services.FanOut{sockets}
	var sender *push.Sender
	if cfg.PushEnabled() {
		sender = push.NewSender(store.PushSubscriptions, push.Keys{
			PublicKey:  cfg.VAPIDPublicKey,
			PrivateKey: cfg.VAPIDPrivateKey,
			Subject:    cfg.VAPIDSubject,
		})
		pusher = append(pusher, sender)
	} else {
		zap.S().Warn("Web push disabled, run `networked vapid` and set VAPID_PUBLIC_KEY and VAPID_PRIVATE_KEY")
	}
	svc := services.New(store, pusher)

	uploader, uploadDir, err := openUploads(cfg)
	if err != nil {
		return err
	}

	h = handlers.New(handlers.Deps{
		Services: svc,
		Tokens:   tokens,
		Uploads:  uploader,
		Push:     sender,
		Google:   googleConfig(cfg),
	})

	sched, err := scheduler.New(cfg.JobSweepSchedule, svc.Jobs)
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	router := routes.SetupRouter(routes.Options{
		Handler:     h,
		Tokens:      tokens,
		Users:       store.Users,
		Sockets:     sockets,
		CORSOrigins: cfg.CORSOrigins,
		UploadDir:   uploadDir,
		AuthLimiter: middleware.NewIPRateLimiter(20, time.Minute),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		zap.S().Infof("Server running on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}

	zap.S().Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zap.S().Errorf("Forced shutdown: %v", err)
	}
	zap.S().Info("Server stopped")
	return nil
}
