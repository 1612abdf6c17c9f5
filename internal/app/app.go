// Package app boots the service: configuration, logging, database, ledger
// engine, and the HTTP server.
package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/tokendesk/tokendesk/internal/config"
	"github.com/tokendesk/tokendesk/internal/db"
	"github.com/tokendesk/tokendesk/internal/http/api/admin"
	"github.com/tokendesk/tokendesk/internal/http/api/front"
	"github.com/tokendesk/tokendesk/internal/http/api/ipn"
	"github.com/tokendesk/tokendesk/internal/hub"
	"github.com/tokendesk/tokendesk/internal/ledger"
	"github.com/tokendesk/tokendesk/internal/locks"
	"github.com/tokendesk/tokendesk/internal/models"
	"github.com/tokendesk/tokendesk/internal/payments"
	"github.com/tokendesk/tokendesk/internal/security"
	"github.com/tokendesk/tokendesk/internal/settings"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

// Run boots the service and blocks until shutdown.
func Run(configPath string) error {
	cfg, errLoad := config.Load(config.ResolveConfigPath(configPath))
	if errLoad != nil {
		return errLoad
	}

	setupLogging(cfg.Log)

	conn, errOpen := db.Open(cfg.Database)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	ctx := context.Background()
	if errRefresh := settings.Refresh(ctx, conn); errRefresh != nil {
		return errRefresh
	}
	if errSeed := ensureDefaultAdmin(ctx, conn); errSeed != nil {
		return errSeed
	}

	hubClient := hub.NewClient(cfg.Hub.URL, cfg.Hub.ServiceKey)
	if hubClient == nil {
		log.Warn("hub not configured, token mirroring disabled")
	}

	locker := locks.NewRedisLocker(cfg.Redis)
	if locker != nil {
		if errPing := locker.Ping(ctx); errPing != nil {
			return errPing
		}
	}

	var mirror ledger.Mirror
	if hubClient != nil {
		mirror = hubClient
	}
	var engineLocker ledger.Locker
	if locker != nil {
		engineLocker = locker
	}
	engine := ledger.NewEngine(conn, mirror, nil, engineLocker)

	var gateway *payments.Gateway
	if strings.TrimSpace(cfg.Gateway.APIKey) != "" {
		gateway = payments.NewGateway(cfg.Gateway.APIBaseURL, cfg.Gateway.APIKey, cfg.Gateway.CallbackURL)
	} else {
		log.Warn("payment gateway not configured, funding disabled")
	}

	if hubClient != nil {
		if _, errSync := hubClient.SyncProducts(ctx, conn); errSync != nil {
			log.WithError(errSync).Warn("initial product catalog sync failed")
		}
	}

	router := buildRouter(conn, engine, gateway, hubClient, cfg)

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("listen", cfg.Listen).Info("server starting")
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case errServe := <-errCh:
		if errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			return errServe
		}
	case sig := <-stop:
		log.WithField("signal", sig.String()).Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			return errShutdown
		}
	}
	return nil
}

// buildRouter assembles the gin engine with all API groups.
func buildRouter(conn *gorm.DB, engine *ledger.Engine, gateway *payments.Gateway, hubClient *hub.Client, cfg *config.Config) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	front.RegisterRoutes(router, conn, engine, gateway, cfg)
	admin.RegisterRoutes(router, conn, engine, hubClient, cfg)
	ipn.RegisterRoutes(router, ipn.NewHandler(conn, cfg.Gateway.IPNSecret))

	return router
}

// requestLogger logs one line per request with latency and status.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Info("request")
	}
}

// setupLogging configures logrus output, level, and file rotation.
func setupLogging(cfg config.LogConfig) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	level, errLevel := log.ParseLevel(strings.TrimSpace(cfg.Level))
	if errLevel != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if strings.TrimSpace(cfg.File) != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		log.SetOutput(io.MultiWriter(os.Stdout, rotator))
	}
}

// ensureDefaultAdmin seeds an operator account from the environment when the
// admin table is empty. Without credentials in the environment the admin API
// stays unreachable until an admin row is created manually.
func ensureDefaultAdmin(ctx context.Context, conn *gorm.DB) error {
	var count int64
	if errCount := conn.WithContext(ctx).Model(&models.Admin{}).Count(&count).Error; errCount != nil {
		return errCount
	}
	if count > 0 {
		return nil
	}

	username := strings.TrimSpace(os.Getenv("TOKENDESK_ADMIN_USER"))
	password := strings.TrimSpace(os.Getenv("TOKENDESK_ADMIN_PASSWORD"))
	if username == "" || password == "" {
		log.Warn("no admin accounts and no seed credentials in environment")
		return nil
	}

	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		return errHash
	}
	admin := models.Admin{Username: username, Password: hash}
	if errCreate := conn.WithContext(ctx).Create(&admin).Error; errCreate != nil {
		return errCreate
	}
	log.WithField("username", username).Info("seeded admin account")
	return nil
}
