package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	"github.com/AdhubOrg/rebase-bot/internal/config"
	"github.com/AdhubOrg/rebase-bot/internal/delivery"
	"github.com/AdhubOrg/rebase-bot/internal/digest"
	apperrors "github.com/AdhubOrg/rebase-bot/internal/errors"
	"github.com/AdhubOrg/rebase-bot/internal/feed"
	"github.com/AdhubOrg/rebase-bot/internal/githubapi"
	"github.com/AdhubOrg/rebase-bot/internal/monitoring"
	"github.com/AdhubOrg/rebase-bot/internal/notify"
	"github.com/AdhubOrg/rebase-bot/internal/ratelimit"
	"github.com/AdhubOrg/rebase-bot/internal/webhook"
)

func main() {
	var (
		configPath = pflag.String("config", "", "path to YAML config file")
		listenAddr = pflag.String("addr", "", "listen address (overrides config)")
	)
	pflag.Parse()

	logger := monitoring.NewLogger()
	metrics := monitoring.NewMetrics()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err.Error())
		os.Exit(1)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}

	loc, _ := cfg.Location()
	slots, _ := cfg.Slots()

	// Core pipeline: buffer, live feed, renderer, scheduler, backfill.
	buffer := feed.NewBuffer()
	feedSvc := feed.NewService(buffer, cfg.Feed.ChannelID, logger, metrics)

	chat := delivery.NewRESTClient(cfg.Chat.BaseURL, cfg.Chat.Token, cfg.Chat.Timeout, logger, metrics)
	renderer := digest.NewRenderer(cfg.PrimaryBranch)
	notifier := notify.NewDigestNotifier(chat, cfg.Digest.ChannelID, cfg.Digest.Mention, cfg.PrimaryBranch)
	scheduler := digest.NewScheduler(slots, loc, buffer, renderer, notifier, logger, metrics)
	reconciler := feed.NewReconciler(feedSvc, chat, scheduler.LastBoundary, logger, metrics)

	var ghClient *githubapi.Client
	if cfg.GitHub.Org != "" && cfg.GitHub.Repo != "" {
		ghClient = githubapi.NewClient(cfg.GitHub.Org, cfg.GitHub.Repo, cfg.GitHub.Token, cfg.GitHub.CacheTTL, logger, metrics)
	} else {
		logger.SystemLogger("github_lookups_disabled", "GITHUB_ORG/GITHUB_REPO not configured")
	}

	webhookHandler := webhook.NewHandler(buffer, logger, metrics)
	webhookLimiter := ratelimit.New(ratelimit.Config{
		PerMinute: cfg.RateLimit.PerMinute,
		Burst:     cfg.RateLimit.Burst,
	})

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(cors.Default())
	r.Use(monitoring.MonitoringMiddleware(metrics, logger))
	r.Use(apperrors.RecoveryHandler())
	r.Use(apperrors.ErrorHandler())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"buffered":  buffer.Len(),
		})
	})

	r.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, metrics.GetStats())
	})

	limited := r.Group("/", ratelimit.Middleware(webhookLimiter, metrics))
	webhookHandler.Register(limited)

	api := r.Group("/api")
	{
		// Bridge from the chat-platform connector: one live message in,
		// zero or more events buffered.
		api.POST("/feed/messages", func(c *gin.Context) {
			var msg delivery.Message
			if err := c.ShouldBindJSON(&msg); err != nil {
				c.Error(apperrors.NewValidationError("malformed message", err.Error()))
				return
			}
			buffered := feedSvc.HandleMessage(msg)
			c.JSON(http.StatusAccepted, gin.H{"buffered": buffered})
		})

		api.GET("/feed/status", func(c *gin.Context) {
			c.JSON(http.StatusOK, feedSvc.Status())
		})

		api.GET("/digest/preview", func(c *gin.Context) {
			c.JSON(http.StatusOK, scheduler.Preview())
		})

		api.POST("/digest/trigger", func(c *gin.Context) {
			sum := scheduler.TriggerNow(c.Request.Context())
			c.JSON(http.StatusOK, sum)
		})

		api.GET("/schedule", func(c *gin.Context) {
			slotStrings := make([]string, 0, len(slots))
			for _, s := range slots {
				slotStrings = append(slotStrings, s.String())
			}
			c.JSON(http.StatusOK, gin.H{
				"timezone":       cfg.Timezone,
				"slots":          slotStrings,
				"primary_branch": cfg.PrimaryBranch,
			})
		})

		activity := api.Group("/activity")
		activity.GET("/commits", func(c *gin.Context) {
			if ghClient == nil {
				c.Error(apperrors.NewConfigurationError("github lookups not configured", nil))
				return
			}
			hours, err := strconv.Atoi(c.DefaultQuery("hours", "24"))
			if err != nil || hours <= 0 {
				hours = 24
			}
			since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
			commits, err := ghClient.RecentCommits(c.Request.Context(), c.Query("branch"), since)
			if err != nil {
				c.Error(err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"commits": commits, "window_hours": hours})
		})

		activity.GET("/issues", func(c *gin.Context) {
			if ghClient == nil {
				c.Error(apperrors.NewConfigurationError("github lookups not configured", nil))
				return
			}
			issues, err := ghClient.OpenIssues(c.Request.Context())
			if err != nil {
				c.Error(err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"issues": issues})
		})

		activity.GET("/pulls", func(c *gin.Context) {
			if ghClient == nil {
				c.Error(apperrors.NewConfigurationError("github lookups not configured", nil))
				return
			}
			pulls, err := ghClient.OpenPulls(c.Request.Context())
			if err != nil {
				c.Error(err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"pulls": pulls})
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go scheduler.Run(ctx)
	go reconciler.Run(ctx)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}

	go func() {
		logger.SystemLogger("server_started", "listening on "+cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err.Error())
	}
	logger.SystemLogger("server_stopped", "shutdown complete")
}
