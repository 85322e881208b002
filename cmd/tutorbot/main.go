package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/tutorbot/internal/bot"
	"github.com/noah-isme/tutorbot/internal/handler"
	"github.com/noah-isme/tutorbot/internal/middleware"
	"github.com/noah-isme/tutorbot/internal/repository"
	"github.com/noah-isme/tutorbot/internal/service"
	"github.com/noah-isme/tutorbot/internal/session"
	"github.com/noah-isme/tutorbot/pkg/cache"
	"github.com/noah-isme/tutorbot/pkg/config"
	"github.com/noah-isme/tutorbot/pkg/database"
	"github.com/noah-isme/tutorbot/pkg/export"
	"github.com/noah-isme/tutorbot/pkg/jobs"
	"github.com/noah-isme/tutorbot/pkg/logger"
	"github.com/noah-isme/tutorbot/pkg/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("tutorbot stopped with error", zap.Error(err))
	}
	logr.Info("tutorbot stopped")
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	if cfg.Bot.Token == "" {
		return errors.New("BOT_TOKEN is required")
	}
	loc := cfg.Bot.Location()

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	var redisClient *redis.Client
	if cfg.Session.Backend == config.SessionRedis {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
	}
	sessions, err := session.Open(cfg.Session, redisClient)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer sessions.Close()

	api, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		return fmt.Errorf("connect telegram: %w", err)
	}
	api.Debug = cfg.Bot.Debug
	logr.Info("authorized on telegram", zap.String("username", api.Self.UserName))
	messenger := bot.NewTelegramMessenger(api, logr.Named("telegram"))

	metrics := service.NewMetricsService()
	notifications := service.NewNotificationService(messenger, jobs.QueueConfig{
		Workers:    cfg.Notify.Workers,
		BufferSize: cfg.Notify.Buffer,
		MaxRetries: cfg.Notify.Retries,
		RetryDelay: cfg.Notify.RetryDelay,
		Logger:     logr.Named("notifications"),
	}, metrics, logr)
	notifications.Start(ctx)
	defer notifications.Stop()

	app, err := buildServices(db, cfg, loc, notifications, metrics, logr)
	if err != nil {
		return err
	}
	if err := app.reminders.RescheduleAll(ctx); err != nil {
		logr.Warn("reminders not restored", zap.Error(err))
	}
	if err := app.reminders.ScheduleWeeklyReport(); err != nil {
		return fmt.Errorf("schedule weekly report: %w", err)
	}
	app.reminders.Start(ctx)
	defer func() {
		if err := app.reminders.Shutdown(); err != nil {
			logr.Warn("scheduler shutdown", zap.Error(err))
		}
	}()

	router := bot.NewRouter(app.bot, sessions, messenger, metrics, logr.Named("router"))
	dispatcher := bot.NewDispatcher(router, cfg.Bot.UpdateBuffer, logr.Named("dispatcher"))
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	checks := map[string]handler.ReadinessCheck{
		"database": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return cache.Ping(ctx, redisClient) }
	}
	server := newHTTPServer(cfg, metrics, checks, dispatcher, logr)
	serverErr := make(chan error, 1)
	go func() {
		logr.Info("http server starting", zap.String("addr", server.Addr), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	if cfg.Bot.UseWebhook {
		url := strings.TrimSuffix(cfg.Bot.WebhookURL, "/") + cfg.Bot.WebhookPath
		if err := registerWebhook(api, cfg.Bot.WebhookURL, url); err != nil {
			return err
		}
		logr.Info("webhook registered", zap.String("url", url))
	} else {
		if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			logr.Warn("webhook not removed", zap.Error(err))
		}
		go dispatcher.Poll(ctx, api, cfg.Bot.PollTimeout)
	}

	select {
	case <-ctx.Done():
	case err, ok := <-serverErr:
		if ok && err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http server shutdown", zap.Error(err))
	}
	return nil
}

type application struct {
	bot       bot.Services
	reminders *service.ReminderService
}

func buildServices(db *sqlx.DB, cfg *config.Config, loc *time.Location, notifier *service.NotificationService, metrics *service.MetricsService, logr *zap.Logger) (*application, error) {
	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	parentRepo := repository.NewParentRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	flashcardRepo := repository.NewFlashcardRepository(db)
	quizRepo := repository.NewQuizRepository(db)

	groups := service.NewGroupService(groupRepo, validate, logr)
	users := service.NewUserService(userRepo, groups, parentRepo, service.TeacherAuth{
		Code: cfg.Bot.TeacherCode,
		Hash: cfg.Bot.TeacherCodeHash,
	}, validate, logr)
	reports := service.NewReportService(parentRepo, userRepo, submissionRepo, notifier, logr)

	scheduler, err := service.NewScheduler(loc, logr)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	reminders := service.NewReminderService(scheduler, lessonRepo, assignmentRepo, users, reports, notifier, cfg.Reminders, loc, metrics, logr)

	assignments := service.NewAssignmentService(assignmentRepo, users, groups, reminders, loc, cfg.Bot.TasksPageSize, validate, logr)
	submissions := service.NewSubmissionService(submissionRepo, assignments, userRepo, notifier, service.NewStreakCalculator(loc), validate, logr)
	lessons := service.NewLessonService(lessonRepo, users, groups, reminders, loc, validate, logr)

	archive, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("open export storage: %w", err)
	}
	exports := service.NewExportService(submissions, export.NewCSVExporter(), export.NewPDFExporter(cfg.Exports.FontPath), archive, cfg.Exports.Retention, loc, logr)

	return &application{
		bot: bot.Services{
			Users:       users,
			Groups:      groups,
			Assignments: assignments,
			Submissions: submissions,
			Lessons:     lessons,
			Flashcards:  service.NewFlashcardService(flashcardRepo, users, groups, logr),
			Quizzes:     service.NewQuizService(quizRepo, users, groups, logr),
			Exports:     exports,
		},
		reminders: reminders,
	}, nil
}

func newHTTPServer(cfg *config.Config, metrics *service.MetricsService, checks map[string]handler.ReadinessCheck, dispatcher *bot.Dispatcher, logr *zap.Logger) *http.Server {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metrics, "/metrics"))

	metricsHandler := handler.NewMetricsHandler(metrics, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Bot.UseWebhook {
		webhook := handler.NewWebhookHandler(dispatcher, logr.Named("webhook"))
		r.POST(cfg.Bot.WebhookPath, webhook.Receive)
	}

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func registerWebhook(api *tgbotapi.BotAPI, base, url string) error {
	if base == "" {
		return errors.New("WEBHOOK_URL is required when USE_WEBHOOK is set")
	}
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("build webhook: %w", err)
	}
	if _, err := api.Request(wh); err != nil {
		return fmt.Errorf("register webhook: %w", err)
	}
	return nil
}
