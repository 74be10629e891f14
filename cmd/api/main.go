package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/config"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attachment"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/company"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/jobflag"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/penalty"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/user"
	appHTTP "github.com/cmlabs-hris/presence-backend-go/internal/handler/http"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/cron"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/redis"
	"github.com/cmlabs-hris/presence-backend-go/internal/repository/memory"
	"github.com/cmlabs-hris/presence-backend-go/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/presence-backend-go/internal/service/attendance"
	auditService "github.com/cmlabs-hris/presence-backend-go/internal/service/audit"
	leaveService "github.com/cmlabs-hris/presence-backend-go/internal/service/leave"
	notificationService "github.com/cmlabs-hris/presence-backend-go/internal/service/notification"
	penaltyService "github.com/cmlabs-hris/presence-backend-go/internal/service/penalty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// repositories is the storage surface shared by both database drivers.
type repositories struct {
	tx            database.Transactor
	settings      company.SettingsRepository
	users         user.UserRepository
	attendance    attendance.AttendanceRepository
	penalties     penalty.PenaltyRepository
	leaveRequests leave.LeaveRequestRepository
	attachments   attachment.Repository
	notifications notification.Repository
	auditLogs     audit.Repository
	jobFlags      jobflag.Guard
	close         func()
}

func main() {
	if err := run(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.App.LogLevel)}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		return err
	}
	defer repos.close()

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		repos.jobFlags = redis.NewJobFlagGuard(redisClient.Client, "")
		slog.Info("Job flags stored in Redis")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	notifications := notificationService.NewNotificationService(repos.notifications, m, notificationService.Config{
		BatchSize:     cfg.Notification.BatchSize,
		FlushInterval: cfg.Notification.FlushInterval,
		WorkerCount:   cfg.Notification.WorkerCount,
		QueueSize:     cfg.Notification.QueueSize,
	})
	defer notifications.Stop()

	audits := auditService.NewAuditService(repos.auditLogs, time.Now)

	attendanceSvc := attendanceService.NewAttendanceService(
		repos.settings,
		repos.attendance,
		repos.users,
		notifications,
		audits,
		m,
		attendanceService.Config{FinalizerConcurrency: cfg.Scheduler.FinalizerConcurrency},
	)
	penaltySvc := penaltyService.NewPenaltyService(
		repos.settings,
		repos.penalties,
		repos.attendance,
		notifications,
		audits,
		m,
		penaltyService.Config{Concurrency: cfg.Scheduler.FinalizerConcurrency},
	)
	quotaSvc := leaveService.NewQuotaService(repos.users, repos.leaveRequests, leaveService.NewQuotaCalculator())
	requestSvc := leaveService.NewRequestService(repos.attendance, repos.attachments)
	leaveSvc := leaveService.NewLeaveService(
		repos.tx,
		repos.settings,
		repos.leaveRequests,
		repos.users,
		repos.notifications,
		notifications,
		audits,
		quotaSvc,
		requestSvc,
		time.Now,
	)

	if cfg.Scheduler.Enabled {
		settings, err := repos.settings.GetCompanySettings(ctx)
		if err != nil {
			return fmt.Errorf("load company settings: %w", err)
		}
		loc, err := settings.Location()
		if err != nil {
			return fmt.Errorf("load company timezone: %w", err)
		}

		scheduler := cron.NewScheduler(loc)
		jobs := cron.NewAttendanceJobs(
			repos.settings,
			attendanceSvc,
			penaltySvc,
			repos.attendance,
			repos.users,
			notifications,
			repos.jobFlags,
			m,
			cron.JobsConfig{
				StaleAfter:        cfg.Scheduler.StaleAfter,
				HeartbeatInterval: cfg.Scheduler.HeartbeatInterval,
			},
		)
		if err := jobs.RegisterJobs(ctx, scheduler); err != nil {
			return fmt.Errorf("register attendance jobs: %w", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	accessExpiration, err := time.ParseDuration(cfg.JWT.AccessExpiration)
	if err != nil {
		return fmt.Errorf("parse JWT access expiration: %w", err)
	}
	JWTService := jwt.NewJWTService(cfg.JWT.Secret, accessExpiration)

	router := appHTTP.NewRouter(
		appHTTP.RouterConfig{
			CORSOrigins: cfg.App.CORSOrigins,
			Logger:      logger,
			Metrics:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		},
		JWTService,
		appHTTP.NewAttendanceHandler(attendanceSvc),
		appHTTP.NewPenaltyHandler(penaltySvc),
		appHTTP.NewLeaveHandler(leaveSvc),
		appHTTP.NewNotificationHandler(notifications),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", server.Addr, "env", cfg.App.Env, "driver", cfg.Database.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openRepositories(ctx context.Context, cfg *config.Config) (*repositories, error) {
	if cfg.Database.Driver == config.DriverMemory {
		store := memory.NewStore()
		slog.Warn("Using in-memory storage; data is lost on restart")
		return &repositories{
			tx:            store.Transactor(),
			settings:      store.Settings(),
			users:         store.Users(),
			attendance:    store.Attendance(),
			penalties:     store.Penalties(),
			leaveRequests: store.LeaveRequests(),
			attachments:   store.Attachments(),
			notifications: store.Notifications(),
			auditLogs:     store.AuditLogs(),
			jobFlags:      store.JobFlags(),
			close:         func() {},
		}, nil
	}

	db, err := database.NewPostgreSQLDBWithContext(ctx, cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &repositories{
		tx:            postgresql.NewTransactor(db),
		settings:      postgresql.NewSettingsRepository(db),
		users:         postgresql.NewUserRepository(db),
		attendance:    postgresql.NewAttendanceRepository(db),
		penalties:     postgresql.NewPenaltyRepository(db),
		leaveRequests: postgresql.NewLeaveRequestRepository(db),
		attachments:   postgresql.NewAttachmentRepository(db),
		notifications: postgresql.NewNotificationRepository(db),
		auditLogs:     postgresql.NewAuditRepository(db),
		jobFlags:      postgresql.NewJobFlagGuard(db),
		close:         db.Close,
	}, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
