package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/harentsoaR/medrescue-api/internal/config"
	"github.com/harentsoaR/medrescue-api/internal/handlers"
	"github.com/harentsoaR/medrescue-api/internal/logger"
	"github.com/harentsoaR/medrescue-api/internal/metrics"
	"github.com/harentsoaR/medrescue-api/internal/middleware"
	"github.com/harentsoaR/medrescue-api/internal/repository"
	"github.com/harentsoaR/medrescue-api/internal/repository/memory"
	"github.com/harentsoaR/medrescue-api/internal/services"
	"github.com/harentsoaR/medrescue-api/internal/storage"
	"github.com/harentsoaR/medrescue-api/internal/utils"
)

type stores struct {
	users        services.UserRepository
	doctors      services.DoctorRepository
	appointments services.AppointmentRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewCollector("medrescue", prometheus.DefaultRegisterer)

	st, closeStore, err := openStores(ctx, cfg, zlog)
	if err != nil {
		return err
	}
	defer closeStore()

	admin, err := services.ResolveAdminRegistry(ctx, cfg.Admin.UserID, st.users)
	if err != nil {
		return err
	}
	if _, ok := admin.AdminID(); !ok {
		zlog.Warn("no admin account found, admin notifications will be dropped")
	}

	var push services.PushSender = services.NoopPushSender{}
	if cfg.Push.Enabled() {
		push = services.NewWebPushSender(cfg.Push)
	} else {
		zlog.Info("VAPID keys not configured, browser push disabled")
	}

	var mailer services.Mailer = services.NewLogMailer(zlog)
	if cfg.Mail.Enabled() {
		mailer = services.NewSMTPMailer(cfg.Mail)
	} else {
		zlog.Warn("SMTP not configured, OTP codes are written to the log")
	}

	files := storage.NewLocalStore(cfg.Upload.Dir)
	jwt := utils.NewJWTManager(cfg.JWT)

	notifier := services.NewNotificationService(st.users, push, admin, cfg.Push.SendTimeout, zlog, m)
	h := handlers.NewHandler(
		services.NewAccountService(st.users, mailer, jwt, cfg.Mail.OTPTTL, zlog),
		services.NewAppointmentService(st.appointments, st.doctors, st.users, notifier, zlog, m),
		services.NewDocumentService(st.appointments, st.doctors, st.users, files, cfg.Upload.MaxFileBytes, notifier, zlog, m),
		services.NewDoctorService(st.doctors, st.users, notifier, zlog, m),
		services.NewAdminService(st.users, st.doctors, notifier, zlog, m),
		notifier,
		cfg.Upload.MaxFileBytes,
		zlog,
	)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		middleware.Recovery(zlog),
		middleware.RequestID(),
		middleware.Logger(zlog),
		middleware.Metrics(m),
		cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     cfg.CORS.AllowedMethods,
			AllowHeaders:     cfg.CORS.AllowedHeaders,
			ExposeHeaders:    []string{"Content-Disposition", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           cfg.CORS.MaxAge,
		}),
	)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.AuthRequestsPerMinute, cfg.RateLimit.AuthBurst)
	go sweepLimiter(ctx, limiter)

	r.GET("/health", handlers.Health)
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))
	h.RegisterRoutes(r, middleware.AuthMiddleware(jwt), limiter.Middleware())

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		zlog.Info("starting server", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	zlog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := notifier.Wait(shutdownCtx); err != nil {
		zlog.Warn("pending push deliveries abandoned", zap.Error(err))
	}
	return nil
}

func openStores(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (stores, func(), error) {
	if cfg.Mongo.Driver == "memory" {
		zlog.Warn("using in-memory store, data is lost on restart")
		mem := memory.NewStore()
		return stores{users: mem.Users(), doctors: mem.Doctors(), appointments: mem.Appointments()}, func() {}, nil
	}

	client, db, err := repository.Connect(ctx, cfg.Mongo, zlog)
	if err != nil {
		return stores{}, nil, err
	}
	disconnect := func() { disconnectMongo(client, zlog) }

	if err := repository.EnsureIndexes(ctx, db); err != nil {
		disconnect()
		return stores{}, nil, err
	}
	return stores{
		users:        repository.NewUserRepository(db),
		doctors:      repository.NewDoctorRepository(db),
		appointments: repository.NewAppointmentRepository(db),
	}, disconnect, nil
}

func disconnectMongo(client *mongo.Client, zlog *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		zlog.Warn("disconnecting from MongoDB", zap.Error(err))
	}
}

func sweepLimiter(ctx context.Context, l *middleware.RateLimiter) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep(10 * time.Minute)
		}
	}
}
