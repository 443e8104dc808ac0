package main

import (
	"context"
	"net/http"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/slotbook/libs/config"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/slotbook/libs/otel"
	"github.com/md-rashed-zaman/slotbook/libs/runtime"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/booking"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/followup"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/handlers"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/metrics"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/outbox"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/reminders"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/storage"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/migrations"
)

// store is the full persistence surface; storage.Postgres and storage.Memory both satisfy it.
type store interface {
	handlers.AvailabilityStore
	handlers.AppointmentStore
	booking.AppointmentStore
	followup.AppointmentMarker
	reminders.Store
}

func main() {
	_ = godotenv.Load()

	service := config.String("SERVICE_NAME", "scheduling-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service, config.String("LOG_LEVEL", "info"))

	ctx, stop := runtime.SignalContext(context.Background())
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewScheduling(reg)

	var checks []runtime.ReadyCheck
	var st store
	var pool *db.Pool
	switch backend := strings.ToLower(config.String("STORAGE", "postgres")); backend {
	case "memory":
		logger.Warn("using in-memory storage; data is lost on restart")
		st = storage.NewMemory()
	case "postgres":
		dbURL, err := config.RequiredString("DATABASE_URL")
		if err != nil {
			panic(err)
		}
		if config.Bool("MIGRATE_ON_START", true) {
			if err := db.Migrate(dbURL, migrations.FS); err != nil {
				logger.Error("migrations failed", "err", err)
				panic(err)
			}
		}
		pool, err = db.Open(ctx, dbURL, db.Options{})
		if err != nil {
			logger.Error("db connection failed", "err", err)
			panic(err)
		}
		defer pool.Close()
		st = storage.NewPostgres(pool)
		checks = append(checks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})
	default:
		logger.Error("unknown storage backend", "storage", backend)
		panic("STORAGE must be postgres or memory")
	}

	shared, err := setupRedis(ctx, logger)
	if err != nil {
		logger.Error("redis setup failed", "err", err)
		panic(err)
	}
	if shared.client != nil {
		defer shared.client.Close()
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return shared.client.Ping(ctx).Err()
		}})
	}

	if pool != nil {
		brokers := kafkax.SplitBrokers(config.String("KAFKA_BROKERS", ""))
		var writer outbox.MessageWriter
		if len(brokers) > 0 {
			kw := kafkax.NewWriter(brokers)
			defer kw.Close()
			writer = kw
			checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
		}
		publisher := outbox.NewPublisher(pool, outbox.NewRepository(), writer, logger, outbox.PublisherConfig{
			PollEvery: 2 * time.Second,
			BatchSize: 50,
		})
		go publisher.Run(ctx)
	}

	sender, err := newSender(logger)
	if err != nil {
		logger.Error("email setup failed", "err", err)
		panic(err)
	}
	links, err := newMeetCreator(ctx, logger)
	if err != nil {
		logger.Error("google meet setup failed", "err", err)
		panic(err)
	}

	confirmation := followup.NewConfirmation(links, st, sender, followup.RetryPolicy{}, logger, m)
	dispatcher := followup.NewDispatcher(confirmation, followup.Config{
		Workers:   mustInt("FOLLOWUP_WORKERS", 2),
		QueueSize: mustInt("FOLLOWUP_QUEUE_SIZE", 256),
		Timeout:   mustDuration("FOLLOWUP_TIMEOUT", 30*time.Second),
	}, logger, m)
	go dispatcher.Run(ctx)

	if config.Bool("REMINDERS_ENABLED", true) {
		worker := reminders.NewWorker(st, sender, shared.locker, logger, m, reminders.WorkerConfig{
			Interval: mustDuration("REMINDER_INTERVAL", time.Minute),
			Lead:     mustDuration("REMINDER_LEAD", time.Hour),
		})
		go worker.Run(ctx)
	}

	svc := booking.NewService(booking.Deps{
		Availability: st,
		Appointments: st,
		Locker:       shared.locker,
		Followup:     dispatcher,
		Metrics:      m,
		Logger:       logger,
	})

	mux := runtime.NewBaseMuxWithReady(checks...)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	handlers.Routes{
		Availability: handlers.NewAvailabilityHandler(st, logger),
		Slots:        handlers.NewSlotsHandler(svc, logger),
		Appointments: handlers.NewAppointmentHandler(svc, st, logger),
		BookLimit:    shared.bookLimit,
	}.Register(mux)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.DefaultCORSPolicy(config.List("CORS_ALLOWED_ORIGINS"))),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(mustDuration("HTTP_HANDLER_TIMEOUT", 15*time.Second)),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "scheduling")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
