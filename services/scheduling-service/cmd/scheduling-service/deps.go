package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/md-rashed-zaman/slotbook/libs/config"
	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/email"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/lock"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/meet"
)

func mustInt(key string, fallback int) int {
	v, err := config.Int(key, fallback)
	if err != nil {
		panic(err)
	}
	return v
}

func mustDuration(key string, fallback time.Duration) time.Duration {
	v, err := config.Duration(key, fallback)
	if err != nil {
		panic(err)
	}
	return v
}

type redisDeps struct {
	client    *redis.Client
	locker    lock.Locker
	bookLimit httpx.Middleware
}

// setupRedis shares the booking lock and rate limit across replicas when
// REDIS_URL is set, and falls back to process-local versions otherwise.
func setupRedis(ctx context.Context, logger *slog.Logger) (redisDeps, error) {
	limit := mustInt("BOOK_RATE_LIMIT", 30)
	window := mustDuration("BOOK_RATE_WINDOW", time.Minute)

	url := config.String("REDIS_URL", "")
	if url == "" {
		return redisDeps{
			locker:    lock.NewLocal(),
			bookLimit: httpx.NewRateLimiter(limit, window).Middleware(),
		}, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return redisDeps{}, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return redisDeps{}, err
	}
	return redisDeps{
		client: rdb,
		locker: lock.NewRedis(rdb, mustDuration("LOCK_TTL", 10*time.Second), logger),
		bookLimit: httpx.NewRedisRateLimiter(rdb, limit, window, "slotbook:ratelimit:book:").
			Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true)),
	}, nil
}

func newSender(logger *slog.Logger) (email.Sender, error) {
	switch provider := strings.ToLower(config.String("EMAIL_PROVIDER", "smtp")); provider {
	case "sendgrid":
		return email.NewSendGridSender(email.SendGridConfig{
			APIKey:    config.String("SENDGRID_API_KEY", ""),
			FromEmail: config.String("EMAIL_FROM", ""),
			FromName:  config.String("EMAIL_FROM_NAME", "Slotbook"),
		})
	case "noop", "none":
		return email.NewNoopSender(logger), nil
	default:
		return email.NewSMTPSender(
			config.String("SMTP_HOST", "localhost"),
			config.String("SMTP_PORT", "1025"),
			config.String("EMAIL_FROM", ""),
		), nil
	}
}

func newMeetCreator(ctx context.Context, logger *slog.Logger) (meet.Creator, error) {
	cfg := meet.GoogleConfig{
		ClientID:     config.String("GOOGLE_CLIENT_ID", ""),
		ClientSecret: config.String("GOOGLE_CLIENT_SECRET", ""),
		RedirectURL:  config.String("GOOGLE_REDIRECT_URI", ""),
		RefreshToken: config.String("GOOGLE_REFRESH_TOKEN", ""),
		CalendarID:   config.String("GOOGLE_CALENDAR_ID", "primary"),
	}
	if !cfg.Enabled() {
		logger.Warn("google meet disabled; confirmations are sent without a meeting link")
		return meet.Noop{}, nil
	}
	return meet.NewGoogle(ctx, cfg)
}
