// Command phoneauth-demo runs registration, login, password reset and token
// refresh end to end against Redis (REDIS_ADDR) or an embedded miniredis.
// Codes are captured from the SMS sender, so no gateway is needed.
package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	goPhoneAuth "github.com/MrEthical07/goPhoneAuth"
	"github.com/MrEthical07/goPhoneAuth/directory/memdir"
	"github.com/MrEthical07/goPhoneAuth/internal/logx"
	"github.com/MrEthical07/goPhoneAuth/metrics/export/prometheus"
	"github.com/MrEthical07/goPhoneAuth/sms"
	"github.com/alicebob/miniredis/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// capturingSender remembers the last code sent per phone and purpose.
type capturingSender struct {
	next sms.Sender

	mu    sync.Mutex
	codes map[string]string
}

func (s *capturingSender) SendCode(ctx context.Context, phone, code, purpose string) (bool, error) {
	ok, err := s.next.SendCode(ctx, phone, code, purpose)
	if err != nil || !ok {
		return ok, err
	}
	s.mu.Lock()
	s.codes[purpose+":"+phone] = code
	s.mu.Unlock()
	return true, nil
}

func (s *capturingSender) last(phone string, purpose goPhoneAuth.Purpose) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[string(purpose)+":"+phone]
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	var (
		phone       = flag.String("phone", getEnvOrDefault("DEMO_PHONE", "+963912345678"), "E.164 phone number to register")
		redisAddr   = flag.String("redis-addr", os.Getenv("REDIS_ADDR"), "redis address; miniredis is used when empty")
		metricsAddr = flag.String("metrics-addr", os.Getenv("METRICS_ADDR"), "serve Prometheus metrics on this address after the run")
	)
	flag.Parse()

	logger := logx.New(logx.Config{
		Service: "phoneauth-demo",
		Env:     getEnvOrDefault("APP_ENV", "dev"),
		Level:   getEnvOrDefault("LOG_LEVEL", "info"),
		Format:  getEnvOrDefault("LOG_FORMAT", "text"),
	})

	client, cleanup, err := openRedis(*redisAddr, logger)
	if err != nil {
		logger.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	sender := &capturingSender{
		next:  sms.NewLogSender(logger, cfg.Security.ProductionMode),
		codes: make(map[string]string),
	}
	directory := memdir.New(memdir.Config{})

	engine, err := goPhoneAuth.New().
		WithConfig(cfg).
		WithRedis(client).
		WithAccountDirectory(directory).
		WithSMSSender(sms.NewThrottled(sender, 10, 5)).
		WithLogger(logger).
		WithAuditSink(goPhoneAuth.NewSlogSink(logger)).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		logger.Error("build engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = goPhoneAuth.WithClientIP(ctx, "127.0.0.1")
	ctx = goPhoneAuth.WithDevice(ctx, "phoneauth-demo")

	if err := run(ctx, engine, sender, directory, *phone, logger); err != nil {
		logger.Error("demo failed", "error", err)
		os.Exit(1)
	}

	if *metricsAddr == "" {
		fmt.Print(prometheus.New(engine).Render())
		return
	}
	logger.Info("serving metrics", "addr", *metricsAddr)
	mux := http.NewServeMux()
	mux.Handle("/metrics", prometheus.New(engine).Handler())
	if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
		logger.Error("metrics server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, engine *goPhoneAuth.Engine, sender *capturingSender, directory *memdir.Directory, phone string, logger *slog.Logger) error {
	const (
		password    = "correct horse battery"
		newPassword = "staple gun 2 electric"
	)

	if err := engine.BeginRegistration(ctx, phone, "Demo User"); err != nil {
		return fmt.Errorf("begin registration: %w", err)
	}
	if err := engine.VerifyRegistrationCode(ctx, phone, sender.last(phone, goPhoneAuth.PurposeRegistration)); err != nil {
		return fmt.Errorf("verify registration: %w", err)
	}
	pair, err := engine.CompleteRegistration(ctx, phone, password, "")
	if err != nil {
		return fmt.Errorf("complete registration: %w", err)
	}
	logger.Info("registered", logx.Phone(phone), "role", pair.Role, "access_expires_at", pair.AccessExpiresAt)

	if _, err := engine.Login(ctx, phone, "not the password"); !errors.Is(err, goPhoneAuth.ErrInvalidCredentials) {
		return fmt.Errorf("wrong password: expected invalid credentials, got %v", err)
	}

	if err := engine.RequestPasswordReset(ctx, phone); err != nil {
		return fmt.Errorf("request reset: %w", err)
	}
	if err := engine.VerifyResetCode(ctx, phone, sender.last(phone, goPhoneAuth.PurposePasswordReset)); err != nil {
		return fmt.Errorf("verify reset: %w", err)
	}
	if err := engine.ResetPassword(ctx, phone, newPassword); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	pair, err = engine.Login(ctx, phone, newPassword)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	claims, err := engine.ValidateAccessToken(pair.AccessToken)
	if err != nil {
		return fmt.Errorf("validate access token: %w", err)
	}
	logger.Info("logged in", "account_id", claims.AccountID(), "role", claims.Role)

	refreshed, err := engine.RefreshTokens(ctx, pair.RefreshToken)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	logger.Info("refreshed", "refresh_expires_at", refreshed.RefreshExpiresAt)

	logger.Info("login history", "attempts", len(directory.History(claims.AccountID())))
	return nil
}

func openRedis(addr string, logger *slog.Logger) (redis.UniversalClient, func(), error) {
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		logger.Info("using embedded miniredis", "addr", mr.Addr())
		addr = mr.Addr()
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		return client, func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping %s: %w", addr, err)
	}
	return client, func() { _ = client.Close() }, nil
}

func loadConfig() (goPhoneAuth.Config, error) {
	cfg := goPhoneAuth.DefaultConfig()
	cfg.IssueThrottle.Enabled = true
	cfg.Audit.Enabled = true
	cfg.JWT.Issuer = getEnvOrDefault("JWT_ISSUER", "phoneauth-demo")

	var err error
	if cfg.OTP.CodeLength, err = getEnvInt("OTP_CODE_LENGTH", cfg.OTP.CodeLength); err != nil {
		return cfg, err
	}
	if cfg.OTP.MaxAttempts, err = getEnvInt("OTP_MAX_ATTEMPTS", cfg.OTP.MaxAttempts); err != nil {
		return cfg, err
	}
	if cfg.OTP.Expiry, err = getEnvDuration("OTP_EXPIRY", cfg.OTP.Expiry); err != nil {
		return cfg, err
	}
	cfg.Security.ProductionMode = getEnvOrDefault("APP_ENV", "dev") == "production"

	if secret := os.Getenv("JWT_HS256_SECRET"); secret != "" {
		cfg.JWT.SigningMethod = "hs256"
		cfg.JWT.PrivateKey = []byte(secret)
		return cfg, nil
	}
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return cfg, fmt.Errorf("generate signing key: %w", err)
	}
	cfg.JWT.PrivateKey = key
	return cfg, nil
}

func getEnvOrDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
