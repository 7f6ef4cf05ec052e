package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/BearBump/VeinLine/config"
	"github.com/BearBump/VeinLine/internal/api/sosapi"
	"github.com/BearBump/VeinLine/internal/broker/kafka"
	"github.com/BearBump/VeinLine/internal/cache/rediscache"
	"github.com/BearBump/VeinLine/internal/integrations/email"
	"github.com/BearBump/VeinLine/internal/integrations/sms"
	"github.com/BearBump/VeinLine/internal/integrations/sms/fast2sms"
	"github.com/BearBump/VeinLine/internal/integrations/sms/logsms"
	"github.com/BearBump/VeinLine/internal/integrations/sms/textlocal"
	"github.com/BearBump/VeinLine/internal/metrics"
	"github.com/BearBump/VeinLine/internal/models"
	"github.com/BearBump/VeinLine/internal/services/compat"
	"github.com/BearBump/VeinLine/internal/services/donations"
	"github.com/BearBump/VeinLine/internal/services/emergency"
	"github.com/BearBump/VeinLine/internal/services/inbound"
	"github.com/BearBump/VeinLine/internal/services/matcher"
	"github.com/BearBump/VeinLine/internal/services/messaging"
	"github.com/BearBump/VeinLine/internal/services/notifier"
	"github.com/BearBump/VeinLine/internal/services/sos"
	"github.com/BearBump/VeinLine/internal/storage/pgsos"
)

type sosAPIApp struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   sosAPIOpts
	api    *sosapi.API

	closers []func()
}

func mustBootstrapSOSAPI() *sosAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		panic("swaggerPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("config parse failed: %v", err))
	}
	slog.SetDefault(newLogger(cfg.VeinLine.LogLevel))

	httpAddr := cfg.VeinLine.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	smsProvider, err := newSMSProvider(cfg)
	if err != nil {
		panic(err)
	}
	mailer, err := newEmailSender(cfg)
	if err != nil {
		panic(err)
	}

	st := mustOpenPostgresWithRetry(cfg.PostgresConnString(), 60*time.Second)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if err := seedCompatibility(ctx, st); err != nil {
		cancel()
		st.Close()
		panic(err)
	}

	rc := rediscache.New(cfg.RedisAddr())
	rl := rediscache.NewRateLimiter(cfg.RedisAddr())
	producer := kafka.NewProducer(cfg.KafkaBrokers())
	m := metrics.New(prometheus.DefaultRegisterer)

	api := buildAPI(cfg, serviceDeps{
		store:       st,
		sms:         smsProvider,
		email:       mailer,
		tokenCache:  rc,
		rateLimiter: rl,
		publisher:   producer,
		metrics:     m,
	})

	return &sosAPIApp{
		ctx:    ctx,
		cancel: cancel,
		opts: sosAPIOpts{
			httpAddr:    httpAddr,
			swaggerPath: swaggerPath,
			ready: func(ctx context.Context) error {
				if err := st.Ping(ctx); err != nil {
					return err
				}
				return rc.Ping(ctx)
			},
			gatherer: prometheus.DefaultGatherer,
		},
		api: api,
		closers: []func(){
			func() { _ = producer.Close() },
			func() { _ = rl.Close() },
			func() { _ = rc.Close() },
			st.Close,
		},
	}
}

type serviceDeps struct {
	store       *pgsos.Storage
	sms         sms.Provider
	email       email.Sender
	tokenCache  *rediscache.RedisCache
	rateLimiter *rediscache.RateLimiter
	publisher   *kafka.Producer
	metrics     *metrics.Metrics
}

// buildAPI wires every service over the shared store and notifier.
func buildAPI(cfg *config.Config, d serviceDeps) *sosapi.API {
	table := compat.New(d.store, d.metrics)
	m := matcher.New(table, d.store, matcher.Config{
		CityMatchStrict: cfg.CityMatchStrict(),
		DefaultLimit:    cfg.VeinLine.MatchLimit,
	})
	n := notifier.New(notifier.Deps{
		Contacts:    d.store,
		SMS:         d.sms,
		Email:       d.email,
		Store:       d.store,
		RateLimiter: d.rateLimiter,
		Metrics:     d.metrics,
	}, notifier.Config{
		Concurrency:         cfg.VeinLine.NotifyConcurrency,
		SMSRateLimitPerHour: int64(cfg.VeinLine.SMSRateLimitPerHour),
	})

	sosSvc := sos.New(sos.Deps{
		Repo:       d.store,
		Matcher:    m,
		Notifier:   n,
		Donors:     d.store,
		Phones:     d.store,
		Senders:    inbound.NewPhoneSuffixResolver(d.store),
		TokenCache: d.tokenCache,
		Publisher:  d.publisher,
		Metrics:    d.metrics,
	}, sos.Config{
		MatchLimit:    cfg.VeinLine.MatchLimit,
		TokenCacheTTL: time.Duration(cfg.VeinLine.TokenCacheTTLSeconds) * time.Second,
		EventsTopic:   cfg.SOSEventsTopic(),
	})
	trackerSvc := donations.New(d.store, d.store, d.publisher, d.metrics, cfg.SOSEventsTopic())

	return sosapi.New(sosSvc, trackerSvc, d.store).
		WithMessaging(messaging.New(d.store, n)).
		WithEmergencyContacts(emergency.New(d.store))
}

// newSMSProvider picks the outbound SMS vendor. An empty name means the log provider.
func newSMSProvider(cfg *config.Config) (sms.Provider, error) {
	s := sms.Settings{
		APIKey:   cfg.SMS.APIKey,
		SenderID: cfg.SMS.SenderID,
		BaseURL:  cfg.SMS.BaseURL,
		Timeout:  time.Duration(cfg.SMS.TimeoutSeconds) * time.Second,
	}
	switch strings.ToLower(strings.TrimSpace(cfg.SMS.Provider)) {
	case fast2sms.Name:
		return fast2sms.New(s), nil
	case textlocal.Name:
		return textlocal.New(s), nil
	case logsms.Name, "":
		return logsms.New(), nil
	default:
		return nil, fmt.Errorf("unsupported sms provider %q", cfg.SMS.Provider)
	}
}

func newEmailSender(cfg *config.Config) (email.Sender, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Email.Backend)) {
	case "smtp":
		if cfg.Email.Host == "" || cfg.Email.From == "" {
			return nil, fmt.Errorf("smtp email backend needs host and from")
		}
		return email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
		}), nil
	case "log", "":
		return email.NewLogSender(), nil
	default:
		return nil, fmt.Errorf("unsupported email backend %q", cfg.Email.Backend)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

type compatSeeder interface {
	SeedCompatibility(ctx context.Context, donor, recipient models.BloodGroup, compatible bool) error
}

// seedCompatibility loads the ABO/Rh table; existing rows are left as they are.
func seedCompatibility(ctx context.Context, st compatSeeder) error {
	for _, r := range compat.DefaultRules() {
		if err := st.SeedCompatibility(ctx, r.Donor, r.Recipient, r.Compatible); err != nil {
			return fmt.Errorf("seed compatibility %s->%s: %w", r.Donor, r.Recipient, err)
		}
	}
	return nil
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgsos.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgsos.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		slog.Warn("postgres not ready, retrying", "err", lastErr)
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *sosAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	for _, c := range a.closers {
		c()
	}
}

func (a *sosAPIApp) Run() error {
	return runSOSAPI(a.ctx, a.opts, a.api)
}
