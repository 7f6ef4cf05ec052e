package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/BearBump/VeinLine/config"
	"github.com/BearBump/VeinLine/internal/broker/kafka"
	"github.com/BearBump/VeinLine/internal/cache/rediscache"
	"github.com/BearBump/VeinLine/internal/integrations/email"
	"github.com/BearBump/VeinLine/internal/metrics"
	"github.com/BearBump/VeinLine/internal/services/alerts"
	"github.com/BearBump/VeinLine/internal/services/notifier"
	"github.com/BearBump/VeinLine/internal/storage/pgsos"
)

// workerStore is the slice of storage the worker reads and writes.
type workerStore interface {
	notifier.ContactProvider
	notifier.NotificationStore
	alerts.DonorReader
	Ping(ctx context.Context) error
}

type workerFactories struct {
	newStorage     func(cfg *config.Config) (store workerStore, closeFn func(), err error)
	newConsumer    func(cfg *config.Config) (consumer alerts.Consumer, closeFn func())
	newDeduper     func(cfg *config.Config) (dedup alerts.Deduper, closeFn func())
	newEmailSender func(cfg *config.Config) (email.Sender, error)
	registerer     prometheus.Registerer
	gatherer       prometheus.Gatherer
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(cfg *config.Config) (workerStore, func(), error) {
			st, err := pgsos.New(cfg.PostgresConnString())
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newConsumer: func(cfg *config.Config) (alerts.Consumer, func()) {
			group := cfg.VeinLine.KafkaConsumerGroup
			if group == "" {
				group = "notify-worker"
			}
			c := kafka.NewConsumer(cfg.KafkaBrokers(), cfg.SOSEventsTopic(), group)
			return c, func() { _ = c.Close() }
		},
		newDeduper: func(cfg *config.Config) (alerts.Deduper, func()) {
			rc := rediscache.New(cfg.RedisAddr())
			return rc, func() { _ = rc.Close() }
		},
		newEmailSender: newEmailSender,
		registerer:     prometheus.DefaultRegisterer,
		gatherer:       prometheus.DefaultGatherer,
	}
}

type workerOpts struct {
	swaggerPath string
	onListen    func(httpAddr string)
}

// RunNotifyWorker consumes SOS events and serves the ops endpoints until ctx ends or
// either side fails.
func RunNotifyWorker(ctx context.Context, cfg *config.Config, opts workerOpts, f workerFactories) error {
	mailer, err := f.newEmailSender(cfg)
	if err != nil {
		return err
	}

	store, closeStore, err := f.newStorage(cfg)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}
	consumer, closeConsumer := f.newConsumer(cfg)
	if closeConsumer != nil {
		defer closeConsumer()
	}
	dedup, closeDedup := f.newDeduper(cfg)
	if closeDedup != nil {
		defer closeDedup()
	}

	m := metrics.New(f.registerer)
	// Requesters are told over in-app and email only; SMS stays with donor alerts.
	n := notifier.New(notifier.Deps{
		Contacts: store,
		Email:    mailer,
		Store:    store,
		Metrics:  m,
	}, notifier.Config{Concurrency: cfg.VeinLine.NotifyConcurrency})

	w := alerts.New(consumer, dedup, n, store, m).
		WithDedupTTL(time.Duration(cfg.VeinLine.EventDedupTTLSeconds) * time.Second)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("kafka consumer started", "topic", cfg.SOSEventsTopic(), "group", cfg.VeinLine.KafkaConsumerGroup)
		return w.Run(gctx)
	})
	g.Go(func() error {
		return runWorkerHTTPServer(gctx, workerHTTPOpts{
			httpAddr:    cfg.VeinLine.WorkerHTTPAddr,
			swaggerPath: opts.swaggerPath,
			onListen:    opts.onListen,
			worker:      w,
			cfg:         cfg,
			ready:       store.Ping,
			gatherer:    f.gatherer,
		})
	})
	return g.Wait()
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
