package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/madhatter5501/StudyHub"
	"github.com/madhatter5501/StudyHub/internal/logfields"
	"github.com/madhatter5501/StudyHub/internal/metrics"
	"github.com/madhatter5501/StudyHub/internal/notify"
	"github.com/madhatter5501/StudyHub/internal/quote"
	"github.com/madhatter5501/StudyHub/internal/scheduler"
	"github.com/madhatter5501/StudyHub/internal/watch"
	"github.com/madhatter5501/StudyHub/internal/web"
)

// ServeCmd runs the dashboard.
type ServeCmd struct {
	Addr string `short:"a" help:"Listen address (overrides server.addr)"`
}

func (c *ServeCmd) Run(g *Global) error {
	cfg := g.Config
	logger := g.Logger
	if c.Addr != "" {
		cfg.Server.Addr = c.Addr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Metrics
	var recorder metrics.Recorder = metrics.NoopRecorder{}
	var promRecorder *metrics.PrometheusRecorder
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		promRecorder = metrics.NewPrometheusRecorder(reg)
		recorder = promRecorder
	}

	// Notifications
	notifiers := notify.Multi{notify.LogNotifier{Logger: logger}}
	if cfg.Notify.Enabled {
		nc, err := notify.ConnectNATS(cfg.Notify.NATSURL, cfg.Notify.SubjectPrefix)
		if err != nil {
			return err
		}
		defer func() {
			if err := nc.Close(); err != nil {
				logger.Warn("Failed to drain NATS connection", logfields.Error(err))
			}
		}()
		notifiers = append(notifiers, nc)
		logger.Info("Publishing events to NATS", "url", cfg.Notify.NATSURL, "prefix", cfg.Notify.SubjectPrefix)
	}

	quotes := quote.NewClient(cfg.Quote.URL, cfg.Quote.Timeout, cfg.Quote.Fallback, logger)

	app, st, err := openApp(g,
		studyhub.WithRecorder(recorder),
		studyhub.WithNotifier(notifiers),
		studyhub.WithQuotes(quotes))
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("Failed to close storage", logfields.Error(err))
		}
	}()

	view, err := app.Start(ctx)
	if err != nil {
		return fmt.Errorf("failed to load streak: %w", err)
	}

	// Background jobs
	sched, err := scheduler.New(
		scheduler.WithLocation(app.Location()),
		scheduler.WithLogger(logger),
		scheduler.WithRecorder(recorder))
	if err != nil {
		return err
	}
	jobs, err := studyhub.NewBackgroundJobManager(app, sched)
	if err != nil {
		return err
	}
	jobs.Start()
	defer func() {
		if err := jobs.Stop(); err != nil {
			logger.Warn("Failed to stop background jobs", logfields.Error(err))
		}
	}()

	// Pick up edits made to the data file by other processes.
	if st.state != nil && cfg.Storage.Watch {
		watcher, err := watch.New(st.state.Path(), func(ctx context.Context) {
			changed, err := st.state.Reload()
			if err != nil {
				logger.Warn("Failed to reload data file", logfields.Path(st.state.Path()), logfields.Error(err))
				return
			}
			if !changed {
				return
			}
			logger.Info("Data file changed on disk, reloaded", logfields.Path(st.state.Path()))
			if _, err := app.Reconcile(ctx); err != nil {
				logger.Warn("Failed to reconcile streak after reload", logfields.Error(err))
			}
			app.Publish(studyhub.EventStorage, nil)
		}, watch.WithLogger(logger))
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = watcher.Stop() }()
	}

	// Web server
	opts := []web.Option{web.WithRecorder(recorder), web.WithJobs(jobs)}
	if promRecorder != nil {
		opts = append(opts, web.WithMetricsHandler(cfg.Metrics.Path, promRecorder.Handler()))
	}
	server, err := web.NewServer(app, logger, opts...)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.Server.Addr, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
	}()

	fmt.Fprintf(g.Out, "StudyHub running at http://%s (streak: %d)\n", displayAddr(cfg.Server.Addr), view.Count)
	fmt.Fprintln(g.Out, "Press Ctrl+C to stop")

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("dashboard server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop dashboard server: %w", err)
	}

	m := app.GetMetrics()
	logger.Info("StudyHub stopped",
		"completions", m.Completions,
		"reminders_sent", m.RemindersSent,
		"uptime", time.Since(m.StartedAt).Round(time.Second).String())
	return nil
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
