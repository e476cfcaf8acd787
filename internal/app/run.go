package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 5 * time.Second
	drainTimeout    = 30 * time.Second
)

func (a *App) runServices(ctx context.Context, deps *Dependencies) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Log.Info("starting http server",
			"host", a.Cfg.Server.Host,
			"port", a.Cfg.Server.Port)

		err := deps.HTTPServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	// Таймеры сохранены в хранилище, созревшие за время простоя сработают на первом тике
	g.Go(func() error {
		return deps.Timers.Start(gCtx)
	})

	g.Go(func() error {
		return deps.JobScheduler.Start(gCtx)
	})

	if deps.KafkaConsumer != nil {
		g.Go(func() error {
			a.Log.Info("starting kafka consumer", "topic", a.Cfg.Kafka.Topic)
			return deps.KafkaConsumer.Start(gCtx)
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.Log.Info("received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := deps.HTTPServer.Shutdown(shutdownCtx); err != nil {
			a.Log.Error("failed to shutdown http server", "error", err)
		}

		// события, принятые до остановки сервера, дообрабатываются
		if deps.LocalDispatcher != nil {
			a.waitDrained(deps)
		}

		if deps.KafkaProducer != nil {
			if err := deps.KafkaProducer.Close(); err != nil {
				a.Log.Error("failed to close kafka producer", "error", err)
			}
		}

		if err := deps.Cache.Close(); err != nil {
			a.Log.Error("failed to close cache", "error", err)
		}

		if deps.DB != nil {
			if err := deps.DB.Close(); err != nil {
				a.Log.Error("failed to close database", "error", err)
			}
		}

		a.Log.Info("application shutdown completed")
		return nil
	})

	if err := g.Wait(); err != nil {
		a.Log.Error("application error", "error", err)
		return err
	}

	return nil
}

func (a *App) waitDrained(deps *Dependencies) {
	done := make(chan struct{})
	go func() {
		deps.LocalDispatcher.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.Log.Info("inbound event queues drained")
	case <-time.After(drainTimeout):
		a.Log.Warn("inbound event queues not drained before timeout", "timeout", drainTimeout)
	}
}
