package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"intradaybot/src/handler"
	"intradaybot/src/metrics"
	"intradaybot/src/orchestrator"
	"intradaybot/src/server"
)

type Daemon struct{}

// Start schedules cycles and the flatten guard until SIGINT or SIGTERM. The
// status server runs alongside when SERVER_PORT is set.
func (d *Daemon) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()
	o, _, err := orchestrator.Boot(ctx, reg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to start daemon")
		return err
	}
	defer o.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return o.StartLoop(gctx) })

	if cfg := server.GetConfig(); cfg.Port != "" {
		srv := server.New(o.Book(), o, reg.Handler(), nil).
			Handle("/orders", handler.DefaultSearchOrdersHandler()).
			Handle("/journal", handler.DefaultJournalHandler())
		g.Go(func() error { return srv.Start(gctx, cfg.Port, cfg.ShutdownTimeout) })
	} else {
		logrus.Info("SERVER_PORT not set, status server disabled")
	}

	if err := g.Wait(); err != nil {
		logrus.WithError(err).Error("daemon stopped with error")
		return err
	}
	logrus.Info("daemon stopped")
	return nil
}
