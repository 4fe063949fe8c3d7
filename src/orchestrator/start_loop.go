package orchestrator

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"

	"intradaybot/src/model"
)

// StartLoop schedules 5m and 15m cycles plus the flatten guard until ctx is
// cancelled. Cycles are skipped outside the regular session and after the
// flatten deadline.
func (o *Orchestrator) StartLoop(ctx context.Context) error {
	every5m := o.cfg.Interval5m
	if every5m <= 0 {
		every5m = 5 * time.Minute
	}
	every15m := o.cfg.Interval15m
	if every15m <= 0 {
		every15m = 15 * time.Minute
	}
	flattenEvery := o.cfg.FlattenCheckEvery
	if flattenEvery <= 0 {
		flattenEvery = 30 * time.Second
	}

	ticker5m := time.NewTicker(every5m)
	defer ticker5m.Stop()
	ticker15m := time.NewTicker(every15m)
	defer ticker15m.Stop()
	flattenTicker := time.NewTicker(flattenEvery)
	defer flattenTicker.Stop()

	o.log.WithFields(logger.Fields{
		"every_5m":      every5m.String(),
		"every_15m":     every15m.String(),
		"flatten_check": flattenEvery.String(),
	}).Info("loop started")

	for {
		select {
		case <-ctx.Done():
			o.log.Info("loop stopped")
			return nil

		case <-ticker5m.C:
			o.tick(ctx, model.Timeframe5m)

		case <-ticker15m.C:
			o.tick(ctx, model.Timeframe15m)

		case <-flattenTicker.C:
			if _, err := o.FlattenGuard(ctx); err != nil {
				o.log.WithError(err).Error("flatten guard failed")
			}
		}
	}
}

func (o *Orchestrator) tick(ctx context.Context, timeframe string) {
	now := o.now()
	log := o.log.WithField("timeframe", timeframe)
	if !o.deps.Clock.IsMarketOpen(now) {
		log.WithField("session", o.deps.Clock.Session(now)).Debug("market closed, skipping")
		return
	}
	if o.deps.Clock.ShouldFlatten(now) {
		log.Debug("past flatten time, skipping")
		return
	}
	log.Info("loop tick")
	if _, err := o.RunCycle(ctx, timeframe); err != nil {
		log.WithError(err).Error("cycle failed, will retry on next tick")
	}
}
