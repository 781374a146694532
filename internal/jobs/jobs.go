// Package jobs runs the periodic maintenance tasks of the store.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	RecommendationsSpec = "@hourly"
	PruneSessionsSpec   = "@every 15m"

	jobTimeout = 2 * time.Minute
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

type Log interface {
	Info(string, ...zap.Field)
	Error(string, ...zap.Field)
}

// Maintainer is the part of the service layer the scheduler drives.
type Maintainer interface {
	RefreshRecommendations(ctx context.Context) error
	PruneSessions() int
}

type Scheduler struct {
	ctx   context.Context
	sched *cron.Cron
	store Maintainer
	log   Log
}

// NewScheduler registers the jobs; they run once Start is called.
func NewScheduler(ctx context.Context, store Maintainer, log Log) (*Scheduler, error) {
	s := &Scheduler{
		ctx:   ctx,
		sched: cron.New(cron.WithParser(cronParser), cron.WithChain(cron.Recover(cronLogger{log}))),
		store: store,
		log:   log,
	}

	if _, err := s.sched.AddFunc(RecommendationsSpec, s.RefreshRecommendations); err != nil {
		return nil, fmt.Errorf("schedule recommendations: %w", err)
	}
	if _, err := s.sched.AddFunc(PruneSessionsSpec, s.PruneSessions); err != nil {
		return nil, fmt.Errorf("schedule session pruning: %w", err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.sched.Start()
	s.log.Info("Scheduler started", zap.Int("jobs", len(s.sched.Entries())))
}

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.sched.Stop().Done():
	case <-ctx.Done():
		s.log.Error("Scheduler did not stop in time", zap.Error(ctx.Err()))
	}
}

func (s *Scheduler) RefreshRecommendations() {
	ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
	defer cancel()

	if err := s.store.RefreshRecommendations(ctx); err != nil {
		s.log.Error("Recommendations job failed", zap.Error(err))
	}
}

func (s *Scheduler) PruneSessions() {
	if n := s.store.PruneSessions(); n > 0 {
		s.log.Info("Pruned revoked sessions", zap.Int("count", n))
	}
}

// cronLogger adapts Log to cron.Logger.
type cronLogger struct {
	log Log
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Info(msg, zap.Any("details", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, zap.Error(err), zap.Any("details", keysAndValues))
}
