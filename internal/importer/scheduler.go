package importer

import (
	"context"
	"fmt"
	"go-pages-app/internal/logger"

	"github.com/robfig/cron/v3"
)

// Scheduler runs background jobs on cron schedules.
type Scheduler struct {
	cron *cron.Cron
	log  logger.Logger

	// ctx is handed to every job and cancelled by Stop.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a Scheduler. Overlapping runs of the same job are skipped.
func NewScheduler(log logger.Logger) *Scheduler {
	cl := cronLogger{log: log}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		ctx:    ctx,
		cancel: cancel,
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log: log,
	}
}

// AddImport schedules imp using a standard cron spec or a descriptor such as "@daily".
func (s *Scheduler) AddImport(spec string, imp *Importer) error {
	return s.AddJob(spec, "import", func(ctx context.Context) error {
		_, err := imp.Run(ctx)
		return err
	})
}

// AddJob schedules fn under name.
func (s *Scheduler) AddJob(spec, name string, fn func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		log := s.log.With(map[string]interface{}{"job": name})
		log.Debug("Job started")
		if err := fn(s.ctx); err != nil {
			log.Error(err, "Job failed")
			return
		}
		log.Debug("Job finished")
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", spec, name, err)
	}
	return nil
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling, cancels the context of running jobs and waits for them
// to return, or until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("Scheduler stopped before running jobs finished")
	}
}

// cronLogger adapts logger.Logger to cron.Logger.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.With(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.With(fields(keysAndValues)).Error(err, msg)
}

func fields(kv []interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return m
}
