package app

import (
	"fmt"
	"io/fs"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"jsacademy/backend/internal/logging"
	"jsacademy/backend/internal/playground"
)

// cronLogger adapts the process logger to cron.Logger.
type cronLogger struct {
	entry *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(kvFields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.entry.WithError(err).WithFields(kvFields(keysAndValues)).Error(msg)
}

func kvFields(kv []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}

// newScheduler registers the background jobs: content reload on CONTENT_RELOAD_SCHEDULE, rate limiter
// pruning and, for the in-memory share store, expired snippet pruning. Jobs start with Run.
func (a *App) newScheduler() (*cron.Cron, error) {
	logger := cronLogger{entry: logging.Logger().WithField("component", "scheduler")}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))

	if spec := a.cfg.ContentReloadSchedule; spec != "" {
		if _, err := c.AddFunc(spec, a.ReloadContent); err != nil {
			return nil, fmt.Errorf("app: CONTENT_RELOAD_SCHEDULE %q: %w", spec, err)
		}
	}
	if _, err := c.AddFunc("@every 1m", a.pruneLimiters); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	if mem, ok := a.shares.(*playground.MemoryShareStore); ok {
		if _, err := c.AddFunc("@every 5m", func() { a.pruneShares(mem) }); err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
	}
	return c, nil
}

// ReloadContent reloads lessons and challenges from the source root. A failed reload keeps the current
// catalogs.
func (a *App) ReloadContent() {
	log := logging.Logger().WithField("component", "content")
	contentFS, err := fs.Sub(a.root, ContentDir)
	if err == nil {
		err = a.lessons.Reload(contentFS)
	}
	if err == nil {
		err = a.challenges.Reload(contentFS)
	}
	a.metrics.ContentReloaded(err)
	if err != nil {
		log.WithError(err).Warn("content reload failed; keeping current catalog")
		return
	}
	log.WithField("paths", len(a.lessons.Catalog().Paths)).Debug("content reloaded")
}

func (a *App) pruneLimiters() {
	if n := a.limiter.Prune(limiterIdle); n > 0 {
		logging.Logger().WithField("removed", n).Debug("pruned idle rate limiters")
	}
}

func (a *App) pruneShares(mem *playground.MemoryShareStore) {
	if n := mem.Prune(); n > 0 {
		logging.Logger().WithField("removed", n).Debug("pruned expired snippets")
	}
}
