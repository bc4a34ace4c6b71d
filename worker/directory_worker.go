package worker

import (
	"context"
	"time"

	"launchpad/models"
	"launchpad/utils"

	"github.com/sirupsen/logrus"
)

// Refresher reloads a cached profile snapshot.
type Refresher interface {
	Refresh(ctx context.Context) ([]models.Profile, error)
}

// DirectoryWorker keeps the actor directory warm so name lookups from
// commands rarely pay for a reload.
type DirectoryWorker struct {
	Directory Refresher
	Logger    *logrus.Entry
	Interval  time.Duration
}

func NewDirectoryWorker(dir Refresher, logger *logrus.Entry, interval time.Duration) *DirectoryWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &DirectoryWorker{
		Directory: dir,
		Logger:    logger,
		Interval:  interval,
	}
}

// Start blocks until ctx is cancelled.
func (dw *DirectoryWorker) Start(ctx context.Context) {
	dw.Logger.WithField("interval", dw.Interval).Info("Directory worker started")
	dw.refresh(ctx)

	ticker := time.NewTicker(dw.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			dw.Logger.Info("Directory worker shutting down")
			return
		case <-ticker.C:
			dw.refresh(ctx)
		}
	}
}

func (dw *DirectoryWorker) refresh(ctx context.Context) {
	profiles, err := dw.Directory.Refresh(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		utils.LogError("directory_refresh_failed", err, nil)
		return
	}
	dw.Logger.WithField("profiles", len(profiles)).Debug("Directory refreshed")
}
