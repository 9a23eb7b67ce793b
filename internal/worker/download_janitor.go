// Package worker runs the background jobs of the API server.
package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/earnings-tracker/internal/logging"
)

// ExpiryRegistry lists and forgets published shortcut files
type ExpiryRegistry interface {
	Expired(ctx context.Context, now time.Time) ([]string, error)
	Remove(ctx context.Context, fileNames ...string) error
}

// DownloadJanitor deletes published shortcut files once their download window closes
type DownloadJanitor struct {
	registry ExpiryRegistry
	dir      string
	interval time.Duration
	logger   *logging.Logger
	now      func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// DownloadJanitorConfig holds configuration for the janitor
type DownloadJanitorConfig struct {
	Registry ExpiryRegistry
	Dir      string
	Interval time.Duration
	Logger   *logging.Logger
}

// NewDownloadJanitor creates a janitor
func NewDownloadJanitor(cfg *DownloadJanitorConfig) (*DownloadJanitor, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if cfg.Dir == "" {
		return nil, errors.New("directory is required")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %s", cfg.Interval)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &DownloadJanitor{
		registry: cfg.Registry,
		dir:      cfg.Dir,
		interval: cfg.Interval,
		logger:   logger.WithComponent("download_janitor"),
		now:      time.Now,
	}, nil
}

// Start launches the sweep loop
func (j *DownloadJanitor) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return errors.New("download janitor is already running")
	}
	j.running = true
	j.stopCh = make(chan struct{})
	j.doneCh = make(chan struct{})

	j.logger.WithField("interval", j.interval.String()).Info("Starting download janitor")
	go j.loop(ctx, j.stopCh, j.doneCh)
	return nil
}

// Stop signals the loop and waits for it to exit
func (j *DownloadJanitor) Stop(ctx context.Context) error {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return errors.New("download janitor is not running")
	}
	stopCh, doneCh := j.stopCh, j.doneCh
	j.running = false
	j.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		j.logger.Info("Download janitor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *DownloadJanitor) loop(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			removed, err := j.Sweep(ctx)
			if err != nil {
				// keep sweeping, the registry may come back
				j.logger.WithError(err).Warn("Download sweep failed")
				continue
			}
			if removed > 0 {
				j.logger.WithField("removed", removed).Info("Expired shortcut downloads removed")
			}
		}
	}
}

// Sweep deletes every expired file and returns how many registry entries were cleared.
// Files already gone are forgotten without error.
func (j *DownloadJanitor) Sweep(ctx context.Context) (int, error) {
	expired, err := j.registry.Expired(ctx, j.now())
	if err != nil {
		return 0, err
	}

	var cleared []string
	for _, name := range expired {
		p := filepath.Join(j.dir, filepath.Base(name))
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			j.logger.WithError(err).WithField(logging.FieldFileName, name).Warn("Failed to delete expired shortcut")
			continue
		}
		cleared = append(cleared, name)
	}

	if err := j.registry.Remove(ctx, cleared...); err != nil {
		return 0, err
	}
	return len(cleared), nil
}
