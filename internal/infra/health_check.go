package infra

import (
	"context"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	checkExecInterval = 5 * time.Second
)

// MonitorExecutable signals once the running binary is replaced on disk, so a supervisor can restart it.
func MonitorExecutable(ctx context.Context) <-chan struct{} {
	return monitorFile(ctx, "", checkExecInterval)
}

func monitorFile(ctx context.Context, filename string, interval time.Duration) <-chan struct{} {
	ch := make(chan struct{})
	if filename == "" {
		exe, err := os.Executable()
		if err != nil {
			log.WithError(err).Warn("cant resolve executable path for monitor")
			close(ch)
			return ch
		}
		filename = exe
	}
	entry := log.WithField("file", filename)
	stat, err := os.Stat(filename)
	if err != nil {
		entry.WithError(err).Warn("cant stat file for monitor")
		close(ch)
		return ch
	}
	originalTime := stat.ModTime()

	go func() {
		defer close(ch)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stat, err := os.Stat(filename)
				if err != nil {
					entry.WithError(err).Warn("cant stat file for monitor tick")
					continue
				}
				if !originalTime.Equal(stat.ModTime()) {
					entry.Info("file changed")
					select {
					case ch <- struct{}{}:
					case <-ctx.Done():
					}
					return
				}
			}
		}
	}()
	return ch
}
