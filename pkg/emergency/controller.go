// Package emergency provides a halt mechanism for a long-running
// sweep: an operator can stop an in-flight Runner early via SIGINT,
// SIGTERM, or a stop file. Cells already running finish and keep their
// results; cells not yet launched are skipped.
package emergency

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// HaltController watches for a sweep-abort condition and notifies
// registered callbacks exactly once.
type HaltController struct {
	stopFile       string
	stopCh         chan struct{}
	stopped        bool
	reason         string
	mutex          sync.RWMutex
	callbacks      []func(reason string)
	pollInterval   time.Duration
	signalHandlers bool
}

// Config configures a HaltController.
type Config struct {
	// StopFile is the path polled for an emergency-stop sentinel.
	StopFile string

	// PollInterval sets how often StopFile is checked.
	PollInterval time.Duration

	// EnableSignalHandlers installs SIGINT/SIGTERM handling.
	EnableSignalHandlers bool
}

// New creates a HaltController. A zero Config installs sane sweep
// defaults: poll every second, watch "./.cascade-sim-stop", and do not
// install signal handlers (the CLI entry point opts in explicitly,
// since a library caller embedding the runner may want its own).
func New(config Config) *HaltController {
	if config.StopFile == "" {
		config.StopFile = "./.cascade-sim-stop"
	}
	if config.PollInterval == 0 {
		config.PollInterval = 1 * time.Second
	}

	return &HaltController{
		stopFile:       config.StopFile,
		stopCh:         make(chan struct{}),
		pollInterval:   config.PollInterval,
		signalHandlers: config.EnableSignalHandlers,
	}
}

// Start begins watching for a stop condition until ctx is cancelled.
func (c *HaltController) Start(ctx context.Context) {
	go c.watchStopFile(ctx)
	if c.signalHandlers {
		go c.watchSignals(ctx)
	}
}

func (c *HaltController) watchStopFile(ctx context.Context) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.checkStopFile() {
				c.triggerStop("stop file detected: " + c.stopFile)
				return
			}
		}
	}
}

func (c *HaltController) watchSignals(ctx context.Context) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-ctx.Done():
		return
	case sig := <-sigCh:
		c.triggerStop(fmt.Sprintf("signal: %v", sig))
	}
}

func (c *HaltController) checkStopFile() bool {
	_, err := os.Stat(c.stopFile)
	return err == nil
}

func (c *HaltController) triggerStop(reason string) {
	c.mutex.Lock()
	if c.stopped {
		c.mutex.Unlock()
		return
	}
	c.stopped = true
	c.reason = reason
	callbacks := append([]func(string){}, c.callbacks...)
	c.mutex.Unlock()

	close(c.stopCh)
	for _, cb := range callbacks {
		cb(reason)
	}
}

// Stop manually triggers the halt, as if the stop condition had fired.
func (c *HaltController) Stop(reason string) {
	c.triggerStop(reason)
}

// Stopped reports whether the halt has been triggered.
func (c *HaltController) Stopped() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.stopped
}

// Reason returns the trigger reason, empty if not yet stopped.
func (c *HaltController) Reason() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.reason
}

// StopChannel returns a channel closed exactly once the halt triggers -
// the Runner checks it before launching each cell to decide whether to
// launch it.
func (c *HaltController) StopChannel() <-chan struct{} {
	return c.stopCh
}

// OnStop registers a callback invoked (with the trigger reason) when
// the halt fires. Callbacks registered after the halt already fired
// are never called - callers needing that guarantee should check
// Stopped() first.
func (c *HaltController) OnStop(callback func(reason string)) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.callbacks = append(c.callbacks, callback)
}

// CreateStopFile writes the stop sentinel, the operator-facing way to
// trigger a halt on a sweep running in the background.
func (c *HaltController) CreateStopFile() error {
	f, err := os.Create(c.stopFile)
	if err != nil {
		return fmt.Errorf("emergency: failed to create stop file: %w", err)
	}
	defer f.Close()
	_, err = f.WriteString(fmt.Sprintf("stop requested at %s\n", time.Now().Format(time.RFC3339)))
	if err != nil {
		return fmt.Errorf("emergency: failed to write stop file: %w", err)
	}
	return nil
}

// RemoveStopFile removes the stop sentinel, if present.
func (c *HaltController) RemoveStopFile() error {
	if err := os.Remove(c.stopFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("emergency: failed to remove stop file: %w", err)
	}
	return nil
}

// StopFilePath returns the sentinel path this controller watches.
func (c *HaltController) StopFilePath() string {
	return c.stopFile
}
