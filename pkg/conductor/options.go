package conductor

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dogecoinfoundation/paygate/pkg/logger"
)

// Sets the time allowed for a service to start before timing out
func StartupTimeout(d time.Duration) func(*Conductor) {
	return func(c *Conductor) {
		c.startTimeout = d
	}
}

// Sets the time allowed for each service to stop before timing out
func ShutdownTimeout(d time.Duration) func(*Conductor) {
	return func(c *Conductor) {
		c.stopTimeout = d
	}
}

// tells the Conductor to log start/stop progress
func Noisy() func(*Conductor) {
	return func(c *Conductor) {
		c.noisy = true
	}
}

func WithLogger(l logger.Logger) func(*Conductor) {
	return func(c *Conductor) {
		c.log = l
	}
}

// This hooks SIGTERM and SIGINT and will shut down the Conductor
// if one is detected.
func HookSignals() func(*Conductor) {
	return func(c *Conductor) {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		go func() {
			defer signal.Stop(sigCh)
			select {
			case sig := <-sigCh: // sigterm/sigint caught
				c.log.Info("caught signal, shutting down", map[string]any{"signal": sig.String()})
				c.Stop()
			case <-c.shutdown: // service is closing down..
			}
		}()
	}
}
