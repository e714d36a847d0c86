package shutdown

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"go_inpaint/logging"
)

// NotifyContext returns a context cancelled by the first SIGINT or SIGTERM.
// A second signal calls onForce, which defaults to os.Exit(1). The returned
// stop function releases the signal handler.
func NotifyContext(parent context.Context, logger *logging.Logger, onForce func()) (context.Context, context.CancelFunc) {
	logger = logging.OrNop(logger)
	if onForce == nil {
		onForce = func() { os.Exit(1) }
	}

	ctx, cancel := context.WithCancel(parent)
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	stopped := make(chan struct{})
	go func() {
		count := 0
		for {
			select {
			case sig := <-sigs:
				count++
				if count == 1 {
					logger.Info("received signal, cancelling", zap.String("signal", sig.String()))
					cancel()
					continue
				}
				logger.Warn("second signal, forcing exit")
				onForce()
			case <-stopped:
				return
			}
		}
	}()

	var once bool
	stop := func() {
		if once {
			return
		}
		once = true
		signal.Stop(sigs)
		close(stopped)
		cancel()
	}
	return ctx, stop
}
