package osutil

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// SignalContext returns a context that is cancelled on the first Ctrl+C or
// SIGTERM. onSignal, if not nil, is called once with the signal received
// before the context is cancelled. A second signal exits the process until
// the returned CancelFunc is called, which also stops listening for signals.
func SignalContext(parent context.Context, onSignal func(os.Signal)) (context.Context, context.CancelFunc) {
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel, done := watchSignals(parent, sigs, onSignal, os.Exit)
	go func() {
		<-done
		signal.Stop(sigs)
	}()
	return ctx, cancel
}

// watchSignals is SignalContext without the process wide signal handling,
// done is closed once it no longer reads from sigs.
func watchSignals(
	parent context.Context,
	sigs <-chan os.Signal,
	onSignal func(os.Signal),
	exit func(code int),
) (context.Context, context.CancelFunc, <-chan struct{}) {
	ctx, cancelCtx := context.WithCancel(parent)
	stop := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() { close(stop) })
		cancelCtx()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case sig := <-sigs:
			if onSignal != nil {
				onSignal(sig)
			}
			cancelCtx()
		case <-ctx.Done():
			return
		}
		select {
		case <-sigs:
			exit(130)
		case <-stop:
		case <-parent.Done():
		}
	}()

	return ctx, cancel, done
}
