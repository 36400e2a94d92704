package osutil

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func waitClosed[T any](t testing.TB, ch <-chan T, what string) {
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("%s was not closed", what)
	}
}

func noExit(t testing.TB) func(int) {
	return func(code int) {
		t.Errorf("unexpected exit %d", code)
	}
}

func TestWatchSignalsCancelsOnSignal(t *testing.T) {
	sigs := make(chan os.Signal, 2)
	received := make(chan os.Signal, 1)
	ctx, cancel, done := watchSignals(context.Background(), sigs, func(sig os.Signal) {
		received <- sig
	}, noExit(t))

	sigs <- syscall.SIGTERM
	waitClosed(t, ctx.Done(), "context")
	require.Equal(t, syscall.SIGTERM, <-received)

	// the watcher keeps waiting for a second signal until cancel is called
	select {
	case <-done:
		t.Fatal("watcher stopped before cancel")
	default:
	}
	cancel()
	waitClosed(t, done, "watcher")
}

func TestWatchSignalsSecondSignalExits(t *testing.T) {
	sigs := make(chan os.Signal, 2)
	exited := make(chan int, 1)
	_, cancel, done := watchSignals(context.Background(), sigs, nil, func(code int) {
		exited <- code
	})
	defer cancel()

	sigs <- syscall.SIGINT
	sigs <- syscall.SIGINT
	waitClosed(t, done, "watcher")
	require.Equal(t, 130, <-exited)
}

func TestWatchSignalsCancelWithoutSignal(t *testing.T) {
	sigs := make(chan os.Signal, 2)
	ctx, cancel, done := watchSignals(context.Background(), sigs, nil, noExit(t))

	cancel()
	cancel()
	waitClosed(t, done, "watcher")
	require.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestSignalContext(t *testing.T) {
	received := make(chan os.Signal, 1)
	ctx, cancel := SignalContext(context.Background(), func(sig os.Signal) {
		received <- sig
	})
	defer cancel()

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))
	waitClosed(t, ctx.Done(), "context")
	require.Equal(t, syscall.SIGTERM, <-received)
}
