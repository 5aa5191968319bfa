package main

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAwaitExit_ServeReturnsFirstOnCleanShutdown(t *testing.T) {
	wait := make(chan int, 1)
	errCh := make(chan error, 1)
	errCh <- nil

	go func() {
		// Shutdown is still draining sessions when Serve has already returned.
		time.Sleep(20 * time.Millisecond)
		wait <- 0
	}()

	aborted := false
	code := awaitExit(discardLogger(), wait, errCh, func() {}, func() { aborted = true })
	assert.Equal(t, 0, code)
	assert.False(t, aborted)
}

func TestAwaitExit_SignalFirst(t *testing.T) {
	wait := make(chan int, 1)
	errCh := make(chan error, 1)
	wait <- 0

	stopped := false
	code := awaitExit(discardLogger(), wait, errCh, func() {
		stopped = true
		errCh <- nil
	}, func() { t.Fatal("abort on clean shutdown") })
	assert.Equal(t, 0, code)
	assert.True(t, stopped)
}

func TestAwaitExit_ServeFailure(t *testing.T) {
	wait := make(chan int)
	errCh := make(chan error, 1)
	errCh <- errors.New("metrics server: address in use")

	aborted := false
	code := awaitExit(discardLogger(), wait, errCh, func() {}, func() { aborted = true })
	assert.Equal(t, 1, code)
	assert.True(t, aborted)
}
