package main

import (
	"context"
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAwaitShutdown_RunsEveryStepBeforeDone(t *testing.T) {
	sig := make(chan os.Signal, 1)
	var order []string
	step := func(name string, err error) shutdownStep {
		return shutdownStep{name, func(ctx context.Context) error {
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			order = append(order, name)
			return err
		}}
	}

	done := awaitShutdown(sig, time.Second,
		step("server", nil),
		step("resources", errors.New("redis close failed")),
		step("tracing", nil),
	)

	select {
	case <-done:
		t.Fatal("shutdown finished before a signal arrived")
	case <-time.After(20 * time.Millisecond):
	}

	sig <- syscall.SIGTERM
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("shutdown did not finish")
	}

	// A failing step does not stop the ones after it.
	assert.Equal(t, []string{"server", "resources", "tracing"}, order)
}
