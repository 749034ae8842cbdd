package main

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pasabuy/pasabuy-backend/pkg/logger"
)

type runnerFunc func(context.Context) error

func (f runnerFunc) Run(ctx context.Context) error { return f(ctx) }

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "worker-test", Output: io.Discard})
}

func blockingRunner(started *atomic.Int32) runner {
	return runnerFunc(func(ctx context.Context) error {
		started.Add(1)
		<-ctx.Done()
		return ctx.Err()
	})
}

func TestNewServiceRequiresConsumers(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: testLogger()})
	assert.Error(t, err)

	_, err = NewService(ServiceParams{Logger: testLogger(), Consumers: map[string]runner{"x": nil}})
	assert.Error(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	var started atomic.Int32
	svc, err := NewService(ServiceParams{
		Logger: testLogger(),
		Consumers: map[string]runner{
			"request-notifications": blockingRunner(&started),
			"chat-notifications":    blockingRunner(&started),
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool { return started.Load() == 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestRunReturnsConsumerFailure(t *testing.T) {
	var started atomic.Int32
	boom := errors.New("subscription deleted")
	svc, err := NewService(ServiceParams{
		Logger: testLogger(),
		Consumers: map[string]runner{
			"request-notifications": runnerFunc(func(context.Context) error { return boom }),
			"chat-notifications":    blockingRunner(&started),
		},
	})
	require.NoError(t, err)

	err = svc.Run(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestRunFailsWhenDependencyDown(t *testing.T) {
	called := false
	svc, err := NewService(ServiceParams{
		Logger: testLogger(),
		Dependencies: map[string]pinger{
			"redis": pingerFunc(func(context.Context) error { return errors.New("connection refused") }),
		},
		Consumers: map[string]runner{
			"request-notifications": runnerFunc(func(context.Context) error { called = true; return nil }),
		},
	})
	require.NoError(t, err)

	err = svc.Run(context.Background())
	assert.ErrorContains(t, err, "redis ping failed")
	assert.False(t, called)
}
