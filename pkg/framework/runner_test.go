package framework

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunnerStopsAllOnFirstExit(t *testing.T) {
	failure := errors.New("port closed")
	r := NewRunner()
	r.Go(
		NamedRun("waiter", RunFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})),
		RunFunc(func(ctx context.Context) error {
			return failure
		}),
	)
	err := r.Wait()
	require.Error(t, err)
	aggr, ok := err.(*AggregatedError)
	require.True(t, ok)
	require.Equal(t, []error{failure}, aggr.Errors)
}

func TestRunnerNoErrors(t *testing.T) {
	r := NewRunner()
	r.Go(RunFunc(func(ctx context.Context) error { return nil }))
	require.NoError(t, r.Wait())
}

type closeFunc func() error

func (f closeFunc) Close() error { return f() }

func TestRunWithContextCloser(t *testing.T) {
	unblock := make(chan struct{})
	closed := 0
	closer := closeFunc(func() error {
		closed++
		close(unblock)
		return nil
	})
	ctx, cancel := context.WithCancel(context.TODO())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := RunWithContextCloser(ctx, closer, func() error {
		<-unblock
		return io.EOF
	})
	require.Equal(t, context.Canceled, err)
	require.Equal(t, 1, closed)
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil).Aggregate())
	errs.Add(errors.New("a"))
	require.EqualError(t, errs.Aggregate(), "a")
	errs.Add(nil, errors.New("b"))
	require.EqualError(t, errs.Aggregate(), "multiple errors: a; b")
}
