package memoize_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-cache/logger"
	"github.com/saiset-co/sai-cache/memoize"
	"github.com/saiset-co/sai-cache/types"
)

func newTestMemoizer(config *types.MemoizeConfig) *memoize.Memoizer {
	return memoize.New(logger.NewZapWrapper(zap.NewNop()), config)
}

func TestMemoizerWrap(t *testing.T) {
	t.Parallel()

	t.Run("repeated call with equal args hits the cache", func(t *testing.T) {
		t.Parallel()

		memoizer := newTestMemoizer(nil)

		var calls int64
		double := memoizer.Wrap(func(ctx context.Context, args ...interface{}) (interface{}, error) {
			atomic.AddInt64(&calls, 1)
			return args[0].(int) * 2, nil
		}, nil)

		for i := 0; i < 3; i++ {
			result, err := double(context.Background(), 21)
			require.NoError(t, err)
			require.Equal(t, 42, result)
		}
		require.Equal(t, int64(1), atomic.LoadInt64(&calls))

		result, err := double(context.Background(), 7)
		require.NoError(t, err)
		require.Equal(t, 14, result)
		require.Equal(t, int64(2), atomic.LoadInt64(&calls))
	})

	t.Run("errors are never cached", func(t *testing.T) {
		t.Parallel()

		memoizer := newTestMemoizer(nil)
		errBroken := errors.New("broken")

		var calls int64
		flaky := memoizer.Wrap(func(ctx context.Context, args ...interface{}) (interface{}, error) {
			if atomic.AddInt64(&calls, 1) == 1 {
				return nil, errBroken
			}
			return "ok", nil
		}, nil)

		_, err := flaky(context.Background())
		require.ErrorIs(t, err, errBroken)

		result, err := flaky(context.Background())
		require.NoError(t, err)
		require.Equal(t, "ok", result)
		require.Equal(t, int64(2), atomic.LoadInt64(&calls))
	})

	t.Run("expired result recomputes", func(t *testing.T) {
		t.Parallel()

		memoizer := newTestMemoizer(nil)

		var calls int64
		fn := memoizer.Wrap(func(ctx context.Context, args ...interface{}) (interface{}, error) {
			return atomic.AddInt64(&calls, 1), nil
		}, &memoize.Options{TTL: 10 * time.Millisecond})

		first, err := fn(context.Background())
		require.NoError(t, err)

		time.Sleep(20 * time.Millisecond)

		second, err := fn(context.Background())
		require.NoError(t, err)
		require.NotEqual(t, first, second)
	})

	t.Run("wrapped functions do not share keys", func(t *testing.T) {
		t.Parallel()

		memoizer := newTestMemoizer(nil)

		a := memoizer.Wrap(func(ctx context.Context, args ...interface{}) (interface{}, error) {
			return "a", nil
		}, nil)
		b := memoizer.Wrap(func(ctx context.Context, args ...interface{}) (interface{}, error) {
			return "b", nil
		}, nil)

		resultA, err := a(context.Background(), 1)
		require.NoError(t, err)
		resultB, err := b(context.Background(), 1)
		require.NoError(t, err)
		require.NotEqual(t, resultA, resultB)
	})

	t.Run("key generator failure bypasses the cache", func(t *testing.T) {
		t.Parallel()

		memoizer := newTestMemoizer(nil)

		var calls int64
		fn := memoizer.Wrap(func(ctx context.Context, args ...interface{}) (interface{}, error) {
			return atomic.AddInt64(&calls, 1), nil
		}, &memoize.Options{
			KeyGenerator: func(args ...interface{}) (string, error) {
				return "", types.ErrMemoizeKeyGenFailed
			},
		})

		_, err := fn(context.Background())
		require.NoError(t, err)
		_, err = fn(context.Background())
		require.NoError(t, err)
		require.Equal(t, int64(2), atomic.LoadInt64(&calls))
		require.Equal(t, 0, memoizer.Len())
	})

	t.Run("nil function surfaces an error", func(t *testing.T) {
		t.Parallel()

		memoizer := newTestMemoizer(nil)
		fn := memoizer.Wrap(nil, nil)

		_, err := fn(context.Background())
		require.ErrorIs(t, err, types.ErrMemoizeFnIsNil)
	})
}

func TestMemoizerTrim(t *testing.T) {
	t.Parallel()

	memoizer := newTestMemoizer(&types.MemoizeConfig{MaxEntries: 10, DefaultTTL: time.Minute})

	var calls int64
	fn := memoizer.Wrap(func(ctx context.Context, args ...interface{}) (interface{}, error) {
		atomic.AddInt64(&calls, 1)
		return args[0], nil
	}, nil)

	for i := 0; i < 11; i++ {
		_, err := fn(context.Background(), fmt.Sprintf("arg-%02d", i))
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	// Overflow drops the oldest fifth in one sweep.
	require.Equal(t, 9, memoizer.Len())

	// The newest argument is still cached, the oldest is gone.
	_, err := fn(context.Background(), "arg-10")
	require.NoError(t, err)
	require.Equal(t, int64(11), atomic.LoadInt64(&calls))

	_, err = fn(context.Background(), "arg-00")
	require.NoError(t, err)
	require.Equal(t, int64(12), atomic.LoadInt64(&calls))
}

func TestMemoizerInvalidate(t *testing.T) {
	t.Parallel()

	memoizer := newTestMemoizer(nil)

	var calls int64
	fn := memoizer.Wrap(func(ctx context.Context, args ...interface{}) (interface{}, error) {
		return atomic.AddInt64(&calls, 1), nil
	}, &memoize.Options{Dependencies: []string{"cfg:a"}})

	first, err := fn(context.Background())
	require.NoError(t, err)

	require.NoError(t, memoizer.Invalidate(types.PatternSubstring("cfg:a")))
	require.Equal(t, 0, memoizer.Len())

	second, err := fn(context.Background())
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestMemoizerReset(t *testing.T) {
	t.Parallel()

	memoizer := newTestMemoizer(nil)
	fn := memoizer.Wrap(func(ctx context.Context, args ...interface{}) (interface{}, error) {
		return "v", nil
	}, nil)

	_, err := fn(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, memoizer.Len())

	memoizer.Reset()
	require.Equal(t, 0, memoizer.Len())
}
