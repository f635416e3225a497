package types

import (
	"errors"
	"fmt"
)

var (
	ErrConfigNotFound       = errors.New("config not found")
	ErrConfigInvalidPath    = errors.New("config invalid path")
	ErrConfigParseFailed    = errors.New("config parse failed")
	ErrConfigIsNil          = errors.New("config is nil")
	ErrConfigLoadFailed     = errors.New("config load failed")
	ErrConfigValidateFailed = errors.New("config validate failed")
)

var (
	ErrCacheKeyEmpty        = errors.New("cache key empty")
	ErrCapacityExceeded     = errors.New("entry exceeds tier capacity")
	ErrTierUnknown          = errors.New("tier unknown")
	ErrTierDisabled         = errors.New("tier disabled")
	ErrNoTierEnabled        = errors.New("no tier enabled")
	ErrPolicyUnknown        = errors.New("eviction policy unknown")
	ErrWarmingDisabled      = errors.New("cache warming is disabled")
	ErrWarmingProviderIsNil = errors.New("warming provider is nil")
)

var (
	ErrBackendUnknown          = errors.New("storage backend unknown")
	ErrBackendConnectionFailed = errors.New("storage backend connection failed")
	ErrBackendClosed           = errors.New("storage backend closed")
	ErrBackendEntryCorrupt     = errors.New("storage backend entry corrupt")
)

var (
	ErrEngineNotRunning     = errors.New("cache engine not running")
	ErrEngineAlreadyRunning = errors.New("cache engine already running")
	ErrSweepScheduleInvalid = errors.New("sweep schedule invalid")
)

var (
	ErrMemoizeFnIsNil      = errors.New("memoized function is nil")
	ErrMemoizeKeyGenFailed = errors.New("memoize key generation failed")
)

var (
	ErrLogFileIsEmpty     = errors.New("log file is empty")
	ErrLogFileWrongFormat = errors.New("log file wrong format")
	ErrLoggerTypeUnknown  = errors.New("logger type unknown")
)

func Errorf(baseErr error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", baseErr, fmt.Sprintf(format, args...))
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func IsError(err, target error) bool {
	return errors.Is(err, target)
}
