package backend

import (
	"context"

	"github.com/saiset-co/sai-cache/types"
)

var customBackendCreators = make(map[string]types.BackendCreator)

// Register installs a custom storage backend under the given name so
// tier configs can reference it.
func Register(backendName string, creator types.BackendCreator) {
	customBackendCreators[backendName] = creator
}

func New(ctx context.Context, backendName string, config interface{}, logger types.Logger) (types.StorageBackend, error) {
	switch backendName {
	case "", "memory":
		return NewMemoryBackend(), nil
	case "redis":
		return NewRedisBackend(ctx, config, logger)
	case "clover":
		return NewCloverBackend(ctx, config, logger)
	default:
		if creator, exists := customBackendCreators[backendName]; exists {
			return creator(config)
		}
		return nil, types.Errorf(types.ErrBackendUnknown, "backend: %s", backendName)
	}
}
