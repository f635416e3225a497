package config

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/saiset-co/sai-cache/types"
)

// ConfigurationManager owns the current configuration and notifies
// bound invalidators when a value changes, so cache entries tagged
// with "config:<path>" are dropped before the next read.
type ConfigurationManager struct {
	ctx          context.Context
	cancel       context.CancelFunc
	logger       types.Logger
	configPath   string
	loader       *Loader
	config       atomic.Pointer[types.Config]
	rawData      atomic.Pointer[map[string]interface{}]
	parser       atomic.Pointer[Parser]
	invalidators []types.Invalidator
	mu           sync.RWMutex
	loadTimeout  time.Duration
}

func NewConfigurationManager(ctx context.Context, logger types.Logger, configPath string) (*ConfigurationManager, error) {
	managerCtx, cancel := context.WithCancel(ctx)

	cm := &ConfigurationManager{
		ctx:         managerCtx,
		cancel:      cancel,
		logger:      logger,
		configPath:  configPath,
		loader:      NewLoader(),
		loadTimeout: 30 * time.Second,
	}

	if err := cm.Load(); err != nil {
		cancel()
		return nil, types.WrapError(err, "failed to load initial configuration")
	}

	return cm, nil
}

func (cm *ConfigurationManager) Load() error {
	loadCtx, cancel := context.WithTimeout(cm.ctx, cm.loadTimeout)
	defer cancel()

	config, rawData, err := cm.loader.LoadFromFile(loadCtx, cm.configPath)
	if err != nil {
		return types.WrapError(err, "failed to load configuration from file")
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.config.Store(config)
	cm.rawData.Store(&rawData)
	cm.parser.Store(NewParser(rawData))

	return nil
}

func (cm *ConfigurationManager) GetConfig() *types.Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	return cm.config.Load()
}

func (cm *ConfigurationManager) GetValue(path string, defaultValue interface{}) interface{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	parser := cm.parser.Load()
	if parser == nil {
		return defaultValue
	}
	return parser.GetValue(path, defaultValue)
}

func (cm *ConfigurationManager) GetAs(path string, target interface{}) error {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	parser := cm.parser.Load()
	if parser == nil {
		return types.ErrConfigIsNil
	}
	return parser.GetAs(path, target)
}

// Bind registers a cache to invalidate on value changes. Binding is
// expected at wiring time, before concurrent Set calls begin.
func (cm *ConfigurationManager) Bind(invalidator types.Invalidator) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.invalidators = append(cm.invalidators, invalidator)
}

// Set updates a value at a dotted path. When the stored value actually
// changes, every bound cache drops the entries tagged with the
// "config:<path>" dependency before Set returns.
func (cm *ConfigurationManager) Set(path string, value interface{}) error {
	cm.mu.Lock()

	parser := cm.parser.Load()
	if parser == nil {
		cm.mu.Unlock()
		return types.ErrConfigIsNil
	}

	previous := parser.GetValue(path, nil)
	if reflect.DeepEqual(previous, value) {
		cm.mu.Unlock()
		return nil
	}

	raw := cm.rawData.Load()
	var tree map[string]interface{}
	if raw != nil {
		tree = copyTree(*raw)
	} else {
		tree = make(map[string]interface{})
	}

	if err := setPath(tree, path, value); err != nil {
		cm.mu.Unlock()
		return err
	}

	config, err := cm.rebuild(tree)
	if err != nil {
		cm.mu.Unlock()
		return err
	}

	cm.config.Store(config)
	cm.rawData.Store(&tree)
	cm.parser.Store(NewParser(tree))

	invalidators := make([]types.Invalidator, len(cm.invalidators))
	copy(invalidators, cm.invalidators)
	cm.mu.Unlock()

	tag := "config:" + path
	for _, invalidator := range invalidators {
		if err := invalidator.Invalidate(types.PatternSubstring(tag)); err != nil {
			cm.logger.Warn("Configuration change invalidation failed",
				zap.String("path", path), zap.Error(err))
		}
	}

	cm.logger.Debug("Configuration value updated", zap.String("path", path))
	return nil
}

func (cm *ConfigurationManager) Close() {
	cm.cancel()
}

func (cm *ConfigurationManager) rebuild(tree map[string]interface{}) (*types.Config, error) {
	data, err := yaml.Marshal(tree)
	if err != nil {
		return nil, types.WrapError(err, "failed to serialize configuration")
	}

	config := cm.loader.Defaults()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, types.WrapError(err, "failed to parse configuration")
	}

	if err := cm.loader.Validate(config); err != nil {
		return nil, err
	}

	return config, nil
}
