package types

import (
	"time"
)

type ConfigManager interface {
	Load() error
	GetConfig() *Config
	GetValue(path string, defaultValue interface{}) interface{}
	GetAs(path string, target interface{}) error
	Set(path string, value interface{}) error
	Bind(invalidator Invalidator)
}

type Config struct {
	Name    string         `yaml:"name" json:"name" validate:"required"`
	Version string         `yaml:"version" json:"version"`
	Logger  *LoggerConfig  `yaml:"logger" json:"logger"`
	Cache   *EngineConfig  `yaml:"cache" json:"cache"`
	Memoize *MemoizeConfig `yaml:"memoize" json:"memoize"`
}

type LoggerConfig struct {
	Type   string      `yaml:"type" json:"type"`
	Level  string      `yaml:"level" json:"level"`
	Config interface{} `yaml:"config" json:"config"`
}

type EngineConfig struct {
	Name                 string        `yaml:"name" json:"name"`
	DefaultTTL           time.Duration `yaml:"default_ttl" json:"default_ttl" validate:"min=0"`
	EvictionPolicy       string        `yaml:"eviction_policy" json:"eviction_policy" validate:"omitempty,oneof=lru lfu ttl hybrid"`
	CompressionEnabled   bool          `yaml:"compression_enabled" json:"compression_enabled"`
	CompressionThreshold int64         `yaml:"compression_threshold" json:"compression_threshold" validate:"min=0"`
	WarmingEnabled       bool          `yaml:"warming_enabled" json:"warming_enabled"`
	PromoteThreshold     uint64        `yaml:"promote_threshold" json:"promote_threshold"`
	SweepSchedule        string        `yaml:"sweep_schedule" json:"sweep_schedule"`
	SmallObjectMax       int64         `yaml:"small_object_max" json:"small_object_max" validate:"min=0"`
	MediumObjectMax      int64         `yaml:"medium_object_max" json:"medium_object_max" validate:"min=0"`
	L1                   *TierConfig   `yaml:"l1" json:"l1"`
	L2                   *TierConfig   `yaml:"l2" json:"l2"`
	L3                   *TierConfig   `yaml:"l3" json:"l3"`
}

func (c *EngineConfig) TierConfig(tier Tier) *TierConfig {
	switch tier {
	case TierL1:
		return c.L1
	case TierL2:
		return c.L2
	case TierL3:
		return c.L3
	default:
		return nil
	}
}

type TierConfig struct {
	Enabled bool        `yaml:"enabled" json:"enabled"`
	MaxSize int64       `yaml:"max_size" json:"max_size" validate:"min=0"`
	Backend string      `yaml:"backend" json:"backend"`
	Config  interface{} `yaml:"config" json:"config"`
}

type MemoizeConfig struct {
	MaxEntries int           `yaml:"max_entries" json:"max_entries" validate:"min=0"`
	DefaultTTL time.Duration `yaml:"default_ttl" json:"default_ttl" validate:"min=0"`
}

// DefaultEngineConfig mirrors the conventional L1 <= L2 <= L3 capacity
// shape; every field can be overridden from the config file.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		Name:                 "default",
		DefaultTTL:           time.Hour,
		EvictionPolicy:       PolicyHybrid,
		CompressionEnabled:   false,
		CompressionThreshold: 1024,
		WarmingEnabled:       true,
		PromoteThreshold:     3,
		SweepSchedule:        "@every 5m",
		SmallObjectMax:       10 * 1024,
		MediumObjectMax:      256 * 1024,
		L1:                   &TierConfig{Enabled: true, MaxSize: 4 * 1024 * 1024, Backend: "memory"},
		L2:                   &TierConfig{Enabled: true, MaxSize: 16 * 1024 * 1024, Backend: "memory"},
		L3:                   &TierConfig{Enabled: true, MaxSize: 64 * 1024 * 1024, Backend: "memory"},
	}
}

func DefaultMemoizeConfig() *MemoizeConfig {
	return &MemoizeConfig{
		MaxEntries: 1000,
		DefaultTTL: 5 * time.Minute,
	}
}
