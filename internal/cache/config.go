package cache

import (
	"errors"
	"fmt"
	"time"
)

// Mode selects the cache backend.
type Mode string

const (
	// ModeSingle keeps auth state in a local Ristretto cache.
	ModeSingle Mode = "single"

	// ModeHA shares auth state through an Olric cluster.
	ModeHA Mode = "ha"

	// ModeRedis shares auth state through a Redis server.
	ModeRedis Mode = "redis"

	// ModeDisabled stores nothing.
	ModeDisabled Mode = "disabled"
)

// DefaultDMapName is the Olric map and Redis key prefix used when none is set.
const DefaultDMapName = "authneg"

// Config selects and configures a backend. Only the section matching Mode
// is read.
type Config struct {
	Mode      Mode            `yaml:"mode" toml:"mode"`
	Olric     OlricConfig     `yaml:"olric" toml:"olric"`
	Redis     RedisConfig     `yaml:"redis" toml:"redis"`
	Ristretto RistrettoConfig `yaml:"ristretto" toml:"ristretto"`
}

// RistrettoConfig configures the local cache.
type RistrettoConfig struct {
	// NumCounters should be about 10x the expected number of hosts.
	NumCounters int64 `yaml:"num_counters" toml:"num_counters"`

	// MaxCost is the byte budget for serialized scheme state.
	MaxCost int64 `yaml:"max_cost" toml:"max_cost"`

	BufferItems int64 `yaml:"buffer_items" toml:"buffer_items"`
}

// OlricConfig configures the distributed cache. With Embedded set the
// process runs its own node; otherwise it connects to Addresses.
type OlricConfig struct {
	DMapName          string        `yaml:"dmap_name" toml:"dmap_name"`
	BindAddr          string        `yaml:"bind_addr" toml:"bind_addr"`
	Environment       string        `yaml:"environment" toml:"environment"`
	Addresses         []string      `yaml:"addresses" toml:"addresses"`
	Peers             []string      `yaml:"peers" toml:"peers"`
	ReplicaCount      int           `yaml:"replica_count" toml:"replica_count"`
	ReadQuorum        int           `yaml:"read_quorum" toml:"read_quorum"`
	WriteQuorum       int           `yaml:"write_quorum" toml:"write_quorum"`
	LeaveTimeout      time.Duration `yaml:"leave_timeout" toml:"leave_timeout"`
	MemberCountQuorum int32         `yaml:"member_count_quorum" toml:"member_count_quorum"`
	Embedded          bool          `yaml:"embedded" toml:"embedded"`
}

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr      string `yaml:"addr" toml:"addr"`
	Username  string `yaml:"username" toml:"username"`
	Password  string `yaml:"password" toml:"password"`
	KeyPrefix string `yaml:"key_prefix" toml:"key_prefix"`
	DB        int    `yaml:"db" toml:"db"`
}

// Validate reports the first configuration error, or nil.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeSingle:
		if c.Ristretto.MaxCost <= 0 {
			return errors.New("cache: ristretto.max_cost must be positive")
		}
		if c.Ristretto.NumCounters <= 0 {
			return errors.New("cache: ristretto.num_counters must be positive")
		}
	case ModeHA:
		if !c.Olric.Embedded && len(c.Olric.Addresses) == 0 {
			return errors.New("cache: olric.addresses required when not embedded")
		}
		if c.Olric.Embedded && c.Olric.BindAddr == "" {
			return errors.New("cache: olric.bind_addr required when embedded")
		}
		if c.Olric.ReadQuorum < 0 || c.Olric.WriteQuorum < 0 || c.Olric.ReplicaCount < 0 {
			return errors.New("cache: olric quorum and replica counts must not be negative")
		}
	case ModeRedis:
		if c.Redis.Addr == "" {
			return errors.New("cache: redis.addr required")
		}
		if c.Redis.DB < 0 {
			return errors.New("cache: redis.db must not be negative")
		}
	case ModeDisabled:
	case "":
		return errors.New("cache: mode is required")
	default:
		return fmt.Errorf("cache: unknown mode %q", c.Mode)
	}
	return nil
}

// DefaultConfig is a single-process cache with DefaultRistrettoConfig.
func DefaultConfig() Config {
	return Config{
		Mode:      ModeSingle,
		Ristretto: DefaultRistrettoConfig(),
		Olric:     DefaultOlricConfig(),
		Redis:     DefaultRedisConfig(),
	}
}

// DefaultRistrettoConfig sizes the cache for roughly 10K hosts in 16 MB.
func DefaultRistrettoConfig() RistrettoConfig {
	return RistrettoConfig{
		NumCounters: 100_000,
		MaxCost:     16 << 20,
		BufferItems: 64,
	}
}

// DefaultOlricConfig returns an OlricConfig using DefaultDMapName.
func DefaultOlricConfig() OlricConfig {
	return OlricConfig{
		DMapName: DefaultDMapName,
	}
}

// DefaultRedisConfig points at a local Redis on the default port.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:      "127.0.0.1:6379",
		KeyPrefix: DefaultDMapName + ":",
	}
}
