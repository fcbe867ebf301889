// Package config loads the TOML configuration of the iota-ternary tool.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/suffix-labs/iota-ternary/pkg/log"
	"github.com/suffix-labs/iota-ternary/pkg/sponge"
)

// default values
const (
	DefaultNodeURL        = "http://localhost:14265"
	DefaultTimeoutSeconds = 30
	DefaultMaxRetries     = 3
	DefaultSecurityLevel  = 2
	DefaultConcurrency    = 4
	DefaultLegacySponge   = "curl"
	DefaultVerbosity      = 4 // info
)

var (
	config     *Config
	configLock sync.RWMutex
)

// Config is the top level configuration.
//
// Sections are values rather than pointers so that a file only overrides
// the keys it sets.
type Config struct {
	Node       NodeConfig
	Wallet     WalletConfig
	Workers    WorkersConfig
	Validation ValidationConfig
	Log        LogConfig
}

// NodeConfig node api config
type NodeConfig struct {
	URL            string
	TimeoutSeconds int
	MaxRetries     int
}

// WalletConfig address generation config
type WalletConfig struct {
	SecurityLevel int
	Checksum      bool
}

// WorkersConfig worker pool config
type WorkersConfig struct {
	Concurrency int
}

// ValidationConfig bundle validation config
type ValidationConfig struct {
	// LegacySponge is the fallback sponge for signature checks, "curl" or
	// empty to disable the fallback.
	LegacySponge string
}

// LogConfig log config
type LogConfig struct {
	Verbosity uint32
	JSON      bool
	Color     bool
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Node: NodeConfig{
			URL:            DefaultNodeURL,
			TimeoutSeconds: DefaultTimeoutSeconds,
			MaxRetries:     DefaultMaxRetries,
		},
		Wallet: WalletConfig{
			SecurityLevel: DefaultSecurityLevel,
			Checksum:      true,
		},
		Workers: WorkersConfig{
			Concurrency: DefaultConcurrency,
		},
		Validation: ValidationConfig{
			LegacySponge: DefaultLegacySponge,
		},
		Log: LogConfig{
			Verbosity: DefaultVerbosity,
			Color:     true,
		},
	}
}

// GetConfig get config items structure
func GetConfig() *Config {
	configLock.RLock()
	defer configLock.RUnlock()
	if config == nil {
		return DefaultConfig()
	}
	return config
}

// SetConfig set config items
func SetConfig(cfg *Config) {
	configLock.Lock()
	defer configLock.Unlock()
	config = cfg
}

// LoadConfig reads configFile over the defaults, checks the result and
// makes it the current config. An empty path loads the defaults.
func LoadConfig(configFile string) (*Config, error) {
	cfg := DefaultConfig()
	if configFile != "" {
		if _, err := toml.DecodeFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file %v: %w", configFile, err)
		}
		log.Info("config file loaded", "file", configFile)
	}

	if err := cfg.CheckConfig(); err != nil {
		return nil, err
	}
	SetConfig(cfg)

	bs, _ := json.Marshal(cfg)
	log.Debug("LoadConfig finished", "config", string(bs))
	return cfg, nil
}

// CheckConfig check config
func (c *Config) CheckConfig() (err error) {
	if err = c.Node.CheckConfig(); err != nil {
		return err
	}
	if err = c.Wallet.CheckConfig(); err != nil {
		return err
	}
	if err = c.Workers.CheckConfig(); err != nil {
		return err
	}
	return c.Validation.CheckConfig()
}

// CheckConfig check node config
func (c *NodeConfig) CheckConfig() error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("wrong 'Node.URL' %v: %w", c.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("wrong 'Node.URL' %v: scheme must be http or https", c.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("wrong 'Node.URL' %v: missing host", c.URL)
	}
	if c.TimeoutSeconds <= 0 {
		return errors.New("'Node.TimeoutSeconds' must be positive")
	}
	if c.MaxRetries < 0 {
		return errors.New("'Node.MaxRetries' must not be negative")
	}
	return nil
}

// CheckConfig check wallet config
func (c *WalletConfig) CheckConfig() error {
	if c.SecurityLevel < 1 || c.SecurityLevel > 3 {
		return fmt.Errorf("wrong 'Wallet.SecurityLevel' %v, must be 1, 2 or 3", c.SecurityLevel)
	}
	return nil
}

// CheckConfig check workers config
func (c *WorkersConfig) CheckConfig() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("wrong 'Workers.Concurrency' %v, must be at least 1", c.Concurrency)
	}
	return nil
}

// CheckConfig check validation config
func (c *ValidationConfig) CheckConfig() error {
	if strings.TrimSpace(c.LegacySponge) == "" {
		return nil
	}
	if _, err := sponge.ParseKind(c.LegacySponge); err != nil {
		return fmt.Errorf("wrong 'Validation.LegacySponge': %w", err)
	}
	return nil
}

// LegacyFactory returns the configured fallback sponge, or nil when the
// fallback is disabled.
func (c *ValidationConfig) LegacyFactory() (sponge.Factory, error) {
	if strings.TrimSpace(c.LegacySponge) == "" {
		return nil, nil
	}
	kind, err := sponge.ParseKind(c.LegacySponge)
	if err != nil {
		return nil, err
	}
	return sponge.FactoryFor(kind)
}
