package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PortalConfig holds billing-portal settings that operators tune at runtime.
type PortalConfig struct {
	DefaultCurrency     string `mapstructure:"defaultCurrency"`
	PollIntervalSeconds int    `mapstructure:"pollIntervalSeconds"`
	PollEnabled         bool   `mapstructure:"pollEnabled"`
	ReceiptFooter       string `mapstructure:"receiptFooter"`
}

func DefaultPortalConfig() PortalConfig {
	return PortalConfig{
		DefaultCurrency:     "USD",
		PollIntervalSeconds: 60,
		PollEnabled:         true,
		ReceiptFooter:       "Thank you for your payment.",
	}
}

// PortalConfigHolder hands out the current portal config and hot-reloads it
// when the backing file changes.
type PortalConfigHolder struct {
	current atomic.Value // holds PortalConfig
}

func NewPortalConfigHolder() (*PortalConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("portal")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/mikrobill/config") // Volume-mounted config
	v.AddConfigPath("/etc/mikrobill")            // System config
	v.AddConfigPath(".")                         // Current directory (dev mode)

	v.SetEnvPrefix("MIKROBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultPortalConfig()
		v.SetDefault("portal.defaultCurrency", defaults.DefaultCurrency)
		v.SetDefault("portal.pollIntervalSeconds", defaults.PollIntervalSeconds)
		v.SetDefault("portal.pollEnabled", defaults.PollEnabled)
		v.SetDefault("portal.receiptFooter", defaults.ReceiptFooter)
	}

	var cfg PortalConfig
	if err := v.UnmarshalKey("portal", &cfg); err != nil {
		return nil, err
	}
	if err := validatePortalConfig(cfg); err != nil {
		return nil, err
	}

	holder := &PortalConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PortalConfig
		if err := v.UnmarshalKey("portal", &updated); err != nil {
			log.Printf("[portal-config] reload failed: %v", err)
			return
		}
		if err := validatePortalConfig(updated); err != nil {
			log.Printf("[portal-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[portal-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticPortalConfigHolder wraps a fixed config with no file watching.
func NewStaticPortalConfigHolder(cfg PortalConfig) *PortalConfigHolder {
	holder := &PortalConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *PortalConfigHolder) Get() PortalConfig {
	return h.current.Load().(PortalConfig)
}

func validatePortalConfig(cfg PortalConfig) error {
	if strings.TrimSpace(cfg.DefaultCurrency) == "" {
		return errors.New("portal.defaultCurrency cannot be empty")
	}
	if cfg.PollIntervalSeconds <= 0 {
		return errors.New("portal.pollIntervalSeconds must be positive")
	}
	return nil
}
