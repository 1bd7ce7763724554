package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Settings is the business configuration snapshot loaded at process start.
// It replaces ad-hoc lookups of mutable key/value settings: collaborators
// receive the holder by reference and read a consistent snapshot.
type Settings struct {
	DefaultCurrency     string   `mapstructure:"defaultCurrency"`
	FxMarkupBasisPoints int      `mapstructure:"fxMarkupBasisPoints"`
	AllowedCurrencies   []string `mapstructure:"allowedCurrencies"`
}

// AllowsCurrency reports whether code is on the allowlist.
func (s Settings) AllowsCurrency(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, allowed := range s.AllowedCurrencies {
		if allowed == code {
			return true
		}
	}
	return false
}

func DefaultSettings() Settings {
	return Settings{
		DefaultCurrency:     "USD",
		FxMarkupBasisPoints: 0,
		AllowedCurrencies:   []string{"USD", "EUR", "GBP"},
	}
}

// SettingsHolder hands out the current settings snapshot.
type SettingsHolder struct {
	current atomic.Value // holds Settings
}

// NewSettingsHolder loads bizhub.yml and watches it for changes.
func NewSettingsHolder() (*SettingsHolder, error) {
	v := viper.New()

	v.SetConfigName("bizhub")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/bizhub/config")
	v.AddConfigPath("/etc/bizhub")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BIZHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultSettings()
		v.SetDefault("settings.defaultCurrency", defaults.DefaultCurrency)
		v.SetDefault("settings.fxMarkupBasisPoints", defaults.FxMarkupBasisPoints)
		v.SetDefault("settings.allowedCurrencies", defaults.AllowedCurrencies)
	}

	var cfg Settings
	if err := v.UnmarshalKey("settings", &cfg); err != nil {
		return nil, err
	}
	cfg = normalizeSettings(cfg)
	if err := validateSettings(cfg); err != nil {
		return nil, err
	}

	holder := &SettingsHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated Settings
		if err := v.UnmarshalKey("settings", &updated); err != nil {
			log.Printf("[settings] reload failed: %v", err)
			return
		}
		updated = normalizeSettings(updated)
		if err := validateSettings(updated); err != nil {
			log.Printf("[settings] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[settings] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticSettingsHolder wraps a fixed snapshot, used by tests and seeding.
func NewStaticSettingsHolder(cfg Settings) (*SettingsHolder, error) {
	cfg = normalizeSettings(cfg)
	if err := validateSettings(cfg); err != nil {
		return nil, err
	}
	holder := &SettingsHolder{}
	holder.current.Store(cfg)
	return holder, nil
}

// Current returns the active snapshot.
func (h *SettingsHolder) Current() Settings {
	if h == nil {
		return DefaultSettings()
	}
	if cfg, ok := h.current.Load().(Settings); ok {
		return cfg
	}
	return DefaultSettings()
}

func normalizeSettings(cfg Settings) Settings {
	cfg.DefaultCurrency = strings.ToUpper(strings.TrimSpace(cfg.DefaultCurrency))
	codes := make([]string, 0, len(cfg.AllowedCurrencies))
	seen := map[string]bool{}
	for _, code := range cfg.AllowedCurrencies {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}
	cfg.AllowedCurrencies = codes
	return cfg
}

func validateSettings(cfg Settings) error {
	if len(cfg.AllowedCurrencies) == 0 {
		return errors.New("settings: allowedCurrencies must not be empty")
	}
	for _, code := range cfg.AllowedCurrencies {
		if len(code) != 3 {
			return fmt.Errorf("settings: invalid currency code %q", code)
		}
	}
	if cfg.DefaultCurrency == "" {
		return errors.New("settings: defaultCurrency is required")
	}
	if !cfg.AllowsCurrency(cfg.DefaultCurrency) {
		return fmt.Errorf("settings: defaultCurrency %q is not in allowedCurrencies", cfg.DefaultCurrency)
	}
	if cfg.FxMarkupBasisPoints < 0 || cfg.FxMarkupBasisPoints > 10_000 {
		return fmt.Errorf("settings: fxMarkupBasisPoints %d out of range", cfg.FxMarkupBasisPoints)
	}
	return nil
}
