package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSettings(t *testing.T) {
	cfg := normalizeSettings(Settings{
		DefaultCurrency:   " usd ",
		AllowedCurrencies: []string{"usd", "EUR", "eur", "", " gbp"},
	})
	assert.Equal(t, "USD", cfg.DefaultCurrency)
	assert.Equal(t, []string{"USD", "EUR", "GBP"}, cfg.AllowedCurrencies)
}

func TestValidateSettings(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validateSettings(DefaultSettings()))
	})

	t.Run("empty allowlist", func(t *testing.T) {
		err := validateSettings(Settings{DefaultCurrency: "USD"})
		assert.Error(t, err)
	})

	t.Run("default not allowed", func(t *testing.T) {
		err := validateSettings(Settings{
			DefaultCurrency:   "JPY",
			AllowedCurrencies: []string{"USD"},
		})
		assert.Error(t, err)
	})

	t.Run("bad code length", func(t *testing.T) {
		err := validateSettings(Settings{
			DefaultCurrency:   "USD",
			AllowedCurrencies: []string{"USD", "US"},
		})
		assert.Error(t, err)
	})

	t.Run("markup out of range", func(t *testing.T) {
		cfg := DefaultSettings()
		cfg.FxMarkupBasisPoints = 20_000
		assert.Error(t, validateSettings(cfg))
	})
}

func TestAllowsCurrency(t *testing.T) {
	cfg := DefaultSettings()
	assert.True(t, cfg.AllowsCurrency("usd"))
	assert.True(t, cfg.AllowsCurrency(" EUR "))
	assert.False(t, cfg.AllowsCurrency("JPY"))
}

func TestStaticHolderSnapshot(t *testing.T) {
	holder, err := NewStaticSettingsHolder(Settings{
		DefaultCurrency:     "EUR",
		FxMarkupBasisPoints: 150,
		AllowedCurrencies:   []string{"EUR", "USD"},
	})
	assert.NoError(t, err)
	snap := holder.Current()
	assert.Equal(t, "EUR", snap.DefaultCurrency)
	assert.Equal(t, 150, snap.FxMarkupBasisPoints)
}
