package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// DiscountConfig maps mini-game identifiers to the discount percent a first-try win grants.
type DiscountConfig struct {
	Default int            `mapstructure:"default"`
	Games   map[string]int `mapstructure:"games"`
}

func DefaultDiscountConfig() DiscountConfig {
	return DiscountConfig{
		Default: 10,
		Games: map[string]int{
			"mayor_menor": 10,
			"ahorcado":    15,
			"preguntados": 20,
			"entrega_ya":  25,
		},
	}
}

// PercentFor returns the configured percent for game, or the default for unknown games.
func (c DiscountConfig) PercentFor(game string) int {
	key := strings.ToLower(strings.TrimSpace(game))
	if percent, ok := c.Games[key]; ok {
		return percent
	}
	return c.Default
}

type DiscountConfigHolder struct {
	current atomic.Value // holds DiscountConfig
}

func NewDiscountConfigHolder(log *zap.Logger) (*DiscountConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("discounts")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/menuya/config")
	v.AddConfigPath("/etc/menuya")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MENUYA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultDiscountConfig()
	v.SetDefault("discounts.default", defaults.Default)
	v.SetDefault("discounts.games", defaults.Games)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	cfg, err := decodeDiscountConfig(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticDiscountConfigHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeDiscountConfig(v)
		if err != nil {
			log.Warn("discount config reload ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("discount config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// NewStaticDiscountConfigHolder returns a holder that never reloads.
func NewStaticDiscountConfigHolder(cfg DiscountConfig) *DiscountConfigHolder {
	holder := &DiscountConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *DiscountConfigHolder) Get() DiscountConfig {
	return h.current.Load().(DiscountConfig)
}

func (h *DiscountConfigHolder) PercentFor(game string) int {
	return h.Get().PercentFor(game)
}

func decodeDiscountConfig(v *viper.Viper) (DiscountConfig, error) {
	var cfg DiscountConfig
	if err := v.UnmarshalKey("discounts", &cfg); err != nil {
		return DiscountConfig{}, err
	}
	if err := validateDiscountConfig(cfg); err != nil {
		return DiscountConfig{}, err
	}
	return cfg, nil
}

func validateDiscountConfig(cfg DiscountConfig) error {
	if cfg.Default < 0 || cfg.Default > 100 {
		return errors.New("discounts.default must be within 0..100")
	}
	for game, percent := range cfg.Games {
		if percent < 0 || percent > 100 {
			return fmt.Errorf("discounts.games.%s must be within 0..100", game)
		}
	}
	return nil
}
