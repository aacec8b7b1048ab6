package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// TelecomConfig holds the tunables of the consumption API.
type TelecomConfig struct {
	RootCategoryName string    `mapstructure:"rootCategoryName"`
	RootCategoryCode string    `mapstructure:"rootCategoryCode"`
	ListLimit        ListLimit `mapstructure:"listLimit"`
}

// ListLimit is the default page size of each API generation.
type ListLimit struct {
	V1 int `mapstructure:"v1"`
	V2 int `mapstructure:"v2"`
}

func DefaultTelecomConfig() TelecomConfig {
	return TelecomConfig{
		RootCategoryName: "Telecom",
		RootCategoryCode: "telecom",
		ListLimit: ListLimit{
			V1: 10,
			V2: 100,
		},
	}
}

type TelecomConfigHolder struct {
	current atomic.Value // holds TelecomConfig
}

// NewStaticTelecomConfigHolder returns a holder that never reloads.
func NewStaticTelecomConfigHolder(cfg TelecomConfig) *TelecomConfigHolder {
	holder := &TelecomConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewTelecomConfigHolder(log *zap.Logger) (*TelecomConfigHolder, error) {
	log = log.Named("config.telecom")
	v := viper.New()

	v.SetConfigName("telecom")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/telecomservice")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TELECOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultTelecomConfig()
	v.SetDefault("telecom.rootCategoryName", defaults.RootCategoryName)
	v.SetDefault("telecom.rootCategoryCode", defaults.RootCategoryCode)
	v.SetDefault("telecom.listLimit.v1", defaults.ListLimit.V1)
	v.SetDefault("telecom.listLimit.v2", defaults.ListLimit.V2)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg TelecomConfig
	if err := v.UnmarshalKey("telecom", &cfg); err != nil {
		return nil, err
	}
	if err := validateTelecomConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticTelecomConfigHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated TelecomConfig
		if err := v.UnmarshalKey("telecom", &updated); err != nil {
			log.Warn("reload failed", zap.String("file", e.Name), zap.Error(err))
			return
		}
		if err := validateTelecomConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *TelecomConfigHolder) Get() TelecomConfig {
	return h.current.Load().(TelecomConfig)
}

func validateTelecomConfig(cfg TelecomConfig) error {
	if strings.TrimSpace(cfg.RootCategoryName) == "" {
		return errors.New("telecom.rootCategoryName cannot be empty")
	}
	if cfg.ListLimit.V1 <= 0 || cfg.ListLimit.V2 <= 0 {
		return errors.New("telecom.listLimit values must be positive")
	}
	return nil
}
