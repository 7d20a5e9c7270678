package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// BotConfig holds the settings operators edit while the bot is running.
type BotConfig struct {
	Status   string   `mapstructure:"status"`
	AdminIDs []string `mapstructure:"admin_ids"`
}

func DefaultBotConfig() BotConfig {
	return BotConfig{
		Status:   "Clan registry",
		AdminIDs: []string{},
	}
}

// IsAdmin reports whether the external user reference is listed in admin_ids.
func (c BotConfig) IsAdmin(externalRef string) bool {
	externalRef = strings.TrimSpace(externalRef)
	if externalRef == "" {
		return false
	}
	for _, id := range c.AdminIDs {
		if strings.TrimSpace(id) == externalRef {
			return true
		}
	}
	return false
}

type BotConfigHolder struct {
	current atomic.Value // holds BotConfig
}

// NewStaticBotConfigHolder returns a holder that never reloads.
func NewStaticBotConfigHolder(cfg BotConfig) *BotConfigHolder {
	holder := &BotConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewBotConfigHolder(appCfg Config, log *zap.Logger) (*BotConfigHolder, error) {
	v := viper.New()

	if appCfg.BotConfigPath != "" {
		v.SetConfigFile(appCfg.BotConfigPath)
	} else {
		v.SetConfigName("bot")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/clanbot")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CLANBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBotConfig()
	v.SetDefault("bot.status", defaults.Status)
	v.SetDefault("bot.admin_ids", defaults.AdminIDs)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg BotConfig
	if err := v.UnmarshalKey("bot", &cfg); err != nil {
		return nil, err
	}
	if err := validateBotConfig(cfg); err != nil {
		return nil, err
	}

	holder := &BotConfigHolder{}
	holder.current.Store(cfg)

	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BotConfig
		if err := v.UnmarshalKey("bot", &updated); err != nil {
			log.Warn("bot config reload failed", zap.String("file", e.Name), zap.Error(err))
			return
		}
		if err := validateBotConfig(updated); err != nil {
			log.Warn("invalid bot config ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("bot config reloaded", zap.String("file", e.Name), zap.Int("admin_count", len(updated.AdminIDs)))
	})

	return holder, nil
}

func (h *BotConfigHolder) Get() BotConfig {
	return h.current.Load().(BotConfig)
}

func validateBotConfig(cfg BotConfig) error {
	for _, id := range cfg.AdminIDs {
		if strings.TrimSpace(id) == "" {
			return errors.New("bot.admin_ids cannot contain empty entries")
		}
	}
	return nil
}
