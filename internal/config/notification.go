package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// DefaultMessageTemplate renders one invoice as a Telegram HTML message.
const DefaultMessageTemplate = `<b>{{.Bank}}</b>
Beneficiário: {{.Beneficiary}}
Código: <code>{{.Barcode}}</code>
Vencimento: {{.DueDate}}
Valor: R$ {{.Amount}}`

// NotificationConfig controls how invoice notifications are rendered.
type NotificationConfig struct {
	MessageTemplate string `mapstructure:"messageTemplate"`
	DateLayout      string `mapstructure:"dateLayout"`
}

func DefaultNotificationConfig() NotificationConfig {
	return NotificationConfig{
		MessageTemplate: DefaultMessageTemplate,
		DateLayout:      "02/01/2006",
	}
}

type NotificationConfigHolder struct {
	current atomic.Value // holds NotificationConfig
}

// NewStaticNotificationConfigHolder returns a holder that never reloads.
func NewStaticNotificationConfigHolder(cfg NotificationConfig) *NotificationConfigHolder {
	holder := &NotificationConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewNotificationConfigHolder() (*NotificationConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("notification")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/invoicereminder")
	v.AddConfigPath(".")

	v.SetEnvPrefix("INVOICEREMINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultNotificationConfig()
	v.SetDefault("notification.messageTemplate", defaults.MessageTemplate)
	v.SetDefault("notification.dateLayout", defaults.DateLayout)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg NotificationConfig
	if err := v.UnmarshalKey("notification", &cfg); err != nil {
		return nil, err
	}
	if err := validateNotificationConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticNotificationConfigHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated NotificationConfig
		if err := v.UnmarshalKey("notification", &updated); err != nil {
			zap.L().Warn("config.notification.reload_failed", zap.Error(err))
			return
		}
		if err := validateNotificationConfig(updated); err != nil {
			zap.L().Warn("config.notification.invalid", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		zap.L().Info("config.notification.reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *NotificationConfigHolder) Get() NotificationConfig {
	if h == nil {
		return DefaultNotificationConfig()
	}
	cfg, ok := h.current.Load().(NotificationConfig)
	if !ok {
		return DefaultNotificationConfig()
	}
	return cfg
}

func validateNotificationConfig(cfg NotificationConfig) error {
	if strings.TrimSpace(cfg.MessageTemplate) == "" {
		return errors.New("notification.messageTemplate cannot be empty")
	}
	if strings.TrimSpace(cfg.DateLayout) == "" {
		return errors.New("notification.dateLayout cannot be empty")
	}
	return nil
}
