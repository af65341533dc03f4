package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/smallbiznis/invoicereminder/internal/config"
	"github.com/smallbiznis/invoicereminder/internal/dispatch"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.telegram",
	fx.Provide(NewFromConfig),
)

// NewFromConfig connects the bot when TELEGRAM_BOT_TOKEN is set. Production
// refuses to start without one.
func NewFromConfig(cfg config.Config, log *zap.Logger) (dispatch.ChatSender, error) {
	if cfg.TelegramBotToken == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("telegram: TELEGRAM_BOT_TOKEN is required in production")
		}
		log.Warn("telegram.disabled", zap.String("reason", "missing bot token"))
		return &NoOpSender{log: log.Named("providers.telegram")}, nil
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram: connect bot: %w", err)
	}
	log.Info("telegram.connected", zap.String("bot", api.Self.UserName))
	return NewSender(api, log), nil
}
