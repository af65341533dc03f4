// Package telegram delivers invoice notifications through the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

var ErrNoChat = errors.New("telegram_chat_id_missing")

// botAPI is the part of *tgbotapi.BotAPI the sender uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Sender struct {
	api botAPI
	log *zap.Logger
}

func NewSender(api botAPI, log *zap.Logger) *Sender {
	return &Sender{api: api, log: log.Named("providers.telegram")}
}

// Send posts html to chatID using Telegram's HTML parse mode.
func (s *Sender) Send(ctx context.Context, chatID int64, html string) error {
	if chatID == 0 {
		return ErrNoChat
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, html)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	sent, err := s.api.Send(msg)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	s.log.Debug("telegram.message.sent", zap.Int64("chat_id", chatID), zap.Int("message_id", sent.MessageID))
	return nil
}

// NoOpSender logs instead of delivering. It backs local runs without a bot
// token.
type NoOpSender struct {
	log *zap.Logger
}

func (p *NoOpSender) Send(ctx context.Context, chatID int64, html string) error {
	p.log.Info("telegram.message.skipped", zap.Int64("chat_id", chatID), zap.Int("length", len(html)))
	return nil
}
