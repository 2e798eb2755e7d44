package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"potencialize/internal/models"
)

// Sender is satisfied by *tgbotapi.BotAPI.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSink alerts the operations chat about events that need a human.
type TelegramSink struct {
	bot    Sender
	chatID int64
}

func NewTelegramSink(bot Sender, chatID int64) *TelegramSink {
	return &TelegramSink{bot: bot, chatID: chatID}
}

func (s *TelegramSink) Name() string { return "telegram" }

func (s *TelegramSink) Accepts(eventType string) bool {
	switch eventType {
	case models.EventMembershipUserMissing, models.EventCascadeFailed, models.EventMembershipActivated:
		return true
	}
	return false
}

func (s *TelegramSink) Deliver(_ context.Context, e models.Event) error {
	if s.bot == nil || s.chatID == 0 {
		return nil
	}
	msg := tgbotapi.NewMessage(s.chatID, formatAlert(e))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func formatAlert(e models.Event) string {
	var b strings.Builder
	switch e.Type {
	case models.EventMembershipUserMissing:
		fmt.Fprintf(&b, "⚠️ <b>Club vendido sem usuário</b>\nEmpresa: %v\nNenhum usuário ativo encontrado para o upgrade.", e.Payload["company"])
	case models.EventMembershipActivated:
		fmt.Fprintf(&b, "✅ <b>Acesso Club liberado</b>\nUsuário: %v\nEmpresa: %v", e.Payload["user_name"], e.Payload["company"])
	case models.EventCascadeFailed:
		fmt.Fprintf(&b, "❌ <b>Automação falhou</b>\n%s #%d\nEtapa: %v\nErro: %v\nRun: %v",
			e.EntityKind, e.EntityID, e.Payload["step"], e.Payload["error"], e.Payload["run_id"])
	default:
		fmt.Fprintf(&b, "%s %s #%d", e.Type, e.EntityKind, e.EntityID)
	}
	return b.String()
}
