package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	cmdOpen = "open"
	cmdFav  = "fav"
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	data := cb.Data

	callback := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Send(callback); err != nil {
		b.log.Error("send callback ack", "error", err)
	}

	if cb.Message == nil || cb.From == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	action, id, ok := strings.Cut(data, ":")
	if !ok || id == "" {
		return
	}

	b.log.Info("callback",
		"action", action,
		"id", id,
		"chat_id", chatID,
		"user_id", cb.From.ID,
		"username", cb.From.UserName,
	)

	switch action {
	case cmdOpen, cmdFav:
	default:
		return
	}

	u, ok := b.currentUser(ctx, chatID, cb.From)
	if !ok {
		return
	}

	switch action {
	case cmdOpen:
		b.handleOpen(ctx, chatID, u, id)
	case cmdFav:
		b.handleFav(ctx, chatID, u, id)
	}
}
