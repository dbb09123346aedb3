package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Veraticus/textledger/internal/common"
	"github.com/Veraticus/textledger/internal/model"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramBot replies to Telegram chats through the Bot API.
type TelegramBot struct {
	api    *tgbotapi.BotAPI
	logger *slog.Logger
}

// NewTelegramBot connects to the Bot API at endpoint (tgbotapi.APIEndpoint
// when empty) and verifies the token with getMe.
func NewTelegramBot(token, endpoint string, httpClient *http.Client, logger *slog.Logger) (*TelegramBot, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: TELEGRAM_BOT_TOKEN is required", common.ErrMissingConfig)
	}
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("%w: telegram getMe: %w", common.ErrUpstreamCall, err)
	}

	logger.Info("connected to telegram", "bot", api.Self.UserName)
	return &TelegramBot{api: api, logger: logger}, nil
}

// Reply implements service.TelegramReplier.
func (b *TelegramBot) Reply(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("%w: telegram sendMessage: %w", common.ErrUpstreamCall, err)
	}

	b.logger.Debug("sent telegram reply", "chat_id", chatID)
	return nil
}

// DecodeUpdate reads a webhook Update body.
func DecodeUpdate(r io.Reader) (tgbotapi.Update, error) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r).Decode(&update); err != nil {
		return tgbotapi.Update{}, fmt.Errorf("failed to decode telegram update: %w", err)
	}
	return update, nil
}

// InboundFromUpdate extracts a text message from update. The second result is
// false when the update carries no text message.
func InboundFromUpdate(update tgbotapi.Update) (model.InboundMessage, bool) {
	msg := update.Message
	if msg == nil || msg.Text == "" || msg.Chat == nil {
		return model.InboundMessage{}, false
	}

	sender := ""
	if msg.From != nil {
		sender = strconv.FormatInt(msg.From.ID, 10)
	}

	return model.InboundMessage{
		ReceivedAt: msg.Time(),
		Channel:    model.ChannelTelegram,
		Sender:     sender,
		Text:       msg.Text,
		ChatID:     msg.Chat.ID,
	}, true
}
