package notify

import (
	"context"
	"fmt"
	"time"

	tele "gopkg.in/telebot.v3"
)

type telegramSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// TelegramSink forwards reminders to one Telegram chat.
type TelegramSink struct {
	bot  telegramSender
	chat tele.ChatID
}

// NewTelegramSink validates token against the Bot API and returns a sink
// posting to chatID.
func NewTelegramSink(token string, chatID int64) (*TelegramSink, error) {
	b, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return &TelegramSink{bot: b, chat: tele.ChatID(chatID)}, nil
}

func (s *TelegramSink) Name() string { return "telegram" }

func (s *TelegramSink) Deliver(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	text := fmt.Sprintf("🕌 %s\n%s", n.Title, n.Body)
	if _, err := s.bot.Send(s.chat, text); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
