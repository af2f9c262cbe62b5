package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"go.uber.org/zap"

	"gymclass/internal/model"
)

// TelegramNotifier delivers class and booking notices over Telegram. An
// empty token disables delivery without failing construction, so the engine
// runs fine with notifications off. Every method is fire-and-forget:
// delivery errors are logged and dropped.
type TelegramNotifier struct {
	bot         *bot.Bot
	adminChatID int64
	logger      *zap.Logger
}

func NewTelegramNotifier(token string, adminChatID int64, logger *zap.Logger) (*TelegramNotifier, error) {
	if token == "" {
		logger.Warn("telegram token is empty, notifications disabled")
		return &TelegramNotifier{adminChatID: adminChatID, logger: logger}, nil
	}

	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &TelegramNotifier{bot: b, adminChatID: adminChatID, logger: logger}, nil
}

func (n *TelegramNotifier) NotifyClassCreated(ctx context.Context, trainer *model.User, tpl *model.ClassTemplate, occurrences []*model.ClassOccurrence) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "New class scheduled: %s (%s)\nTrainer: %s\nOccurrences:\n", tpl.Name, tpl.Category, trainer.Name)
	for _, occ := range occurrences {
		fmt.Fprintf(&sb, "  %s - %s\n",
			occ.StartTime.Format("Mon 02.01.2006 15:04"),
			occ.EndTime.Format("15:04"),
		)
	}

	n.send(ctx, &n.adminChatID, sb.String())
}

func (n *TelegramNotifier) NotifyBookingConfirmed(ctx context.Context, member *model.User, occ *model.ClassOccurrence) {
	text := fmt.Sprintf("Booking confirmed!\nClass: %s\nStarts: %s",
		className(occ),
		occ.StartTime.Format("Mon 02.01.2006 15:04"),
	)
	n.send(ctx, member.TelegramChatID, text)
}

func (n *TelegramNotifier) NotifyBookingCancelled(ctx context.Context, member *model.User, occ *model.ClassOccurrence) {
	text := fmt.Sprintf("Booking cancelled.\nClass: %s\nWas scheduled for: %s",
		className(occ),
		occ.StartTime.Format("Mon 02.01.2006 15:04"),
	)
	n.send(ctx, member.TelegramChatID, text)
}

func (n *TelegramNotifier) send(ctx context.Context, chatID *int64, text string) {
	if n.bot == nil {
		n.logger.Debug("notification skipped, bot disabled", zap.String("text", text))
		return
	}
	if chatID == nil || *chatID == 0 {
		n.logger.Debug("notification skipped, no chat linked")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: *chatID,
		Text:   text,
	})
	if err != nil {
		n.logger.Error("failed to send telegram notification",
			zap.Int64("chat_id", *chatID),
			zap.Error(err),
		)
	}
}

func className(occ *model.ClassOccurrence) string {
	if occ.Template != nil {
		return occ.Template.Name
	}
	return fmt.Sprintf("occurrence %d", occ.ID)
}
