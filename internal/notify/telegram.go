// Package notify pushes reservation updates to the staff Telegram chats.
package notify

import (
	"fmt"

	"villamar/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

type TelegramNotifier struct {
	bot     *tgbotapi.BotAPI
	chatIDs []int64
	logger  *zerolog.Logger
}

func NewTelegramNotifier(botToken string, chatIDs []int64, logger *zerolog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	logger.Info().Str("bot_username", bot.Self.UserName).Msg("telegram notifier ready")

	return &TelegramNotifier{
		bot:     bot,
		chatIDs: chatIDs,
		logger:  logger,
	}, nil
}

func (n *TelegramNotifier) NotifyReservationCreated(r *models.Reservation) {
	message := fmt.Sprintf(`🆕 New reservation:

🏡 Cottage: %s
📅 Check-in: %s
📅 Check-out: %s
👤 Guest: %s (%d guests)
📱 Contact: %s
💰 Total: %.2f (%s)
🆔 Reservation ID: %d`,
		r.CottageName,
		r.CheckIn.Format(models.DayFormat),
		r.CheckOut.Format(models.DayFormat),
		r.GuestName,
		r.NumberOfGuests,
		r.ContactNumber,
		r.TotalAmount,
		r.Payment,
		r.ID)

	n.broadcast(message)
}

func (n *TelegramNotifier) NotifyReservationCancelled(r *models.Reservation, byAdmin bool) {
	actor := "the guest"
	if byAdmin {
		actor = "an administrator"
	}
	message := fmt.Sprintf(`❌ Reservation #%d cancelled by %s:

🏡 Cottage: %s
📅 Check-in: %s
👤 Guest: %s
📱 Contact: %s`,
		r.ID,
		actor,
		r.CottageName,
		r.CheckIn.Format(models.DayFormat),
		r.GuestName,
		r.ContactNumber)

	n.broadcast(message)
}

func (n *TelegramNotifier) broadcast(message string) {
	for _, chatID := range n.chatIDs {
		msg := tgbotapi.NewMessage(chatID, message)
		if _, err := n.bot.Send(msg); err != nil {
			n.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to notify staff chat")
		}
	}
}
