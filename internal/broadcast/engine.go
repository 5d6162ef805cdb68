// Package broadcast delivers an admin-composed announcement to every
// registered chat. Delivery is best effort: individual failures are
// logged and skipped so one blocked chat never stalls the whole run.
package broadcast

import (
	"context"
	"errors"
	"strings"

	"github.com/episthema/vpnbot/internal/logger"
	"github.com/episthema/vpnbot/internal/telegram/keyboard"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// DeleteCallbackKey is the callback unique carried by the dismiss button
// attached to every broadcast message.
const DeleteCallbackKey = "delete_broadcast"

// Message is a fully composed announcement ready for delivery.
// PhotoID and URL are optional.
type Message struct {
	Text    string
	PhotoID string
	URL     string
}

// Report summarises a finished broadcast run.
type Report struct {
	Total  int
	Sent   int
	Failed int
}

// Recipients lists the chat ids a broadcast should reach.
type Recipients interface {
	AllChatIDs(ctx context.Context) ([]int64, error)
}

// Sender performs the actual outbound delivery for one chat.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string, markup *tele.ReplyMarkup) error
	SendPhoto(ctx context.Context, chatID int64, photoID, caption string, markup *tele.ReplyMarkup) error
}

// Engine fans an announcement out to all registered chats.
type Engine struct {
	recipients Recipients
	sender     Sender
}

// New builds a broadcast engine over the given recipient source and sender.
func New(recipients Recipients, sender Sender) *Engine {
	return &Engine{recipients: recipients, sender: sender}
}

// Markup builds the inline keyboard attached to a broadcast message:
// an optional link button followed by the dismiss button.
func Markup(url string) *tele.ReplyMarkup {
	var rows [][]keyboard.InlineBtn
	if strings.TrimSpace(url) != "" {
		rows = append(rows, []keyboard.InlineBtn{{Text: "🔗 Open link", URL: url}})
	}
	rows = append(rows, []keyboard.InlineBtn{{Text: "🗑 Delete", Unique: DeleteCallbackKey}})
	return keyboard.InlineButtonsRows(rows...)
}

// Run delivers msg to every registered chat and returns the delivery report.
// The returned error is non-nil only when the recipient list itself cannot
// be loaded; per-chat failures are counted in the report instead.
func (e *Engine) Run(ctx context.Context, msg Message) (Report, error) {
	if strings.TrimSpace(msg.Text) == "" && msg.PhotoID == "" {
		return Report{}, errors.New("broadcast: empty message")
	}

	chatIDs, err := e.recipients.AllChatIDs(ctx)
	if err != nil {
		return Report{}, err
	}

	markup := Markup(msg.URL)
	report := Report{Total: len(chatIDs)}

	for _, chatID := range chatIDs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		var sendErr error
		if msg.PhotoID != "" {
			sendErr = e.sender.SendPhoto(ctx, chatID, msg.PhotoID, msg.Text, markup)
		} else {
			sendErr = e.sender.SendText(ctx, chatID, msg.Text, markup)
		}
		if sendErr != nil {
			report.Failed++
			logger.SVCBroadcast.LogAttrs(ctx, slog.LevelWarn, "broadcast.send_failed",
				slog.Int64("chat_id", chatID),
				slog.String("err", logger.SanitizeLimit(sendErr.Error(), 256)),
			)
			continue
		}
		report.Sent++
	}

	logger.SVCBroadcast.LogAttrs(ctx, slog.LevelInfo, "broadcast.complete",
		slog.Int("total", report.Total),
		slog.Int("sent", report.Sent),
		slog.Int("failed", report.Failed),
		slog.Bool("photo", msg.PhotoID != ""),
		slog.Bool("url", msg.URL != ""),
	)
	return report, nil
}

// BotAPI is the subset of tele.Bot used for outbound broadcast delivery.
type BotAPI interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// TelebotSender adapts a telebot instance to the Sender interface.
type TelebotSender struct {
	Bot BotAPI
}

func (s TelebotSender) SendText(_ context.Context, chatID int64, text string, markup *tele.ReplyMarkup) error {
	_, err := s.Bot.Send(tele.ChatID(chatID), text, markup)
	return err
}

func (s TelebotSender) SendPhoto(_ context.Context, chatID int64, photoID, caption string, markup *tele.ReplyMarkup) error {
	photo := &tele.Photo{File: tele.File{FileID: photoID}, Caption: caption}
	_, err := s.Bot.Send(tele.ChatID(chatID), photo, markup)
	return err
}
