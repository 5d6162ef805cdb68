package bot

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/episthema/vpnbot/internal/broadcast"
	"github.com/episthema/vpnbot/internal/export"
	"github.com/episthema/vpnbot/internal/logger"
	tghelpers "github.com/episthema/vpnbot/internal/telegram/helpers"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// handleAdmin opens the admin panel. Any in-progress flow is dropped so
// the panel always starts from a clean slate.
func (a *App) handleAdmin(c tele.Context) error {
	a.sessions.Clear(c.Sender().ID)
	return tghelpers.SendWithMarkup(c, adminPanelText, adminPanelMarkup())
}

// handleViewUsers reports registration counts over the trailing windows.
func (a *App) handleViewUsers(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "view_users")
	stats, err := a.store.Stats(ctx)
	if err != nil {
		return c.Send("Stats are unavailable right now.")
	}
	text := fmt.Sprintf(
		"👥 Registered users: %d\n\nLast 24 hours: %d\nLast 3 days: %d\nLast 7 days: %d\nLast 30 days: %d",
		stats.Total, stats.Last24h, stats.Last3d, stats.Last7d, stats.Last30d,
	)
	return tghelpers.SendText(c, text)
}

// handleDownloadDB exports the user table as a CSV attachment.
func (a *App) handleDownloadDB(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "download_db")
	users, err := a.store.AllUsers(ctx)
	if err != nil {
		return c.Send("Export is unavailable right now.")
	}
	data, err := export.UsersCSV(users)
	if err != nil {
		logger.SVCUsers.LogAttrs(ctx, slog.LevelError, "export.failed",
			slog.String("err", err.Error()),
		)
		return c.Send("Export is unavailable right now.")
	}
	doc := &tele.Document{
		File:     tele.FromReader(bytes.NewReader(data)),
		FileName: export.Filename(a.now()),
		MIME:     "text/csv",
	}
	return c.Send(doc)
}

// handleSetConfigStart begins the config replacement flow.
func (a *App) handleSetConfigStart(c tele.Context) error {
	a.sessions.SetState(c.Sender().ID, stateAwaitingNewConfig)
	return c.Send(setConfigPromptText)
}

// guardAdminFlow re-checks admin rights on every step of a multi-message
// admin conversation. A sender without the rights gets the denial and a
// cleared session.
func (a *App) guardAdminFlow(c tele.Context) (int64, bool) {
	chatID := c.Sender().ID
	if a.gate.IsAdmin(chatID) {
		return chatID, true
	}
	a.sessions.Clear(chatID)
	return chatID, false
}

// onNewConfigText stores the replacement configuration text.
func (a *App) onNewConfigText(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "set_config")
	chatID, ok := a.guardAdminFlow(c)
	if !ok {
		return a.rejectNonAdmin(c)
	}

	text := strings.TrimSpace(c.Text())
	if text == "" {
		return c.Send("The configuration text cannot be empty. Send it again or /cancel.")
	}

	if err := a.store.SetConfig(ctx, text); err != nil {
		logger.SVCConfig.LogAttrs(ctx, slog.LevelError, "config.replace_failed",
			slog.String("err", err.Error()),
		)
		return c.Send("Failed to save the configuration, please try again.")
	}

	a.sessions.Clear(chatID)
	return c.Send(setConfigDoneText)
}

// handleBroadcastStart begins the three-step broadcast composition flow.
func (a *App) handleBroadcastStart(c tele.Context) error {
	chatID := c.Sender().ID
	a.sessions.ClearTemp(chatID, tempBroadcastText)
	a.sessions.ClearTemp(chatID, tempBroadcastPhoto)
	a.sessions.ClearTemp(chatID, tempBroadcastURL)
	a.sessions.SetState(chatID, stateAwaitingBroadcastText)
	return c.Send(broadcastTextPrompt)
}

// onBroadcastText captures the announcement body.
func (a *App) onBroadcastText(c tele.Context) error {
	chatID, ok := a.guardAdminFlow(c)
	if !ok {
		return a.rejectNonAdmin(c)
	}
	text := strings.TrimSpace(c.Text())
	if text == "" {
		return c.Send("The broadcast text cannot be empty. Send it again or /cancel.")
	}
	a.sessions.SetTemp(chatID, tempBroadcastText, text)
	a.sessions.SetState(chatID, stateAwaitingBroadcastPhoto)
	return c.Send(broadcastPhotoPrompt)
}

// onBroadcastPhoto captures the optional photo, or skips on /skip.
func (a *App) onBroadcastPhoto(c tele.Context) error {
	chatID, ok := a.guardAdminFlow(c)
	if !ok {
		return a.rejectNonAdmin(c)
	}

	if msg := c.Message(); msg != nil && msg.Photo != nil {
		a.sessions.SetTemp(chatID, tempBroadcastPhoto, msg.Photo.FileID)
		a.sessions.SetState(chatID, stateAwaitingBroadcastURL)
		return c.Send(broadcastURLPrompt)
	}

	if strings.TrimSpace(c.Text()) == skipCommand {
		a.sessions.SetState(chatID, stateAwaitingBroadcastURL)
		return c.Send(broadcastURLPrompt)
	}

	return c.Send(broadcastPhotoPrompt)
}

// onBroadcastURL captures the optional link and launches delivery.
func (a *App) onBroadcastURL(c tele.Context) error {
	chatID, ok := a.guardAdminFlow(c)
	if !ok {
		return a.rejectNonAdmin(c)
	}
	text := strings.TrimSpace(c.Text())

	if text != skipCommand {
		if !strings.HasPrefix(text, "http://") && !strings.HasPrefix(text, "https://") {
			return c.Send(broadcastBadURLText)
		}
		a.sessions.SetTemp(chatID, tempBroadcastURL, text)
	}

	return a.runBroadcast(c)
}

func (a *App) runBroadcast(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "broadcast")
	chatID := c.Sender().ID

	text, _ := a.sessions.GetTempString(chatID, tempBroadcastText)
	photoID, _ := a.sessions.GetTempString(chatID, tempBroadcastPhoto)
	url, _ := a.sessions.GetTempString(chatID, tempBroadcastURL)

	// The conversation is over once delivery starts.
	a.sessions.Clear(chatID)

	report, err := a.engine().Run(ctx, broadcast.Message{
		Text:    text,
		PhotoID: photoID,
		URL:     url,
	})
	if err != nil {
		logger.SVCBroadcast.LogAttrs(ctx, slog.LevelError, "broadcast.failed",
			slog.String("err", err.Error()),
		)
		return c.Send("Broadcast failed, please try again later.")
	}

	summary := fmt.Sprintf("Broadcast finished: %d messages sent.", report.Sent)
	if report.Failed > 0 {
		summary += fmt.Sprintf(" %d deliveries failed.", report.Failed)
	}
	return c.Send(summary)
}
