package bot

import (
	"errors"
	"fmt"

	"github.com/episthema/vpnbot/internal/logger"
	"github.com/episthema/vpnbot/internal/storage"
	tghelpers "github.com/episthema/vpnbot/internal/telegram/helpers"
	"github.com/episthema/vpnbot/internal/vpnid"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

func senderUsername(c tele.Context) string {
	if s := c.Sender(); s != nil && s.Username != "" {
		return s.Username
	}
	return storage.UsernameSentinel
}

// handleStart shows the main menu to registered users and the agreement
// to everyone else. Invoked mid-flow it abandons the flow first.
func (a *App) handleStart(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "start")
	chatID := c.Sender().ID
	a.sessions.Clear(chatID)

	internalID, registered, err := a.store.LookupInternalID(ctx, chatID)
	if err != nil {
		logger.SVCUsers.LogAttrs(ctx, slog.LevelError, "lookup.failed",
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
		)
		return c.Send("Something went wrong, please try again later.")
	}

	if registered {
		a.sessions.SetState(chatID, stateMainMenu)
		return c.Send(fmt.Sprintf(menuGreeting, internalID), mainMenuMarkup())
	}

	a.sessions.SetState(chatID, stateAwaitingAgreement)
	return c.Send(agreementText, agreementMarkup())
}

// handleAgree registers the user atomically and replaces the agreement
// message with the main menu.
func (a *App) handleAgree(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "agree")
	chatID := c.Sender().ID

	internalID, _, err := a.store.Register(ctx, chatID, senderUsername(c))
	if err != nil {
		if errors.Is(err, vpnid.ErrSpaceExhausted) {
			a.sessions.Clear(chatID)
			return c.Send("No access identifiers are available right now. Please try again later.")
		}
		logger.SVCUsers.LogAttrs(ctx, slog.LevelError, "register.failed",
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
		)
		return c.Send("Registration failed, please try again later.")
	}

	// The agreement message has served its purpose.
	if err := c.Delete(); err != nil {
		logger.TG.LogAttrs(ctx, slog.LevelDebug, "agreement.delete_failed",
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
		)
	}

	a.sessions.SetState(chatID, stateMainMenu)
	return c.Send(fmt.Sprintf(menuGreeting, internalID), mainMenuMarkup())
}

// handleGetConfig swaps the menu message for the current configuration text.
func (a *App) handleGetConfig(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "get_config")
	chatID := c.Sender().ID

	_, registered, err := a.store.LookupInternalID(ctx, chatID)
	if err != nil {
		return c.Send("Something went wrong, please try again later.")
	}
	if !registered {
		return c.Send(notRegisteredText)
	}

	cfgText, err := a.store.Config(ctx)
	if err != nil {
		logger.SVCConfig.LogAttrs(ctx, slog.LevelError, "config.read_failed",
			slog.String("err", err.Error()),
		)
		return c.Send("Configuration is unavailable right now, please try again later.")
	}

	if err := c.Edit(cfgText, backToMenuMarkup()); err != nil {
		return c.Send(cfgText, backToMenuMarkup())
	}
	return nil
}

// handleBackToMenu restores the main menu in place.
func (a *App) handleBackToMenu(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "back_to_menu")
	chatID := c.Sender().ID

	internalID, registered, err := a.store.LookupInternalID(ctx, chatID)
	if err != nil || !registered {
		return c.Send(menuUnavailableText)
	}

	text := fmt.Sprintf(menuGreeting, internalID)
	if err := c.Edit(text, mainMenuMarkup()); err != nil {
		return c.Send(text, mainMenuMarkup())
	}
	return nil
}

func (a *App) handleFuturePlans(c tele.Context) error {
	if err := c.Edit(futurePlansText, backToMenuMarkup()); err != nil {
		return c.Send(futurePlansText, backToMenuMarkup())
	}
	return nil
}

func (a *App) handlePlus(c tele.Context) error {
	if err := c.Edit(plusText, backToMenuMarkup()); err != nil {
		return c.Send(plusText, backToMenuMarkup())
	}
	return nil
}

// handleCancel terminates the conversation from any state. Clearing the
// session drops scratch data with it; an idle chat just gets the
// confirmation.
func (a *App) handleCancel(c tele.Context) error {
	a.sessions.Clear(c.Sender().ID)
	return c.Send(cancelledText)
}

// onAgreementText nudges users who type instead of pressing the button.
func (a *App) onAgreementText(c tele.Context) error {
	return c.Send("Please use the button above to accept the agreement.")
}

// onMainMenuText handles stray text from registered users.
func (a *App) onMainMenuText(c tele.Context) error {
	return c.Send("Use the menu buttons, or /start to show the menu again.")
}

// handleDeleteBroadcast removes a broadcast message from the recipient's
// chat. Anyone may dismiss a message delivered to them.
func (a *App) handleDeleteBroadcast(c tele.Context) error {
	return c.Delete()
}
