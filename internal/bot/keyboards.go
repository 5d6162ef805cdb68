package bot

import (
	"github.com/episthema/vpnbot/internal/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

func agreementMarkup() *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "✅ I agree", Unique: cbAgree},
	})
}

func mainMenuMarkup() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: "📦 Get config", Unique: cbGetConfig}},
		[]keyboard.InlineBtn{
			{Text: "📖 Instruction", URL: instructionURL},
			{Text: "💬 Support", URL: supportURL},
		},
		[]keyboard.InlineBtn{
			{Text: "➕ Plus", Unique: cbPlus},
			{Text: "🔮 Future plans", Unique: cbFuturePlans},
		},
	)
}

func backToMenuMarkup() *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "⬅️ Back", Unique: cbBackToMenu},
	})
}

func adminPanelMarkup() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "👥 Users", Unique: cbViewUsers},
			{Text: "📥 Download DB", Unique: cbDownloadDB},
		},
		[]keyboard.InlineBtn{
			{Text: "📝 Replace config", Unique: cbSetConfig},
			{Text: "📣 Broadcast", Unique: cbBroadcast},
		},
	)
}
