package bot

import "github.com/episthema/vpnbot/internal/session"

// Conversation states. A chat with no session entry is idle.
const (
	stateAwaitingAgreement session.State = "awaiting_agreement"
	stateMainMenu          session.State = "main_menu"

	// Admin-only flow states.
	stateAwaitingNewConfig      session.State = "awaiting_new_config"
	stateAwaitingBroadcastText  session.State = "awaiting_broadcast_text"
	stateAwaitingBroadcastPhoto session.State = "awaiting_broadcast_photo"
	stateAwaitingBroadcastURL   session.State = "awaiting_broadcast_url"
)

// Session scratch keys used by the broadcast composition flow.
const (
	tempBroadcastText  = "broadcast_text"
	tempBroadcastPhoto = "broadcast_photo"
	tempBroadcastURL   = "broadcast_url"
)

// Callback keys.
const (
	cbAgree       = "agree"
	cbGetConfig   = "get_config"
	cbBackToMenu  = "back_to_menu"
	cbFuturePlans = "future_plans"
	cbPlus        = "plus"

	cbViewUsers  = "view_users"
	cbDownloadDB = "download_db"
	cbSetConfig  = "set_config"
	cbBroadcast  = "broadcast"
)

const skipCommand = "/skip"
