package bot

const (
	instructionURL = "https://telegra.ph/vpn-setup-guide"
	supportURL     = "https://t.me/vpn_support_chat"
)

const agreementText = `Welcome! 👋

Before you get access, please read the rules:

• The service is provided as is, without uptime guarantees.
• Do not share your access identifier with anyone.
• Abuse (spam, attacks, illegal content) leads to revocation.

Press the button below to accept and receive your access identifier.`

const menuGreeting = `You are all set ✅

Your access identifier: %s

Use the menu below to get the current configuration or read about the service.`

const futurePlansText = `🔮 Future plans

• More server locations
• Per-user traffic statistics
• Subscription management right in this chat

Stay tuned, announcements will arrive here.`

const plusText = `➕ Plus

Advantages of the service:

• Unlimited traffic
• No logs of your activity
• Fast support via the chat linked in the menu`

const (
	notRegisteredText   = "You are not registered yet. Use /start to begin."
	menuUnavailableText = "Menu unavailable, use /start."
	accessDeniedText    = "This command is available to administrators only."
	cancelledText       = "Cancelled."
	startHintText       = "Use /start to open the menu."
)

const (
	adminPanelText       = "🛠 Admin panel"
	setConfigPromptText  = "Send the new configuration text. It will fully replace the current one. /cancel to abort."
	setConfigDoneText    = "Configuration replaced ✅"
	broadcastTextPrompt  = "Send the broadcast text. /cancel to abort."
	broadcastPhotoPrompt = "Send a photo for the broadcast, or /skip to continue without one."
	broadcastURLPrompt   = "Send a link to attach as a button, or /skip to send without a link."
	broadcastBadURLText  = "That does not look like a link. Send a URL starting with http:// or https://, or /skip."
)
