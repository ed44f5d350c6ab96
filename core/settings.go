package core

// Settings represents the runtime identity of one bot instance.
type Settings struct {
	Pair     string           // Trading pair to monitor, e.g. BTCUSDT
	Mode     Mode             // paper or live execution
	Telegram TelegramSettings // Telegram notification settings
}

// TelegramSettings holds configuration for Telegram integration.
type TelegramSettings struct {
	Enabled bool   // Whether Telegram notifications are enabled
	Token   string // Telegram bot token
	Users   []int  // List of authorized user IDs
}
