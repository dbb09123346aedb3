package model

import "time"

// Channel identifies where an inbound message came from.
type Channel string

// Channel constants.
const (
	ChannelSMS      Channel = "sms"
	ChannelTelegram Channel = "telegram"
	ChannelAPI      Channel = "api"
	ChannelCLI      Channel = "cli"
)

// InboundMessage is a piece of free text received from a user.
type InboundMessage struct {
	ReceivedAt time.Time
	Channel    Channel
	Sender     string
	Text       string
	ChatID     int64 // Telegram only
}
