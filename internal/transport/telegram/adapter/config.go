package adapter

import "time"

// Config configures the Telegram transport.
type Config struct {
	Token       string
	PollTimeout time.Duration // long-poll timeout; 0 means 10s
}
