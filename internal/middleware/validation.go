package middleware

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxMessageBytes bounds one chat message.
const MaxMessageBytes = 4000

// ValidateMessageText validates a chat message.
func ValidateMessageText(text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("text cannot be empty")
	}
	if len(text) > MaxMessageBytes {
		return errors.New("text exceeds maximum length")
	}
	if !utf8.ValidString(text) {
		return errors.New("text must be valid UTF-8")
	}
	return nil
}

// ValidateSessionID validates a session ID.
func ValidateSessionID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid session ID format")
	}
	return nil
}

// ValidateChannel validates a channel name.
func ValidateChannel(channel string) error {
	if len(channel) > 32 {
		return errors.New("channel exceeds maximum length")
	}
	for _, r := range channel {
		if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '-' && r != '_' {
			return errors.New("channel must be lowercase letters, digits, - or _")
		}
	}
	return nil
}
