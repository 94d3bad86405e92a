package models

import "time"

// Topic is a category of user intent.
type Topic string

const (
	TopicProperty  Topic = "property"
	TopicPricing   Topic = "pricing"
	TopicLocation  Topic = "location"
	TopicVisit     Topic = "visit"
	TopicFinancing Topic = "financing"
	TopicContact   Topic = "contact"
	TopicServices  Topic = "services"
	TopicGreeting  Topic = "greeting"
	TopicThanks    Topic = "thanks"
	TopicFallback  Topic = "fallback"
)

// Reply is the structured result of answering one line of user input.
type Reply struct {
	Topic      Topic    `json:"topic"`
	Category   Category `json:"category,omitempty"`
	ListingIDs []string `json:"listing_ids,omitempty"`
	Text       string   `json:"text"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of a conversation transcript.
type Turn struct {
	ID        string    `json:"id" db:"id"`
	SessionID string    `json:"session_id" db:"session_id"`
	Role      Role      `json:"role" db:"role"`
	Text      string    `json:"text" db:"content"`
	Topic     Topic     `json:"topic,omitempty" db:"topic"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Session is a caller-owned chat session. Channel tells where it came from
// (telegram, web).
type Session struct {
	ID         string    `json:"id" db:"id"`
	Channel    string    `json:"channel" db:"channel"`
	ExternalID string    `json:"external_id,omitempty" db:"external_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	LastUsedAt time.Time `json:"last_used_at" db:"last_used_at"`
}
