package model

import "time"

// Message is a directed note from Sender to Recipient. Only IsRead ever
// changes after creation, and only through the recipient.
type Message struct {
	ID        string    `json:"id" bson:"_id"`
	Sender    string    `json:"sender" bson:"sender" validate:"required"`
	Recipient string    `json:"recipient" bson:"recipient" validate:"required"`
	Content   string    `json:"content" bson:"content" validate:"required"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp" validate:"required"`
	IsRead    bool      `json:"isRead" bson:"isRead"`
}

// MessageView is a message with both parties expanded.
type MessageView struct {
	ID        string       `json:"id"`
	Sender    *UserSummary `json:"sender"`
	Recipient *UserSummary `json:"recipient"`
	Content   string       `json:"content"`
	Timestamp time.Time    `json:"timestamp"`
	IsRead    bool         `json:"isRead"`
}
