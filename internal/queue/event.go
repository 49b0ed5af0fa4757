// Package queue defines the activity events exchanged over RabbitMQ, the
// publisher used by the services and the consumer that records them.
package queue

// Queue names. Each event type has its own durable queue.
const (
	LessonScheduledQueue = "lesson.scheduled"
	MessageSentQueue     = "message.sent"
)

// LessonScheduledEvent is published after a lesson has been stored.
type LessonScheduledEvent struct {
	LessonID    string `json:"lesson_id"`
	TutorID     string `json:"tutor_id"`
	StudentID   string `json:"student_id"`
	Subject     string `json:"subject"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	ScheduledBy string `json:"scheduled_by"`
	ScheduledAt string `json:"scheduled_at"`
}

// MessageSentEvent is published after a message has been stored. The body
// of the message is deliberately left out.
type MessageSentEvent struct {
	MessageID   string `json:"message_id"`
	SenderID    string `json:"sender_id"`
	RecipientID string `json:"recipient_id"`
	Length      int    `json:"length"`
	SentAt      string `json:"sent_at"`
}
