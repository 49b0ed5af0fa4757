package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/iliyamo/tutoring-marketplace/internal/model"
	"github.com/iliyamo/tutoring-marketplace/internal/queue"
	"github.com/iliyamo/tutoring-marketplace/internal/repository"
)

type SendMessageInput struct {
	Recipient string `json:"recipient"`
	Content   string `json:"content"`
}

type MessageService struct {
	messages MessageStore
	users    UserStore
	events   EventPublisher
	now      func() time.Time
}

func NewMessageService(messages MessageStore, users UserStore, events EventPublisher) *MessageService {
	return &MessageService{messages: messages, users: users, events: events, now: time.Now}
}

// Conversation returns every message exchanged between the caller and
// otherID in either direction, oldest first.
func (s *MessageService) Conversation(ctx context.Context, callerID, otherID string) ([]*model.MessageView, error) {
	otherID = strings.TrimSpace(otherID)
	if otherID == "" {
		return nil, invalid("userId is required")
	}
	msgs, err := s.messages.ListConversation(ctx, callerID, otherID)
	if err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}
	out := make([]*model.MessageView, 0, len(msgs))
	if len(msgs) == 0 {
		return out, nil
	}
	users, err := s.users.GetByIDs(ctx, []string{callerID, otherID})
	if err != nil {
		return nil, fmt.Errorf("load parties: %w", err)
	}
	for _, m := range msgs {
		out = append(out, messageView(m, users))
	}
	return out, nil
}

// Send stores a message from the caller to an existing recipient and
// returns it re-read from the store.
func (s *MessageService) Send(ctx context.Context, callerID string, in SendMessageInput) (*model.MessageView, error) {
	m := &model.Message{
		ID:        uuid.NewString(),
		Sender:    callerID,
		Recipient: strings.TrimSpace(in.Recipient),
		Content:   strings.TrimSpace(in.Content),
		Timestamp: s.now().UTC(),
	}
	if err := model.ValidateMessage(m); err != nil {
		return nil, invalidErr(err)
	}
	if _, err := s.users.GetByID(ctx, m.Recipient); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, notFound("recipient")
		}
		return nil, fmt.Errorf("find recipient: %w", err)
	}
	if err := s.messages.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	s.publishSent(ctx, m)

	stored, err := s.messages.GetByID(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("reload message: %w", err)
	}
	users, err := s.users.GetByIDs(ctx, []string{stored.Sender, stored.Recipient})
	if err != nil {
		return nil, fmt.Errorf("load parties: %w", err)
	}
	return messageView(stored, users), nil
}

// MarkRead flags every unread message senderID sent to the caller as read
// and reports how many changed. Messages in the other direction are never
// touched.
func (s *MessageService) MarkRead(ctx context.Context, callerID, senderID string) (int64, error) {
	senderID = strings.TrimSpace(senderID)
	if senderID == "" {
		return 0, invalid("senderId is required")
	}
	n, err := s.messages.MarkRead(ctx, senderID, callerID)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return n, nil
}

func messageView(m *model.Message, users map[string]*model.User) *model.MessageView {
	return &model.MessageView{
		ID:        m.ID,
		Sender:    users[m.Sender].Summary(),
		Recipient: users[m.Recipient].Summary(),
		Content:   m.Content,
		Timestamp: m.Timestamp,
		IsRead:    m.IsRead,
	}
}

func (s *MessageService) publishSent(ctx context.Context, m *model.Message) {
	if s.events == nil {
		return
	}
	ev := queue.MessageSentEvent{
		MessageID:   m.ID,
		SenderID:    m.Sender,
		RecipientID: m.Recipient,
		Length:      utf8.RuneCountInString(m.Content),
		SentAt:      m.Timestamp.Format(time.RFC3339),
	}
	if err := s.events.PublishMessageSent(ctx, ev); err != nil {
		log.Printf("messages: publish message.sent for %s: %v", m.ID, err)
	}
}
