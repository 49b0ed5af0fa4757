package service

import (
	"context"
	"time"

	"github.com/iliyamo/tutoring-marketplace/internal/model"
	"github.com/iliyamo/tutoring-marketplace/internal/queue"
	"github.com/iliyamo/tutoring-marketplace/internal/utils"
)

// UserStore is implemented by repository.UserRepo, MongoUserRepo and
// BoltUserRepo.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*model.User, error)
	UpdateProfile(ctx context.Context, id string, p model.Profile) error
	TouchLastActive(ctx context.Context, id string, at time.Time) error
	ListTutors(ctx context.Context, subject string) ([]*model.User, error)
}

type MessageStore interface {
	Create(ctx context.Context, m *model.Message) error
	GetByID(ctx context.Context, id string) (*model.Message, error)
	ListConversation(ctx context.Context, a, b string) ([]*model.Message, error)
	MarkRead(ctx context.Context, sender, recipient string) (int64, error)
}

type LessonStore interface {
	Create(ctx context.Context, l *model.Lesson) error
	GetByID(ctx context.Context, id string) (*model.Lesson, error)
	ListByParticipant(ctx context.Context, userID string) ([]*model.Lesson, error)
	Update(ctx context.Context, l *model.Lesson) error
	SetMeetingLink(ctx context.Context, id, link string) error
	SetQuizResults(ctx context.Context, id string, results []model.QuizResult) error
}

type QuizStore interface {
	Create(ctx context.Context, q *model.Quiz) error
	GetByID(ctx context.Context, id string) (*model.Quiz, error)
	ListByTutor(ctx context.Context, tutorID string) ([]*model.Quiz, error)
}

// Stores bundles one backend's repositories.
type Stores struct {
	Users    UserStore
	Messages MessageStore
	Lessons  LessonStore
	Quizzes  QuizStore
}

// PasswordHasher is the one-way hashing capability; utils.BcryptHasher in
// production.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) bool
}

// TokenSigner issues session tokens; utils.JWTSigner in production.
type TokenSigner interface {
	Sign(userID, role string) (utils.AccessToken, error)
}

// EventPublisher receives activity events after successful writes. A nil
// publisher disables events.
type EventPublisher interface {
	PublishLessonScheduled(ctx context.Context, ev queue.LessonScheduledEvent) error
	PublishMessageSent(ctx context.Context, ev queue.MessageSentEvent) error
}

// DirectoryCache is a cache in front of the tutor directory that must be
// dropped when a tutor record changes; middleware.ResponseCache in
// production. A nil cache is skipped.
type DirectoryCache interface {
	Invalidate(ctx context.Context) error
}
