package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/tutoring-marketplace/internal/model"
	"github.com/iliyamo/tutoring-marketplace/internal/repository"
)

type CreateQuizInput struct {
	Subject   string           `json:"subject"`
	Questions []model.Question `json:"questions"`
}

// QuizService manages tutor-authored quizzes. A quiz is visible to its
// author only.
type QuizService struct {
	quizzes QuizStore
	now     func() time.Time
}

func NewQuizService(quizzes QuizStore) *QuizService {
	return &QuizService{quizzes: quizzes, now: time.Now}
}

func (s *QuizService) Create(ctx context.Context, callerID, callerRole string, in CreateQuizInput) (*model.Quiz, error) {
	if callerRole != model.RoleTutor {
		return nil, ErrForbidden
	}
	q := &model.Quiz{
		ID:        uuid.NewString(),
		Tutor:     callerID,
		Subject:   strings.TrimSpace(in.Subject),
		Questions: in.Questions,
		CreatedAt: s.now().UTC(),
	}
	if err := model.ValidateQuiz(q); err != nil {
		return nil, invalidErr(err)
	}
	if err := s.quizzes.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create quiz: %w", err)
	}
	return q, nil
}

// ListMine returns the caller's quizzes, newest first.
func (s *QuizService) ListMine(ctx context.Context, callerID string) ([]*model.Quiz, error) {
	qs, err := s.quizzes.ListByTutor(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	if qs == nil {
		qs = []*model.Quiz{}
	}
	return qs, nil
}

func (s *QuizService) Get(ctx context.Context, callerID, quizID string) (*model.Quiz, error) {
	q, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, repository.ErrQuizNotFound) {
			return nil, notFound("quiz")
		}
		return nil, fmt.Errorf("find quiz: %w", err)
	}
	if !CanReadQuiz(q, callerID) {
		return nil, ErrForbidden
	}
	return q, nil
}
