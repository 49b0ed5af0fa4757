package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/tutoring-marketplace/internal/model"
	"github.com/iliyamo/tutoring-marketplace/internal/repository"
)

// TutorService is the read-only tutor directory.
type TutorService struct {
	users UserStore
}

func NewTutorService(users UserStore) *TutorService {
	return &TutorService{users: users}
}

// List returns all tutors, best rated first. Like every directory read it
// exposes only the public summary (id, role, profile).
func (s *TutorService) List(ctx context.Context) ([]*model.UserSummary, error) {
	return s.list(ctx, "")
}

// BySubject returns the tutors whose subjects contain subject exactly.
func (s *TutorService) BySubject(ctx context.Context, subject string) ([]*model.UserSummary, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, invalid("subject is required")
	}
	return s.list(ctx, subject)
}

// Get returns one tutor. Users with another role are reported as missing.
func (s *TutorService) Get(ctx context.Context, id string) (*model.UserSummary, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, notFound("tutor")
		}
		return nil, fmt.Errorf("find tutor: %w", err)
	}
	if u.Role != model.RoleTutor {
		return nil, notFound("tutor")
	}
	return u.Summary(), nil
}

func (s *TutorService) list(ctx context.Context, subject string) ([]*model.UserSummary, error) {
	tutors, err := s.users.ListTutors(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("list tutors: %w", err)
	}
	out := make([]*model.UserSummary, 0, len(tutors))
	for _, u := range tutors {
		out = append(out, u.Summary())
	}
	return out, nil
}
