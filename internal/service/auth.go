package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/tutoring-marketplace/internal/model"
	"github.com/iliyamo/tutoring-marketplace/internal/repository"
)

const minPasswordLen = 6

// RegisterInput is the registration payload.
type RegisterInput struct {
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	Role      string   `json:"role"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Subjects  []string `json:"subjects"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is what register and login hand back to the client.
type Session struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// ProfileUpdate carries the profile fields present in an update request. A
// nil field was absent and is left alone; a non-nil field is applied even
// when it holds a zero value.
type ProfileUpdate struct {
	FirstName    *string               `json:"firstName"`
	LastName     *string               `json:"lastName"`
	Avatar       *string               `json:"avatar"`
	Bio          *string               `json:"bio"`
	Subjects     *[]string             `json:"subjects"`
	Availability *[]model.Availability `json:"availability"`
	Price        *float64              `json:"price"`
}

// AuthService owns registration, login and the caller's own profile.
type AuthService struct {
	users  UserStore
	hasher PasswordHasher
	tokens TokenSigner
	now    func() time.Time

	directory DirectoryCache

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(users UserStore, hasher PasswordHasher, tokens TokenSigner) *AuthService {
	return &AuthService{users: users, hasher: hasher, tokens: tokens, now: time.Now}
}

// WithDirectoryCache makes registration and profile changes of tutors drop
// the cached tutor directory.
func (s *AuthService) WithDirectoryCache(c DirectoryCache) *AuthService {
	s.directory = c
	return s
}

// Register creates an account and opens a session for it. Only students and
// tutors may self-register; subjects are kept for tutors only.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (Session, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return Session{}, invalid("email and password are required")
	}
	if len(in.Password) < minPasswordLen {
		return Session{}, invalid("password must be at least %d characters", minPasswordLen)
	}
	role := strings.ToLower(strings.TrimSpace(in.Role))
	if role != model.RoleStudent && role != model.RoleTutor {
		return Session{}, invalid("role must be one of [student tutor]")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	profile := model.NewProfile()
	profile.FirstName = strings.TrimSpace(in.FirstName)
	profile.LastName = strings.TrimSpace(in.LastName)
	if role == model.RoleTutor {
		profile.Subjects = cleanSubjects(in.Subjects)
	}
	u := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Profile:      profile,
		LastActive:   &now,
		CreatedAt:    now,
	}
	if err := model.ValidateUser(u); err != nil {
		return Session{}, invalidErr(err)
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return Session{}, ErrConflict
		}
		return Session{}, fmt.Errorf("create user: %w", err)
	}
	s.tutorChanged(ctx, u)
	return s.issue(u)
}

// Login verifies credentials. Unknown email and wrong password fail the
// same way and take comparable time.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (Session, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return Session{}, invalid("email and password are required")
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.hasher.Compare(s.dummy(), in.Password)
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("find user: %w", err)
	}
	if !s.hasher.Compare(u.PasswordHash, in.Password) {
		return Session{}, ErrInvalidCredentials
	}
	if err := s.users.TouchLastActive(ctx, u.ID, s.now().UTC()); err != nil {
		log.Printf("auth: touch last active for %s: %v", u.ID, err)
	}
	return s.issue(u)
}

// Profile returns the caller's own record.
func (s *AuthService) Profile(ctx context.Context, userID string) (*model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, notFound("user")
		}
		return nil, err
	}
	return u, nil
}

// UpdateProfile applies the present fields of upd to the caller's profile
// and returns the updated record.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*model.User, error) {
	u, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := u.Profile
	if upd.FirstName != nil {
		p.FirstName = strings.TrimSpace(*upd.FirstName)
	}
	if upd.LastName != nil {
		p.LastName = strings.TrimSpace(*upd.LastName)
	}
	if upd.Avatar != nil {
		p.Avatar = strings.TrimSpace(*upd.Avatar)
	}
	if upd.Bio != nil {
		p.Bio = *upd.Bio
	}
	if upd.Subjects != nil {
		p.Subjects = cleanSubjects(*upd.Subjects)
	}
	if upd.Availability != nil {
		p.Availability = *upd.Availability
		if p.Availability == nil {
			p.Availability = []model.Availability{}
		}
	}
	if upd.Price != nil {
		p.Price = *upd.Price
	}
	if err := model.ValidateProfile(&p); err != nil {
		return nil, invalidErr(err)
	}
	if err := s.users.UpdateProfile(ctx, userID, p); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, notFound("user")
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	u.Profile = p
	s.tutorChanged(ctx, u)
	return u, nil
}

// tutorChanged invalidates the directory cache after a tutor write. A
// failure is logged; the write itself already succeeded.
func (s *AuthService) tutorChanged(ctx context.Context, u *model.User) {
	if s.directory == nil || u.Role != model.RoleTutor {
		return
	}
	if err := s.directory.Invalidate(ctx); err != nil {
		log.Printf("auth: invalidate tutor directory after %s: %v", u.ID, err)
	}
}

func (s *AuthService) issue(u *model.User) (Session, error) {
	tok, err := s.tokens.Sign(u.ID, u.Role)
	if err != nil {
		return Session{}, fmt.Errorf("sign token: %w", err)
	}
	return Session{Token: tok.Token, Expires: tok.Exp}, nil
}

// dummy is a throwaway hash compared against on unknown emails.
func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash(uuid.NewString())
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

// cleanSubjects trims entries, drops blanks and duplicates, keeps order.
func cleanSubjects(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
