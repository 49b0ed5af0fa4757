package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/tutoring-marketplace/internal/model"
	"github.com/iliyamo/tutoring-marketplace/internal/queue"
	"github.com/iliyamo/tutoring-marketplace/internal/repository"
	"github.com/iliyamo/tutoring-marketplace/internal/utils"
)

// meetingSuffixLen is the number of random base-36 characters appended to
// the lesson id in a meeting link.
const meetingSuffixLen = 9

type CreateLessonInput struct {
	TutorID   string    `json:"tutorId"`
	StudentID string    `json:"studentId"`
	Subject   string    `json:"subject"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// LessonUpdate lists the editable lesson fields. Nil means absent.
type LessonUpdate struct {
	StartTime *time.Time `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`
	Status    *string    `json:"status"`
	Notes     *string    `json:"notes"`
	Rating    *int       `json:"rating"`
	Feedback  *string    `json:"feedback"`
}

type LessonService struct {
	lessons        LessonStore
	users          UserStore
	events         EventPublisher
	meetingBaseURL string
	now            func() time.Time
	randomSuffix   func(n int) (string, error)
}

func NewLessonService(lessons LessonStore, users UserStore, events EventPublisher, meetingBaseURL string) *LessonService {
	return &LessonService{
		lessons:        lessons,
		users:          users,
		events:         events,
		meetingBaseURL: strings.TrimRight(meetingBaseURL, "/"),
		now:            time.Now,
		randomSuffix:   utils.RandomBase36,
	}
}

// List returns every lesson the caller takes part in, earliest start first.
func (s *LessonService) List(ctx context.Context, callerID string) ([]*model.LessonView, error) {
	lessons, err := s.lessons.ListByParticipant(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return s.views(ctx, lessons)
}

// Get returns one lesson if the caller is a participant.
func (s *LessonService) Get(ctx context.Context, callerID, lessonID string) (*model.LessonView, error) {
	l, err := s.load(ctx, callerID, lessonID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, l)
}

// Create schedules a lesson between an existing tutor and student. The
// caller must be one of the two.
func (s *LessonService) Create(ctx context.Context, callerID string, in CreateLessonInput) (*model.LessonView, error) {
	l := &model.Lesson{
		ID:          uuid.NewString(),
		Tutor:       strings.TrimSpace(in.TutorID),
		Student:     strings.TrimSpace(in.StudentID),
		Subject:     strings.TrimSpace(in.Subject),
		StartTime:   in.StartTime.UTC(),
		EndTime:     in.EndTime.UTC(),
		Status:      model.StatusScheduled,
		QuizResults: []model.QuizResult{},
		CreatedAt:   s.now().UTC(),
	}
	if err := model.ValidateLesson(l); err != nil {
		return nil, invalidErr(err)
	}
	if !CanAccessLesson(l, callerID) {
		return nil, ErrForbidden
	}

	tutor, err := s.users.GetByID(ctx, l.Tutor)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("find tutor: %w", err)
	}
	if tutor == nil || tutor.Role != model.RoleTutor {
		return nil, notFound("tutor")
	}
	student, err := s.users.GetByID(ctx, l.Student)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, notFound("student")
		}
		return nil, fmt.Errorf("find student: %w", err)
	}

	if err := s.lessons.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("create lesson: %w", err)
	}
	s.publishScheduled(ctx, l, callerID)

	v := lessonView(l, map[string]*model.User{tutor.ID: tutor, student.ID: student})
	return v, nil
}

// Update applies the present fields of upd. Status changes must follow
// model.CanTransition and the resulting times must still be ordered.
func (s *LessonService) Update(ctx context.Context, callerID, lessonID string, upd LessonUpdate) (*model.LessonView, error) {
	l, err := s.load(ctx, callerID, lessonID)
	if err != nil {
		return nil, err
	}
	if upd.StartTime != nil {
		l.StartTime = upd.StartTime.UTC()
	}
	if upd.EndTime != nil {
		l.EndTime = upd.EndTime.UTC()
	}
	if upd.Status != nil {
		next := strings.ToLower(strings.TrimSpace(*upd.Status))
		if !model.CanTransition(l.Status, next) {
			return nil, invalid("cannot change status from %s to %s", l.Status, next)
		}
		l.Status = next
	}
	if upd.Notes != nil {
		l.Notes = *upd.Notes
	}
	if upd.Rating != nil {
		r := *upd.Rating
		l.Rating = &r
	}
	if upd.Feedback != nil {
		l.Feedback = *upd.Feedback
	}
	if err := model.ValidateLesson(l); err != nil {
		return nil, invalidErr(err)
	}
	if err := s.lessons.Update(ctx, l); err != nil {
		if errors.Is(err, repository.ErrLessonNotFound) {
			return nil, notFound("lesson")
		}
		return nil, fmt.Errorf("update lesson: %w", err)
	}
	return s.view(ctx, l)
}

// GenerateLink stores a fresh meeting link on the lesson and returns it.
// Every call replaces the previous link.
func (s *LessonService) GenerateLink(ctx context.Context, callerID, lessonID string) (string, error) {
	l, err := s.load(ctx, callerID, lessonID)
	if err != nil {
		return "", err
	}
	suffix, err := s.randomSuffix(meetingSuffixLen)
	if err != nil {
		return "", fmt.Errorf("meeting suffix: %w", err)
	}
	link := fmt.Sprintf("%s/%s-%s", s.meetingBaseURL, l.ID, suffix)
	if err := s.lessons.SetMeetingLink(ctx, l.ID, link); err != nil {
		if errors.Is(err, repository.ErrLessonNotFound) {
			return "", notFound("lesson")
		}
		return "", fmt.Errorf("save meeting link: %w", err)
	}
	return link, nil
}

// SubmitQuizResults replaces the lesson's quiz results. Only the lesson's
// tutor may do this.
func (s *LessonService) SubmitQuizResults(ctx context.Context, callerID, lessonID string, results []model.QuizResult) (*model.LessonView, error) {
	if results == nil {
		return nil, invalid("quizResults is required")
	}
	l, err := s.lessons.GetByID(ctx, lessonID)
	if err != nil {
		if errors.Is(err, repository.ErrLessonNotFound) {
			return nil, notFound("lesson")
		}
		return nil, fmt.Errorf("find lesson: %w", err)
	}
	if !CanWriteQuizResults(l, callerID) {
		return nil, ErrForbidden
	}
	if err := model.ValidateQuizResults(results); err != nil {
		return nil, invalidErr(err)
	}
	if err := s.lessons.SetQuizResults(ctx, l.ID, results); err != nil {
		if errors.Is(err, repository.ErrLessonNotFound) {
			return nil, notFound("lesson")
		}
		return nil, fmt.Errorf("save quiz results: %w", err)
	}
	l.QuizResults = results
	return s.view(ctx, l)
}

// load fetches a lesson and applies the participant rule.
func (s *LessonService) load(ctx context.Context, callerID, lessonID string) (*model.Lesson, error) {
	l, err := s.lessons.GetByID(ctx, lessonID)
	if err != nil {
		if errors.Is(err, repository.ErrLessonNotFound) {
			return nil, notFound("lesson")
		}
		return nil, fmt.Errorf("find lesson: %w", err)
	}
	if !CanAccessLesson(l, callerID) {
		return nil, ErrForbidden
	}
	return l, nil
}

func (s *LessonService) view(ctx context.Context, l *model.Lesson) (*model.LessonView, error) {
	views, err := s.views(ctx, []*model.Lesson{l})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// views expands participants with one batched user lookup.
func (s *LessonService) views(ctx context.Context, lessons []*model.Lesson) ([]*model.LessonView, error) {
	out := make([]*model.LessonView, 0, len(lessons))
	if len(lessons) == 0 {
		return out, nil
	}
	ids := make([]string, 0, 2*len(lessons))
	for _, l := range lessons {
		ids = append(ids, l.Tutor, l.Student)
	}
	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}
	for _, l := range lessons {
		out = append(out, lessonView(l, users))
	}
	return out, nil
}

func lessonView(l *model.Lesson, users map[string]*model.User) *model.LessonView {
	results := l.QuizResults
	if results == nil {
		results = []model.QuizResult{}
	}
	return &model.LessonView{
		ID:          l.ID,
		Tutor:       users[l.Tutor].Summary(),
		Student:     users[l.Student].Summary(),
		Subject:     l.Subject,
		StartTime:   l.StartTime,
		EndTime:     l.EndTime,
		Status:      l.Status,
		MeetingLink: l.MeetingLink,
		Notes:       l.Notes,
		Rating:      l.Rating,
		Feedback:    l.Feedback,
		QuizResults: results,
		CreatedAt:   l.CreatedAt,
	}
}

func (s *LessonService) publishScheduled(ctx context.Context, l *model.Lesson, by string) {
	if s.events == nil {
		return
	}
	ev := queue.LessonScheduledEvent{
		LessonID:    l.ID,
		TutorID:     l.Tutor,
		StudentID:   l.Student,
		Subject:     l.Subject,
		StartTime:   l.StartTime.Format(time.RFC3339),
		EndTime:     l.EndTime.Format(time.RFC3339),
		ScheduledBy: by,
		ScheduledAt: s.now().UTC().Format(time.RFC3339),
	}
	if err := s.events.PublishLessonScheduled(ctx, ev); err != nil {
		log.Printf("lessons: publish lesson.scheduled for %s: %v", l.ID, err)
	}
}
