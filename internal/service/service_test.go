package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/tutoring-marketplace/internal/model"
	"github.com/iliyamo/tutoring-marketplace/internal/queue"
	"github.com/iliyamo/tutoring-marketplace/internal/repository"
	"github.com/iliyamo/tutoring-marketplace/internal/utils"
)

type recordingPublisher struct {
	mu       sync.Mutex
	lessons  []queue.LessonScheduledEvent
	messages []queue.MessageSentEvent
}

func (p *recordingPublisher) PublishLessonScheduled(_ context.Context, ev queue.LessonScheduledEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lessons = append(p.lessons, ev)
	return nil
}

func (p *recordingPublisher) PublishMessageSent(_ context.Context, ev queue.MessageSentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, ev)
	return nil
}

type countingCache struct {
	mu    sync.Mutex
	calls int
}

func (c *countingCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil
}

func (c *countingCache) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type fixture struct {
	stores   Stores
	signer   *utils.JWTSigner
	events   *recordingPublisher
	cache    *countingCache
	auth     *AuthService
	lessons  *LessonService
	messages *MessageService
	tutors   *TutorService
	quizzes  *QuizService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := bbolt.Open(filepath.Join(t.TempDir(), "svc.db"), 0o600, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repository.EnsureBoltBuckets(db))

	stores := Stores{
		Users:    repository.NewBoltUserRepo(db),
		Messages: repository.NewBoltMessageRepo(db),
		Lessons:  repository.NewBoltLessonRepo(db),
		Quizzes:  repository.NewBoltQuizRepo(db),
	}
	signer := utils.NewJWTSigner("test-secret", time.Hour)
	events := &recordingPublisher{}
	cache := &countingCache{}
	return &fixture{
		stores:   stores,
		signer:   signer,
		events:   events,
		cache:    cache,
		auth:     NewAuthService(stores.Users, utils.NewBcryptHasher(bcrypt.MinCost), signer).WithDirectoryCache(cache),
		lessons:  NewLessonService(stores.Lessons, stores.Users, events, "https://meet.test/room/"),
		messages: NewMessageService(stores.Messages, stores.Users, events),
		tutors:   NewTutorService(stores.Users),
		quizzes:  NewQuizService(stores.Quizzes),
	}
}

// register creates an account and returns its id.
func (f *fixture) register(t *testing.T, email, role string, subjects ...string) string {
	t.Helper()
	sess, err := f.auth.Register(context.Background(), RegisterInput{
		Email: email, Password: "secret1", Role: role, Subjects: subjects,
	})
	require.NoError(t, err)
	id, gotRole, err := f.signer.Verify(sess.Token)
	require.NoError(t, err)
	require.Equal(t, role, gotRole)
	return id
}

func (f *fixture) lesson(t *testing.T, caller, tutorID, studentID string) *model.LessonView {
	t.Helper()
	start := time.Now().Add(24 * time.Hour).Truncate(time.Second)
	v, err := f.lessons.Create(context.Background(), caller, CreateLessonInput{
		TutorID: tutorID, StudentID: studentID, Subject: "math",
		StartTime: start, EndTime: start.Add(time.Hour),
	})
	require.NoError(t, err)
	return v
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.register(t, "Tutor@Example.com ", model.RoleTutor, "math", " math ", "", "physics")
	u, err := f.auth.Profile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "tutor@example.com", u.Email)
	assert.Equal(t, []string{"math", "physics"}, u.Profile.Subjects)
	assert.EqualValues(t, model.DefaultPrice, u.Profile.Price)
	assert.EqualValues(t, model.DefaultRating, u.Profile.Rating)
	assert.False(t, u.IsVerified)
	assert.NotNil(t, u.LastActive)

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		_, err := f.auth.Register(ctx, RegisterInput{Email: "tutor@example.com", Password: "another1", Role: model.RoleStudent})
		assert.ErrorIs(t, err, ErrConflict)
		tutors, err := f.tutors.List(ctx)
		require.NoError(t, err)
		assert.Len(t, tutors, 1)
	})

	t.Run("students get no subjects", func(t *testing.T) {
		sid := f.register(t, "student@example.com", model.RoleStudent, "math")
		s, err := f.auth.Profile(ctx, sid)
		require.NoError(t, err)
		assert.Empty(t, s.Profile.Subjects)
	})

	for name, in := range map[string]RegisterInput{
		"missing email":  {Password: "secret1", Role: model.RoleStudent},
		"short password": {Email: "x@example.com", Password: "123", Role: model.RoleStudent},
		"admin role":     {Email: "x@example.com", Password: "secret1", Role: model.RoleAdmin},
		"bad email":      {Email: "not-an-email", Password: "secret1", Role: model.RoleStudent},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.auth.Register(ctx, in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "ann@example.com", model.RoleStudent)

	sess, err := f.auth.Login(ctx, LoginInput{Email: " ANN@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), sess.Expires, 5*time.Second)

	_, wrongPassword := f.auth.Login(ctx, LoginInput{Email: "ann@example.com", Password: "nope-nope"})
	_, unknownEmail := f.auth.Login(ctx, LoginInput{Email: "bob@example.com", Password: "secret1"})
	require.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	require.ErrorIs(t, unknownEmail, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestUpdateProfileIsPartial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "tutor@example.com", model.RoleTutor, "math")

	price := 45.0
	avail := []model.Availability{{Day: "monday", Hours: []string{"09:00", "10:00"}}}
	_, err := f.auth.UpdateProfile(ctx, id, ProfileUpdate{Price: &price, Availability: &avail})
	require.NoError(t, err)

	bio := "x"
	u, err := f.auth.UpdateProfile(ctx, id, ProfileUpdate{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "x", u.Profile.Bio)
	assert.EqualValues(t, 45, u.Profile.Price)
	assert.Equal(t, []string{"math"}, u.Profile.Subjects)
	assert.Equal(t, avail, u.Profile.Availability)

	zero := 0.0
	empty := ""
	u, err = f.auth.UpdateProfile(ctx, id, ProfileUpdate{Price: &zero, Bio: &empty})
	require.NoError(t, err)
	assert.Zero(t, u.Profile.Price, "present zero values are applied")
	assert.Empty(t, u.Profile.Bio)

	stored, err := f.auth.Profile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, u.Profile, stored.Profile)

	negative := -5.0
	_, err = f.auth.UpdateProfile(ctx, id, ProfileUpdate{Price: &negative})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.auth.UpdateProfile(ctx, "missing", ProfileUpdate{Bio: &bio})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLessonAccessRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tutorID := f.register(t, "tutor@example.com", model.RoleTutor, "math")
	studentID := f.register(t, "student@example.com", model.RoleStudent)
	outsider := f.register(t, "outsider@example.com", model.RoleStudent)

	l := f.lesson(t, studentID, tutorID, studentID)
	assert.Equal(t, model.StatusScheduled, l.Status)
	require.NotNil(t, l.Tutor)
	assert.Equal(t, tutorID, l.Tutor.ID)
	require.Len(t, f.events.lessons, 1)
	assert.Equal(t, studentID, f.events.lessons[0].ScheduledBy)

	notes := "bring a calculator"
	t.Run("outsider is rejected", func(t *testing.T) {
		_, err := f.lessons.Get(ctx, outsider, l.ID)
		assert.ErrorIs(t, err, ErrForbidden)
		_, err = f.lessons.Update(ctx, outsider, l.ID, LessonUpdate{Notes: &notes})
		assert.ErrorIs(t, err, ErrForbidden)
		_, err = f.lessons.GenerateLink(ctx, outsider, l.ID)
		assert.ErrorIs(t, err, ErrForbidden)
		mine, err := f.lessons.List(ctx, outsider)
		require.NoError(t, err)
		assert.Empty(t, mine)
	})

	t.Run("participants may update", func(t *testing.T) {
		v, err := f.lessons.Update(ctx, studentID, l.ID, LessonUpdate{Notes: &notes})
		require.NoError(t, err)
		assert.Equal(t, notes, v.Notes)

		link, err := f.lessons.GenerateLink(ctx, tutorID, l.ID)
		require.NoError(t, err)
		assert.Regexp(t, `^https://meet\.test/room/`+l.ID+`-[0-9a-z]{9}$`, link)

		again, err := f.lessons.GenerateLink(ctx, studentID, l.ID)
		require.NoError(t, err)
		assert.NotEqual(t, link, again)
		got, err := f.lessons.Get(ctx, tutorID, l.ID)
		require.NoError(t, err)
		assert.Equal(t, again, got.MeetingLink)
	})

	t.Run("quiz results are tutor only", func(t *testing.T) {
		results := []model.QuizResult{{Question: "2+2", Answer: "4", IsCorrect: true}}
		_, err := f.lessons.SubmitQuizResults(ctx, studentID, l.ID, results)
		assert.ErrorIs(t, err, ErrForbidden)

		v, err := f.lessons.SubmitQuizResults(ctx, tutorID, l.ID, results)
		require.NoError(t, err)
		assert.Equal(t, results, v.QuizResults)
	})

	t.Run("unknown lesson", func(t *testing.T) {
		_, err := f.lessons.Get(ctx, tutorID, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = f.lessons.SubmitQuizResults(ctx, tutorID, "missing", []model.QuizResult{})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestLessonStatusTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tutorID := f.register(t, "tutor@example.com", model.RoleTutor)
	studentID := f.register(t, "student@example.com", model.RoleStudent)
	l := f.lesson(t, tutorID, tutorID, studentID)

	status := func(s string) *string { return &s }

	_, err := f.lessons.Update(ctx, tutorID, l.ID, LessonUpdate{Status: status("pending")})
	assert.ErrorIs(t, err, ErrValidation)

	v, err := f.lessons.Update(ctx, tutorID, l.ID, LessonUpdate{Status: status(model.StatusCompleted)})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, v.Status)

	_, err = f.lessons.Update(ctx, tutorID, l.ID, LessonUpdate{Status: status(model.StatusScheduled)})
	assert.ErrorIs(t, err, ErrValidation)

	rating := 5
	v, err = f.lessons.Update(ctx, studentID, l.ID, LessonUpdate{Status: status(model.StatusCompleted), Rating: &rating})
	require.NoError(t, err)
	require.NotNil(t, v.Rating)
	assert.Equal(t, 5, *v.Rating)

	early := l.StartTime.Add(-2 * time.Hour)
	_, err = f.lessons.Update(ctx, tutorID, l.ID, LessonUpdate{EndTime: &early})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLessonCreateRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tutorID := f.register(t, "tutor@example.com", model.RoleTutor)
	studentID := f.register(t, "student@example.com", model.RoleStudent)
	other := f.register(t, "other@example.com", model.RoleStudent)
	start := time.Now().Add(time.Hour)

	in := CreateLessonInput{TutorID: tutorID, StudentID: studentID, Subject: "math", StartTime: start, EndTime: start.Add(time.Hour)}

	_, err := f.lessons.Create(ctx, other, in)
	assert.ErrorIs(t, err, ErrForbidden)

	swapped := in
	swapped.TutorID, swapped.StudentID = studentID, tutorID
	_, err = f.lessons.Create(ctx, studentID, swapped)
	assert.ErrorIs(t, err, ErrNotFound, "the named tutor must hold the tutor role")

	ghost := in
	ghost.StudentID = "ghost"
	_, err = f.lessons.Create(ctx, tutorID, ghost)
	assert.ErrorIs(t, err, ErrNotFound)

	backwards := in
	backwards.EndTime = start.Add(-time.Minute)
	_, err = f.lessons.Create(ctx, tutorID, backwards)
	assert.ErrorIs(t, err, ErrValidation)

	assert.Empty(t, f.events.lessons)
}

func TestLessonListOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tutorID := f.register(t, "tutor@example.com", model.RoleTutor)
	studentID := f.register(t, "student@example.com", model.RoleStudent)
	base := time.Now().Add(24 * time.Hour).Truncate(time.Second)

	for _, offset := range []time.Duration{48 * time.Hour, 0, 24 * time.Hour} {
		_, err := f.lessons.Create(ctx, tutorID, CreateLessonInput{
			TutorID: tutorID, StudentID: studentID, Subject: "math",
			StartTime: base.Add(offset), EndTime: base.Add(offset + time.Hour),
		})
		require.NoError(t, err)
	}

	list, err := f.lessons.List(ctx, studentID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i := 1; i < len(list); i++ {
		assert.True(t, list[i-1].StartTime.Before(list[i].StartTime))
	}
	assert.Equal(t, studentID, list[0].Student.ID)
}

func TestMessaging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "a@example.com", model.RoleStudent)
	b := f.register(t, "b@example.com", model.RoleTutor)
	c := f.register(t, "c@example.com", model.RoleStudent)

	send := func(from, to, text string) *model.MessageView {
		t.Helper()
		m, err := f.messages.Send(ctx, from, SendMessageInput{Recipient: to, Content: text})
		require.NoError(t, err)
		return m
	}
	first := send(a, b, "hello")
	send(b, a, "hi there")
	send(c, a, "unrelated")
	send(a, b, "question")

	require.NotNil(t, first.Sender)
	assert.Equal(t, a, first.Sender.ID)
	assert.Equal(t, b, first.Recipient.ID)
	assert.False(t, first.IsRead)
	require.Len(t, f.events.messages, 4)
	assert.Equal(t, 5, f.events.messages[0].Length)

	conv, err := f.messages.Conversation(ctx, b, a)
	require.NoError(t, err)
	require.Len(t, conv, 3)
	var contents []string
	for i, m := range conv {
		contents = append(contents, m.Content)
		if i > 0 {
			assert.False(t, m.Timestamp.Before(conv[i-1].Timestamp))
		}
	}
	assert.Equal(t, []string{"hello", "hi there", "question"}, contents)

	n, err := f.messages.MarkRead(ctx, b, a)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	// b's own message to a is untouched by b marking a's messages read.
	conv, err = f.messages.Conversation(ctx, a, b)
	require.NoError(t, err)
	for _, m := range conv {
		assert.Equal(t, m.Sender.ID == a, m.IsRead, m.Content)
	}

	_, err = f.messages.Send(ctx, a, SendMessageInput{Recipient: b, Content: "   "})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.messages.Send(ctx, a, SendMessageInput{Recipient: "ghost", Content: "hey"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.messages.MarkRead(ctx, a, "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTutorDirectory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	math := f.register(t, "m@example.com", model.RoleTutor, "math")
	f.register(t, "p@example.com", model.RoleTutor, "physics")
	student := f.register(t, "s@example.com", model.RoleStudent)

	all, err := f.tutors.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	bySubject, err := f.tutors.BySubject(ctx, "math")
	require.NoError(t, err)
	require.Len(t, bySubject, 1)
	assert.Equal(t, math, bySubject[0].ID)

	none, err := f.tutors.BySubject(ctx, "chemistry")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	got, err := f.tutors.Get(ctx, math)
	require.NoError(t, err)
	assert.Equal(t, math, got.ID)
	assert.Equal(t, model.RoleTutor, got.Role)

	_, err = f.tutors.Get(ctx, student)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.tutors.Get(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQuizzes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tutorID := f.register(t, "t@example.com", model.RoleTutor)
	otherTutor := f.register(t, "t2@example.com", model.RoleTutor)
	studentID := f.register(t, "s@example.com", model.RoleStudent)

	in := CreateQuizInput{
		Subject:   "math",
		Questions: []model.Question{{Question: "2+2?", Options: []string{"3", "4"}, CorrectAnswer: 1}},
	}
	_, err := f.quizzes.Create(ctx, studentID, model.RoleStudent, in)
	assert.ErrorIs(t, err, ErrForbidden)

	q, err := f.quizzes.Create(ctx, tutorID, model.RoleTutor, in)
	require.NoError(t, err)
	assert.Equal(t, tutorID, q.Tutor)

	bad := in
	bad.Questions = []model.Question{{Question: "?", Options: []string{"only"}}}
	_, err = f.quizzes.Create(ctx, tutorID, model.RoleTutor, bad)
	assert.ErrorIs(t, err, ErrValidation)

	got, err := f.quizzes.Get(ctx, tutorID, q.ID)
	require.NoError(t, err)
	assert.Equal(t, "math", got.Subject)

	_, err = f.quizzes.Get(ctx, otherTutor, q.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.quizzes.Get(ctx, tutorID, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	mine, err := f.quizzes.ListMine(ctx, tutorID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	theirs, err := f.quizzes.ListMine(ctx, otherTutor)
	require.NoError(t, err)
	assert.Empty(t, theirs)
}

func TestTutorWritesInvalidateDirectory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	student := f.register(t, "s@example.com", model.RoleStudent)
	assert.Equal(t, 0, f.cache.count(), "student registration leaves the directory alone")

	tutorID := f.register(t, "t@example.com", model.RoleTutor, "math")
	assert.Equal(t, 1, f.cache.count())

	bio := "ten years of algebra"
	_, err := f.auth.UpdateProfile(ctx, tutorID, ProfileUpdate{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, 2, f.cache.count())

	_, err = f.auth.UpdateProfile(ctx, student, ProfileUpdate{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, 2, f.cache.count())

	bad := -1.0
	_, err = f.auth.UpdateProfile(ctx, tutorID, ProfileUpdate{Price: &bad})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 2, f.cache.count(), "rejected updates do not invalidate")
}
