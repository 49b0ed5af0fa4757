package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tutoring-marketplace/internal/model"
)

func newMock(t *testing.T) (sqlmock.Sqlmock, *UserRepo, *MessageRepo, *LessonRepo) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return mock, NewUserRepo(db), NewMessageRepo(db), NewLessonRepo(db)
}

var userCols = []string{"id", "email", "password_hash", "role", "first_name", "last_name", "avatar", "bio",
	"subjects", "availability", "rating", "price", "is_verified", "last_active", "created_at"}

func TestUserRepoCreateDuplicate(t *testing.T) {
	mock, users, _, _ := newMock(t)
	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	u := &model.User{ID: "u1", Email: "ann@example.com", PasswordHash: "h", Role: model.RoleStudent, Profile: model.NewProfile()}
	assert.ErrorIs(t, users.Create(context.Background(), u), ErrEmailExists)
}

func TestUserRepoGetByEmail(t *testing.T) {
	mock, users, _, _ := newMock(t)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM users WHERE email=\? LIMIT 1`).
		WithArgs("ann@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(
			"u1", "ann@example.com", "hash", "tutor", "Ann", "Lee", "", "",
			[]byte(`["math","physics"]`), []byte(`[{"day":"monday","hours":["09:00"]}]`),
			4.5, 30.0, false, nil, created))

	u, err := users.GetByEmail(context.Background(), "  Ann@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "hash", u.PasswordHash)
	assert.Equal(t, []string{"math", "physics"}, u.Profile.Subjects)
	require.Len(t, u.Profile.Availability, 1)
	assert.Equal(t, "monday", u.Profile.Availability[0].Day)
	assert.Nil(t, u.LastActive)

	mock.ExpectQuery(`FROM users WHERE email=\?`).
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows(userCols))
	_, err = users.GetByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepoListTutorsBySubject(t *testing.T) {
	mock, users, _, _ := newMock(t)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`WHERE role=\? AND JSON_CONTAINS\(subjects, JSON_QUOTE\(\?\)\) ORDER BY rating DESC, created_at ASC`).
		WithArgs("tutor", "math").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("t1", "t1@example.com", "h", "tutor", "", "", "", "", []byte(`["math"]`), []byte(`[]`), 5.0, 20.0, true, nil, created).
			AddRow("t2", "t2@example.com", "h", "tutor", "", "", "", "", []byte(`["math"]`), nil, 3.0, 20.0, false, created, created))

	out, err := users.ListTutors(context.Background(), "math")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "t1", out[0].ID)
	assert.NotNil(t, out[1].Profile.Availability)
	require.NotNil(t, out[1].LastActive)
}

func TestUserRepoUpdateProfileMissing(t *testing.T) {
	mock, users, _, _ := newMock(t)

	mock.ExpectExec("UPDATE users SET first_name").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT 1 FROM users WHERE id=\?`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	assert.ErrorIs(t, users.UpdateProfile(context.Background(), "ghost", model.NewProfile()), ErrUserNotFound)
}

func TestUserRepoUpdateProfileUnchanged(t *testing.T) {
	mock, users, _, _ := newMock(t)

	mock.ExpectExec("UPDATE users SET first_name").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT 1 FROM users WHERE id=\?`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	assert.NoError(t, users.UpdateProfile(context.Background(), "u1", model.NewProfile()))
}

func TestMessageRepoConversationAndMarkRead(t *testing.T) {
	mock, _, messages, _ := newMock(t)
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`WHERE \(sender_id=\? AND recipient_id=\?\) OR \(sender_id=\? AND recipient_id=\?\)\s+ORDER BY sent_at ASC`).
		WithArgs("a", "b", "b", "a").
		WillReturnRows(sqlmock.NewRows([]string{"id", "sender_id", "recipient_id", "content", "sent_at", "is_read"}).
			AddRow("m1", "a", "b", "hi", at, false).
			AddRow("m2", "b", "a", "hey", at.Add(time.Minute), true))

	conv, err := messages.ListConversation(context.Background(), "a", "b")
	require.NoError(t, err)
	require.Len(t, conv, 2)
	assert.Equal(t, "m1", conv[0].ID)
	assert.True(t, conv[1].IsRead)

	mock.ExpectExec(`UPDATE messages SET is_read=1 WHERE sender_id=\? AND recipient_id=\? AND is_read=0`).
		WithArgs("b", "a").
		WillReturnResult(sqlmock.NewResult(0, 3))
	n, err := messages.MarkRead(context.Background(), "b", "a")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestLessonRepoGetByID(t *testing.T) {
	mock, _, _, lessons := newMock(t)
	start := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	cols := []string{"id", "tutor_id", "student_id", "subject", "start_time", "end_time", "status",
		"meeting_link", "notes", "rating", "feedback", "quiz_results", "created_at"}

	mock.ExpectQuery(`FROM lessons WHERE id=\?`).
		WithArgs("l1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"l1", "t", "s", "math", start, start.Add(time.Hour), "scheduled",
			"", "", nil, "", []byte(`[{"question":"q","answer":"a","isCorrect":true}]`), start))

	l, err := lessons.GetByID(context.Background(), "l1")
	require.NoError(t, err)
	assert.Nil(t, l.Rating)
	require.Len(t, l.QuizResults, 1)
	assert.True(t, l.QuizResults[0].IsCorrect)

	mock.ExpectQuery(`FROM lessons WHERE id=\?`).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(cols))
	_, err = lessons.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrLessonNotFound)
}

func TestLessonRepoSetMeetingLink(t *testing.T) {
	mock, _, _, lessons := newMock(t)

	mock.ExpectExec(`UPDATE lessons SET meeting_link=\? WHERE id=\?`).
		WithArgs("https://meet/l1-abc", "l1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, lessons.SetMeetingLink(context.Background(), "l1", "https://meet/l1-abc"))
}
