package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/iliyamo/tutoring-marketplace/internal/model"
)

const lessonColumns = "id, tutor_id, student_id, subject, start_time, end_time, status, " +
	"meeting_link, notes, rating, feedback, quiz_results, created_at"

// LessonRepo stores lessons in the MySQL `lessons` table; quiz results are
// kept in a JSON column.
type LessonRepo struct{ DB *sql.DB }

func NewLessonRepo(db *sql.DB) *LessonRepo { return &LessonRepo{DB: db} }

func (r *LessonRepo) Create(ctx context.Context, l *model.Lesson) error {
	results, err := json.Marshal(nonNilResults(l.QuizResults))
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO lessons ("+lessonColumns+") VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)",
		l.ID, l.Tutor, l.Student, l.Subject, l.StartTime, l.EndTime, l.Status,
		l.MeetingLink, l.Notes, nullRating(l.Rating), l.Feedback, results, l.CreatedAt)
	return err
}

func (r *LessonRepo) GetByID(ctx context.Context, id string) (*model.Lesson, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+lessonColumns+" FROM lessons WHERE id=? LIMIT 1", id)
	return scanLesson(row)
}

// ListByParticipant returns lessons where userID is tutor or student,
// earliest start first.
func (r *LessonRepo) ListByParticipant(ctx context.Context, userID string) ([]*model.Lesson, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+lessonColumns+" FROM lessons WHERE tutor_id=? OR student_id=? ORDER BY start_time ASC, id ASC",
		userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Lesson{}
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Update writes the participant-editable fields of l: schedule, status,
// notes, rating and feedback.
func (r *LessonRepo) Update(ctx context.Context, l *model.Lesson) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE lessons SET start_time=?, end_time=?, status=?, notes=?, rating=?, feedback=?
		 WHERE id=?`,
		l.StartTime, l.EndTime, l.Status, l.Notes, nullRating(l.Rating), l.Feedback, l.ID)
	if err != nil {
		return err
	}
	return expectMatched(ctx, r.DB, res, "SELECT 1 FROM lessons WHERE id=?", l.ID, ErrLessonNotFound)
}

func (r *LessonRepo) SetMeetingLink(ctx context.Context, id, link string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE lessons SET meeting_link=? WHERE id=?", link, id)
	if err != nil {
		return err
	}
	return expectMatched(ctx, r.DB, res, "SELECT 1 FROM lessons WHERE id=?", id, ErrLessonNotFound)
}

func (r *LessonRepo) SetQuizResults(ctx context.Context, id string, results []model.QuizResult) error {
	b, err := json.Marshal(nonNilResults(results))
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, "UPDATE lessons SET quiz_results=? WHERE id=?", b, id)
	if err != nil {
		return err
	}
	return expectMatched(ctx, r.DB, res, "SELECT 1 FROM lessons WHERE id=?", id, ErrLessonNotFound)
}

func scanLesson(s rowScanner) (*model.Lesson, error) {
	var (
		l       model.Lesson
		rating  sql.NullInt64
		results []byte
	)
	err := s.Scan(&l.ID, &l.Tutor, &l.Student, &l.Subject, &l.StartTime, &l.EndTime, &l.Status,
		&l.MeetingLink, &l.Notes, &rating, &l.Feedback, &results, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLessonNotFound
		}
		return nil, err
	}
	if rating.Valid {
		v := int(rating.Int64)
		l.Rating = &v
	}
	if err := unmarshalJSONColumn(results, &l.QuizResults); err != nil {
		return nil, err
	}
	l.QuizResults = nonNilResults(l.QuizResults)
	return &l, nil
}

func nullRating(r *int) sql.NullInt64 {
	if r == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*r), Valid: true}
}

func nonNilResults(r []model.QuizResult) []model.QuizResult {
	if r == nil {
		return []model.QuizResult{}
	}
	return r
}
