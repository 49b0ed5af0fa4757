package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/iliyamo/tutoring-marketplace/internal/model"
)

// QuizRepo stores quizzes in the MySQL `quizzes` table.
type QuizRepo struct{ DB *sql.DB }

func NewQuizRepo(db *sql.DB) *QuizRepo { return &QuizRepo{DB: db} }

func (r *QuizRepo) Create(ctx context.Context, q *model.Quiz) error {
	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO quizzes (id, tutor_id, subject, questions, created_at) VALUES (?,?,?,?,?)",
		q.ID, q.Tutor, q.Subject, questions, q.CreatedAt)
	return err
}

func (r *QuizRepo) GetByID(ctx context.Context, id string) (*model.Quiz, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT id, tutor_id, subject, questions, created_at FROM quizzes WHERE id=? LIMIT 1", id)
	return scanQuiz(row)
}

// ListByTutor returns the tutor's quizzes, newest first.
func (r *QuizRepo) ListByTutor(ctx context.Context, tutorID string) ([]*model.Quiz, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, tutor_id, subject, questions, created_at FROM quizzes WHERE tutor_id=? ORDER BY created_at DESC",
		tutorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Quiz{}
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func scanQuiz(s rowScanner) (*model.Quiz, error) {
	var (
		q         model.Quiz
		questions []byte
	)
	if err := s.Scan(&q.ID, &q.Tutor, &q.Subject, &questions, &q.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuizNotFound
		}
		return nil, err
	}
	if err := unmarshalJSONColumn(questions, &q.Questions); err != nil {
		return nil, err
	}
	return &q, nil
}
