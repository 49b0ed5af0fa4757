package repository

import (
	"context"
	"encoding/json"
	"slices"
	"sort"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iliyamo/tutoring-marketplace/internal/model"
)

// Bucket names of the embedded store. Every record is a JSON document keyed
// by its id; usersByEmail maps a normalized email to a user id and is what
// makes email uniqueness atomic.
var (
	usersBucket        = []byte("Users")
	usersByEmailBucket = []byte("UsersByEmail")
	messagesBucket     = []byte("Messages")
	lessonsBucket      = []byte("Lessons")
	quizzesBucket      = []byte("Quizzes")
)

// EnsureBoltBuckets creates the buckets used by the Bolt repositories.
func EnsureBoltBuckets(db *bbolt.DB) error {
	return db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{usersBucket, usersByEmailBucket, messagesBucket, lessonsBucket, quizzesBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
}

// boltUser keeps the password hash that model.User hides from JSON.
type boltUser struct {
	model.User
	PasswordHash string `json:"passwordHash"`
}

func (b boltUser) toModel() *model.User {
	u := b.User
	u.PasswordHash = b.PasswordHash
	normalizeUser(&u)
	return &u
}

// BoltUserRepo stores users in the embedded bbolt file.
type BoltUserRepo struct{ db *bbolt.DB }

func NewBoltUserRepo(db *bbolt.DB) *BoltUserRepo { return &BoltUserRepo{db: db} }

func (r *BoltUserRepo) Create(_ context.Context, u *model.User) error {
	email := strings.ToLower(strings.TrimSpace(u.Email))
	body, err := json.Marshal(boltUser{User: *u, PasswordHash: u.PasswordHash})
	if err != nil {
		return err
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		idx := tx.Bucket(usersByEmailBucket)
		if idx.Get([]byte(email)) != nil {
			return ErrEmailExists
		}
		if err := idx.Put([]byte(email), []byte(u.ID)); err != nil {
			return err
		}
		return tx.Bucket(usersBucket).Put([]byte(u.ID), body)
	})
}

func (r *BoltUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var out *model.User
	err := r.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(usersByEmailBucket).Get([]byte(email))
		if id == nil {
			return ErrUserNotFound
		}
		u, err := getBoltUser(tx, string(id))
		out = u
		return err
	})
	return out, err
}

func (r *BoltUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	var out *model.User
	err := r.db.View(func(tx *bbolt.Tx) error {
		u, err := getBoltUser(tx, id)
		out = u
		return err
	})
	return out, err
}

func (r *BoltUserRepo) GetByIDs(_ context.Context, ids []string) (map[string]*model.User, error) {
	out := make(map[string]*model.User, len(ids))
	err := r.db.View(func(tx *bbolt.Tx) error {
		for _, id := range ids {
			u, err := getBoltUser(tx, id)
			if err == ErrUserNotFound {
				continue
			}
			if err != nil {
				return err
			}
			out[id] = u
		}
		return nil
	})
	return out, err
}

func (r *BoltUserRepo) UpdateProfile(_ context.Context, id string, p model.Profile) error {
	return r.mutate(id, func(u *model.User) { u.Profile = p })
}

func (r *BoltUserRepo) TouchLastActive(_ context.Context, id string, at time.Time) error {
	return r.mutate(id, func(u *model.User) { u.LastActive = &at })
}

func (r *BoltUserRepo) ListTutors(_ context.Context, subject string) ([]*model.User, error) {
	out := []*model.User{}
	err := r.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(usersBucket).ForEach(func(_, v []byte) error {
			var rec boltUser
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if rec.Role != model.RoleTutor {
				return nil
			}
			if subject != "" && !slices.Contains(rec.Profile.Subjects, subject) {
				return nil
			}
			out = append(out, rec.toModel())
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Profile.Rating != out[j].Profile.Rating {
			return out[i].Profile.Rating > out[j].Profile.Rating
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *BoltUserRepo) mutate(id string, fn func(*model.User)) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		u, err := getBoltUser(tx, id)
		if err != nil {
			return err
		}
		fn(u)
		body, err := json.Marshal(boltUser{User: *u, PasswordHash: u.PasswordHash})
		if err != nil {
			return err
		}
		return tx.Bucket(usersBucket).Put([]byte(id), body)
	})
}

func getBoltUser(tx *bbolt.Tx, id string) (*model.User, error) {
	v := tx.Bucket(usersBucket).Get([]byte(id))
	if v == nil {
		return nil, ErrUserNotFound
	}
	var rec boltUser
	if err := json.Unmarshal(v, &rec); err != nil {
		return nil, err
	}
	return rec.toModel(), nil
}

// BoltMessageRepo stores messages in the embedded bbolt file.
type BoltMessageRepo struct{ db *bbolt.DB }

func NewBoltMessageRepo(db *bbolt.DB) *BoltMessageRepo { return &BoltMessageRepo{db: db} }

func (r *BoltMessageRepo) Create(_ context.Context, m *model.Message) error {
	return boltPut(r.db, messagesBucket, m.ID, m)
}

func (r *BoltMessageRepo) GetByID(_ context.Context, id string) (*model.Message, error) {
	var m model.Message
	if err := boltGet(r.db, messagesBucket, id, &m, ErrMessageNotFound); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *BoltMessageRepo) ListConversation(_ context.Context, a, b string) ([]*model.Message, error) {
	out := []*model.Message{}
	err := boltScan(r.db, messagesBucket, func(v []byte) error {
		var m model.Message
		if err := json.Unmarshal(v, &m); err != nil {
			return err
		}
		if (m.Sender == a && m.Recipient == b) || (m.Sender == b && m.Recipient == a) {
			out = append(out, &m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *BoltMessageRepo) MarkRead(_ context.Context, sender, recipient string) (int64, error) {
	var n int64
	err := r.db.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(messagesBucket)
		updates := map[string][]byte{}
		err := bkt.ForEach(func(k, v []byte) error {
			var m model.Message
			if err := json.Unmarshal(v, &m); err != nil {
				return err
			}
			if m.Sender != sender || m.Recipient != recipient || m.IsRead {
				return nil
			}
			m.IsRead = true
			body, err := json.Marshal(&m)
			if err != nil {
				return err
			}
			updates[string(k)] = body
			return nil
		})
		if err != nil {
			return err
		}
		// bbolt forbids writes while iterating, so apply after the scan.
		for k, body := range updates {
			if err := bkt.Put([]byte(k), body); err != nil {
				return err
			}
		}
		n = int64(len(updates))
		return nil
	})
	return n, err
}

// BoltLessonRepo stores lessons in the embedded bbolt file.
type BoltLessonRepo struct{ db *bbolt.DB }

func NewBoltLessonRepo(db *bbolt.DB) *BoltLessonRepo { return &BoltLessonRepo{db: db} }

func (r *BoltLessonRepo) Create(_ context.Context, l *model.Lesson) error {
	l.QuizResults = nonNilResults(l.QuizResults)
	return boltPut(r.db, lessonsBucket, l.ID, l)
}

func (r *BoltLessonRepo) GetByID(_ context.Context, id string) (*model.Lesson, error) {
	var l model.Lesson
	if err := boltGet(r.db, lessonsBucket, id, &l, ErrLessonNotFound); err != nil {
		return nil, err
	}
	l.QuizResults = nonNilResults(l.QuizResults)
	return &l, nil
}

func (r *BoltLessonRepo) ListByParticipant(_ context.Context, userID string) ([]*model.Lesson, error) {
	out := []*model.Lesson{}
	err := boltScan(r.db, lessonsBucket, func(v []byte) error {
		var l model.Lesson
		if err := json.Unmarshal(v, &l); err != nil {
			return err
		}
		if l.HasParticipant(userID) {
			l.QuizResults = nonNilResults(l.QuizResults)
			out = append(out, &l)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *BoltLessonRepo) Update(_ context.Context, l *model.Lesson) error {
	return r.mutate(l.ID, func(cur *model.Lesson) {
		cur.StartTime = l.StartTime
		cur.EndTime = l.EndTime
		cur.Status = l.Status
		cur.Notes = l.Notes
		cur.Rating = l.Rating
		cur.Feedback = l.Feedback
	})
}

func (r *BoltLessonRepo) SetMeetingLink(_ context.Context, id, link string) error {
	return r.mutate(id, func(cur *model.Lesson) { cur.MeetingLink = link })
}

func (r *BoltLessonRepo) SetQuizResults(_ context.Context, id string, results []model.QuizResult) error {
	return r.mutate(id, func(cur *model.Lesson) { cur.QuizResults = nonNilResults(results) })
}

func (r *BoltLessonRepo) mutate(id string, fn func(*model.Lesson)) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(lessonsBucket)
		v := bkt.Get([]byte(id))
		if v == nil {
			return ErrLessonNotFound
		}
		var l model.Lesson
		if err := json.Unmarshal(v, &l); err != nil {
			return err
		}
		fn(&l)
		body, err := json.Marshal(&l)
		if err != nil {
			return err
		}
		return bkt.Put([]byte(id), body)
	})
}

// BoltQuizRepo stores quizzes in the embedded bbolt file.
type BoltQuizRepo struct{ db *bbolt.DB }

func NewBoltQuizRepo(db *bbolt.DB) *BoltQuizRepo { return &BoltQuizRepo{db: db} }

func (r *BoltQuizRepo) Create(_ context.Context, q *model.Quiz) error {
	return boltPut(r.db, quizzesBucket, q.ID, q)
}

func (r *BoltQuizRepo) GetByID(_ context.Context, id string) (*model.Quiz, error) {
	var q model.Quiz
	if err := boltGet(r.db, quizzesBucket, id, &q, ErrQuizNotFound); err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *BoltQuizRepo) ListByTutor(_ context.Context, tutorID string) ([]*model.Quiz, error) {
	out := []*model.Quiz{}
	err := boltScan(r.db, quizzesBucket, func(v []byte) error {
		var q model.Quiz
		if err := json.Unmarshal(v, &q); err != nil {
			return err
		}
		if q.Tutor == tutorID {
			out = append(out, &q)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func boltPut(db *bbolt.DB, bucket []byte, id string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(id), body)
	})
}

func boltGet(db *bbolt.DB, bucket []byte, id string, dst interface{}, notFound error) error {
	return db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucket).Get([]byte(id))
		if v == nil {
			return notFound
		}
		return json.Unmarshal(v, dst)
	})
}

func boltScan(db *bbolt.DB, bucket []byte, fn func(v []byte) error) error {
	return db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(_, v []byte) error { return fn(v) })
	})
}
