package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/tutoring-marketplace/internal/model"
)

const userColumns = "id, email, password_hash, role, first_name, last_name, avatar, bio, " +
	"subjects, availability, rating, price, is_verified, last_active, created_at"

// UserRepo stores users in the MySQL `users` table. Subjects and
// availability are JSON columns.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts u. A duplicate email (error 1062 on the unique key) is
// reported as ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	subjects, err := json.Marshal(nonNilStrings(u.Profile.Subjects))
	if err != nil {
		return err
	}
	availability, err := json.Marshal(nonNilAvailability(u.Profile.Availability))
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)",
		u.ID, u.Email, u.PasswordHash, u.Role,
		u.Profile.FirstName, u.Profile.LastName, u.Profile.Avatar, u.Profile.Bio,
		subjects, availability, u.Profile.Rating, u.Profile.Price,
		u.IsVerified, nullTime(u.LastActive), u.CreatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrEmailExists
		}
		return err
	}
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := r.DB.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
	return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// GetByIDs loads several users at once. Unknown ids are absent from the map.
func (r *UserRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*model.User, error) {
	out := make(map[string]*model.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id IN ("+placeholders(len(ids))+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	return out, rows.Err()
}

// UpdateProfile overwrites the profile columns of user id.
func (r *UserRepo) UpdateProfile(ctx context.Context, id string, p model.Profile) error {
	subjects, err := json.Marshal(nonNilStrings(p.Subjects))
	if err != nil {
		return err
	}
	availability, err := json.Marshal(nonNilAvailability(p.Availability))
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET first_name=?, last_name=?, avatar=?, bio=?, subjects=?, availability=?, rating=?, price=?
		 WHERE id=?`,
		p.FirstName, p.LastName, p.Avatar, p.Bio, subjects, availability, p.Rating, p.Price, id)
	if err != nil {
		return err
	}
	return expectMatched(ctx, r.DB, res, "SELECT 1 FROM users WHERE id=?", id, ErrUserNotFound)
}

// TouchLastActive records the time of the user's latest sign-in.
func (r *UserRepo) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET last_active=? WHERE id=?", at, id)
	return err
}

// ListTutors returns tutors ordered by rating, best first. A non-empty
// subject restricts the list to tutors whose subjects array contains it.
func (r *UserRepo) ListTutors(ctx context.Context, subject string) ([]*model.User, error) {
	q := "SELECT " + userColumns + " FROM users WHERE role=?"
	args := []interface{}{model.RoleTutor}
	if subject != "" {
		q += " AND JSON_CONTAINS(subjects, JSON_QUOTE(?))"
		args = append(args, subject)
	}
	q += " ORDER BY rating DESC, created_at ASC"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(s rowScanner) (*model.User, error) {
	var (
		u            model.User
		subjects     []byte
		availability []byte
		lastActive   sql.NullTime
	)
	err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role,
		&u.Profile.FirstName, &u.Profile.LastName, &u.Profile.Avatar, &u.Profile.Bio,
		&subjects, &availability, &u.Profile.Rating, &u.Profile.Price,
		&u.IsVerified, &lastActive, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if err := unmarshalJSONColumn(subjects, &u.Profile.Subjects); err != nil {
		return nil, err
	}
	if err := unmarshalJSONColumn(availability, &u.Profile.Availability); err != nil {
		return nil, err
	}
	u.Profile.Subjects = nonNilStrings(u.Profile.Subjects)
	u.Profile.Availability = nonNilAvailability(u.Profile.Availability)
	if lastActive.Valid {
		t := lastActive.Time
		u.LastActive = &t
	}
	return &u, nil
}

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// expectMatched turns a zero-row UPDATE into notFound. MySQL reports rows
// changed rather than rows matched, so an update that rewrites identical
// values needs a follow-up existence check.
func expectMatched(ctx context.Context, db *sql.DB, res sql.Result, existsQuery, id string, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var one int
	if err := db.QueryRowContext(ctx, existsQuery, id).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound
		}
		return err
	}
	return nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func unmarshalJSONColumn(b []byte, v interface{}) error {
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, v)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilAvailability(a []model.Availability) []model.Availability {
	if a == nil {
		return []model.Availability{}
	}
	return a
}
