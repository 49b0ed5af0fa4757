package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order by Migrate. Nested lists (subjects,
// availability, quiz results, quiz questions) live in JSON columns so the
// relational backend keeps the document shape of the records.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            CHAR(36)     NOT NULL PRIMARY KEY,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role          VARCHAR(16)  NOT NULL,
		first_name    VARCHAR(100) NOT NULL DEFAULT '',
		last_name     VARCHAR(100) NOT NULL DEFAULT '',
		avatar        VARCHAR(512) NOT NULL DEFAULT '',
		bio           TEXT         NOT NULL,
		subjects      JSON         NOT NULL,
		availability  JSON         NOT NULL,
		rating        DOUBLE       NOT NULL DEFAULT 0,
		price         DOUBLE       NOT NULL DEFAULT 20,
		is_verified   TINYINT(1)   NOT NULL DEFAULT 0,
		last_active   DATETIME(3)  NULL,
		created_at    DATETIME(3)  NOT NULL,
		UNIQUE KEY uq_users_email (email),
		KEY idx_users_role_rating (role, rating)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS messages (
		id           CHAR(36)    NOT NULL PRIMARY KEY,
		sender_id    CHAR(36)    NOT NULL,
		recipient_id CHAR(36)    NOT NULL,
		content      TEXT        NOT NULL,
		sent_at      DATETIME(3) NOT NULL,
		is_read      TINYINT(1)  NOT NULL DEFAULT 0,
		KEY idx_messages_pair (sender_id, recipient_id, sent_at),
		CONSTRAINT fk_messages_sender FOREIGN KEY (sender_id) REFERENCES users (id),
		CONSTRAINT fk_messages_recipient FOREIGN KEY (recipient_id) REFERENCES users (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS lessons (
		id           CHAR(36)     NOT NULL PRIMARY KEY,
		tutor_id     CHAR(36)     NOT NULL,
		student_id   CHAR(36)     NOT NULL,
		subject      VARCHAR(255) NOT NULL,
		start_time   DATETIME(3)  NOT NULL,
		end_time     DATETIME(3)  NOT NULL,
		status       VARCHAR(16)  NOT NULL DEFAULT 'scheduled',
		meeting_link VARCHAR(512) NOT NULL DEFAULT '',
		notes        TEXT         NOT NULL,
		rating       TINYINT      NULL,
		feedback     TEXT         NOT NULL,
		quiz_results JSON         NOT NULL,
		created_at   DATETIME(3)  NOT NULL,
		KEY idx_lessons_tutor (tutor_id, start_time),
		KEY idx_lessons_student (student_id, start_time),
		CONSTRAINT fk_lessons_tutor FOREIGN KEY (tutor_id) REFERENCES users (id),
		CONSTRAINT fk_lessons_student FOREIGN KEY (student_id) REFERENCES users (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS quizzes (
		id         CHAR(36)     NOT NULL PRIMARY KEY,
		tutor_id   CHAR(36)     NOT NULL,
		subject    VARCHAR(255) NOT NULL,
		questions  JSON         NOT NULL,
		created_at DATETIME(3)  NOT NULL,
		KEY idx_quizzes_tutor (tutor_id, created_at),
		CONSTRAINT fk_quizzes_tutor FOREIGN KEY (tutor_id) REFERENCES users (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the tables used by the MySQL repositories.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
