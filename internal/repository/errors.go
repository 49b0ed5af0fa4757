// Package repository holds the persistence backends. Each collection has a
// MySQL implementation (UserRepo, LessonRepo, ...), a MongoDB implementation
// (MongoUserRepo, ...) and an embedded bbolt implementation (BoltUserRepo,
// ...). All of them return the sentinel errors below so that the service
// layer never has to know which backend is running.
package repository

import "errors"

// ErrEmailExists is returned by user creation when the normalized email is
// already taken.
var ErrEmailExists = errors.New("email already exists")

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrLessonNotFound  = errors.New("lesson not found")
	ErrQuizNotFound    = errors.New("quiz not found")
)
