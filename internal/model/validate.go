package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// The stores are plain persistence: uniqueness aside, none of them enforce
// enums, ranges or required fields. Every write goes through one of the
// Validate functions below first.

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func ValidateUser(u *User) error {
	return describe(validate.Struct(u))
}

func ValidateProfile(p *Profile) error {
	return describe(validate.Struct(p))
}

func ValidateMessage(m *Message) error {
	return describe(validate.Struct(m))
}

func ValidateLesson(l *Lesson) error {
	return describe(validate.Struct(l))
}

func ValidateQuizResults(results []QuizResult) error {
	for i := range results {
		if err := describe(validate.Struct(&results[i])); err != nil {
			return fmt.Errorf("quizResults[%d]: %w", i, err)
		}
	}
	return nil
}

func ValidateQuiz(q *Quiz) error {
	if err := describe(validate.Struct(q)); err != nil {
		return err
	}
	for i, item := range q.Questions {
		if item.CorrectAnswer >= len(item.Options) {
			return fmt.Errorf("questions[%d].correctAnswer must index one of %d options", i, len(item.Options))
		}
	}
	return nil
}

// describe flattens validator output into one readable line.
func describe(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "gtfield":
		return field + " must be after " + lowerFirst(fe.Param())
	case "nefield":
		return field + " must differ from " + lowerFirst(fe.Param())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s needs at least %s entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
