package service

import "github.com/iliyamo/tutoring-marketplace/internal/model"

// Ownership rules evaluated after the caller has been identified and before
// any read or write of the target record.
//
// Messages have no rule here: conversation and mark-read queries carry the
// caller id in their predicate, so records the caller is not party to are
// never selected in the first place.

// CanAccessLesson reports whether callerID may read or edit lesson l.
func CanAccessLesson(l *model.Lesson, callerID string) bool {
	return l.HasParticipant(callerID)
}

// CanWriteQuizResults reports whether callerID may replace l's quiz results.
func CanWriteQuizResults(l *model.Lesson, callerID string) bool {
	return callerID != "" && l.Tutor == callerID
}

// CanReadQuiz reports whether callerID may read quiz q.
func CanReadQuiz(q *model.Quiz, callerID string) bool {
	return callerID != "" && q.Tutor == callerID
}
