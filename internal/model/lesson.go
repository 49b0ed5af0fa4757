package model

import "time"

// Lesson statuses.
const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// QuizResult is one answered question copied into a lesson by its tutor.
type QuizResult struct {
	Question  string `json:"question" bson:"question" validate:"required"`
	Answer    string `json:"answer" bson:"answer"`
	IsCorrect bool   `json:"isCorrect" bson:"isCorrect"`
}

// Lesson is a session between one tutor and one student. Both participants
// own it: either may edit scheduling fields, only the tutor writes quiz
// results.
type Lesson struct {
	ID          string       `json:"id" bson:"_id"`
	Tutor       string       `json:"tutor" bson:"tutor" validate:"required"`
	Student     string       `json:"student" bson:"student" validate:"required,nefield=Tutor"`
	Subject     string       `json:"subject" bson:"subject" validate:"required"`
	StartTime   time.Time    `json:"startTime" bson:"startTime" validate:"required"`
	EndTime     time.Time    `json:"endTime" bson:"endTime" validate:"required,gtfield=StartTime"`
	Status      string       `json:"status" bson:"status" validate:"oneof=scheduled completed cancelled"`
	MeetingLink string       `json:"meetingLink,omitempty" bson:"meetingLink,omitempty"`
	Notes       string       `json:"notes,omitempty" bson:"notes,omitempty"`
	Rating      *int         `json:"rating,omitempty" bson:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	Feedback    string       `json:"feedback,omitempty" bson:"feedback,omitempty"`
	QuizResults []QuizResult `json:"quizResults" bson:"quizResults" validate:"dive"`
	CreatedAt   time.Time    `json:"createdAt" bson:"createdAt"`
}

// HasParticipant reports whether userID is the tutor or the student.
func (l *Lesson) HasParticipant(userID string) bool {
	return userID != "" && (l.Tutor == userID || l.Student == userID)
}

// CanTransition reports whether the status may move from `from` to `to`.
// Scheduled lessons may be completed or cancelled; both outcomes are final.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	return from == StatusScheduled && (to == StatusCompleted || to == StatusCancelled)
}

// LessonView is a lesson with both participants expanded.
type LessonView struct {
	ID          string       `json:"id"`
	Tutor       *UserSummary `json:"tutor"`
	Student     *UserSummary `json:"student"`
	Subject     string       `json:"subject"`
	StartTime   time.Time    `json:"startTime"`
	EndTime     time.Time    `json:"endTime"`
	Status      string       `json:"status"`
	MeetingLink string       `json:"meetingLink,omitempty"`
	Notes       string       `json:"notes,omitempty"`
	Rating      *int         `json:"rating,omitempty"`
	Feedback    string       `json:"feedback,omitempty"`
	QuizResults []QuizResult `json:"quizResults"`
	CreatedAt   time.Time    `json:"createdAt"`
}
