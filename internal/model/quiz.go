package model

import "time"

// Question is a multiple choice item; CorrectAnswer indexes Options.
type Question struct {
	Question      string   `json:"question" bson:"question" validate:"required"`
	Options       []string `json:"options" bson:"options" validate:"min=2,dive,required"`
	CorrectAnswer int      `json:"correctAnswer" bson:"correctAnswer" validate:"gte=0"`
}

// Quiz is a tutor-authored question bank for one subject.
type Quiz struct {
	ID        string     `json:"id" bson:"_id"`
	Tutor     string     `json:"tutor" bson:"tutor" validate:"required"`
	Subject   string     `json:"subject" bson:"subject" validate:"required"`
	Questions []Question `json:"questions" bson:"questions" validate:"min=1,dive"`
	CreatedAt time.Time  `json:"createdAt" bson:"createdAt"`
}
