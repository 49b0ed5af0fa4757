package model

import "time"

// Roles a user may hold. The role is fixed at registration.
const (
	RoleStudent = "student"
	RoleTutor   = "tutor"
	RoleAdmin   = "admin"
)

// Profile defaults applied at registration.
const (
	DefaultRating = 0
	DefaultPrice  = 20
)

// Availability is one weekday entry of a tutor's schedule, e.g.
// {"day": "monday", "hours": ["09:00", "10:00"]}.
type Availability struct {
	Day   string   `json:"day" bson:"day" validate:"required"`
	Hours []string `json:"hours" bson:"hours"`
}

// Profile is the user-editable part of a User.
type Profile struct {
	FirstName    string         `json:"firstName" bson:"firstName"`
	LastName     string         `json:"lastName" bson:"lastName"`
	Avatar       string         `json:"avatar,omitempty" bson:"avatar,omitempty"`
	Bio          string         `json:"bio,omitempty" bson:"bio,omitempty"`
	Subjects     []string       `json:"subjects" bson:"subjects" validate:"dive,required"`
	Availability []Availability `json:"availability" bson:"availability" validate:"dive"`
	Rating       float64        `json:"rating" bson:"rating" validate:"gte=0,lte=5"`
	Price        float64        `json:"price" bson:"price" validate:"gte=0"`
}

// User is an account record. PasswordHash never leaves the server.
type User struct {
	ID           string     `json:"id" bson:"_id"`
	Email        string     `json:"email" bson:"email" validate:"required,email"`
	PasswordHash string     `json:"-" bson:"password" validate:"required"`
	Role         string     `json:"role" bson:"role" validate:"oneof=student tutor admin"`
	Profile      Profile    `json:"profile" bson:"profile"`
	IsVerified   bool       `json:"isVerified" bson:"isVerified"`
	LastActive   *time.Time `json:"lastActive,omitempty" bson:"lastActive,omitempty"`
	CreatedAt    time.Time  `json:"createdAt" bson:"createdAt"`
}

// NewProfile returns a profile carrying the registration defaults.
func NewProfile() Profile {
	return Profile{
		Subjects:     []string{},
		Availability: []Availability{},
		Rating:       DefaultRating,
		Price:        DefaultPrice,
	}
}

// UserSummary is the public slice of a user embedded in lesson and message
// responses.
type UserSummary struct {
	ID      string  `json:"id"`
	Role    string  `json:"role"`
	Profile Profile `json:"profile"`
}

func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{ID: u.ID, Role: u.Role, Profile: u.Profile}
}

// ValidRole reports whether r is one of the known roles.
func ValidRole(r string) bool {
	return r == RoleStudent || r == RoleTutor || r == RoleAdmin
}
