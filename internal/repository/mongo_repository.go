package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/iliyamo/tutoring-marketplace/internal/model"
)

// Collection names used by the MongoDB backend.
const (
	usersCollection    = "users"
	messagesCollection = "messages"
	lessonsCollection  = "lessons"
	quizzesCollection  = "quizzes"
)

// EnsureMongoIndexes creates the unique email index plus the indexes backing
// the conversation, lesson and quiz listings. It is idempotent.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "role", Value: 1}, {Key: "profile.rating", Value: -1}}},
		},
		messagesCollection: {
			{Keys: bson.D{{Key: "sender", Value: 1}, {Key: "recipient", Value: 1}, {Key: "timestamp", Value: 1}}},
		},
		lessonsCollection: {
			{Keys: bson.D{{Key: "tutor", Value: 1}, {Key: "startTime", Value: 1}}},
			{Keys: bson.D{{Key: "student", Value: 1}, {Key: "startTime", Value: 1}}},
		},
		quizzesCollection: {
			{Keys: bson.D{{Key: "tutor", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}
	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}

// MongoUserRepo stores users as documents in the `users` collection.
type MongoUserRepo struct{ coll *mongo.Collection }

func NewMongoUserRepo(db *mongo.Database) *MongoUserRepo {
	return &MongoUserRepo{coll: db.Collection(usersCollection)}
}

// Create stores u with its email normalized, so the unique index compares
// addresses the same way GetByEmail looks them up.
func (r *MongoUserRepo) Create(ctx context.Context, u *model.User) error {
	doc := *u
	doc.Email = strings.ToLower(strings.TrimSpace(u.Email))
	doc.Profile.Subjects = nonNilStrings(doc.Profile.Subjects)
	doc.Profile.Availability = nonNilAvailability(doc.Profile.Availability)
	if _, err := r.coll.InsertOne(ctx, &doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailExists
		}
		return err
	}
	return nil
}

func (r *MongoUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUserRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*model.User, error) {
	out := make(map[string]*model.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var users []*model.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	for _, u := range users {
		normalizeUser(u)
		out[u.ID] = u
	}
	return out, nil
}

func (r *MongoUserRepo) UpdateProfile(ctx context.Context, id string, p model.Profile) error {
	p.Subjects = nonNilStrings(p.Subjects)
	p.Availability = nonNilAvailability(p.Availability)
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"profile": p}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *MongoUserRepo) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"lastActive": at}})
	return err
}

// ListTutors matches subject against the profile.subjects array, which
// MongoDB treats as a membership test.
func (r *MongoUserRepo) ListTutors(ctx context.Context, subject string) ([]*model.User, error) {
	filter := bson.M{"role": model.RoleTutor}
	if subject != "" {
		filter["profile.subjects"] = subject
	}
	opts := options.Find().SetSort(bson.D{{Key: "profile.rating", Value: -1}, {Key: "createdAt", Value: 1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	users := []*model.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	for _, u := range users {
		normalizeUser(u)
	}
	return users, nil
}

func (r *MongoUserRepo) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var u model.User
	if err := r.coll.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	normalizeUser(&u)
	return &u, nil
}

func normalizeUser(u *model.User) {
	u.Profile.Subjects = nonNilStrings(u.Profile.Subjects)
	u.Profile.Availability = nonNilAvailability(u.Profile.Availability)
}

// MongoMessageRepo stores messages in the `messages` collection.
type MongoMessageRepo struct{ coll *mongo.Collection }

func NewMongoMessageRepo(db *mongo.Database) *MongoMessageRepo {
	return &MongoMessageRepo{coll: db.Collection(messagesCollection)}
}

func (r *MongoMessageRepo) Create(ctx context.Context, m *model.Message) error {
	_, err := r.coll.InsertOne(ctx, m)
	return err
}

func (r *MongoMessageRepo) GetByID(ctx context.Context, id string) (*model.Message, error) {
	var m model.Message
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *MongoMessageRepo) ListConversation(ctx context.Context, a, b string) ([]*model.Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"sender": a, "recipient": b},
		bson.M{"sender": b, "recipient": a},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	out := []*model.Message{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoMessageRepo) MarkRead(ctx context.Context, sender, recipient string) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"sender": sender, "recipient": recipient, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// MongoLessonRepo stores lessons in the `lessons` collection.
type MongoLessonRepo struct{ coll *mongo.Collection }

func NewMongoLessonRepo(db *mongo.Database) *MongoLessonRepo {
	return &MongoLessonRepo{coll: db.Collection(lessonsCollection)}
}

func (r *MongoLessonRepo) Create(ctx context.Context, l *model.Lesson) error {
	l.QuizResults = nonNilResults(l.QuizResults)
	_, err := r.coll.InsertOne(ctx, l)
	return err
}

func (r *MongoLessonRepo) GetByID(ctx context.Context, id string) (*model.Lesson, error) {
	var l model.Lesson
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&l); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrLessonNotFound
		}
		return nil, err
	}
	l.QuizResults = nonNilResults(l.QuizResults)
	return &l, nil
}

func (r *MongoLessonRepo) ListByParticipant(ctx context.Context, userID string) ([]*model.Lesson, error) {
	filter := bson.M{"$or": bson.A{bson.M{"tutor": userID}, bson.M{"student": userID}}}
	opts := options.Find().SetSort(bson.D{{Key: "startTime", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	out := []*model.Lesson{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	for _, l := range out {
		l.QuizResults = nonNilResults(l.QuizResults)
	}
	return out, nil
}

func (r *MongoLessonRepo) Update(ctx context.Context, l *model.Lesson) error {
	return r.set(ctx, l.ID, bson.M{
		"startTime": l.StartTime,
		"endTime":   l.EndTime,
		"status":    l.Status,
		"notes":     l.Notes,
		"rating":    l.Rating,
		"feedback":  l.Feedback,
	})
}

func (r *MongoLessonRepo) SetMeetingLink(ctx context.Context, id, link string) error {
	return r.set(ctx, id, bson.M{"meetingLink": link})
}

func (r *MongoLessonRepo) SetQuizResults(ctx context.Context, id string, results []model.QuizResult) error {
	return r.set(ctx, id, bson.M{"quizResults": nonNilResults(results)})
}

func (r *MongoLessonRepo) set(ctx context.Context, id string, fields bson.M) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrLessonNotFound
	}
	return nil
}

// MongoQuizRepo stores quizzes in the `quizzes` collection.
type MongoQuizRepo struct{ coll *mongo.Collection }

func NewMongoQuizRepo(db *mongo.Database) *MongoQuizRepo {
	return &MongoQuizRepo{coll: db.Collection(quizzesCollection)}
}

func (r *MongoQuizRepo) Create(ctx context.Context, q *model.Quiz) error {
	_, err := r.coll.InsertOne(ctx, q)
	return err
}

func (r *MongoQuizRepo) GetByID(ctx context.Context, id string) (*model.Quiz, error) {
	var q model.Quiz
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&q); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrQuizNotFound
		}
		return nil, err
	}
	return &q, nil
}

func (r *MongoQuizRepo) ListByTutor(ctx context.Context, tutorID string) ([]*model.Quiz, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.M{"tutor": tutorID}, opts)
	if err != nil {
		return nil, err
	}
	out := []*model.Quiz{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
