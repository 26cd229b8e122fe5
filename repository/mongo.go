package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"citizenconnect/apperrors"
	"citizenconnect/models"
)

const queryTimeout = 10 * time.Second

const (
	issuesCollection        = "issues"
	votesCollection         = "votes"
	leadersCollection       = "leaders"
	announcementsCollection = "announcements"
	usersCollection         = "users"
)

func wrapMongo(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", what, apperrors.ErrNotFound)
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s: %w", what, apperrors.ErrConflict)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// NewMongoStores returns a Stores bundle backed by db.
func NewMongoStores(db *mongo.Database) Stores {
	return Stores{
		Issues:        NewMongoIssueStore(db),
		Leaders:       &MongoLeaderStore{collection: db.Collection(leadersCollection)},
		Announcements: &MongoAnnouncementStore{collection: db.Collection(announcementsCollection)},
		Users:         &MongoUserStore{collection: db.Collection(usersCollection)},
	}
}

// EnsureIndexes creates the unique and lookup indexes the stores rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	if err := models.EnsureVoteIndex(ctx, db.Collection(votesCollection)); err != nil {
		return fmt.Errorf("votes index: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	indexes := map[string][]mongo.IndexModel{
		issuesCollection: {
			{Keys: bson.D{{Key: "ticketId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "createdBy", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "location.district", Value: 1}, {Key: "status", Value: 1}}},
		},
		leadersCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "location.district", Value: 1}, {Key: "level", Value: 1}}},
		},
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		announcementsCollection: {
			{Keys: bson.D{{Key: "leaderId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}
	for name, idx := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("%s indexes: %w", name, err)
		}
	}
	return nil
}

// MongoIssueStore stores issues in one collection and votes in another.
type MongoIssueStore struct {
	issues *mongo.Collection
	votes  *mongo.Collection
}

func NewMongoIssueStore(db *mongo.Database) *MongoIssueStore {
	return &MongoIssueStore{
		issues: db.Collection(issuesCollection),
		votes:  db.Collection(votesCollection),
	}
}

func (s *MongoIssueStore) Create(ctx context.Context, issue *models.Issue) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if issue.ID.IsZero() {
		issue.ID = primitive.NewObjectID()
	}
	_, err := s.issues.InsertOne(ctx, issue)
	return wrapMongo(err, "insert issue")
}

func (s *MongoIssueStore) findOne(ctx context.Context, filter bson.M, what string) (*models.Issue, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var issue models.Issue
	if err := s.issues.FindOne(ctx, filter).Decode(&issue); err != nil {
		return nil, wrapMongo(err, what)
	}
	return &issue, nil
}

func (s *MongoIssueStore) Get(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	return s.findOne(ctx, bson.M{"_id": id}, "issue "+id.Hex())
}

func (s *MongoIssueStore) GetByTicket(ctx context.Context, ticketID string) (*models.Issue, error) {
	return s.findOne(ctx, bson.M{"ticketId": ticketID}, "ticket "+ticketID)
}

func issueQuery(f models.IssueFilter) bson.M {
	filter := bson.M{}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.District != "" {
		filter["location.district"] = f.District
	}
	if f.CreatedBy != nil {
		filter["createdBy"] = *f.CreatedBy
	}
	var and []bson.M
	if f.Search != "" {
		pattern := regexp.QuoteMeta(f.Search)
		and = append(and, bson.M{"$or": []bson.M{
			{"title": bson.M{"$regex": pattern, "$options": "i"}},
			{"description": bson.M{"$regex": pattern, "$options": "i"}},
		}})
	}
	if f.VisibleTo != nil {
		and = append(and, bson.M{"$or": []bson.M{
			{"isPrivate": false},
			{"createdBy": *f.VisibleTo},
		}})
	}
	if len(and) > 0 {
		filter["$and"] = and
	}
	return filter
}

func (s *MongoIssueStore) List(ctx context.Context, f models.IssueFilter) ([]models.Issue, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := issueQuery(f)
	page, limit := normalizePage(f.Page, f.Limit)

	sortOrder := -1
	if f.Oldest {
		sortOrder = 1
	}

	total, err := s.issues.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, wrapMongo(err, "count issues")
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: sortOrder}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := s.issues.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, wrapMongo(err, "find issues")
	}
	defer func() { _ = cursor.Close(ctx) }()

	issues := []models.Issue{}
	if err := cursor.All(ctx, &issues); err != nil {
		return nil, 0, wrapMongo(err, "decode issues")
	}

	for i := range issues {
		count, err := s.votes.CountDocuments(ctx, bson.M{"issue": issues[i].ID})
		if err == nil {
			issues[i].Votes = count
		}
	}
	return issues, total, nil
}

func (s *MongoIssueStore) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.IssueStatus) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := s.issues.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now()}})
	if err != nil {
		return wrapMongo(err, "update issue status")
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("issue %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	return nil
}

// versionMiss tells a missing issue apart from a stale version after a
// versioned update matched nothing.
func (s *MongoIssueStore) versionMiss(ctx context.Context, id primitive.ObjectID, expected int64) error {
	count, err := s.issues.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return wrapMongo(err, "check issue")
	}
	if count == 0 {
		return fmt.Errorf("issue %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	return fmt.Errorf("issue %s moved past version %d: %w", id.Hex(), expected, apperrors.ErrConflict)
}

func (s *MongoIssueStore) UpdateDetails(ctx context.Context, issue *models.Issue, expectedVersion int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"title":       issue.Title,
		"description": issue.Description,
		"category":    issue.Category,
		"priority":    issue.Priority,
		"location":    issue.Location,
		"isPrivate":   issue.IsPrivate,
		"isAnonymous": issue.IsAnonymous,
		"attachments": issue.Attachments,
		"updatedAt":   time.Now(),
	}}

	res, err := s.issues.UpdateOne(ctx, bson.M{"_id": issue.ID, "replyVersion": expectedVersion}, update)
	if err != nil {
		return wrapMongo(err, "update issue")
	}
	if res.MatchedCount == 0 {
		return s.versionMiss(ctx, issue.ID, expectedVersion)
	}
	return nil
}

// Delete removes an issue and its votes.
func (s *MongoIssueStore) Delete(ctx context.Context, id primitive.ObjectID, expectedVersion int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := s.issues.DeleteOne(ctx, bson.M{"_id": id, "replyVersion": expectedVersion})
	if err != nil {
		return wrapMongo(err, "delete issue")
	}
	if res.DeletedCount == 0 {
		return s.versionMiss(ctx, id, expectedVersion)
	}

	// Delete associated votes
	_, _ = s.votes.DeleteMany(ctx, bson.M{"issue": id})
	return nil
}

func (s *MongoIssueStore) AppendReply(ctx context.Context, id primitive.ObjectID, expectedVersion int64, reply models.GovernmentReply, status models.IssueStatus) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "replyVersion": expectedVersion}
	update := bson.M{
		"$push": bson.M{"governmentReplies": reply},
		"$inc":  bson.M{"replyVersion": 1},
		"$set":  bson.M{"status": status, "updatedAt": time.Now()},
	}

	res, err := s.issues.UpdateOne(ctx, filter, update)
	if err != nil {
		return wrapMongo(err, "append reply")
	}
	if res.MatchedCount == 0 {
		return s.versionMiss(ctx, id, expectedVersion)
	}
	return nil
}

func replyFilter(replyID string) *options.UpdateOptions {
	return options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"r.id": replyID}},
	})
}

func (s *MongoIssueStore) SetFollowUpResponse(ctx context.Context, id primitive.ObjectID, expectedVersion int64, replyID string, resp models.UserFollowUpResponse) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "replyVersion": expectedVersion, "governmentReplies.id": replyID}
	update := bson.M{
		"$set": bson.M{"governmentReplies.$[r].followUpResponse": resp, "updatedAt": time.Now()},
		"$inc": bson.M{"replyVersion": 1},
	}

	res, err := s.issues.UpdateOne(ctx, filter, update, replyFilter(replyID))
	if err != nil {
		return wrapMongo(err, "set followup response")
	}
	if res.MatchedCount == 0 {
		return s.versionMiss(ctx, id, expectedVersion)
	}
	return nil
}

func (s *MongoIssueStore) AddReplyComment(ctx context.Context, id primitive.ObjectID, replyID string, comment models.Comment) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "governmentReplies.id": replyID}
	update := bson.M{"$push": bson.M{"governmentReplies.$[r].comments": comment}}

	res, err := s.issues.UpdateOne(ctx, filter, update, replyFilter(replyID))
	if err != nil {
		return wrapMongo(err, "add reply comment")
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("reply %s on issue %s: %w", replyID, id.Hex(), apperrors.ErrNotFound)
	}
	return nil
}

func (s *MongoIssueStore) AddComment(ctx context.Context, id primitive.ObjectID, comment models.Comment) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := s.issues.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$push": bson.M{"comments": comment}})
	if err != nil {
		return wrapMongo(err, "add comment")
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("issue %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	return nil
}

// ToggleVote votes if the user has not voted yet and removes the vote otherwise.
func (s *MongoIssueStore) ToggleVote(ctx context.Context, id, userID primitive.ObjectID) (bool, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	exists, err := s.issues.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, 0, wrapMongo(err, "check issue")
	}
	if exists == 0 {
		return false, 0, fmt.Errorf("issue %s: %w", id.Hex(), apperrors.ErrNotFound)
	}

	key := bson.M{"issue": id, "user": userID}
	res, err := s.votes.DeleteOne(ctx, key)
	if err != nil {
		return false, 0, wrapMongo(err, "remove vote")
	}

	voted := false
	if res.DeletedCount == 0 {
		vote := models.Vote{ID: primitive.NewObjectID(), Issue: id, User: userID, CreatedAt: time.Now()}
		if _, err := s.votes.InsertOne(ctx, vote); err != nil && !mongo.IsDuplicateKeyError(err) {
			return false, 0, wrapMongo(err, "cast vote")
		}
		voted = true
	}

	count, err := s.votes.CountDocuments(ctx, bson.M{"issue": id})
	if err != nil {
		return voted, 0, wrapMongo(err, "count votes")
	}
	return voted, count, nil
}

func (s *MongoIssueStore) VoteInfo(ctx context.Context, id, userID primitive.ObjectID) (int64, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	count, err := s.votes.CountDocuments(ctx, bson.M{"issue": id})
	if err != nil {
		return 0, false, wrapMongo(err, "count votes")
	}
	mine, err := s.votes.CountDocuments(ctx, bson.M{"issue": id, "user": userID})
	if err != nil {
		return count, false, wrapMongo(err, "check vote")
	}
	return count, mine > 0, nil
}

// MongoLeaderStore stores leaders.
type MongoLeaderStore struct {
	collection *mongo.Collection
}

func (s *MongoLeaderStore) Create(ctx context.Context, leader *models.Leader) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if leader.ID.IsZero() {
		leader.ID = primitive.NewObjectID()
	}
	_, err := s.collection.InsertOne(ctx, leader)
	return wrapMongo(err, "insert leader")
}

func (s *MongoLeaderStore) findOne(ctx context.Context, filter bson.M, what string) (*models.Leader, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var l models.Leader
	if err := s.collection.FindOne(ctx, filter).Decode(&l); err != nil {
		return nil, wrapMongo(err, what)
	}
	return &l, nil
}

func (s *MongoLeaderStore) Get(ctx context.Context, id primitive.ObjectID) (*models.Leader, error) {
	return s.findOne(ctx, bson.M{"_id": id}, "leader "+id.Hex())
}

func (s *MongoLeaderStore) GetByUser(ctx context.Context, userID primitive.ObjectID) (*models.Leader, error) {
	return s.findOne(ctx, bson.M{"userId": userID}, "leader for user "+userID.Hex())
}

func (s *MongoLeaderStore) Search(ctx context.Context, f models.LeaderFilter) ([]models.Leader, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{}
	if f.Level != "" {
		filter["level"] = f.Level
	}
	if f.District != "" {
		filter["location.district"] = f.District
	}
	if f.Query != "" {
		pattern := regexp.QuoteMeta(f.Query)
		filter["$or"] = []bson.M{
			{"name": bson.M{"$regex": pattern, "$options": "i"}},
			{"title": bson.M{"$regex": pattern, "$options": "i"}},
		}
	}

	cursor, err := s.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}).SetLimit(50))
	if err != nil {
		return nil, wrapMongo(err, "search leaders")
	}
	defer func() { _ = cursor.Close(ctx) }()

	leaders := []models.Leader{}
	if err := cursor.All(ctx, &leaders); err != nil {
		return nil, wrapMongo(err, "decode leaders")
	}
	return leaders, nil
}

// MongoAnnouncementStore stores announcements.
type MongoAnnouncementStore struct {
	collection *mongo.Collection
}

func (s *MongoAnnouncementStore) Create(ctx context.Context, a *models.Announcement) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	_, err := s.collection.InsertOne(ctx, a)
	return wrapMongo(err, "insert announcement")
}

func (s *MongoAnnouncementStore) Update(ctx context.Context, a *models.Announcement) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := s.collection.ReplaceOne(ctx, bson.M{"_id": a.ID}, a)
	if err != nil {
		return wrapMongo(err, "update announcement")
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("announcement %s: %w", a.ID.Hex(), apperrors.ErrNotFound)
	}
	return nil
}

func (s *MongoAnnouncementStore) Get(ctx context.Context, id primitive.ObjectID) (*models.Announcement, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var a models.Announcement
	if err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return nil, wrapMongo(err, "announcement "+id.Hex())
	}
	return &a, nil
}

func (s *MongoAnnouncementStore) List(ctx context.Context, f models.AnnouncementFilter) ([]models.Announcement, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{}
	if f.LeaderID != nil {
		filter["leaderId"] = *f.LeaderID
	}
	if f.ActiveOnly {
		filter["$or"] = []bson.M{
			{"expiresAt": bson.M{"$exists": false}},
			{"expiresAt": nil},
			{"expiresAt": bson.M{"$gt": time.Now()}},
		}
	}
	if f.Search != "" {
		pattern := regexp.QuoteMeta(f.Search)
		search := bson.M{"$or": []bson.M{
			{"title": bson.M{"$regex": pattern, "$options": "i"}},
			{"content": bson.M{"$regex": pattern, "$options": "i"}},
		}}
		if existing, ok := filter["$or"]; ok {
			delete(filter, "$or")
			filter["$and"] = []bson.M{{"$or": existing}, search}
		} else {
			filter["$or"] = search["$or"]
		}
	}

	cursor, err := s.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, wrapMongo(err, "find announcements")
	}
	defer func() { _ = cursor.Close(ctx) }()

	out := []models.Announcement{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, wrapMongo(err, "decode announcements")
	}
	return out, nil
}

// MongoUserStore stores accounts.
type MongoUserStore struct {
	collection *mongo.Collection
}

func (s *MongoUserStore) Create(ctx context.Context, user *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	count, err := s.collection.CountDocuments(ctx, bson.M{"email": user.Email})
	if err != nil {
		return wrapMongo(err, "check existing user")
	}
	if count > 0 {
		return fmt.Errorf("email %s: %w", user.Email, apperrors.ErrConflict)
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	_, err = s.collection.InsertOne(ctx, user)
	return wrapMongo(err, "insert user")
}

func (s *MongoUserStore) Get(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var u models.User
	if err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, wrapMongo(err, "user "+id.Hex())
	}
	return &u, nil
}

func (s *MongoUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var u models.User
	if err := s.collection.FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		return nil, wrapMongo(err, "user "+email)
	}
	return &u, nil
}

func (s *MongoUserStore) SetRole(ctx context.Context, id primitive.ObjectID, role models.Role) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := s.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"role": role, "updatedAt": time.Now()},
	})
	if err != nil {
		return wrapMongo(err, "update user role")
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	return nil
}
