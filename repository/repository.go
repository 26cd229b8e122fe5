// Package repository holds the persistence interfaces of the service and
// their MongoDB and in-memory implementations.
package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"citizenconnect/models"
)

// IssueStore persists issues together with their replies, comments and votes.
// Reply-side writes that take an expected version are compare-and-append:
// they fail with apperrors.ErrConflict when ReplyVersion has changed.
type IssueStore interface {
	Create(ctx context.Context, issue *models.Issue) error
	Get(ctx context.Context, id primitive.ObjectID) (*models.Issue, error)
	GetByTicket(ctx context.Context, ticketID string) (*models.Issue, error)
	List(ctx context.Context, filter models.IssueFilter) ([]models.Issue, int64, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.IssueStatus) error
	// UpdateDetails rewrites the author-editable fields of issue.
	UpdateDetails(ctx context.Context, issue *models.Issue, expectedVersion int64) error
	Delete(ctx context.Context, id primitive.ObjectID, expectedVersion int64) error
	AppendReply(ctx context.Context, id primitive.ObjectID, expectedVersion int64, reply models.GovernmentReply, status models.IssueStatus) error
	SetFollowUpResponse(ctx context.Context, id primitive.ObjectID, expectedVersion int64, replyID string, resp models.UserFollowUpResponse) error
	AddReplyComment(ctx context.Context, id primitive.ObjectID, replyID string, comment models.Comment) error
	AddComment(ctx context.Context, id primitive.ObjectID, comment models.Comment) error
	ToggleVote(ctx context.Context, id, userID primitive.ObjectID) (voted bool, votes int64, err error)
	VoteInfo(ctx context.Context, id, userID primitive.ObjectID) (votes int64, userHasVoted bool, err error)
}

// LeaderStore persists officials and their jurisdictions.
type LeaderStore interface {
	Create(ctx context.Context, leader *models.Leader) error
	Get(ctx context.Context, id primitive.ObjectID) (*models.Leader, error)
	GetByUser(ctx context.Context, userID primitive.ObjectID) (*models.Leader, error)
	Search(ctx context.Context, filter models.LeaderFilter) ([]models.Leader, error)
}

// AnnouncementStore persists announcements. List applies Search, ActiveOnly
// and LeaderID; callers classify audiences themselves.
type AnnouncementStore interface {
	Create(ctx context.Context, a *models.Announcement) error
	Update(ctx context.Context, a *models.Announcement) error
	Get(ctx context.Context, id primitive.ObjectID) (*models.Announcement, error)
	List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, error)
}

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	Get(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	SetRole(ctx context.Context, id primitive.ObjectID, role models.Role) error
}

// Stores bundles every store the HTTP layer needs.
type Stores struct {
	Issues        IssueStore
	Leaders       LeaderStore
	Announcements AnnouncementStore
	Users         UserStore
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return page, limit
}

var (
	_ IssueStore        = (*MemoryIssueStore)(nil)
	_ IssueStore        = (*MongoIssueStore)(nil)
	_ LeaderStore       = (*MemoryLeaderStore)(nil)
	_ LeaderStore       = (*MongoLeaderStore)(nil)
	_ LeaderStore       = (*CachedLeaderStore)(nil)
	_ AnnouncementStore = (*MemoryAnnouncementStore)(nil)
	_ AnnouncementStore = (*MongoAnnouncementStore)(nil)
	_ UserStore         = (*MemoryUserStore)(nil)
	_ UserStore         = (*MongoUserStore)(nil)
)
