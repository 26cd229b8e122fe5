package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AnnouncementPriority string

const (
	AnnouncementNormal    AnnouncementPriority = "normal"
	AnnouncementImportant AnnouncementPriority = "important"
	AnnouncementUrgent    AnnouncementPriority = "urgent"
)

func (p AnnouncementPriority) Valid() bool {
	return p == AnnouncementNormal || p == AnnouncementImportant || p == AnnouncementUrgent
}

// Announcement is a government notice. TargetAudience[0] is always the
// authoring leader's default jurisdiction tag.
type Announcement struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title          string               `bson:"title" json:"title"`
	Content        string               `bson:"content" json:"content"`
	Category       string               `bson:"category" json:"category"`
	Priority       AnnouncementPriority `bson:"priority" json:"priority"`
	ExpiresAt      *time.Time           `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
	TargetAudience []string             `bson:"targetAudience" json:"targetAudience"`
	LeaderID       primitive.ObjectID   `bson:"leaderId" json:"leaderId"`
	CreatedBy      primitive.ObjectID   `bson:"createdBy" json:"createdBy"`
	CreatedAt      time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// Active reports whether the announcement has not expired at now.
func (a *Announcement) Active(now time.Time) bool {
	return a.ExpiresAt == nil || a.ExpiresAt.After(now)
}

// AnnouncementFilter drives announcement listing. Scope is one of the
// targeting classifications ("district", "sector", "cell", "regional",
// "general") or empty.
type AnnouncementFilter struct {
	Scope      string
	Search     string
	ActiveOnly bool
	LeaderID   *primitive.ObjectID
}
