package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReplyType classifies a government reply.
type ReplyType string

const (
	ReplyProgress   ReplyType = "progress"
	ReplyFollowUp   ReplyType = "followup"
	ReplyResolve    ReplyType = "resolve"
	ReplyEscalation ReplyType = "escalation"
)

func (t ReplyType) Valid() bool {
	switch t {
	case ReplyProgress, ReplyFollowUp, ReplyResolve, ReplyEscalation:
		return true
	}
	return false
}

// GovernmentReply is an official response to an issue. It is never edited
// after it is appended, except for comments and the follow-up response.
type GovernmentReply struct {
	ID               string                `bson:"id" json:"id"`
	Content          string                `bson:"content" json:"content"`
	AuthorID         primitive.ObjectID    `bson:"authorId" json:"authorId"`
	AuthorName       string                `bson:"authorName" json:"authorName"`
	ReplyType        ReplyType             `bson:"replyType" json:"replyType"`
	Priority         Priority              `bson:"priority" json:"priority"`
	Attachments      []Attachment          `bson:"attachments" json:"attachments"`
	Comments         []Comment             `bson:"comments" json:"comments"`
	EscalationReason string                `bson:"escalationReason,omitempty" json:"escalationReason,omitempty"`
	FollowUpResponse *UserFollowUpResponse `bson:"followUpResponse,omitempty" json:"followUpResponse,omitempty"`
	CreatedAt        time.Time             `bson:"createdAt" json:"createdAt"`
}

// UserFollowUpResponse is the citizen's answer to a followup reply. Always private.
type UserFollowUpResponse struct {
	ID          string             `bson:"id" json:"id"`
	Content     string             `bson:"content" json:"content"`
	AuthorID    primitive.ObjectID `bson:"authorId" json:"authorId"`
	Attachments []Attachment       `bson:"attachments" json:"attachments"`
	IsPrivate   bool               `bson:"isPrivate" json:"isPrivate"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}

// Comment belongs either to an issue or to a government reply. Threads are
// stored flat and linked through ParentID.
type Comment struct {
	ID         string             `bson:"id" json:"id"`
	ParentID   string             `bson:"parentId,omitempty" json:"parentId,omitempty"`
	Depth      int                `bson:"depth" json:"depth"`
	Text       string             `bson:"text" json:"text"`
	AuthorID   primitive.ObjectID `bson:"authorId" json:"authorId"`
	AuthorName string             `bson:"authorName" json:"authorName"`
	IsPrivate  bool               `bson:"isPrivate" json:"isPrivate"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}
