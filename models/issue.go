package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueCategory enum
type IssueCategory string

const (
	Road        IssueCategory = "Road"
	Water       IssueCategory = "Water"
	Sanitation  IssueCategory = "Sanitation"
	Electricity IssueCategory = "Electricity"
	Health      IssueCategory = "Health"
	Security    IssueCategory = "Security"
	Education   IssueCategory = "Education"
	Other       IssueCategory = "Other"
)

// Valid reports whether c is a known category.
func (c IssueCategory) Valid() bool {
	switch c {
	case Road, Water, Sanitation, Electricity, Health, Security, Education, Other:
		return true
	}
	return false
}

// IssueStatus enum
type IssueStatus string

const (
	StatusOpen       IssueStatus = "open"
	StatusInProgress IssueStatus = "in_progress"
	StatusResolved   IssueStatus = "resolved"
	StatusEscalated  IssueStatus = "escalated"
	StatusClosed     IssueStatus = "closed"
)

func (s IssueStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusEscalated, StatusClosed:
		return true
	}
	return false
}

// Priority is shared by issues and government replies.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Attachment is an already-uploaded asset reference.
type Attachment struct {
	URL         string `bson:"url" json:"url" binding:"required,url"`
	Type        string `bson:"type" json:"type"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`
}

// Issue represents a civic issue reported by a citizen
type Issue struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TicketID          string             `bson:"ticketId" json:"ticketId"`
	Title             string             `bson:"title" json:"title"`
	Description       string             `bson:"description" json:"description"`
	Category          IssueCategory      `bson:"category" json:"category"`
	Status            IssueStatus        `bson:"status" json:"status"`
	Priority          Priority           `bson:"priority" json:"priority"`
	CreatedBy         primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	IsPrivate         bool               `bson:"isPrivate" json:"isPrivate"`
	IsAnonymous       bool               `bson:"isAnonymous" json:"isAnonymous"`
	Location          Location           `bson:"location" json:"location"`
	Attachments       []Attachment       `bson:"attachments" json:"attachments"`
	Comments          []Comment          `bson:"comments" json:"comments"`
	GovernmentReplies []GovernmentReply  `bson:"governmentReplies" json:"governmentReplies"`
	// ReplyVersion equals len(GovernmentReplies) plus the number of follow-up
	// responses recorded; every reply-side write bumps it.
	ReplyVersion int64     `bson:"replyVersion" json:"replyVersion"`
	Votes        int64     `bson:"-" json:"votes"`
	UserHasVoted bool      `bson:"-" json:"userHasVoted"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

// LastReply returns the most recent government reply, or nil.
func (i *Issue) LastReply() *GovernmentReply {
	if len(i.GovernmentReplies) == 0 {
		return nil
	}
	return &i.GovernmentReplies[len(i.GovernmentReplies)-1]
}

// Reply finds a government reply by id.
func (i *Issue) Reply(id string) (*GovernmentReply, int) {
	for idx := range i.GovernmentReplies {
		if i.GovernmentReplies[idx].ID == id {
			return &i.GovernmentReplies[idx], idx
		}
	}
	return nil, -1
}

// IssueFilter drives issue listing.
type IssueFilter struct {
	Category  IssueCategory
	Status    IssueStatus
	District  string
	Search    string
	CreatedBy *primitive.ObjectID
	// VisibleTo hides other users' private issues when set.
	VisibleTo *primitive.ObjectID
	Oldest    bool
	Page      int
	Limit     int
}
