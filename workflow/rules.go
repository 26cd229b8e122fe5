package workflow

import (
	"strings"
	"unicode/utf8"

	"citizenconnect/apperrors"
	"citizenconnect/models"
)

// MaxCommentDepth bounds comment threads. Top-level comments have depth 0.
const MaxCommentDepth = 5

// CanReplyHaveComments reports whether other users may comment on a reply.
func CanReplyHaveComments(t models.ReplyType) bool {
	return t == models.ReplyProgress || t == models.ReplyResolve
}

// AllowsFurtherReplies reports whether another government reply may follow t.
func AllowsFurtherReplies(t models.ReplyType) bool {
	return t == models.ReplyProgress || t == models.ReplyFollowUp
}

// RequiresReason reports whether t needs an escalation reason.
func RequiresReason(t models.ReplyType) bool {
	return t == models.ReplyEscalation
}

// AcceptsFollowUpResponse reports whether the citizen may answer a reply of type t.
func AcceptsFollowUpResponse(t models.ReplyType) bool {
	return t == models.ReplyFollowUp
}

// StatusAfter maps an accepted reply to the issue status it implies.
func StatusAfter(t models.ReplyType) models.IssueStatus {
	switch t {
	case models.ReplyResolve:
		return models.StatusResolved
	case models.ReplyEscalation:
		return models.StatusEscalated
	default:
		return models.StatusInProgress
	}
}

// ReplyDraft is an official's reply before it is appended.
type ReplyDraft struct {
	Content          string
	ReplyType        models.ReplyType
	Priority         models.Priority
	EscalationReason string
	Attachments      []models.Attachment
}

// ValidateReply checks a draft independently of the issue it targets.
func ValidateReply(d ReplyDraft) error {
	fe := apperrors.FieldErrors{}
	if strings.TrimSpace(d.Content) == "" {
		fe.Add("content", "content is required")
	}
	if !d.ReplyType.Valid() {
		fe.Add("replyType", "replyType must be one of progress, followup, resolve, escalation")
	}
	if d.Priority != "" && !d.Priority.Valid() {
		fe.Add("priority", "priority must be one of low, medium, high, urgent")
	}
	if RequiresReason(d.ReplyType) && strings.TrimSpace(d.EscalationReason) == "" {
		fe.Add("escalationReason", "escalation reason is required")
	}
	if !RequiresReason(d.ReplyType) && strings.TrimSpace(d.EscalationReason) != "" {
		fe.Add("escalationReason", "escalation reason is only allowed on escalation replies")
	}
	return fe.Err()
}

// ThreadDepth returns the depth a new comment takes when posted under
// parentID within comments.
func ThreadDepth(comments []models.Comment, parentID string) (int, error) {
	if parentID == "" {
		return 0, nil
	}
	for _, c := range comments {
		if c.ID != parentID {
			continue
		}
		if c.Depth+1 > MaxCommentDepth {
			return 0, &apperrors.ValidationError{Fields: map[string]string{"parentId": "comment thread is too deep"}}
		}
		return c.Depth + 1, nil
	}
	return 0, &apperrors.ValidationError{Fields: map[string]string{"parentId": "parent comment not found"}}
}

const maxCommentLength = 2000

// ValidateCommentText checks comment text.
func ValidateCommentText(text string) error {
	text = strings.TrimSpace(text)
	fe := apperrors.FieldErrors{}
	if text == "" {
		fe.Add("text", "text is required")
	} else if utf8.RuneCountInString(text) > maxCommentLength {
		fe.Add("text", "text is too long")
	}
	return fe.Err()
}
