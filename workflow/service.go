package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"citizenconnect/apperrors"
	"citizenconnect/logging"
	"citizenconnect/models"
)

// Store is the persistence the reply workflow needs. Writes guarded by an
// expected version must fail with apperrors.ErrConflict when the issue's
// ReplyVersion has moved on.
type Store interface {
	Get(ctx context.Context, id primitive.ObjectID) (*models.Issue, error)
	AppendReply(ctx context.Context, id primitive.ObjectID, expectedVersion int64, reply models.GovernmentReply, status models.IssueStatus) error
	SetFollowUpResponse(ctx context.Context, id primitive.ObjectID, expectedVersion int64, replyID string, resp models.UserFollowUpResponse) error
	AddReplyComment(ctx context.Context, id primitive.ObjectID, replyID string, comment models.Comment) error
}

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID   primitive.ObjectID
	Name string
	Role models.Role
}

// Service applies the reply protocol on top of a Store.
type Service struct {
	store  Store
	engine *Engine
	now    func() time.Time
}

// NewService returns a Service backed by store.
func NewService(store Store, engine *Engine) *Service {
	return &Service{store: store, engine: engine, now: time.Now}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SubmitReply validates and appends a government reply. A reply that races
// with another write to the same issue fails with apperrors.ErrConflict and
// leaves the reply list untouched.
func (s *Service) SubmitReply(ctx context.Context, issueID primitive.ObjectID, actor Actor, draft ReplyDraft) (*models.GovernmentReply, error) {
	if !actor.Role.IsOfficial() {
		return nil, fmt.Errorf("only officials may reply: %w", apperrors.ErrForbidden)
	}
	if err := ValidateReply(draft); err != nil {
		return nil, err
	}

	issue, err := s.store.Get(ctx, issueID)
	if err != nil {
		return nil, err
	}

	from := StateOf(issue.GovernmentReplies)
	to, err := s.engine.Next(from, draft.ReplyType)
	if err != nil {
		return nil, err
	}

	priority := draft.Priority
	if priority == "" {
		priority = issue.Priority
	}
	attachments := draft.Attachments
	if attachments == nil {
		attachments = []models.Attachment{}
	}

	reply := models.GovernmentReply{
		ID:               uuid.New().String(),
		Content:          strings.TrimSpace(draft.Content),
		AuthorID:         actor.ID,
		AuthorName:       actor.Name,
		ReplyType:        draft.ReplyType,
		Priority:         priority,
		Attachments:      attachments,
		Comments:         []models.Comment{},
		EscalationReason: strings.TrimSpace(draft.EscalationReason),
		CreatedAt:        s.now(),
	}

	if err := s.store.AppendReply(ctx, issueID, issue.ReplyVersion, reply, StatusAfter(draft.ReplyType)); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			logging.Warn().
				Add(logging.IssueID(issueID.Hex())).
				Add(logging.Str("reply_type", string(draft.ReplyType))).
				Msg("concurrent reply rejected")
		}
		return nil, err
	}

	logging.Info().
		Add(logging.IssueID(issueID.Hex())).
		Add(logging.Str("reply_type", string(draft.ReplyType))).
		Add(logging.Str("from_state", string(from))).
		Add(logging.Str("to_state", string(to))).
		Msg("government reply appended")

	return &reply, nil
}

// FollowUpDraft is a citizen's answer to a followup reply.
type FollowUpDraft struct {
	Content     string
	Attachments []models.Attachment
}

// RespondToFollowUp records the issue author's single answer to a followup
// reply. The followup must still be the latest reply on the issue.
func (s *Service) RespondToFollowUp(ctx context.Context, issueID primitive.ObjectID, replyID string, actor Actor, draft FollowUpDraft) (*models.UserFollowUpResponse, error) {
	if strings.TrimSpace(draft.Content) == "" {
		return nil, &apperrors.ValidationError{Fields: map[string]string{"content": "content is required"}}
	}

	issue, err := s.store.Get(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if issue.CreatedBy != actor.ID {
		return nil, fmt.Errorf("only the issue author may answer a followup: %w", apperrors.ErrForbidden)
	}

	reply, idx := issue.Reply(replyID)
	if reply == nil {
		return nil, fmt.Errorf("reply %s: %w", replyID, apperrors.ErrNotFound)
	}
	if !AcceptsFollowUpResponse(reply.ReplyType) {
		return nil, &apperrors.ValidationError{Fields: map[string]string{"replyId": "reply does not accept citizen responses"}}
	}
	if reply.FollowUpResponse != nil {
		return nil, fmt.Errorf("followup already answered: %w", apperrors.ErrConflict)
	}
	if idx != len(issue.GovernmentReplies)-1 {
		return nil, fmt.Errorf("followup superseded by a newer reply: %w", apperrors.ErrConflict)
	}

	attachments := draft.Attachments
	if attachments == nil {
		attachments = []models.Attachment{}
	}
	resp := models.UserFollowUpResponse{
		ID:          uuid.New().String(),
		Content:     strings.TrimSpace(draft.Content),
		AuthorID:    actor.ID,
		Attachments: attachments,
		IsPrivate:   true,
		CreatedAt:   s.now(),
	}

	if err := s.store.SetFollowUpResponse(ctx, issueID, issue.ReplyVersion, replyID, resp); err != nil {
		return nil, err
	}

	logging.Info().
		Add(logging.IssueID(issueID.Hex())).
		Add(logging.Str("reply_id", replyID)).
		Msg("followup response recorded")

	return &resp, nil
}

// CommentDraft is a comment on a reply or issue, optionally answering ParentID.
type CommentDraft struct {
	Text      string
	ParentID  string
	IsPrivate bool
}

// CommentOnReply adds a comment to a commentable government reply.
func (s *Service) CommentOnReply(ctx context.Context, issueID primitive.ObjectID, replyID string, actor Actor, draft CommentDraft) (*models.Comment, error) {
	if err := ValidateCommentText(draft.Text); err != nil {
		return nil, err
	}

	issue, err := s.store.Get(ctx, issueID)
	if err != nil {
		return nil, err
	}
	reply, _ := issue.Reply(replyID)
	if reply == nil {
		return nil, fmt.Errorf("reply %s: %w", replyID, apperrors.ErrNotFound)
	}
	if !CanReplyHaveComments(reply.ReplyType) {
		return nil, &apperrors.ValidationError{Fields: map[string]string{"replyId": fmt.Sprintf("%s replies do not accept comments", reply.ReplyType)}}
	}

	depth, err := ThreadDepth(reply.Comments, draft.ParentID)
	if err != nil {
		return nil, err
	}

	comment := s.newComment(actor, draft, depth)
	if err := s.store.AddReplyComment(ctx, issueID, replyID, comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// NewIssueComment builds a comment for the issue's own discussion thread.
func (s *Service) NewIssueComment(issue *models.Issue, actor Actor, draft CommentDraft) (models.Comment, error) {
	if err := ValidateCommentText(draft.Text); err != nil {
		return models.Comment{}, err
	}
	depth, err := ThreadDepth(issue.Comments, draft.ParentID)
	if err != nil {
		return models.Comment{}, err
	}
	return s.newComment(actor, draft, depth), nil
}

func (s *Service) newComment(actor Actor, draft CommentDraft, depth int) models.Comment {
	return models.Comment{
		ID:         uuid.New().String(),
		ParentID:   draft.ParentID,
		Depth:      depth,
		Text:       strings.TrimSpace(draft.Text),
		AuthorID:   actor.ID,
		AuthorName: actor.Name,
		IsPrivate:  draft.IsPrivate,
		CreatedAt:  s.now(),
	}
}

// Redact strips private follow-up responses and private comments from an
// issue for viewers who are neither its author nor an official.
func Redact(issue *models.Issue, viewer Actor) {
	if viewer.Role.IsOfficial() || issue.CreatedBy == viewer.ID {
		return
	}
	issue.Comments = publicComments(issue.Comments, viewer.ID)
	for i := range issue.GovernmentReplies {
		r := &issue.GovernmentReplies[i]
		r.FollowUpResponse = nil
		r.Comments = publicComments(r.Comments, viewer.ID)
	}
}

func publicComments(comments []models.Comment, viewer primitive.ObjectID) []models.Comment {
	out := make([]models.Comment, 0, len(comments))
	for _, c := range comments {
		if c.IsPrivate && c.AuthorID != viewer {
			continue
		}
		out = append(out, c)
	}
	return out
}
