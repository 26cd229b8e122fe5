package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"citizenconnect/apperrors"
	"citizenconnect/logging"
	"citizenconnect/models"
	"citizenconnect/workflow"
)

// issueResponse is an issue as a particular viewer sees it.
type issueResponse struct {
	*models.Issue
	CreatedBy  gin.H          `json:"createdBy"`
	ReplyState workflow.State `json:"replyState"`
}

type issueInput struct {
	Title       string              `json:"title" binding:"required,max=200"`
	Description string              `json:"description" binding:"required,max=1000"`
	Category    string              `json:"category" binding:"required"`
	Priority    string              `json:"priority"`
	Location    models.Location     `json:"location"`
	IsPrivate   bool                `json:"isPrivate"`
	IsAnonymous bool                `json:"isAnonymous"`
	Attachments []models.Attachment `json:"attachments" binding:"omitempty,dive"`
}

func (in issueInput) validate() error {
	fe := apperrors.FieldErrors{}
	if !models.IssueCategory(in.Category).Valid() {
		fe.Add("category", "Invalid category")
	}
	if in.Priority != "" && !models.Priority(in.Priority).Valid() {
		fe.Add("priority", "priority must be one of low, medium, high, urgent")
	}
	if strings.TrimSpace(in.Location.District) == "" {
		fe.Add("location.district", "district is required")
	}
	if in.Location.Cell != "" && in.Location.Sector == "" {
		fe.Add("location.sector", "sector is required when a cell is given")
	}
	return fe.Err()
}

func (in issueInput) apply(issue *models.Issue) {
	issue.Title = strings.TrimSpace(in.Title)
	issue.Description = strings.TrimSpace(in.Description)
	issue.Category = models.IssueCategory(in.Category)
	issue.Priority = models.PriorityMedium
	if in.Priority != "" {
		issue.Priority = models.Priority(in.Priority)
	}
	issue.Location = in.Location
	issue.IsPrivate = in.IsPrivate
	issue.IsAnonymous = in.IsAnonymous
	issue.Attachments = in.Attachments
	if issue.Attachments == nil {
		issue.Attachments = []models.Attachment{}
	}
}

func newTicketID() string {
	return "CC-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

// canSee reports whether viewer may read issue at all.
func canSee(issue *models.Issue, viewer workflow.Actor) bool {
	return !issue.IsPrivate || viewer.Role.IsOfficial() || issue.CreatedBy == viewer.ID
}

// present redacts issue for viewer and attaches vote and author information.
func (h *Handler) present(c *gin.Context, issue *models.Issue, viewer workflow.Actor) issueResponse {
	ctx := c.Request.Context()

	if votes, voted, err := h.stores.Issues.VoteInfo(ctx, issue.ID, viewer.ID); err == nil {
		issue.Votes = votes
		issue.UserHasVoted = voted
	}

	state := workflow.StateOf(issue.GovernmentReplies)
	workflow.Redact(issue, viewer)

	createdBy := gin.H{"id": issue.CreatedBy}
	if issue.IsAnonymous && !viewer.Role.IsOfficial() && issue.CreatedBy != viewer.ID {
		createdBy = gin.H{"name": "Anonymous"}
	} else if creator, err := h.stores.Users.Get(ctx, issue.CreatedBy); err == nil {
		createdBy["name"] = creator.Name
		createdBy["email"] = creator.Email
	}

	return issueResponse{Issue: issue, CreatedBy: createdBy, ReplyState: state}
}

// CreateIssue handles the creation of a new issue
func (h *Handler) CreateIssue(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var input issueInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := input.validate(); err != nil {
		respondError(c, err)
		return
	}

	now := h.now()
	issue := models.Issue{
		TicketID:          newTicketID(),
		Status:            models.StatusOpen,
		CreatedBy:         actor.ID,
		Comments:          []models.Comment{},
		GovernmentReplies: []models.GovernmentReply{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	input.apply(&issue)

	if err := h.stores.Issues.Create(c.Request.Context(), &issue); err != nil {
		respondError(c, err)
		return
	}

	logging.Info().
		Add(logging.IssueID(issue.ID.Hex())).
		Add(logging.UserID(actor.ID.Hex())).
		Add(logging.Str("ticket_id", issue.TicketID)).
		Msg("issue created")

	c.JSON(http.StatusCreated, h.present(c, &issue, actor))
}

// GetAllIssues lists issues with filtering, pagination and vote counts.
func (h *Handler) GetAllIssues(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	filter := models.IssueFilter{
		District: c.Query("district"),
		Search:   c.Query("search"),
		Oldest:   c.Query("sort") == "oldest",
		Page:     page,
		Limit:    limit,
	}
	if category := c.Query("category"); category != "" && category != "all" {
		filter.Category = models.IssueCategory(category)
	}
	if status := c.Query("status"); status != "" && status != "all" {
		filter.Status = models.IssueStatus(status)
	}
	if !actor.Role.IsOfficial() {
		filter.VisibleTo = &actor.ID
	}

	h.listIssues(c, actor, filter)
}

// GetIssuesByUser lists the caller's own issues.
func (h *Handler) GetIssuesByUser(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	h.listIssues(c, actor, models.IssueFilter{CreatedBy: &actor.ID, Page: page, Limit: limit})
}

func (h *Handler) listIssues(c *gin.Context, actor workflow.Actor, filter models.IssueFilter) {
	issues, total, err := h.stores.Issues.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]issueResponse, 0, len(issues))
	for i := range issues {
		out = append(out, h.present(c, &issues[i], actor))
	}

	limit := filter.Limit
	if limit < 1 || limit > 100 {
		limit = 10
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}

	c.JSON(http.StatusOK, gin.H{
		"issues":      out,
		"totalIssues": total,
		"totalPages":  int((total + int64(limit) - 1) / int64(limit)),
		"currentPage": page,
	})
}

// loadIssue fetches the :id issue and enforces read access.
func (h *Handler) loadIssue(c *gin.Context, actor workflow.Actor) (*models.Issue, bool) {
	issueID, ok := objectIDParam(c, "id", "issue")
	if !ok {
		return nil, false
	}
	issue, err := h.stores.Issues.Get(c.Request.Context(), issueID)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if !canSee(issue, actor) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Issue not found"})
		return nil, false
	}
	return issue, true
}

// GetIssue retrieves an issue by its ID with vote information
func (h *Handler) GetIssue(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	issue, ok := h.loadIssue(c, actor)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.present(c, issue, actor))
}

// GetIssueByTicket retrieves an issue by its public ticket number.
func (h *Handler) GetIssueByTicket(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	issue, err := h.stores.Issues.GetByTicket(c.Request.Context(), strings.ToUpper(c.Param("ticketId")))
	if err != nil {
		respondError(c, err)
		return
	}
	if !canSee(issue, actor) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Issue not found"})
		return
	}
	c.JSON(http.StatusOK, h.present(c, issue, actor))
}

// editableBy checks that actor authored issue and that no official has
// replied yet.
func editableBy(issue *models.Issue, actor workflow.Actor, verb string) error {
	if issue.CreatedBy != actor.ID {
		return fmt.Errorf("you are not authorized to %s this issue: %w", verb, apperrors.ErrForbidden)
	}
	if workflow.StateOf(issue.GovernmentReplies) != workflow.NoReply {
		return fmt.Errorf("issue already has government replies: %w", apperrors.ErrConflict)
	}
	return nil
}

// UpdateIssue allows the creator of an issue to update its details until
// the first government reply.
func (h *Handler) UpdateIssue(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var input issueInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := input.validate(); err != nil {
		respondError(c, err)
		return
	}

	issue, ok := h.loadIssue(c, actor)
	if !ok {
		return
	}
	if err := editableBy(issue, actor, "update"); err != nil {
		respondError(c, err)
		return
	}

	input.apply(issue)
	if err := h.stores.Issues.UpdateDetails(c.Request.Context(), issue, issue.ReplyVersion); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Issue updated successfully"})
}

// DeleteIssue allows the creator of an issue to delete it until the first
// government reply.
func (h *Handler) DeleteIssue(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	issue, ok := h.loadIssue(c, actor)
	if !ok {
		return
	}
	if err := editableBy(issue, actor, "delete"); err != nil {
		respondError(c, err)
		return
	}

	if err := h.stores.Issues.Delete(c.Request.Context(), issue.ID, issue.ReplyVersion); err != nil {
		respondError(c, err)
		return
	}

	logging.Info().Add(logging.IssueID(issue.ID.Hex())).Msg("issue deleted")
	c.JSON(http.StatusOK, gin.H{"message": "Issue deleted successfully"})
}

// HandleVoteOnIssue toggles the user's vote on an issue (vote if not voted, unvote if already voted)
func (h *Handler) HandleVoteOnIssue(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	issue, ok := h.loadIssue(c, actor)
	if !ok {
		return
	}

	voted, votes, err := h.stores.Issues.ToggleVote(c.Request.Context(), issue.ID, actor.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Vote removed successfully"
	if voted {
		message = "Vote cast successfully"
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      message,
		"voted":        voted,
		"votes":        votes,
		"userHasVoted": voted,
	})
}

type commentInput struct {
	Text      string `json:"text" binding:"required"`
	ParentID  string `json:"parentId"`
	IsPrivate bool   `json:"isPrivate"`
}

func (in commentInput) draft() workflow.CommentDraft {
	return workflow.CommentDraft{Text: in.Text, ParentID: in.ParentID, IsPrivate: in.IsPrivate}
}

// CommentOnIssue adds a comment to the issue's discussion thread.
func (h *Handler) CommentOnIssue(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var input commentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	issue, ok := h.loadIssue(c, actor)
	if !ok {
		return
	}

	comment, err := h.replies.NewIssueComment(issue, actor, input.draft())
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.stores.Issues.AddComment(c.Request.Context(), issue.ID, comment); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, comment)
}

// UpdateIssueStatus lets an official move an issue between statuses, for
// example to close it.
func (h *Handler) UpdateIssueStatus(c *gin.Context) {
	issueID, ok := objectIDParam(c, "id", "issue")
	if !ok {
		return
	}

	var input struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status := models.IssueStatus(input.Status)
	if !status.Valid() {
		respondError(c, &apperrors.ValidationError{Fields: map[string]string{"status": "Invalid status"}})
		return
	}

	if err := h.stores.Issues.UpdateStatus(c.Request.Context(), issueID, status); err != nil {
		respondError(c, err)
		return
	}

	logging.Info().
		Add(logging.IssueID(issueID.Hex())).
		Add(logging.Str("status", string(status))).
		Msg("issue status updated")

	c.JSON(http.StatusOK, gin.H{"message": "Issue status updated successfully", "status": status})
}
