package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"citizenconnect/models"
	"citizenconnect/workflow"
)

// SubmitReply appends a government reply to an issue.
func (h *Handler) SubmitReply(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	issueID, ok := objectIDParam(c, "id", "issue")
	if !ok {
		return
	}

	var input struct {
		Content          string              `json:"content"`
		ReplyType        string              `json:"replyType"`
		Priority         string              `json:"priority"`
		EscalationReason string              `json:"escalationReason"`
		Attachments      []models.Attachment `json:"attachments" binding:"omitempty,dive"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reply, err := h.replies.SubmitReply(c.Request.Context(), issueID, actor, workflow.ReplyDraft{
		Content:          input.Content,
		ReplyType:        models.ReplyType(input.ReplyType),
		Priority:         models.Priority(input.Priority),
		EscalationReason: input.EscalationReason,
		Attachments:      input.Attachments,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"reply":                reply,
		"status":               workflow.StatusAfter(reply.ReplyType),
		"allowsFurtherReplies": workflow.AllowsFurtherReplies(reply.ReplyType),
		"acceptsComments":      workflow.CanReplyHaveComments(reply.ReplyType),
	})
}

// CommentOnReply adds a comment under a progress or resolve reply.
func (h *Handler) CommentOnReply(c *gin.Context) {
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

	comment, err := h.replies.CommentOnReply(c.Request.Context(), issue.ID, c.Param("replyId"), actor, input.draft())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, comment)
}

// RespondToFollowUp records the issue author's answer to a followup reply.
func (h *Handler) RespondToFollowUp(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	issueID, ok := objectIDParam(c, "id", "issue")
	if !ok {
		return
	}

	var input struct {
		Content     string              `json:"content"`
		Attachments []models.Attachment `json:"attachments" binding:"omitempty,dive"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.replies.RespondToFollowUp(c.Request.Context(), issueID, c.Param("replyId"), actor, workflow.FollowUpDraft{
		Content:     input.Content,
		Attachments: input.Attachments,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}
