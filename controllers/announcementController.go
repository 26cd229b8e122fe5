package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"citizenconnect/apperrors"
	"citizenconnect/logging"
	"citizenconnect/models"
	"citizenconnect/targeting"
	"citizenconnect/workflow"
)

type announcementResponse struct {
	*models.Announcement
	Classification targeting.Classification `json:"classification"`
	Active         bool                     `json:"active"`
}

func (h *Handler) presentAnnouncement(a *models.Announcement) announcementResponse {
	return announcementResponse{
		Announcement:   a,
		Classification: targeting.Classify(a.TargetAudience),
		Active:         a.Active(h.now()),
	}
}

type announcementInput struct {
	Title         string                `json:"title"`
	Content       string                `json:"content"`
	Category      string                `json:"category"`
	Priority      string                `json:"priority"`
	HasExpiration bool                  `json:"hasExpiration"`
	ExpiresAt     *time.Time            `json:"expiresAt"`
	RegionalFocus targeting.Restriction `json:"regionalFocus"`
}

func (in announcementInput) draft() targeting.AnnouncementDraft {
	return targeting.AnnouncementDraft{
		Title:         in.Title,
		Content:       in.Content,
		Category:      in.Category,
		Priority:      models.AnnouncementPriority(in.Priority),
		HasExpiration: in.HasExpiration,
		ExpiresAt:     in.ExpiresAt,
		RegionalFocus: in.RegionalFocus,
	}
}

// callerLeader resolves the leader profile of an official.
func (h *Handler) callerLeader(c *gin.Context, actor workflow.Actor) (*models.Leader, bool) {
	leader, err := h.stores.Leaders.GetByUser(c.Request.Context(), actor.ID)
	if errors.Is(err, apperrors.ErrNotFound) {
		respondError(c, fmt.Errorf("a leader profile is required: %w", apperrors.ErrForbidden))
		return nil, false
	}
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return leader, true
}

func (h *Handler) publish(c *gin.Context, a *models.Announcement) {
	if err := h.publisher.PublishAnnouncement(c.Request.Context(), a); err != nil {
		logging.Warn().
			Add(logging.Str("announcement_id", a.ID.Hex())).
			Add(logging.Err(err)).
			Msg("announcement not delivered")
	}
}

// CreateAnnouncement publishes an announcement to the caller's jurisdiction,
// optionally narrowed by a regional focus.
func (h *Handler) CreateAnnouncement(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var input announcementInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	leader, ok := h.callerLeader(c, actor)
	if !ok {
		return
	}

	now := h.now()
	a, err := h.encoder.Build(leader, input.draft(), now)
	if err != nil {
		respondError(c, err)
		return
	}
	a.CreatedAt = now
	a.UpdatedAt = now

	if err := h.stores.Announcements.Create(c.Request.Context(), a); err != nil {
		respondError(c, err)
		return
	}

	logging.Info().
		Add(logging.Str("announcement_id", a.ID.Hex())).
		Add(logging.Str("leader_id", leader.ID.Hex())).
		Add(logging.Int("audience_tags", len(a.TargetAudience))).
		Msg("announcement created")

	h.publish(c, a)
	c.JSON(http.StatusCreated, h.presentAnnouncement(a))
}

// UpdateAnnouncement resubmits an announcement. The audience is recomputed
// from the submitted regional focus.
func (h *Handler) UpdateAnnouncement(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id", "announcement")
	if !ok {
		return
	}

	var input announcementInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	leader, ok := h.callerLeader(c, actor)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	existing, err := h.stores.Announcements.Get(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if existing.LeaderID != leader.ID {
		respondError(c, fmt.Errorf("announcement belongs to another leader: %w", apperrors.ErrForbidden))
		return
	}

	now := h.now()
	a, err := h.encoder.Build(leader, input.draft(), now)
	if err != nil {
		respondError(c, err)
		return
	}
	a.ID = existing.ID
	a.CreatedBy = existing.CreatedBy
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = now

	if err := h.stores.Announcements.Update(ctx, a); err != nil {
		respondError(c, err)
		return
	}

	h.publish(c, a)
	c.JSON(http.StatusOK, h.presentAnnouncement(a))
}

// GetAnnouncements lists announcements. scope filters by audience
// classification; mine=true restricts to the caller's own announcements.
func (h *Handler) GetAnnouncements(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	filter := models.AnnouncementFilter{
		Scope:      c.Query("scope"),
		Search:     c.Query("search"),
		ActiveOnly: c.Query("active") == "true",
	}
	if c.Query("mine") == "true" {
		leader, ok := h.callerLeader(c, actor)
		if !ok {
			return
		}
		filter.LeaderID = &leader.ID
	}

	items, err := h.stores.Announcements.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]announcementResponse, 0, len(items))
	for i := range items {
		resp := h.presentAnnouncement(&items[i])
		if !resp.Classification.Matches(filter.Scope) {
			continue
		}
		out = append(out, resp)
	}
	c.JSON(http.StatusOK, gin.H{"announcements": out, "total": len(out)})
}

// GetAnnouncement retrieves an announcement by its ID.
func (h *Handler) GetAnnouncement(c *gin.Context) {
	id, ok := objectIDParam(c, "id", "announcement")
	if !ok {
		return
	}
	a, err := h.stores.Announcements.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.presentAnnouncement(a))
}

// PreviewAudience shows the tags an announcement with the given regional
// focus would carry, without saving anything.
func (h *Handler) PreviewAudience(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var input targeting.Restriction
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	leader, ok := h.callerLeader(c, actor)
	if !ok {
		return
	}

	tags, err := h.encoder.Audience(leader, input)
	if err != nil {
		respondError(c, err)
		return
	}

	decoded := make([]targeting.Tag, 0, len(tags))
	for _, s := range tags {
		t, err := targeting.ParseTag(s)
		if err != nil {
			respondError(c, err)
			return
		}
		decoded = append(decoded, t)
	}

	c.JSON(http.StatusOK, gin.H{
		"targetAudience": tags,
		"tags":           decoded,
		"classification": targeting.Classify(tags),
	})
}
