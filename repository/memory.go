package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"citizenconnect/apperrors"
	"citizenconnect/models"
)

// MemoryIssueStore keeps issues in process memory. Every returned issue is a
// deep copy.
type MemoryIssueStore struct {
	mu     sync.RWMutex
	issues map[primitive.ObjectID]*models.Issue
	votes  map[primitive.ObjectID]map[primitive.ObjectID]struct{}
}

func NewMemoryIssueStore() *MemoryIssueStore {
	return &MemoryIssueStore{
		issues: make(map[primitive.ObjectID]*models.Issue),
		votes:  make(map[primitive.ObjectID]map[primitive.ObjectID]struct{}),
	}
}

func cloneComments(in []models.Comment) []models.Comment {
	return append([]models.Comment{}, in...)
}

func cloneIssue(in *models.Issue) *models.Issue {
	out := *in
	out.Attachments = append([]models.Attachment{}, in.Attachments...)
	out.Comments = cloneComments(in.Comments)
	out.GovernmentReplies = make([]models.GovernmentReply, len(in.GovernmentReplies))
	for i, r := range in.GovernmentReplies {
		r.Attachments = append([]models.Attachment{}, r.Attachments...)
		r.Comments = cloneComments(r.Comments)
		if r.FollowUpResponse != nil {
			resp := *r.FollowUpResponse
			resp.Attachments = append([]models.Attachment{}, resp.Attachments...)
			r.FollowUpResponse = &resp
		}
		out.GovernmentReplies[i] = r
	}
	return &out
}

func (s *MemoryIssueStore) Create(_ context.Context, issue *models.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if issue.ID.IsZero() {
		issue.ID = primitive.NewObjectID()
	}
	for _, existing := range s.issues {
		if existing.TicketID == issue.TicketID {
			return fmt.Errorf("ticket %s: %w", issue.TicketID, apperrors.ErrConflict)
		}
	}
	s.issues[issue.ID] = cloneIssue(issue)
	return nil
}

func (s *MemoryIssueStore) Get(_ context.Context, id primitive.ObjectID) (*models.Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	issue, ok := s.issues[id]
	if !ok {
		return nil, fmt.Errorf("issue %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	return cloneIssue(issue), nil
}

func (s *MemoryIssueStore) GetByTicket(_ context.Context, ticketID string) (*models.Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, issue := range s.issues {
		if issue.TicketID == ticketID {
			return cloneIssue(issue), nil
		}
	}
	return nil, fmt.Errorf("ticket %s: %w", ticketID, apperrors.ErrNotFound)
}

func matchesIssue(issue *models.Issue, f models.IssueFilter) bool {
	if f.Category != "" && issue.Category != f.Category {
		return false
	}
	if f.Status != "" && issue.Status != f.Status {
		return false
	}
	if f.District != "" && issue.Location.District != f.District {
		return false
	}
	if f.CreatedBy != nil && issue.CreatedBy != *f.CreatedBy {
		return false
	}
	if f.VisibleTo != nil && issue.IsPrivate && issue.CreatedBy != *f.VisibleTo {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(issue.Title), q) && !strings.Contains(strings.ToLower(issue.Description), q) {
			return false
		}
	}
	return true
}

func (s *MemoryIssueStore) List(_ context.Context, f models.IssueFilter) ([]models.Issue, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Issue
	for _, issue := range s.issues {
		if matchesIssue(issue, f) {
			matched = append(matched, issue)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if f.Oldest {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	page, limit := normalizePage(f.Page, f.Limit)
	total := int64(len(matched))
	start := (page - 1) * limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}

	out := make([]models.Issue, 0, end-start)
	for _, issue := range matched[start:end] {
		c := cloneIssue(issue)
		c.Votes = int64(len(s.votes[issue.ID]))
		out = append(out, *c)
	}
	return out, total, nil
}

func (s *MemoryIssueStore) lookup(id primitive.ObjectID) (*models.Issue, error) {
	issue, ok := s.issues[id]
	if !ok {
		return nil, fmt.Errorf("issue %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	return issue, nil
}

func (s *MemoryIssueStore) UpdateStatus(_ context.Context, id primitive.ObjectID, status models.IssueStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue, err := s.lookup(id)
	if err != nil {
		return err
	}
	issue.Status = status
	issue.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryIssueStore) UpdateDetails(_ context.Context, in *models.Issue, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue, err := s.lookup(in.ID)
	if err != nil {
		return err
	}
	if issue.ReplyVersion != expectedVersion {
		return fmt.Errorf("issue %s at version %d, expected %d: %w", in.ID.Hex(), issue.ReplyVersion, expectedVersion, apperrors.ErrConflict)
	}
	issue.Title = in.Title
	issue.Description = in.Description
	issue.Category = in.Category
	issue.Priority = in.Priority
	issue.Location = in.Location
	issue.IsPrivate = in.IsPrivate
	issue.IsAnonymous = in.IsAnonymous
	issue.Attachments = append([]models.Attachment(nil), in.Attachments...)
	issue.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryIssueStore) Delete(_ context.Context, id primitive.ObjectID, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue, err := s.lookup(id)
	if err != nil {
		return err
	}
	if issue.ReplyVersion != expectedVersion {
		return fmt.Errorf("issue %s at version %d, expected %d: %w", id.Hex(), issue.ReplyVersion, expectedVersion, apperrors.ErrConflict)
	}
	delete(s.issues, id)
	delete(s.votes, id)
	return nil
}

func (s *MemoryIssueStore) AppendReply(_ context.Context, id primitive.ObjectID, expectedVersion int64, reply models.GovernmentReply, status models.IssueStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue, err := s.lookup(id)
	if err != nil {
		return err
	}
	if issue.ReplyVersion != expectedVersion {
		return fmt.Errorf("issue %s at version %d, expected %d: %w", id.Hex(), issue.ReplyVersion, expectedVersion, apperrors.ErrConflict)
	}
	issue.GovernmentReplies = append(issue.GovernmentReplies, reply)
	issue.ReplyVersion++
	issue.Status = status
	issue.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryIssueStore) SetFollowUpResponse(_ context.Context, id primitive.ObjectID, expectedVersion int64, replyID string, resp models.UserFollowUpResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue, err := s.lookup(id)
	if err != nil {
		return err
	}
	if issue.ReplyVersion != expectedVersion {
		return fmt.Errorf("issue %s at version %d, expected %d: %w", id.Hex(), issue.ReplyVersion, expectedVersion, apperrors.ErrConflict)
	}
	reply, _ := issue.Reply(replyID)
	if reply == nil {
		return fmt.Errorf("reply %s: %w", replyID, apperrors.ErrNotFound)
	}
	reply.FollowUpResponse = &resp
	issue.ReplyVersion++
	issue.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryIssueStore) AddReplyComment(_ context.Context, id primitive.ObjectID, replyID string, comment models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue, err := s.lookup(id)
	if err != nil {
		return err
	}
	reply, _ := issue.Reply(replyID)
	if reply == nil {
		return fmt.Errorf("reply %s: %w", replyID, apperrors.ErrNotFound)
	}
	reply.Comments = append(reply.Comments, comment)
	return nil
}

func (s *MemoryIssueStore) AddComment(_ context.Context, id primitive.ObjectID, comment models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue, err := s.lookup(id)
	if err != nil {
		return err
	}
	issue.Comments = append(issue.Comments, comment)
	return nil
}

func (s *MemoryIssueStore) ToggleVote(_ context.Context, id, userID primitive.ObjectID) (bool, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookup(id); err != nil {
		return false, 0, err
	}
	voters := s.votes[id]
	if voters == nil {
		voters = make(map[primitive.ObjectID]struct{})
		s.votes[id] = voters
	}
	if _, ok := voters[userID]; ok {
		delete(voters, userID)
		return false, int64(len(voters)), nil
	}
	voters[userID] = struct{}{}
	return true, int64(len(voters)), nil
}

func (s *MemoryIssueStore) VoteInfo(_ context.Context, id, userID primitive.ObjectID) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	voters := s.votes[id]
	_, voted := voters[userID]
	return int64(len(voters)), voted, nil
}

// MemoryLeaderStore keeps leaders in process memory.
type MemoryLeaderStore struct {
	mu      sync.RWMutex
	leaders map[primitive.ObjectID]models.Leader
}

func NewMemoryLeaderStore() *MemoryLeaderStore {
	return &MemoryLeaderStore{leaders: make(map[primitive.ObjectID]models.Leader)}
}

func (s *MemoryLeaderStore) Create(_ context.Context, leader *models.Leader) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range s.leaders {
		if l.UserID == leader.UserID {
			return fmt.Errorf("user %s already has a leader profile: %w", leader.UserID.Hex(), apperrors.ErrConflict)
		}
	}
	if leader.ID.IsZero() {
		leader.ID = primitive.NewObjectID()
	}
	s.leaders[leader.ID] = *leader
	return nil
}

func (s *MemoryLeaderStore) Get(_ context.Context, id primitive.ObjectID) (*models.Leader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.leaders[id]
	if !ok {
		return nil, fmt.Errorf("leader %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	return &l, nil
}

func (s *MemoryLeaderStore) GetByUser(_ context.Context, userID primitive.ObjectID) (*models.Leader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, l := range s.leaders {
		if l.UserID == userID {
			return &l, nil
		}
	}
	return nil, fmt.Errorf("leader for user %s: %w", userID.Hex(), apperrors.ErrNotFound)
}

func (s *MemoryLeaderStore) Search(_ context.Context, f models.LeaderFilter) ([]models.Leader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(f.Query)
	out := []models.Leader{}
	for _, l := range s.leaders {
		if f.Level != "" && l.Level != f.Level {
			continue
		}
		if f.District != "" && l.Location.District != f.District {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(l.Name), q) && !strings.Contains(strings.ToLower(l.Title), q) {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// MemoryAnnouncementStore keeps announcements in process memory.
type MemoryAnnouncementStore struct {
	mu    sync.RWMutex
	items map[primitive.ObjectID]models.Announcement
	now   func() time.Time
}

func NewMemoryAnnouncementStore() *MemoryAnnouncementStore {
	return &MemoryAnnouncementStore{items: make(map[primitive.ObjectID]models.Announcement), now: time.Now}
}

func cloneAnnouncement(a models.Announcement) models.Announcement {
	a.TargetAudience = append([]string{}, a.TargetAudience...)
	return a
}

func (s *MemoryAnnouncementStore) Create(_ context.Context, a *models.Announcement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	s.items[a.ID] = cloneAnnouncement(*a)
	return nil
}

func (s *MemoryAnnouncementStore) Update(_ context.Context, a *models.Announcement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[a.ID]; !ok {
		return fmt.Errorf("announcement %s: %w", a.ID.Hex(), apperrors.ErrNotFound)
	}
	s.items[a.ID] = cloneAnnouncement(*a)
	return nil
}

func (s *MemoryAnnouncementStore) Get(_ context.Context, id primitive.ObjectID) (*models.Announcement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("announcement %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	a = cloneAnnouncement(a)
	return &a, nil
}

func (s *MemoryAnnouncementStore) List(_ context.Context, f models.AnnouncementFilter) ([]models.Announcement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	q := strings.ToLower(f.Search)
	out := []models.Announcement{}
	for _, a := range s.items {
		if f.ActiveOnly && !a.Active(now) {
			continue
		}
		if f.LeaderID != nil && a.LeaderID != *f.LeaderID {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(a.Title), q) && !strings.Contains(strings.ToLower(a.Content), q) {
			continue
		}
		out = append(out, cloneAnnouncement(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// MemoryUserStore keeps accounts in process memory.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]models.User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[primitive.ObjectID]models.User)}
}

func (s *MemoryUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("email %s: %w", user.Email, apperrors.ErrConflict)
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	s.users[user.ID] = *user
	return nil
}

func (s *MemoryUserStore) Get(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	return &u, nil
}

func (s *MemoryUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("email %s: %w", email, apperrors.ErrNotFound)
}

func (s *MemoryUserStore) SetRole(_ context.Context, id primitive.ObjectID, role models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	u.Role = role
	u.UpdatedAt = time.Now()
	s.users[id] = u
	return nil
}

// NewMemoryStores returns a fresh in-memory Stores bundle.
func NewMemoryStores() Stores {
	return Stores{
		Issues:        NewMemoryIssueStore(),
		Leaders:       NewMemoryLeaderStore(),
		Announcements: NewMemoryAnnouncementStore(),
		Users:         NewMemoryUserStore(),
	}
}
