// Package notify hands published announcements to the delivery system.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"citizenconnect/models"
	"citizenconnect/targeting"
)

// AnnouncementSubject is the NATS subject announcements are published on.
const AnnouncementSubject = "citizenconnect.announcements"

// Publisher delivers announcement events.
type Publisher interface {
	PublishAnnouncement(ctx context.Context, a *models.Announcement) error
	Close()
}

// AnnouncementEvent is the payload consumers receive.
type AnnouncementEvent struct {
	ID             string                      `json:"id"`
	Title          string                      `json:"title"`
	Priority       models.AnnouncementPriority `json:"priority"`
	TargetAudience []string                    `json:"targetAudience"`
	Classification targeting.Classification    `json:"classification"`
	ExpiresAt      *time.Time                  `json:"expiresAt,omitempty"`
	PublishedAt    time.Time                   `json:"publishedAt"`
}

// NewAnnouncementEvent builds the event for a.
func NewAnnouncementEvent(a *models.Announcement, now time.Time) AnnouncementEvent {
	return AnnouncementEvent{
		ID:             a.ID.Hex(),
		Title:          a.Title,
		Priority:       a.Priority,
		TargetAudience: a.TargetAudience,
		Classification: targeting.Classify(a.TargetAudience),
		ExpiresAt:      a.ExpiresAt,
		PublishedAt:    now,
	}
}

// NATSPublisher publishes announcement events over NATS core.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to url.
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("citizenconnect"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) PublishAnnouncement(_ context.Context, a *models.Announcement) error {
	data, err := json.Marshal(NewAnnouncementEvent(a, time.Now()))
	if err != nil {
		return fmt.Errorf("marshal announcement event: %w", err)
	}
	if err := p.conn.Publish(AnnouncementSubject, data); err != nil {
		return fmt.Errorf("publish announcement %s: %w", a.ID.Hex(), err)
	}
	return nil
}

func (p *NATSPublisher) Close() {
	p.conn.Close()
}

// Nop discards events; used when no NATS server is configured.
type Nop struct{}

func (Nop) PublishAnnouncement(context.Context, *models.Announcement) error { return nil }
func (Nop) Close()                                                          {}
