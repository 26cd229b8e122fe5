package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"citizenconnect/models"
)

func TestNewAnnouncementEvent(t *testing.T) {
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	a := &models.Announcement{
		ID:             primitive.NewObjectID(),
		Title:          "Water cut",
		Priority:       models.AnnouncementUrgent,
		TargetAudience: []string{"regional_sector_default_Gasabo_Kacyiru"},
	}

	ev := NewAnnouncementEvent(a, now)
	assert.Equal(t, a.ID.Hex(), ev.ID)
	assert.True(t, ev.Classification.SectorWide)
	assert.True(t, ev.Classification.Regional)
	assert.Equal(t, now, ev.PublishedAt)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.PublishAnnouncement(context.Background(), &models.Announcement{}))
	p.Close()
}
