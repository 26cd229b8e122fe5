package targeting

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"citizenconnect/apperrors"
	"citizenconnect/models"
)

func districtLeader() *models.Leader {
	return &models.Leader{Level: models.LevelDistrict, Location: models.Location{District: "Gasabo"}}
}

func sectorLeader() *models.Leader {
	return &models.Leader{Level: models.LevelSector, Location: models.Location{District: "Gasabo", Sector: "Kacyiru"}}
}

func cellLeader() *models.Leader {
	return &models.Leader{Level: models.LevelCell, Location: models.Location{District: "Gasabo", Sector: "Kacyiru", Cell: "Kamatamu"}}
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	ve, ok := apperrors.AsValidation(err)
	require.True(t, ok, "expected validation error, got %v", err)
	return ve.Fields
}

func TestAudienceDistrictLeaderNoRestriction(t *testing.T) {
	tags, err := NewEncoder(nil).Audience(districtLeader(), Restriction{})
	require.NoError(t, err)
	assert.Equal(t, []string{"regional_district_default_Gasabo"}, tags)
}

func TestAudienceSectorLeaderCellRestriction(t *testing.T) {
	r := Restriction{Enabled: true, Level: models.LevelCell, District: "Gasabo", Sector: "Kacyiru", Cell: "Kamatamu"}

	tags, err := NewEncoder(nil).Audience(sectorLeader(), r)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"regional_sector_default_Gasabo_Kacyiru",
		"regional_cell_specific_cell_Gasabo_Kacyiru_Kamatamu",
	}, tags)
}

func TestAudienceDistrictLeaderSectorRestriction(t *testing.T) {
	r := Restriction{Enabled: true, Level: models.LevelSector, District: "Gasabo", Sector: "Remera"}

	tags, err := NewEncoder(nil).Audience(districtLeader(), r)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"regional_district_default_Gasabo",
		"regional_sector_all_cells_Gasabo_Remera",
	}, tags)
}

func TestDefaultTagAlwaysFirstAndUnique(t *testing.T) {
	enc := NewEncoder(nil)
	leaders := []*models.Leader{districtLeader(), sectorLeader(), cellLeader()}
	restrictions := []Restriction{
		{},
		{Enabled: true, Level: models.LevelCell, District: "Gasabo", Sector: "Kacyiru", Cell: "Kamatamu"},
	}

	for _, l := range leaders {
		for _, r := range restrictions {
			tags, err := enc.Audience(l, r)
			require.NoError(t, err, "leader %s", l.Level)

			want := DefaultTag(l).String()
			assert.Equal(t, want, tags[0])
			count := 0
			for _, tag := range tags {
				if tag == want {
					count++
				}
			}
			assert.Equal(t, 1, count)
		}
	}
}

func TestRestrictionContainment(t *testing.T) {
	enc := NewEncoder(nil)

	tests := []struct {
		name  string
		r     Restriction
		field string
	}{
		{
			name:  "other district",
			r:     Restriction{Enabled: true, Level: models.LevelCell, District: "Kicukiro", Sector: "Kacyiru", Cell: "Kamatamu"},
			field: "regionalFocus.district",
		},
		{
			name:  "other sector",
			r:     Restriction{Enabled: true, Level: models.LevelCell, District: "Gasabo", Sector: "Remera", Cell: "Rukiri"},
			field: "regionalFocus.sector",
		},
		{
			name:  "missing district",
			r:     Restriction{Enabled: true, Level: models.LevelSector, Sector: "Kacyiru"},
			field: "regionalFocus.district",
		},
		{
			name:  "missing cell",
			r:     Restriction{Enabled: true, Level: models.LevelCell, District: "Gasabo", Sector: "Kacyiru"},
			field: "regionalFocus.cell",
		},
		{
			name:  "district level",
			r:     Restriction{Enabled: true, Level: models.LevelDistrict, District: "Gasabo", Sector: "Kacyiru"},
			field: "regionalFocus.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := enc.Audience(sectorLeader(), tt.r)
			require.Error(t, err)
			assert.Contains(t, fieldErrors(t, err), tt.field)
		})
	}
}

func TestCellLeaderRestrictedToOwnCell(t *testing.T) {
	enc := NewEncoder(nil)

	own := Restriction{Enabled: true, Level: models.LevelCell, District: "Gasabo", Sector: "Kacyiru", Cell: "Kamatamu"}
	tags, err := enc.Audience(cellLeader(), own)
	require.NoError(t, err)
	assert.Len(t, tags, 2)

	other := own
	other.Cell = "Kibaza"
	_, err = enc.Audience(cellLeader(), other)
	assert.Contains(t, fieldErrors(t, err), "regionalFocus.cell")

	broader := Restriction{Enabled: true, Level: models.LevelSector, District: "Gasabo", Sector: "Kacyiru", Cell: "Kamatamu"}
	_, err = enc.Audience(cellLeader(), broader)
	assert.Contains(t, fieldErrors(t, err), "regionalFocus.level")
}

func TestDisabledRestrictionIgnored(t *testing.T) {
	r := Restriction{Enabled: false, Level: models.LevelCell, District: "Elsewhere"}
	tags, err := NewEncoder(nil).Audience(districtLeader(), r)
	require.NoError(t, err)
	assert.Len(t, tags, 1)
}

func TestValidateLeader(t *testing.T) {
	enc := NewEncoder(nil)

	tests := []struct {
		name   string
		leader models.Leader
		field  string
	}{
		{"district with sector", models.Leader{Level: models.LevelDistrict, Location: models.Location{District: "Gasabo", Sector: "Kacyiru"}}, "location.sector"},
		{"sector without sector", models.Leader{Level: models.LevelSector, Location: models.Location{District: "Gasabo"}}, "location.sector"},
		{"sector with cell", models.Leader{Level: models.LevelSector, Location: models.Location{District: "Gasabo", Sector: "Kacyiru", Cell: "Kamatamu"}}, "location.cell"},
		{"cell without cell", models.Leader{Level: models.LevelCell, Location: models.Location{District: "Gasabo", Sector: "Kacyiru"}}, "location.cell"},
		{"no district", models.Leader{Level: models.LevelDistrict}, "location.district"},
		{"bad level", models.Leader{Level: "village", Location: models.Location{District: "Gasabo"}}, "level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := enc.ValidateLeader(&tt.leader)
			assert.Contains(t, fieldErrors(t, err), tt.field)
		})
	}

	for _, l := range []*models.Leader{districtLeader(), sectorLeader(), cellLeader()} {
		assert.NoError(t, enc.ValidateLeader(l))
	}
}

type stubDirectory struct{}

func (stubDirectory) HasDistrict(d string) bool  { return d == "Gasabo" }
func (stubDirectory) HasSector(d, s string) bool { return d == "Gasabo" && s == "Kacyiru" }
func (stubDirectory) HasCell(d, s, c string) bool {
	return d == "Gasabo" && s == "Kacyiru" && c == "Kamatamu"
}

func TestDirectoryChecks(t *testing.T) {
	enc := NewEncoder(stubDirectory{})

	r := Restriction{Enabled: true, Level: models.LevelCell, District: "Gasabo", Sector: "Kacyiru", Cell: "Nowhere"}
	_, err := enc.Audience(sectorLeader(), r)
	assert.Contains(t, fieldErrors(t, err), "regionalFocus.cell")

	l := &models.Leader{Level: models.LevelSector, Location: models.Location{District: "Gasabo", Sector: "Atlantis"}}
	assert.Contains(t, fieldErrors(t, enc.ValidateLeader(l)), "location.sector")
}

func TestValidateAnnouncement(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	long := strings.Repeat("a", 50)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name  string
		draft AnnouncementDraft
		field string
	}{
		{"ok", AnnouncementDraft{Title: "Water", Content: long}, ""},
		{"missing title", AnnouncementDraft{Title: "  ", Content: long}, "title"},
		{"short content", AnnouncementDraft{Title: "Water", Content: "  " + strings.Repeat("a", 49) + "   "}, "content"},
		{"expiry in past", AnnouncementDraft{Title: "Water", Content: long, HasExpiration: true, ExpiresAt: &past}, "expiresAt"},
		{"expiry now", AnnouncementDraft{Title: "Water", Content: long, HasExpiration: true, ExpiresAt: &now}, "expiresAt"},
		{"expiry missing", AnnouncementDraft{Title: "Water", Content: long, HasExpiration: true}, "expiresAt"},
		{"expiry future", AnnouncementDraft{Title: "Water", Content: long, HasExpiration: true, ExpiresAt: &future}, ""},
		{"past ignored without flag", AnnouncementDraft{Title: "Water", Content: long, ExpiresAt: &past}, ""},
		{"bad priority", AnnouncementDraft{Title: "Water", Content: long, Priority: "critical"}, "priority"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAnnouncement(tt.draft, now)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			assert.Contains(t, fieldErrors(t, err), tt.field)
		})
	}
}

func TestBuildMergesFieldErrors(t *testing.T) {
	d := AnnouncementDraft{
		Title:         "",
		Content:       "short",
		RegionalFocus: Restriction{Enabled: true, Level: models.LevelCell, District: "Kicukiro", Sector: "Kacyiru", Cell: "Kamatamu"},
	}
	_, err := NewEncoder(nil).Build(sectorLeader(), d, time.Now())
	fields := fieldErrors(t, err)
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "content")
	assert.Contains(t, fields, "regionalFocus.district")
}

func TestBuildDropsExpiryWithoutFlag(t *testing.T) {
	now := time.Now()
	future := now.Add(24 * time.Hour)
	d := AnnouncementDraft{Title: "Road works", Content: strings.Repeat("x", 60), ExpiresAt: &future}

	a, err := NewEncoder(nil).Build(districtLeader(), d, now)
	require.NoError(t, err)
	assert.Nil(t, a.ExpiresAt)
	assert.Equal(t, models.AnnouncementNormal, a.Priority)
	assert.Equal(t, []string{"regional_district_default_Gasabo"}, a.TargetAudience)
}
