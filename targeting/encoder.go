package targeting

import (
	"strings"
	"time"
	"unicode/utf8"

	"citizenconnect/apperrors"
	"citizenconnect/models"
)

// Restriction is the optional narrower audience chosen on the announcement form.
type Restriction struct {
	Enabled  bool         `json:"enabled"`
	Level    models.Level `json:"level"`
	District string       `json:"district"`
	Sector   string       `json:"sector,omitempty"`
	Cell     string       `json:"cell,omitempty"`
}

// Directory answers whether administrative areas exist.
type Directory interface {
	HasDistrict(district string) bool
	HasSector(district, sector string) bool
	HasCell(district, sector, cell string) bool
}

// Encoder builds audiences. The zero value performs no directory checks.
type Encoder struct {
	Directory Directory
}

// NewEncoder returns an Encoder; dir may be nil.
func NewEncoder(dir Directory) *Encoder {
	return &Encoder{Directory: dir}
}

// ValidateLeader checks that a leader's location matches its level exactly.
func (e *Encoder) ValidateLeader(leader *models.Leader) error {
	fe := apperrors.FieldErrors{}
	loc := leader.Location

	if !leader.Level.Valid() {
		fe.Add("level", "level must be one of district, sector, cell")
		return fe.Err()
	}
	if strings.TrimSpace(loc.District) == "" {
		fe.Add("location.district", "district is required")
	}

	needSector := leader.Level != models.LevelDistrict
	needCell := leader.Level == models.LevelCell
	switch {
	case needSector && loc.Sector == "":
		fe.Add("location.sector", "sector is required for sector and cell leaders")
	case !needSector && loc.Sector != "":
		fe.Add("location.sector", "district leaders have no sector")
	}
	switch {
	case needCell && loc.Cell == "":
		fe.Add("location.cell", "cell is required for cell leaders")
	case !needCell && loc.Cell != "":
		fe.Add("location.cell", "only cell leaders have a cell")
	}

	if len(fe) == 0 && e.Directory != nil {
		e.checkDirectory(fe, "location.", loc.District, loc.Sector, loc.Cell)
	}
	return fe.Err()
}

func (e *Encoder) checkDirectory(fe apperrors.FieldErrors, prefix, district, sector, cell string) {
	if !e.Directory.HasDistrict(district) {
		fe.Add(prefix+"district", "unknown district")
		return
	}
	if sector != "" && !e.Directory.HasSector(district, sector) {
		fe.Add(prefix+"sector", "sector is not in district")
		return
	}
	if cell != "" && !e.Directory.HasCell(district, sector, cell) {
		fe.Add(prefix+"cell", "cell is not in sector")
	}
}

// ValidateRestriction checks that r stays inside the leader's jurisdiction.
// Disabled restrictions are always valid.
func (e *Encoder) ValidateRestriction(leader *models.Leader, r Restriction) error {
	if !r.Enabled {
		return nil
	}
	fe := apperrors.FieldErrors{}

	if r.Level != models.LevelSector && r.Level != models.LevelCell {
		fe.Add("regionalFocus.level", "level must be sector or cell")
	} else if r.Level.Rank() < leader.Level.Rank() {
		fe.Add("regionalFocus.level", "restriction cannot be broader than your jurisdiction")
	}

	if r.District == "" {
		fe.Add("regionalFocus.district", "district is required")
	} else if r.District != leader.Location.District {
		fe.Add("regionalFocus.district", "district must be your own district")
	}

	if leader.Level == models.LevelSector || leader.Level == models.LevelCell {
		if r.Sector != leader.Location.Sector {
			fe.Add("regionalFocus.sector", "sector must be your own sector")
		}
	}
	if leader.Level == models.LevelCell && r.Cell != leader.Location.Cell {
		fe.Add("regionalFocus.cell", "cell must be your own cell")
	}

	if r.Level == models.LevelSector && r.Sector == "" {
		fe.Add("regionalFocus.sector", "sector is required")
	}
	if r.Level == models.LevelCell {
		if r.Sector == "" {
			fe.Add("regionalFocus.sector", "sector is required")
		}
		if r.Cell == "" {
			fe.Add("regionalFocus.cell", "cell is required")
		}
	}

	if len(fe) == 0 && e.Directory != nil {
		cell := ""
		if r.Level == models.LevelCell {
			cell = r.Cell
		}
		e.checkDirectory(fe, "regionalFocus.", r.District, r.Sector, cell)
	}
	return fe.Err()
}

// RestrictionTag builds the narrowing tag for an already validated restriction.
func RestrictionTag(r Restriction) Tag {
	t := Tag{Level: r.Level, District: r.District}
	switch r.Level {
	case models.LevelCell:
		t.Scope = ScopeSpecificCell
		t.Sector = r.Sector
		t.Cell = r.Cell
	case models.LevelSector:
		t.Scope = ScopeAllCells
		t.Sector = r.Sector
	default:
		t.Scope = ScopeAllSectors
	}
	return t
}

// Audience returns the encoded audience for an announcement by leader. The
// default tag is always first; a valid enabled restriction adds one more tag.
func (e *Encoder) Audience(leader *models.Leader, r Restriction) ([]string, error) {
	if err := e.ValidateLeader(leader); err != nil {
		return nil, err
	}
	if err := e.ValidateRestriction(leader, r); err != nil {
		return nil, err
	}

	tags := []string{DefaultTag(leader).String()}
	if r.Enabled {
		tags = append(tags, RestrictionTag(r).String())
	}
	return tags, nil
}

const minAnnouncementContent = 50

// AnnouncementDraft is the announcement form state.
type AnnouncementDraft struct {
	Title         string
	Content       string
	Category      string
	Priority      models.AnnouncementPriority
	HasExpiration bool
	ExpiresAt     *time.Time
	RegionalFocus Restriction
}

// ValidateAnnouncement checks the non-regional fields of a draft.
func ValidateAnnouncement(d AnnouncementDraft, now time.Time) error {
	fe := apperrors.FieldErrors{}
	if strings.TrimSpace(d.Title) == "" {
		fe.Add("title", "title is required")
	}
	if utf8.RuneCountInString(strings.TrimSpace(d.Content)) < minAnnouncementContent {
		fe.Add("content", "content must be at least 50 characters")
	}
	if d.Priority != "" && !d.Priority.Valid() {
		fe.Add("priority", "priority must be one of normal, important, urgent")
	}
	if d.HasExpiration {
		if d.ExpiresAt == nil {
			fe.Add("expiresAt", "expiration date is required")
		} else if !d.ExpiresAt.After(now) {
			fe.Add("expiresAt", "expiration date must be in the future")
		}
	}
	return fe.Err()
}

// Build validates a draft and returns the announcement it describes, with
// the audience recomputed from scratch.
func (e *Encoder) Build(leader *models.Leader, d AnnouncementDraft, now time.Time) (*models.Announcement, error) {
	fe := apperrors.FieldErrors{}
	merge := func(err error) error {
		if err == nil {
			return nil
		}
		ve, ok := apperrors.AsValidation(err)
		if !ok {
			return err
		}
		for k, v := range ve.Fields {
			fe.Add(k, v)
		}
		return nil
	}

	if err := merge(ValidateAnnouncement(d, now)); err != nil {
		return nil, err
	}
	tags, err := e.Audience(leader, d.RegionalFocus)
	if err := merge(err); err != nil {
		return nil, err
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}

	priority := d.Priority
	if priority == "" {
		priority = models.AnnouncementNormal
	}
	var expires *time.Time
	if d.HasExpiration {
		expires = d.ExpiresAt
	}

	return &models.Announcement{
		Title:          strings.TrimSpace(d.Title),
		Content:        strings.TrimSpace(d.Content),
		Category:       d.Category,
		Priority:       priority,
		ExpiresAt:      expires,
		TargetAudience: tags,
		LeaderID:       leader.ID,
		CreatedBy:      leader.UserID,
	}, nil
}
