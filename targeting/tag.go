// Package targeting computes and interprets announcement audiences.
//
// An audience is an ordered list of tags. The first tag always covers the
// authoring leader's whole jurisdiction; an optional second tag narrows it.
// Tags are kept structured internally and encoded as
//
//	regional_<level>_<scope>_<district>[_<sector>[_<cell>]]
//
// at the storage boundary, which is the format the delivery consumers read.
package targeting

import (
	"fmt"
	"strings"

	"citizenconnect/models"
)

const tagPrefix = "regional_"

// Scope names which part of a jurisdiction a tag covers.
type Scope string

const (
	ScopeDefault      Scope = "default"
	ScopeAllSectors   Scope = "all_sectors"
	ScopeAllCells     Scope = "all_cells"
	ScopeSpecificCell Scope = "specific_cell"
)

var scopes = []Scope{ScopeAllSectors, ScopeAllCells, ScopeSpecificCell, ScopeDefault}

// Tag is a structured audience tag.
type Tag struct {
	Level    models.Level `json:"level"`
	Scope    Scope        `json:"scope"`
	District string       `json:"district"`
	Sector   string       `json:"sector,omitempty"`
	Cell     string       `json:"cell,omitempty"`
}

// String encodes the tag in its wire form.
func (t Tag) String() string {
	var b strings.Builder
	b.WriteString(tagPrefix)
	b.WriteString(string(t.Level))
	b.WriteByte('_')
	b.WriteString(string(t.Scope))
	for _, part := range []string{t.District, t.Sector, t.Cell} {
		if part == "" {
			continue
		}
		b.WriteByte('_')
		b.WriteString(part)
	}
	return b.String()
}

// ParseTag decodes a wire tag. Place names containing underscores cannot be
// told apart from separators; they are rejected when the part count exceeds
// what the level allows.
func ParseTag(s string) (Tag, error) {
	rest, ok := strings.CutPrefix(s, tagPrefix)
	if !ok {
		return Tag{}, fmt.Errorf("tag %q: missing %q prefix", s, tagPrefix)
	}

	levelStr, rest, ok := strings.Cut(rest, "_")
	if !ok {
		return Tag{}, fmt.Errorf("tag %q: missing scope", s)
	}
	level := models.Level(levelStr)
	if !level.Valid() {
		return Tag{}, fmt.Errorf("tag %q: unknown level %q", s, levelStr)
	}

	var scope Scope
	for _, sc := range scopes {
		if after, found := strings.CutPrefix(rest, string(sc)+"_"); found {
			scope, rest = sc, after
			break
		}
	}
	if scope == "" {
		return Tag{}, fmt.Errorf("tag %q: unknown scope", s)
	}

	parts := strings.Split(rest, "_")
	if len(parts) > level.Rank()+1 || parts[0] == "" {
		return Tag{}, fmt.Errorf("tag %q: expected %d location parts, got %d", s, level.Rank()+1, len(parts))
	}

	t := Tag{Level: level, Scope: scope, District: parts[0]}
	if len(parts) > 1 {
		t.Sector = parts[1]
	}
	if len(parts) > 2 {
		t.Cell = parts[2]
	}
	return t, nil
}

// DefaultTag is the tag covering leader's entire jurisdiction.
func DefaultTag(leader *models.Leader) Tag {
	t := Tag{Level: leader.Level, Scope: ScopeDefault, District: leader.Location.District}
	if leader.Level == models.LevelSector || leader.Level == models.LevelCell {
		t.Sector = leader.Location.Sector
	}
	if leader.Level == models.LevelCell {
		t.Cell = leader.Location.Cell
	}
	return t
}
