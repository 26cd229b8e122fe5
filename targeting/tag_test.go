package targeting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"citizenconnect/models"
)

func TestParseTag(t *testing.T) {
	tests := []struct {
		in   string
		want Tag
	}{
		{"regional_district_default_Gasabo", Tag{Level: models.LevelDistrict, Scope: ScopeDefault, District: "Gasabo"}},
		{"regional_sector_default_Gasabo_Kacyiru", Tag{Level: models.LevelSector, Scope: ScopeDefault, District: "Gasabo", Sector: "Kacyiru"}},
		{"regional_cell_specific_cell_Gasabo_Kacyiru_Kamatamu", Tag{Level: models.LevelCell, Scope: ScopeSpecificCell, District: "Gasabo", Sector: "Kacyiru", Cell: "Kamatamu"}},
		{"regional_sector_all_cells_Gasabo_Remera", Tag{Level: models.LevelSector, Scope: ScopeAllCells, District: "Gasabo", Sector: "Remera"}},
		{"regional_district_all_sectors_Gasabo", Tag{Level: models.LevelDistrict, Scope: ScopeAllSectors, District: "Gasabo"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTag(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestParseTagRejects(t *testing.T) {
	for _, in := range []string{
		"general",
		"regional_village_default_X",
		"regional_district",
		"regional_district_everything_Gasabo",
		"regional_district_default_Gasabo_Kacyiru",
		"regional_cell_default_",
	} {
		_, err := ParseTag(in)
		assert.Error(t, err, in)
	}
}

func TestDefaultTagDecodesToLeaderLevel(t *testing.T) {
	d := Classify([]string{DefaultTag(districtLeader()).String()})
	assert.True(t, d.DistrictWide)
	assert.False(t, d.SectorWide)
	assert.False(t, d.CellSpecific)

	s := Classify([]string{DefaultTag(sectorLeader()).String()})
	assert.True(t, s.SectorWide)
	assert.False(t, s.DistrictWide)

	c := Classify([]string{DefaultTag(cellLeader()).String()})
	assert.True(t, c.CellSpecific)
	assert.False(t, c.SectorWide)
}

func TestClassifyRegionalAndGeneral(t *testing.T) {
	assert.True(t, Classify(nil).General())
	assert.True(t, Classify([]string{"everyone"}).General())

	c := Classify([]string{"regional_district_default_Gasabo", "regional_sector_all_cells_Gasabo_Remera"})
	assert.True(t, c.Regional)
	assert.True(t, c.DistrictWide)
	assert.True(t, c.SectorWide)
	assert.False(t, c.General())
}

func TestClassificationMatches(t *testing.T) {
	c := Classify([]string{"regional_cell_specific_cell_Gasabo_Kacyiru_Kamatamu"})
	assert.True(t, c.Matches(""))
	assert.True(t, c.Matches("all"))
	assert.True(t, c.Matches("cell"))
	assert.True(t, c.Matches("regional"))
	assert.False(t, c.Matches("district"))
	assert.False(t, c.Matches("general"))
	assert.False(t, c.Matches("unknown"))
}
