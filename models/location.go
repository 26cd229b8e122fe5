package models

// Level is an administrative jurisdiction level.
type Level string

const (
	LevelDistrict Level = "district"
	LevelSector   Level = "sector"
	LevelCell     Level = "cell"
)

func (l Level) Valid() bool {
	return l == LevelDistrict || l == LevelSector || l == LevelCell
}

// Rank orders levels from broadest (0) to narrowest (2); unknown levels rank -1.
func (l Level) Rank() int {
	switch l {
	case LevelDistrict:
		return 0
	case LevelSector:
		return 1
	case LevelCell:
		return 2
	}
	return -1
}

// Location is a district / sector / cell triple. Sector and Cell may be empty.
type Location struct {
	District string `bson:"district" json:"district"`
	Sector   string `bson:"sector,omitempty" json:"sector,omitempty"`
	Cell     string `bson:"cell,omitempty" json:"cell,omitempty"`
}
