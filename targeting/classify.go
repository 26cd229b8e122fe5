package targeting

import "strings"

// Classification describes how an audience is read by the announcement
// console. The substring rules match the console's filters exactly.
type Classification struct {
	DistrictWide bool `json:"districtWide"`
	SectorWide   bool `json:"sectorWide"`
	CellSpecific bool `json:"cellSpecific"`
	Regional     bool `json:"regional"`
}

// General reports whether no tag is regional.
func (c Classification) General() bool {
	return !c.Regional
}

// Matches reports whether c satisfies a console filter name. The empty
// filter and "all" match everything.
func (c Classification) Matches(filter string) bool {
	switch filter {
	case "", "all":
		return true
	case "district":
		return c.DistrictWide
	case "sector":
		return c.SectorWide
	case "cell":
		return c.CellSpecific
	case "regional":
		return c.Regional
	case "general":
		return c.General()
	}
	return false
}

// Classify interprets an encoded audience.
func Classify(tags []string) Classification {
	var c Classification
	for _, tag := range tags {
		hasDefault := strings.Contains(tag, string(ScopeDefault))
		if strings.Contains(tag, string(ScopeAllSectors)) || (hasDefault && strings.Contains(tag, "district")) {
			c.DistrictWide = true
		}
		if strings.Contains(tag, string(ScopeAllCells)) || (hasDefault && strings.Contains(tag, "sector")) {
			c.SectorWide = true
		}
		if strings.Contains(tag, string(ScopeSpecificCell)) || (hasDefault && strings.Contains(tag, "cell")) {
			c.CellSpecific = true
		}
		if strings.HasPrefix(tag, tagPrefix) {
			c.Regional = true
		}
	}
	return c
}
