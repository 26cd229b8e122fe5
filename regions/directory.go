// Package regions loads the administrative-area directory (districts,
// sectors, cells) used to check leader jurisdictions and audience
// restrictions.
package regions

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type cellList []string

type sectorEntry struct {
	Name  string   `yaml:"name"`
	Cells cellList `yaml:"cells"`
}

type districtEntry struct {
	Name    string        `yaml:"name"`
	Sectors []sectorEntry `yaml:"sectors"`
}

type file struct {
	Districts []districtEntry `yaml:"districts"`
}

// Directory is an immutable index of administrative areas.
type Directory struct {
	districts map[string]map[string]map[string]struct{}
}

// Parse builds a Directory from YAML.
func Parse(data []byte) (*Directory, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse regions: %w", err)
	}

	d := &Directory{districts: make(map[string]map[string]map[string]struct{}, len(f.Districts))}
	for _, de := range f.Districts {
		if de.Name == "" {
			return nil, fmt.Errorf("district without a name")
		}
		if _, dup := d.districts[de.Name]; dup {
			return nil, fmt.Errorf("duplicate district %q", de.Name)
		}
		sectors := make(map[string]map[string]struct{}, len(de.Sectors))
		for _, se := range de.Sectors {
			if se.Name == "" {
				return nil, fmt.Errorf("district %q: sector without a name", de.Name)
			}
			cells := make(map[string]struct{}, len(se.Cells))
			for _, c := range se.Cells {
				cells[c] = struct{}{}
			}
			sectors[se.Name] = cells
		}
		d.districts[de.Name] = sectors
	}
	return d, nil
}

// Load reads a Directory from a YAML file.
func Load(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read regions file: %w", err)
	}
	return Parse(data)
}

func (d *Directory) HasDistrict(district string) bool {
	_, ok := d.districts[district]
	return ok
}

func (d *Directory) HasSector(district, sector string) bool {
	_, ok := d.districts[district][sector]
	return ok
}

func (d *Directory) HasCell(district, sector, cell string) bool {
	_, ok := d.districts[district][sector][cell]
	return ok
}

// Districts returns the number of districts loaded.
func (d *Directory) Districts() int {
	return len(d.districts)
}
