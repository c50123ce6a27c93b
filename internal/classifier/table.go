package classifier

import (
	"strings"

	"github.com/OldStager01/cold-autoscaler/pkg/models"
)

// CountryTable maps a traffic region to the lowercase substrings that identify
// origins belonging to it.
type CountryTable map[models.Region][]string

func DefaultCountryTable() CountryTable {
	return CountryTable{
		models.RegionAsia: {
			"china", "japan", "south korea", "singapore", "thailand", "vietnam",
			"malaysia", "indonesia", "philippines", "india", "australia", "new zealand",
		},
		models.RegionAmericas: {
			"united states", "canada", "mexico", "brazil", "argentina",
			"chile", "colombia", "peru", "venezuela",
		},
		models.RegionEurope: {
			"united kingdom", "germany", "france", "spain", "italy", "netherlands",
			"belgium", "switzerland", "austria", "poland", "sweden", "norway",
		},
	}
}

// NewCountryTable builds a table from raw configuration, normalising region
// keys and patterns. Unknown region keys are dropped.
func NewCountryTable(raw map[string][]string) CountryTable {
	table := make(CountryTable)
	for key, patterns := range raw {
		region := models.ParseRegion(key)
		if !region.IsKnown() {
			continue
		}
		for _, p := range patterns {
			p = strings.ToLower(strings.TrimSpace(p))
			if p != "" {
				table[region] = append(table[region], p)
			}
		}
	}
	return table
}

// Lookup resolves an origin identifier. Regions are tried in a fixed order so
// overlapping patterns resolve the same way every time.
func (t CountryTable) Lookup(origin string) models.Region {
	name := strings.ToLower(strings.TrimSpace(origin))
	if name == "" {
		return models.RegionUnknown
	}
	for _, region := range models.AllRegions() {
		for _, pattern := range t[region] {
			if strings.Contains(name, pattern) {
				return region
			}
		}
	}
	return models.RegionUnknown
}
