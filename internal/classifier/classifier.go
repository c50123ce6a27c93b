package classifier

import (
	"github.com/OldStager01/cold-autoscaler/pkg/models"
)

type Classifier struct {
	table CountryTable
}

func New(table CountryTable) *Classifier {
	if len(table) == 0 {
		table = DefaultCountryTable()
	}
	return &Classifier{table: table}
}

// Tag returns the region an origin identifier belongs to.
func (c *Classifier) Tag(origin string) models.Region {
	return c.table.Lookup(origin)
}

// Classify aggregates a snapshot into per-region counts and shares.
// Origins already tagged with a known region are trusted; the rest go
// through the country table. Negative counts are treated as zero.
func (c *Classifier) Classify(snapshot models.TrafficSnapshot) models.RegionalTraffic {
	result := models.RegionalTraffic{
		Requests:    make(map[models.Region]int64, 4),
		Percentages: make(map[models.Region]float64, 4),
	}
	for _, region := range models.AllRegions() {
		result.Requests[region] = 0
		result.Percentages[region] = 0
	}

	for origin, traffic := range snapshot.Origins {
		if traffic.Requests <= 0 {
			continue
		}
		region := traffic.Region
		if !region.IsKnown() {
			region = c.Tag(origin)
		}
		result.Requests[region] += traffic.Requests
		result.Total += traffic.Requests
	}

	if result.Total > 0 {
		for region, count := range result.Requests {
			result.Percentages[region] = float64(count) / float64(result.Total) * 100
		}
	}

	return result
}

var defaultClassifier = New(DefaultCountryTable())

// Classify uses the default country table.
func Classify(snapshot models.TrafficSnapshot) models.RegionalTraffic {
	return defaultClassifier.Classify(snapshot)
}

func Tag(origin string) models.Region {
	return defaultClassifier.Tag(origin)
}
