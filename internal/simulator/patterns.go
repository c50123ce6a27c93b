package simulator

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/OldStager01/cold-autoscaler/pkg/models"
)

// Pattern shapes the request rate of one traffic region over time.
type Pattern interface {
	Apply(base float64, region models.Region, now time.Time) float64
	Name() string
}

var (
	PatternSteady   Pattern = &SteadyPattern{}
	PatternDaily    Pattern = &DailyPattern{}
	PatternAsiaPeak Pattern = &AsiaPeakPattern{}
)

func ParsePattern(name string) (Pattern, error) {
	switch name {
	case "steady", "":
		return PatternSteady, nil
	case "daily":
		return PatternDaily, nil
	case "asia_peak":
		return PatternAsiaPeak, nil
	case "random":
		return NewRandomPattern(time.Now().UnixNano()), nil
	case "gradual_rise":
		return &GradualRisePattern{StartTime: time.Now()}, nil
	default:
		return nil, fmt.Errorf("unknown pattern %q", name)
	}
}

// SteadyPattern - constant load
type SteadyPattern struct{}

func (p *SteadyPattern) Apply(base float64, _ models.Region, _ time.Time) float64 {
	return base
}

func (p *SteadyPattern) Name() string {
	return "steady"
}

// DailyPattern follows each region's local business hours. Hours are UTC.
type DailyPattern struct{}

// local offsets used to place each region's day
var regionOffset = map[models.Region]int{
	models.RegionAsia:     8,
	models.RegionAmericas: -5,
	models.RegionEurope:   1,
}

func (p *DailyPattern) Apply(base float64, region models.Region, now time.Time) float64 {
	hour := (now.UTC().Hour() + regionOffset[region] + 24) % 24

	var modifier float64
	switch {
	case hour >= 9 && hour <= 11:
		modifier = 1.4
	case hour >= 14 && hour <= 16:
		modifier = 1.3
	case hour >= 17 && hour <= 20:
		modifier = 1.1
	case hour <= 6:
		modifier = 0.4
	default:
		modifier = 1.0
	}

	return base * modifier
}

func (p *DailyPattern) Name() string {
	return "daily"
}

// AsiaPeakPattern multiplies Asian traffic during the Asian evening while
// the other regions stay flat.
type AsiaPeakPattern struct{}

func (p *AsiaPeakPattern) Apply(base float64, region models.Region, now time.Time) float64 {
	if region != models.RegionAsia {
		return base
	}
	hour := now.UTC().Hour()
	if hour >= 10 && hour <= 15 {
		return base * 3
	}
	return base * 1.5
}

func (p *AsiaPeakPattern) Name() string {
	return "asia_peak"
}

// RandomPattern - unpredictable spikes and drops
type RandomPattern struct {
	rng *rand.Rand
}

func NewRandomPattern(seed int64) *RandomPattern {
	return &RandomPattern{rng: rand.New(rand.NewSource(seed))}
}

func (p *RandomPattern) Apply(base float64, _ models.Region, _ time.Time) float64 {
	// modifier between 0.5 and 1.5
	return base * (0.5 + p.rng.Float64())
}

func (p *RandomPattern) Name() string {
	return "random"
}

// GradualRisePattern slowly grows Asian traffic, 10% per minute capped at
// four times the base.
type GradualRisePattern struct {
	StartTime time.Time
}

func (p *GradualRisePattern) Apply(base float64, region models.Region, now time.Time) float64 {
	if region != models.RegionAsia {
		return base
	}
	minutes := now.Sub(p.StartTime).Minutes()
	if minutes < 0 {
		minutes = 0
	}
	return base * (1 + math.Min(minutes*0.1, 3))
}

func (p *GradualRisePattern) Name() string {
	return "gradual_rise"
}
