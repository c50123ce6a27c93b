package models

import (
	"strings"
	"time"
)

type Region string

const (
	RegionAsia     Region = "asia"
	RegionAmericas Region = "americas"
	RegionEurope   Region = "europe"
	RegionUnknown  Region = "unknown"
)

// AllRegions returns every traffic region in reporting order.
func AllRegions() []Region {
	return []Region{RegionAsia, RegionAmericas, RegionEurope, RegionUnknown}
}

func ParseRegion(s string) Region {
	switch Region(strings.ToLower(strings.TrimSpace(s))) {
	case RegionAsia:
		return RegionAsia
	case RegionAmericas:
		return RegionAmericas
	case RegionEurope:
		return RegionEurope
	default:
		return RegionUnknown
	}
}

func (r Region) IsKnown() bool {
	return r == RegionAsia || r == RegionAmericas || r == RegionEurope
}

// OriginTraffic is the request count observed from one origin (country or
// client label) during a telemetry window.
type OriginTraffic struct {
	Requests int64  `json:"requests"`
	Region   Region `json:"region,omitempty"`
}

// TrafficSnapshot maps origin identifiers to their observed traffic.
type TrafficSnapshot struct {
	CapturedAt time.Time                `json:"captured_at"`
	Source     string                   `json:"source,omitempty"`
	Origins    map[string]OriginTraffic `json:"origins"`
}

func (s TrafficSnapshot) IsEmpty() bool {
	return len(s.Origins) == 0
}

// RegionalTraffic is the per-region aggregate of a TrafficSnapshot.
type RegionalTraffic struct {
	Total       int64              `json:"total_requests"`
	Requests    map[Region]int64   `json:"regional_traffic"`
	Percentages map[Region]float64 `json:"regional_percentages"`
}

func (t RegionalTraffic) RequestsFor(r Region) int64 {
	return t.Requests[r]
}

func (t RegionalTraffic) PercentageFor(r Region) float64 {
	return t.Percentages[r]
}
