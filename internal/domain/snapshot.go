package domain

// Trend is the direction of a period, comparing its last value to its first.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// TrendOf compares current against previous.
func TrendOf(current, previous float64) Trend {
	switch {
	case current > previous:
		return TrendUp
	case current < previous:
		return TrendDown
	default:
		return TrendStable
	}
}

// VolumeStats holds the volume half of a snapshot.
type VolumeStats struct {
	Current       float64 `json:"current_volume"`
	Total         float64 `json:"total_volume"`
	Avg           float64 `json:"avg_volume"`
	Max           float64 `json:"max_volume"`
	Min           float64 `json:"min_volume"`
	Change        float64 `json:"volume_change"`
	ChangePercent float64 `json:"volume_change_percent"`
	Trend         Trend   `json:"volume_trend"`
}

// StatisticsSnapshot is derived from a Series on request and never stored.
// A zero snapshot (HasData false) means the series was empty.
type StatisticsSnapshot struct {
	HasData       bool         `json:"-"`
	Current       float64      `json:"current"`
	Change        float64      `json:"change"`
	ChangePercent float64      `json:"change_percent"`
	Min           float64      `json:"min"`
	Max           float64      `json:"max"`
	Mean          float64      `json:"mean"`
	Volatility    float64      `json:"volatility"`
	Trend         Trend        `json:"trend"`
	Volume        *VolumeStats `json:"volume,omitempty"`
}

// ToMap flattens the snapshot into named fields. An empty snapshot has no keys.
func (s StatisticsSnapshot) ToMap() map[string]any {
	m := make(map[string]any)
	if !s.HasData {
		return m
	}
	m["current"] = s.Current
	m["change"] = s.Change
	m["change_percent"] = s.ChangePercent
	m["min"] = s.Min
	m["max"] = s.Max
	m["mean"] = s.Mean
	m["volatility"] = s.Volatility
	m["trend"] = string(s.Trend)

	if v := s.Volume; v != nil {
		m["current_volume"] = v.Current
		m["total_volume"] = v.Total
		m["avg_volume"] = v.Avg
		m["max_volume"] = v.Max
		m["min_volume"] = v.Min
		m["volume_change"] = v.Change
		m["volume_change_percent"] = v.ChangePercent
		m["volume_trend"] = string(v.Trend)
	}
	return m
}
