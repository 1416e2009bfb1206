package types

import "time"

// Signal is a directional trading signal produced by an upstream
// prediction layer. Strength is a confidence in [0, 1].
type Signal struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Direction Direction `json:"direction"`
	Strength  float64   `json:"strength"`
}

// IsActive reports whether the signal requests a directional position.
func (s Signal) IsActive() bool {
	return s.Direction == DirectionLong || s.Direction == DirectionShort
}
