package models

// Direction of a trend.
type Direction int8

const (
	Down Direction = -1
	Flat Direction = 0
	Up   Direction = 1
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "flat"
	}
}

// Sign returns the direction as +1, -1 or 0.
func (d Direction) Sign() float64 { return float64(d) }

// RegimeState is the trend state of one asset after the last tick.
type RegimeState struct {
	Trending  bool      `json:"trending"`
	Direction Direction `json:"direction"`
	Remaining int       `json:"remaining"`
	// Moved is the direction applied on the last tick. It stays set on the
	// tick that ends a trend, after Trending has been cleared.
	Moved Direction `json:"moved"`
}
