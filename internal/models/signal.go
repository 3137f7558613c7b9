package models

// Direction is the contract type sent to the broker.
type Direction string

const (
	Call Direction = "CALL"
	Put  Direction = "PUT"
)

// Opposite returns the reverse direction.
func (d Direction) Opposite() Direction {
	if d == Call {
		return Put
	}
	return Call
}

// Signal is a trading decision for one analysis cycle.
// Confidence is in (0, 1] and scales the stake.
type Signal struct {
	Direction  Direction `json:"direction"`
	Confidence float64   `json:"confidence"`
}
