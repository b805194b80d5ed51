// Package apparition schedules the decorative ghost that drifts across a
// player's view. It has no effect on game state.
package apparition

import (
	"encoding/json"
	"time"
)

const (
	// TickInterval is how often the scheduler considers a pulse.
	TickInterval = 10 * time.Second

	// TriggerChance is the probability that a tick produces a pulse.
	TriggerChance = 0.1

	MinPercent = 10.0
	MaxPercent = 90.0

	MinVisible = 1000 * time.Millisecond
	MaxVisible = 3000 * time.Millisecond
)

// Rand is a uniform source on [0,1). *math/rand/v2.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// Pulse is the apparition's displayed state.
type Pulse struct {
	Visible         bool
	TopPercent      float64
	LeftPercent     float64
	Mirrored        bool
	VisibleDuration time.Duration
}

// Roll performs one tick's draw. It reports false, with a zero Pulse, when
// the tick does not trigger.
func Roll(r Rand) (Pulse, bool) {
	if r.Float64() >= TriggerChance {
		return Pulse{}, false
	}
	return NewPulse(r), true
}

// NewPulse draws a visible pulse at a random position and orientation.
func NewPulse(r Rand) Pulse {
	span := MaxPercent - MinPercent
	return Pulse{
		Visible:         true,
		TopPercent:      MinPercent + r.Float64()*span,
		LeftPercent:     MinPercent + r.Float64()*span,
		Mirrored:        r.Float64() < 0.5,
		VisibleDuration: MinVisible + time.Duration(r.Float64()*float64(MaxVisible-MinVisible)),
	}
}

type pulseJSON struct {
	Visible     bool    `json:"visible"`
	TopPercent  float64 `json:"top_percent"`
	LeftPercent float64 `json:"left_percent"`
	Mirrored    bool    `json:"mirrored"`
	VisibleMS   int64   `json:"visible_ms"`
}

// MarshalJSON encodes the visible duration in milliseconds.
func (p Pulse) MarshalJSON() ([]byte, error) {
	return json.Marshal(pulseJSON{
		Visible:     p.Visible,
		TopPercent:  p.TopPercent,
		LeftPercent: p.LeftPercent,
		Mirrored:    p.Mirrored,
		VisibleMS:   p.VisibleDuration.Milliseconds(),
	})
}

func (p *Pulse) UnmarshalJSON(data []byte) error {
	var raw pulseJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Pulse{
		Visible:         raw.Visible,
		TopPercent:      raw.TopPercent,
		LeftPercent:     raw.LeftPercent,
		Mirrored:        raw.Mirrored,
		VisibleDuration: time.Duration(raw.VisibleMS) * time.Millisecond,
	}
	return nil
}
