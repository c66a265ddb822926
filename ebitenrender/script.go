package ebitenrender

import (
	"encoding/json"
	"fmt"
)

// scriptStep is a single action in a preview script.
type scriptStep struct {
	Action string  `json:"action"`
	Label  string  `json:"label,omitempty"`
	Time   float64 `json:"time,omitempty"`
	Frames int     `json:"frames,omitempty"`
}

type scriptFile struct {
	Steps []scriptStep `json:"steps"`
}

// Script sequences seeks, playback and snapshots across player ticks for
// automated visual checks. Attach it to Player.Script.
type Script struct {
	steps     []scriptStep
	cursor    int
	waitCount int
	done      bool
}

// LoadScript parses a JSON preview script such as
//
//	{"steps": [{"action": "seek", "time": 1.5}, {"action": "snapshot", "label": "title"}]}
//
// Actions are seek, play, pause, wait and snapshot.
func LoadScript(jsonData []byte) (*Script, error) {
	var f scriptFile
	if err := json.Unmarshal(jsonData, &f); err != nil {
		return nil, fmt.Errorf("parse preview script: %w", err)
	}
	if len(f.Steps) == 0 {
		return nil, fmt.Errorf("parse preview script: no steps")
	}
	for i, st := range f.Steps {
		switch st.Action {
		case "seek", "play", "pause", "wait", "snapshot":
		default:
			return nil, fmt.Errorf("parse preview script: step %d: unknown action %q", i, st.Action)
		}
	}
	return &Script{steps: f.Steps}, nil
}

// Done reports whether every step has run.
func (s *Script) Done() bool { return s.done }

// step advances the script by one tick.
func (s *Script) step(p *Player) error {
	if s.done {
		return nil
	}
	if s.waitCount > 0 {
		s.waitCount--
		return nil
	}
	if s.cursor >= len(s.steps) {
		s.done = true
		return nil
	}

	st := s.steps[s.cursor]
	s.cursor++

	switch st.Action {
	case "seek":
		p.Seek(st.Time)
	case "play":
		p.SetPlaying(true)
	case "pause":
		p.SetPlaying(false)
	case "wait":
		if st.Frames > 0 {
			s.waitCount = st.Frames - 1 // this tick counts as one
		}
	case "snapshot":
		if _, err := p.Snapshot(st.Label); err != nil {
			return fmt.Errorf("script step %d: %w", s.cursor-1, err)
		}
	}

	if s.cursor >= len(s.steps) && s.waitCount == 0 {
		s.done = true
	}
	return nil
}
