package protocol

import (
	"encoding/json"
	"fmt"
)

// StateUpdate is the per-tick JSON object the game pushes. Unknown fields
// are ignored so newer game builds can add data without breaking older
// controllers.
type StateUpdate struct {
	IsDead           bool `json:"isDead"`
	NumActivePlayers int  `json:"numActivePlayers"`
	HasWeapon        bool `json:"hasWeapon"`
	NumWeapons       int  `json:"numWeapons"`
	GameEnded        bool `json:"gameEnded"`
}

func DecodeState(line []byte) (StateUpdate, error) {
	var s StateUpdate
	if err := json.Unmarshal(line, &s); err != nil {
		return StateUpdate{}, fmt.Errorf("decode state: %w", err)
	}
	return s, nil
}

// Terminal reports whether this update ends the episode.
func (s StateUpdate) Terminal() bool {
	return s.GameEnded || s.IsDead
}
