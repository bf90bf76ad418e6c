package gameconfig

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/raccoonforest/ailink/pkg/config"
	"github.com/raccoonforest/ailink/pkg/logger"
)

// Apply patches the game-side config file so the game dials the controller:
// the AI player entry gets the controller port, and the configured player
// cosmetics and game parameters are written over the existing values. Fields
// this controller does not know about (human input bindings, future game
// settings) round-trip untouched.
func Apply(path string, port int, unity config.Unity) error {
	log := logger.Get(logger.GameConfig)
	doc := make(map[string]any)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		log.Info("Game config not found, creating", "path", path)
	default:
		return fmt.Errorf("read %s: %w", path, err)
	}

	patchAIPlayer(doc, port, unity.Player)
	patchParameters(doc, unity.Parameters)

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(out, '\n'), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}

	log.Info("Game config updated", "path", path, "port", port)
	return nil
}

func patchAIPlayer(doc map[string]any, port int, player config.UnityPlayer) {
	players, _ := doc["players"].([]any)

	var ai map[string]any
	for _, p := range players {
		entry, ok := p.(map[string]any)
		if !ok {
			continue
		}
		if t, _ := entry["type"].(string); t == "AI" {
			ai = entry
			break
		}
	}

	if ai == nil {
		ai = map[string]any{"type": "AI"}
		players = append(players, ai)
	}

	ai["type"] = "AI"
	ai["port"] = port
	if player.Name != "" {
		ai["name"] = player.Name
	}
	if player.Color != "" {
		ai["color"] = player.Color
	}

	doc["players"] = players
}

func patchParameters(doc map[string]any, params config.UnityParameters) {
	existing, _ := doc["gameParameters"].(map[string]any)
	if existing == nil {
		existing = make(map[string]any)
	}

	if params.TimeScale > 0 {
		existing["timeScale"] = params.TimeScale
	}
	if params.AITimeBetweenStates > 0 {
		existing["aiTimeBetweenStates"] = params.AITimeBetweenStates
	}
	if params.TrainIterations > 0 {
		existing["trainIterations"] = params.TrainIterations
	}
	if params.ScreenWidth > 0 {
		existing["screenWidth"] = params.ScreenWidth
	}
	if params.ScreenHeight > 0 {
		existing["screenHeight"] = params.ScreenHeight
	}
	if params.ScreenResolutionScale > 0 {
		existing["screenResolutionScale"] = params.ScreenResolutionScale
	}
	if params.UseParallaxScrolling {
		existing["useParallaxScrolling"] = true
	}
	if params.AutoLoadLevel != "" {
		existing["autoLoadLevel"] = params.AutoLoadLevel
	}

	doc["gameParameters"] = existing
}
