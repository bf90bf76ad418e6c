package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/raccoonforest/ailink/internal/controller"
	"github.com/raccoonforest/ailink/internal/listener"
	"github.com/raccoonforest/ailink/internal/recorder"
	"github.com/raccoonforest/ailink/pkg/brain"
	"github.com/raccoonforest/ailink/pkg/events"
	"github.com/raccoonforest/ailink/pkg/logger"
)

type statusResponse struct {
	Controller controller.Status `json:"controller"`
	Listener   listener.Status   `json:"listener"`
	Events     events.Stats      `json:"events"`
}

type strategyResponse struct {
	Strategy  string   `json:"strategy"`
	Available []string `json:"available"`
}

type strategyRequest struct {
	Strategy string `json:"strategy"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type loggingResponse struct {
	Default    logger.LogLevel            `json:"default"`
	Components map[string]logger.LogLevel `json:"components"`
}

type loggingRequest struct {
	Component string `json:"component"`
	Level     string `json:"level"`
}

func (c *Component) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Controller: c.controller.Status(),
		Listener:   c.listener.Status(),
		Events:     c.deps.EventBus.Stats(),
	})
}

func (c *Component) handleSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, c.deps.Sessions.List())
}

func (c *Component) handleEpisodes(w http.ResponseWriter, r *http.Request) {
	if c.store == nil {
		writeError(w, http.StatusServiceUnavailable, "recorder is disabled")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	episodes, err := c.store.ListEpisodes(r.Context(), limit)
	if err != nil {
		c.logger.Error("Failed to list episodes", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list episodes")
		return
	}
	if episodes == nil {
		episodes = []recorder.Episode{}
	}
	writeJSON(w, http.StatusOK, episodes)
}

func (c *Component) handleEpisodeSteps(w http.ResponseWriter, r *http.Request) {
	if c.store == nil {
		writeError(w, http.StatusServiceUnavailable, "recorder is disabled")
		return
	}

	id := r.PathValue("id")
	steps, err := c.store.GetSteps(r.Context(), id, 1000)
	if err != nil {
		c.logger.Error("Failed to fetch steps", "episode", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch steps")
		return
	}
	if len(steps) == 0 {
		writeError(w, http.StatusNotFound, "episode not found or empty")
		return
	}
	writeJSON(w, http.StatusOK, steps)
}

func (c *Component) handleGetStrategy(w http.ResponseWriter, r *http.Request) {
	strategy, _ := c.controller.CurrentStrategy()
	writeJSON(w, http.StatusOK, strategyResponse{
		Strategy:  strategy,
		Available: brain.List(),
	})
}

func (c *Component) handleSetStrategy(w http.ResponseWriter, r *http.Request) {
	var req strategyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Strategy == "" {
		writeError(w, http.StatusBadRequest, "strategy is required")
		return
	}

	if err := c.controller.SetStrategy(req.Strategy); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	strategy, _ := c.controller.CurrentStrategy()
	writeJSON(w, http.StatusOK, strategyResponse{
		Strategy:  strategy,
		Available: brain.List(),
	})
}

func (c *Component) handleGetLogging(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, loggingResponse{
		Default:    logger.GetDefaultLevel(),
		Components: logger.GetComponentLevels(),
	})
}

// handleSetLogging adjusts a per-component log level at runtime. An empty
// level clears the override.
func (c *Component) handleSetLogging(w http.ResponseWriter, r *http.Request) {
	var req loggingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Component == "" {
		writeError(w, http.StatusBadRequest, "component is required")
		return
	}

	if req.Level == "" {
		logger.ClearComponentLevel(req.Component)
	} else {
		switch req.Level {
		case "debug", "info", "warn", "error":
		default:
			writeError(w, http.StatusBadRequest, "level must be debug, info, warn or error")
			return
		}
		logger.SetComponentLevel(req.Component, logger.LogLevel(req.Level))
	}

	c.logger.Info("Log level changed", "component", req.Component, "level", req.Level)
	writeJSON(w, http.StatusOK, loggingResponse{
		Default:    logger.GetDefaultLevel(),
		Components: logger.GetComponentLevels(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
