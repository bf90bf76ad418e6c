package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/raccoonforest/ailink/internal/controller"
	"github.com/raccoonforest/ailink/internal/listener"
	"github.com/raccoonforest/ailink/internal/recorder"
	"github.com/raccoonforest/ailink/pkg/events"
	"github.com/raccoonforest/ailink/pkg/session"
)

type StatusReply struct {
	Controller controller.Status `json:"controller"`
	Listener   listener.Status   `json:"listener"`
	Events     events.Stats      `json:"events"`
}

type StrategyReply struct {
	Strategy  string   `json:"strategy"`
	Available []string `json:"available"`
}

type LoggingReply struct {
	Default    string            `json:"default"`
	Components map[string]string `json:"components"`
}

// Client speaks to the ailinkd management API.
type Client struct {
	base string
	http *http.Client
}

func NewClient(addr string) *Client {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return &Client{
		base: strings.TrimRight(addr, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Status() (*StatusReply, error) {
	var reply StatusReply
	if err := c.get("/v1/status", &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (c *Client) Sessions() ([]session.Info, error) {
	var reply []session.Info
	if err := c.get("/v1/sessions", &reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func (c *Client) Episodes(limit int) ([]recorder.Episode, error) {
	path := "/v1/episodes"
	if limit > 0 {
		path += "?limit=" + url.QueryEscape(fmt.Sprint(limit))
	}
	var reply []recorder.Episode
	if err := c.get(path, &reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func (c *Client) EpisodeSteps(id string) ([]recorder.Step, error) {
	var reply []recorder.Step
	if err := c.get("/v1/episodes/"+url.PathEscape(id), &reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func (c *Client) Strategy() (*StrategyReply, error) {
	var reply StrategyReply
	if err := c.get("/v1/strategy", &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (c *Client) SetStrategy(name string) (*StrategyReply, error) {
	body, err := json.Marshal(map[string]string{"strategy": name})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPut, c.base+"/v1/strategy", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var reply StrategyReply
	if err := c.do(req, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (c *Client) Logging() (*LoggingReply, error) {
	var reply LoggingReply
	if err := c.get("/v1/logging", &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// SetLogging sets a per-component level override; an empty level clears it.
func (c *Client) SetLogging(component, level string) (*LoggingReply, error) {
	body, err := json.Marshal(map[string]string{"component": component, "level": level})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPut, c.base+"/v1/logging", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var reply LoggingReply
	if err := c.do(req, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (c *Client) get(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
