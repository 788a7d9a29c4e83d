package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type remoteReq struct {
	AgentName      string         `json:"agent_name"`
	UserID         string         `json:"user_id"`
	ThreadID       string         `json:"thread_id,omitempty"`
	UserRequest    string         `json:"user_request,omitempty"`
	Context        map[string]any `json:"context,omitempty"`
	TimeoutSeconds float64        `json:"timeout_seconds,omitempty"`
}

func (c *RemoteCmd) Run(g *Globals) error {
	body := remoteReq{
		AgentName:      c.Agent,
		UserID:         c.User,
		ThreadID:       c.Thread,
		UserRequest:    c.Request,
		TimeoutSeconds: c.Timeout.Seconds(),
	}
	if len(c.Context) > 0 {
		body.Context = make(map[string]any, len(c.Context))
		for k, v := range c.Context {
			body.Context[k] = parseValue(v)
		}
	}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	// The server enforces the run timeout; leave headroom for the response.
	clientTimeout := 5 * time.Minute
	if c.Timeout > 0 {
		clientTimeout = c.Timeout + 30*time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), clientTimeout)
	defer cancel()

	url := strings.TrimRight(c.Server, "/") + "/api/executions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", c.IdempotencyKey)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("post execution: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if err := writeJSON(g.Out, payload); err != nil {
		return err
	}
	if ok, _ := payload["success"].(bool); !ok {
		return errRunFailed
	}
	return nil
}
