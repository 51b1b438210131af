package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// apiClient is a thin wrapper for the CLI subcommands to reach a
// locally running service, mirroring the teacher's cmd/provisr APIClient.
type apiClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func newAPIClient(baseURL, apiKey string) *apiClient {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:53211"
	}
	return &apiClient{baseURL: baseURL, apiKey: apiKey, client: &http.Client{Timeout: 10 * time.Second}}
}

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	Timestamp int64           `json:"timestamp"`
}

func (c *apiClient) do(method, path string, body io.Reader) (*envelope, error) {
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !env.Success {
		return &env, fmt.Errorf("api error: %s", env.Error)
	}
	return &env, nil
}

func (c *apiClient) list() (json.RawMessage, error) {
	env, err := c.do(http.MethodGet, "/api/v1/processes", nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *apiClient) start(id string) (json.RawMessage, error) {
	env, err := c.do(http.MethodPost, "/api/v1/processes/"+id+"/start", nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *apiClient) stop(id string) (json.RawMessage, error) {
	env, err := c.do(http.MethodPost, "/api/v1/processes/"+id+"/stop", nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *apiClient) logs(id string, lines int) (json.RawMessage, error) {
	env, err := c.do(http.MethodGet, "/api/v1/processes/"+id+"/logs?lines="+strconv.Itoa(lines), nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}
