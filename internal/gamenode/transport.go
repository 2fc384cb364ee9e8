package gamenode

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jwren/castellan/internal/model"
)

// HTTPTransport talks to worker nodes over their HTTP control endpoints
type HTTPTransport struct {
	client *http.Client
}

var _ NodeTransport = (*HTTPTransport)(nil)

// NewHTTPTransport creates an HTTPTransport
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPTransport{
		client: &http.Client{Timeout: timeout},
	}
}

// CloseGame asks the node to shut a game down
func (t *HTTPTransport) CloseGame(node NodeConfig, id model.SessionID) error {
	return t.post(node, fmt.Sprintf("/games/%s/close", id), nil)
}

// AddSpectator announces a spectator to the node
func (t *HTTPTransport) AddSpectator(node NodeConfig, id model.SessionID, user model.UserSummary) error {
	return t.post(node, fmt.Sprintf("/games/%s/spectators", id), user)
}

// NotifyFailedConnect reports a failed client handoff
func (t *HTTPTransport) NotifyFailedConnect(node NodeConfig, id model.SessionID, username model.Username) error {
	return t.post(node, fmt.Sprintf("/games/%s/connect-failed", id), map[string]model.Username{
		"username": username,
	})
}

// SendCardData pushes the card catalog snapshot
func (t *HTTPTransport) SendCardData(node NodeConfig, catalog *model.CardCatalog) error {
	return t.post(node, "/card-data", catalog)
}

func (t *HTTPTransport) post(node NodeConfig, path string, body any) error {
	if node.ControlURL == "" {
		return fmt.Errorf("node %s has no control endpoint: %w", node.Identity, model.ErrNodeNotFound)
	}

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encoding control request: %w", err)
		}
	}

	resp, err := t.client.Post(node.ControlURL+path, "application/json", &buf)
	if err != nil {
		return fmt.Errorf("node %s control request: %w", node.Identity, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("node %s returned HTTP %d for %s", node.Identity, resp.StatusCode, path)
	}
	return nil
}
