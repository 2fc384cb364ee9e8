package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwren/castellan/internal/api"
	"github.com/jwren/castellan/internal/api/response"
	"github.com/jwren/castellan/internal/factory"
	"github.com/jwren/castellan/internal/model"
	"github.com/jwren/castellan/internal/storage/memory"
)

// testServer creates a test server with all dependencies
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	app := factory.NewTestApp()

	router := api.NewRouter(api.RouterConfig{
		Logger:      logger,
		AuthService: app.AuthService,
		Connections: app.Connections,
		Sessions:    app.Sessions,
		Controller:  app.Controller,
		NodeRouter:  app.Pool,
		Lobby:       app.LobbyServer,
	})

	return &testServer{
		handler: router,
		app:     app,
	}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

// register creates an account and returns its auth token
func (ts *testServer) register(t *testing.T, username string) string {
	t.Helper()

	body := map[string]string{"username": username, "password": "hunter22"}
	rr := ts.request(http.MethodPost, "/api/v1/account/register", body, "")
	require.Equal(t, http.StatusCreated, rr.Code, "body: %s", rr.Body.String())

	var resp response.AuthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Token
}

// registerOperator creates an account with full operator permissions
func (ts *testServer) registerOperator(t *testing.T, username string) string {
	t.Helper()

	ts.register(t, username)

	ctx := context.Background()
	store := ts.app.Storage.(*memory.Storage)
	user, err := store.GetUser(ctx, model.Username(username))
	require.NoError(t, err)
	user.Permissions = model.Permissions{CanManageGames: true, CanManageNodes: true}
	require.NoError(t, store.SaveUser(ctx, user))

	// Re-login so the handler reads the updated profile
	rr := ts.request(http.MethodPost, "/api/v1/account/login", map[string]string{
		"username": username,
		"password": "hunter22",
	}, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp response.AuthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Token
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ok")
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)

	registerBody := map[string]string{
		"username": "alice",
		"password": "hunter22",
		"email":    "alice@example.com",
	}
	rr := ts.request(http.MethodPost, "/api/v1/account/register", registerBody, "")
	assert.Equal(t, http.StatusCreated, rr.Code)

	var registerResp response.AuthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &registerResp))
	assert.Equal(t, model.Username("alice"), registerResp.User.Username)
	assert.NotEmpty(t, registerResp.Token)

	// Duplicate username
	rr = ts.request(http.MethodPost, "/api/v1/account/register", registerBody, "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	// Login
	rr = ts.request(http.MethodPost, "/api/v1/account/login", map[string]string{
		"username": "alice",
		"password": "hunter22",
	}, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var loginResp response.AuthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &loginResp))
	assert.NotEmpty(t, loginResp.Token)

	// Bad password
	rr = ts.request(http.MethodPost, "/api/v1/account/login", map[string]string{
		"username": "alice",
		"password": "wrong",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRegisterValidation(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/account/register", map[string]string{
		"username": "",
		"password": "hunter22",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestStatusRequiresAuth(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/status", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/status", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestStatusSnapshot(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "alice")

	rr := ts.request(http.MethodGet, "/api/v1/status", nil, token)
	assert.Equal(t, http.StatusOK, rr.Code)

	var status response.Status
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	assert.Equal(t, 0, status.Sessions)
	assert.Equal(t, 0, status.Connections)
}

func TestNodesRequirePermission(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "alice")

	rr := ts.request(http.MethodGet, "/api/v1/nodes", nil, token)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestNodeListAndToggle(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerOperator(t, "operator")

	rr := ts.request(http.MethodGet, "/api/v1/nodes", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)

	var list response.NodeList
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list.Nodes, 1)
	assert.Equal(t, "node1", list.Nodes[0].Name)
	assert.False(t, list.Nodes[0].Disabled)

	rr = ts.request(http.MethodPost, "/api/v1/nodes/node1/disable", nil, token)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/nodes", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.True(t, list.Nodes[0].Disabled)

	rr = ts.request(http.MethodPost, "/api/v1/nodes/node1/enable", nil, token)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	// Unknown node
	rr = ts.request(http.MethodPost, "/api/v1/nodes/ghost/disable", nil, token)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGameDumpAndRemove(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerOperator(t, "operator")

	// Seed a pending session directly through the controller
	ctx := context.Background()
	owner, err := ts.app.AuthService.Register(ctx, "alice", "hunter22", "")
	require.NoError(t, err)
	session, err := ts.app.Controller.Create(ctx, "conn-alice", owner, model.SessionConfig{Name: "Test Game"})
	require.NoError(t, err)

	rr := ts.request(http.MethodGet, "/api/v1/games", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)

	var dump response.GameDumpList
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &dump))
	require.Len(t, dump.Games, 1)
	assert.Equal(t, session.ID(), dump.Games[0].Session.ID)
	assert.Equal(t, model.Username("alice"), dump.Games[0].Session.Owner)

	// Remove it
	rr = ts.request(http.MethodDelete, fmt.Sprintf("/api/v1/games/%s", session.ID()), nil, token)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	_, err = ts.app.Sessions.Get(session.ID())
	assert.ErrorIs(t, err, model.ErrSessionNotFound)

	// Removing again is a 404
	rr = ts.request(http.MethodDelete, fmt.Sprintf("/api/v1/games/%s", session.ID()), nil, token)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGamesRequirePermission(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "alice")

	rr := ts.request(http.MethodGet, "/api/v1/games", nil, token)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
