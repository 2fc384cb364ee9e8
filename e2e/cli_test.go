package e2e_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwren/castellan/internal/api"
	"github.com/jwren/castellan/internal/factory"
	"github.com/jwren/castellan/internal/gamenode"
	"github.com/jwren/castellan/internal/model"
)

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath string
	serverURL  string
	tokenFile  string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()

	// Find project root (where go.mod is)
	projectRoot := findProjectRoot(t)

	// Build the CLI binary
	binaryPath := filepath.Join(projectRoot, "bin", "castellanctl-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/castellanctl")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	// Create temp token file
	tokenFile := filepath.Join(t.TempDir(), "token")

	return &cliRunner{
		binaryPath: binaryPath,
		serverURL:  serverURL,
		tokenFile:  tokenFile,
	}
}

func (r *cliRunner) run(args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--token-file", r.tokenFile,
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func (r *cliRunner) runWithToken(token string, args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--token", token,
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// testServer manages a real HTTP server for e2e tests
type testServer struct {
	app      *factory.App
	server   *http.Server
	addr     string
	shutdown func()
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	// Find a free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	// Create application
	app, err := factory.New(factory.Config{
		Logger:        logger,
		TokenSecret:   []byte("e2e-token-secret"),
		HandoffSecret: []byte("e2e-handoff-secret"),
		Nodes: []gamenode.NodeConfig{
			{Identity: "node1", Address: "node1.test", Port: 9100, Protocol: "wss", MaxGames: 10},
		},
	})
	require.NoError(t, err)

	router := api.NewRouter(api.RouterConfig{
		Logger:      logger,
		AuthService: app.AuthService,
		Connections: app.Connections,
		Sessions:    app.Sessions,
		Controller:  app.Controller,
		NodeRouter:  app.Pool,
		Lobby:       app.LobbyServer,
	})

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server
	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	// Wait for server to be ready
	serverURL := "http://" + addr
	waitForServer(t, serverURL+"/api/v1/health")

	return &testServer{
		app:    app,
		server: server,
		addr:   serverURL,
		shutdown: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(ctx)
		},
	}
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

// grantOperator marks an existing account as a full operator
func grantOperator(t *testing.T, ts *testServer, username string) {
	t.Helper()

	ctx := context.Background()
	user, err := ts.app.Storage.GetUser(ctx, model.Username(username))
	require.NoError(t, err)
	user.Permissions = model.Permissions{CanManageGames: true, CanManageNodes: true}
	require.NoError(t, ts.app.Storage.SaveUser(ctx, user))
}

// Response types for JSON parsing
type authResponse struct {
	User struct {
		Username  string `json:"username"`
		EmailHash string `json:"emailHash"`
	} `json:"user"`
	Token string `json:"token"`
}

type statusResponse struct {
	Connections  int `json:"connections"`
	OnlineUsers  int `json:"onlineUsers"`
	Sessions     int `json:"sessions"`
	PendingGames int `json:"pendingGames"`
	StartedGames int `json:"startedGames"`
}

type nodeListResponse struct {
	Nodes []struct {
		Name     string `json:"name"`
		NumGames int    `json:"numGames"`
		Status   string `json:"status"`
		Disabled bool   `json:"disabled"`
	} `json:"nodes"`
}

type healthResponse struct {
	Status string `json:"status"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Tests

func TestCLI_HealthCheck(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("health")
	require.NoError(t, err, "output: %s", output)

	var resp healthResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestCLI_AccountCommands(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	// Register
	output, err := cli.run("account", "register", "--user", "alice", "--pass", "hunter22", "--email", "alice@example.com")
	require.NoError(t, err, "output: %s", output)

	var regResp authResponse
	require.NoError(t, json.Unmarshal([]byte(output), &regResp))
	assert.Equal(t, "alice", regResp.User.Username)
	assert.NotEmpty(t, regResp.Token)

	// Duplicate username is rejected
	output, err = cli.run("account", "register", "--user", "alice", "--pass", "other")
	assert.Error(t, err)
	assert.Contains(t, strings.ToLower(output), "exists")

	// Login with the registered credentials
	output, err = cli.run("account", "login", "--user", "alice", "--pass", "hunter22")
	require.NoError(t, err, "output: %s", output)

	var loginResp authResponse
	require.NoError(t, json.Unmarshal([]byte(output), &loginResp))
	assert.Equal(t, "alice", loginResp.User.Username)
	assert.NotEmpty(t, loginResp.Token)

	// Wrong password is rejected
	output, err = cli.run("account", "login", "--user", "alice", "--pass", "wrong")
	assert.Error(t, err)
	assert.Contains(t, strings.ToLower(output), "credentials")
}

func TestCLI_StatusCommand(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	// Status requires auth
	output, err := cli.run("status")
	assert.Error(t, err)
	assert.Contains(t, strings.ToLower(output), "auth")

	// Register saves the token; status then works
	output, err = cli.run("account", "register", "--user", "operator", "--pass", "hunter22")
	require.NoError(t, err, "output: %s", output)

	output, err = cli.run("status")
	require.NoError(t, err, "output: %s", output)

	var resp statusResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, 0, resp.Sessions)
}

func TestCLI_NodeCommands(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("account", "register", "--user", "operator", "--pass", "hunter22")
	require.NoError(t, err, "output: %s", output)
	var auth authResponse
	require.NoError(t, json.Unmarshal([]byte(output), &auth))

	// Without the manage-nodes permission the pool is off limits
	output, err = cli.run("nodes", "list")
	assert.Error(t, err)
	assert.Contains(t, strings.ToLower(output), "forbidden")

	// Grant operator rights and log in again for a fresh profile read
	grantOperator(t, ts, "operator")
	output, err = cli.run("account", "login", "--user", "operator", "--pass", "hunter22")
	require.NoError(t, err, "output: %s", output)

	output, err = cli.run("nodes", "list")
	require.NoError(t, err, "output: %s", output)

	var nodes nodeListResponse
	require.NoError(t, json.Unmarshal([]byte(output), &nodes))
	require.Len(t, nodes.Nodes, 1)
	assert.Equal(t, "node1", nodes.Nodes[0].Name)
	assert.False(t, nodes.Nodes[0].Disabled)

	// Disable, verify, enable
	output, err = cli.run("nodes", "disable", "node1")
	require.NoError(t, err, "output: %s", output)
	var msg messageResponse
	require.NoError(t, json.Unmarshal([]byte(output), &msg))
	assert.Contains(t, msg.Message, "disabled")

	output, err = cli.run("nodes", "list")
	require.NoError(t, err, "output: %s", output)
	require.NoError(t, json.Unmarshal([]byte(output), &nodes))
	assert.True(t, nodes.Nodes[0].Disabled)

	output, err = cli.run("nodes", "enable", "node1")
	require.NoError(t, err, "output: %s", output)

	// Unknown node errors
	output, err = cli.run("nodes", "disable", "ghost")
	assert.Error(t, err)
	assert.Contains(t, strings.ToLower(output), "not found")
}

func TestCLI_GameCommands(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("account", "register", "--user", "operator", "--pass", "hunter22")
	require.NoError(t, err, "output: %s", output)
	grantOperator(t, ts, "operator")
	output, err = cli.run("account", "login", "--user", "operator", "--pass", "hunter22")
	require.NoError(t, err, "output: %s", output)

	// Empty registry dump
	output, err = cli.run("games", "list")
	require.NoError(t, err, "output: %s", output)

	var games struct {
		Games []json.RawMessage `json:"games"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &games))
	assert.Empty(t, games.Games)

	// Removing an unknown game errors
	output, err = cli.run("games", "remove", "nosuchgame")
	assert.Error(t, err)
	assert.Contains(t, strings.ToLower(output), "not found")
}
