package factory

import (
	"sync"
	"time"

	"github.com/jwren/castellan/internal/dependencies/mocks"
	"github.com/jwren/castellan/internal/gamenode"
	"github.com/jwren/castellan/internal/model"
	"github.com/jwren/castellan/internal/storage/memory"
)

// RecordingTransport is a NodeTransport that records control calls
// instead of reaching a real node
type RecordingTransport struct {
	mu          sync.Mutex
	ClosedGames []model.SessionID
	Spectators  []model.Username
	CardPushes  []string
}

func (t *RecordingTransport) CloseGame(node gamenode.NodeConfig, id model.SessionID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ClosedGames = append(t.ClosedGames, id)
	return nil
}

func (t *RecordingTransport) AddSpectator(node gamenode.NodeConfig, id model.SessionID, user model.UserSummary) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Spectators = append(t.Spectators, user.Username)
	return nil
}

func (t *RecordingTransport) NotifyFailedConnect(node gamenode.NodeConfig, id model.SessionID, username model.Username) error {
	return nil
}

func (t *RecordingTransport) SendCardData(node gamenode.NodeConfig, catalog *model.CardCatalog) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.CardPushes = append(t.CardPushes, node.Identity)
	return nil
}

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock     *mocks.MockClock
	MockRandom    *mocks.MockRandom
	NodeTransport *RecordingTransport
}

// NewTestApp creates an App configured for testing with mocked
// dependencies and one in-process game node
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	transport := &RecordingTransport{}

	cfg := Config{
		TokenSecret:   []byte("test-token-secret"),
		HandoffSecret: []byte("test-handoff-secret"),
		Nodes: []gamenode.NodeConfig{
			{Identity: "node1", Address: "node1.test", Port: 9100, Protocol: "wss", MaxGames: 20},
		},
	}

	app := newWithDependencies(store, mockClock, mockRandom, transport, nil, cfg)

	return &TestApp{
		App:           app,
		MockClock:     mockClock,
		MockRandom:    mockRandom,
		NodeTransport: transport,
	}
}
