package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/jwren/castellan/internal/broadcast"
	"github.com/jwren/castellan/internal/dependencies/mocks"
	"github.com/jwren/castellan/internal/gamenode"
	"github.com/jwren/castellan/internal/model"
	"github.com/jwren/castellan/internal/registry"
	"github.com/jwren/castellan/internal/services/auth"
	"github.com/jwren/castellan/internal/services/deck"
	"github.com/jwren/castellan/internal/services/handoff"
	"github.com/jwren/castellan/internal/services/matchmaking"
	"github.com/jwren/castellan/internal/services/message"
	"github.com/jwren/castellan/internal/storage/memory"
	"github.com/jwren/castellan/internal/testutil"
)

func handoffDetailsFixture() handoff.Details {
	return handoff.Details{
		Address:   "node1.example.com",
		Port:      9100,
		Protocol:  "wss",
		Name:      "node1",
		AuthToken: "token",
		SessionID: "g1",
	}
}

type nullRouter struct {
	events chan model.NodeEvent
}

var _ gamenode.Router = (*nullRouter)(nil)

func (r *nullRouter) Assign(ctx context.Context, session *model.Session) (*model.GameNode, error) {
	return &model.GameNode{Identity: "node1", Address: "node1.example.com", Port: 9100, Protocol: "wss"}, nil
}
func (r *nullRouter) CloseGame(session *model.Session) error { return nil }
func (r *nullRouter) AddSpectator(session *model.Session, user model.UserSummary) error {
	return nil
}
func (r *nullRouter) NotifyFailedConnect(session *model.Session, username model.Username) error {
	return nil
}
func (r *nullRouter) SendCardData(nodeID string, catalog *model.CardCatalog) error { return nil }
func (r *nullRouter) Node(nodeID string) (*model.GameNode, error) {
	return nil, model.ErrNodeNotFound
}
func (r *nullRouter) Status() []model.NodeStatus     { return nil }
func (r *nullRouter) DisableNode(name string) error  { return nil }
func (r *nullRouter) EnableNode(name string) error   { return nil }
func (r *nullRouter) Events() <-chan model.NodeEvent { return r.events }

type passthroughValidator struct{}

func (passthroughValidator) Validate(deck *model.Deck, catalog *model.CardCatalog) model.DeckStatus {
	return model.DeckStatus{Valid: true}
}

type ServerSuite struct {
	suite.Suite
	ctx         context.Context
	clock       *mocks.MockClock
	connections *registry.ConnectionRegistry
	sessions    *registry.SessionRegistry
	authService *auth.Service
	server      *Server
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func (s *ServerSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = mocks.NewMockClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	s.connections = registry.NewConnectionRegistry()
	s.sessions = registry.NewSessionRegistry()

	logger := testutil.NopLogger()
	store := memory.New()
	random := mocks.NewMockRandom()

	s.authService = auth.New(store, s.clock, []byte("auth-secret"), auth.DefaultConfig())
	decks := deck.New(store, passthroughValidator{}, logger)
	messages := message.New(store, s.clock, random)
	issuer := handoff.New([]byte("handoff-secret"), handoff.DefaultConfig(), s.clock)
	broadcaster := NewBroadcaster(s.connections, s.sessions, broadcast.NewThrottle(s.clock, time.Minute), logger)

	controller := matchmaking.NewController(
		s.sessions,
		s.connections,
		&nullRouter{events: make(chan model.NodeEvent)},
		issuer,
		decks,
		broadcaster,
		s.clock,
		random,
		logger,
		matchmaking.DefaultConfig(),
	)

	s.server = NewServer(s.connections, controller, s.authService, messages, broadcaster, logger, Config{})
}

// connect registers a connection the way ServeHTTP would, minus the
// actual socket
func (s *ServerSuite) connect(id string) (*registry.Connection, *fakeSender) {
	sender := &fakeSender{}
	conn := registry.NewConnection(model.ConnectionID(id), sender)
	s.connections.Add(conn)
	return conn, sender
}

func (s *ServerSuite) registerAndToken(name string) string {
	user, err := s.authService.Register(s.ctx, model.Username(name), "hunter22", name+"@example.com")
	s.Require().NoError(err)
	token, err := s.authService.IssueToken(user)
	s.Require().NoError(err)
	return token
}

func (s *ServerSuite) authenticate(conn *registry.Connection, name string) {
	token := s.registerAndToken(name)
	payload, err := json.Marshal(authenticateRequest{Token: token})
	s.Require().NoError(err)
	s.server.dispatch(s.ctx, conn, envelope{Type: msgAuthenticate, Data: payload})
}

func (s *ServerSuite) send(conn *registry.Connection, msgType string, payload any) {
	data, err := json.Marshal(payload)
	s.Require().NoError(err)
	s.server.dispatch(s.ctx, conn, envelope{Type: msgType, Data: data})
}

func (s *ServerSuite) TestUnauthenticatedRequestsRejected() {
	conn, sender := s.connect("c1")

	s.send(conn, msgNewGame, newGameRequest{Name: "nope"})

	errs := sender.byType(msgError)
	s.Require().Len(errs, 1)
	s.Equal("authentication required", errs[0].Payload.(errorResponse).Message)
	s.Equal(0, s.sessions.Len())
}

func (s *ServerSuite) TestAuthenticateAttachesUserAndSendsState() {
	conn, sender := s.connect("c1")

	s.authenticate(conn, "alice")

	s.Require().NotNil(conn.User())
	s.Equal(model.Username("alice"), conn.User().Username)

	s.Len(sender.byType(msgAuthenticated), 1)
	s.NotEmpty(sender.byType(msgGames))
	s.NotEmpty(sender.byType(msgUsers))
	s.NotEmpty(sender.byType(msgLobbyHistory))
}

func (s *ServerSuite) TestAuthenticateBadToken() {
	conn, sender := s.connect("c1")

	payload, err := json.Marshal(authenticateRequest{Token: "garbage"})
	s.Require().NoError(err)
	s.server.dispatch(s.ctx, conn, envelope{Type: msgAuthenticate, Data: payload})

	s.Nil(conn.User())
	s.Require().Len(sender.byType(msgError), 1)
}

func (s *ServerSuite) TestDuplicateLoginClosesPreviousConnection() {
	token := s.registerAndToken("alice")
	payload, err := json.Marshal(authenticateRequest{Token: token})
	s.Require().NoError(err)

	first, firstSender := s.connect("c1")
	s.server.dispatch(s.ctx, first, envelope{Type: msgAuthenticate, Data: payload})

	second, _ := s.connect("c2")
	s.server.dispatch(s.ctx, second, envelope{Type: msgAuthenticate, Data: payload})

	s.True(firstSender.closed)
	s.Equal(second, s.connections.ConnectionForUser("alice"))
}

func (s *ServerSuite) TestNewGameThenJoinFlow() {
	alice, _ := s.connect("c1")
	s.authenticate(alice, "alice")

	s.send(alice, msgNewGame, newGameRequest{Name: "alice's game"})
	s.Require().Equal(1, s.sessions.Len())
	session := s.sessions.All()[0]
	s.True(session.HasActiveUser("alice"))

	bob, bobSender := s.connect("c2")
	s.authenticate(bob, "bob")
	s.send(bob, msgJoinGame, gameRequest{GameID: session.ID()})

	s.True(session.HasActiveUser("bob"))
	s.NotEmpty(bobSender.byType(msgGameState))
}

func (s *ServerSuite) TestLobbyChatBroadcasts() {
	alice, _ := s.connect("c1")
	s.authenticate(alice, "alice")
	bob, bobSender := s.connect("c2")
	s.authenticate(bob, "bob")

	s.send(alice, msgLobbyChat, chatRequest{Message: "anyone up for a game?"})

	lines := bobSender.byType(msgLobbyMessage)
	s.Require().Len(lines, 1)
	s.Equal("anyone up for a game?", lines[0].Payload.(*model.LobbyMessage).Message)
}

func (s *ServerSuite) TestMalformedPayloadReturnsError() {
	conn, sender := s.connect("c1")
	s.authenticate(conn, "alice")

	s.server.dispatch(s.ctx, conn, envelope{Type: msgJoinGame, Data: json.RawMessage(`{"gameId":`)})

	errs := sender.byType(msgError)
	s.Require().NotEmpty(errs)
	s.Equal("malformed request", errs[len(errs)-1].Payload.(errorResponse).Message)
}
