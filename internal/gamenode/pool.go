package gamenode

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jwren/castellan/internal/model"
)

// eventBuffer bounds the lifecycle event channel; the reconciler drains
// it continuously so this only absorbs bursts
const eventBuffer = 64

// NodeConfig describes one worker node in the pool. Address/Port/Protocol
// are what clients are handed off to; ControlURL is the node's own
// control endpoint used by the pool manager.
type NodeConfig struct {
	Identity   string `json:"identity"`
	Address    string `json:"address"`
	Port       int    `json:"port"`
	Protocol   string `json:"protocol"`
	ControlURL string `json:"controlUrl"`
	MaxGames   int    `json:"maxGames"`
	Version    string `json:"version"`
}

// Pool is the in-process pool manager: it tracks the configured worker
// nodes, assigns sessions to the least loaded enabled node, and emits
// lifecycle events for the reconciler. The transport to the nodes
// themselves (spectator announcements, card data, close requests) is
// delegated to a NodeTransport so the wire protocol stays pluggable.
type Pool struct {
	transport NodeTransport
	logger    *slog.Logger

	mu     sync.Mutex
	nodes  map[string]*poolNode
	events chan model.NodeEvent
}

type poolNode struct {
	cfg      NodeConfig
	node     model.GameNode
	games    map[model.SessionID]bool
	disabled bool
}

// NodeTransport is the message channel from the pool manager to one
// worker node
type NodeTransport interface {
	CloseGame(node NodeConfig, id model.SessionID) error
	AddSpectator(node NodeConfig, id model.SessionID, user model.UserSummary) error
	NotifyFailedConnect(node NodeConfig, id model.SessionID, username model.Username) error
	SendCardData(node NodeConfig, catalog *model.CardCatalog) error
}

var _ Router = (*Pool)(nil)

// NewPool creates a Pool over the configured nodes
func NewPool(nodes []NodeConfig, transport NodeTransport, logger *slog.Logger) *Pool {
	p := &Pool{
		transport: transport,
		logger:    logger,
		nodes:     make(map[string]*poolNode, len(nodes)),
		events:    make(chan model.NodeEvent, eventBuffer),
	}
	for _, cfg := range nodes {
		p.nodes[cfg.Identity] = &poolNode{
			cfg: cfg,
			node: model.GameNode{
				Identity: cfg.Identity,
				Address:  cfg.Address,
				Port:     cfg.Port,
				Protocol: cfg.Protocol,
			},
			games: make(map[model.SessionID]bool),
		}
	}
	return p
}

// Assign picks the enabled node with the most free capacity
func (p *Pool) Assign(ctx context.Context, session *model.Session) (*model.GameNode, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var best *poolNode
	for _, n := range p.nodes {
		if n.disabled {
			continue
		}
		if n.cfg.MaxGames > 0 && len(n.games) >= n.cfg.MaxGames {
			continue
		}
		if best == nil || len(n.games) < len(best.games) {
			best = n
		}
	}
	if best == nil {
		return nil, model.ErrAssignmentFailed
	}

	best.games[session.ID()] = true
	p.logger.Info("session assigned to node",
		slog.String("session", string(session.ID())),
		slog.String("node", best.cfg.Identity),
		slog.Int("load", len(best.games)))

	node := best.node
	return &node, nil
}

// CloseGame asks the session's node to shut the game down. The session
// is removed from the registry when the node reports the closure back.
func (p *Pool) CloseGame(session *model.Session) error {
	cfg, err := p.configFor(session)
	if err != nil {
		return err
	}
	if err := p.transport.CloseGame(cfg, session.ID()); err != nil {
		return fmt.Errorf("closing game on node %s: %w", cfg.Identity, err)
	}
	return nil
}

// AddSpectator announces a spectator to the session's node
func (p *Pool) AddSpectator(session *model.Session, user model.UserSummary) error {
	cfg, err := p.configFor(session)
	if err != nil {
		return err
	}
	return p.transport.AddSpectator(cfg, session.ID(), user)
}

// NotifyFailedConnect reports a failed client handoff to the session's node
func (p *Pool) NotifyFailedConnect(session *model.Session, username model.Username) error {
	cfg, err := p.configFor(session)
	if err != nil {
		return err
	}
	return p.transport.NotifyFailedConnect(cfg, session.ID(), username)
}

// SendCardData pushes the card catalog snapshot to one node
func (p *Pool) SendCardData(nodeID string, catalog *model.CardCatalog) error {
	p.mu.Lock()
	n, ok := p.nodes[nodeID]
	p.mu.Unlock()
	if !ok {
		return model.ErrNodeNotFound
	}
	return p.transport.SendCardData(n.cfg, catalog)
}

func (p *Pool) configFor(session *model.Session) (NodeConfig, error) {
	node := session.Node()
	if node == nil {
		return NodeConfig{}, model.ErrNodeNotFound
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	n, ok := p.nodes[node.Identity]
	if !ok {
		return NodeConfig{}, model.ErrNodeNotFound
	}
	return n.cfg, nil
}

// Node resolves a node id to its connection details
func (p *Pool) Node(nodeID string) (*model.GameNode, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, ok := p.nodes[nodeID]
	if !ok {
		return nil, model.ErrNodeNotFound
	}
	node := n.node
	return &node, nil
}

// Status returns health records for every known node, sorted by whatever
// order the caller wants to impose; the admin API sorts client-side
func (p *Pool) Status() []model.NodeStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	statuses := make([]model.NodeStatus, 0, len(p.nodes))
	for _, n := range p.nodes {
		statuses = append(statuses, model.NodeStatus{
			Name:     n.cfg.Identity,
			NumGames: len(n.games),
			Status:   "ok",
			Version:  n.cfg.Version,
			MaxGames: n.cfg.MaxGames,
			Disabled: n.disabled,
		})
	}
	return statuses
}

// DisableNode stops a node from receiving new assignments; running games
// are unaffected
func (p *Pool) DisableNode(name string) error {
	return p.setDisabled(name, true)
}

// EnableNode returns a node to the assignment rotation
func (p *Pool) EnableNode(name string) error {
	return p.setDisabled(name, false)
}

func (p *Pool) setDisabled(name string, disabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, ok := p.nodes[name]
	if !ok {
		return model.ErrNodeNotFound
	}
	n.disabled = disabled
	p.logger.Info("node eligibility changed",
		slog.String("node", name),
		slog.Bool("disabled", disabled))
	return nil
}

// Events yields node lifecycle events for the reconciler
func (p *Pool) Events() <-chan model.NodeEvent {
	return p.events
}

// ReportEvent ingests one lifecycle event from a node's feedback channel
// (heartbeat timeouts, reconnect self-reports, game closures) and
// forwards it to the reconciler. Load accounting is updated here so
// Assign sees the node's real occupancy.
func (p *Pool) ReportEvent(ev model.NodeEvent) {
	p.mu.Lock()
	switch ev.Type {
	case model.NodeEventWorkerTimedOut:
		if n, ok := p.nodes[ev.NodeID]; ok {
			n.games = make(map[model.SessionID]bool)
		}
	case model.NodeEventReconnected:
		if n, ok := p.nodes[ev.NodeID]; ok {
			n.games = make(map[model.SessionID]bool, len(ev.Sessions))
			for _, report := range ev.Sessions {
				n.games[report.ID] = true
			}
		}
	case model.NodeEventGameClosed:
		for _, n := range p.nodes {
			delete(n.games, ev.SessionID)
		}
	}
	p.mu.Unlock()

	select {
	case p.events <- ev:
	default:
		p.logger.Error("event channel full, dropping node event",
			slog.String("type", string(ev.Type)))
	}
}
