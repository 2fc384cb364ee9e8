// Package reconcile rebuilds the orchestrator's session view from worker
// node lifecycle events. A node's self-report is authoritative for that
// node's sessions only: reconciliation inserts or updates every reported
// session, then prunes the node's absentees, so the registry converges to
// exactly the reported set.
package reconcile

import (
	"context"
	"log/slog"

	"github.com/jwren/castellan/internal/gamenode"
	"github.com/jwren/castellan/internal/model"
	"github.com/jwren/castellan/internal/registry"
	"github.com/jwren/castellan/internal/services/deck"
)

// Broadcaster is the slice of the push layer the reconciler needs
type Broadcaster interface {
	BroadcastGameList()
}

// Reconciler consumes node lifecycle events and mutates the session
// registry to match ground truth. Each event ends with at most one list
// broadcast regardless of how many sessions it touched.
type Reconciler struct {
	sessions    *registry.SessionRegistry
	router      gamenode.Router
	decks       *deck.Service
	broadcaster Broadcaster
	logger      *slog.Logger
}

// New creates a Reconciler
func New(
	sessions *registry.SessionRegistry,
	router gamenode.Router,
	decks *deck.Service,
	broadcaster Broadcaster,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		sessions:    sessions,
		router:      router,
		decks:       decks,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// Run consumes the router's event stream until the context is cancelled
func (r *Reconciler) Run(ctx context.Context) {
	events := r.router.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			r.Handle(ctx, ev)
		case <-ctx.Done():
			return
		}
	}
}

// Handle dispatches one node event. Never panics the event loop: bad
// data in a report degrades to a logged skip.
func (r *Reconciler) Handle(ctx context.Context, ev model.NodeEvent) {
	switch ev.Type {
	case model.NodeEventWorkerStarted:
		r.handleWorkerStarted(ctx, ev.NodeID)
	case model.NodeEventWorkerTimedOut:
		r.handleWorkerTimedOut(ev.NodeID)
	case model.NodeEventReconnected:
		r.handleReconnected(ev.NodeID, ev.Sessions)
	case model.NodeEventGameClosed:
		r.handleGameClosed(ev.SessionID)
	case model.NodeEventPlayerLeft:
		r.handlePlayerLeft(ev.SessionID, ev.Username)
	default:
		r.logger.Warn("unknown node event", slog.String("type", string(ev.Type)))
	}
}

// handleWorkerStarted pushes the card catalog snapshot to a freshly
// started node. No session state changes.
func (r *Reconciler) handleWorkerStarted(ctx context.Context, nodeID string) {
	catalog, err := r.decks.Catalog(ctx)
	if err != nil {
		r.logger.Warn("no catalog to push to started node",
			slog.String("node", nodeID),
			slog.String("error", err.Error()))
		return
	}
	if err := r.router.SendCardData(nodeID, catalog); err != nil {
		r.logger.Error("failed to push catalog to node",
			slog.String("node", nodeID),
			slog.String("error", err.Error()))
	}
}

// handleWorkerTimedOut drops every session assigned to the dead node;
// their state is presumed lost
func (r *Reconciler) handleWorkerTimedOut(nodeID string) {
	removed := r.removeNodeSessions(nodeID, nil)
	r.logger.Info("cleared sessions for timed out node",
		slog.String("node", nodeID),
		slog.Int("removed", removed))
	r.broadcaster.BroadcastGameList()
}

// handleReconnected applies the two-pass reconcile: rebuild every session
// the node reports, then prune this node's sessions absent from the
// report. Sessions are never kept on the optimistic assumption the node
// still has them.
func (r *Reconciler) handleReconnected(nodeID string, reports []model.NodeSessionReport) {
	node, err := r.router.Node(nodeID)
	if err != nil {
		r.logger.Error("reconnected node is unknown to the router",
			slog.String("node", nodeID))
	}

	reported := make(map[model.SessionID]bool, len(reports))

	for _, report := range reports {
		if !reportHasOwner(report) {
			// Data-integrity violation, not a recoverable case: skip this
			// session and keep reconciling the rest
			r.logger.Error("node reported a session whose owner is not a player",
				slog.String("node", nodeID),
				slog.String("session", string(report.ID)),
				slog.String("owner", string(report.Owner)))
			continue
		}
		if node == nil {
			continue
		}

		reported[report.ID] = true
		r.sessions.Insert(model.RestoreSession(report, node))
	}

	pruned := r.removeNodeSessions(nodeID, reported)
	r.logger.Info("reconciled sessions for reconnected node",
		slog.String("node", nodeID),
		slog.Int("restored", len(reported)),
		slog.Int("pruned", pruned))

	r.broadcaster.BroadcastGameList()
}

func reportHasOwner(report model.NodeSessionReport) bool {
	for _, p := range report.Players {
		if p.Name == report.Owner {
			return true
		}
	}
	return false
}

// removeNodeSessions deletes sessions assigned to the node, keeping ids
// in the keep set. Scans a point-in-time snapshot.
func (r *Reconciler) removeNodeSessions(nodeID string, keep map[model.SessionID]bool) int {
	removed := 0
	for _, session := range r.sessions.All() {
		node := session.Node()
		if node == nil || node.Identity != nodeID {
			continue
		}
		if keep[session.ID()] {
			continue
		}
		r.sessions.Remove(session.ID())
		removed++
	}
	return removed
}

// handleGameClosed removes a session its node reports as finished
func (r *Reconciler) handleGameClosed(id model.SessionID) {
	if _, err := r.sessions.Get(id); err != nil {
		return
	}
	r.sessions.Remove(id)
	r.logger.Info("session closed by node", slog.String("session", string(id)))
	r.broadcaster.BroadcastGameList()
}

// handlePlayerLeft applies the same leave transition as a local leave
func (r *Reconciler) handlePlayerLeft(id model.SessionID, username model.Username) {
	session, err := r.sessions.Get(id)
	if err != nil {
		return
	}

	session.Leave(username)
	if session.IsEmpty() {
		r.sessions.Remove(id)
	}
	r.broadcaster.BroadcastGameList()
}
