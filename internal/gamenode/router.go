// Package gamenode defines the boundary to the worker-node pool manager.
// The pool manager selects and health-checks the remote processes that
// execute started games; the orchestrator consumes this interface and
// reacts to the lifecycle events it emits.
package gamenode

import (
	"context"

	"github.com/jwren/castellan/internal/model"
)

// Router is implemented by the worker-node pool manager. Assign may take
// unbounded time (it can involve contacting a remote process), so callers
// must never invoke it while holding registry or session locks.
type Router interface {
	// Assign hands a ready session to a worker node. Returns
	// model.ErrAssignmentFailed when no node can take it.
	Assign(ctx context.Context, session *model.Session) (*model.GameNode, error)

	// CloseGame tells a session's node to shut the game down
	CloseGame(session *model.Session) error

	// AddSpectator informs a started session's node of a new spectator
	AddSpectator(session *model.Session, user model.UserSummary) error

	// NotifyFailedConnect reports that a client could not complete its
	// handoff to the session's node
	NotifyFailedConnect(session *model.Session, username model.Username) error

	// SendCardData pushes the card catalog snapshot to one node
	SendCardData(nodeID string, catalog *model.CardCatalog) error

	// Node resolves a node id to its connection details
	Node(nodeID string) (*model.GameNode, error)

	// Status returns health records for every known node
	Status() []model.NodeStatus

	// DisableNode and EnableNode toggle a node's eligibility for new
	// assignments
	DisableNode(name string) error
	EnableNode(name string) error

	// Events yields node lifecycle events for the reconciler
	Events() <-chan model.NodeEvent
}
