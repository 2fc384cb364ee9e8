package model

// NodeEventType identifies a lifecycle event from the worker-node pool
// manager
type NodeEventType string

const (
	NodeEventWorkerStarted  NodeEventType = "worker_started"
	NodeEventWorkerTimedOut NodeEventType = "worker_timed_out"
	NodeEventReconnected    NodeEventType = "node_reconnected"
	NodeEventGameClosed     NodeEventType = "game_closed"
	NodeEventPlayerLeft     NodeEventType = "player_left"
)

// NodeEvent is one lifecycle event emitted by the pool manager. Which
// fields are set depends on Type:
//   - WorkerStarted, WorkerTimedOut: NodeID
//   - Reconnected: NodeID and Sessions (the node's self-report)
//   - GameClosed: SessionID
//   - PlayerLeft: SessionID and Username
type NodeEvent struct {
	Type      NodeEventType
	NodeID    string
	SessionID SessionID
	Username  Username
	Sessions  []NodeSessionReport
}
