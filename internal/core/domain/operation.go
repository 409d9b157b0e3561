package domain

import (
	"context"
	"time"
)

// OperationKind classifies the unit of work an agent submits.
type OperationKind string

const (
	OpKindPlan     OperationKind = "agent.plan"
	OpKindAct      OperationKind = "agent.act"
	OpKindObserve  OperationKind = "agent.observe"
	OpKindExplain  OperationKind = "agent.explain"
	OpKindToolCall OperationKind = "agent.tool_call"
)

// ProtocolKind identifies one of the interchangeable transport families.
type ProtocolKind string

const (
	ProtocolRPC    ProtocolKind = "rpc"    // request/response
	ProtocolStream ProtocolKind = "stream" // bidirectional streaming
	ProtocolBus    ProtocolKind = "bus"    // message bus
	ProtocolTool   ProtocolKind = "tool"   // tool invocation
)

// Operation is a single unit of work to execute against a transport.
// Invoke wraps the actual wire call; the resilience layer never inspects
// the payload.
type Operation struct {
	ID         string
	Name       string
	Kind       OperationKind
	Idempotent bool

	// Transport is filled in with the name of the transport the
	// operation was bound to.
	Transport string

	// Payload is the wire payload when Invoke is not supplied; the
	// executor builds Invoke from the selected transport's Call.
	Payload any

	// Invoke performs the operation against the chosen transport.
	Invoke func(ctx context.Context) (any, error)
}

// Attempt records one failed try of an operation.
type Attempt struct {
	Number    int       `json:"number"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error"`
}
