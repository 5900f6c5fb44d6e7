package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/vidpipe/errors"
	"github.com/kbukum/vidpipe/logger"
	"github.com/kbukum/vidpipe/observability"
	"github.com/kbukum/vidpipe/pipeline"
	"github.com/kbukum/vidpipe/store"
)

// Operation names used in logs and metrics.
const (
	OpStarted   = "started"
	OpUpdated   = "updated"
	OpSucceeded = "succeeded"
	OpFailed    = "failed"
)

// Outcome reports what a token-gated operation did.
type Outcome struct {
	// Applied is false when the call was stale and nothing was written.
	Applied bool
	// Node is the node as it stands after the call.
	Node *pipeline.Node
}

// Notifier hears about every applied operation. It must not block.
type Notifier interface {
	NodeChanged(ctx context.Context, n *pipeline.Node, op string)
}

// Manager runs lifecycle operations against a store.
type Manager struct {
	store    store.Store
	log      *logger.Logger
	metrics  *observability.Metrics
	notifier Notifier
	now      func() time.Time
	newToken func() string
}

// Option configures a Manager.
type Option func(*Manager)

// WithMetrics records lifecycle outcomes on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(mgr *Manager) { mgr.metrics = m }
}

// WithNotifier reports applied operations to n.
func WithNotifier(n Notifier) Option {
	return func(mgr *Manager) { mgr.notifier = n }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(mgr *Manager) { mgr.now = now }
}

// WithTokenSource replaces the uuid v4 token generator.
func WithTokenSource(fn func() string) Option {
	return func(mgr *Manager) { mgr.newToken = fn }
}

// New creates a Manager.
func New(s store.Store, log *logger.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:    s,
		log:      log.WithComponent("lifecycle"),
		now:      time.Now,
		newToken: uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) timestamp() string {
	return m.now().UTC().Format(time.RFC3339Nano)
}

// ExecutionStarted begins a new attempt and returns its token. extra is
// merged into metadata; it cannot override the token. A completed node
// cannot be started and yields a CONFLICT error.
func (m *Manager) ExecutionStarted(ctx context.Context, nodeID string, extra map[string]any) (token string, err error) {
	ctx, op := observability.StartOperation(ctx, "lifecycle.started", attribute.String(observability.AttrNodeID, nodeID))
	defer func() { op.End(err) }()

	token = m.newToken()
	node, err := m.store.UpdateLocked(ctx, nodeID, func(n *pipeline.Node) (bool, error) {
		if !pipeline.CanTransition(n.Status, pipeline.StatusInProgress) {
			return false, errors.Conflict(fmt.Sprintf("node %s is %s and cannot be started", n.ID, n.Status))
		}
		n.EnsureDocuments()
		for _, k := range []string{pipeline.MetaError, pipeline.MetaErrorType, pipeline.MetaSubmitError, pipeline.MetaCompletedAt} {
			delete(n.Metadata, k)
		}
		for k, v := range extra {
			n.Metadata[k] = v
		}
		n.Metadata[pipeline.MetaProcessUUID] = token
		n.Metadata[pipeline.MetaStartedAt] = m.timestamp()
		n.Status = pipeline.StatusInProgress
		return true, nil
	})
	if err != nil {
		return "", err
	}

	op.SetAttributes(attribute.String(observability.AttrProcessUUID, token))
	m.metrics.RecordLifecycle(ctx, OpStarted, true)
	m.log.WithContext(ctx).Info("Execution started", map[string]interface{}{
		logger.FieldNodeID:      nodeID,
		logger.FieldProcessUUID: token,
	})
	m.notify(ctx, node, OpStarted)
	return token, nil
}

func (m *Manager) notify(ctx context.Context, n *pipeline.Node, op string) {
	if m.notifier != nil && n != nil {
		m.notifier.NodeChanged(ctx, n, op)
	}
}

// ExecutionUpdated shallow-merges patch into metadata when token is current.
func (m *Manager) ExecutionUpdated(ctx context.Context, nodeID string, patch map[string]any, token string) (Outcome, error) {
	return m.gated(ctx, OpUpdated, nodeID, token, pipeline.StatusInProgress, func(n *pipeline.Node) {
		for k, v := range patch {
			if k == pipeline.MetaProcessUUID {
				continue
			}
			n.Metadata[k] = v
		}
	})
}

// ExecutionSucceeded completes the node with the projected result when token is current.
func (m *Manager) ExecutionSucceeded(ctx context.Context, nodeID, executorType string, result map[string]any, token string) (Outcome, error) {
	return m.gated(ctx, OpSucceeded, nodeID, token, pipeline.StatusCompleted, func(n *pipeline.Node) {
		n.Status = pipeline.StatusCompleted
		n.Output = Project(executorType, result)
		n.Metadata[pipeline.MetaCompletedAt] = m.timestamp()
	})
}

// ExecutionFailed fails the node with message when token is current. An
// empty token is always stale.
func (m *Manager) ExecutionFailed(ctx context.Context, nodeID, message, token string) (Outcome, error) {
	return m.ExecutionFailedWith(ctx, nodeID, message, nil, token)
}

// ExecutionFailedWith is ExecutionFailed that also merges extra into
// metadata in the same write. extra cannot override the token, the error
// or the completion time.
func (m *Manager) ExecutionFailedWith(ctx context.Context, nodeID, message string, extra map[string]any, token string) (Outcome, error) {
	return m.gated(ctx, OpFailed, nodeID, token, pipeline.StatusFailed, func(n *pipeline.Node) {
		for k, v := range extra {
			if k == pipeline.MetaProcessUUID {
				continue
			}
			n.Metadata[k] = v
		}
		n.Status = pipeline.StatusFailed
		n.Metadata[pipeline.MetaError] = message
		n.Metadata[pipeline.MetaCompletedAt] = m.timestamp()
	})
}

// gated applies mutate under the lock when token is the node's current
// token and the node may move to target.
func (m *Manager) gated(ctx context.Context, opName, nodeID, token string, target pipeline.Status, mutate func(*pipeline.Node)) (out Outcome, err error) {
	ctx, op := observability.StartOperation(ctx, "lifecycle."+opName,
		attribute.String(observability.AttrNodeID, nodeID),
		attribute.String(observability.AttrProcessUUID, token),
	)
	defer func() { op.End(err) }()

	var reason string
	node, err := m.store.UpdateLocked(ctx, nodeID, func(n *pipeline.Node) (bool, error) {
		reason = staleReason(n, token, target)
		if reason != "" {
			return false, nil
		}
		n.EnsureDocuments()
		mutate(n)
		return true, nil
	})
	if err != nil {
		return Outcome{}, err
	}

	applied := reason == ""
	op.SetAttributes(attribute.Bool(observability.AttrApplied, applied))
	m.metrics.RecordLifecycle(ctx, opName, applied)

	fields := map[string]interface{}{
		logger.FieldNodeID:      nodeID,
		logger.FieldProcessUUID: token,
		logger.FieldOperation:   opName,
	}
	if !applied {
		fields["reason"] = reason
		m.log.WithContext(ctx).Info("Ignoring stale lifecycle call", fields)
	} else if opName != OpUpdated {
		fields[logger.FieldStatus] = string(node.Status)
		m.log.WithContext(ctx).Info("Execution finished", fields)
	}
	if applied {
		m.notify(ctx, node, opName)
	}
	return Outcome{Applied: applied, Node: node}, nil
}

func staleReason(n *pipeline.Node, token string, target pipeline.Status) string {
	current := n.ProcessUUID()
	switch {
	case token == "":
		return "missing token"
	case current == "":
		return "node has no execution"
	case token != current:
		return "superseded token"
	case !pipeline.CanTransition(n.Status, target):
		return fmt.Sprintf("node is %s", n.Status)
	}
	return ""
}
