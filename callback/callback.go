package callback

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/vidpipe/errors"
	"github.com/kbukum/vidpipe/lifecycle"
	"github.com/kbukum/vidpipe/logger"
	"github.com/kbukum/vidpipe/observability"
	"github.com/kbukum/vidpipe/pipeline"
	"github.com/kbukum/vidpipe/store"
	"github.com/kbukum/vidpipe/util"
)

// MetaErrorType holds the error class reported by a failed attempt.
const MetaErrorType = pipeline.MetaErrorType

// Callback is a completion report from compute.
type Callback struct {
	NodeID       string         `json:"node_id" validate:"required"`
	ExecutorType string         `json:"executor_type"`
	Result       map[string]any `json:"result,omitempty"`
	Error        string         `json:"error,omitempty"`
	ErrorType    string         `json:"error_type,omitempty"`
	ProcessUUID  string         `json:"process_uuid,omitempty"`
}

// Progress is an intermediate report merged into node metadata.
type Progress struct {
	NodeID      string         `json:"node_id" validate:"required"`
	ProcessUUID string         `json:"process_uuid" validate:"required"`
	Metadata    map[string]any `json:"metadata" validate:"required"`
}

// Lifecycle is the part of lifecycle.Manager the router drives.
type Lifecycle interface {
	ExecutionUpdated(ctx context.Context, nodeID string, patch map[string]any, token string) (lifecycle.Outcome, error)
	ExecutionSucceeded(ctx context.Context, nodeID, executorType string, result map[string]any, token string) (lifecycle.Outcome, error)
	ExecutionFailedWith(ctx context.Context, nodeID, message string, extra map[string]any, token string) (lifecycle.Outcome, error)
}

// Router applies callbacks to nodes.
type Router struct {
	store   store.Store
	lc      Lifecycle
	log     *logger.Logger
	metrics *observability.Metrics
}

// NewRouter creates a Router. metrics may be nil.
func NewRouter(s store.Store, lc Lifecycle, log *logger.Logger, metrics *observability.Metrics) *Router {
	return &Router{store: s, lc: lc, log: log.WithComponent("callback"), metrics: metrics}
}

// Handle routes a completion report. Errors go to ExecutionFailed and
// results to ExecutionSucceeded, both under the node's own token. A stale
// report yields a STALE_CALLBACK error and changes nothing.
func (r *Router) Handle(ctx context.Context, cb Callback) (node *pipeline.Node, err error) {
	ctx, op := observability.StartOperation(ctx, "callback.handle",
		attribute.String(observability.AttrNodeID, cb.NodeID),
		attribute.String(observability.AttrProcessUUID, cb.ProcessUUID),
	)
	defer func() { op.End(err) }()

	n, err := r.store.GetNode(ctx, cb.NodeID)
	if err != nil {
		r.metrics.RecordCallback(ctx, cb.ExecutorType, observability.CallbackError)
		return nil, err
	}
	executorType := util.Coalesce(cb.ExecutorType, n.Type)
	token := n.ProcessUUID()

	if reason := staleReason(n, cb.ProcessUUID); reason != "" {
		return nil, r.stale(ctx, cb, executorType, reason)
	}

	var (
		out    lifecycle.Outcome
		result string
	)
	if cb.Error != "" {
		var extra map[string]any
		if cb.ErrorType != "" {
			extra = map[string]any{MetaErrorType: cb.ErrorType}
		}
		out, err = r.lc.ExecutionFailedWith(ctx, n.ID, cb.Error, extra, token)
		result = observability.CallbackFailed
	} else {
		out, err = r.lc.ExecutionSucceeded(ctx, n.ID, executorType, cb.Result, token)
		result = observability.CallbackSucceeded
	}
	if err != nil {
		r.metrics.RecordCallback(ctx, executorType, observability.CallbackError)
		return nil, err
	}
	if !out.Applied {
		return nil, r.stale(ctx, cb, executorType, "superseded while applying")
	}

	r.metrics.RecordCallback(ctx, executorType, result)
	r.log.WithContext(ctx).Info("Callback applied", map[string]interface{}{
		logger.FieldNodeID:      n.ID,
		logger.FieldExecutor:    executorType,
		logger.FieldProcessUUID: token,
		logger.FieldStatus:      string(out.Node.Status),
	})
	return out.Node, nil
}

// HandleProgress merges a progress report into metadata. Stale reports
// are ignored and reported through Outcome.Applied.
func (r *Router) HandleProgress(ctx context.Context, p Progress) (lifecycle.Outcome, error) {
	return r.lc.ExecutionUpdated(ctx, p.NodeID, p.Metadata, p.ProcessUUID)
}

func (r *Router) stale(ctx context.Context, cb Callback, executorType, reason string) error {
	r.metrics.RecordCallback(ctx, executorType, observability.CallbackStale)
	r.log.WithContext(ctx).Info("Dropping stale callback", map[string]interface{}{
		logger.FieldNodeID:      cb.NodeID,
		logger.FieldExecutor:    executorType,
		logger.FieldProcessUUID: cb.ProcessUUID,
		"reason":                reason,
	})
	return errors.StaleCallback(cb.NodeID, reason)
}

func staleReason(n *pipeline.Node, claimed string) string {
	current := n.ProcessUUID()
	switch {
	case current == "":
		return "node has no execution"
	case claimed != "" && claimed != current:
		return "superseded process_uuid"
	case n.Status != pipeline.StatusInProgress:
		return "node is " + string(n.Status)
	}
	return ""
}
