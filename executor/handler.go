package executor

import (
	"context"

	"github.com/kbukum/vidpipe/errors"
	"github.com/kbukum/vidpipe/queue"
	"github.com/kbukum/vidpipe/store"
)

// Handler returns a queue handler that loads the task's node and runs
// its executor. The node is read fresh so edits made while the task was
// queued are honoured.
func Handler(s store.Store, reg *Registry) queue.Handler {
	return func(ctx context.Context, t queue.Task) error {
		n, err := s.GetNode(ctx, t.NodeID)
		if err != nil {
			return err
		}
		e, ok := reg.Get(n.Type)
		if !ok {
			return errors.NoExecutor(n.Type)
		}
		return e.Execute(ctx, n)
	}
}
