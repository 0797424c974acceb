package indexer

import "go.uber.org/zap"

// undoStack collects compensating actions for each completed step of a
// multi-step operation. On failure the actions run in reverse order, which
// restores the registry/collection invariant without scattering manual
// cleanup.
type undoStack struct {
	actions []func() error
	logger  *zap.Logger
}

func newUndoStack(logger *zap.Logger) *undoStack {
	return &undoStack{logger: logger}
}

// push records a compensating action for a step that just succeeded.
func (u *undoStack) push(name string, fn func() error) {
	u.actions = append(u.actions, func() error {
		if err := fn(); err != nil {
			u.logger.Error("compensating action failed", zap.String("action", name), zap.Error(err))
			return err
		}
		return nil
	})
}

// run executes all recorded actions in reverse order. Failures are logged
// inside each action; run continues through the whole stack regardless.
func (u *undoStack) run() {
	for i := len(u.actions) - 1; i >= 0; i-- {
		_ = u.actions[i]()
	}
	u.actions = nil
}

// discard drops the recorded actions after the operation succeeds.
func (u *undoStack) discard() {
	u.actions = nil
}
