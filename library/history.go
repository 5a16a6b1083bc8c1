package library

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// EntityType names the store a Change applies to.
type EntityType string

// Entity types.
const (
	EntityBook   EntityType = "book"
	EntityClient EntityType = "client"
	EntityRental EntityType = "rental"
)

// Action indicates the type of modification performed.
type Action string

// Change actions.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Change is one store mutation with the entity state on both sides of it.
// Before is nil for creates, After is nil for deletes.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Inverse returns the change that reverts c.
func (c Change) Inverse() Change {
	switch c.Action {
	case ActionCreate:
		return Change{Entity: c.Entity, Action: ActionDelete, Before: c.After}
	case ActionDelete:
		return Change{Entity: c.Entity, Action: ActionCreate, After: c.Before}
	default:
		return Change{Entity: c.Entity, Action: c.Action, Before: c.After, After: c.Before}
	}
}

func (c Change) String() string {
	switch c.Action {
	case ActionCreate:
		return fmt.Sprintf("%s %s: %v", c.Action, c.Entity, c.After)
	case ActionDelete:
		return fmt.Sprintf("%s %s: %v", c.Action, c.Entity, c.Before)
	default:
		return fmt.Sprintf("%s %s: %v -> %v", c.Action, c.Entity, c.Before, c.After)
	}
}

// Applier performs a Change against the record stores.
type Applier interface {
	Apply(c Change) error
}

// Command is a recorded, reversible unit of work.
type Command interface {
	Undo() error
	Redo() error
	// Changes lists the forward changes in the order Redo applies them.
	Changes() []Change
}

// Operation is a Command made of a single Change.
type Operation struct {
	change Change
	target Applier
}

// NewOperation returns a Command that reverts and re-applies change on target.
func NewOperation(target Applier, change Change) *Operation {
	return &Operation{change: change, target: target}
}

func (o *Operation) Undo() error { return o.target.Apply(o.change.Inverse()) }
func (o *Operation) Redo() error { return o.target.Apply(o.change) }

func (o *Operation) Changes() []Change { return []Change{o.change} }

// CascadedOperation groups Commands into one unit. Undo runs the steps in
// reverse order, Redo in forward order. When a step fails, the steps already
// processed are run in the opposite direction so the group is never left
// half applied.
type CascadedOperation struct {
	steps   []Command
	primary int
}

// NewCascadedOperation groups steps, in forward order.
func NewCascadedOperation(steps ...Command) *CascadedOperation {
	return &CascadedOperation{steps: steps}
}

func (c *CascadedOperation) Undo() error {
	for i := len(c.steps) - 1; i >= 0; i-- {
		if err := c.steps[i].Undo(); err != nil {
			var comp []error
			for j := i + 1; j < len(c.steps); j++ {
				if cerr := c.steps[j].Redo(); cerr != nil {
					comp = append(comp, fmt.Errorf("compensate step %d: %w", j, cerr))
				}
			}
			return errors.Join(append([]error{fmt.Errorf("undo step %d: %w", i, err)}, comp...)...)
		}
	}
	return nil
}

func (c *CascadedOperation) Redo() error {
	for i, step := range c.steps {
		if err := step.Redo(); err != nil {
			var comp []error
			for j := i - 1; j >= 0; j-- {
				if cerr := c.steps[j].Undo(); cerr != nil {
					comp = append(comp, fmt.Errorf("compensate step %d: %w", j, cerr))
				}
			}
			return errors.Join(append([]error{fmt.Errorf("redo step %d: %w", i, err)}, comp...)...)
		}
	}
	return nil
}

func (c *CascadedOperation) Changes() []Change {
	var out []Change
	for _, step := range c.steps {
		out = append(out, step.Changes()...)
	}
	return out
}

// Len returns the number of steps.
func (c *CascadedOperation) Len() int { return len(c.steps) }

// PrimaryAt marks step i as the one the user asked for; the other steps are
// its cascade. The first step is primary by default.
func (c *CascadedOperation) PrimaryAt(i int) *CascadedOperation {
	if i >= 0 && i < len(c.steps) {
		c.primary = i
	}
	return c
}

// primaryChange returns the change that names cmd in logs and metrics.
func primaryChange(cmd Command) (Change, bool) {
	if c, ok := cmd.(*CascadedOperation); ok {
		if len(c.steps) == 0 {
			return Change{}, false
		}
		return primaryChange(c.steps[c.primary])
	}
	changes := cmd.Changes()
	if len(changes) == 0 {
		return Change{}, false
	}
	return changes[0], true
}

// rollback reverts steps already applied by a mutation that failed part way,
// newest first, and returns err with any rollback failure joined to it.
func rollback(err error, steps []Command) error {
	if len(steps) == 0 {
		return err
	}
	if uerr := NewCascadedOperation(steps...).Undo(); uerr != nil {
		return errors.Join(err, fmt.Errorf("rollback: %w", uerr))
	}
	return err
}

// History is a linear undo/redo log. Entries before the cursor are applied,
// entries at or after it are undone.
type History struct {
	entries []Command
	cursor  int

	logger  *zap.Logger
	metrics *Metrics
}

// NewHistory returns an empty log.
func NewHistory(logger *zap.Logger, metrics *Metrics) *History {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &History{logger: logger, metrics: metrics}
}

// Record appends cmd as the newest applied entry, discarding any undone ones.
func (h *History) Record(cmd Command) {
	if dropped := len(h.entries) - h.cursor; dropped > 0 {
		h.logger.Debug("discarding redo tail", zap.Int("entries", dropped))
	}
	h.entries = append(h.entries[:h.cursor:h.cursor], cmd)
	h.cursor = len(h.entries)
	h.metrics.commandRecorded(cmd)
}

// Undo reverts the newest applied entry. The cursor only moves when the
// entry was reverted successfully.
func (h *History) Undo() error {
	if h.cursor == 0 {
		return ErrNoOperationsToUndo
	}
	if err := h.entries[h.cursor-1].Undo(); err != nil {
		h.logger.Error("undo failed", zap.Int("entry", h.cursor-1), zap.Error(err))
		return fmt.Errorf("undo: %w", err)
	}
	h.cursor--
	h.metrics.undo()
	h.logger.Debug("undo", zap.Int("cursor", h.cursor))
	return nil
}

// Redo re-applies the oldest undone entry.
func (h *History) Redo() error {
	if h.cursor == len(h.entries) {
		return ErrNoOperationsToRedo
	}
	if err := h.entries[h.cursor].Redo(); err != nil {
		h.logger.Error("redo failed", zap.Int("entry", h.cursor), zap.Error(err))
		return fmt.Errorf("redo: %w", err)
	}
	h.cursor++
	h.metrics.redo()
	h.logger.Debug("redo", zap.Int("cursor", h.cursor))
	return nil
}

func (h *History) CanUndo() bool { return h.cursor > 0 }
func (h *History) CanRedo() bool { return h.cursor < len(h.entries) }
func (h *History) Len() int      { return len(h.entries) }
func (h *History) Cursor() int   { return h.cursor }

// Applied returns the applied entries, oldest first.
func (h *History) Applied() []Command {
	out := make([]Command, h.cursor)
	copy(out, h.entries[:h.cursor])
	return out
}
