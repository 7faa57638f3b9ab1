package commmodule

import (
	"errors"
	"fmt"

	"github.com/berfenger/amicomm/pkg/psem"
	"go.uber.org/zap"
)

// TableDevice is the part of a PSEM session the gate needs.
type TableDevice interface {
	psem.ProcedureExecutor
	psem.TableCatalog
}

// ActivationError is returned when the meter refuses to show or hide a table.
type ActivationError struct {
	Table    psem.TableID
	Variant  ActivationVariant
	Activate bool
	Code     psem.ResultCode
}

func (e *ActivationError) Error() string {
	action := "deactivate"
	if e.Activate {
		action = "activate"
	}
	return fmt.Sprintf("%s table %s (%s): %s", action, e.Table, e.Variant, e.Code)
}

// VisibilityState records what Acquire found and changed. It belongs to a
// single request and must be handed back to Release.
type VisibilityState struct {
	TableID    psem.TableID
	WasVisible bool
	Variant    ActivationVariant
	activated  bool
}

// Gate makes hidden manufacturer tables visible for the duration of a request
// and hides them again afterwards. It is not reentrant: callers serialize.
type Gate struct {
	device  TableDevice
	variant ActivationVariant
	logger  *zap.Logger
}

func NewGate(device TableDevice, variant ActivationVariant, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{device: device, variant: variant, logger: logger}
}

func (g *Gate) Variant() ActivationVariant {
	return g.variant
}

// Acquire checks the visibility of table and activates it when hidden.
// When activation fails nothing changed on the meter and no Release is needed.
func (g *Gate) Acquire(table psem.TableID) (*VisibilityState, error) {
	state := &VisibilityState{TableID: table, Variant: g.variant}
	if g.device.IsTableUsed(table) {
		state.WasVisible = true
		return state, nil
	}
	if err := g.setVisible(table, true); err != nil {
		return nil, err
	}
	state.activated = true
	g.logger.Debug("table activated", zap.Stringer("table", table), zap.Stringer("variant", g.variant))
	return state, nil
}

// Release hides the table again if Acquire had to activate it.
func (g *Gate) Release(state *VisibilityState) error {
	if state == nil || !state.activated {
		return nil
	}
	state.activated = false
	if err := g.setVisible(state.TableID, false); err != nil {
		g.logger.Warn("table deactivation failed", zap.Stringer("table", state.TableID), zap.Error(err))
		return err
	}
	g.logger.Debug("table deactivated", zap.Stringer("table", state.TableID))
	return nil
}

// WithTable runs fn with table visible. The table is hidden again whether fn
// fails, succeeds or panics. An error from fn is reported first; a failed
// deactivation is joined to it.
func (g *Gate) WithTable(table psem.TableID, fn func() error) (err error) {
	state, err := g.Acquire(table)
	if err != nil {
		return err
	}
	defer func() {
		relErr := g.Release(state)
		if relErr == nil {
			return
		}
		if err != nil {
			err = errors.Join(err, relErr)
		} else {
			err = relErr
		}
	}()
	return fn()
}

func (g *Gate) setVisible(table psem.TableID, visible bool) error {
	code, _, err := g.device.ExecuteProcedure(g.variant.Procedure(), g.variant.Params(table, visible))
	if err != nil {
		return err
	}
	if !code.Ok() {
		return &ActivationError{Table: table, Variant: g.variant, Activate: visible, Code: code}
	}
	return nil
}
