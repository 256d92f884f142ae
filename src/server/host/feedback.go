package host

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"mx44-utils/src/server/matrix"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrBadOption     = errors.New("bad option")
)

// Variables renders every host variable from snap.
func Variables(snap matrix.Snapshot) map[string]string {
	vars := make(map[string]string, snap.Inputs+snap.Outputs)
	for i := 1; i <= snap.Inputs; i++ {
		vars[InputVariable(i)] = snap.OutputList(i)
	}
	for o := 1; o <= snap.Outputs; o++ {
		vars[OutputVariable(o)] = strconv.Itoa(snap.Routes[o])
	}
	return vars
}

// IsSelected backs the "selected" feedback.
func IsSelected(snap matrix.Snapshot, input int) bool {
	return snap.SelectedInput == input
}

// IsRoutedFromSelected backs the "output" feedback.
func IsRoutedFromSelected(snap matrix.Snapshot, output int) bool {
	input, ok := snap.Routes[output]
	return ok && input == snap.SelectedInput
}

// FeedbackStates holds every boolean feedback keyed by port id.
type FeedbackStates struct {
	Selected map[int]bool `json:"selected"`
	Output   map[int]bool `json:"output"`
}

func EvaluateFeedbacks(snap matrix.Snapshot) FeedbackStates {
	fb := FeedbackStates{
		Selected: make(map[int]bool, snap.Inputs),
		Output:   make(map[int]bool, snap.Outputs),
	}
	for i := 1; i <= snap.Inputs; i++ {
		fb.Selected[i] = IsSelected(snap, i)
	}
	for o := 1; o <= snap.Outputs; o++ {
		fb.Output[o] = IsRoutedFromSelected(snap, o)
	}
	return fb
}

// Controller is the set of intents an action can trigger.
type Controller interface {
	SelectInput(ctx context.Context, input int) error
	SwitchOutput(ctx context.Context, output int) error
	Route(ctx context.Context, input, output int) error
	RouteAll(ctx context.Context, input int, useSelected bool) error
}

// Execute runs the action id with host-supplied options. Port options may be
// strings ("2") or JSON numbers.
func Execute(ctx context.Context, c Controller, action string, options map[string]any) error {
	switch action {
	case ActionSelectInput:
		input, err := intOption(options, "input")
		if err != nil {
			return err
		}
		return c.SelectInput(ctx, input)
	case ActionSwitchOutput:
		output, err := intOption(options, "output")
		if err != nil {
			return err
		}
		return c.SwitchOutput(ctx, output)
	case ActionInputOutput:
		input, err := intOption(options, "input")
		if err != nil {
			return err
		}
		output, err := intOption(options, "output")
		if err != nil {
			return err
		}
		return c.Route(ctx, input, output)
	case ActionAll:
		selected, _ := options["selected"].(bool)
		input := 0
		if !selected {
			var err error
			if input, err = intOption(options, "input"); err != nil {
				return err
			}
		}
		return c.RouteAll(ctx, input, selected)
	default:
		return fmt.Errorf("%w %q", ErrUnknownAction, action)
	}
}

func intOption(options map[string]any, key string) (int, error) {
	switch v := options[key].(type) {
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%w %s: invalid value %q", ErrBadOption, key, v)
		}
		return n, nil
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case nil:
		return 0, fmt.Errorf("%w %s: missing", ErrBadOption, key)
	default:
		return 0, fmt.Errorf("%w %s: unsupported type %T", ErrBadOption, key, v)
	}
}
