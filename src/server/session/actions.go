package session

import (
	"context"
	"fmt"

	"mx44-utils/src/server/matrix"
	"mx44-utils/src/server/tcp"
)

// Host intents. Route intents require an established socket: the command is
// sent first and the table is updated optimistically only when the send
// succeeded. The unit echoes the switch, and that authoritative update
// simply overwrites the local guess.

// SelectInput arms input for SwitchOutput and RouteAll. It sends nothing and
// works while disconnected.
func (s *Session) SelectInput(ctx context.Context, input int) error {
	return s.do(ctx, func() error {
		if !s.store.SetSelectedInput(input) {
			return fmt.Errorf("input %d: %w", input, ErrInvalidPort)
		}
		return nil
	})
}

// SwitchOutput routes output from the selected input.
func (s *Session) SwitchOutput(ctx context.Context, output int) error {
	return s.do(ctx, func() error {
		return s.route(output, s.store.SelectedInput())
	})
}

// Route routes output from input.
func (s *Session) Route(ctx context.Context, input, output int) error {
	return s.do(ctx, func() error {
		return s.route(output, input)
	})
}

// RouteAll routes every output from input, or from the selected input when
// useSelected is set.
func (s *Session) RouteAll(ctx context.Context, input int, useSelected bool) error {
	return s.do(ctx, func() error {
		if useSelected {
			input = s.store.SelectedInput()
		}
		return s.routeOutput(matrix.BroadcastOutput, input)
	})
}

// PollNow requests a full status dump outside the poll cycle.
func (s *Session) PollNow(ctx context.Context) error {
	return s.do(ctx, func() error {
		return s.sendCommand(matrix.EncodeStatusQuery())
	})
}

func (s *Session) route(output, input int) error {
	if output == matrix.BroadcastOutput {
		return fmt.Errorf("output %d: %w", output, ErrInvalidPort)
	}
	return s.routeOutput(output, input)
}

func (s *Session) routeOutput(output, input int) error {
	spec := s.store.Spec()
	if !spec.ValidOutput(output) {
		return fmt.Errorf("output %d: %w", output, ErrInvalidPort)
	}
	if !spec.ValidInput(input) {
		return fmt.Errorf("input %d: %w", input, ErrInvalidPort)
	}
	if s.status != tcp.StatusConnected {
		s.debugf("Session: socket not connected, rejecting OUT%d IN%d", output, input)
		return ErrNotConnected
	}

	if err := s.sendCommand(matrix.EncodeRoute(output, input)); err != nil {
		return err
	}
	s.store.ApplyRoute(output, input)
	return nil
}
