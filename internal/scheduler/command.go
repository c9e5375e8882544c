package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCommand is returned for an operator command that is not
// start, stop or clear.
var ErrUnknownCommand = errors.New("scheduler: unknown command")

// Command is an operator request received over MQTT or HTTP.
type Command string

const (
	CommandStart Command = "start"
	CommandStop  Command = "stop"
	CommandClear Command = "clear"
)

// commandMessage is the MQTT payload: {"command": "clear"}.
type commandMessage struct {
	Command string `json:"command"`
}

// ParseCommand decodes a command message. A bare command word is accepted too.
func ParseCommand(payload []byte) (Command, error) {
	text := strings.TrimSpace(string(payload))

	word := text
	if strings.HasPrefix(text, "{") {
		var msg commandMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return "", fmt.Errorf("decoding command: %w", err)
		}
		word = msg.Command
	}

	cmd := Command(strings.ToLower(strings.TrimSpace(word)))
	switch cmd {
	case CommandStart, CommandStop, CommandClear:
		return cmd, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCommand, word)
	}
}

// Execute applies an operator command.
//
// start re-runs Recover with the last schedule before starting, so a cleared
// store is compiled afresh. stop halts dispatch and resets the actuators.
// clear removes every persisted job.
func (s *Scheduler) Execute(ctx context.Context, cmd Command) error {
	switch cmd {
	case CommandStart:
		if s.Running() {
			s.getLogger().Info("scheduler already running")
			return nil
		}
		s.mu.Lock()
		spec := s.lastSpec
		s.mu.Unlock()
		if spec != nil {
			if err := s.Recover(ctx, spec); err != nil {
				return err
			}
		}
		s.Start(ctx)
		return nil
	case CommandStop:
		return s.Stop(ctx).Err()
	case CommandClear:
		return s.Clear(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}
}
