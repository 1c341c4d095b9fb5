package handlers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/handler"

	"github.com/greedisland/greedbot/gibot/config"
)

// WrapWithLogging wraps a command handler with timing and outcome logging.
func WrapWithLogging(name string, h handler.CommandHandler) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		start := time.Now()

		slog.Info("Command started",
			slog.String("type", "cmd"),
			slog.String("name", name),
			slog.String("user_id", e.User().ID.String()),
			slog.String("user_name", e.User().Username),
		)

		done := make(chan error, 1)
		go func() {
			done <- h(e)
		}()

		select {
		case err := <-done:
			logOutcome("cmd", name, e.User().Username, time.Since(start), err)
			return err
		case <-time.After(config.CommandExecutionTimeout):
			slog.Error("Command timed out",
				slog.String("type", "cmd"),
				slog.String("name", name),
				slog.String("user_name", e.User().Username),
				slog.Duration("timeout", config.CommandExecutionTimeout),
			)
			return fmt.Errorf("command %s timed out after %s", name, config.CommandExecutionTimeout)
		}
	}
}

// WrapComponentWithLogging is WrapWithLogging for component interactions.
// Components get a longer deadline: the attack defense window alone runs 20s.
func WrapComponentWithLogging(name string, h handler.ComponentHandler) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		start := time.Now()

		slog.Info("Component interaction started",
			slog.String("type", "component"),
			slog.String("name", name),
			slog.String("user_id", e.User().ID.String()),
			slog.String("user_name", e.User().Username),
		)

		done := make(chan error, 1)
		go func() {
			done <- h(e)
		}()

		select {
		case err := <-done:
			logOutcome("component", name, e.User().Username, time.Since(start), err)
			return err
		case <-time.After(30 * time.Second):
			slog.Error("Component interaction timed out",
				slog.String("type", "component"),
				slog.String("name", name),
				slog.String("user_name", e.User().Username),
			)
			return fmt.Errorf("component %s timed out", name)
		}
	}
}

func logOutcome(kind, name, userName string, took time.Duration, err error) {
	attrs := []any{
		slog.String("type", kind),
		slog.String("name", name),
		slog.String("user_name", userName),
		slog.Duration("took", took),
	}
	switch {
	case err != nil:
		slog.Error("Interaction failed", append(attrs,
			slog.Any("error", err),
			slog.String("status", "failed"),
		)...)
	case took > 2*time.Second:
		slog.Warn("Interaction executed slowly", append(attrs,
			slog.String("status", "slow"),
		)...)
	default:
		slog.Info("Interaction completed", append(attrs,
			slog.String("status", "success"),
		)...)
	}
}
