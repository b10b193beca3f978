package state

import (
	"context"
	"errors"
	"fmt"
)

var errNoCommander = errors.New("no backend commander configured")

// UpdateConfig asks the backend to set one configuration key. The new value
// reaches the snapshot through the config_updated push event or the next
// config pull.
func (s *Store) UpdateConfig(ctx context.Context, key string, value any) error {
	if s.commander == nil {
		return errNoCommander
	}
	if err := s.commander.UpdateConfig(ctx, key, value); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("config update failed")
		return fmt.Errorf("update config %s: %w", key, err)
	}
	s.log.Info().Str("key", key).Msg("config update requested")
	return nil
}

// TogglePlugin asks the backend to enable or disable a plugin.
func (s *Store) TogglePlugin(ctx context.Context, name string, enabled bool) error {
	if s.commander == nil {
		return errNoCommander
	}
	if err := s.commander.TogglePlugin(ctx, name, enabled); err != nil {
		s.log.Warn().Err(err).Str("plugin", name).Msg("plugin toggle failed")
		return fmt.Errorf("toggle plugin %s: %w", name, err)
	}
	s.log.Info().Str("plugin", name).Bool("enabled", enabled).Msg("plugin toggle requested")
	return nil
}

// RunHealthCheck asks the backend to check one server, or every server when
// server is empty.
func (s *Store) RunHealthCheck(ctx context.Context, server string) error {
	if s.commander == nil {
		return errNoCommander
	}
	if err := s.commander.RunHealthCheck(ctx, server); err != nil {
		s.log.Warn().Err(err).Str("server", server).Msg("health check failed")
		return fmt.Errorf("health check: %w", err)
	}
	return nil
}
