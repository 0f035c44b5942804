package camera

import (
	"fmt"
	"log/slog"
	"sync"
)

// Manager holds the current configuration and handles updates.
type Manager struct {
	config Config
	mu     sync.RWMutex

	// path is where updates are persisted. Empty keeps them in memory.
	path   string
	logger *slog.Logger

	// Callback when config changes
	OnConfigChange func(cfg Config) error
}

// NewManager creates an in-memory manager with the default config.
func NewManager() *Manager {
	return &Manager{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
}

// Open loads the configuration file at path, generating the default file
// when it is missing, and persists every later update there.
func Open(path string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("config %s: validation failed: %v", path, errs)
	}

	logger.Info("capture config loaded",
		"path", path,
		"width", cfg.Camera.Width,
		"height", cfg.Camera.Height,
	)

	return &Manager{config: cfg, path: path, logger: logger}, nil
}

// Path returns the backing file, or "" for an in-memory manager.
func (m *Manager) Path() string {
	return m.path
}

// GetConfig returns the current configuration.
func (m *Manager) GetConfig() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// SetConfig validates, persists and applies cfg.
func (m *Manager) SetConfig(cfg Config) error {
	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}

	m.mu.Lock()
	if m.path != "" {
		if err := Save(m.path, cfg); err != nil {
			m.mu.Unlock()
			return err
		}
	}
	m.config = cfg
	callback := m.OnConfigChange
	m.mu.Unlock()

	if callback != nil {
		if err := callback(cfg); err != nil {
			return fmt.Errorf("failed to apply config: %w", err)
		}
	}
	return nil
}

// UpdateConfig applies flat request keys (camera_width, worker_ros_host,
// worker_pybullet_eye_position, ...) on top of the current config. A
// "preset" key selects a frame size first; other keys still override it.
// Unknown keys are ignored.
func (m *Manager) UpdateConfig(params map[string]any) error {
	cfg := m.GetConfig()

	if raw, ok := params["preset"]; ok {
		name, _ := raw.(string)
		preset := GetPreset(name)
		if preset == nil {
			return fmt.Errorf("unknown preset: %v", raw)
		}
		cfg.Camera = *preset
	}

	for key, value := range params {
		set, ok := fields[key]
		if !ok {
			continue
		}
		if err := set(&cfg, value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}

	if err := m.SetConfig(cfg); err != nil {
		return err
	}

	m.logger.Info("capture config updated", "keys", len(params))
	return nil
}

// GetConfigJSON returns the current config keyed by the flat request keys.
func (m *Manager) GetConfigJSON() map[string]any {
	return Flatten(m.GetConfig())
}
