package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"tap-instagram/pkg/logger"
)

// Manager persists state to a JSON file
type Manager struct {
	path   string
	logger logger.Logger
}

// NewManager creates a state file manager
func NewManager(path string, log logger.Logger) *Manager {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Manager{path: path, logger: log}
}

// Path returns the state file location
func (m *Manager) Path() string {
	return m.path
}

// Load reads the state file. A missing file yields nil and no error.
func (m *Manager) Load() (*State, error) {
	file, err := os.Open(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open state file: %w", err)
	}
	defer file.Close()

	st := New()
	if err := json.NewDecoder(file).Decode(st); err != nil {
		return nil, fmt.Errorf("failed to decode state file: %w", err)
	}
	if st.Bookmarks == nil {
		st.Bookmarks = map[string]*StreamState{}
	}

	m.logger.DebugWithFields("State loaded", map[string]interface{}{
		"path":       m.path,
		"partitions": st.PartitionCount(),
	})
	return st, nil
}

// Save writes the state atomically through a temporary file and rename
func (m *Manager) Save(st *State) error {
	if dir := filepath.Dir(m.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	tempPath := m.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary state file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(st); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode state: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync state file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close state file: %w", err)
	}

	if err := os.Rename(tempPath, m.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	m.logger.DebugWithFields("State saved", map[string]interface{}{
		"path":       m.path,
		"partitions": st.PartitionCount(),
	})
	return nil
}
