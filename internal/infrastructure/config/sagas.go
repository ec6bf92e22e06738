package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SagasConfig holds dynamic saga definitions (read/write).
type SagasConfig struct {
	Sagas map[string]SagaEntry `yaml:"sagas,omitempty"`
}

// SagaEntry holds configuration for a specific saga.
type SagaEntry struct {
	Collection  string `yaml:"collection"`
	Description string `yaml:"description,omitempty"`
}

// LoadSagas loads the saga registry from the .saga directory.
func LoadSagas(basePath string) (*SagasConfig, error) {
	sagasFile := filepath.Join(basePath, DefaultConfigDir, DefaultSagasFile)

	data, err := os.ReadFile(sagasFile)
	if os.IsNotExist(err) {
		// Return empty config if file doesn't exist
		return &SagasConfig{
			Sagas: make(map[string]SagaEntry),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading sagas file: %w", err)
	}

	var cfg SagasConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing sagas file: %w", err)
	}

	if cfg.Sagas == nil {
		cfg.Sagas = make(map[string]SagaEntry)
	}

	return &cfg, nil
}

// Save writes the saga registry to the sagas file.
func (s *SagasConfig) Save(basePath string) error {
	configDir := filepath.Join(basePath, DefaultConfigDir)
	sagasFile := filepath.Join(configDir, DefaultSagasFile)

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling sagas config: %w", err)
	}

	if err := os.WriteFile(sagasFile, data, 0600); err != nil {
		return fmt.Errorf("writing sagas file: %w", err)
	}

	return nil
}

// Add adds a saga to the registry.
func (s *SagasConfig) Add(name string, entry SagaEntry) {
	if s.Sagas == nil {
		s.Sagas = make(map[string]SagaEntry)
	}
	s.Sagas[name] = entry
}

// Remove removes a saga from the registry.
func (s *SagasConfig) Remove(name string) {
	if s.Sagas != nil {
		delete(s.Sagas, name)
	}
}

// Get returns the configuration for a specific saga.
func (s *SagasConfig) Get(name string) (*SagaEntry, error) {
	if len(s.Sagas) == 0 {
		return nil, errors.New("no sagas configured")
	}

	entry, ok := s.Sagas[name]
	if !ok {
		var b strings.Builder
		count := 0
		for k := range s.Sagas {
			if count > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			count++
			if count >= 5 {
				b.WriteString(", ...")
				break
			}
		}
		return nil, fmt.Errorf("saga %q not found (available: %s)", name, b.String())
	}

	return &entry, nil
}

// GetCollection returns the Qdrant collection name for a saga.
func (s *SagasConfig) GetCollection(name string) (string, error) {
	entry, err := s.Get(name)
	if err != nil {
		return "", err
	}
	return entry.Collection, nil
}

// Exists checks if a saga exists in the registry.
func (s *SagasConfig) Exists(name string) bool {
	if s.Sagas == nil {
		return false
	}
	_, ok := s.Sagas[name]
	return ok
}

// SagasExists checks if a sagas registry file exists in the given path.
func SagasExists(basePath string) bool {
	sagasFile := filepath.Join(basePath, DefaultConfigDir, DefaultSagasFile)
	_, err := os.Stat(sagasFile)
	return err == nil
}
