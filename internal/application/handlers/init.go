// Package handlers contains application use case handlers.
package handlers

import (
	"fmt"

	"github.com/ersonp/saga-core/internal/infrastructure/config"
)

// InitHandler handles workspace and saga initialization.
type InitHandler struct{}

// NewInitHandler creates a new init handler.
func NewInitHandler() *InitHandler {
	return &InitHandler{}
}

// InitResult contains the result of initialization.
type InitResult struct {
	ConfigPath     string
	SagaName       string
	CollectionName string
}

// Handle initializes the workspace config (first run only) and registers a
// saga.
func (h *InitHandler) Handle(basePath, sagaName, description string) (*InitResult, error) {
	if sagaName == "" {
		return nil, fmt.Errorf("saga name is required")
	}

	if !config.Exists(basePath) {
		if err := config.WriteDefault(basePath); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}
	}

	sagas, err := config.LoadSagas(basePath)
	if err != nil {
		return nil, err
	}
	if sagas.Exists(sagaName) {
		return nil, fmt.Errorf("saga %q already initialized", sagaName)
	}

	collection := config.GenerateCollectionName(sagaName)
	sagas.Add(sagaName, config.SagaEntry{
		Collection:  collection,
		Description: description,
	})
	if err := sagas.Save(basePath); err != nil {
		return nil, err
	}

	return &InitResult{
		ConfigPath:     config.ConfigFilePath(basePath),
		SagaName:       sagaName,
		CollectionName: collection,
	}, nil
}
