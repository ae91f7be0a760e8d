// Package registry keeps the set of known campaign node types and checks node payloads
// against their JSON schemas.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dukex/campaignflow/pkg/models"
	"github.com/dukex/campaignflow/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

var ErrNodeTypeNotRegistered = errors.New("node type not registered")

// SchemaError lists the violations found when checking a node payload.
type SchemaError struct {
	NodeType   models.NodeType
	Violations []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid %s payload: %s", e.NodeType, strings.Join(e.Violations, "; "))
}

// IsSchemaError reports whether err carries payload schema violations.
func IsSchemaError(err error) bool {
	var schemaErr *SchemaError

	return errors.As(err, &schemaErr)
}

type Registry struct {
	logger        *slog.Logger
	mu            sync.RWMutex
	nodeFactories map[models.NodeType]protocol.NodeFactory
	schemas       map[models.NodeType]*gojsonschema.Schema
	order         []models.NodeType
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:        log,
		nodeFactories: make(map[models.NodeType]protocol.NodeFactory),
		schemas:       make(map[models.NodeType]*gojsonschema.Schema),
	}
}

// RegisterNode adds or replaces the factory for its node type. A schema that fails to
// compile is logged and the type is registered without payload checks.
func (r *Registry) RegisterNode(nodeFactory protocol.NodeFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := nodeFactory.ID()
	if _, exists := r.nodeFactories[id]; !exists {
		r.order = append(r.order, id)
	}

	r.nodeFactories[id] = nodeFactory
	delete(r.schemas, id)

	if nodeFactory.Schema() == nil {
		return
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(nodeFactory.Schema()))
	if err != nil {
		r.logger.Warn("Invalid node schema, payload checks disabled", "node_type", id, "error", err)

		return
	}

	r.schemas[id] = schema
}

// Node returns the factory registered for nodeType.
func (r *Registry) Node(nodeType models.NodeType) (protocol.NodeFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.nodeFactories[nodeType]

	return factory, ok
}

// GetAvailableNodes returns the registered factories in registration order.
func (r *Registry) GetAvailableNodes() []protocol.NodeFactory {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factories := make([]protocol.NodeFactory, 0, len(r.order))
	for _, id := range r.order {
		factories = append(factories, r.nodeFactories[id])
	}

	return factories
}

// CreateDefaultData returns the default payload of nodeType.
func (r *Registry) CreateDefaultData(nodeType models.NodeType) (models.NodeData, error) {
	factory, ok := r.Node(nodeType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeTypeNotRegistered, nodeType)
	}

	return factory.DefaultData()
}

// ValidateData checks a raw node payload against the schema of nodeType.
func (r *Registry) ValidateData(nodeType models.NodeType, raw json.RawMessage) error {
	r.mu.RLock()
	_, registered := r.nodeFactories[nodeType]
	schema := r.schemas[nodeType]
	r.mu.RUnlock()

	if !registered {
		return fmt.Errorf("%w: %s", ErrNodeTypeNotRegistered, nodeType)
	}

	var violations []string

	if schema != nil {
		result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return &SchemaError{NodeType: nodeType, Violations: []string{err.Error()}}
		}

		for _, resultErr := range result.Errors() {
			violations = append(violations, resultErr.String())
		}
	}

	if funnel, ok := models.DecodeData(nodeType, raw).(models.FunnelSplitData); ok {
		violations = append(violations, duplicateBranches(funnel.Branches)...)
	}

	if len(violations) > 0 {
		return &SchemaError{NodeType: nodeType, Violations: violations}
	}

	return nil
}

// HealthCheck reports an error when no node types are registered.
func (r *Registry) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.nodeFactories) == 0 {
		return errors.New("no node types registered")
	}

	return nil
}

func duplicateBranches(branches []models.Branch) []string {
	var violations []string

	seen := make(map[string]struct{}, len(branches))
	for _, branch := range branches {
		if _, dup := seen[branch.ID]; dup {
			violations = append(violations, fmt.Sprintf("branches: duplicate branch id %q", branch.ID))

			continue
		}

		seen[branch.ID] = struct{}{}
	}

	return violations
}
