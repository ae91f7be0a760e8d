package registry

import (
	"github.com/dukex/campaignflow/pkg/nodes"
)

// RegisterDefaultNodes registers all built-in campaign node types with the registry.
func (r *Registry) RegisterDefaultNodes() {
	r.RegisterCatalog(nil)
}

// RegisterCatalog registers the built-in node types backed by factory. A nil factory
// uses the package defaults.
func (r *Registry) RegisterCatalog(factory *nodes.Factory) {
	for _, nodeFactory := range nodes.Catalog(factory) {
		r.RegisterNode(nodeFactory)
	}

	r.logger.Debug("Registered node types", "count", len(r.GetAvailableNodes()))
}
