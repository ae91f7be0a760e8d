package models

import "encoding/json"

// CampaignFlow is a named graph of nodes and edges. It is the unit of persistence,
// export and validation.
type CampaignFlow struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Nodes []*Node `json:"nodes" validate:"dive,required"`
	Edges []*Edge `json:"edges" validate:"dive,required"`
}

// MarshalJSON always writes nodes and edges as arrays.
func (f CampaignFlow) MarshalJSON() ([]byte, error) {
	type flowAlias CampaignFlow

	alias := flowAlias(f)
	if alias.Nodes == nil {
		alias.Nodes = []*Node{}
	}

	if alias.Edges == nil {
		alias.Edges = []*Edge{}
	}

	return json.Marshal(alias)
}

// Snapshot returns a deep copy of the flow that shares no memory with f.
func (f *CampaignFlow) Snapshot() *CampaignFlow {
	if f == nil {
		return &CampaignFlow{Nodes: []*Node{}, Edges: []*Edge{}}
	}

	snapshot := &CampaignFlow{
		ID:    f.ID,
		Name:  f.Name,
		Nodes: make([]*Node, 0, len(f.Nodes)),
		Edges: make([]*Edge, 0, len(f.Edges)),
	}

	for _, node := range f.Nodes {
		if node != nil {
			snapshot.Nodes = append(snapshot.Nodes, node.Clone())
		}
	}

	for _, edge := range f.Edges {
		if edge != nil {
			snapshot.Edges = append(snapshot.Edges, edge.Clone())
		}
	}

	return snapshot
}

// FindNode returns the node with the given id.
func (f *CampaignFlow) FindNode(id string) (*Node, bool) {
	for _, node := range f.Nodes {
		if node != nil && node.ID == id {
			return node, true
		}
	}

	return nil, false
}

// FindEdge returns the edge with the given id.
func (f *CampaignFlow) FindEdge(id string) (*Edge, bool) {
	for _, edge := range f.Edges {
		if edge != nil && edge.ID == id {
			return edge, true
		}
	}

	return nil, false
}

// RemoveNode deletes the node and every edge touching it.
func (f *CampaignFlow) RemoveNode(id string) bool {
	removed := false
	nodes := f.Nodes[:0]

	for _, node := range f.Nodes {
		if node != nil && node.ID == id {
			removed = true

			continue
		}

		nodes = append(nodes, node)
	}

	f.Nodes = nodes

	if !removed {
		return false
	}

	edges := f.Edges[:0]

	for _, edge := range f.Edges {
		if edge != nil && (edge.Source == id || edge.Target == id) {
			continue
		}

		edges = append(edges, edge)
	}

	f.Edges = edges

	return true
}

// RemoveEdge deletes the edge with the given id.
func (f *CampaignFlow) RemoveEdge(id string) bool {
	for i, edge := range f.Edges {
		if edge != nil && edge.ID == id {
			f.Edges = append(f.Edges[:i], f.Edges[i+1:]...)

			return true
		}
	}

	return false
}
