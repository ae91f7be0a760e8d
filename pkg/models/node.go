package models

import (
	"bytes"
	"encoding/json"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// Position is the node location on the editing canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node represents a typed vertex of a campaign flow.
type Node struct {
	ID       string   `json:"id"       validate:"required"`
	Type     NodeType `json:"type"     validate:"required"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`

	// rawData keeps the payload of node types this build does not know about.
	rawData json.RawMessage
}

// Edge is a directed connection between two node ids, optionally qualified by handles.
type Edge struct {
	ID           string  `json:"id"`
	Source       string  `json:"source"                 validate:"required"`
	SourceHandle *string `json:"sourceHandle,omitempty"`
	Target       string  `json:"target"                 validate:"required"`
	TargetHandle *string `json:"targetHandle,omitempty"`
}

// IsSelfLoop reports whether the edge starts and ends on the same node.
func (e *Edge) IsSelfLoop() bool {
	return e.Source == e.Target
}

type nodeWire struct {
	ID       string          `json:"id"`
	Type     NodeType        `json:"type"`
	Position Position        `json:"position"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// MarshalJSON writes the node in the editor wire format.
func (n Node) MarshalJSON() ([]byte, error) {
	wire := nodeWire{ID: n.ID, Type: n.Type, Position: n.Position}

	switch {
	case n.Data != nil:
		data, err := json.Marshal(n.Data)
		if err != nil {
			return nil, err
		}

		wire.Data = data
	case len(n.rawData) > 0:
		wire.Data = n.rawData
	default:
		wire.Data = json.RawMessage("{}")
	}

	return json.Marshal(wire)
}

// UnmarshalJSON decodes the node envelope strictly and its payload leniently.
func (n *Node) UnmarshalJSON(body []byte) error {
	var wire nodeWire

	err := json.Unmarshal(body, &wire)
	if err != nil {
		return err
	}

	n.ID = wire.ID
	n.Type = wire.Type
	n.Position = wire.Position
	n.Data = DecodeData(wire.Type, wire.Data)
	n.rawData = nil

	if n.Data == nil && len(wire.Data) > 0 {
		n.rawData = bytes.Clone(wire.Data)
	}

	return nil
}

// DecodeData decodes raw into the payload struct for t. Fields that are missing or
// malformed are left at their zero value; a non-object payload yields an empty payload.
// Unknown types return nil.
func DecodeData(t NodeType, raw json.RawMessage) NodeData {
	empty := NewEmptyData(t)
	if empty == nil {
		return nil
	}

	if len(raw) == 0 {
		return empty
	}

	var fields map[string]any

	err := json.Unmarshal(raw, &fields)
	if err != nil || fields == nil {
		return empty
	}

	target := reflect.New(reflect.TypeOf(empty))

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "mapstructure",
		Result:  target.Interface(),
	})
	if err != nil {
		return empty
	}

	// Partial results are kept: a bad field must not discard the good ones.
	_ = decoder.Decode(fields)

	data, ok := target.Elem().Interface().(NodeData)
	if !ok {
		return empty
	}

	return data
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}

	return &Node{
		ID:       n.ID,
		Type:     n.Type,
		Position: n.Position,
		Data:     cloneData(n.Data),
		rawData:  bytes.Clone(n.rawData),
	}
}

// Clone returns a deep copy of the edge.
func (e *Edge) Clone() *Edge {
	if e == nil {
		return nil
	}

	clone := *e
	clone.SourceHandle = cloneString(e.SourceHandle)
	clone.TargetHandle = cloneString(e.TargetHandle)

	return &clone
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}

	v := *s

	return &v
}

func cloneData(data NodeData) NodeData {
	switch d := data.(type) {
	case CampaignTypeData:
		d.PlacementOptions = cloneSlice(d.PlacementOptions)

		return d
	case AudienceSegmentData:
		d.Conditions = cloneSlice(d.Conditions)

		return d
	case FilterData:
		d.Conditions = cloneSlice(d.Conditions)

		return d
	case FunnelSplitData:
		d.Branches = cloneSlice(d.Branches)

		return d
	case LlmTextData:
		d.Variables = cloneSlice(d.Variables)

		return d
	default:
		// Remaining payloads hold only scalar fields.
		return data
	}
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}

	return append(make([]T, 0, len(s)), s...)
}
