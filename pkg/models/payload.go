package models

// NodeData is the type-specific payload of a node. The set of implementations is
// closed: exactly one payload struct exists per NodeType.
type NodeData interface {
	NodeType() NodeType
	isNodeData()
}

// Condition operators understood by audience segments and filters.
const (
	OperatorEquals     = "equals"
	OperatorContains   = "contains"
	OperatorStartsWith = "starts_with"
	OperatorGt         = "gt"
	OperatorLt         = "lt"
	OperatorExists     = "exists"
)

// Placement types for campaignType nodes.
const (
	PlacementEmail = "email"
	PlacementPush  = "push"
	PlacementSMS   = "sms"
	PlacementInApp = "inapp"
)

// LLM text generation modes.
const (
	LlmModeGenerate  = "generate"
	LlmModeTransform = "transform"
)

const (
	MinTemperature = 0
	MaxTemperature = 1.5
)

// Condition is a single {field, operator, value} predicate.
type Condition struct {
	Field    string `json:"field"    mapstructure:"field"`
	Operator string `json:"operator" mapstructure:"operator"`
	Value    string `json:"value"    mapstructure:"value"`
}

// KeyValue is an ordered placement option.
type KeyValue struct {
	Key   string `json:"key"   mapstructure:"key"`
	Value string `json:"value" mapstructure:"value"`
}

// Branch is a named, conditioned sub-path of a funnel split.
type Branch struct {
	ID        string `json:"id"        mapstructure:"id"`
	Label     string `json:"label"     mapstructure:"label"`
	Condition string `json:"condition" mapstructure:"condition"`
}

type CampaignStartData struct {
	Name        string `json:"name"        mapstructure:"name"`
	Description string `json:"description" mapstructure:"description"`
	TriggerType string `json:"triggerType" mapstructure:"triggerType"`
}

type CampaignMetaData struct {
	CampaignID string  `json:"campaignId"          mapstructure:"campaignId"`
	Budget     float64 `json:"budget"              mapstructure:"budget"`
	StartDate  string  `json:"startDate,omitempty" mapstructure:"startDate"`
	EndDate    string  `json:"endDate,omitempty"   mapstructure:"endDate"`
}

type CampaignTypeData struct {
	PlacementType    string     `json:"placementType"    mapstructure:"placementType"`
	PlacementOptions []KeyValue `json:"placementOptions" mapstructure:"placementOptions"`
}

type AudienceSegmentData struct {
	Conditions []Condition `json:"conditions" mapstructure:"conditions"`
}

type FilterData struct {
	Conditions []Condition `json:"conditions" mapstructure:"conditions"`
}

type FunnelSplitData struct {
	Attribute string   `json:"attribute" mapstructure:"attribute"`
	Branches  []Branch `json:"branches"  mapstructure:"branches"`
}

type AbTestData struct {
	Title  string  `json:"title"  mapstructure:"title"`
	SplitA float64 `json:"splitA" mapstructure:"splitA"`
}

type ActionData struct {
	ActionType string `json:"actionType" mapstructure:"actionType"`
	Payload    string `json:"payload"    mapstructure:"payload"`
}

type LlmTextData struct {
	Title            string   `json:"title"            mapstructure:"title"`
	Prompt           string   `json:"prompt"           mapstructure:"prompt"`
	Mode             string   `json:"mode"             mapstructure:"mode"`
	Model            string   `json:"model"            mapstructure:"model"`
	Temperature      float64  `json:"temperature"      mapstructure:"temperature"`
	MaxTokens        int      `json:"maxTokens"        mapstructure:"maxTokens"`
	Variables        []string `json:"variables"        mapstructure:"variables"`
	AutoReplaceInput bool     `json:"autoReplaceInput" mapstructure:"autoReplaceInput"`
}

func (CampaignStartData) NodeType() NodeType   { return NodeTypeCampaignStart }
func (CampaignMetaData) NodeType() NodeType    { return NodeTypeCampaignMeta }
func (CampaignTypeData) NodeType() NodeType    { return NodeTypeCampaignType }
func (AudienceSegmentData) NodeType() NodeType { return NodeTypeAudienceSegment }
func (FilterData) NodeType() NodeType          { return NodeTypeFilter }
func (FunnelSplitData) NodeType() NodeType     { return NodeTypeFunnelSplit }
func (AbTestData) NodeType() NodeType          { return NodeTypeAbTest }
func (ActionData) NodeType() NodeType          { return NodeTypeAction }
func (LlmTextData) NodeType() NodeType         { return NodeTypeLlmText }

func (CampaignStartData) isNodeData()   {}
func (CampaignMetaData) isNodeData()    {}
func (CampaignTypeData) isNodeData()    {}
func (AudienceSegmentData) isNodeData() {}
func (FilterData) isNodeData()          {}
func (FunnelSplitData) isNodeData()     {}
func (AbTestData) isNodeData()          {}
func (ActionData) isNodeData()          {}
func (LlmTextData) isNodeData()         {}

// SplitB returns the implicit share of variant B.
func (d AbTestData) SplitB() float64 {
	return 100 - clamp(d.SplitA, 0, 100)
}

// Normalize clamps splitA into [0, 100].
func (d AbTestData) Normalize() AbTestData {
	d.SplitA = clamp(d.SplitA, 0, 100)

	return d
}

// Normalize clamps temperature into [0, 1.5] and keeps maxTokens positive.
func (d LlmTextData) Normalize() LlmTextData {
	d.Temperature = clamp(d.Temperature, MinTemperature, MaxTemperature)
	if d.MaxTokens < 1 {
		d.MaxTokens = 1
	}

	return d
}

// NormalizeData applies the per-type normalisation rules, if any, to data.
func NormalizeData(data NodeData) NodeData {
	switch d := data.(type) {
	case AbTestData:
		return d.Normalize()
	case *AbTestData:
		return d.Normalize()
	case LlmTextData:
		return d.Normalize()
	case *LlmTextData:
		return d.Normalize()
	default:
		return data
	}
}

// NewEmptyData returns the zero payload for t, or nil for an unknown type.
func NewEmptyData(t NodeType) NodeData {
	switch t {
	case NodeTypeCampaignStart:
		return CampaignStartData{}
	case NodeTypeCampaignMeta:
		return CampaignMetaData{}
	case NodeTypeCampaignType:
		return CampaignTypeData{}
	case NodeTypeAudienceSegment:
		return AudienceSegmentData{}
	case NodeTypeFilter:
		return FilterData{}
	case NodeTypeFunnelSplit:
		return FunnelSplitData{}
	case NodeTypeAbTest:
		return AbTestData{}
	case NodeTypeAction:
		return ActionData{}
	case NodeTypeLlmText:
		return LlmTextData{}
	default:
		return nil
	}
}

func clamp(value, minimum, maximum float64) float64 {
	return min(maximum, max(minimum, value))
}
