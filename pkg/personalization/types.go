package personalization

// ModificationKind enumerates the ways a base template can be adjusted.
type ModificationKind string

const (
	AddComponent       ModificationKind = "add-component"
	RemoveComponent    ModificationKind = "remove-component"
	ModifyStyle        ModificationKind = "modify-style"
	AddFeature         ModificationKind = "add-feature"
	ChangeArchitecture ModificationKind = "change-architecture"
)

// Modification is one ordered adjustment to the generation request. The
// Reason field is human-readable and travels into the template reasoning.
type Modification struct {
	Kind   ModificationKind `json:"kind"`
	Target string           `json:"target"`
	Value  string           `json:"value"`
	Reason string           `json:"reason"`
}

// PersonalizedTemplate is the engine's output: the base template plus the
// ordered modifications to apply to it.
type PersonalizedTemplate struct {
	BaseTemplate  string         `json:"base_template"`
	Modifications []Modification `json:"modifications"`
	Confidence    float64        `json:"confidence"`
	Reasoning     []string       `json:"reasoning"`
}

// ExternalRecommendation is advice from an outside collaborator (for
// example a generation-result cache or an A/B service). Only
// recommendations with Confidence above the fold-in threshold are applied.
type ExternalRecommendation struct {
	Kind       string  `json:"kind"`
	Target     string  `json:"target"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// recommendationKindMap is the fixed table translating external
// recommendation kinds into modification kinds. Unknown kinds are dropped.
var recommendationKindMap = map[string]ModificationKind{
	"component":    AddComponent,
	"feature":      AddFeature,
	"style":        ModifyStyle,
	"architecture": ChangeArchitecture,
	"removal":      RemoveComponent,
}
