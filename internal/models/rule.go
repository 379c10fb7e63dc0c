package models

type RuleAction string

const (
	ActionAllow    RuleAction = "allow"
	ActionDisallow RuleAction = "disallow"
)

/**
 * Conditional inclusion rule
 * @property {RuleAction} action - allow/disallow
 * @property {OSCondition} os - Optional OS name, version pattern and architecture
 * @property {map[string]bool} features - Feature flags that must have the given value
 */
type Rule struct {
	Action   RuleAction      `json:"action"`
	OS       *OSCondition    `json:"os,omitempty"`
	Features map[string]bool `json:"features,omitempty"`
}

type OSCondition struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
	Arch    string `json:"arch,omitempty"`
}
