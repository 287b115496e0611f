package types

type ActionKind string

const (
	ActionNavigate           ActionKind = "navigate"
	ActionDispatchNotify     ActionKind = "dispatch_notify"
	ActionComplianceCheck    ActionKind = "compliance_check"
	ActionReferenceLookup    ActionKind = "reference_lookup"
	ActionScriptedDisclosure ActionKind = "scripted_disclosure"
	ActionToolInvoke         ActionKind = "tool_invoke"
	ActionFreeformReply      ActionKind = "freeform_reply"
)

type ActionDescriptor struct {
	Kind   ActionKind     `json:"kind"`
	Params map[string]any `json:"params"`
}

// Param returns params[key] as a string, or "" when absent.
func (d ActionDescriptor) Param(key string) string {
	if d.Params == nil {
		return ""
	}
	v, _ := d.Params[key].(string)
	return v
}
