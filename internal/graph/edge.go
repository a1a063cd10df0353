package graph

// CallType is the relationship phrase printed in the trace, e.g. "directly calls"
type CallType string

const (
	CallTypeDirect        CallType = "directly calls"
	CallTypeVirtual       CallType = "virtually calls"
	CallTypeInterface     CallType = "interfacially calls"
	CallTypeOverriddenBy  CallType = "is overridden by"
	CallTypeImplementedBy CallType = "is implemented by"
)

var inverted = map[CallType]string{
	CallTypeDirect:        "directly called by",
	CallTypeVirtual:       "virtually called by",
	CallTypeInterface:     "interfacially called by",
	CallTypeOverriddenBy:  "overrides",
	CallTypeImplementedBy: "implements",
}

// Invert returns the phrase describing the relationship from the callee's side.
// Unknown types are kept verbatim as "REV(<type>)".
func Invert(t CallType) string {
	if s, ok := inverted[t]; ok {
		return s
	}
	return "REV(" + string(t) + ")"
}

// Known reports whether t has a fixed inversion.
func (t CallType) Known() bool {
	_, ok := inverted[t]
	return ok
}

// CallEdge is a typed caller -> callee relationship. Caller and Callee are
// method arena indices, so the struct is comparable and usable as a set key.
type CallEdge struct {
	Type   CallType `json:"type"`
	Caller int      `json:"caller"`
	Callee int      `json:"callee"`
}
