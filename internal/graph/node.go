package graph

// ClassNode groups the methods seen for one class name
type ClassNode struct {
	Index int
	Name  string

	methods    map[string]int // signature -> method index
	signatures []string       // sorted on freeze
}

// MethodNode is a single method. Forward holds the calls it makes, Reverse the
// calls made into it; both are insertion-ordered sets.
type MethodNode struct {
	Index     int
	Class     int // owning class index, fixed at creation
	Signature string
	Forward   []CallEdge
	Reverse   []CallEdge
}
