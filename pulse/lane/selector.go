package lane

import "fmt"

// Kind distinguishes the three families of execution context.
type Kind int

const (
	KindClass Kind = iota
	KindMain
	KindTagged
)

// MainLaneName is the reserved name of the main loop.
const MainLaneName = "main"

// Selector names the execution context a unit of work runs on.
// The zero value selects the Default priority class.
type Selector struct {
	kind     Kind
	priority Priority
	name     string
}

// Main selects the main loop.
func Main() Selector {
	return Selector{kind: KindMain, name: MainLaneName}
}

// Class selects a worker-pool priority class.
func Class(p Priority) Selector {
	return Selector{kind: KindClass, priority: p}
}

// Tagged selects a caller-registered serial lane.
func Tagged(name string) Selector {
	return Selector{kind: KindTagged, name: name}
}

func (k Kind) String() string {
	switch k {
	case KindMain:
		return "main"
	case KindTagged:
		return "tagged"
	default:
		return "class"
	}
}

func (s Selector) Kind() Kind { return s.kind }

func (s Selector) Priority() Priority { return s.priority }

// Name is the lane name for Main and Tagged selectors, "" for classes.
func (s Selector) Name() string { return s.name }

func (s Selector) String() string {
	switch s.kind {
	case KindMain:
		return MainLaneName
	case KindTagged:
		return fmt.Sprintf("lane:%s", s.name)
	default:
		return fmt.Sprintf("class:%s", s.priority)
	}
}
