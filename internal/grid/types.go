package grid

type NodeType string

const (
	NodeGenerator  NodeType = "generator"
	NodeLoad       NodeType = "load"
	NodeStorage    NodeType = "storage"
	NodeSubstation NodeType = "substation"
)

type EdgeState string

const (
	EdgeNormal   EdgeState = "normal"
	EdgeWarning  EdgeState = "warning"
	EdgeCritical EdgeState = "critical"
	EdgeTripped  EdgeState = "tripped"
)

// Node is a bus in the transmission network. Immutable once loaded:
// CapacityMW is the generation ceiling for generators and the rated peak
// demand for loads.
type Node struct {
	ID         string
	Type       NodeType
	CapacityMW float64
	Lat        float64
	Lon        float64
	Weight     float64
}

// Edge is a transmission line. Reactance is per-unit and must be positive;
// flow direction is signed positive Source->Target.
type Edge struct {
	ID         string
	Source     string
	Target     string
	CapacityMW float64
	Reactance  float64
	LengthKM   float64
	State      EdgeState
}

// Active reports whether the edge participates in power flow.
func (e Edge) Active() bool {
	return e.State != EdgeTripped
}
