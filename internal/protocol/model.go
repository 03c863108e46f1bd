package protocol

// Model is a parsed protocol. It carries no HCL types so that other front
// ends can produce it.
type Model struct {
	Substances []SubstanceDef
	Vessels    []VesselDef
	// Blocks hold the steps in the order they were written.
	Blocks []Block
}

// StepCount returns the number of steps across all blocks.
func (m *Model) StepCount() int {
	n := 0
	for _, b := range m.Blocks {
		n += len(b.Steps)
	}
	return n
}

// SubstanceDef declares a substance.
type SubstanceDef struct {
	Name      string
	Kind      string
	MolarMass float64
	Density   float64
	Source    string
}

// VesselKind distinguishes the vessels a protocol can declare up front.
type VesselKind string

const (
	ContainerVessel VesselKind = "container"
	PlateVessel     VesselKind = "plate"
)

// VesselDef declares a container or a plate.
type VesselDef struct {
	Kind      VesselKind
	Name      string
	MaxVolume string

	// Contents is the initial content of a container, ordered by substance
	// name.
	Contents []Content

	// Rows and Columns size a plate. RowNames and ColumnNames, when set,
	// take precedence.
	Rows        int
	Columns     int
	RowNames    []string
	ColumnNames []string

	Source string
}

// Content is an amount of a named substance.
type Content struct {
	Substance string
	Quantity  string
}

// Block is a run of steps. Steps written inside a stage block share the
// stage's name; steps written at the top level have an empty Stage.
type Block struct {
	Stage  string
	Source string
	Steps  []StepDef
}

// StepKind names an operation a step performs.
type StepKind string

const (
	CreateContainerStep    StepKind = "create_container"
	CreateSolutionStep     StepKind = "create_solution"
	CreateSolutionFromStep StepKind = "create_solution_from"
	TransferStep           StepKind = "transfer"
	RemoveStep             StepKind = "remove"
	DiluteStep             StepKind = "dilute"
	FillToStep             StepKind = "fill_to"
)

// StepDef is one step with its evaluated arguments.
type StepDef struct {
	Kind StepKind
	// Args maps argument names to their evaluated string values. Only
	// arguments present in the file are set.
	Args map[string]string
	// Contents is the initial content of a create_container step.
	Contents []Content
	Source   string
}

// Arg returns the named argument, or "" when it was not given.
func (s StepDef) Arg(name string) string {
	return s.Args[name]
}
