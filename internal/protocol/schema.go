package protocol

import (
	"slices"
	"strings"

	"github.com/specialistvlad/labrecipe/internal/substance"
	"github.com/specialistvlad/labrecipe/internal/vessel"
)

// argSpec lists the arguments a step kind accepts.
type argSpec struct {
	required []string
	optional []string
	// substances name the arguments that refer to a substance.
	substances []string
	// endpoints name the arguments that refer to a vessel.
	endpoints []string
	// creates names the argument holding the name of a vessel the step
	// declares.
	creates string
	// contents allows a "contents" map argument.
	contents bool
}

func (s argSpec) allows(name string) bool {
	if name == "contents" {
		return s.contents
	}
	return slices.Contains(s.required, name) || slices.Contains(s.optional, name)
}

var stepSpecs = map[StepKind]argSpec{
	CreateContainerStep: {
		required: []string{"name"},
		optional: []string{"max_volume"},
		creates:  "name",
		contents: true,
	},
	CreateSolutionStep: {
		required:   []string{"solute", "solvent"},
		optional:   []string{"name", "concentration", "quantity", "total_quantity"},
		substances: []string{"solute", "solvent"},
		creates:    "name",
	},
	CreateSolutionFromStep: {
		required:   []string{"source", "solute", "concentration", "solvent", "quantity"},
		optional:   []string{"name"},
		substances: []string{"solute", "solvent"},
		endpoints:  []string{"source"},
		creates:    "name",
	},
	TransferStep: {
		required:  []string{"from", "to", "quantity"},
		endpoints: []string{"from", "to"},
	},
	RemoveStep: {
		required:  []string{"target"},
		optional:  []string{"what"},
		endpoints: []string{"target"},
	},
	DiluteStep: {
		required:   []string{"target", "solute", "concentration", "solvent"},
		optional:   []string{"new_name"},
		substances: []string{"solute", "solvent"},
		endpoints:  []string{"target"},
	},
	FillToStep: {
		required:   []string{"target", "solvent", "quantity"},
		substances: []string{"solvent"},
		endpoints:  []string{"target"},
	},
}

// stepKinds returns the known kinds for error messages.
func stepKinds() []string {
	out := make([]string, 0, len(stepSpecs))
	for k := range stepSpecs {
		out = append(out, string(k))
	}
	slices.Sort(out)
	return out
}

// SplitEndpoint splits "plate[A1:H1]" into "plate" and "A1:H1". A plain
// name has an empty selection.
func SplitEndpoint(raw string) (name, selection string) {
	raw = strings.TrimSpace(raw)
	if !strings.HasSuffix(raw, "]") {
		return raw, ""
	}
	i := strings.LastIndex(raw, "[")
	if i < 0 {
		return raw, ""
	}
	return strings.TrimSpace(raw[:i]), strings.TrimSpace(raw[i+1 : len(raw)-1])
}

// createdName returns the name of the vessel a step declares, if any.
// Unnamed solutions get the default solution name.
func createdName(spec argSpec, step StepDef) string {
	if spec.creates == "" {
		return ""
	}
	if name := step.Args[spec.creates]; name != "" {
		return name
	}
	if step.Kind == CreateContainerStep {
		return ""
	}
	return vessel.DefaultSolutionName(
		substance.Substance{Name: step.Args["solute"]},
		substance.Substance{Name: step.Args["solvent"]},
	)
}
