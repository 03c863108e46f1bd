package protocol

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/specialistvlad/labrecipe/internal/recipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const substancesHCL = `
substance "water" {
  kind       = "liquid"
  molar_mass = 18.0153
  density    = 1
}

substance "NaCl" {
  kind       = "solid"
  molar_mass = 58.44
  density    = 2.165
}
`

const assayHCL = `
container "water source" {
  max_volume = "50 mL"
  contents   = { water = "10 mL" }
}

plate "assay" {
  rows       = 2
  columns    = 3
  max_volume = "200 uL"
}

stage "prep" {
  step "create_solution" {
    solute         = substance.NaCl
    solvent        = substance.water
    name           = "salt"
    concentration  = "1 M"
    total_quantity = "10 mL"
  }
}

step "transfer" {
  from     = vessel["salt"]
  to       = "assay[A1:A3]"
  quantity = "10 uL"
}

step "transfer" {
  from     = vessel["water source"]
  to       = "assay[B1:B3]"
  quantity = "20 uL"
}
`

var ignoreSources = cmp.Options{
	cmpopts.IgnoreFields(SubstanceDef{}, "Source"),
	cmpopts.IgnoreFields(VesselDef{}, "Source"),
	cmpopts.IgnoreFields(Block{}, "Source"),
	cmpopts.IgnoreFields(StepDef{}, "Source"),
	cmpopts.EquateEmpty(),
}

func load(t *testing.T, files map[string]string) (*Model, error) {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0o600))
	}
	return Load(context.Background(), root)
}

func TestLoad(t *testing.T) {
	t.Parallel()
	model, err := load(t, map[string]string{
		"a_substances.hcl": substancesHCL,
		"b_assay.hcl":      assayHCL,
	})
	require.NoError(t, err)

	want := &Model{
		Substances: []SubstanceDef{
			{Name: "water", Kind: "liquid", MolarMass: 18.0153, Density: 1},
			{Name: "NaCl", Kind: "solid", MolarMass: 58.44, Density: 2.165},
		},
		Vessels: []VesselDef{
			{
				Kind:      ContainerVessel,
				Name:      "water source",
				MaxVolume: "50 mL",
				Contents:  []Content{{Substance: "water", Quantity: "10 mL"}},
			},
			{Kind: PlateVessel, Name: "assay", MaxVolume: "200 uL", Rows: 2, Columns: 3},
		},
		Blocks: []Block{
			{Stage: "prep", Steps: []StepDef{{
				Kind: CreateSolutionStep,
				Args: map[string]string{
					"solute":         "NaCl",
					"solvent":        "water",
					"name":           "salt",
					"concentration":  "1 M",
					"total_quantity": "10 mL",
				},
			}}},
			{Steps: []StepDef{{
				Kind: TransferStep,
				Args: map[string]string{"from": "salt", "to": "assay[A1:A3]", "quantity": "10 uL"},
			}}},
			{Steps: []StepDef{{
				Kind: TransferStep,
				Args: map[string]string{"from": "water source", "to": "assay[B1:B3]", "quantity": "20 uL"},
			}}},
		},
	}
	if diff := cmp.Diff(want, model, ignoreSources); diff != "" {
		t.Errorf("model mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 3, model.StepCount())
	assert.Contains(t, model.Blocks[1].Steps[0].Source, "b_assay.hcl")
}

func TestLoad_PlateDefaults(t *testing.T) {
	t.Parallel()
	model, err := load(t, map[string]string{"main.hcl": `
plate "deep" { max_volume = "1 mL" }
plate "strip" {
  max_volume   = "100 uL"
  row_names    = ["A"]
  column_names = ["1", "2", "3", "4"]
}
`})
	require.NoError(t, err)
	require.Len(t, model.Vessels, 2)
	assert.Equal(t, 8, model.Vessels[0].Rows)
	assert.Equal(t, 12, model.Vessels[0].Columns)
	assert.Equal(t, []string{"1", "2", "3", "4"}, model.Vessels[1].ColumnNames)
}

func TestLoad_Diagnostics(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		content   string
		expectErr string
	}{
		{
			name:      "unknown step kind",
			content:   `step "shake" { target = "flask" }`,
			expectErr: "Unknown step kind",
		},
		{
			name: "argument not allowed for kind",
			content: `
container "flask" {}
step "transfer" {
  from     = "flask"
  to       = "flask"
  quantity = "1 mL"
  solvent  = substance.water
}`,
			expectErr: "Unsupported argument",
		},
		{
			name: "missing required argument",
			content: `
container "flask" {}
step "transfer" {
  from = "flask"
  to   = "flask"
}`,
			expectErr: `The argument "quantity" is required`,
		},
		{
			name: "unknown substance reference",
			content: `
container "flask" {}
step "fill_to" {
  target   = "flask"
  solvent  = substance.ethanol
  quantity = "1 mL"
}`,
			expectErr: "Unsupported attribute",
		},
		{
			name: "unknown substance by name",
			content: `
container "flask" {}
step "fill_to" {
  target   = "flask"
  solvent  = "ethanol"
  quantity = "1 mL"
}`,
			expectErr: "Unknown substance",
		},
		{
			name: "vessel used before it is created",
			content: `
container "flask" {}
step "transfer" {
  from     = "buffer"
  to       = "flask"
  quantity = "1 mL"
}
step "create_container" { name = "buffer" }`,
			expectErr: "Unknown vessel",
		},
		{
			name: "created vessel clashes with declared one",
			content: `
container "flask" {}
step "create_container" { name = "flask" }`,
			expectErr: "Duplicate vessel",
		},
		{
			name:      "duplicate container",
			content:   "container \"flask\" {}\ncontainer \"flask\" {}\n",
			expectErr: "Duplicate vessel",
		},
		{
			name:      "duplicate substance",
			content:   `substance "water" { kind = "liquid" }`,
			expectErr: "Duplicate substance",
		},
		{
			name:      "invalid substance kind",
			content:   `substance "air" { kind = "gas" }`,
			expectErr: "Invalid substance kind",
		},
		{
			name:      "contents refer to unknown substance",
			content:   `container "flask" { contents = { ethanol = "1 mL" } }`,
			expectErr: "Unknown substance",
		},
		{
			name: "remove what must be a substance or kind",
			content: `
container "flask" {}
step "remove" {
  target = "flask"
  what   = "gases"
}`,
			expectErr: "must be a substance or one of",
		},
		{
			name:      "top-level argument",
			content:   `units = "uL"`,
			expectErr: "Unexpected argument",
		},
		{
			name:      "unsupported block type",
			content:   `pipette "p200" {}`,
			expectErr: "Unsupported block type",
		},
		{
			name:      "stage with arguments",
			content:   `stage "prep" { parallel = true }`,
			expectErr: "Unexpected argument",
		},
		{
			name:      "step without kind",
			content:   `step {}`,
			expectErr: "Invalid block labels",
		},
		{
			name:      "plate without max volume",
			content:   `plate "assay" { rows = 8 }`,
			expectErr: "max_volume",
		},
		{
			name:      "syntax error",
			content:   `container "flask" {`,
			expectErr: "failed to parse protocol file",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := load(t, map[string]string{
				"a.hcl": substancesHCL,
				"b.hcl": tc.content,
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.expectErr)
		})
	}
}

func TestLoad_UnnamedSolutionCanBeReferenced(t *testing.T) {
	t.Parallel()
	model, err := load(t, map[string]string{"main.hcl": substancesHCL + `
container "flask" {}
step "create_solution" {
  solute        = substance.NaCl
  solvent       = substance.water
  concentration = "1 M"
  quantity      = "1 mmol"
}
step "transfer" {
  from     = vessel["solution of NaCl in water"]
  to       = "flask"
  quantity = "100 uL"
}`})
	require.NoError(t, err)
	assert.Equal(t, "solution of NaCl in water", model.Blocks[1].Steps[0].Arg("from"))
}

func TestLoad_MissingPath(t *testing.T) {
	t.Parallel()
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	_, err = Load(context.Background(), t.TempDir())
	require.ErrorContains(t, err, "no .hcl protocol files")
}

func TestBuild(t *testing.T) {
	t.Parallel()
	model, err := load(t, map[string]string{
		"a_substances.hcl": substancesHCL,
		"b_assay.hcl":      assayHCL,
	})
	require.NoError(t, err)

	r, err := Build(context.Background(), model, nil)
	require.NoError(t, err)
	results, err := r.Bake()
	require.NoError(t, err)

	names := make([]string, len(results))
	for i, res := range results {
		names[i] = res.Name
	}
	assert.Equal(t, []string{"water source", "assay", "salt"}, names)

	instructions, err := r.Instructions(recipe.All)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Create a solution of 'NaCl' in 'water' with a concentration of 1 M and a total quantity of 10 mL.",
		"Transfer 10 uL from 'salt' to 'assay[A1:A3]'.",
		"Transfer 20 uL from 'water source' to 'assay[B1:B3]'.",
	}, instructions)
	assert.Equal(t, []recipe.StageSpan{
		{Name: recipe.AllStage, Start: 0, End: 3},
		{Name: "prep", Start: 0, End: 1},
	}, r.Stages())

	table, err := r.Visualize("assay", recipe.VisualizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{10, 10, 10}, {20, 20, 20}}, table.Values)
}

func TestBuild_AllStepKinds(t *testing.T) {
	t.Parallel()
	model, err := load(t, map[string]string{"main.hcl": substancesHCL + `
substance "taq" { kind = "enzyme" }

plate "assay" {
  rows       = 1
  columns    = 2
  max_volume = "200 uL"
}

step "create_container" {
  name       = "flask"
  max_volume = "200 mL"
  contents   = { NaCl = "5 g" }
}
step "fill_to" {
  target   = "flask"
  solvent  = substance.water
  quantity = "100 mL"
}
step "create_solution_from" {
  source        = "flask"
  solute        = substance.NaCl
  concentration = "0.1 M"
  solvent       = substance.water
  quantity      = "10 mL"
  name          = "working"
}
step "dilute" {
  target        = "working"
  solute        = substance.NaCl
  concentration = "0.05 M"
  solvent       = substance.water
}
stage "plate" {
  step "transfer" {
    from     = "working"
    to       = "assay"
    quantity = "50 uL"
  }
  step "remove" {
    target = "assay[A2]"
  }
}
`})
	require.NoError(t, err)

	r, err := Build(context.Background(), model, nil)
	require.NoError(t, err)
	_, err = r.Bake()
	require.NoError(t, err)

	ops := make([]recipe.Operator, 0, 6)
	for _, s := range r.Steps() {
		ops = append(ops, s.Operator())
	}
	assert.Equal(t, []recipe.Operator{
		recipe.OpCreateContainer, recipe.OpFillTo, recipe.OpSolutionFrom,
		recipe.OpDilute, recipe.OpTransfer, recipe.OpRemove,
	}, ops)

	instructions, err := r.Instructions(recipe.Stage("plate"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Transfer 50 uL from 'working' to 'assay[A1:A2]'.",
		"Remove all liquids from 'assay[A2]'.",
	}, instructions)
}

func TestBuild_ErrorsKeepTaxonomy(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		content   string
		expectErr error
	}{
		{
			name: "bad quantity",
			content: `
container "flask" {}
container "beaker" {}
step "transfer" {
  from     = "flask"
  to       = "beaker"
  quantity = "5 parsecs"
}`,
			expectErr: recipe.ErrArgument,
		},
		{
			name: "selection on a container",
			content: `
container "flask" {}
container "beaker" {}
step "transfer" {
  from     = "flask[A1]"
  to       = "beaker"
  quantity = "1 mL"
}`,
			expectErr: recipe.ErrArgument,
		},
		{
			name:      "invalid molar mass",
			content:   `substance "ghost" { kind = "liquid" }`,
			expectErr: recipe.ErrArgument,
		},
		{
			name: "well outside the plate",
			content: `
container "flask" {}
plate "assay" {
  rows       = 1
  columns    = 2
  max_volume = "100 uL"
}
step "transfer" {
  from     = "flask"
  to       = "assay[H12]"
  quantity = "1 uL"
}`,
			expectErr: recipe.ErrArgument,
		},
		{
			name: "stage declared twice",
			content: `
container "flask" {}
stage "prep" {
  step "fill_to" {
    target   = "flask"
    solvent  = substance.water
    quantity = "1 mL"
  }
}
stage "prep" {}`,
			expectErr: recipe.ErrState,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			model, err := load(t, map[string]string{"main.hcl": substancesHCL + tc.content})
			require.NoError(t, err)
			_, err = Build(context.Background(), model, nil)
			require.ErrorIs(t, err, tc.expectErr)
			assert.Contains(t, err.Error(), "main.hcl")
		})
	}
}

func TestSplitEndpoint(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		raw, name, sel string
	}{
		{"flask", "flask", ""},
		{"assay[A1:H1]", "assay", "A1:H1"},
		{" deep well [A1, B2] ", "deep well", "A1, B2"},
		{"odd]", "odd]", ""},
	}
	for _, tc := range testCases {
		name, sel := SplitEndpoint(tc.raw)
		assert.Equal(t, tc.name, name, tc.raw)
		assert.Equal(t, tc.sel, sel, tc.raw)
	}
}
