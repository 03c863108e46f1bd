package recipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loadAndWash fills A1:A3 of a 2x3 plate from a water source and then
// empties A1.
func loadAndWash(t *testing.T) *Recipe {
	t.Helper()
	r := newRecipe(t)
	src := newContainer(t, r, "src", "20 mL", vesselEntry(water, "10 mL"))
	plate := newPlate(t, r, "plate", 2, 3)
	require.NoError(t, r.Uses(src, plate))

	require.NoError(t, r.StartStage("load"))
	require.NoError(t, r.Transfer(src, slice(t, plate, "A1:A3"), "50 uL"))
	require.NoError(t, r.EndStage("load"))

	require.NoError(t, r.StartStage("wash"))
	require.NoError(t, r.Remove(slice(t, plate, "A1"), nil))
	require.NoError(t, r.EndStage("wash"))

	_, err := r.Bake()
	require.NoError(t, err)
	return r
}

func assertGrid(t *testing.T, want, got [][]float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		require.Len(t, got[i], len(want[i]), "row %d", i)
		for j := range want[i] {
			assert.InDelta(t, want[i][j], got[i][j], 1e-6, "well [%d][%d]", i, j)
		}
	}
}

func TestSubstanceUsed(t *testing.T) {
	t.Parallel()
	r := loadAndWash(t)

	testCases := []struct {
		name      string
		opts      UsageOptions
		want      float64
		expectErr error
	}{
		{name: "whole recipe counts plates and trash", opts: UsageOptions{Unit: "uL"}, want: 150},
		{name: "load stage", opts: UsageOptions{Timeframe: Stage("load"), Unit: "uL"}, want: 150},
		{name: "removal is not use", opts: UsageOptions{Timeframe: Stage("wash"), Unit: "uL"}, want: 0},
		{name: "defaults to moles display unit", opts: UsageOptions{}, want: 8326.3},
		{name: "in milliliters", opts: UsageOptions{Unit: "mL"}, want: 0.15},
		{
			name:      "a source as destination loses substance",
			opts:      UsageOptions{Destinations: []string{"src"}, Unit: "uL"},
			expectErr: ErrConservation,
		},
		{
			name:      "unknown destination",
			opts:      UsageOptions{Destinations: []string{"beaker"}},
			expectErr: ErrUsage,
		},
		{name: "molarity is not an amount", opts: UsageOptions{Unit: "mM"}, expectErr: ErrArgument},
		{name: "unknown stage", opts: UsageOptions{Timeframe: Stage("dry")}, expectErr: ErrArgument},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := r.SubstanceUsed(water, tc.opts)
			if tc.expectErr != nil {
				require.ErrorIs(t, err, tc.expectErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestSubstanceUsed_UnusedSubstanceIsZero(t *testing.T) {
	t.Parallel()
	r := loadAndWash(t)
	got, err := r.SubstanceUsed(salt, UsageOptions{})
	require.NoError(t, err)
	assert.Zero(t, got)

	got, err = r.SubstanceUsed(taq, UsageOptions{})
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestQueries_RequireBake(t *testing.T) {
	t.Parallel()
	r := newRecipe(t)
	src := newContainer(t, r, "src", "20 mL", vesselEntry(water, "10 mL"))
	require.NoError(t, r.Uses(src))

	_, err := r.SubstanceUsed(water, UsageOptions{})
	require.ErrorIs(t, err, ErrState)
	_, err = r.ContainerFlows("src", FlowOptions{})
	require.ErrorIs(t, err, ErrState)
	_, err = r.AmountRemaining("src", RemainingOptions{})
	require.ErrorIs(t, err, ErrState)
	_, err = r.Visualize("src", VisualizeOptions{})
	require.ErrorIs(t, err, ErrState)
	_, err = r.Instructions(All)
	require.ErrorIs(t, err, ErrState)
}

func TestContainerFlows(t *testing.T) {
	t.Parallel()
	r := loadAndWash(t)

	t.Run("container", func(t *testing.T) {
		t.Parallel()
		flows, err := r.ContainerFlows("src", FlowOptions{})
		require.NoError(t, err)
		assert.InDelta(t, 150, flows.Out, 1e-9)
		assert.Zero(t, flows.In)
		assert.Nil(t, flows.WellIn)
	})

	t.Run("plate", func(t *testing.T) {
		t.Parallel()
		flows, err := r.ContainerFlows("plate", FlowOptions{})
		require.NoError(t, err)
		assertGrid(t, [][]float64{{50, 50, 50}, {0, 0, 0}}, flows.WellIn)
		assertGrid(t, [][]float64{{50, 0, 0}, {0, 0, 0}}, flows.WellOut)
		assert.InDelta(t, 150, flows.In, 1e-9)
		assert.InDelta(t, 50, flows.Out, 1e-9)
	})

	t.Run("stage", func(t *testing.T) {
		t.Parallel()
		flows, err := r.ContainerFlows("plate", FlowOptions{Timeframe: Stage("wash"), Unit: "mL"})
		require.NoError(t, err)
		assert.Zero(t, flows.In)
		assert.InDelta(t, 0.05, flows.Out, 1e-9)
	})

	t.Run("unknown vessel", func(t *testing.T) {
		t.Parallel()
		_, err := r.ContainerFlows("beaker", FlowOptions{})
		require.ErrorIs(t, err, ErrUsage)
	})
}

func TestContainerFlows_SamePlateTransfer(t *testing.T) {
	t.Parallel()
	r := newRecipe(t)
	src := newContainer(t, r, "src", "10 mL", vesselEntry(water, "1 mL"))
	plate := newPlate(t, r, "plate", 1, 2)
	require.NoError(t, r.Uses(src, plate))
	require.NoError(t, r.Transfer(src, slice(t, plate, "A1"), "100 uL"))
	require.NoError(t, r.StartStage("spread"))
	require.NoError(t, r.Transfer(slice(t, plate, "A1"), slice(t, plate, "A2"), "40 uL"))
	require.NoError(t, r.EndStage("spread"))
	_, err := r.Bake()
	require.NoError(t, err)

	flows, err := r.ContainerFlows("plate", FlowOptions{Timeframe: Stage("spread")})
	require.NoError(t, err)
	assertGrid(t, [][]float64{{0, 40}}, flows.WellIn)
	assertGrid(t, [][]float64{{40, 0}}, flows.WellOut)

	table, err := r.Visualize("plate", VisualizeOptions{Mode: Delta, Timeframe: Stage("spread")})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{-40, 40}}, table.Values)

	used, err := r.SubstanceUsed(water, UsageOptions{Timeframe: Stage("spread"), Unit: "uL"})
	require.NoError(t, err)
	assert.Zero(t, used)
}

func TestContainerFlows_RemoveIsOutflow(t *testing.T) {
	t.Parallel()
	r := newRecipe(t)
	src := newContainer(t, r, "src", "10 mL", vesselEntry(water, "1 mL"))
	dst := newContainer(t, r, "dst", "10 mL")
	require.NoError(t, r.Uses(src, dst))
	require.NoError(t, r.Transfer(src, dst, "100 uL"))
	require.NoError(t, r.Remove(dst, nil))
	// Nothing left to remove.
	require.NoError(t, r.Remove(dst, nil))
	_, err := r.Bake()
	require.NoError(t, err)

	steps := r.Steps()
	require.Len(t, steps, 3)
	assert.Empty(t, steps[2].Trash)

	flows, err := r.ContainerFlows("dst", FlowOptions{})
	require.NoError(t, err)
	assert.InDelta(t, 100, flows.In, 1e-9)
	assert.InDelta(t, 100, flows.Out, 1e-9)

	flows, err = r.ContainerFlows("dst", FlowOptions{Timeframe: StepIndex(-1)})
	require.NoError(t, err)
	assert.Zero(t, flows.In)
	assert.Zero(t, flows.Out)
}

func TestStepsIn(t *testing.T) {
	t.Parallel()
	r := loadAndWash(t)

	steps, err := r.StepsIn(Stage("wash"))
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, OpRemove, steps[0].Operator())

	steps, err = r.StepsIn(nil)
	require.NoError(t, err)
	assert.Len(t, steps, 2)

	_, err = r.StepsIn(Stage("dry"))
	require.ErrorIs(t, err, ErrArgument)
}

func TestAmountRemaining(t *testing.T) {
	t.Parallel()
	r := loadAndWash(t)

	after, err := r.AmountRemaining("src", RemainingOptions{})
	require.NoError(t, err)
	assert.InDelta(t, 9850, after.Total, 1e-6)
	assert.Nil(t, after.Wells)

	before, err := r.AmountRemaining("src", RemainingOptions{Mode: Before})
	require.NoError(t, err)
	assert.InDelta(t, 10_000, before.Total, 1e-6)

	plate, err := r.AmountRemaining("plate", RemainingOptions{})
	require.NoError(t, err)
	assertGrid(t, [][]float64{{0, 50, 50}, {0, 0, 0}}, plate.Wells)
	assert.InDelta(t, 100, plate.Total, 1e-6)

	washed, err := r.AmountRemaining("plate", RemainingOptions{Timeframe: Stage("wash"), Mode: Before})
	require.NoError(t, err)
	assertGrid(t, [][]float64{{50, 50, 50}, {0, 0, 0}}, washed.Wells)

	again, err := r.AmountRemaining("plate", RemainingOptions{})
	require.NoError(t, err)
	assert.Equal(t, plate, again)

	_, err = r.AmountRemaining("src", RemainingOptions{Timeframe: Stage("wash")})
	require.ErrorIs(t, err, ErrUsage)
	_, err = r.AmountRemaining("beaker", RemainingOptions{})
	require.ErrorIs(t, err, ErrUsage)
}

func TestVisualize(t *testing.T) {
	t.Parallel()
	r := loadAndWash(t)

	final, err := r.Visualize("plate", VisualizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0, 50, 50}, {0, 0, 0}}, final.Values)
	assert.Equal(t, []string{"A", "B"}, final.Rows)
	assert.Equal(t, []string{"1", "2", "3"}, final.Columns)
	assert.Equal(t, "uL", final.Unit)
	assert.Equal(t, "Blues", final.Colormap)
	assert.Contains(t, final.String(), "plate (final, uL)")
	assert.Contains(t, final.String(), "50.0")

	delta, err := r.Visualize("plate", VisualizeOptions{Mode: Delta, Timeframe: Stage("wash")})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{-50, 0, 0}, {0, 0, 0}}, delta.Values)
	assert.Equal(t, -50.0, delta.Min)
	assert.Equal(t, 0.0, delta.Max)

	last, err := r.Visualize("plate", VisualizeOptions{Timeframe: StepIndex(-1)})
	require.NoError(t, err)
	assert.Equal(t, final.Values, last.Values)

	byStep, err := r.Visualize("plate", VisualizeOptions{Timeframe: r.Steps()[0]})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{50, 50, 50}, {0, 0, 0}}, byStep.Values)

	_, err = r.Visualize("plate", VisualizeOptions{Timeframe: StepIndex(5)})
	require.ErrorIs(t, err, ErrArgument)
	_, err = r.Visualize("src", VisualizeOptions{})
	require.ErrorIs(t, err, ErrArgument)
	_, err = r.Visualize("beaker", VisualizeOptions{})
	require.ErrorIs(t, err, ErrUsage)
}

func TestParseVisualizeMode(t *testing.T) {
	t.Parallel()
	m, err := ParseVisualizeMode("Delta")
	require.NoError(t, err)
	assert.Equal(t, Delta, m)
	m, err = ParseVisualizeMode("")
	require.NoError(t, err)
	assert.Equal(t, Final, m)
	_, err = ParseVisualizeMode("sum")
	require.ErrorIs(t, err, ErrArgument)
}
