package recipe

import (
	"testing"

	"github.com/specialistvlad/labrecipe/internal/substance"
	"github.com/specialistvlad/labrecipe/internal/vessel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	water = mustSubstance(substance.NewLiquid("water", 18.0153, 1.0))
	salt  = mustSubstance(substance.NewSolid("NaCl", 58.44, 2.165))
	taq   = mustSubstance(substance.NewEnzyme("taq"))
)

func mustSubstance(s substance.Substance, err error) substance.Substance {
	if err != nil {
		panic(err)
	}
	return s
}

func vesselEntry(s substance.Substance, quantity string) vessel.Entry {
	return vessel.Entry{Substance: s, Quantity: quantity}
}

func newRecipe(t *testing.T) *Recipe {
	t.Helper()
	r, err := New(nil)
	require.NoError(t, err)
	return r
}

func newContainer(t *testing.T, r *Recipe, name, maxVolume string, entries ...vessel.Entry) vessel.Container {
	t.Helper()
	c, err := r.Ops().NewContainer(name, maxVolume, entries...)
	require.NoError(t, err)
	return c
}

func newPlate(t *testing.T, r *Recipe, name string, rows, cols int) vessel.Plate {
	t.Helper()
	p, err := r.Ops().NewPlate(name, "200 uL", rows, cols)
	require.NoError(t, err)
	return p
}

func slice(t *testing.T, p vessel.Plate, sel string) vessel.Slicer {
	t.Helper()
	s, err := p.Slice(sel)
	require.NoError(t, err)
	return s
}

func volume(t *testing.T, r *Recipe, name string) float64 {
	t.Helper()
	v, ok := r.Vessel(name)
	require.True(t, ok, name)
	c, ok := v.(vessel.Container)
	require.True(t, ok, name)
	return r.Ops().Volume(c)
}

func TestScenario_TransferBetweenContainers(t *testing.T) {
	t.Parallel()
	r := newRecipe(t)
	src := newContainer(t, r, "water source", "20 mL", vessel.Entry{Substance: water, Quantity: "10 mL"})
	dest := newContainer(t, r, "dest", "20 mL")
	require.NoError(t, r.Uses(src, dest))
	require.NoError(t, r.Transfer(src, dest, "5 mL"))

	results, err := r.Bake()
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "water source", results[0].Name)
	assert.Equal(t, "dest", results[1].Name)
	assert.InDelta(t, 5_000, volume(t, r, "water source"), 1e-6)
	assert.InDelta(t, 5_000, volume(t, r, "dest"), 1e-6)
	assert.Equal(t, []substance.Substance{water}, results[1].Vessel.Substances())
}

func TestScenario_OneMolarSolution(t *testing.T) {
	t.Parallel()
	r := newRecipe(t)
	c, err := r.CreateSolution(salt, water, "", vessel.SolutionSpec{Concentration: "1 M", TotalQuantity: "10 mL"})
	require.NoError(t, err)
	assert.Equal(t, "solution of NaCl in water", c.Name())

	_, err = r.Bake()
	require.NoError(t, err)
	v, ok := r.Vessel(c.Name())
	require.True(t, ok)
	got := v.(vessel.Container)
	// umol per uL is mol per L.
	assert.InDelta(t, 1, got.Amount(salt)/r.Ops().Volume(got), 1e-9)
	assert.InDelta(t, 10_000, r.Ops().Volume(got), 1e-6)
}

func TestScenario_DeclaredButUnused(t *testing.T) {
	t.Parallel()
	r := newRecipe(t)
	require.NoError(t, r.Uses(newContainer(t, r, "idle", "1 mL")))

	_, err := r.Bake()
	require.ErrorIs(t, err, ErrUsage)
	assert.Contains(t, err.Error(), `"idle"`)
	assert.False(t, r.Locked())
}

func TestStages(t *testing.T) {
	t.Parallel()

	t.Run("cannot open a second stage", func(t *testing.T) {
		t.Parallel()
		r := newRecipe(t)
		require.NoError(t, r.StartStage("prep"))
		require.ErrorIs(t, r.StartStage("run"), ErrState)
	})

	t.Run("end must match the open stage", func(t *testing.T) {
		t.Parallel()
		r := newRecipe(t)
		require.ErrorIs(t, r.EndStage("prep"), ErrState)
		require.NoError(t, r.StartStage("prep"))
		require.ErrorIs(t, r.EndStage("run"), ErrState)
		require.NoError(t, r.EndStage("prep"))
	})

	t.Run("names cannot be reused", func(t *testing.T) {
		t.Parallel()
		r := newRecipe(t)
		require.NoError(t, r.StartStage("prep"))
		require.NoError(t, r.EndStage("prep"))
		require.ErrorIs(t, r.StartStage("prep"), ErrState)
		require.ErrorIs(t, r.StartStage(AllStage), ErrState)
		require.ErrorIs(t, r.StartStage(""), ErrArgument)
	})

	t.Run("partition", func(t *testing.T) {
		t.Parallel()
		r := newRecipe(t)
		src := newContainer(t, r, "src", "50 mL", vessel.Entry{Substance: water, Quantity: "40 mL"})
		dst := newContainer(t, r, "dst", "50 mL")
		require.NoError(t, r.Uses(src, dst))

		require.NoError(t, r.Transfer(src, dst, "1 mL"))
		require.NoError(t, r.StartStage("a"))
		require.NoError(t, r.Transfer(src, dst, "1 mL"))
		require.NoError(t, r.Transfer(src, dst, "1 mL"))
		require.NoError(t, r.EndStage("a"))
		require.NoError(t, r.Transfer(src, dst, "1 mL"))
		require.NoError(t, r.StartStage("b"))
		require.NoError(t, r.Transfer(src, dst, "1 mL"))
		// "b" is still open; Bake closes it.
		_, err := r.Bake()
		require.NoError(t, err)

		stages := r.Stages()
		require.Len(t, stages, 3)
		assert.Equal(t, StageSpan{Name: AllStage, Start: 0, End: 5}, stages[0])
		assert.Equal(t, StageSpan{Name: "a", Start: 1, End: 3}, stages[1])
		assert.Equal(t, StageSpan{Name: "b", Start: 4, End: 5}, stages[2])

		total := 0
		for i, s := range stages[1:] {
			total += s.Len()
			for _, other := range stages[i+2:] {
				assert.True(t, s.End <= other.Start || other.End <= s.Start, "%s overlaps %s", s.Name, other.Name)
			}
		}
		assert.LessOrEqual(t, total, stages[0].Len())
		assert.Equal(t, "a", r.StageOf(2))
		assert.Equal(t, AllStage, r.StageOf(3))
	})
}

func TestUses(t *testing.T) {
	t.Parallel()
	r := newRecipe(t)
	c := newContainer(t, r, "shared", "1 mL")
	p := newPlate(t, r, "shared", 2, 2)
	other := newContainer(t, r, "other", "1 mL")

	require.NoError(t, r.Uses(c))
	require.ErrorIs(t, r.Uses(p), ErrUsage)
	require.ErrorIs(t, r.Uses(c), ErrUsage)

	// A failing call registers nothing.
	require.ErrorIs(t, r.Uses(other, other), ErrUsage)
	_, ok := r.Vessel("other")
	assert.False(t, ok)

	require.ErrorIs(t, r.Uses(nil), ErrArgument)

	_, err := r.CreateContainer("shared", "")
	require.ErrorIs(t, err, ErrUsage)
	_, err = r.CreateSolution(salt, water, "shared", vessel.SolutionSpec{Concentration: "1 M", TotalQuantity: "1 mL"})
	require.ErrorIs(t, err, ErrUsage)
	assert.Empty(t, r.Steps())
}

func TestLockedRecipeRejectsEverything(t *testing.T) {
	t.Parallel()
	r := newRecipe(t)
	src := newContainer(t, r, "src", "10 mL", vessel.Entry{Substance: water, Quantity: "5 mL"})
	require.NoError(t, r.Uses(src))
	require.NoError(t, r.FillTo(src, water, "6 mL"))
	_, err := r.Bake()
	require.NoError(t, err)
	require.True(t, r.Locked())

	checks := []struct {
		name string
		call func() error
	}{
		{"Uses", func() error { return r.Uses(newContainer(t, r, "late", "1 mL")) }},
		{"StartStage", func() error { return r.StartStage("late") }},
		{"EndStage", func() error { return r.EndStage("late") }},
		{"Transfer", func() error { return r.Transfer(src, src, "1 mL") }},
		{"Remove", func() error { return r.Remove(src, nil) }},
		{"Dilute", func() error { return r.Dilute(src, salt, "1 M", water, "") }},
		{"FillTo", func() error { return r.FillTo(src, water, "7 mL") }},
		{"Bake", func() error {
			_, err := r.Bake()
			return err
		}},
		{"CreateContainer", func() error {
			_, err := r.CreateContainer("late", "")
			return err
		}},
		{"CreateSolution", func() error {
			_, err := r.CreateSolution(salt, water, "late", vessel.SolutionSpec{Quantity: "1 g", TotalQuantity: "10 mL"})
			return err
		}},
		{"CreateSolutionFrom", func() error {
			_, err := r.CreateSolutionFrom(src, salt, "1 mM", water, "1 mL", "late")
			return err
		}},
	}
	for _, c := range checks {
		require.ErrorIs(t, c.call(), ErrState, c.name)
	}
	assert.Len(t, r.Steps(), 1)
}

func TestCreateSolution_TwoOfThree(t *testing.T) {
	t.Parallel()
	const (
		conc  = "0.5 M"
		qty   = "1 g"
		total = "100 mL"
	)
	testCases := []struct {
		name    string
		spec    vessel.SolutionSpec
		wantErr bool
	}{
		{name: "none", spec: vessel.SolutionSpec{}, wantErr: true},
		{name: "concentration only", spec: vessel.SolutionSpec{Concentration: conc}, wantErr: true},
		{name: "quantity only", spec: vessel.SolutionSpec{Quantity: qty}, wantErr: true},
		{name: "total only", spec: vessel.SolutionSpec{TotalQuantity: total}, wantErr: true},
		{name: "all three", spec: vessel.SolutionSpec{Concentration: conc, Quantity: qty, TotalQuantity: total}, wantErr: true},
		{name: "concentration and quantity", spec: vessel.SolutionSpec{Concentration: conc, Quantity: qty}},
		{name: "concentration and total", spec: vessel.SolutionSpec{Concentration: conc, TotalQuantity: total}},
		{name: "quantity and total", spec: vessel.SolutionSpec{Quantity: qty, TotalQuantity: total}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := newRecipe(t)
			_, err := r.CreateSolution(salt, water, "", tc.spec)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrArgument)
				assert.Empty(t, r.Steps())
				return
			}
			require.NoError(t, err)
			_, err = r.Bake()
			require.NoError(t, err)
		})
	}
}

func TestDeclarationErrors(t *testing.T) {
	t.Parallel()
	r := newRecipe(t)
	src := newContainer(t, r, "src", "10 mL", vessel.Entry{Substance: water, Quantity: "5 mL"})
	plate := newPlate(t, r, "plate", 2, 3)
	require.NoError(t, r.Uses(src, plate))
	undeclared := newContainer(t, r, "ghost", "1 mL")
	impostor := newPlate(t, r, "src", 2, 3)
	wrongShape := newPlate(t, r, "plate", 8, 12)

	testCases := []struct {
		name      string
		call      func() error
		expectErr error
	}{
		{name: "transfer from undeclared", call: func() error { return r.Transfer(undeclared, src, "1 mL") }, expectErr: ErrUsage},
		{name: "transfer to undeclared", call: func() error { return r.Transfer(src, undeclared, "1 mL") }, expectErr: ErrUsage},
		{name: "transfer bad quantity", call: func() error { return r.Transfer(src, plate, "five mL") }, expectErr: ErrArgument},
		{name: "transfer concentration", call: func() error { return r.Transfer(src, plate, "1 M") }, expectErr: ErrArgument},
		{name: "transfer negative", call: func() error { return r.Transfer(src, plate, "-1 mL") }, expectErr: ErrArgument},
		{name: "transfer into itself", call: func() error { return r.Transfer(src, src, "1 mL") }, expectErr: ErrArgument},
		{name: "plate where a container is declared", call: func() error { return r.Transfer(impostor, plate, "1 uL") }, expectErr: ErrArgument},
		{name: "selection outside the declared plate", call: func() error {
			return r.Transfer(src, slice(t, wrongShape, "H12"), "1 uL")
		}, expectErr: ErrArgument},
		{name: "remove from undeclared", call: func() error { return r.Remove(undeclared, nil) }, expectErr: ErrUsage},
		{name: "dilute undeclared", call: func() error { return r.Dilute(undeclared, salt, "1 M", water, "") }, expectErr: ErrUsage},
		{name: "dilute enzyme", call: func() error { return r.Dilute(src, taq, "1 U/mL", water, "") }, expectErr: ErrInfeasible},
		{name: "dilute impossible concentration", call: func() error { return r.Dilute(src, salt, "100 M", water, "") }, expectErr: ErrInfeasible},
		{name: "dilute bad concentration", call: func() error { return r.Dilute(src, salt, "1 mL", water, "") }, expectErr: ErrArgument},
		{name: "fill with enzyme", call: func() error { return r.FillTo(src, taq, "1 mL") }, expectErr: ErrArgument},
		{name: "fill bad quantity", call: func() error { return r.FillTo(src, water, "lots") }, expectErr: ErrArgument},
		{name: "create container bad volume", call: func() error {
			_, err := r.CreateContainer("new", "10 g")
			return err
		}, expectErr: ErrArgument},
		{name: "create container bad contents", call: func() error {
			_, err := r.CreateContainer("new", "", vessel.Entry{Substance: water, Quantity: "3 U"})
			return err
		}, expectErr: ErrArgument},
		{name: "create container empty name", call: func() error {
			_, err := r.CreateContainer("", "")
			return err
		}, expectErr: ErrArgument},
		{name: "solution from zero quantity", call: func() error {
			_, err := r.CreateSolutionFrom(src, salt, "1 mM", water, "0 mL", "new")
			return err
		}, expectErr: ErrArgument},
		{name: "solution from impossible concentration", call: func() error {
			_, err := r.CreateSolutionFrom(src, salt, "100 M", water, "1 mL", "new")
			return err
		}, expectErr: ErrInfeasible},
		{name: "solution from undeclared", call: func() error {
			_, err := r.CreateSolutionFrom(undeclared, salt, "1 mM", water, "1 mL", "new")
			return err
		}, expectErr: ErrUsage},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, tc.call(), tc.expectErr)
		})
	}
	assert.Empty(t, r.Steps())
	assert.Len(t, r.Results(), 2)
}
