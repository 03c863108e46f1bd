package app

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/specialistvlad/labrecipe/internal/recipe"
	"github.com/specialistvlad/labrecipe/internal/substance"
	"github.com/specialistvlad/labrecipe/internal/unit"
	"github.com/specialistvlad/labrecipe/internal/vessel"
)

// report writes the instructions of the configured stage, the final state
// and flows of every vessel, the substance usage of the stage and, when
// asked, a plate table.
func (a *App) report(r *recipe.Recipe) error {
	stage := recipe.Stage(a.config.Stage)
	instructions, err := r.Instructions(stage)
	if err != nil {
		return err
	}
	a.printf("Instructions (%s):\n", a.config.Stage)
	for i, line := range instructions {
		a.printf("%3d. %s\n", i+1, line)
	}

	if err := a.reportVessels(r); err != nil {
		return err
	}
	if err := a.reportUsage(r, stage); err != nil {
		return err
	}

	if a.config.Visualize != "" {
		mode, err := recipe.ParseVisualizeMode(a.config.VisualizeMode)
		if err != nil {
			return err
		}
		table, err := r.Visualize(a.config.Visualize, recipe.VisualizeOptions{Mode: mode, Timeframe: stage})
		if err != nil {
			return err
		}
		a.printf("\n%s", table)
	}
	return nil
}

func (a *App) reportVessels(r *recipe.Recipe) error {
	u := a.engine.VolumeDisplayUnit
	precision := a.engine.Precision(u)
	a.printf("\nVessels (%s):\n", u)
	w := tabwriter.NewWriter(a.outW, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "name\tkind\tfinal\tin\tout")
	for _, res := range r.Results() {
		amount, err := r.AmountRemaining(res.Name, recipe.RemainingOptions{})
		if err != nil {
			return err
		}
		flows, err := r.ContainerFlows(res.Name, recipe.FlowOptions{})
		if err != nil {
			return err
		}
		kind := "container"
		if _, ok := res.Vessel.(vessel.Plate); ok {
			kind = "plate"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", res.Name, kind,
			format(amount.Total, precision), format(flows.In, precision), format(flows.Out, precision))
	}
	return w.Flush()
}

func (a *App) reportUsage(r *recipe.Recipe, stage recipe.Stage) error {
	steps, err := r.StepsIn(stage)
	if err != nil {
		return err
	}
	var used []substance.Substance
	seen := make(map[substance.Substance]struct{})
	for _, step := range steps {
		for _, s := range step.SubstancesUsed {
			if _, ok := seen[s]; !ok {
				seen[s] = struct{}{}
				used = append(used, s)
			}
		}
	}
	substance.Sort(used)

	a.printf("\nSubstance usage (%s):\n", a.config.Stage)
	w := tabwriter.NewWriter(a.outW, 0, 0, 2, ' ', 0)
	for _, s := range used {
		u := a.engine.MolesDisplayUnit
		if s.IsEnzyme() {
			u = unit.ActivityUnit
		}
		amount, err := r.SubstanceUsed(s, recipe.UsageOptions{Timeframe: stage, Unit: u})
		if errors.Is(err, recipe.ErrConservation) {
			a.logger.Warn("Substance usage not reported.", "substance", s.Name, "stage", a.config.Stage, "error", err)
			fmt.Fprintf(w, "%s\tn/a (destinations lost substance in this stage)\n", s.Name)
			continue
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s %s\n", s.Name, format(amount, a.engine.Precision(u)), u)
	}
	return w.Flush()
}

func format(v float64, precision int) string {
	return strconv.FormatFloat(unit.Round(v, precision), 'f', -1, 64)
}
