package protocol

import (
	"context"
	"fmt"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/labrecipe/internal/ctxlog"
	"github.com/specialistvlad/labrecipe/internal/fsutil"
	"github.com/specialistvlad/labrecipe/internal/substance"
	"github.com/zclconf/go-cty/cty"
)

const (
	defaultRows    = 8
	defaultColumns = 12
)

type hclSubstance struct {
	Kind      string  `hcl:"kind"`
	MolarMass float64 `hcl:"molar_mass,optional"`
	Density   float64 `hcl:"density,optional"`
}

type hclContainer struct {
	MaxVolume string            `hcl:"max_volume,optional"`
	Contents  map[string]string `hcl:"contents,optional"`
}

type hclPlate struct {
	MaxVolume   string   `hcl:"max_volume"`
	Rows        *int     `hcl:"rows,optional"`
	Columns     *int     `hcl:"columns,optional"`
	RowNames    []string `hcl:"row_names,optional"`
	ColumnNames []string `hcl:"column_names,optional"`
}

// loader accumulates the model across files. Declarations are collected
// from every file before any step is read, so a step may refer to a
// substance or vessel declared in another file.
type loader struct {
	model      *Model
	substances map[string]struct{}
	vessels    map[string]struct{}
}

// Load parses every .hcl file found under paths, in lexical order, into a
// Model. Problems are reported as HCL diagnostics with source ranges.
func Load(ctx context.Context, paths ...string) (*Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Protocol loader started.", "path_count", len(paths))

	files, err := fsutil.FindFiles(paths, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("failed to find protocol files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl protocol files found in %v", paths)
	}
	logger.Debug("Discovered protocol files.", "count", len(files))

	parser := hclparse.NewParser()
	bodies := make([]*hclsyntax.Body, 0, len(files))
	for _, file := range files {
		f, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse protocol file %s: %w", file, diags)
		}
		body, ok := f.Body.(*hclsyntax.Body)
		if !ok {
			return nil, fmt.Errorf("protocol file %s is not in native HCL syntax", file)
		}
		bodies = append(bodies, body)
	}

	l := &loader{
		model:      &Model{},
		substances: make(map[string]struct{}),
		vessels:    make(map[string]struct{}),
	}
	var diags hcl.Diagnostics
	for _, body := range bodies {
		diags = append(diags, l.checkTopLevel(body)...)
		diags = append(diags, l.decodeSubstances(body)...)
	}
	for _, body := range bodies {
		diags = append(diags, l.decodeVessels(body)...)
	}
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to load protocol: %w", diags)
	}
	for _, body := range bodies {
		diags = append(diags, l.decodeSteps(ctx, body)...)
	}
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to load protocol: %w", diags)
	}

	logger.Debug("Protocol loading complete.",
		"substances", len(l.model.Substances),
		"vessels", len(l.model.Vessels),
		"steps", l.model.StepCount())
	return l.model, nil
}

var topLevelBlocks = []string{"substance", "container", "plate", "stage", "step"}

func (l *loader) checkTopLevel(body *hclsyntax.Body) hcl.Diagnostics {
	var diags hcl.Diagnostics
	for _, attr := range sortedAttributes(body.Attributes) {
		diags = append(diags, errorDiag("Unexpected argument",
			fmt.Sprintf("Top-level argument %q is not allowed; protocols only contain blocks.", attr.Name),
			attr.SrcRange.Ptr()))
	}
	for _, block := range body.Blocks {
		if !slices.Contains(topLevelBlocks, block.Type) {
			diags = append(diags, errorDiag("Unsupported block type",
				fmt.Sprintf("Blocks of type %q are not expected here. Expected one of %v.", block.Type, topLevelBlocks),
				block.TypeRange.Ptr()))
		}
	}
	return diags
}

func (l *loader) decodeSubstances(body *hclsyntax.Body) hcl.Diagnostics {
	var diags hcl.Diagnostics
	for _, block := range body.Blocks {
		if block.Type != "substance" {
			continue
		}
		name, labelDiags := singleLabel(block)
		if labelDiags.HasErrors() {
			diags = append(diags, labelDiags...)
			continue
		}
		var raw hclSubstance
		if decodeDiags := gohcl.DecodeBody(block.Body, nil, &raw); decodeDiags.HasErrors() {
			diags = append(diags, decodeDiags...)
			continue
		}
		if _, err := substance.ParseKind(raw.Kind); err != nil {
			diags = append(diags, errorDiag("Invalid substance kind", err.Error(), block.DefRange().Ptr()))
			continue
		}
		if _, dup := l.substances[name]; dup {
			diags = append(diags, errorDiag("Duplicate substance",
				fmt.Sprintf("A substance named %q was already declared.", name), block.LabelRanges[0].Ptr()))
			continue
		}
		l.substances[name] = struct{}{}
		l.model.Substances = append(l.model.Substances, SubstanceDef{
			Name:      name,
			Kind:      raw.Kind,
			MolarMass: raw.MolarMass,
			Density:   raw.Density,
			Source:    block.DefRange().String(),
		})
	}
	return diags
}

func (l *loader) decodeVessels(body *hclsyntax.Body) hcl.Diagnostics {
	var diags hcl.Diagnostics
	ctx := l.evalContext()
	for _, block := range body.Blocks {
		if block.Type != "container" && block.Type != "plate" {
			continue
		}
		name, labelDiags := singleLabel(block)
		if labelDiags.HasErrors() {
			diags = append(diags, labelDiags...)
			continue
		}

		def := VesselDef{Name: name, Source: block.DefRange().String()}
		switch block.Type {
		case "container":
			var raw hclContainer
			if decodeDiags := gohcl.DecodeBody(block.Body, ctx, &raw); decodeDiags.HasErrors() {
				diags = append(diags, decodeDiags...)
				continue
			}
			contents, contentDiags := l.contents(raw.Contents, block.Body.SrcRange)
			if contentDiags.HasErrors() {
				diags = append(diags, contentDiags...)
				continue
			}
			def.Kind = ContainerVessel
			def.MaxVolume = raw.MaxVolume
			def.Contents = contents
		case "plate":
			var raw hclPlate
			if decodeDiags := gohcl.DecodeBody(block.Body, ctx, &raw); decodeDiags.HasErrors() {
				diags = append(diags, decodeDiags...)
				continue
			}
			def.Kind = PlateVessel
			def.MaxVolume = raw.MaxVolume
			def.Rows, def.Columns = defaultRows, defaultColumns
			if raw.Rows != nil {
				def.Rows = *raw.Rows
			}
			if raw.Columns != nil {
				def.Columns = *raw.Columns
			}
			def.RowNames, def.ColumnNames = raw.RowNames, raw.ColumnNames
		}

		if _, dup := l.vessels[name]; dup {
			diags = append(diags, errorDiag("Duplicate vessel",
				fmt.Sprintf("A vessel named %q was already declared.", name), block.LabelRanges[0].Ptr()))
			continue
		}
		l.vessels[name] = struct{}{}
		l.model.Vessels = append(l.model.Vessels, def)
	}
	return diags
}

// contents orders a substance-to-quantity map by substance name and checks
// every substance is declared.
func (l *loader) contents(raw map[string]string, rng hcl.Range) ([]Content, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	slices.Sort(names)
	out := make([]Content, 0, len(names))
	for _, name := range names {
		if _, ok := l.substances[name]; !ok {
			diags = append(diags, errorDiag("Unknown substance",
				fmt.Sprintf("Contents refer to substance %q, which is not declared.", name), rng.Ptr()))
			continue
		}
		out = append(out, Content{Substance: name, Quantity: raw[name]})
	}
	return out, diags
}

func (l *loader) decodeSteps(ctx context.Context, body *hclsyntax.Body) hcl.Diagnostics {
	logger := ctxlog.FromContext(ctx)
	var diags hcl.Diagnostics
	for _, block := range body.Blocks {
		switch block.Type {
		case "step":
			step, stepDiags := l.decodeStep(block)
			diags = append(diags, stepDiags...)
			if !stepDiags.HasErrors() {
				l.model.Blocks = append(l.model.Blocks, Block{Source: step.Source, Steps: []StepDef{step}})
			}
		case "stage":
			stage, stageDiags := l.decodeStage(block)
			diags = append(diags, stageDiags...)
			if stageDiags.HasErrors() {
				continue
			}
			if len(stage.Steps) == 0 {
				logger.Warn("Stage has no steps.", "stage", stage.Stage, "source", stage.Source)
			}
			l.model.Blocks = append(l.model.Blocks, stage)
		}
	}
	return diags
}

func (l *loader) decodeStage(block *hclsyntax.Block) (Block, hcl.Diagnostics) {
	name, diags := singleLabel(block)
	if diags.HasErrors() {
		return Block{}, diags
	}
	out := Block{Stage: name, Source: block.DefRange().String()}
	for _, attr := range sortedAttributes(block.Body.Attributes) {
		diags = append(diags, errorDiag("Unexpected argument",
			fmt.Sprintf("Stage blocks only contain steps; %q is not allowed.", attr.Name), attr.SrcRange.Ptr()))
	}
	for _, inner := range block.Body.Blocks {
		if inner.Type != "step" {
			diags = append(diags, errorDiag("Unsupported block type",
				fmt.Sprintf("Blocks of type %q are not expected inside a stage.", inner.Type), inner.TypeRange.Ptr()))
			continue
		}
		step, stepDiags := l.decodeStep(inner)
		diags = append(diags, stepDiags...)
		if !stepDiags.HasErrors() {
			out.Steps = append(out.Steps, step)
		}
	}
	return out, diags
}

func (l *loader) decodeStep(block *hclsyntax.Block) (StepDef, hcl.Diagnostics) {
	label, diags := singleLabel(block)
	if diags.HasErrors() {
		return StepDef{}, diags
	}
	kind := StepKind(label)
	spec, ok := stepSpecs[kind]
	if !ok {
		return StepDef{}, hcl.Diagnostics{errorDiag("Unknown step kind",
			fmt.Sprintf("Step kind %q is not supported. Expected one of %v.", label, stepKinds()),
			block.LabelRanges[0].Ptr())}
	}
	for _, inner := range block.Body.Blocks {
		diags = append(diags, errorDiag("Unsupported block type",
			fmt.Sprintf("Blocks of type %q are not expected inside a step.", inner.Type), inner.TypeRange.Ptr()))
	}

	step := StepDef{Kind: kind, Args: make(map[string]string), Source: block.DefRange().String()}
	ctx := l.evalContext()
	for _, attr := range sortedAttributes(block.Body.Attributes) {
		if !spec.allows(attr.Name) {
			diags = append(diags, errorDiag("Unsupported argument",
				fmt.Sprintf("An argument named %q is not expected in a %q step.", attr.Name, label), attr.SrcRange.Ptr()))
			continue
		}
		if attr.Name == "contents" {
			var raw map[string]string
			if d := gohcl.DecodeExpression(attr.Expr, ctx, &raw); d.HasErrors() {
				diags = append(diags, d...)
				continue
			}
			contents, d := l.contents(raw, attr.Expr.Range())
			diags = append(diags, d...)
			step.Contents = contents
			continue
		}
		value, d := stringValue(attr, ctx)
		if d.HasErrors() {
			diags = append(diags, d...)
			continue
		}
		step.Args[attr.Name] = value
		diags = append(diags, l.checkReference(spec, attr, value)...)
	}
	for _, name := range spec.required {
		if _, ok := block.Body.Attributes[name]; !ok {
			diags = append(diags, errorDiag("Missing required argument",
				fmt.Sprintf("The argument %q is required in a %q step.", name, label), block.OpenBraceRange.Ptr()))
		}
	}
	if diags.HasErrors() {
		return StepDef{}, diags
	}

	if name := createdName(spec, step); name != "" {
		if _, dup := l.vessels[name]; dup {
			return StepDef{}, hcl.Diagnostics{errorDiag("Duplicate vessel",
				fmt.Sprintf("A vessel named %q was already declared.", name), block.DefRange().Ptr())}
		}
		l.vessels[name] = struct{}{}
	}
	return step, nil
}

// checkReference validates that a substance or vessel argument names
// something declared so far.
func (l *loader) checkReference(spec argSpec, attr *hclsyntax.Attribute, value string) hcl.Diagnostics {
	switch {
	case slices.Contains(spec.substances, attr.Name):
		if _, ok := l.substances[value]; !ok {
			return hcl.Diagnostics{errorDiag("Unknown substance",
				fmt.Sprintf("%q refers to substance %q, which is not declared.", attr.Name, value), attr.Expr.Range().Ptr())}
		}
	case slices.Contains(spec.endpoints, attr.Name):
		name, _ := SplitEndpoint(value)
		if _, ok := l.vessels[name]; !ok {
			return hcl.Diagnostics{errorDiag("Unknown vessel",
				fmt.Sprintf("%q refers to vessel %q, which is not declared before this step.", attr.Name, name), attr.Expr.Range().Ptr())}
		}
	case attr.Name == "what":
		if _, err := substance.ParseKind(value); err == nil {
			return nil
		}
		if _, ok := l.substances[value]; !ok {
			return hcl.Diagnostics{errorDiag("Unknown substance",
				fmt.Sprintf("\"what\" must be a substance or one of liquids, solids, enzymes; got %q.", value), attr.Expr.Range().Ptr())}
		}
	}
	return nil
}

// evalContext exposes the names declared so far as substance.<name> and
// vessel["name"].
func (l *loader) evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"substance": namesObject(l.substances),
			"vessel":    namesObject(l.vessels),
		},
	}
}

func namesObject(names map[string]struct{}) cty.Value {
	if len(names) == 0 {
		return cty.EmptyObjectVal
	}
	attrs := make(map[string]cty.Value, len(names))
	for name := range names {
		attrs[name] = cty.StringVal(name)
	}
	return cty.ObjectVal(attrs)
}
