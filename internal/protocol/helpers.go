package protocol

import (
	"fmt"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

func errorDiag(summary, detail string, subject *hcl.Range) *hcl.Diagnostic {
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  summary,
		Detail:   detail,
		Subject:  subject,
	}
}

// singleLabel returns the only label of a block.
func singleLabel(block *hclsyntax.Block) (string, hcl.Diagnostics) {
	if len(block.Labels) != 1 {
		return "", hcl.Diagnostics{errorDiag("Invalid block labels",
			fmt.Sprintf("A %q block needs exactly one label.", block.Type), block.DefRange().Ptr())}
	}
	if block.Labels[0] == "" {
		return "", hcl.Diagnostics{errorDiag("Invalid block labels",
			fmt.Sprintf("The label of a %q block must not be empty.", block.Type), block.LabelRanges[0].Ptr())}
	}
	return block.Labels[0], nil
}

// sortedAttributes returns attributes in source order.
func sortedAttributes(attrs hclsyntax.Attributes) []*hclsyntax.Attribute {
	out := make([]*hclsyntax.Attribute, 0, len(attrs))
	for _, attr := range attrs {
		out = append(out, attr)
	}
	slices.SortFunc(out, func(a, b *hclsyntax.Attribute) int {
		return a.SrcRange.Start.Byte - b.SrcRange.Start.Byte
	})
	return out
}

// stringValue evaluates an attribute to a string. Numbers and bools are
// converted.
func stringValue(attr *hclsyntax.Attribute, ctx *hcl.EvalContext) (string, hcl.Diagnostics) {
	val, diags := attr.Expr.Value(ctx)
	if diags.HasErrors() {
		return "", diags
	}
	if val.IsNull() || !val.IsKnown() {
		return "", hcl.Diagnostics{errorDiag("Invalid value",
			fmt.Sprintf("The argument %q must not be null.", attr.Name), attr.Expr.Range().Ptr())}
	}
	str, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", hcl.Diagnostics{errorDiag("Invalid value",
			fmt.Sprintf("The argument %q must be a string: %s.", attr.Name, err), attr.Expr.Range().Ptr())}
	}
	return str.AsString(), nil
}
