package modelfile

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// decodeHCL evaluates the top-level attributes of an HCL file without any
// variables or functions in scope.
func decodeHCL(src []byte, name string) (map[string]any, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, name)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", name, diags)
	}

	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to read attributes of %s: %w", name, diags)
	}

	names := make([]string, 0, len(attrs))
	for attrName := range attrs {
		names = append(names, attrName)
	}
	sort.Strings(names)

	model := make(map[string]any, len(attrs))
	for _, attrName := range names {
		value, diags := attrs[attrName].Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("evaluating %s: %w", attrName, diags)
		}
		native, err := ctyToNative(value)
		if err != nil {
			return nil, fmt.Errorf("in attribute '%s': %w", attrName, err)
		}
		model[attrName] = native
	}
	return model, nil
}

// ctyToNative recursively converts a cty.Value to its most natural Go
// counterpart. Whole numbers become int64, other numbers float64.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()

	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, accuracy := bf.Int64(); accuracy == big.Exact {
				return i, nil
			}
		}
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, fmt.Errorf("could not convert cty.Number to float64: %w", err)
		}
		return f, nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		slice := make([]any, 0, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			_, val := it.Element()
			nativeVal, err := ctyToNative(val)
			if err != nil {
				return nil, err
			}
			slice = append(slice, nativeVal)
		}
		return slice, nil

	case ty.IsObjectType() || ty.IsMapType():
		goMap := make(map[string]any, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			key, val := it.Element()
			keyStr := key.AsString()
			nativeVal, err := ctyToNative(val)
			if err != nil {
				return nil, fmt.Errorf("in attribute '%s': %w", keyStr, err)
			}
			goMap[keyStr] = nativeVal
		}
		return goMap, nil

	default:
		return nil, fmt.Errorf("unsupported cty type: %s", ty.FriendlyName())
	}
}
