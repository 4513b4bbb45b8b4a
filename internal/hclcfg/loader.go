// Package hclcfg loads batch designs from HCL files. A design names its
// input compendia and annotation sets, its output target, and the parameter
// grid to sweep:
//
//	batch "worm" {
//	  output = "results/worm.jsonl"
//
//	  compendium "wormcomp" { path = "data/wormcomp.tsv" }
//	  annotation "go_bp"    { path = "data/go_bp.tsv" }
//
//	  grid {
//	    n_comp      = [5, 10, 15, 20]
//	    center_cols = [true, false]
//	  }
//	}
//
// Grid attribute names use underscores in HCL and map to the canonical dotted
// parameter names (n_comp → n.comp). Validation of names and value types is
// the grid package's job; this loader only translates syntax.
package hclcfg

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

var (
	// ErrNoBatch is returned when a design file defines no batch block.
	ErrNoBatch = errors.New("hclcfg: no batch block found")

	// ErrBadValue is returned for grid attribute values that are not lists
	// of scalars.
	ErrBadValue = errors.New("hclcfg: grid attribute must be a list of scalar values")
)

// Design is the decoded, syntax-level form of one batch block.
type Design struct {
	Name        string
	Output      string
	Compendia   []Input
	Annotations []Input
	Grid        map[string][]any
}

// Input is one named matrix file reference.
type Input struct {
	Name string
	Path string
}

type fileRoot struct {
	Batches []*hclBatch `hcl:"batch,block"`
	Remain  hcl.Body    `hcl:",remain"`
}

type hclBatch struct {
	Name        string      `hcl:"name,label"`
	Output      string      `hcl:"output"`
	Compendia   []*hclInput `hcl:"compendium,block"`
	Annotations []*hclInput `hcl:"annotation,block"`
	Grid        *hclGrid    `hcl:"grid,block"`
}

type hclInput struct {
	Name string `hcl:"name,label"`
	Path string `hcl:"path"`
}

type hclGrid struct {
	Remain hcl.Body `hcl:",remain"`
}

// LoadFile parses one design file and returns its batch designs in file order.
func LoadFile(path string) ([]*Design, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse design file %s: %w", path, diags)
	}
	return decode(file, path)
}

// LoadSource parses design source text; filename is used in diagnostics only.
func LoadSource(src []byte, filename string) ([]*Design, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse design %s: %w", filename, diags)
	}
	return decode(file, filename)
}

func decode(file *hcl.File, path string) ([]*Design, error) {
	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode design %s: %w", path, diags)
	}
	if len(root.Batches) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoBatch, path)
	}

	designs := make([]*Design, 0, len(root.Batches))
	for _, b := range root.Batches {
		d := &Design{
			Name:   b.Name,
			Output: b.Output,
			Grid:   map[string][]any{},
		}
		for _, in := range b.Compendia {
			d.Compendia = append(d.Compendia, Input{Name: in.Name, Path: in.Path})
		}
		for _, in := range b.Annotations {
			d.Annotations = append(d.Annotations, Input{Name: in.Name, Path: in.Path})
		}
		if b.Grid != nil {
			gridMap, err := decodeGrid(b.Grid.Remain)
			if err != nil {
				return nil, fmt.Errorf("batch %q: %w", b.Name, err)
			}
			d.Grid = gridMap
		}
		designs = append(designs, d)
	}
	return designs, nil
}

// decodeGrid reads every attribute of the grid block as an axis definition.
func decodeGrid(body hcl.Body) (map[string][]any, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to read grid attributes: %w", diags)
	}
	out := make(map[string][]any, len(attrs))
	for hclName, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("grid attribute %q: %w", hclName, diags)
		}
		values, err := ctyToValues(val)
		if err != nil {
			return nil, fmt.Errorf("grid attribute %q: %w", hclName, err)
		}
		out[canonicalName(hclName)] = values
	}
	return out, nil
}

// canonicalName maps an HCL attribute name to the dotted parameter name.
func canonicalName(hclName string) string {
	return strings.ReplaceAll(hclName, "_", ".")
}

// ctyToValues converts a cty list/tuple of scalars into Go values. Whole
// numbers become ints, everything else float64; the grid package coerces per
// parameter kind.
func ctyToValues(val cty.Value) ([]any, error) {
	if val.IsNull() || !val.CanIterateElements() {
		return nil, ErrBadValue
	}
	var out []any
	for it := val.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		v, err := ctyScalar(elem)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty list", ErrBadValue)
	}
	return out, nil
}

func ctyScalar(v cty.Value) (any, error) {
	if v.IsNull() {
		return nil, fmt.Errorf("%w: null element", ErrBadValue)
	}
	switch v.Type() {
	case cty.Bool:
		return v.True(), nil
	case cty.String:
		return v.AsString(), nil
	case cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			n, _ := bf.Int64()
			return int(n), nil
		}
		f, _ := bf.Float64()
		return f, nil
	default:
		return nil, fmt.Errorf("%w: element type %s", ErrBadValue, v.Type().FriendlyName())
	}
}
