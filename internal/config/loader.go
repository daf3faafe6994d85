package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
)

// LoadOptions controls how configs are loaded
type LoadOptions struct {
	// AllowUnknownSections turns unknown top-level blocks and attributes
	// into warnings instead of errors.
	AllowUnknownSections bool
}

// DefaultLoadOptions returns the options used by LoadFile and LoadHCL.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{AllowUnknownSections: true}
}

// LoadResult contains the loaded config and metadata about the load
type LoadResult struct {
	Config   *Config
	Warnings []string
}

var rootSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "defaults"},
		{Type: "network", LabelNames: []string{"name"}},
		{Type: "zone"},
	},
}

// LoadFile loads an HCL config file.
func LoadFile(path string) (*LoadResult, error) {
	return LoadFileWithOptions(path, DefaultLoadOptions())
}

// LoadFileWithOptions loads an HCL config file with explicit options.
func LoadFileWithOptions(path string, opts LoadOptions) (*LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return LoadHCLWithOptions(data, path, opts)
}

// LoadHCL loads config from HCL bytes.
func LoadHCL(data []byte, filename string) (*LoadResult, error) {
	return LoadHCLWithOptions(data, filename, DefaultLoadOptions())
}

// LoadHCLWithOptions loads HCL with explicit options.
func LoadHCLWithOptions(data []byte, filename string, opts LoadOptions) (*LoadResult, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("HCL parse error: %s", diags.Error())
	}

	result := &LoadResult{Config: &Config{}}

	var content *hcl.BodyContent
	if opts.AllowUnknownSections {
		var remain hcl.Body
		content, remain, diags = file.Body.PartialContent(rootSchema)
		result.Warnings = append(result.Warnings, unknownSections(remain)...)
	} else {
		content, diags = file.Body.Content(rootSchema)
	}
	if diags.HasErrors() {
		return nil, fmt.Errorf("HCL decode error: %s", diags.Error())
	}

	cfg := result.Config
	for _, block := range content.Blocks {
		switch block.Type {
		case "defaults":
			if cfg.Defaults != nil {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("%s: duplicate defaults block ignored", pos(block.DefRange)))
				continue
			}
			var d Defaults
			if diags := gohcl.DecodeBody(block.Body, nil, &d); diags.HasErrors() {
				return nil, fmt.Errorf("defaults: %s", diags.Error())
			}
			d.Pos = pos(block.DefRange)
			cfg.Defaults = &d

		case "network":
			var n Network
			if diags := gohcl.DecodeBody(block.Body, nil, &n); diags.HasErrors() {
				return nil, fmt.Errorf("network %q: %s", block.Labels[0], diags.Error())
			}
			n.Name = block.Labels[0]
			if _, dup := cfg.NetworkDevice(n.Name); dup {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("%s: duplicate network %q ignored", pos(block.DefRange), n.Name))
				continue
			}
			cfg.Networks = append(cfg.Networks, n)

		case "zone":
			section, warnings, err := decodeSection(block)
			if err != nil {
				return nil, err
			}
			result.Warnings = append(result.Warnings, warnings...)
			cfg.Zones = append(cfg.Zones, section)
		}
	}

	return result, nil
}

// decodeSection reads a block as a flat list of attributes. Attributes
// whose expressions cannot be evaluated statically are skipped with a
// warning.
func decodeSection(block *hcl.Block) (ZoneSection, []string, error) {
	section := ZoneSection{Range: block.DefRange}

	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		return section, nil, fmt.Errorf("%s: %s", pos(block.DefRange), diags.Error())
	}

	var warnings []string
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			warnings = append(warnings, fmt.Sprintf("%s: cannot evaluate option '%s': %s",
				pos(attr.Range), name, diags.Errs()[0]))
			continue
		}
		section.Options = append(section.Options, Option{Name: name, Value: val, Range: attr.Range})
	}

	sort.Slice(section.Options, func(i, j int) bool {
		return section.Options[i].Range.Start.Byte < section.Options[j].Range.Start.Byte
	})
	return section, warnings, nil
}

func unknownSections(remain hcl.Body) []string {
	body, ok := remain.(*hclsyntax.Body)
	if !ok {
		return nil
	}

	known := make(map[string]bool, len(rootSchema.Blocks))
	for _, b := range rootSchema.Blocks {
		known[b.Type] = true
	}

	var warnings []string
	for _, b := range body.Blocks {
		if known[b.Type] {
			continue
		}
		warnings = append(warnings, fmt.Sprintf("%s: unknown section '%s' ignored", pos(b.DefRange()), b.Type))
	}
	for name, a := range body.Attributes {
		warnings = append(warnings, fmt.Sprintf("%s: unknown attribute '%s' ignored", pos(a.SrcRange), name))
	}
	sort.Strings(warnings)
	return warnings
}

// Format returns the canonical formatting of an HCL document.
func Format(data []byte, filename string) ([]byte, error) {
	_, diags := hclwrite.ParseConfig(data, filename, hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid HCL: %s", diags.Error())
	}
	return hclwrite.Format(data), nil
}
