// Package rules defines the simplified mode-of-inheritance codes and
// the per-MOI filtering thresholds loaded from the run configuration.
package rules

// MOI is a simplified mode-of-inheritance code as produced by the
// panel resolver.
type MOI string

const (
	// AR - autosomal recessive (PanelApp "BIALLELIC, ..." phrasing).
	AR MOI = "AR"
	// AD - autosomal dominant (PanelApp "MONOALLELIC, ..." phrasing).
	AD MOI = "AD"
	// ADAR - both monoallelic and biallelic ("BOTH ..." phrasing).
	ADAR MOI = "AD/AR"
	// XLR - X-linked, biallelic in females, hemizygous in males.
	XLR MOI = "XLR"
	// XLD - X-linked, monoallelic sufficient.
	XLD MOI = "XLD"

	Mitochondrial MOI = "MITOCHONDRIAL"
	Other         MOI = "OTHER"
	Unknown       MOI = "UNKNOWN"

	// None is the neutral sentinel for genes whose MOI text was absent
	// or unrecognized. It has no rule entry, so its genes fall through
	// to the NOT_ASSESSED path.
	None MOI = "NONE"
)
