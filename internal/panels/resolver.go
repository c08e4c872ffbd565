package panels

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"priovcf/internal/rules"
)

// Confidence level 3 ("green") indicates sufficient gene-disease
// association evidence for use in variant interpretation.
const minConfidence = 3

const (
	xlrPhrase = "X-LINKED: hemizygous mutation in males, biallelic"
	xldPhrase = "X-LINKED: hemizygous mutation in males, monoallelic"
)

// GeneMOI maps a gene or region symbol to its simplified MOI code.
type GeneMOI map[string]rules.MOI

// Lookup returns the MOI for a gene. ok is false when the gene is not
// on the resolved panel.
func (g GeneMOI) Lookup(gene string) (rules.MOI, bool) {
	moi, ok := g[gene]
	return moi, ok
}

// Normalizer simplifies PanelApp's free-text mode-of-inheritance
// phrases to discrete codes. The phrasing varies slightly between
// panels and genes, so matching is by prefix rather than a discrete
// mapping.
type Normalizer struct {
	// Fallback is returned for absent or unrecognized MOI text.
	// Defaults to rules.None, which has no rule entry and so falls
	// through to the NOT_ASSESSED path.
	Fallback rules.MOI
}

// Simplify maps raw MOI free-text to a simplified code.
func (n Normalizer) Simplify(raw string) rules.MOI {
	switch {
	case strings.HasPrefix(raw, "BIALLELIC"):
		return rules.AR
	case strings.HasPrefix(raw, xlrPhrase):
		return rules.XLR
	case strings.HasPrefix(raw, xldPhrase):
		return rules.XLD
	case strings.HasPrefix(raw, "MONOALLELIC"):
		return rules.AD
	case strings.HasPrefix(raw, "BOTH"):
		return rules.ADAR
	case strings.HasPrefix(raw, "MITOCHONDRIAL"):
		return rules.Mitochondrial
	case strings.HasPrefix(raw, "Other"):
		return rules.Other
	case strings.HasPrefix(raw, "Unknown"):
		return rules.Unknown
	}
	return n.fallback()
}

func (n Normalizer) fallback() rules.MOI {
	if n.Fallback == "" {
		return rules.None
	}
	return n.Fallback
}

// Resolver builds the gene-to-MOI map for one clinical indication.
type Resolver struct {
	norm   Normalizer
	logger *zap.Logger
}

// NewResolver creates a resolver with the default normalizer and a
// no-op logger.
func NewResolver() *Resolver {
	return &Resolver{logger: zap.NewNop()}
}

// SetNormalizer overrides the MOI normalizer.
func (r *Resolver) SetNormalizer(n Normalizer) {
	r.norm = n
}

// SetLogger sets the logger for reference-data-gap warnings.
func (r *Resolver) SetLogger(l *zap.Logger) {
	r.logger = l
}

// Resolve maps the genes and regions of the panel named by the
// indication string to simplified MOI codes. Reference-data gaps (the
// indication missing from the table, an empty panel ID, the panel
// missing from the dump) degrade to an empty map with a warning; the
// engine then flags every gene NOT_ASSESSED. Integrity failures in the
// inputs (multiple panels in one string) are returned as errors.
func (r *Resolver) Resolve(indication string, gp Genepanels, dump Dump) (GeneMOI, error) {
	panelName, err := CleanPanelString(indication)
	if err != nil {
		return nil, err
	}

	panelID, found := gp.PanelID(panelName)
	if !found {
		r.logger.Warn("panel string not found in genepanels file; "+
			"expected if only HGNC IDs were given, no MOI filtering will occur",
			zap.String("panel", panelName))
		return GeneMOI{}, nil
	}
	if panelID == "" {
		r.logger.Warn("panel has no PanelApp ID in the genepanels file; no MOI filtering will occur",
			zap.String("panel", panelName))
		return GeneMOI{}, nil
	}

	index, skipped, err := dump.ByID()
	if err != nil {
		return nil, err
	}
	for _, name := range skipped {
		r.logger.Warn("panel in dump has no external ID", zap.String("panel_name", name))
	}

	panel, ok := index[panelID]
	if !ok {
		r.logger.Warn("panel ID not found in PanelApp dump; no MOI filtering will occur",
			zap.String("panel_id", panelID))
		return GeneMOI{}, nil
	}

	return r.collectEntities(panel), nil
}

// collectEntities keeps established-evidence genes and regions and
// simplifies their MOI text.
func (r *Resolver) collectEntities(panel *Panel) GeneMOI {
	out := make(GeneMOI)

	for _, g := range panel.Genes {
		if !r.established(g.Symbol, g.Confidence) {
			continue
		}
		out[g.Symbol] = r.norm.Simplify(g.MOI)
	}
	for _, reg := range panel.Regions {
		if !r.established(reg.Name, reg.Confidence) {
			continue
		}
		out[reg.Name] = r.norm.Simplify(reg.MOI)
	}

	if len(out) == 0 {
		r.logger.Warn("no established-evidence entities on panel",
			zap.String("panel_id", panel.ExternalID),
			zap.String("panel_name", panel.Name))
	}
	return out
}

func (r *Resolver) established(entity, confidence string) bool {
	level, err := strconv.Atoi(confidence)
	if err != nil {
		r.logger.Warn("entity has unparseable confidence level",
			zap.String("entity", entity),
			zap.String("confidence", confidence))
		return false
	}
	return level >= minConfidence
}
