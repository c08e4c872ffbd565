package prioritise

import (
	"strings"

	"priovcf/internal/rules"
	"priovcf/internal/vcf"
)

// Policy controls the gating rule applied during rule evaluation. The
// zero value is AF-ceiling-only gating against the default gnomAD
// exome and genome fields. The extended settings are stricter: records
// must additionally carry a relevant consequence type, and may be
// rescued regardless of AF/consequence by ClinVar pathogenicity or a
// high SpliceAI delta score.
type Policy struct {
	// RequirePass rejects records whose FILTER column is not PASS
	// (set when an upstream bcftools soft-filter pass has run).
	RequirePass bool

	// AFFields are the INFO fields holding population allele
	// frequencies; every available one must be strictly below the
	// MOI's ceiling. Empty means the gnomAD exome+genome defaults.
	AFFields []string

	// CsqTypes, when non-empty, is the allowlist of qualifying
	// consequence types.
	CsqTypes []string

	// ClinVarRescue admits variants whose ClinVar significance
	// mentions pathogenic, regardless of AF and consequence.
	ClinVarRescue bool

	// SpliceAIRescueThreshold, when positive, admits variants whose
	// maximum SpliceAI delta score meets it, regardless of AF and
	// consequence.
	SpliceAIRescueThreshold float64
}

// PolicyFromConfig derives the engine policy from the rule
// configuration. filterApplied reports whether the bcftools filter
// pass ran, which decides whether FILTER=PASS is required.
func PolicyFromConfig(cfg *rules.Config, filterApplied bool) Policy {
	return Policy{
		RequirePass:             filterApplied,
		CsqTypes:                cfg.CsqTypes,
		ClinVarRescue:           cfg.ClinVarRescue,
		SpliceAIRescueThreshold: cfg.SpliceAIRescueThreshold,
	}
}

func (p Policy) afFields() []string {
	if len(p.AFFields) > 0 {
		return p.AFFields
	}
	return []string{FieldExomeAF, FieldGenomeAF}
}

// belowAFCeiling reports whether every available allele frequency is
// strictly below the ceiling. A missing or null frequency is treated
// as 0.0, never as missing-data exclusion.
func (p Policy) belowAFCeiling(rec *vcf.Record, ceiling float64) bool {
	for _, field := range p.afFields() {
		af, ok := rec.InfoFloat(field)
		if !ok {
			af = 0.0
		}
		if af >= ceiling {
			return false
		}
	}
	return true
}

// relevantConsequence reports whether the record's consequence types
// intersect the allowlist. An empty allowlist disables the check.
func (p Policy) relevantConsequence(rec *vcf.Record) bool {
	if len(p.CsqTypes) == 0 {
		return true
	}
	csq, ok := rec.InfoString(FieldConsequence)
	if !ok {
		return false
	}
	// VEP joins co-occurring consequence terms with '&'.
	for _, term := range strings.Split(csq, "&") {
		for _, want := range p.CsqTypes {
			if term == want {
				return true
			}
		}
	}
	return false
}

// rescued reports whether a record that failed AF or consequence
// gating is admitted anyway by a pathogenicity or splice-effect
// override.
func (p Policy) rescued(rec *vcf.Record) bool {
	if p.ClinVarRescue {
		if sig, ok := rec.InfoString(FieldClinVarSig); ok {
			if strings.Contains(strings.ToLower(sig), "pathogenic") {
				return true
			}
		}
	}
	if p.SpliceAIRescueThreshold > 0 {
		for _, field := range spliceAIFields {
			if score, ok := rec.InfoFloat(field); ok && score >= p.SpliceAIRescueThreshold {
				return true
			}
		}
	}
	return false
}
