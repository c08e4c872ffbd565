// Package prioritise implements the variant-flagging engine: records
// are grouped by gene, each gene's MOI-specific allele-frequency rule
// is applied, zygosity counts are checked against the MOI's thresholds
// and every record receives a terminal flag.
package prioritise

import "fmt"

// Flag is the terminal categorical annotation assigned to each record.
type Flag string

const (
	// FlagPrioritised marks variants that passed the MOI's AF rule in
	// a gene whose zygosity counts satisfy the inheritance model.
	FlagPrioritised Flag = "PRIORITISED"
	// FlagNotPrioritised marks variants assessed against a rule and
	// rejected; the reason field says why.
	FlagNotPrioritised Flag = "NOT_PRIORITISED"
	// FlagNotAssessed marks variants in genes with no usable panel,
	// MOI or rule information.
	FlagNotAssessed Flag = "NOT_ASSESSED"
)

// Reason strings written to the Filter_reason INFO field.
const (
	ReasonGeneInfoUnavailable = "Gene_info_not_available"
	ReasonAFExceedsThreshold  = "gnomAD_AF_exceeds_MOI_threshold"
	ReasonZygosityCount       = "Zygosity_count_does_not_fit_MOI"
	ReasonFiltered            = "BCFtools_filtered"
	ReasonConsequence         = "Consequence_type_not_relevant"
)

// INFO fields produced by the +split-vep pre-processing step that the
// engine reads.
const (
	FieldGene        = "CSQ_SYMBOL"
	FieldConsequence = "CSQ_Consequence"
	FieldExomeAF     = "CSQ_gnomADe_AF"
	FieldGenomeAF    = "CSQ_gnomADg_AF"
	FieldClinVarSig  = "CSQ_ClinVar_CLNSIG"
)

// SpliceAI delta-score fields used by the optional rescue policy.
var spliceAIFields = []string{
	"CSQ_SpliceAI_pred_DS_AG",
	"CSQ_SpliceAI_pred_DS_AL",
	"CSQ_SpliceAI_pred_DS_DG",
	"CSQ_SpliceAI_pred_DS_DL",
}

// MissingFieldError reports a record lacking an annotation field the
// engine requires. This is a precondition failure for the whole run;
// the engine does not guess a default gene grouping.
type MissingFieldError struct {
	Field string
	Key   string // variant identity, chrom:pos:ref>alt
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("record %s is missing required annotation field %s", e.Key, e.Field)
}
