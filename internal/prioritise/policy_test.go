package prioritise

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"priovcf/internal/rules"
	"priovcf/internal/vcf"
)

func TestPolicy_BelowAFCeiling(t *testing.T) {
	var p Policy

	t.Run("both sources below", func(t *testing.T) {
		rec := &vcf.Record{}
		rec.SetInfo(FieldExomeAF, "0.00001")
		rec.SetInfo(FieldGenomeAF, "0.00002")
		assert.True(t, p.belowAFCeiling(rec, 0.0001))
	})

	t.Run("one source at ceiling", func(t *testing.T) {
		rec := &vcf.Record{}
		rec.SetInfo(FieldExomeAF, "0.00001")
		rec.SetInfo(FieldGenomeAF, "0.0001")
		assert.False(t, p.belowAFCeiling(rec, 0.0001))
	})

	t.Run("null values treated as zero", func(t *testing.T) {
		rec := &vcf.Record{}
		rec.SetInfo(FieldExomeAF, ".")
		assert.True(t, p.belowAFCeiling(rec, 0.0001))
	})

	t.Run("custom AF fields", func(t *testing.T) {
		rec := &vcf.Record{}
		rec.SetInfo(FieldExomeAF, "0.5") // not consulted
		rec.SetInfo("CSQ_TWE_AF", "0.00001")
		custom := Policy{AFFields: []string{"CSQ_TWE_AF"}}
		assert.True(t, custom.belowAFCeiling(rec, 0.0001))
	})
}

func TestPolicy_RelevantConsequence(t *testing.T) {
	p := Policy{CsqTypes: []string{"missense_variant", "stop_gained"}}

	t.Run("single matching term", func(t *testing.T) {
		rec := &vcf.Record{}
		rec.SetInfo(FieldConsequence, "missense_variant")
		assert.True(t, p.relevantConsequence(rec))
	})

	t.Run("match within ampersand-joined terms", func(t *testing.T) {
		rec := &vcf.Record{}
		rec.SetInfo(FieldConsequence, "splice_region_variant&stop_gained")
		assert.True(t, p.relevantConsequence(rec))
	})

	t.Run("no match", func(t *testing.T) {
		rec := &vcf.Record{}
		rec.SetInfo(FieldConsequence, "intron_variant")
		assert.False(t, p.relevantConsequence(rec))
	})

	t.Run("missing consequence field", func(t *testing.T) {
		assert.False(t, p.relevantConsequence(&vcf.Record{}))
	})

	t.Run("empty allowlist disables check", func(t *testing.T) {
		var open Policy
		assert.True(t, open.relevantConsequence(&vcf.Record{}))
	})
}

func TestPolicy_ClinVarRescue(t *testing.T) {
	p := Policy{ClinVarRescue: true}

	rec := &vcf.Record{}
	rec.SetInfo(FieldClinVarSig, "Likely_pathogenic")
	assert.True(t, p.rescued(rec))

	benign := &vcf.Record{}
	benign.SetInfo(FieldClinVarSig, "Benign")
	assert.False(t, p.rescued(benign))

	assert.False(t, p.rescued(&vcf.Record{}))

	// Rescue is off unless enabled.
	var off Policy
	assert.False(t, off.rescued(rec))
}

func TestPolicy_SpliceAIRescue(t *testing.T) {
	p := Policy{SpliceAIRescueThreshold: 0.8}

	rec := &vcf.Record{}
	rec.SetInfo("CSQ_SpliceAI_pred_DS_DG", "0.91")
	assert.True(t, p.rescued(rec))

	low := &vcf.Record{}
	low.SetInfo("CSQ_SpliceAI_pred_DS_DG", "0.2")
	assert.False(t, p.rescued(low))
}

func TestPolicyFromConfig(t *testing.T) {
	cfg := &rules.Config{
		CsqTypes:                []string{"missense_variant"},
		ClinVarRescue:           true,
		SpliceAIRescueThreshold: 0.5,
	}

	p := PolicyFromConfig(cfg, true)
	assert.True(t, p.RequirePass)
	assert.Equal(t, cfg.CsqTypes, p.CsqTypes)
	assert.True(t, p.ClinVarRescue)
	assert.InDelta(t, 0.5, p.SpliceAIRescueThreshold, 1e-9)

	assert.False(t, PolicyFromConfig(cfg, false).RequirePass)
}
