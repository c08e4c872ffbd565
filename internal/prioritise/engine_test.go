package prioritise

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"priovcf/internal/rules"
	"priovcf/internal/vcf"
)

type moiMap map[string]rules.MOI

func (m moiMap) Lookup(gene string) (rules.MOI, bool) {
	moi, ok := m[gene]
	return moi, ok
}

var testRules = rules.Set{
	rules.AD: {AF: 0.0001, HetsNeeded: 1, HomsNeeded: 1},
	rules.AR: {AF: 0.005, HetsNeeded: 2, HomsNeeded: 1},
}

func runEngine(t *testing.T, moi moiMap, records []*vcf.Record) []*Group {
	t.Helper()
	groups, err := GroupByGene(records)
	require.NoError(t, err)
	require.NoError(t, New(moi, testRules).Run(groups, 0))
	return groups
}

func assertFlagged(t *testing.T, rec *vcf.Record, flag Flag, reason string) {
	t.Helper()
	assert.Equal(t, string(flag), rec.Flag, "flag for %s", rec.Key())
	assert.Equal(t, reason, rec.Reason, "reason for %s", rec.Key())
}

func TestEngine_UnmappedGeneNotAssessed(t *testing.T) {
	records := []*vcf.Record{
		testRecord("UNKNOWN1", 100, "0.0001", "0/1"),
		testRecord("UNKNOWN1", 200, "0.9", "1/1"),
	}

	runEngine(t, moiMap{}, records)

	// Every record in an unmapped gene gets NOT_ASSESSED regardless of
	// its own AF or genotype.
	for _, rec := range records {
		assertFlagged(t, rec, FlagNotAssessed, ReasonGeneInfoUnavailable)
	}
}

func TestEngine_MOIWithoutRuleNotAssessed(t *testing.T) {
	rec := testRecord("MT-GENE", 100, "0.0", "0/1")
	runEngine(t, moiMap{"MT-GENE": rules.Mitochondrial}, []*vcf.Record{rec})
	assertFlagged(t, rec, FlagNotAssessed, ReasonGeneInfoUnavailable)
}

func TestEngine_AFAtCeilingNotPrioritised(t *testing.T) {
	// AF equal to the ceiling fails the strict inequality. The high-AF
	// record must not contribute its het to the gene's counts either.
	pass := testRecord("KCNQ1", 100, "0.00009", "0/1")
	atCeiling := testRecord("KCNQ1", 200, "0.0001", "0/1")

	runEngine(t, moiMap{"KCNQ1": rules.AD}, []*vcf.Record{pass, atCeiling})

	assertFlagged(t, pass, FlagPrioritised, "")
	assertFlagged(t, atCeiling, FlagNotPrioritised, ReasonAFExceedsThreshold)
}

func TestEngine_MissingAFTreatedAsZero(t *testing.T) {
	rec := testRecord("KCNQ1", 100, "", "0/1")
	runEngine(t, moiMap{"KCNQ1": rules.AD}, []*vcf.Record{rec})
	assertFlagged(t, rec, FlagPrioritised, "")
}

func TestEngine_BothAFSourcesGate(t *testing.T) {
	// Exome AF passes but genome AF breaches the ceiling.
	rec := testRecord("KCNQ1", 100, "0.00001", "0/1")
	rec.SetInfo(FieldGenomeAF, "0.5")

	runEngine(t, moiMap{"KCNQ1": rules.AD}, []*vcf.Record{rec})
	assertFlagged(t, rec, FlagNotPrioritised, ReasonAFExceedsThreshold)
}

func TestEngine_RecessiveNeedsTwoHets(t *testing.T) {
	moi := moiMap{"CDKN1C": rules.AR}

	t.Run("one het not enough", func(t *testing.T) {
		rec := testRecord("CDKN1C", 100, "0.001", "0/1")
		runEngine(t, moi, []*vcf.Record{rec})
		assertFlagged(t, rec, FlagNotPrioritised, ReasonZygosityCount)
	})

	t.Run("two hets prioritised", func(t *testing.T) {
		a := testRecord("CDKN1C", 100, "0.001", "0/1")
		b := testRecord("CDKN1C", 200, "0.001", "0/1")
		runEngine(t, moi, []*vcf.Record{a, b})
		assertFlagged(t, a, FlagPrioritised, "")
		assertFlagged(t, b, FlagPrioritised, "")
	})

	t.Run("single hom is enough", func(t *testing.T) {
		rec := testRecord("CDKN1C", 100, "0.001", "1/1")
		runEngine(t, moi, []*vcf.Record{rec})
		assertFlagged(t, rec, FlagPrioritised, "")
	})
}

func TestEngine_SurvivorsShareGroupFate(t *testing.T) {
	// A surviving het in a gene whose counts fail the AR thresholds is
	// NOT_PRIORITISED; the AF-rejected record keeps its own reason.
	survivor := testRecord("CDKN1C", 100, "0.001", "0/1")
	rejected := testRecord("CDKN1C", 200, "0.9", "1/1")

	runEngine(t, moiMap{"CDKN1C": rules.AR}, []*vcf.Record{survivor, rejected})

	assertFlagged(t, survivor, FlagNotPrioritised, ReasonZygosityCount)
	assertFlagged(t, rejected, FlagNotPrioritised, ReasonAFExceedsThreshold)
}

func TestEngine_AmbiguousGenotypeExcludedFromCounts(t *testing.T) {
	// 1/2 is neither het-for-one-alt nor hom; the record survives AF
	// gating but contributes nothing, so the AR gene stays below its
	// thresholds.
	multi := testRecord("CDKN1C", 100, "0.001", "1/2")
	het := testRecord("CDKN1C", 200, "0.001", "0/1")

	runEngine(t, moiMap{"CDKN1C": rules.AR}, []*vcf.Record{multi, het})

	assertFlagged(t, multi, FlagNotPrioritised, ReasonZygosityCount)
	assertFlagged(t, het, FlagNotPrioritised, ReasonZygosityCount)
}

func TestEngine_UnreadableGenotypeExcludedFromCounts(t *testing.T) {
	broken := testRecord("KCNQ1", 100, "0.00001", "0/1")
	broken.Format = "DP" // no GT field

	runEngine(t, moiMap{"KCNQ1": rules.AD}, []*vcf.Record{broken})
	assertFlagged(t, broken, FlagNotPrioritised, ReasonZygosityCount)
}

func TestEngine_EmptyGroupNeverPrioritised(t *testing.T) {
	// A zero het threshold is trivially satisfied, but a gene whose
	// records all failed gating must still not be prioritised.
	set := rules.Set{rules.AD: {AF: 0.0001, HetsNeeded: 0, HomsNeeded: 0}}
	rec := testRecord("KCNQ1", 100, "0.5", "0/1")

	groups, err := GroupByGene([]*vcf.Record{rec})
	require.NoError(t, err)
	require.NoError(t, New(moiMap{"KCNQ1": rules.AD}, set).Run(groups, 0))

	assertFlagged(t, rec, FlagNotPrioritised, ReasonAFExceedsThreshold)
}

func TestEngine_RequirePassRejectsFilteredRecords(t *testing.T) {
	excluded := testRecord("KCNQ1", 100, "0.00001", "0/1")
	excluded.Filter = "EXCLUDE"
	pass := testRecord("KCNQ1", 200, "0.00001", "0/1")

	groups, err := GroupByGene([]*vcf.Record{excluded, pass})
	require.NoError(t, err)

	eng := New(moiMap{"KCNQ1": rules.AD}, testRules)
	eng.SetPolicy(Policy{RequirePass: true})
	require.NoError(t, eng.Run(groups, 0))

	assertFlagged(t, excluded, FlagNotPrioritised, ReasonFiltered)
	assertFlagged(t, pass, FlagPrioritised, "")
}

func TestEngine_Idempotent(t *testing.T) {
	records := []*vcf.Record{
		testRecord("KCNQ1", 100, "0.00001", "0/1"),
		testRecord("KCNQ1", 200, "0.5", "0/1"),
		testRecord("UNKNOWN1", 300, "0.0", "0/1"),
	}
	moi := moiMap{"KCNQ1": rules.AD}

	groups, err := GroupByGene(records)
	require.NoError(t, err)
	eng := New(moi, testRules)
	require.NoError(t, eng.Run(groups, 0))

	first := make([]string, len(records))
	for i, rec := range records {
		first[i] = rec.Flag + "/" + rec.Reason
	}

	require.NoError(t, eng.Run(groups, 0))
	for i, rec := range records {
		assert.Equal(t, first[i], rec.Flag+"/"+rec.Reason)
	}
}
