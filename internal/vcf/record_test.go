package vcf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseLineForTest(t *testing.T, line string) *Record {
	t.Helper()
	vcfText := "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tS1\n" + line + "\n"
	p, err := NewParserFromReader(strings.NewReader(vcfText))
	require.NoError(t, err)
	rec, err := p.Next()
	require.NoError(t, err)
	require.NotNil(t, rec)
	return rec
}

func TestRecord_LineRoundTrip(t *testing.T) {
	line := "11\t2133411\t.\tC\tT\t512.3\tPASS\tDP=40;CSQ_SYMBOL=KCNQ1;Flagged\tGT:DP\t0/1:40"
	rec := parseLineForTest(t, line)

	// Without a flag assigned, the record renders byte-identical.
	assert.Equal(t, line, rec.Line("MOI_flag", ReasonField))
}

func TestRecord_LineWithFlagAndReason(t *testing.T) {
	line := "11\t2133411\t.\tC\tT\t.\tPASS\tDP=40\tGT\t0/1"
	rec := parseLineForTest(t, line)

	rec.Flag = "NOT_PRIORITISED"
	rec.Reason = "Zygosity_count_does_not_fit_MOI"

	got := rec.Line("MOI_flag", ReasonField)
	assert.Equal(t,
		"11\t2133411\t.\tC\tT\t.\tPASS\tDP=40;MOI_flag=NOT_PRIORITISED;Filter_reason=Zygosity_count_does_not_fit_MOI\tGT\t0/1",
		got)
}

func TestRecord_LineEmptyInfo(t *testing.T) {
	line := "1\t100\t.\tA\tG\t.\t.\t.\tGT\t0/0"
	rec := parseLineForTest(t, line)

	assert.Equal(t, line, rec.Line("MOI_flag", ReasonField))

	rec.Flag = "NOT_ASSESSED"
	rec.Reason = "Gene_info_not_available"
	assert.Equal(t,
		"1\t100\t.\tA\tG\t.\t.\tMOI_flag=NOT_ASSESSED;Filter_reason=Gene_info_not_available\tGT\t0/0",
		rec.Line("MOI_flag", ReasonField))
}

func TestRecord_SetInfoPreservesOrder(t *testing.T) {
	rec := &Record{}
	rec.SetInfo("B", "2")
	rec.SetInfo("A", "1")
	rec.SetInfo("B", "3") // overwrite keeps first position

	assert.Equal(t, []string{"B", "A"}, rec.InfoKeys())
	v, ok := rec.InfoString("B")
	require.True(t, ok)
	assert.Equal(t, "3", v)
}

func TestRecord_Key(t *testing.T) {
	rec := &Record{Chrom: "X", Pos: 303500, Ref: "T", Alt: "C"}
	assert.Equal(t, "X:303500:T>C", rec.Key())
}

func TestRecord_InfoFloatNullValues(t *testing.T) {
	rec := &Record{}
	rec.SetInfo("CSQ_gnomADe_AF", ".")
	rec.SetInfo("CSQ_gnomADg_AF", "")
	rec.SetInfo("CSQ_TWE_AF", "not-a-number")

	for _, key := range []string{"CSQ_gnomADe_AF", "CSQ_gnomADg_AF", "CSQ_TWE_AF", "CSQ_absent"} {
		_, ok := rec.InfoFloat(key)
		assert.False(t, ok, key)
	}
}
