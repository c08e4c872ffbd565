package vcf

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecords(t *testing.T) ([]string, []*Record) {
	t.Helper()
	p, err := NewParserFromReader(strings.NewReader(testVCF))
	require.NoError(t, err)
	records, err := p.ReadAll()
	require.NoError(t, err)
	return p.Header(), records
}

func TestWriter_InsertsFlagHeaderBeforeCHROM(t *testing.T) {
	header, records := testRecords(t)

	var buf bytes.Buffer
	w := NewWriter(&buf, header, "MOI_flag")
	require.NoError(t, w.WriteHeader())
	for _, rec := range records {
		require.NoError(t, w.WriteRecord(rec))
	}
	require.NoError(t, w.Flush())

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")

	var flagIdx, chromIdx int
	for i, line := range lines {
		if strings.HasPrefix(line, "##INFO=<ID=MOI_flag,") {
			flagIdx = i
		}
		if strings.HasPrefix(line, "#CHROM") {
			chromIdx = i
		}
	}
	require.NotZero(t, flagIdx, "flag INFO header line not written")
	require.NotZero(t, chromIdx)
	assert.Less(t, flagIdx, chromIdx)
	assert.Contains(t, buf.String(), "##INFO=<ID="+ReasonField+",")
	assert.Equal(t, 3, w.RecordCount())
}

func TestWriter_WriteRecordBeforeHeader(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, nil, "MOI_flag")
	err := w.WriteRecord(&Record{Chrom: "1", Pos: 1, Ref: "A", Alt: "G", Qual: ".", Filter: "."})
	assert.ErrorContains(t, err, "before WriteHeader")
}

func TestWriteFile_RoundTrip(t *testing.T) {
	header, records := testRecords(t)
	records[0].Flag = "PRIORITISED"
	records[1].Flag = "PRIORITISED"
	records[2].Flag = "NOT_ASSESSED"
	records[2].Reason = "Gene_info_not_available"

	path := filepath.Join(t.TempDir(), "flagged.vcf")
	require.NoError(t, WriteFile(path, header, "MOI_flag", records))

	// Re-read the written file and compare record identity.
	p, err := NewParser(path)
	require.NoError(t, err)
	defer p.Close()

	got, err := p.ReadAll()
	require.NoError(t, err)
	require.Len(t, got, len(records))

	for i, rec := range got {
		assert.Equal(t, records[i].Key(), rec.Key())
		flag, ok := rec.InfoString("MOI_flag")
		require.True(t, ok, "record %d has no flag", i)
		assert.Equal(t, records[i].Flag, flag)
	}

	reason, ok := got[2].InfoString(ReasonField)
	require.True(t, ok)
	assert.Equal(t, "Gene_info_not_available", reason)
}

func TestWriter_VerifyDetectsTampering(t *testing.T) {
	header, records := testRecords(t)

	path := filepath.Join(t.TempDir(), "flagged.vcf")
	f, err := os.Create(path)
	require.NoError(t, err)

	w := NewWriter(f, header, "MOI_flag")
	require.NoError(t, w.WriteHeader())
	for _, rec := range records {
		require.NoError(t, w.WriteRecord(rec))
	}
	require.NoError(t, w.Flush())
	require.NoError(t, f.Close())

	require.NoError(t, w.Verify(path))

	// Appending a record the writer never produced must fail verification.
	f, err = os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("1\t999\t.\tA\tG\t.\tPASS\t.\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	assert.Error(t, w.Verify(path))
}

func TestWriter_VerifyDetectsMissingRecord(t *testing.T) {
	header, records := testRecords(t)

	path := filepath.Join(t.TempDir(), "flagged.vcf")
	f, err := os.Create(path)
	require.NoError(t, err)

	w := NewWriter(f, header, "MOI_flag")
	require.NoError(t, w.WriteHeader())
	for _, rec := range records {
		require.NoError(t, w.WriteRecord(rec))
	}
	require.NoError(t, w.Flush())
	require.NoError(t, f.Close())

	// Truncate the last record from the file on disk.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	truncated := strings.Join(lines[:len(lines)-1], "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(truncated), 0644))

	assert.Error(t, w.Verify(path))
}
