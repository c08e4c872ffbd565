package vcf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReasonField is the INFO field explaining why a variant was not
// prioritised.
const ReasonField = "Filter_reason"

// Writer serializes flagged records back to a VCF, inserting header
// declarations for the flag and reason INFO fields before #CHROM.
// Every written line is remembered so Verify can confirm the file on
// disk contains exactly what was handed to the writer.
type Writer struct {
	w           *bufio.Writer
	headerLines []string
	flagKey     string

	wroteHeader  bool
	writtenLines []string
}

// NewWriter creates a writer emitting the given original header lines
// with flag annotations written under flagKey.
func NewWriter(w io.Writer, headerLines []string, flagKey string) *Writer {
	return &Writer{
		w:           bufio.NewWriter(w),
		headerLines: headerLines,
		flagKey:     flagKey,
	}
}

// flagHeaderLines returns the INFO declarations for the flag and
// reason fields.
func (vw *Writer) flagHeaderLines() []string {
	return []string{
		fmt.Sprintf("##INFO=<ID=%s,Number=.,Type=String,Description=\"Flag for optimised filtering"+
			" based on AF thresholds for a gene's MOI and zygosity counts\">", vw.flagKey),
		fmt.Sprintf("##INFO=<ID=%s,Number=.,Type=String,Description=\"Flag explaining why variant"+
			" has not been prioritised\">", ReasonField),
	}
}

// WriteHeader writes the original header with the flag INFO lines
// inserted before the #CHROM line.
func (vw *Writer) WriteHeader() error {
	for _, line := range vw.headerLines {
		if strings.HasPrefix(line, "#CHROM") {
			for _, extra := range vw.flagHeaderLines() {
				if err := vw.writeLine(extra); err != nil {
					return err
				}
			}
		}
		if err := vw.writeLine(line); err != nil {
			return err
		}
	}
	vw.wroteHeader = true
	return nil
}

// WriteRecord writes one flagged record.
func (vw *Writer) WriteRecord(rec *Record) error {
	if !vw.wroteHeader {
		return fmt.Errorf("WriteRecord called before WriteHeader")
	}
	return vw.writeLine(rec.Line(vw.flagKey, ReasonField))
}

func (vw *Writer) writeLine(line string) error {
	if _, err := vw.w.WriteString(line); err != nil {
		return err
	}
	if err := vw.w.WriteByte('\n'); err != nil {
		return err
	}
	vw.writtenLines = append(vw.writtenLines, line)
	return nil
}

// Flush flushes the underlying writer.
func (vw *Writer) Flush() error {
	return vw.w.Flush()
}

// RecordCount returns the number of data lines written so far.
func (vw *Writer) RecordCount() int {
	n := 0
	for _, line := range vw.writtenLines {
		if !strings.HasPrefix(line, "#") {
			n++
		}
	}
	return n
}

// Verify re-reads the written file and checks it contains exactly the
// lines this writer produced: no additions, no omissions. Any
// difference is a fatal sink failure for the run.
func (vw *Writer) Verify(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("re-open written vcf: %w", err)
	}
	defer f.Close()

	want := make(map[string]int, len(vw.writtenLines))
	for _, line := range vw.writtenLines {
		want[line]++
	}

	var total int
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		total++
		if want[line] == 0 {
			return fmt.Errorf("written vcf %s contains unexpected line: %.120s", path, line)
		}
		want[line]--
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("re-read written vcf: %w", err)
	}

	if total != len(vw.writtenLines) {
		return fmt.Errorf("written vcf %s has %d lines, expected %d", path, total, len(vw.writtenLines))
	}
	return nil
}

// WriteFile writes all records to path through a Writer and verifies
// the result on disk.
func WriteFile(path string, headerLines []string, flagKey string, records []*Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output vcf: %w", err)
	}

	vw := NewWriter(f, headerLines, flagKey)
	if err := vw.WriteHeader(); err != nil {
		f.Close()
		return fmt.Errorf("write vcf header: %w", err)
	}
	for _, rec := range records {
		if err := vw.WriteRecord(rec); err != nil {
			f.Close()
			return fmt.Errorf("write vcf record: %w", err)
		}
	}
	if err := vw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush vcf: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close vcf: %w", err)
	}

	return vw.Verify(path)
}
