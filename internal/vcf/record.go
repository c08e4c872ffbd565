// Package vcf provides streaming VCF parsing and writing for the
// prioritisation pipeline.
package vcf

import (
	"strconv"
	"strings"
)

// Record represents a single data line of a VCF file after the
// transcript-consequence annotations have been split to one row per
// consequence. The raw column values are retained so a record can be
// written back out byte-identical, with only the prioritisation flag
// and reason appended to INFO.
type Record struct {
	Chrom  string
	Pos    int64
	ID     string
	Ref    string
	Alt    string
	Qual   string // raw QUAL text, "." preserved
	Filter string

	info     map[string]string
	infoKeys []string // INFO key order as read, for faithful output

	Format  string   // FORMAT column, empty if absent
	Samples []string // raw per-sample columns

	// Flag and Reason are assigned once by the flagging engine and
	// serialized as extra INFO fields by the Writer.
	Flag   string
	Reason string
}

// InfoString returns the raw INFO value for key. The second return is
// false if the key is absent. Flag-type INFO keys return "" and true.
func (r *Record) InfoString(key string) (string, bool) {
	v, ok := r.info[key]
	return v, ok
}

// InfoFloat returns the INFO value for key parsed as a float. Missing
// keys and null placeholders ("." or empty) report ok=false; callers
// decide how absence is treated.
func (r *Record) InfoFloat(key string) (float64, bool) {
	v, ok := r.info[key]
	if !ok || v == "" || v == "." {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// SetInfo sets an INFO key, preserving first-insertion order.
func (r *Record) SetInfo(key, value string) {
	if r.info == nil {
		r.info = make(map[string]string)
	}
	if _, ok := r.info[key]; !ok {
		r.infoKeys = append(r.infoKeys, key)
	}
	r.info[key] = value
}

// InfoKeys returns the INFO keys in input order.
func (r *Record) InfoKeys() []string {
	return r.infoKeys
}

// formatInfo rebuilds the INFO column, appending the flag and reason
// fields when they have been assigned.
func (r *Record) formatInfo(flagKey, reasonKey string) string {
	var b strings.Builder
	for i, k := range r.infoKeys {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(k)
		if v := r.info[k]; v != "" {
			b.WriteByte('=')
			b.WriteString(v)
		}
	}
	if r.Flag != "" {
		if b.Len() > 0 {
			b.WriteByte(';')
		}
		b.WriteString(flagKey)
		b.WriteByte('=')
		b.WriteString(r.Flag)
	}
	if r.Reason != "" {
		if b.Len() > 0 {
			b.WriteByte(';')
		}
		b.WriteString(reasonKey)
		b.WriteByte('=')
		b.WriteString(r.Reason)
	}
	if b.Len() == 0 {
		return "."
	}
	return b.String()
}

// Line renders the record as a VCF data line. flagKey names the INFO
// field the assigned flag is written under.
func (r *Record) Line(flagKey, reasonKey string) string {
	var b strings.Builder
	b.Grow(256)
	b.WriteString(r.Chrom)
	b.WriteByte('\t')
	b.WriteString(strconv.FormatInt(r.Pos, 10))
	b.WriteByte('\t')
	b.WriteString(r.ID)
	b.WriteByte('\t')
	b.WriteString(r.Ref)
	b.WriteByte('\t')
	b.WriteString(r.Alt)
	b.WriteByte('\t')
	b.WriteString(r.Qual)
	b.WriteByte('\t')
	b.WriteString(r.Filter)
	b.WriteByte('\t')
	b.WriteString(r.formatInfo(flagKey, reasonKey))
	if r.Format != "" {
		b.WriteByte('\t')
		b.WriteString(r.Format)
		for _, s := range r.Samples {
			b.WriteByte('\t')
			b.WriteString(s)
		}
	}
	return b.String()
}

// Key identifies the variant by position and alleles.
func (r *Record) Key() string {
	return r.Chrom + ":" + strconv.FormatInt(r.Pos, 10) + ":" + r.Ref + ">" + r.Alt
}

// Passed reports whether the record's FILTER column is PASS. Records
// soft-filtered by an upstream bcftools pass carry the filter name
// instead.
func (r *Record) Passed() bool {
	return r.Filter == "PASS"
}
