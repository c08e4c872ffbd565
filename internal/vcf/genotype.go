package vcf

import (
	"fmt"
	"strconv"
	"strings"
)

// Zygosity classifies a sample genotype for inheritance-model counting.
type Zygosity int

const (
	// ZygosityUnknown covers missing calls and any genotype shape that
	// is neither clearly heterozygous nor homozygous for one alt
	// allele (e.g. 1/2, hemizygous single-allele calls). These count
	// toward neither threshold.
	ZygosityUnknown Zygosity = iota
	ZygosityHomRef
	ZygosityHet
	ZygosityHomAlt
)

func (z Zygosity) String() string {
	switch z {
	case ZygosityHomRef:
		return "hom_ref"
	case ZygosityHet:
		return "het"
	case ZygosityHomAlt:
		return "hom_alt"
	default:
		return "unknown"
	}
}

// Genotype is one sample's called genotype: allele indices into
// REF+ALT, in call order.
type Genotype struct {
	Alleles []int
	Missing bool
}

// Zygosity classifies the genotype. Only diploid calls are classified;
// anything else is ZygosityUnknown.
func (g Genotype) Zygosity() Zygosity {
	if g.Missing || len(g.Alleles) != 2 {
		return ZygosityUnknown
	}
	a, b := g.Alleles[0], g.Alleles[1]
	switch {
	case a == 0 && b == 0:
		return ZygosityHomRef
	case a == b:
		return ZygosityHomAlt
	case a == 0 || b == 0:
		return ZygosityHet
	default:
		// Two different non-reference alleles.
		return ZygosityUnknown
	}
}

// Genotype extracts the GT field for the sample at the given index.
// An error is returned if the record has no sample data, the index is
// out of range, or FORMAT lacks a GT field.
func (r *Record) Genotype(sampleIndex int) (Genotype, error) {
	if r.Format == "" || sampleIndex < 0 || sampleIndex >= len(r.Samples) {
		return Genotype{}, fmt.Errorf("record %s has no sample %d", r.Key(), sampleIndex)
	}

	gtIndex := -1
	for i, f := range strings.Split(r.Format, ":") {
		if f == "GT" {
			gtIndex = i
			break
		}
	}
	if gtIndex < 0 {
		return Genotype{}, fmt.Errorf("record %s FORMAT has no GT field", r.Key())
	}

	fields := strings.Split(r.Samples[sampleIndex], ":")
	if gtIndex >= len(fields) {
		return Genotype{}, fmt.Errorf("record %s sample %d is missing the GT value", r.Key(), sampleIndex)
	}

	return parseGT(fields[gtIndex])
}

// parseGT parses a GT string such as "0/1", "1|1" or "./.".
func parseGT(gt string) (Genotype, error) {
	if gt == "" || gt == "." {
		return Genotype{Missing: true}, nil
	}

	parts := strings.FieldsFunc(gt, func(r rune) bool {
		return r == '/' || r == '|'
	})

	g := Genotype{Alleles: make([]int, 0, len(parts))}
	for _, p := range parts {
		if p == "." {
			g.Missing = true
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return Genotype{}, fmt.Errorf("invalid genotype %q: %w", gt, err)
		}
		g.Alleles = append(g.Alleles, n)
	}
	return g, nil
}
