package prioritise

import (
	"priovcf/internal/vcf"
)

// Group is the ephemeral collection of all records sharing one
// gene/region symbol within one processing pass.
type Group struct {
	Gene    string
	Records []*vcf.Record
}

// GroupByGene partitions the ordered record stream into per-gene
// groups. Record order within a group follows input order; group
// order follows first-seen-gene order. A record without a gene symbol
// is a fatal precondition failure.
func GroupByGene(records []*vcf.Record) ([]*Group, error) {
	var groups []*Group
	index := make(map[string]*Group)

	for _, rec := range records {
		gene, ok := rec.InfoString(FieldGene)
		if !ok || gene == "" || gene == "." {
			return nil, &MissingFieldError{Field: FieldGene, Key: rec.Key()}
		}
		g, seen := index[gene]
		if !seen {
			g = &Group{Gene: gene}
			index[gene] = g
			groups = append(groups, g)
		}
		g.Records = append(g.Records, rec)
	}

	return groups, nil
}

// Records flattens groups back to a single slice in group order.
func Records(groups []*Group) []*vcf.Record {
	var out []*vcf.Record
	for _, g := range groups {
		out = append(out, g.Records...)
	}
	return out
}
