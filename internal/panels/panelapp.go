package panels

import (
	"encoding/json"
	"fmt"
	"os"
)

// Dump is a PanelApp export: a collection of panel definitions.
type Dump []Panel

// Panel is one panel definition from the dump.
type Panel struct {
	Source     string        `json:"panel_source"`
	Name       string        `json:"panel_name"`
	ExternalID string        `json:"external_id"`
	Version    string        `json:"panel_version"`
	Genes      []GeneEntry   `json:"genes"`
	Regions    []RegionEntry `json:"regions"`
}

// GeneEntry is a gene on a panel with its evidence level and raw
// mode-of-inheritance text.
type GeneEntry struct {
	HGNCID     string `json:"hgnc_id"`
	Symbol     string `json:"gene_symbol"`
	Confidence string `json:"confidence_level"`
	MOI        string `json:"mode_of_inheritance"`
}

// RegionEntry is a genomic region on a panel.
type RegionEntry struct {
	Name       string `json:"name"`
	Confidence string `json:"confidence_level"`
	MOI        string `json:"mode_of_inheritance"`
}

// LoadDump reads a PanelApp JSON dump from a file.
func LoadDump(path string) (Dump, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open PanelApp dump: %w", err)
	}
	var dump Dump
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, fmt.Errorf("parse PanelApp dump %s: %w", path, err)
	}
	return dump, nil
}

// ByID indexes the dump by external panel ID. Panels without an
// external ID are skipped; an entirely empty index is a reference-data
// failure.
func (d Dump) ByID() (map[string]*Panel, []string, error) {
	index := make(map[string]*Panel, len(d))
	var skipped []string
	for i := range d {
		p := &d[i]
		if p.ExternalID == "" {
			skipped = append(skipped, p.Name)
			continue
		}
		index[p.ExternalID] = p
	}
	if len(index) == 0 {
		return nil, skipped, fmt.Errorf("no panels with IDs found in PanelApp dump")
	}
	return index, skipped, nil
}
