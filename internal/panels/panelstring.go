// Package panels resolves a clinical-indication string to a map of
// gene/region symbols and their simplified modes of inheritance, using
// the genepanels lookup table and a PanelApp dump.
package panels

import (
	"fmt"
	"regexp"
	"strings"
)

// hgncToken matches a standalone gene-identifier token embedded in an
// indication string, e.g. "_HGNC:16627;".
var hgncToken = regexp.MustCompile(`_HGNC:[\d]+(;)?`)

// MultiplePanelsError reports an indication string naming more than
// one panel, which is a hard precondition failure.
type MultiplePanelsError struct {
	Panels []string
}

func (e *MultiplePanelsError) Error() string {
	return fmt.Sprintf("more than one panel given: %s", strings.Join(e.Panels, "; "))
}

// CleanPanelString strips embedded HGNC gene-identifier tokens from an
// indication string and returns the remaining panel name. A string
// containing only HGNC tokens cleans to "", which downstream resolves
// to no panel and an empty MOI map. Two or more distinct panel names
// raise a MultiplePanelsError naming them.
func CleanPanelString(panelString string) (string, error) {
	cleaned := hgncToken.ReplaceAllString(panelString, "")
	cleaned = strings.TrimRight(cleaned, ";")

	if strings.Contains(cleaned, ";") {
		return "", &MultiplePanelsError{Panels: strings.Split(cleaned, ";")}
	}
	return cleaned, nil
}
