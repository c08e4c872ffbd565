package panels

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// DuplicatePanelIDError reports clinical indications carrying more
// than one panel ID in the genepanels table, which indicates a
// corrupt reference file.
type DuplicatePanelIDError struct {
	Duplicates map[string][]string // indication -> sorted panel IDs
}

func (e *DuplicatePanelIDError) Error() string {
	inds := make([]string, 0, len(e.Duplicates))
	for ind := range e.Duplicates {
		inds = append(inds, ind)
	}
	sort.Strings(inds)

	var b strings.Builder
	b.WriteString("multiple panel IDs found for clinical indications: ")
	for i, ind := range inds {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s=%v", ind, e.Duplicates[ind])
	}
	return b.String()
}

// Genepanels maps each clinical-indication string to its single panel
// ID. An empty ID means the indication has no machine-resolvable
// panel; those entries degrade to an empty MOI map rather than
// failing.
type Genepanels map[string]string

// ParseGenepanels reads the tab-separated genepanels table: panel ID,
// indication name, panel display name, gene symbol, one row per
// gene/indication combination.
func ParseGenepanels(r io.Reader) (Genepanels, error) {
	ids := make(map[string]map[string]bool)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if text == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) < 4 {
			return nil, fmt.Errorf("genepanels line %d: expected 4 tab-separated columns, found %d", line, len(fields))
		}
		panelID, clinInd := fields[0], fields[1]
		if ids[clinInd] == nil {
			ids[clinInd] = make(map[string]bool)
		}
		ids[clinInd][panelID] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read genepanels: %w", err)
	}

	duplicates := make(map[string][]string)
	for ind, set := range ids {
		if len(set) > 1 {
			var sorted []string
			for id := range set {
				sorted = append(sorted, id)
			}
			sort.Strings(sorted)
			duplicates[ind] = sorted
		}
	}
	if len(duplicates) > 0 {
		return nil, &DuplicatePanelIDError{Duplicates: duplicates}
	}

	gp := make(Genepanels, len(ids))
	for ind, set := range ids {
		for id := range set {
			gp[ind] = id
		}
	}
	return gp, nil
}

// LoadGenepanels reads the genepanels table from a file.
func LoadGenepanels(path string) (Genepanels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open genepanels file: %w", err)
	}
	defer f.Close()
	return ParseGenepanels(f)
}

// PanelID looks up the panel ID for an indication. ok is false when
// the indication is not present in the table at all; an empty id with
// ok=true means the indication exists but has no resolvable panel.
func (g Genepanels) PanelID(indication string) (id string, ok bool) {
	id, ok = g[indication]
	return id, ok
}
