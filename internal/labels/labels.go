package labels

import "sort"

// #region label-map
// LabelMap maps raw model label identifiers to readable labels.
type LabelMap map[string]string

// DefaultLabelMap returns the binary sentiment mapping produced by the
// fine-tuned model head.
func DefaultLabelMap() LabelMap {
	return LabelMap{
		"LABEL_0": "NEGATIVE",
		"LABEL_1": "POSITIVE",
	}
}

// #endregion label-map

// #region normalizer
// Normalizer translates raw labels through a fixed LabelMap.
// It holds a private copy, so later edits to the source map have no effect.
type Normalizer struct {
	table LabelMap
}

// NewNormalizer copies m into a new Normalizer.
func NewNormalizer(m LabelMap) *Normalizer {
	table := make(LabelMap, len(m))
	for k, v := range m {
		table[k] = v
	}
	return &Normalizer{table: table}
}

// Normalize returns the readable label for raw, or raw itself when unmapped.
func (n *Normalizer) Normalize(raw string) string {
	if readable, ok := n.table[raw]; ok {
		return readable
	}
	return raw
}

// Vocabulary returns the distinct readable labels in sorted order.
func (n *Normalizer) Vocabulary() []string {
	seen := make(map[string]bool, len(n.table))
	out := make([]string, 0, len(n.table))
	for _, v := range n.table {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// #endregion normalizer
