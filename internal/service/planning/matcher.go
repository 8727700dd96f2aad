package planning

import (
	"sort"

	"github.com/mamadbah2/lineplan/internal/domain/models"
)

// Matcher resolves which lines may run a product category.
type Matcher struct {
	compatibility map[string][]models.LineID
}

// NewMatcher builds a matcher over the static compatibility rules. A nil
// mapping means every category is judged by the lines' own product lists.
func NewMatcher(compatibility map[string][]models.LineID) *Matcher {
	return &Matcher{compatibility: compatibility}
}

// EligibleLines returns the active lines allowed to run category, sorted by
// id. An unknown category yields an empty result.
func (m *Matcher) EligibleLines(category string, lines []models.ProductionLine) []models.ProductionLine {
	allowed := make(map[models.LineID]struct{})
	if m.compatibility != nil {
		ids, known := m.compatibility[category]
		if !known {
			return nil
		}
		for _, id := range ids {
			allowed[id] = struct{}{}
		}
		for _, id := range m.compatibility[models.CategoryAll] {
			allowed[id] = struct{}{}
		}
	}

	var out []models.ProductionLine
	for _, l := range lines {
		if !l.IsActive() {
			continue
		}
		if _, ok := allowed[l.ID]; ok || l.Accepts(category) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
