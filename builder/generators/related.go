package generators

import (
	"math"
	"slices"

	"github.com/kiln-ssg/kiln/builder/models"
)

// MaxRelated is the length of a related list.
const MaxRelated = 4

// RelatedScore ranks candidate against doc: closeness in time (a 30 day scale)
// plus 0.2 per distinct shared tag.
func RelatedScore(doc, candidate *models.Document) float64 {
	days := math.Abs(doc.Date.Sub(candidate.Date).Hours()) / 24
	score := 1 / (1 + days/30)
	return score + 0.2*float64(sharedTags(doc.Tags, candidate.Tags))
}

func sharedTags(a, b []string) int {
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	shared := 0
	for _, t := range b {
		if _, ok := set[t]; ok {
			shared++
			delete(set, t)
		}
	}
	return shared
}

// ComputeRelated fills Related on every document with the IDs of the best
// scoring other documents. Collections with fewer than two documents are left alone.
func ComputeRelated(col *models.Collection) {
	if col == nil || len(col.Docs) < 2 {
		return
	}
	type scored struct {
		id    string
		score float64
	}
	for _, doc := range col.Docs {
		candidates := make([]scored, 0, len(col.Docs)-1)
		for _, other := range col.Docs {
			if other == doc || other.ID == doc.ID {
				continue
			}
			candidates = append(candidates, scored{id: other.ID, score: RelatedScore(doc, other)})
		}
		slices.SortStableFunc(candidates, func(a, b scored) int {
			switch {
			case a.score > b.score:
				return -1
			case a.score < b.score:
				return 1
			}
			return 0
		})
		n := min(MaxRelated, len(candidates))
		doc.Related = make([]string, 0, n)
		for _, c := range candidates[:n] {
			doc.Related = append(doc.Related, c.id)
		}
	}
}

// LinkNeighbors sets Previous (older) and Next (newer) on documents already in
// date ascending order.
func LinkNeighbors(col *models.Collection) {
	if col == nil {
		return
	}
	for i, doc := range col.Docs {
		doc.Previous, doc.Next = nil, nil
		if i > 0 {
			doc.Previous = col.Docs[i-1]
		}
		if i < len(col.Docs)-1 {
			doc.Next = col.Docs[i+1]
		}
	}
}
