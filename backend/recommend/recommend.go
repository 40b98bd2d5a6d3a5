package recommend

import "sort"

// Recommend scores every candidate in pool against current and returns the
// best limit of them, highest similarity first. Candidates with the same
// UserID as current are skipped. Equal scores keep their pool order.
//
// A non-positive limit yields an empty result. The result is never nil.
func Recommend(current Profile, pool []Profile, limit int) []ScoredProfile {
	if limit <= 0 {
		return []ScoredProfile{}
	}

	scored := make([]ScoredProfile, 0, len(pool))
	for _, candidate := range pool {
		if candidate.UserID == current.UserID {
			continue
		}
		scored = append(scored, ScoredProfile{
			Profile:    candidate,
			Similarity: Similarity(current, candidate),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}
