package recommend

import (
	"math"
	"sort"
)

// Features is a set of opaque tags. Tags match only when byte-identical.
type Features map[string]struct{}

// FeatureSet returns the union of the profile's cultural interests, skills,
// teaching abilities, hobbies and home state. Nil slices count as empty and
// empty strings are never features, so a profile that skipped onboarding has
// an empty set.
//
// TODO: decide whether PrimaryLanguages should contribute features; a
// language shared by most users (Hindi, English) would dominate the score.
func FeatureSet(p Profile) Features {
	n := len(p.CulturalInterests) + len(p.Skills) + len(p.TeachingAbilities) + len(p.Hobbies) + 1
	f := make(Features, n)
	f.add(p.State)
	for _, tags := range [][]string{p.CulturalInterests, p.Skills, p.TeachingAbilities, p.Hobbies} {
		for _, t := range tags {
			f.add(t)
		}
	}
	return f
}

func (f Features) add(tag string) {
	if tag == "" {
		return
	}
	f[tag] = struct{}{}
}

// Has reports whether tag is in the set.
func (f Features) Has(tag string) bool {
	_, ok := f[tag]
	return ok
}

// Vocabulary returns the sorted union of the given sets. Sorting fixes the
// enumeration order so vectors built from it line up.
func Vocabulary(sets ...Features) []string {
	seen := make(map[string]struct{})
	for _, s := range sets {
		for t := range s {
			seen[t] = struct{}{}
		}
	}
	vocab := make([]string, 0, len(seen))
	for t := range seen {
		vocab = append(vocab, t)
	}
	sort.Strings(vocab)
	return vocab
}

// Vector returns the binary vector of f over vocab: 1 where the term is in
// the set, 0 otherwise.
func (f Features) Vector(vocab []string) []float64 {
	v := make([]float64, len(vocab))
	for i, t := range vocab {
		if f.Has(t) {
			v[i] = 1
		}
	}
	return v
}

// Similarity is the cosine similarity of the binary feature vectors of a and
// b over their shared vocabulary. It is 0 when either profile has no
// features, and symmetric in its arguments.
func Similarity(a, b Profile) float64 {
	fa, fb := FeatureSet(a), FeatureSet(b)
	vocab := Vocabulary(fa, fb)
	return Cosine(fa.Vector(vocab), fb.Vector(vocab))
}

// Cosine computes dot(a,b) / (|a|*|b|) for equal-length vectors. Mismatched
// lengths and zero-magnitude vectors give 0.
//
// The magnitudes are multiplied under a single square root so that integer
// vectors stay exact: a binary vector compared with itself is exactly 1.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, sumA, sumB float64
	for i := range a {
		dot += a[i] * b[i]
		sumA += a[i] * a[i]
		sumB += b[i] * b[i]
	}
	if sumA == 0 || sumB == 0 {
		return 0
	}
	return dot / math.Sqrt(sumA*sumB)
}
