// Package recommend ranks cultural profiles against each other by cosine
// similarity of their tag sets.
//
// The engine itself (FeatureSet, Similarity, Recommend) is pure: it does no
// I/O and keeps no state, so it can be called from any number of request
// goroutines at once. Service is the thin wrapper that pulls the current
// profile and the candidate pool from a Repository before ranking.
package recommend

import "math"

// Profile is a user's cultural profile. Only State and the four tag sets
// take part in scoring; the rest is carried for display.
type Profile struct {
	UserID int    `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	State  string `json:"state"`
	City   string `json:"city"`
	Bio    string `json:"bio"`
	Age    int    `json:"age"`
	Gender string `json:"gender"`

	PrimaryLanguages  []string `json:"primary_languages"`
	RegionalLanguages []string `json:"regional_languages"`

	CulturalInterests []string `json:"cultural_interests"`
	Skills            []string `json:"skills"`
	TeachingAbilities []string `json:"teaching_abilities"`
	Hobbies           []string `json:"hobbies"`

	LearningGoals    []string `json:"learning_goals"`
	InterestedStates []string `json:"interested_states"`

	Points     int  `json:"points"`
	Level      int  `json:"level"`
	IsComplete bool `json:"is_complete"`
}

// Complete reports whether the profile has finished onboarding: a name, a
// home state and city, and at least one cultural interest.
func (p Profile) Complete() bool {
	return p.Name != "" && p.State != "" && p.City != "" && len(p.CulturalInterests) > 0
}

// ScoredProfile is a candidate profile with its similarity to the querying
// profile.
type ScoredProfile struct {
	Profile

	// Similarity is the cosine similarity in [0, 1].
	Similarity float64 `json:"similarity"`
}

// MatchPercent is Similarity as a rounded whole percentage, the way the
// dashboard shows it.
func (s ScoredProfile) MatchPercent() int {
	return int(math.Round(s.Similarity * 100))
}
