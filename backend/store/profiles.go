package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/sanskriti-setu/setu/backend/recommend"
)

const profileColumns = `
	user_id, name, avatar, state, city, bio, age, gender,
	primary_languages, regional_languages,
	cultural_interests, skills, teaching_abilities, hobbies,
	learning_goals, interested_states,
	points, level, is_complete`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (recommend.Profile, error) {
	var p recommend.Profile
	err := row.Scan(
		&p.UserID, &p.Name, &p.Avatar, &p.State, &p.City, &p.Bio, &p.Age, &p.Gender,
		pq.Array(&p.PrimaryLanguages), pq.Array(&p.RegionalLanguages),
		pq.Array(&p.CulturalInterests), pq.Array(&p.Skills), pq.Array(&p.TeachingAbilities), pq.Array(&p.Hobbies),
		pq.Array(&p.LearningGoals), pq.Array(&p.InterestedStates),
		&p.Points, &p.Level, &p.IsComplete,
	)
	return p, err
}

// CurrentProfile returns the profile owned by userID. A missing row wraps
// recommend.ErrProfileNotFound.
func (s *Postgres) CurrentProfile(ctx context.Context, userID int) (recommend.Profile, error) {
	p, err := scanProfile(s.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE user_id = $1
	`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return recommend.Profile{}, fmt.Errorf("user %d: %w", userID, recommend.ErrProfileNotFound)
	}
	if err != nil {
		return recommend.Profile{}, fmt.Errorf("query profile %d: %w", userID, err)
	}
	return p, nil
}

// CandidatePool returns up to limit profiles ordered by user id, so equal
// scores rank the same way on every call.
func (s *Postgres) CandidatePool(ctx context.Context, limit int) ([]recommend.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		ORDER BY user_id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query candidate pool: %w", err)
	}
	defer rows.Close()

	pool := make([]recommend.Profile, 0, limit)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		pool = append(pool, p)
	}
	return pool, rows.Err()
}

// UpdateProfile overwrites the editable fields of p.UserID's profile and
// recomputes the completion flag. Points and level are left alone.
func (s *Postgres) UpdateProfile(ctx context.Context, p recommend.Profile) (recommend.Profile, error) {
	out, err := scanProfile(s.db.QueryRowContext(ctx, `
		UPDATE profiles SET
			name = $2, state = $3, city = $4, bio = $5, age = $6, gender = $7,
			primary_languages = $8, regional_languages = $9,
			cultural_interests = $10, skills = $11, teaching_abilities = $12, hobbies = $13,
			learning_goals = $14, interested_states = $15,
			is_complete = $16, updated_at = NOW()
		WHERE user_id = $1
		RETURNING `+profileColumns,
		p.UserID, p.Name, p.State, p.City, p.Bio, p.Age, p.Gender,
		pq.Array(nonNil(p.PrimaryLanguages)), pq.Array(nonNil(p.RegionalLanguages)),
		pq.Array(nonNil(p.CulturalInterests)), pq.Array(nonNil(p.Skills)),
		pq.Array(nonNil(p.TeachingAbilities)), pq.Array(nonNil(p.Hobbies)),
		pq.Array(nonNil(p.LearningGoals)), pq.Array(nonNil(p.InterestedStates)),
		p.Complete(),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return recommend.Profile{}, fmt.Errorf("user %d: %w", p.UserID, recommend.ErrProfileNotFound)
	}
	if err != nil {
		return recommend.Profile{}, fmt.Errorf("update profile %d: %w", p.UserID, err)
	}
	return out, nil
}

// nonNil keeps NOT NULL array columns from receiving NULL.
func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
