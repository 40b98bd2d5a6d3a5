package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sanskriti-setu/setu/backend/recommend"
	"github.com/sanskriti-setu/setu/backend/store"
)

// profileInput is the editable part of a profile. PUT replaces every field,
// PATCH starts from the stored profile so absent fields are kept.
type profileInput struct {
	Name   string `json:"name" validate:"max=80"`
	State  string `json:"state" validate:"max=80"`
	City   string `json:"city" validate:"max=80"`
	Bio    string `json:"bio" validate:"max=1000"`
	Age    int    `json:"age" validate:"age"`
	Gender string `json:"gender" validate:"max=32"`

	PrimaryLanguages  []string `json:"primary_languages" validate:"max=30,dive,required,max=64"`
	RegionalLanguages []string `json:"regional_languages" validate:"max=30,dive,required,max=64"`
	CulturalInterests []string `json:"cultural_interests" validate:"max=30,dive,required,max=64"`
	Skills            []string `json:"skills" validate:"max=30,dive,required,max=64"`
	TeachingAbilities []string `json:"teaching_abilities" validate:"max=30,dive,required,max=64"`
	Hobbies           []string `json:"hobbies" validate:"max=30,dive,required,max=64"`
	LearningGoals     []string `json:"learning_goals" validate:"max=30,dive,required,max=64"`
	InterestedStates  []string `json:"interested_states" validate:"max=30,dive,required,max=64"`
}

func inputFrom(p recommend.Profile) profileInput {
	return profileInput{
		Name: p.Name, State: p.State, City: p.City, Bio: p.Bio, Age: p.Age, Gender: p.Gender,
		PrimaryLanguages:  p.PrimaryLanguages,
		RegionalLanguages: p.RegionalLanguages,
		CulturalInterests: p.CulturalInterests,
		Skills:            p.Skills,
		TeachingAbilities: p.TeachingAbilities,
		Hobbies:           p.Hobbies,
		LearningGoals:     p.LearningGoals,
		InterestedStates:  p.InterestedStates,
	}
}

func (in profileInput) apply(p recommend.Profile) recommend.Profile {
	p.Name = strings.TrimSpace(in.Name)
	p.State = strings.TrimSpace(in.State)
	p.City = strings.TrimSpace(in.City)
	p.Bio = strings.TrimSpace(in.Bio)
	p.Age = in.Age
	p.Gender = strings.TrimSpace(in.Gender)
	p.PrimaryLanguages = in.PrimaryLanguages
	p.RegionalLanguages = in.RegionalLanguages
	p.CulturalInterests = in.CulturalInterests
	p.Skills = in.Skills
	p.TeachingAbilities = in.TeachingAbilities
	p.Hobbies = in.Hobbies
	p.LearningGoals = in.LearningGoals
	p.InterestedStates = in.InterestedStates
	return p
}

// newValidator registers the profile rules. Age 0 means "not given".
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("age", func(fl validator.FieldLevel) bool {
		age := fl.Field().Int()
		return age == 0 || (age >= 13 && age <= 120)
	})
	return v
}

// invalidFields lists the JSON names of the fields that failed validation.
func invalidFields(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	seen := map[string]bool{}
	var fields []string
	for _, fe := range verrs {
		name := jsonFieldName(fe.StructField())
		if !seen[name] {
			seen[name] = true
			fields = append(fields, name)
		}
	}
	return fields
}

// jsonFieldName turns PrimaryLanguages into primary_languages.
func jsonFieldName(field string) string {
	if i := strings.IndexByte(field, '['); i >= 0 {
		field = field[:i]
	}
	var b strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// GET /me/profile
func meProfileHandler(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := st.CurrentProfile(r.Context(), userIDFrom(r.Context()))
		if errors.Is(err, recommend.ErrProfileNotFound) {
			writeError(w, http.StatusNotFound, "profile_not_found")
			return
		}
		if err != nil {
			writeInternal(w, r, "db_error", err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// PUT|PATCH /me/profile
func updateProfileHandler(st Store, v *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me := userIDFrom(r.Context())
		current, err := st.CurrentProfile(r.Context(), me)
		if errors.Is(err, recommend.ErrProfileNotFound) {
			writeError(w, http.StatusNotFound, "profile_not_found")
			return
		}
		if err != nil {
			writeInternal(w, r, "db_error", err)
			return
		}

		var in profileInput
		if r.Method == http.MethodPatch {
			in = inputFrom(current)
		}
		if !decodeJSON(w, r, &in) {
			return
		}
		if err := v.Struct(in); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "invalid_profile",
				"fields": invalidFields(err),
			})
			return
		}

		updated, err := st.UpdateProfile(r.Context(), in.apply(current))
		if err != nil {
			writeInternal(w, r, "db_error", err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

// GET /users/{id}
func userHandler(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		sums, err := loadSummaries(r.Context(), st, []int{id})
		if err != nil {
			writeInternal(w, r, "db_error", err)
			return
		}
		s, ok := sums[id]
		if !ok {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

// canView reports whether me may see target's full profile: they share a
// pending or accepted connection, or target is among me's recommendations.
func canView(r *http.Request, st Store, svc *recommend.Service, me, target int) (bool, error) {
	if me == target {
		return true, nil
	}
	c, err := st.Pair(r.Context(), me, target)
	switch {
	case err == nil:
		if c.Status == store.StatusPending || c.Status == store.StatusAccepted {
			return true, nil
		}
	case !errors.Is(err, store.ErrNotFound):
		return false, err
	}

	recs, err := svc.ForUser(r.Context(), me, maxRecommendLimit)
	if err != nil {
		return false, err
	}
	for _, rec := range recs {
		if rec.UserID == target {
			return true, nil
		}
	}
	return false, nil
}

// GET /users/{id}/profile
func userProfileHandler(st Store, svc *recommend.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target, ok := pathID(w, r)
		if !ok {
			return
		}
		me := userIDFrom(r.Context())

		allowed, err := canView(r, st, svc, me, target)
		if err != nil && !errors.Is(err, recommend.ErrProfileNotFound) {
			writeInternal(w, r, "db_error", err)
			return
		}
		if !allowed {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}

		p, err := st.CurrentProfile(r.Context(), target)
		if errors.Is(err, recommend.ErrProfileNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		if err != nil {
			writeInternal(w, r, "db_error", err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			recommend.Profile
			IsOnline bool `json:"is_online"`
		}{p, isOnlineNow(r.Context(), st, target)})
	}
}
