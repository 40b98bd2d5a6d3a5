package main

import (
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"github.com/sanskriti-setu/setu/backend/content"
	"github.com/sanskriti-setu/setu/backend/recommend"
	"github.com/sanskriti-setu/setu/backend/store"
)

// testEmails are the fixed accounts every seed starts with. They are
// connected to each other so chat works right after seeding.
var testEmails = []string{"user1@test.local", "user2@test.local"}

var (
	firstNames = []string{"Aarav", "Ananya", "Arjun", "Diya", "Ishaan", "Kavya", "Meera", "Nikhil", "Priya", "Rahul", "Rohan", "Saanvi", "Tanvi", "Vikram", "Zoya"}
	lastNames  = []string{"Sharma", "Iyer", "Singh", "Das", "Nair", "Patel", "Reddy", "Banerjee", "Khan", "Menon"}
	hobbies    = []string{"Reading", "Travel", "Photography", "Cricket", "Gardening", "Trekking", "Chess", "Painting"}
	goals      = []string{"Learn a new language", "Cook a regional dish", "Learn a folk dance", "Visit every state", "Play a classical instrument"}
	genders    = []string{"female", "male", "non-binary", ""}
	bios       = []string{
		"Curious about every corner of India.",
		"Weekend traveller and weekday coder.",
		"Love sharing recipes from home.",
		"Talk to me about music and festivals.",
		"Always learning something new.",
	}
)

// generator builds deterministic fake people from the content catalog.
type generator struct {
	r       *rand.Rand
	catalog *content.Catalog
	now     time.Time
}

func newGenerator(r *rand.Rand, catalog *content.Catalog) *generator {
	return &generator{r: r, catalog: catalog, now: time.Now()}
}

func (g *generator) pick(list []string) string {
	return list[g.r.Intn(len(list))]
}

// some returns between lo and hi distinct items of list.
func (g *generator) some(list []string, lo, hi int) []string {
	n := min(lo+g.r.Intn(hi-lo+1), len(list))
	out := make([]string, 0, n)
	for _, i := range g.r.Perm(len(list))[:n] {
		out = append(out, list[i])
	}
	return out
}

func (g *generator) people(n int) []person {
	used := make(map[string]bool, n)
	out := make([]person, 0, n)
	for i := range n {
		var email string
		lastOnline := g.now.Add(-time.Duration(g.r.Intn(14*24)) * time.Hour)
		if i < len(testEmails) {
			email = testEmails[i]
			lastOnline = g.now
		} else {
			email = g.uniqueEmail(used)
		}
		used[email] = true
		out = append(out, person{Email: email, LastOnline: lastOnline, Profile: g.profile(i)})
	}
	return out
}

func (g *generator) uniqueEmail(used map[string]bool) string {
	for {
		local := strings.ToLower(g.pick(firstNames) + "." + g.pick(lastNames))
		email := fmt.Sprintf("%s+%d@%s", local, g.r.Intn(1000000), g.pick([]string{"example.com", "mail.test", "dev.local"}))
		if !used[email] {
			return email
		}
	}
}

func (g *generator) profile(i int) recommend.Profile {
	name := g.pick(firstNames) + " " + g.pick(lastNames)
	if i < len(testEmails) {
		name = fmt.Sprintf("Test User %d", i+1)
	}
	state := g.catalog.States[g.r.Intn(len(g.catalog.States))]
	opts := g.catalog.Options

	p := recommend.Profile{
		Name:              name,
		Avatar:            "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=random",
		State:             state.Name,
		City:              state.Capital,
		Bio:               g.pick(bios),
		Age:               18 + g.r.Intn(50),
		Gender:            g.pick(genders),
		PrimaryLanguages:  g.some(state.Languages, 1, 2),
		RegionalLanguages: g.some(state.Languages, 0, 1),
		CulturalInterests: g.some(opts.CulturalInterests, 1, 4),
		Skills:            g.some(opts.Skills, 1, 3),
		TeachingAbilities: g.some(opts.Skills, 0, 2),
		Hobbies:           g.some(hobbies, 1, 3),
		LearningGoals:     g.some(goals, 0, 2),
		InterestedStates:  g.some(opts.States, 0, 3),
		Points:            g.r.Intn(500),
	}
	p.Level = 1 + p.Points/100
	return p
}

// edge is one connection row to insert, From being the requester.
type edge struct {
	From, To int
	Status   store.Status
}

// connections builds a random graph over users. The first two users are
// always connected; every other pair appears at most once.
func (g *generator) connections(users []int, connectRate, pendingRate, disconnectedRate float64) []edge {
	var out []edge
	if len(users) >= 2 {
		out = append(out, edge{From: users[0], To: users[1], Status: store.StatusAccepted})
	}
	rest := users[min(2, len(users)):]
	total := connectRate + pendingRate + disconnectedRate
	if len(rest) < 2 || total == 0 {
		return out
	}

	// Estimate: create ~count * total pairs, capped by the number of pairs.
	target := int(float64(len(rest)) * total * 1.2)
	target = min(max(target, 1), len(rest)*(len(rest)-1)/2)

	seen := make(map[[2]int]bool, target)
	for len(seen) < target {
		u, v := rest[g.r.Intn(len(rest))], rest[g.r.Intn(len(rest))]
		if u == v {
			continue
		}
		key := [2]int{min(u, v), max(u, v)}
		if seen[key] {
			continue
		}
		seen[key] = true

		var status store.Status
		switch p := g.r.Float64() * total; {
		case p < connectRate:
			status = store.StatusAccepted
		case p < connectRate+pendingRate:
			status = store.StatusPending
		default:
			status = store.StatusDisconnected
		}
		out = append(out, edge{From: u, To: v, Status: status})
	}
	return out
}
