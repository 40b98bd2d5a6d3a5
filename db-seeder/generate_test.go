package main

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanskriti-setu/setu/backend/content"
	"github.com/sanskriti-setu/setu/backend/store"
)

func testGenerator(t *testing.T, seed int64) *generator {
	t.Helper()
	catalog, err := content.Load()
	require.NoError(t, err)
	return newGenerator(rand.New(rand.NewSource(seed)), catalog)
}

func TestPeople(t *testing.T) {
	people := testGenerator(t, 42).people(30)
	require.Len(t, people, 30)

	assert.Equal(t, "user1@test.local", people[0].Email)
	assert.Equal(t, "user2@test.local", people[1].Email)
	assert.Equal(t, "Test User 1", people[0].Profile.Name)

	emails := map[string]bool{}
	for _, p := range people {
		assert.False(t, emails[p.Email], "duplicate email %s", p.Email)
		emails[p.Email] = true
		assert.True(t, p.Profile.Complete(), "seeded profiles are complete")
		assert.GreaterOrEqual(t, p.Profile.Age, 18)
		assert.Equal(t, 1+p.Profile.Points/100, p.Profile.Level)
	}
}

func TestPeopleDeterministic(t *testing.T) {
	a := testGenerator(t, 7).people(10)
	b := testGenerator(t, 7).people(10)
	for i := range a {
		assert.Equal(t, a[i].Email, b[i].Email)
		assert.Equal(t, a[i].Profile, b[i].Profile)
	}
}

func TestConnections(t *testing.T) {
	users := make([]int, 20)
	for i := range users {
		users[i] = i + 1
	}
	edges := testGenerator(t, 42).connections(users, 0.5, 0.3, 0.2)
	require.NotEmpty(t, edges)

	assert.Equal(t, edge{From: 1, To: 2, Status: store.StatusAccepted}, edges[0])

	seen := map[[2]int]bool{}
	for _, e := range edges {
		assert.NotEqual(t, e.From, e.To)
		key := [2]int{min(e.From, e.To), max(e.From, e.To)}
		assert.False(t, seen[key], "pair %v repeated", key)
		seen[key] = true
		assert.Contains(t, []store.Status{store.StatusAccepted, store.StatusPending, store.StatusDisconnected}, e.Status)
	}
}

func TestConnectionsSmall(t *testing.T) {
	g := testGenerator(t, 1)
	assert.Empty(t, g.connections([]int{1}, 0.5, 0.1, 0.1))
	assert.Len(t, g.connections([]int{1, 2, 3}, 0.5, 0.1, 0.1), 1)
	assert.Len(t, g.connections([]int{1, 2, 3, 4}, 0, 0, 0), 1)
	// Two spare users form exactly one pair.
	assert.Len(t, g.connections([]int{1, 2, 3, 4}, 1, 0, 0), 2)
}

func TestValidate(t *testing.T) {
	ok := cfg{DSN: "postgres://x", Count: 5, ConnectRate: 0.5, PendingRate: 0.1, Password: "password123"}
	require.NoError(t, ok.validate())

	bad := []func(*cfg){
		func(c *cfg) { c.DSN = "" },
		func(c *cfg) { c.Count = 0 },
		func(c *cfg) { c.PendingRate = 1.5 },
		func(c *cfg) { c.ConnectRate, c.PendingRate = 0.8, 0.8 },
		func(c *cfg) { c.Password = "short" },
	}
	for _, mutate := range bad {
		c := ok
		mutate(&c)
		assert.Error(t, c.validate())
	}
}
