// Package content serves the static cultural tables: Indian states,
// festivals, the festival calendar, and the onboarding option lists.
package content

import (
	"embed"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed *.yaml
var files embed.FS

// State is one Indian state or union territory on the map.
type State struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Capital     string   `yaml:"capital" json:"capital"`
	Population  string   `yaml:"population" json:"population"`
	Area        string   `yaml:"area" json:"area"`
	Languages   []string `yaml:"languages" json:"languages"`
	Description string   `yaml:"description" json:"description"`
}

type Festival struct {
	Name    string `yaml:"name" json:"name"`
	Tagline string `yaml:"tagline" json:"tagline"`
}

// Event is a dated entry on the culture calendar. Date is YYYY-MM-DD.
type Event struct {
	Title string `yaml:"title" json:"title"`
	Date  string `yaml:"date" json:"date"`
	Color string `yaml:"color" json:"color"`
}

// Options are the choices offered when editing a profile.
type Options struct {
	States            []string `yaml:"states" json:"states"`
	CulturalInterests []string `yaml:"cultural_interests" json:"cultural_interests"`
	Skills            []string `yaml:"skills" json:"skills"`
}

// Catalog holds every table, loaded once.
type Catalog struct {
	States    []State
	Festivals []Festival
	Events    []Event
	Options   Options

	byID map[string]int
}

// State returns the state with the given id. Ids match case-insensitively.
func (c *Catalog) State(id string) (State, bool) {
	i, ok := c.byID[strings.ToUpper(id)]
	if !ok {
		return State{}, false
	}
	return c.States[i], true
}

// Load parses and validates the embedded tables.
func Load() (*Catalog, error) {
	var c Catalog

	var states struct {
		States []State `yaml:"states"`
	}
	if err := decode("states.yaml", &states); err != nil {
		return nil, err
	}
	c.States = states.States

	var festivals struct {
		Festivals []Festival `yaml:"festivals"`
	}
	if err := decode("festivals.yaml", &festivals); err != nil {
		return nil, err
	}
	c.Festivals = festivals.Festivals

	var calendar struct {
		Events []Event `yaml:"events"`
	}
	if err := decode("calendar.yaml", &calendar); err != nil {
		return nil, err
	}
	c.Events = calendar.Events

	if err := decode("options.yaml", &c.Options); err != nil {
		return nil, err
	}

	if err := c.index(); err != nil {
		return nil, fmt.Errorf("invalid content: %w", err)
	}
	return &c, nil
}

func decode(name string, v any) error {
	raw, err := files.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// index validates the tables and builds the state lookup.
func (c *Catalog) index() error {
	var errs []error
	c.byID = make(map[string]int, len(c.States))
	for i, s := range c.States {
		id := strings.ToUpper(s.ID)
		switch {
		case id == "" || s.Name == "":
			errs = append(errs, fmt.Errorf("state %d: id and name are required", i))
		case hasKey(c.byID, id):
			errs = append(errs, fmt.Errorf("state %s: duplicate id", s.ID))
		default:
			c.byID[id] = i
		}
	}
	for i, f := range c.Festivals {
		if f.Name == "" {
			errs = append(errs, fmt.Errorf("festival %d: name is required", i))
		}
	}
	for _, e := range c.Events {
		if _, err := time.Parse(time.DateOnly, e.Date); err != nil {
			errs = append(errs, fmt.Errorf("event %q: bad date %q", e.Title, e.Date))
		}
		if !hexColor.MatchString(e.Color) {
			errs = append(errs, fmt.Errorf("event %q: bad color %q", e.Title, e.Color))
		}
	}
	for name, list := range map[string][]string{
		"states":             c.Options.States,
		"cultural_interests": c.Options.CulturalInterests,
		"skills":             c.Options.Skills,
	} {
		if err := unique(list); err != nil {
			errs = append(errs, fmt.Errorf("options %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func hasKey(m map[string]int, k string) bool {
	_, ok := m[k]
	return ok
}

func unique(list []string) error {
	if len(list) == 0 {
		return errors.New("empty list")
	}
	seen := make(map[string]struct{}, len(list))
	for _, v := range list {
		if _, dup := seen[v]; dup {
			return fmt.Errorf("duplicate %q", v)
		}
		seen[v] = struct{}{}
	}
	return nil
}
