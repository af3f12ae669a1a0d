// Package seed loads challenge catalogs from YAML files into the document store.
//
// A catalog file has one list per cadence:
//
//	daily:
//	  - id: water
//	    task: Drink eight glasses of water
//	    type: health
//	    difficulty: easy
//	    reward: 10
//	weekly: []
//	monthly: []
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"reclaimAPI/internal/docstore"
	"reclaimAPI/internal/types/challenge"
)

type Entry struct {
	ID         string `yaml:"id"`
	Task       string `yaml:"task"`
	Type       string `yaml:"type"`
	Difficulty string `yaml:"difficulty"`
	Reward     int    `yaml:"reward"`
}

type Catalog struct {
	Daily   []Entry `yaml:"daily"`
	Weekly  []Entry `yaml:"weekly"`
	Monthly []Entry `yaml:"monthly"`
}

func (c Catalog) byCadence() map[challenge.Cadence][]Entry {
	return map[challenge.Cadence][]Entry{
		challenge.CadenceDaily:   c.Daily,
		challenge.CadenceWeekly:  c.Weekly,
		challenge.CadenceMonthly: c.Monthly,
	}
}

// Parse decodes and validates a catalog. Unknown keys are rejected.
func Parse(r io.Reader) (Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Catalog{}, fmt.Errorf("seed: decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

// Validate checks every entry. Challenge ids must be unique across cadences
// because completions reference them without a cadence.
func (c Catalog) Validate() error {
	var errs []error
	seen := make(map[string]challenge.Cadence)
	for _, cadence := range challenge.Cadences {
		for i, e := range c.byCadence()[cadence] {
			where := fmt.Sprintf("%s[%d]", cadence, i)
			switch {
			case e.ID == "":
				errs = append(errs, fmt.Errorf("%s: id is required", where))
			case strings.Contains(e.ID, "/"):
				errs = append(errs, fmt.Errorf("%s: id %q must not contain '/'", where, e.ID))
			default:
				if prev, dup := seen[e.ID]; dup {
					errs = append(errs, fmt.Errorf("%s: id %q already used in %s", where, e.ID, prev))
				}
				seen[e.ID] = cadence
			}
			if e.Task == "" {
				errs = append(errs, fmt.Errorf("%s: task is required", where))
			}
			if e.Reward < 0 {
				errs = append(errs, fmt.Errorf("%s: reward must not be negative", where))
			}
			if e.Difficulty != "" && !challenge.Difficulty(e.Difficulty).Valid() {
				errs = append(errs, fmt.Errorf("%s: unknown difficulty %q", where, e.Difficulty))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("seed: invalid catalog: %w", errors.Join(errs...))
	}
	return nil
}

// Apply upserts every entry into its cadence collection and returns the
// number written.
func Apply(ctx context.Context, store docstore.Store, c Catalog) (int, error) {
	written := 0
	for _, cadence := range challenge.Cadences {
		for _, e := range c.byCadence()[cadence] {
			def := challenge.Definition{
				ID:         e.ID,
				Task:       e.Task,
				Type:       e.Type,
				Difficulty: challenge.Difficulty(e.Difficulty),
				Reward:     e.Reward,
				Cadence:    cadence,
			}
			if err := store.Set(ctx, cadence.Collection(), e.ID, def); err != nil {
				return written, fmt.Errorf("seed: write %s/%s: %w", cadence.Collection(), e.ID, err)
			}
			written++
		}
	}
	return written, nil
}
