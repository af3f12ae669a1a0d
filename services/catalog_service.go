package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	"reclaimAPI/internal/apperr"
	"reclaimAPI/internal/docstore"
	"reclaimAPI/internal/types/challenge"
)

// CatalogService serves the read-only challenge catalogs. Lists are cached
// per cadence; staleness up to the TTL is acceptable.
type CatalogService struct {
	store docstore.Store
	cache *expirable.LRU[challenge.Cadence, []challenge.Definition]
}

func NewCatalogService(store docstore.Store, cacheSize int, ttl time.Duration) *CatalogService {
	return &CatalogService{
		store: store,
		cache: expirable.NewLRU[challenge.Cadence, []challenge.Definition](cacheSize, nil, ttl),
	}
}

func (s *CatalogService) ListChallenges(ctx context.Context, cadence challenge.Cadence) ([]challenge.Definition, error) {
	const op = "catalog.ListChallenges"
	if _, ok := challenge.ParseCadence(string(cadence)); !ok {
		return nil, apperr.New(op, apperr.ErrInvalidCadence, fmt.Sprintf("unknown cadence %q", cadence))
	}

	if defs, ok := s.cache.Get(cadence); ok {
		return slices.Clone(defs), nil
	}

	snaps, err := s.store.Query(ctx, cadence.Collection())
	if err != nil {
		return nil, storeErr(op, err)
	}

	defs := make([]challenge.Definition, 0, len(snaps))
	for _, snap := range snaps {
		def, err := decodeDefinition(snap, cadence)
		if err != nil {
			return nil, storeErr(op, err)
		}
		defs = append(defs, def)
	}

	s.cache.Add(cadence, defs)
	return slices.Clone(defs), nil
}

// ListAll loads every cadence concurrently.
func (s *CatalogService) ListAll(ctx context.Context) (map[challenge.Cadence][]challenge.Definition, error) {
	results := make([][]challenge.Definition, len(challenge.Cadences))

	g, gctx := errgroup.WithContext(ctx)
	for i, cadence := range challenge.Cadences {
		i, cadence := i, cadence
		g.Go(func() error {
			defs, err := s.ListChallenges(gctx, cadence)
			if err != nil {
				return err
			}
			results[i] = defs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := make(map[challenge.Cadence][]challenge.Definition, len(challenge.Cadences))
	for i, cadence := range challenge.Cadences {
		all[cadence] = results[i]
	}
	return all, nil
}

// GetChallenge finds a definition by id in any cadence. A cache miss falls
// through to the store so newly provisioned challenges are found.
func (s *CatalogService) GetChallenge(ctx context.Context, id string) (challenge.Definition, error) {
	const op = "catalog.GetChallenge"
	if id == "" {
		return challenge.Definition{}, apperr.New(op, apperr.ErrUnknownChallenge, "challenge id is required")
	}

	for _, cadence := range challenge.Cadences {
		defs, ok := s.cache.Get(cadence)
		if !ok {
			continue
		}
		for _, def := range defs {
			if def.ID == id {
				return def, nil
			}
		}
	}

	for _, cadence := range challenge.Cadences {
		snap, err := s.store.Get(ctx, cadence.Collection(), id)
		if err != nil {
			if docstore.IsNotFound(err) {
				continue
			}
			return challenge.Definition{}, storeErr(op, err)
		}
		def, err := decodeDefinition(snap, cadence)
		if err != nil {
			return challenge.Definition{}, storeErr(op, err)
		}
		return def, nil
	}

	return challenge.Definition{}, apperr.New(op, apperr.ErrUnknownChallenge, "challenge not found")
}

// Purge drops every cached list.
func (s *CatalogService) Purge() {
	s.cache.Purge()
}

func decodeDefinition(snap docstore.Snapshot, cadence challenge.Cadence) (challenge.Definition, error) {
	var def challenge.Definition
	if err := snap.DataTo(&def); err != nil {
		return challenge.Definition{}, err
	}
	def.ID = snap.ID()
	if def.Cadence == "" {
		def.Cadence = cadence
	}
	if def.Reward < 0 {
		def.Reward = 0
	}
	return def, nil
}
