// Package directory is the cached snapshot of known actors used for @mention
// resolution and people search.
//
// Reads go through the cache: a snapshot older than the staleness window is
// refreshed on demand, and Refresh forces a reload. Concurrent refreshes are
// coalesced into a single store read.
package directory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"launchpad/metrics"
	"launchpad/models"

	"golang.org/x/sync/singleflight"
)

var (
	ErrNotFound  = errors.New("user not found")
	ErrAmbiguous = errors.New("user name is ambiguous")
)

// Source loads the full profile list.
type Source interface {
	ListProfiles(ctx context.Context) ([]models.Profile, error)
}

type Directory struct {
	source    Source
	staleness time.Duration
	now       func() time.Time
	group     singleflight.Group

	mu        sync.RWMutex
	snapshot  []models.Profile
	fetchedAt time.Time
}

// New builds a directory whose snapshot is considered fresh for staleness.
func New(source Source, staleness time.Duration) *Directory {
	return &Directory{source: source, staleness: staleness, now: time.Now}
}

// Staleness is the documented maximum age of a snapshot served by Actors.
func (d *Directory) Staleness() time.Duration { return d.staleness }

// Actors returns the current snapshot, reloading it first when it is older
// than the staleness window. A failed reload falls back to the previous
// snapshot when there is one.
func (d *Directory) Actors(ctx context.Context) ([]models.Profile, error) {
	d.mu.RLock()
	snap, fetched := d.snapshot, d.fetchedAt
	d.mu.RUnlock()

	if !fetched.IsZero() && d.now().Sub(fetched) < d.staleness {
		return snap, nil
	}
	fresh, err := d.Refresh(ctx)
	if err != nil {
		if !fetched.IsZero() {
			return snap, nil
		}
		return nil, err
	}
	return fresh, nil
}

// Refresh reloads the snapshot from the source.
func (d *Directory) Refresh(ctx context.Context) ([]models.Profile, error) {
	v, err, _ := d.group.Do("refresh", func() (interface{}, error) {
		profiles, err := d.source.ListProfiles(ctx)
		if err != nil {
			metrics.DirectoryRefreshes.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("refresh directory: %w", err)
		}
		sort.Slice(profiles, func(i, j int) bool {
			if profiles[i].Name != profiles[j].Name {
				return profiles[i].Name < profiles[j].Name
			}
			return profiles[i].ID < profiles[j].ID
		})
		d.mu.Lock()
		d.snapshot = profiles
		d.fetchedAt = d.now()
		d.mu.Unlock()
		metrics.DirectoryRefreshes.WithLabelValues("ok").Inc()
		return profiles, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Profile), nil
}

// Invalidate marks the snapshot stale so the next read reloads it.
func (d *Directory) Invalidate() {
	d.mu.Lock()
	d.fetchedAt = time.Time{}
	d.mu.Unlock()
}

// Lookup finds a profile by id in the snapshot.
func (d *Directory) Lookup(ctx context.Context, id string) (models.Profile, error) {
	actors, err := d.Actors(ctx)
	if err != nil {
		return models.Profile{}, err
	}
	for _, p := range actors {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Profile{}, ErrNotFound
}

// Resolve maps a name (with or without a leading @) to exactly one actor. A
// single case-insensitive exact match wins; otherwise the name must be a
// substring of exactly one actor's name.
func (d *Directory) Resolve(ctx context.Context, name string) (models.Profile, error) {
	actors, err := d.Actors(ctx)
	if err != nil {
		return models.Profile{}, err
	}
	return resolve(actors, name)
}

func resolve(actors []models.Profile, name string) (models.Profile, error) {
	needle := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(name), "@")))
	if needle == "" {
		return models.Profile{}, ErrNotFound
	}

	var exact, partial []models.Profile
	for _, p := range actors {
		hay := strings.ToLower(p.Name)
		switch {
		case hay == needle:
			exact = append(exact, p)
		case strings.Contains(hay, needle):
			partial = append(partial, p)
		}
	}
	if len(exact) == 1 {
		return exact[0], nil
	}
	if len(exact) > 1 {
		return models.Profile{}, ErrAmbiguous
	}
	switch len(partial) {
	case 0:
		return models.Profile{}, ErrNotFound
	case 1:
		return partial[0], nil
	}
	return models.Profile{}, ErrAmbiguous
}
