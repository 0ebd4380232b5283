package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/wayfound/internal/core/domain"
	"github.com/samirrijal/wayfound/internal/core/ports"
	"github.com/samirrijal/wayfound/internal/core/usecases"
)

type memCache struct {
	data map[string][]byte
	sets int
}

var errCacheMiss = errors.New("miss")

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}}
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := c.data[key]; ok {
		return v, nil
	}
	return nil, errCacheMiss
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	c.sets++
	c.data[key] = append([]byte(nil), value...)
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	delete(c.data, key)
	return nil
}

func TestGetDetailsCacheAside(t *testing.T) {
	calls := 0
	var langs []string
	resolver := &mockResolver{
		detailsFn: func(ctx context.Context, placeID, language string, profile ports.FieldProfile) (*domain.StandardPlace, error) {
			calls++
			langs = append(langs, language)
			if profile != ports.ProfileDetailsFull {
				t.Errorf("profile = %q, want %q", profile, ports.ProfileDetailsFull)
			}
			p := stdPlace("p1", "restaurant", "restaurant")
			return &p, nil
		},
	}
	cache := newMemCache()
	svc := usecases.NewPlaceService(resolver, cache, "en")
	ctx := context.Background()

	first, err := svc.GetDetails(ctx, "p1", "")
	if err != nil {
		t.Fatalf("GetDetails: %v", err)
	}
	second, err := svc.GetDetails(ctx, "p1", "")
	if err != nil {
		t.Fatalf("GetDetails (cached): %v", err)
	}

	if calls != 1 {
		t.Errorf("resolver hit %d times, want 1 (second read from cache)", calls)
	}
	if len(langs) > 0 && langs[0] != "en" {
		t.Errorf("language = %q, want default en", langs[0])
	}
	if first.PlaceID != second.PlaceID || first.Name != second.Name {
		t.Error("cached copy differs from resolved place")
	}

	// A different language is a different cache entry.
	if _, err := svc.GetDetails(ctx, "p1", "es"); err != nil {
		t.Fatalf("GetDetails(es): %v", err)
	}
	if calls != 2 {
		t.Errorf("resolver hit %d times after language switch, want 2", calls)
	}
}

func TestGetDetailsResolverFailure(t *testing.T) {
	resolver := &mockResolver{} // details defaults to ErrPlacesUnavailable
	svc := usecases.NewPlaceService(resolver, newMemCache(), "en")

	if _, err := svc.GetDetails(context.Background(), "p1", ""); !errors.Is(err, domain.ErrPlacesUnavailable) {
		t.Fatalf("expected ErrPlacesUnavailable, got %v", err)
	}
}
