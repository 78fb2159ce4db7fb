package geo

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/airwatch/internal/cache"
	"github.com/ppiankov/airwatch/internal/model"
)

// fakeGeocoder answers from a table and counts calls
type fakeGeocoder struct {
	mu       sync.Mutex
	calls    map[string]int
	answers  map[string]model.Coordinates
	failures map[string]error
	delay    map[string]time.Duration

	active    int32
	maxActive int32
}

func newFakeGeocoder() *fakeGeocoder {
	return &fakeGeocoder{
		calls:    make(map[string]int),
		answers:  make(map[string]model.Coordinates),
		failures: make(map[string]error),
		delay:    make(map[string]time.Duration),
	}
}

func (f *fakeGeocoder) Name() string { return "fake" }

func (f *fakeGeocoder) Geocode(ctx context.Context, q Query) (model.Coordinates, error) {
	n := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		m := atomic.LoadInt32(&f.maxActive)
		if n <= m || atomic.CompareAndSwapInt32(&f.maxActive, m, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls[q.City]++
	coords, found := f.answers[q.City]
	failure := f.failures[q.City]
	delay := f.delay[q.City]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return model.Coordinates{}, ctx.Err()
		}
	}
	if failure != nil {
		return model.Coordinates{}, failure
	}
	if !found {
		return model.Coordinates{}, ErrNotFound
	}
	return coords, nil
}

func (f *fakeGeocoder) callCount(city string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[city]
}

func (f *fakeGeocoder) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func event(city, region string) model.Event {
	return model.Event{Threat: model.ThreatUAV, City: city, Region: region}
}

func newTestEnricher(g Geocoder, cfg Config, hooks Hooks) *Enricher {
	return NewEnricher(g, nil, cfg, hooks, zerolog.Nop())
}

func TestEnrichBatch_ResolvesAndCaches(t *testing.T) {
	g := newFakeGeocoder()
	g.answers["Полтава"] = model.Coordinates{Lat: 49.59, Lon: 34.55}
	e := newTestEnricher(g, Config{Workers: 2, Timeout: time.Second}, Hooks{})

	out := e.EnrichBatch(context.Background(), []model.Event{event("Полтава", "Полтавська обл.")})
	if out[0].Coordinates == nil || out[0].Coordinates.Lat != 49.59 {
		t.Fatalf("expected coordinates, got %+v", out[0].Coordinates)
	}

	out = e.EnrichBatch(context.Background(), []model.Event{event("Полтава", "Полтавська обл.")})
	if out[0].Coordinates == nil {
		t.Fatal("expected cached coordinates on second batch")
	}
	if n := g.callCount("Полтава"); n != 1 {
		t.Errorf("expected 1 geocoder call, got %d", n)
	}
}

func TestEnrichBatch_SameLocationLookedUpOnce(t *testing.T) {
	g := newFakeGeocoder()
	g.answers["Суми"] = model.Coordinates{Lat: 50.91, Lon: 34.80}
	e := newTestEnricher(g, Config{Workers: 4, Timeout: time.Second}, Hooks{})

	batch := []model.Event{event("Суми", "Сумська обл."), event("суми", "сумська обл."), event("Суми", "Сумська обл.")}
	out := e.EnrichBatch(context.Background(), batch)
	for i, ev := range out {
		if ev.Coordinates == nil {
			t.Errorf("event %d not enriched", i)
		}
	}
	if n := g.totalCalls(); n != 1 {
		t.Errorf("expected 1 geocoder call, got %d", n)
	}
}

func TestEnrichBatch_PartialFailure(t *testing.T) {
	g := newFakeGeocoder()
	g.answers["Полтава"] = model.Coordinates{Lat: 49.59, Lon: 34.55}
	g.answers["Харків"] = model.Coordinates{Lat: 49.99, Lon: 36.23}
	g.delay["Харків"] = 2 * time.Second
	g.failures["Одеса"] = errors.New("connection reset")

	var mu sync.Mutex
	outcomes := make(map[string]int)
	hooks := Hooks{OnLookup: func(o string) {
		mu.Lock()
		outcomes[o]++
		mu.Unlock()
	}}
	e := newTestEnricher(g, Config{Workers: 3, Timeout: 50 * time.Millisecond}, hooks)

	batch := []model.Event{event("Полтава", ""), event("Харків", ""), event("Одеса", ""), event("Нідечево", "")}
	start := time.Now()
	out := e.EnrichBatch(context.Background(), batch)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("batch took %v, slow lookup not bounded by timeout", elapsed)
	}

	if len(out) != len(batch) {
		t.Fatalf("expected %d events, got %d", len(batch), len(out))
	}
	if out[0].Coordinates == nil {
		t.Error("Полтава should be enriched")
	}
	for _, i := range []int{1, 2, 3} {
		if out[i].Coordinates != nil {
			t.Errorf("event %d (%s) should have no coordinates", i, out[i].City)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	want := map[string]int{OutcomeResolved: 1, OutcomeTimeout: 1, OutcomeError: 1, OutcomeNotFound: 1}
	for k, v := range want {
		if outcomes[k] != v {
			t.Errorf("outcome %s = %d, want %d (all: %v)", k, outcomes[k], v, outcomes)
		}
	}
}

func TestEnrichBatch_FailuresAreRetriedNextBatch(t *testing.T) {
	g := newFakeGeocoder()
	g.failures["Одеса"] = errors.New("503")
	e := newTestEnricher(g, Config{Workers: 1, Timeout: time.Second}, Hooks{})

	e.EnrichBatch(context.Background(), []model.Event{event("Одеса", "")})

	g.mu.Lock()
	delete(g.failures, "Одеса")
	g.answers["Одеса"] = model.Coordinates{Lat: 46.48, Lon: 30.72}
	g.mu.Unlock()

	out := e.EnrichBatch(context.Background(), []model.Event{event("Одеса", "")})
	if out[0].Coordinates == nil {
		t.Error("transient failure should not be cached")
	}
	if n := g.callCount("Одеса"); n != 2 {
		t.Errorf("expected 2 calls, got %d", n)
	}
}

func TestEnrichBatch_NegativeCache(t *testing.T) {
	g := newFakeGeocoder()
	e := newTestEnricher(g, Config{Workers: 1, Timeout: time.Second, NegativeTTL: time.Hour}, Hooks{})

	e.EnrichBatch(context.Background(), []model.Event{event("Нідечево", "")})
	e.EnrichBatch(context.Background(), []model.Event{event("Нідечево", "")})
	if n := g.callCount("Нідечево"); n != 1 {
		t.Errorf("expected not-found answer to be cached, got %d calls", n)
	}
}

func TestEnrichBatch_BoundedConcurrency(t *testing.T) {
	g := newFakeGeocoder()
	var batch []model.Event
	for _, city := range []string{"Київ", "Львів", "Дніпро", "Запоріжжя", "Херсон", "Миколаїв", "Чернігів", "Житомир"} {
		g.answers[city] = model.Coordinates{Lat: 1, Lon: 1}
		g.delay[city] = 20 * time.Millisecond
		batch = append(batch, event(city, ""))
	}
	e := newTestEnricher(g, Config{Workers: 2, Timeout: time.Second}, Hooks{})

	out := e.EnrichBatch(context.Background(), batch)
	for i, ev := range out {
		if ev.Coordinates == nil {
			t.Errorf("event %d not enriched", i)
		}
	}
	if m := atomic.LoadInt32(&g.maxActive); m > 2 {
		t.Errorf("expected at most 2 concurrent lookups, saw %d", m)
	}
}

func TestEnrichBatch_UsesPersistentLayer(t *testing.T) {
	g := newFakeGeocoder()
	g.answers["Полтава"] = model.Coordinates{Lat: 49.59, Lon: 34.55}
	persistent := cache.NewMemoryCache(cache.NoExpiration, 0)

	first := NewEnricher(g, cache.NewLayeredCache(cache.NewMemoryCache(cache.NoExpiration, 0), persistent), Config{Workers: 1}, Hooks{}, zerolog.Nop())
	first.EnrichBatch(context.Background(), []model.Event{event("Полтава", "")})

	second := NewEnricher(g, cache.NewLayeredCache(cache.NewMemoryCache(cache.NoExpiration, 0), persistent), Config{Workers: 1}, Hooks{}, zerolog.Nop())
	out := second.EnrichBatch(context.Background(), []model.Event{event("Полтава", "")})
	if out[0].Coordinates == nil {
		t.Fatal("expected coordinates from the persistent layer")
	}
	if n := g.callCount("Полтава"); n != 1 {
		t.Errorf("expected 1 call across restarts, got %d", n)
	}
}

func TestEnrichBatch_NilGeocoder(t *testing.T) {
	e := newTestEnricher(nil, Config{}, Hooks{})
	in := []model.Event{event("Полтава", "")}
	out := e.EnrichBatch(context.Background(), in)
	if len(out) != 1 || out[0].Coordinates != nil {
		t.Errorf("expected unchanged events, got %+v", out)
	}
}
