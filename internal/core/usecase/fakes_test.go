package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/plant-id-assistant/internal/core/domain"
)

func testCatalog(t *testing.T) *domain.Catalog {
	t.Helper()
	catalog, err := domain.NewCatalog([]domain.CatalogEntry{
		{Species: "monstera", Features: []string{"split leaf", "swiss cheese", "large leaves", "tropical", "holes", "fenestration"}},
		{Species: "snake plant", Features: []string{"upright", "sword-like", "vertical", "striped"}},
		{Species: "pothos", Features: []string{"trailing", "heart-shaped", "vine"}},
		{Species: "peace lily", Features: []string{"white flower", "dark green", "spadix"}},
		{Species: "fiddle leaf fig", Features: []string{"violin-shaped", "large leaves", "tropical"}},
		{Species: "zz plant", Features: []string{"dark green", "glossy", "stems"}},
		{Species: "philodendron", Features: []string{"heart-shaped", "climbing", "tropical"}},
		{Species: "spider plant", Features: []string{"arching leaves", "striped", "babies"}},
		{Species: "aloe vera", Features: []string{"succulent", "spiky", "medicinal"}},
		{Species: "rubber plant", Features: []string{"burgundy", "thick leaves", "rubber"}},
	}, []string{
		"plant", "terrestrial plant", "vascular plant", "flowering plant", "houseplant",
		"indoor plant", "potted plant", "garden", "nature", "flora",
	})
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	return catalog
}

type enricherFake struct {
	mu       sync.Mutex
	queries  []string
	results  map[string]domain.Enrichment
	errs     map[string]error
	panics   map[string]bool
	delays   map[string]time.Duration
	barrier  int
	started  int
	released chan struct{}
}

func (f *enricherFake) Enrich(ctx context.Context, query string) (domain.Enrichment, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.started++
	if f.barrier > 0 && f.started == f.barrier {
		close(f.released)
	}
	f.mu.Unlock()

	if f.barrier > 0 {
		select {
		case <-f.released:
		case <-time.After(time.Second):
			return domain.Enrichment{}, errors.New("enrichment calls are not concurrent")
		}
	}
	if d := f.delays[query]; d > 0 {
		time.Sleep(d)
	}
	if f.panics[query] {
		panic("enricher exploded")
	}
	if err := f.errs[query]; err != nil {
		return domain.Enrichment{}, err
	}
	return f.results[query], nil
}

func (f *enricherFake) seenQueries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.queries))
	copy(out, f.queries)
	return out
}

type searcherFake struct {
	mu        sync.Mutex
	pages     []domain.WebPage
	images    []domain.ImageHit
	webErr    error
	imageErr  error
	webCalls  int
	imageCall int
}

func (f *searcherFake) SearchWeb(_ context.Context, _ string, _ int) ([]domain.WebPage, error) {
	f.mu.Lock()
	f.webCalls++
	f.mu.Unlock()
	if f.webErr != nil {
		return nil, f.webErr
	}
	return f.pages, nil
}

func (f *searcherFake) SearchImages(_ context.Context, _ string, _ int) ([]domain.ImageHit, error) {
	f.mu.Lock()
	f.imageCall++
	f.mu.Unlock()
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	return f.images, nil
}

type cacheFake struct {
	mu     sync.Mutex
	values map[string]domain.Enrichment
	sets   int
}

func (f *cacheFake) Get(_ context.Context, key string) (domain.Enrichment, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	return v, ok
}

func (f *cacheFake) Set(_ context.Context, key string, value domain.Enrichment, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.values == nil {
		f.values = map[string]domain.Enrichment{}
	}
	f.values[key] = value
	f.sets++
}

type classifierFake struct {
	responses []*domain.ClassifierResponse
	errs      []error
	calls     int
}

func (f *classifierFake) Classify(context.Context, []byte) (*domain.ClassifierResponse, error) {
	idx := f.calls
	f.calls++
	var resp *domain.ClassifierResponse
	var err error
	if idx < len(f.responses) {
		resp = f.responses[idx]
	}
	if idx < len(f.errs) {
		err = f.errs[idx]
	}
	return resp, err
}

type visionFake struct {
	description *domain.VisionDescription
	err         error
	calls       int
}

func (f *visionFake) Describe(context.Context, []byte) (*domain.VisionDescription, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.description, nil
}

type storageFake struct {
	saved map[string][]byte
	err   error
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if f.saved == nil {
		f.saved = map[string][]byte{}
	}
	f.saved[key] = raw
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := f.saved[key]
	if !ok {
		return nil, errors.New("missing")
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

type queueFake struct {
	events []domain.IdentificationRecorded
	err    error
}

func (f *queueFake) PublishIdentificationRecorded(_ context.Context, event domain.IdentificationRecorded) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *queueFake) SubscribeIdentificationRecorded(context.Context, func(context.Context, domain.IdentificationRecorded) error) error {
	return nil
}

type historyStoreFake struct {
	saved      []*domain.HistoryRecord
	records    []domain.HistoryRecord
	total      int
	offset     int
	limit      int
	byID       map[string]*domain.HistoryRecord
	err        error
	lastUserID string
}

func (f *historyStoreFake) Save(_ context.Context, record *domain.HistoryRecord) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, record)
	return nil
}

func (f *historyStoreFake) ListByUser(_ context.Context, userID string, offset, limit int) ([]domain.HistoryRecord, int, error) {
	f.lastUserID = userID
	f.offset = offset
	f.limit = limit
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.records, f.total, nil
}

func (f *historyStoreFake) GetByID(_ context.Context, userID, id string) (*domain.HistoryRecord, error) {
	f.lastUserID = userID
	if f.err != nil {
		return nil, f.err
	}
	record, ok := f.byID[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrRecordNotFound, "get history", errors.New(id))
	}
	return record, nil
}

type careGeneratorFake struct {
	req   domain.CareRequest
	guide domain.CareGuide
	err   error
}

func (f *careGeneratorFake) GenerateCareGuide(_ context.Context, req domain.CareRequest) (domain.CareGuide, error) {
	f.req = req
	if f.err != nil {
		return domain.CareGuide{}, f.err
	}
	return f.guide, nil
}
