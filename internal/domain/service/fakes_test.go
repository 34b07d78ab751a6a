package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"GoldEater/internal/domain/model"
)

var surryHills = model.District{
	Name:        "surry_hills",
	DisplayName: "Surry Hills",
	North:       -33.875,
	South:       -33.895,
	West:        151.205,
	East:        151.225,
	Center:      model.LatLng{Lat: -33.885, Lng: 151.215},
}

type staticDistricts map[string]model.District

func (s staticDistricts) District(name string) (model.District, error) {
	d, ok := s[name]
	if !ok {
		return model.District{}, model.NewConfigError("districts", fmt.Sprintf("district %q is not configured", name), model.ErrUnknownDistrict)
	}
	return d, nil
}

// fakeProvider は WorkItem ごとに固定の店舗名を返す
type fakeProvider struct {
	platform string
	names    []string
	failOn   func(model.WorkItem) error
	panicOn  func(model.WorkItem) bool
	delay    time.Duration

	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	ctxErrs  atomic.Int32
}

func (p *fakeProvider) Platform() string { return p.platform }

func (p *fakeProvider) Scan(ctx context.Context, item model.WorkItem) (*model.ScanOutcome, error) {
	p.calls.Add(1)
	n := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		cur := p.maxSeen.Load()
		if n <= cur || p.maxSeen.CompareAndSwap(cur, n) {
			break
		}
	}

	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if ctx.Err() != nil {
		p.ctxErrs.Add(1)
	}
	if p.panicOn != nil && p.panicOn(item) {
		panic("boom")
	}
	if p.failOn != nil {
		if err := p.failOn(item); err != nil {
			return nil, err
		}
	}

	job := model.ScanJob{
		ID:         fmt.Sprintf("%s-%s", p.platform, item.Key()),
		H3Index:    item.Cell.H3Index,
		District:   item.District,
		PromptType: item.PromptType,
		Platform:   p.platform,
		RunID:      item.RunID,
		TapNumber:  item.TapNumber,
	}
	results := make([]model.ScanResult, 0, len(p.names))
	for i, name := range p.names {
		results = append(results, model.ScanResult{
			ID:           fmt.Sprintf("%s-%d", job.ID, i),
			JobID:        job.ID,
			RawName:      name,
			RankPosition: i + 1,
		})
	}
	return &model.ScanOutcome{Job: job, Results: results}, nil
}

// fakePlaces は名前ごとの応答を返し、呼び出しを記録する
type fakePlaces struct {
	mu       sync.Mutex
	calls    []string
	anchors  []model.LatLng
	known    map[string]*model.Business
	failures map[string]error
}

func (f *fakePlaces) Resolve(_ context.Context, name string, anchor model.LatLng) (*model.Business, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.anchors = append(f.anchors, anchor)
	f.mu.Unlock()

	if err, ok := f.failures[name]; ok {
		return nil, err
	}
	b, ok := f.known[name]
	if !ok {
		return nil, model.ErrPlaceNotFound
	}
	cp := *b
	return &cp, nil
}

type fakeUpserter struct {
	mu    sync.Mutex
	saved []*model.Business
	err   error
}

func (f *fakeUpserter) UpsertBusiness(_ context.Context, b *model.Business) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.saved = append(f.saved, b)
	return "biz-" + b.GooglePlaceID, nil
}

var errRateLimited = model.NewProviderError(model.PlatformChatGPT, 429, errors.New("rate limited"))

func testCells(n int) []model.GridCell {
	cells := make([]model.GridCell, n)
	for i := range cells {
		cells[i] = model.GridCell{
			H3Index:   fmt.Sprintf("8abe0e35a%03dfff", i),
			CenterLat: -33.885 + float64(i)*0.001,
			CenterLng: 151.215,
		}
	}
	return cells
}
