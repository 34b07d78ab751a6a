package maps

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"GoldEater/internal/domain/model"
	"GoldEater/internal/domain/repository"
	"GoldEater/internal/infrastructure/cache"
	"GoldEater/internal/metrics"
)

// kvCache はキャッシュ層に必要な操作
type kvCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type cachedPlace struct {
	NotFound bool            `json:"not_found,omitempty"`
	Business *model.Business `json:"business,omitempty"`
}

// CachedPlacesProvider は名前解決結果をキャッシュするデコレータ。
// 見つからなかった名前もキャッシュし、同じ幻覚名で何度もAPIを呼ばない。
// キーは名前を小文字化・前後空白除去して作るため、LocationResolver が完全一致で
// 別名として扱う表記揺れ ("Bistro X" と "bistro x ") は同じキャッシュ値を共有する。
type CachedPlacesProvider struct {
	inner  repository.PlacesProvider
	cache  kvCache
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedPlacesProvider は新しいCachedPlacesProviderを作成
func NewCachedPlacesProvider(inner repository.PlacesProvider, c kvCache, prefix string, ttl time.Duration, logger *zap.Logger) *CachedPlacesProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedPlacesProvider{
		inner:  inner,
		cache:  c,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

// Resolve implements repository.PlacesProvider
func (p *CachedPlacesProvider) Resolve(ctx context.Context, name string, anchor model.LatLng) (*model.Business, error) {
	key := p.cacheKey(name, anchor)

	if entry, ok := p.get(ctx, key); ok {
		metrics.PlacesCacheTotal.WithLabelValues("hit").Inc()
		if entry.NotFound || entry.Business == nil {
			return nil, model.ErrPlaceNotFound
		}
		return entry.Business, nil
	}
	metrics.PlacesCacheTotal.WithLabelValues("miss").Inc()

	business, err := p.inner.Resolve(ctx, name, anchor)
	switch {
	case errors.Is(err, model.ErrPlaceNotFound):
		p.put(ctx, key, cachedPlace{NotFound: true})
		return nil, err
	case err != nil:
		return nil, err
	}

	p.put(ctx, key, cachedPlace{Business: business})
	return business, nil
}

func (p *CachedPlacesProvider) cacheKey(name string, anchor model.LatLng) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%.5f|%.5f", strings.ToLower(strings.TrimSpace(name)), anchor.Lat, anchor.Lng)))
	return p.prefix + hex.EncodeToString(h[:])
}

func (p *CachedPlacesProvider) get(ctx context.Context, key string) (cachedPlace, bool) {
	data, err := p.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			p.logger.Warn("failed to read places cache", zap.String("key", key), zap.Error(err))
		}
		return cachedPlace{}, false
	}

	var entry cachedPlace
	if err := json.Unmarshal(data, &entry); err != nil {
		p.logger.Warn("failed to parse cached place", zap.String("key", key), zap.Error(err))
		return cachedPlace{}, false
	}
	return entry, true
}

func (p *CachedPlacesProvider) put(ctx context.Context, key string, entry cachedPlace) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := p.cache.Set(ctx, key, data, p.ttl); err != nil {
		p.logger.Warn("failed to write places cache", zap.String("key", key), zap.Error(err))
	}
}
