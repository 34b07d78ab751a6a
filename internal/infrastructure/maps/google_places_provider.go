package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"GoldEater/internal/domain/model"
)

const placesPlatform = "places"

// cuisineByType はPlacesの type から料理ジャンルへのマッピング
var cuisineByType = map[string]string{
	"chinese_restaurant":    "Chinese",
	"japanese_restaurant":   "Japanese",
	"italian_restaurant":    "Italian",
	"french_restaurant":     "French",
	"indian_restaurant":     "Indian",
	"thai_restaurant":       "Thai",
	"mexican_restaurant":    "Mexican",
	"korean_restaurant":     "Korean",
	"vietnamese_restaurant": "Vietnamese",
}

// CellIndexer は座標からグリッドのH3インデックスを求める
type CellIndexer func(model.LatLng) string

// GooglePlacesProvider はGoogle Places API (Text Search + Details) による店舗名解決の実装
type GooglePlacesProvider struct {
	apiKey       string
	baseURL      string
	radiusMeters int
	placeType    string
	cellIndexer  CellIndexer
	httpClient   *http.Client
	logger       *zap.Logger
}

// PlacesOptions はGooglePlacesProviderの設定
type PlacesOptions struct {
	APIKey       string
	BaseURL      string
	RadiusMeters int
	PlaceType    string
	Timeout      time.Duration
	CellIndexer  CellIndexer
	Logger       *zap.Logger
}

// NewGooglePlacesProvider は新しいプロバイダを生成する
func NewGooglePlacesProvider(opts PlacesOptions) *GooglePlacesProvider {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://maps.googleapis.com/maps/api/place"
	}
	if opts.RadiusMeters <= 0 {
		opts.RadiusMeters = 500
	}
	if opts.PlaceType == "" {
		opts.PlaceType = "restaurant"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &GooglePlacesProvider{
		apiKey:       opts.APIKey,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		radiusMeters: opts.RadiusMeters,
		placeType:    opts.PlaceType,
		cellIndexer:  opts.CellIndexer,
		httpClient:   &http.Client{Timeout: opts.Timeout},
		logger:       opts.Logger,
	}
}

// Resolve は店舗名をアンカー周辺で検索し、最初の候補を Business として返す。
// 候補が無ければ ErrPlaceNotFound。詳細取得の失敗は解決自体を失敗させない。
func (g *GooglePlacesProvider) Resolve(ctx context.Context, name string, anchor model.LatLng) (*model.Business, error) {
	// 1. テキスト検索
	params := url.Values{}
	params.Add("query", name)
	params.Add("location", fmt.Sprintf("%s,%s", formatCoord(anchor.Lat), formatCoord(anchor.Lng)))
	params.Add("radius", strconv.Itoa(g.radiusMeters))
	params.Add("type", g.placeType)
	params.Add("key", g.apiKey)

	var search textSearchResponse
	if err := g.get(ctx, "/textsearch/json", params, &search); err != nil {
		return nil, err
	}
	if search.Status == "ZERO_RESULTS" || (search.Status == "OK" && len(search.Results) == 0) {
		return nil, model.ErrPlaceNotFound
	}
	if search.Status != "OK" {
		return nil, placesStatusError("text search", search.Status, search.ErrorMessage)
	}

	// 2. ドメインモデルに変換
	place := search.Results[0]
	business := &model.Business{
		GooglePlaceID: place.PlaceID,
		OfficialName:  place.Name,
		Address:       place.FormattedAddress,
		Lat:           place.Geometry.Location.Lat,
		Lng:           place.Geometry.Location.Lng,
		PriceRange:    priceLevelToRange(place.PriceLevel),
		Category:      primaryType(place.Types),
		AITags:        []string{},
	}
	if g.cellIndexer != nil {
		business.H3Index = g.cellIndexer(business.Location())
	}

	// 3. 詳細から料理ジャンルを補完
	cuisine, err := g.lookupCuisine(ctx, place.PlaceID)
	if err != nil {
		g.logger.Warn("place details lookup failed", zap.String("place_id", place.PlaceID), zap.Error(err))
	}
	business.Cuisine = cuisine

	return business, nil
}

func (g *GooglePlacesProvider) lookupCuisine(ctx context.Context, placeID string) (*string, error) {
	params := url.Values{}
	params.Add("place_id", placeID)
	params.Add("fields", "name,formatted_address,geometry,types,price_level,rating,user_ratings_total")
	params.Add("key", g.apiKey)

	var details detailsResponse
	if err := g.get(ctx, "/details/json", params, &details); err != nil {
		return nil, err
	}
	if details.Status != "OK" {
		return nil, placesStatusError("details", details.Status, details.ErrorMessage)
	}
	for _, t := range details.Result.Types {
		if cuisine, ok := cuisineByType[t]; ok {
			return &cuisine, nil
		}
	}
	return nil, nil
}

func (g *GooglePlacesProvider) get(ctx context.Context, path string, params url.Values, out any) error {
	reqURL := g.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return model.NewProviderError(placesPlatform, http.StatusBadRequest, fmt.Errorf("リクエストの作成に失敗: %w", err))
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return model.NewProviderError(placesPlatform, 0, fmt.Errorf("APIリクエストに失敗: %w", redactKey(err, g.apiKey)))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.NewProviderError(placesPlatform, resp.StatusCode, fmt.Errorf("APIからエラーステータスが返されました: %s", resp.Status))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return model.NewProviderError(placesPlatform, resp.StatusCode, fmt.Errorf("JSONのパースに失敗: %w", err))
	}
	return nil
}

// placesStatusError は Places API の status フィールドを ProviderError に変換する
func placesStatusError(op, status, message string) error {
	code := http.StatusBadRequest
	switch status {
	case "OVER_QUERY_LIMIT":
		code = http.StatusTooManyRequests
	case "UNKNOWN_ERROR":
		code = http.StatusInternalServerError
	case "REQUEST_DENIED":
		code = http.StatusForbidden
	case "NOT_FOUND":
		code = http.StatusNotFound
	}
	return model.NewProviderError(placesPlatform, code, fmt.Errorf("%s: %s %s", op, status, message))
}

func priceLevelToRange(level *int) *string {
	if level == nil || *level < 1 || *level > 4 {
		return nil
	}
	s := strings.Repeat("$", *level)
	return &s
}

func primaryType(types []string) *string {
	for _, t := range types {
		if t == "point_of_interest" || t == "establishment" || t == "food" {
			continue
		}
		return &t
	}
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// redactKey はURLを含むエラーからAPIキーを取り除く
func redactKey(err error, key string) error {
	if key == "" {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(err.Error(), key, "REDACTED"))
}

// Google Places APIのレスポンスをパースするための内部的な構造体
type textSearchResponse struct {
	Status       string        `json:"status"`
	ErrorMessage string        `json:"error_message"`
	Results      []placeResult `json:"results"`
}

type placeResult struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address"`
	Types            []string `json:"types"`
	PriceLevel       *int     `json:"price_level"`
	Rating           float64  `json:"rating"`
	Geometry         struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

type detailsResponse struct {
	Status       string      `json:"status"`
	ErrorMessage string      `json:"error_message"`
	Result       placeResult `json:"result"`
}
