package model

// Business 店舗の標準プロファイル（google_place_idで一意）
type Business struct {
	ID            string   `json:"id"`
	GooglePlaceID string   `json:"google_place_id"`
	OfficialName  string   `json:"official_name"`
	Address       string   `json:"address"`
	Lat           float64  `json:"lat"`
	Lng           float64  `json:"lng"`
	District      string   `json:"district"`
	H3Index       string   `json:"h3_index,omitempty"`
	Cuisine       *string  `json:"cuisine,omitempty"`
	Category      *string  `json:"category,omitempty"`
	PriceRange    *string  `json:"price_range,omitempty"`
	Description   *string  `json:"description,omitempty"`
	AITags        []string `json:"ai_tags"`
}

// Location 店舗の位置をLatLng形式で取得
func (b *Business) Location() LatLng {
	return LatLng{Lat: b.Lat, Lng: b.Lng}
}
