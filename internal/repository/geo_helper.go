package repository

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"GoldEater/internal/domain/model"
)

// BusinessToFeature 店舗を GeoJSON の Point Feature に変換
func BusinessToFeature(b model.Business) *geojson.Feature {
	// orb.Point は [lng, lat] の順
	f := geojson.NewFeature(orb.Point{b.Lng, b.Lat})
	f.ID = b.ID
	f.Properties["google_place_id"] = b.GooglePlaceID
	f.Properties["name"] = b.OfficialName
	f.Properties["address"] = b.Address
	f.Properties["district"] = b.District
	if b.H3Index != "" {
		f.Properties["h3_index"] = b.H3Index
	}
	if b.Cuisine != nil {
		f.Properties["cuisine"] = *b.Cuisine
	}
	if b.PriceRange != nil {
		f.Properties["price_range"] = *b.PriceRange
	}
	return f
}

// BusinessesToFeatureCollection 店舗一覧を地図表示用の FeatureCollection に変換
func BusinessesToFeatureCollection(businesses []model.Business) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, b := range businesses {
		fc.Append(BusinessToFeature(b))
	}
	if bound, ok := BusinessesBound(businesses); ok {
		fc.BBox = geojson.NewBBox(bound)
	}
	return fc
}

// BusinessesBound 店舗群を囲む境界ボックス。空なら ok=false。
func BusinessesBound(businesses []model.Business) (orb.Bound, bool) {
	if len(businesses) == 0 {
		return orb.Bound{}, false
	}
	bound := orb.Point{businesses[0].Lng, businesses[0].Lat}.Bound()
	for _, b := range businesses[1:] {
		bound = bound.Extend(orb.Point{b.Lng, b.Lat})
	}
	return bound, true
}
