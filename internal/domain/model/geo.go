package model

// LatLng 緯度経度を表す基本的な型
type LatLng struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// District スキャン対象地区の境界と中心点
type District struct {
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"` // プロンプトに埋め込む表示名
	North       float64 `json:"north"`
	South       float64 `json:"south"`
	West        float64 `json:"west"`
	East        float64 `json:"east"`
	Center      LatLng  `json:"center"` // 店舗名解決の検索中心点
}
