package model

import "fmt"

// GridCell 地区を敷き詰めるH3六角形セル
type GridCell struct {
	H3Index   string  `json:"h3_index"`   // H3セル識別子
	CenterLat float64 `json:"center_lat"` // セル中心の緯度
	CenterLng float64 `json:"center_lng"` // セル中心の経度
}

// Center セル中心をLatLng形式で取得
func (c GridCell) Center() LatLng {
	return LatLng{Lat: c.CenterLat, Lng: c.CenterLng}
}

// ShortIndex 進捗表示用の短縮インデックス
func (c GridCell) ShortIndex() string {
	if len(c.H3Index) <= 8 {
		return c.H3Index
	}
	return fmt.Sprintf("%s...", c.H3Index[:8])
}
