package service

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/uber/h3-go/v4"
	"go.uber.org/zap"

	"GoldEater/internal/domain/model"
)

// DistrictSource は地区名から境界情報を取得する
type DistrictSource interface {
	District(name string) (model.District, error)
}

// GridGenerator は地区の境界矩形をH3セルで敷き詰める
type GridGenerator struct {
	districts  DistrictSource
	resolution int
	logger     *zap.Logger
}

// NewGridGenerator は新しいGridGeneratorを作成
func NewGridGenerator(districts DistrictSource, resolution int, logger *zap.Logger) *GridGenerator {
	if resolution <= 0 {
		resolution = model.DefaultH3Resolution
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GridGenerator{
		districts:  districts,
		resolution: resolution,
		logger:     logger,
	}
}

// Generate は地区名からグリッドを生成する。未知の地区は ConfigError。
func (g *GridGenerator) Generate(district string) ([]model.GridCell, error) {
	d, err := g.districts.District(district)
	if err != nil {
		return nil, err
	}
	return g.GenerateForDistrict(d)
}

// GenerateForDistrict は境界矩形を覆うH3セルをインデックス順で返す。
// 同じ境界からは常に同じ結果になる。
func (g *GridGenerator) GenerateForDistrict(d model.District) ([]model.GridCell, error) {
	if d.North <= d.South || d.East <= d.West {
		return nil, model.NewConfigError("districts", fmt.Sprintf("district %q has an empty bounding box", d.Name), nil)
	}

	bound := orb.Bound{
		Min: orb.Point{d.West, d.South},
		Max: orb.Point{d.East, d.North},
	}
	polygon := h3.GeoPolygon{GeoLoop: ringToGeoLoop(bound.ToRing())}

	cells := h3.PolygonToCells(polygon, g.resolution)

	seen := make(map[string]struct{}, len(cells))
	grid := make([]model.GridCell, 0, len(cells))
	for _, cell := range cells {
		index := cell.String()
		if _, dup := seen[index]; dup {
			continue
		}
		seen[index] = struct{}{}

		center := cell.LatLng()
		grid = append(grid, model.GridCell{
			H3Index:   index,
			CenterLat: center.Lat,
			CenterLng: center.Lng,
		})
	}
	sort.Slice(grid, func(i, j int) bool { return grid[i].H3Index < grid[j].H3Index })

	g.logger.Debug("grid generated",
		zap.String("district", d.Name),
		zap.Int("resolution", g.resolution),
		zap.Int("cells", len(grid)))
	return grid, nil
}

// CellForLocation は座標を含むセルのインデックスを返す
func (g *GridGenerator) CellForLocation(loc model.LatLng) string {
	return h3.LatLngToCell(h3.NewLatLng(loc.Lat, loc.Lng), g.resolution).String()
}

// ringToGeoLoop は閉じたorbリングをH3のループ（終点の重複なし）に変換する
func ringToGeoLoop(ring orb.Ring) h3.GeoLoop {
	if ring.Closed() {
		ring = ring[:len(ring)-1]
	}
	loop := make(h3.GeoLoop, 0, len(ring))
	for _, p := range ring {
		loop = append(loop, h3.NewLatLng(p.Lat(), p.Lon()))
	}
	return loop
}
