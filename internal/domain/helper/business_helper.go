package helper

import (
	"math"
	"sort"
	"strings"

	"GoldEater/internal/domain/model"
)

const earthRadiusKm = 6371.0

// HaversineDistance は2地点間の距離を計算する (km)
func HaversineDistance(p1, p2 model.LatLng) float64 {
	lat1 := p1.Lat * math.Pi / 180
	lng1 := p1.Lng * math.Pi / 180
	lat2 := p2.Lat * math.Pi / 180
	lng2 := p2.Lng * math.Pi / 180
	dLat := lat2 - lat1
	dLng := lng2 - lng1
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// SortBusinessesByDistance は基準座標からの距離で店舗スライスをソートする
func SortBusinessesByDistance(origin model.LatLng, targets []*model.Business) {
	sort.SliceStable(targets, func(i, j int) bool {
		return HaversineDistance(origin, targets[i].Location()) < HaversineDistance(origin, targets[j].Location())
	})
}

// DistinctRawNames は結果から重複のない店舗名を抽出する。
// 空文字・空白のみの名前は除外し、完全一致で重複判定する。結果はソート済み。
func DistinctRawNames(results []model.ScanResult) []string {
	seen := make(map[string]struct{})
	for _, r := range results {
		if strings.TrimSpace(r.RawName) == "" {
			continue
		}
		seen[r.RawName] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IndexResultsByName は店舗名ごとに結果のインデックスをまとめる
func IndexResultsByName(results []model.ScanResult) map[string][]int {
	idx := make(map[string][]int)
	for i, r := range results {
		idx[r.RawName] = append(idx[r.RawName], i)
	}
	return idx
}

// FilterByCuisine は指定された料理ジャンルの店舗のみを抽出する
func FilterByCuisine(businesses []*model.Business, cuisines []string) []*model.Business {
	if len(cuisines) == 0 {
		return businesses
	}
	set := make(map[string]struct{})
	for _, c := range cuisines {
		set[strings.ToLower(c)] = struct{}{}
	}
	var filtered []*model.Business
	for _, b := range businesses {
		if b.Cuisine == nil {
			continue
		}
		if _, ok := set[strings.ToLower(*b.Cuisine)]; ok {
			filtered = append(filtered, b)
		}
	}
	return filtered
}
