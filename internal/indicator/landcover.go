package indicator

import "math"

// CoverageItem is one land-cover class with its naturalness weight and the
// area it covers. Items missing either value are ignored.
type CoverageItem struct {
	Class  string   `json:"class"`
	Weight *float64 `json:"weight,omitempty"`
	Area   *float64 `json:"area,omitempty"`
}

// LandCover scores naturalness as the area-weighted mean of class weights.
type LandCover struct {
	leafBase
	items []CoverageItem
}

func NewLandCover() *LandCover { return &LandCover{} }

func (*LandCover) Kind() Kind { return KindLandCover }

func (l *LandCover) Items() []CoverageItem { return append([]CoverageItem(nil), l.items...) }

// SetItems replaces all coverage items.
func (l *LandCover) SetItems(items []CoverageItem) {
	l.items = append([]CoverageItem(nil), items...)
	l.changed()
}

// Upsert replaces the item with the same class or appends a new one.
func (l *LandCover) Upsert(item CoverageItem) {
	for idx := range l.items {
		if l.items[idx].Class == item.Class {
			l.items[idx] = item
			l.changed()
			return
		}
	}
	l.items = append(l.items, item)
	l.changed()
}

func (l *LandCover) ComputeIndicator() (int, bool) {
	var weighted, area float64
	for _, it := range l.items {
		if it.Weight == nil || it.Area == nil {
			continue
		}
		weighted += *it.Area * *it.Weight
		area += *it.Area
	}
	if area == 0 {
		return 0, false
	}
	return int(math.Round(weighted / area)), true
}
