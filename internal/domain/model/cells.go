package model

import (
	"sort"

	"github.com/paulmach/orb"
)

// LatLng latitude/longitude pair in degrees
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ToPoint converts to an orb.Point ([lng, lat] order)
func (l LatLng) ToPoint() orb.Point {
	return orb.Point{l.Lng, l.Lat}
}

// LatLngFromPoint converts an orb.Point back to LatLng
func LatLngFromPoint(p orb.Point) LatLng {
	return LatLng{Lat: p.Lat(), Lng: p.Lon()}
}

// CellKey identifies one square meter cell, formatted "{latIndex}_{lonIndex}"
type CellKey string

// CellSet is an unordered set of cell keys
type CellSet map[CellKey]struct{}

// NewCellSet builds a set from the given keys
func NewCellSet(keys ...CellKey) CellSet {
	s := make(CellSet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

func (s CellSet) Add(k CellKey) { s[k] = struct{}{} }

func (s CellSet) Remove(k CellKey) { delete(s, k) }

func (s CellSet) Has(k CellKey) bool {
	_, ok := s[k]
	return ok
}

func (s CellSet) Len() int { return len(s) }

// Keys returns the keys in lexical order
func (s CellSet) Keys() []CellKey {
	keys := make([]CellKey, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	SortCellKeys(keys)
	return keys
}

// Clone returns an independent copy
func (s CellSet) Clone() CellSet {
	c := make(CellSet, len(s))
	for k := range s {
		c[k] = struct{}{}
	}
	return c
}

// SortCellKeys sorts keys in place
func SortCellKeys(keys []CellKey) {
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
}

// CellKeysFromStrings converts raw strings (request bodies, metadata) into keys
func CellKeysFromStrings(raw []string) []CellKey {
	keys := make([]CellKey, 0, len(raw))
	for _, r := range raw {
		if r == "" {
			continue
		}
		keys = append(keys, CellKey(r))
	}
	return keys
}

// CellKeysToStrings converts keys to plain strings
func CellKeysToStrings(keys []CellKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}
