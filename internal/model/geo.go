package model

import "github.com/twpayne/go-geom"

// GeoResult is the best-effort geolocation of a single URL. Every field
// except Count is nullable; Count is always 1.
type GeoResult struct {
	Domain   *string  `json:"domain"`
	Country  *string  `json:"country"`
	City     *string  `json:"city"`
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
	Location *string  `json:"location"`
	Count    int      `json:"count"`
}

// GeoInfo is a geolocation database entry for one IP address. Point uses
// the XY layout (X = longitude, Y = latitude) and is nil when the entry has
// no coordinates.
type GeoInfo struct {
	Country string
	City    string
	Region  string
	Point   *geom.Point
}

// NewGeoPoint builds the point stored in GeoInfo.Point.
func NewGeoPoint(lat, lng float64) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{lng, lat})
}
