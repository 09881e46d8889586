// Package geo holds the spherical-earth helpers used by facility discovery.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// EarthRadiusKm is the mean earth radius used for every distance in the service.
const EarthRadiusKm = 6371.0

// Point is a coordinate in decimal degrees.
type Point struct {
	Latitude  float64
	Longitude float64
}

// Distance returns the great-circle distance between a and b in kilometers,
// rounded to one decimal place.
func Distance(a, b Point) float64 {
	return Round1(haversineKm(a, b))
}

// Round1 rounds to one decimal place.
func Round1(km float64) float64 {
	return math.Round(km*10) / 10
}

func haversineKm(a, b Point) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	// clamp so rounding noise never pushes Sqrt(1-h) into NaN
	h = math.Min(1, math.Max(0, h))

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

// Box is a latitude/longitude bounding box.
type Box struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// BoundAround returns the box enclosing a circle of radiusKm around center.
// It is a coarse prefilter for index-friendly SQL; callers still apply the
// exact distance afterwards.
func BoundAround(center Point, radiusKm float64) Box {
	b := orbgeo.NewBoundAroundPoint(orb.Point{center.Longitude, center.Latitude}, radiusKm*1000)
	return Box{
		MinLat: b.Min.Lat(),
		MaxLat: b.Max.Lat(),
		MinLon: b.Min.Lon(),
		MaxLon: b.Max.Lon(),
	}
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
