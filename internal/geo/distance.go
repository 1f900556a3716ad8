package geo

import "math"

// EarthRadius is the mean Earth radius in meters.
const EarthRadius = 6371000.0

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// GreatCircleDistance returns the haversine distance in meters between two
// points given in decimal degrees.
//
//	a = sin²(Δφ/2) + cos φ1 ⋅ cos φ2 ⋅ sin²(Δλ/2)
//	d = 2R ⋅ atan2(√a, √(1−a))
func GreatCircleDistance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := toRad(lat1)
	phi2 := toRad(lat2)
	dphi := toRad(lat2 - lat1)
	dlambda := toRad(lon2 - lon1)

	a := math.Sin(dphi/2)*math.Sin(dphi/2) +
		math.Cos(phi1)*math.Cos(phi2)*
			math.Sin(dlambda/2)*math.Sin(dlambda/2)
	// rounding can push a a hair past 1 for antipodal points
	if a > 1 {
		a = 1
	}
	return 2 * EarthRadius * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// PlanarApproxDistance returns the equirectangular (flat earth) distance in
// meters between two points given in decimal degrees. It is only accurate for
// short displacements such as consecutive fixes.
func PlanarApproxDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dlat := lat2 - lat1
	dlon := lon2 - lon1
	// shortest way around the antimeridian
	if dlon > 180 {
		dlon -= 360
	} else if dlon < -180 {
		dlon += 360
	}
	scale := math.Cos(toRad((lat1 + lat2) / 2))

	x := toRad(dlon) * EarthRadius * scale
	y := toRad(dlat) * EarthRadius
	return math.Sqrt(x*x + y*y)
}
