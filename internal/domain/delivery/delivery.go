package delivery

import (
	"math"

	"github.com/go-faster/errors"
)

// EarthRadiusKm is the mean Earth radius used by the Haversine formula.
const EarthRadiusKm = 6371.0

// ErrInvalidCoordinate is returned for latitudes outside [-90, 90],
// longitudes outside [-180, 180], non-finite values, or a negative range.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Location is a restaurant's position and delivery radius.
type Location struct {
	LatitudeDegrees  float64
	LongitudeDegrees float64
	DeliveryRangeKm  float64
}

// Result reports whether one restaurant can deliver to a target point.
type Result struct {
	Possible   bool
	DistanceKm float64
	MaxRangeKm float64
}

// CartResult aggregates Results for a multi-restaurant cart, in input order.
type CartResult struct {
	AllDeliverable bool
	PerRestaurant  []Result
}

// DistanceKm returns the great-circle distance between two points given in degrees.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := toRadians(lat1)
	phi2 := toRadians(lat2)
	dPhi := toRadians(lat2 - lat1)
	dLambda := toRadians(lon2 - lon1)

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	// rounding can push a a hair outside [0, 1] for antipodal points
	a = math.Min(1, math.Max(0, a))

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// ValidateCoordinate checks a latitude/longitude pair.
func ValidateCoordinate(lat, lng float64) error {
	if !finite(lat) || lat < -90 || lat > 90 {
		return errors.Wrapf(ErrInvalidCoordinate, "latitude %v", lat)
	}
	if !finite(lng) || lng < -180 || lng > 180 {
		return errors.Wrapf(ErrInvalidCoordinate, "longitude %v", lng)
	}
	return nil
}

// ValidateDelivery reports whether (lat, lng) lies within loc's delivery range.
// The boundary is inclusive and compared before the distance is rounded.
func ValidateDelivery(loc Location, lat, lng float64) (Result, error) {
	if err := ValidateCoordinate(loc.LatitudeDegrees, loc.LongitudeDegrees); err != nil {
		return Result{}, errors.Wrap(err, "restaurant location")
	}
	if !finite(loc.DeliveryRangeKm) || loc.DeliveryRangeKm < 0 {
		return Result{}, errors.Wrapf(ErrInvalidCoordinate, "delivery range %v", loc.DeliveryRangeKm)
	}
	if err := ValidateCoordinate(lat, lng); err != nil {
		return Result{}, errors.Wrap(err, "delivery target")
	}

	distance := DistanceKm(loc.LatitudeDegrees, loc.LongitudeDegrees, lat, lng)
	return Result{
		Possible:   distance <= loc.DeliveryRangeKm,
		DistanceKm: round2(distance),
		MaxRangeKm: loc.DeliveryRangeKm,
	}, nil
}

// ValidateCart applies ValidateDelivery to every location. An empty cart is
// trivially deliverable.
func ValidateCart(locs []Location, lat, lng float64) (CartResult, error) {
	out := CartResult{
		AllDeliverable: true,
		PerRestaurant:  make([]Result, 0, len(locs)),
	}
	for i, loc := range locs {
		res, err := ValidateDelivery(loc, lat, lng)
		if err != nil {
			return CartResult{}, errors.Wrapf(err, "restaurant %d", i)
		}
		out.AllDeliverable = out.AllDeliverable && res.Possible
		out.PerRestaurant = append(out.PerRestaurant, res)
	}
	return out, nil
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
