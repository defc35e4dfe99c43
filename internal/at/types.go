package at

// Stop is one entry of the AT stops directory.
type Stop struct {
	ID                 string
	Code               string
	Name               string
	Lat                float64
	Lon                float64
	LocationType       int
	WheelchairBoarding int
}

// StopTrip is one scheduled call at a stop, as returned by the stoptrips
// endpoint. Clock values are GTFS HH:MM:SS strings anchored to the service
// date; hours may exceed 23 for after-midnight runs.
type StopTrip struct {
	TripID        string
	RouteID       string
	ArrivalTime   string
	DepartureTime string
	Headsign      string
}

// The AT API wraps everything in a JSON:API envelope.

type stopsResponse struct {
	Data []stopResource `json:"data"`
}

type stopResource struct {
	ID         string `json:"id"`
	Attributes struct {
		StopCode           string  `json:"stop_code"`
		StopName           string  `json:"stop_name"`
		StopLat            float64 `json:"stop_lat"`
		StopLon            float64 `json:"stop_lon"`
		LocationType       int     `json:"location_type"`
		WheelchairBoarding int     `json:"wheelchair_boarding"`
	} `json:"attributes"`
}

type stopTripsResponse struct {
	Data []stopTripResource `json:"data"`
}

type stopTripResource struct {
	ID         string `json:"id"`
	Attributes struct {
		TripID        string `json:"trip_id"`
		ArrivalTime   string `json:"arrival_time"`
		DepartureTime string `json:"departure_time"`
		TripHeadsign  string `json:"trip_headsign"`
		StopHeadsign  string `json:"stop_headsign"`
		RouteID       string `json:"route_id"`
	} `json:"attributes"`
}

func (r stopResource) toStop() Stop {
	return Stop{
		ID:                 r.ID,
		Code:               r.Attributes.StopCode,
		Name:               r.Attributes.StopName,
		Lat:                r.Attributes.StopLat,
		Lon:                r.Attributes.StopLon,
		LocationType:       r.Attributes.LocationType,
		WheelchairBoarding: r.Attributes.WheelchairBoarding,
	}
}

func (r stopTripResource) toStopTrip() StopTrip {
	trip := StopTrip{
		TripID:        r.Attributes.TripID,
		RouteID:       r.Attributes.RouteID,
		ArrivalTime:   r.Attributes.ArrivalTime,
		DepartureTime: r.Attributes.DepartureTime,
		Headsign:      r.Attributes.StopHeadsign,
	}
	if trip.TripID == "" {
		trip.TripID = r.ID
	}
	if trip.Headsign == "" {
		trip.Headsign = r.Attributes.TripHeadsign
	}
	return trip
}
