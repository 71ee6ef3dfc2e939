package model

// City represents a row in the `cities` table together with the points of
// interest it owns. Deleting a city deletes its points (ON DELETE CASCADE).
//
// PointsOfInterest is nil unless the city was loaded with its children; an
// empty non-nil slice means the city was loaded with children and has none.
type City struct {
	ID               uint64 // cities.id
	Name             string // cities.name
	Description      string // cities.description (NULL stored as "")
	PointsOfInterest []PointOfInterest
}

// PointOfInterest represents a row in the `points_of_interest` table. It
// cannot exist without its parent city.
type PointOfInterest struct {
	ID          uint64 // points_of_interest.id
	CityID      uint64 // points_of_interest.city_id
	Name        string // points_of_interest.name
	Description string // points_of_interest.description (NULL stored as "")
}
