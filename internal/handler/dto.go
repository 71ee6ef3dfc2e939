package handler

import (
	"github.com/iliyamo/cityinfo-api/internal/model"
)

// CityWithoutPointsOfInterest is the list shape and the shape of a single
// city requested without its children.
type CityWithoutPointsOfInterest struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// City is a single city with its points of interest.
type City struct {
	ID                       uint64            `json:"id"`
	Name                     string            `json:"name"`
	Description              string            `json:"description,omitempty"`
	NumberOfPointsOfInterest int               `json:"numberOfPointsOfInterest"`
	PointsOfInterest         []PointOfInterest `json:"pointsOfInterest"`
}

type PointOfInterest struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// PointOfInterestForCreation is the POST body.
type PointOfInterestForCreation struct {
	Name        string `json:"name" validate:"required,max=50"`
	Description string `json:"description" validate:"max=200"`
}

// PointOfInterestForUpdate is the PUT body and the document JSON Patch
// operations are applied to.
type PointOfInterestForUpdate struct {
	Name        string `json:"name" validate:"required,max=50"`
	Description string `json:"description" validate:"max=200"`
}

type authenticationRequest struct {
	UserName string `json:"userName" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type citiesQuery struct {
	Name        string `query:"name"`
	SearchQuery string `query:"searchQuery"`
	PageNumber  int    `query:"pageNumber"`
	PageSize    int    `query:"pageSize"`
}

func toCityWithoutPointsOfInterest(c model.City) CityWithoutPointsOfInterest {
	return CityWithoutPointsOfInterest{ID: c.ID, Name: c.Name, Description: c.Description}
}

func toCity(c model.City) City {
	pois := toPointsOfInterest(c.PointsOfInterest)
	return City{
		ID:                       c.ID,
		Name:                     c.Name,
		Description:              c.Description,
		NumberOfPointsOfInterest: len(pois),
		PointsOfInterest:         pois,
	}
}

func toPointOfInterest(p model.PointOfInterest) PointOfInterest {
	return PointOfInterest{ID: p.ID, Name: p.Name, Description: p.Description}
}

// toPointsOfInterest never returns nil so empty collections encode as [].
func toPointsOfInterest(ps []model.PointOfInterest) []PointOfInterest {
	out := make([]PointOfInterest, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPointOfInterest(p))
	}
	return out
}
