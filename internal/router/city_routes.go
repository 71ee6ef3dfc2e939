package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cityinfo-api/internal/config"
	"github.com/iliyamo/cityinfo-api/internal/handler"
	"github.com/iliyamo/cityinfo-api/internal/middleware"
	"github.com/iliyamo/cityinfo-api/internal/utils"
)

// CityRoutes bundles what the city and point-of-interest routes need.
type CityRoutes struct {
	Cities           *handler.CityHandler
	PointsOfInterest *handler.PointOfInterestHandler
	Tokens           utils.TokenOptions
	Cache            config.CacheConfig
	RateLimit        config.RateLimitConfig
	Redis            *redis.Client
}

var (
	cityVersions            = []string{"1.0", "2.0"}
	pointOfInterestVersions = []string{"2.0"}
)

// RegisterCities registers the read-only city endpoints for versions 1.0
// and 2.0. All routes require a valid JWT, are rate limited and cached.
func RegisterCities(e *echo.Echo, r CityRoutes) {
	rl := middleware.NewTokenBucket(r.RateLimit, r.Redis)
	cache := middleware.NewResponseCache(r.Cache, r.Redis)

	for _, g := range versionGroups(e, cityVersions,
		middleware.ReportAPIVersions(cityVersions, nil),
		middleware.JWTAuth(r.Tokens),
		rl,
	) {
		g.GET("/cities", r.Cities.GetCities, cache)
		g.GET("/cities/:id", r.Cities.GetCity, cache)
	}
}

// RegisterPointsOfInterest registers the point-of-interest endpoints for
// version 2.0. Callers must be authenticated and from Paris; handlers
// additionally match the city claim against the route city.
func RegisterPointsOfInterest(e *echo.Echo, r CityRoutes) {
	rl := middleware.NewTokenBucket(r.RateLimit, r.Redis)
	h := r.PointsOfInterest

	for _, g := range versionGroups(e, pointOfInterestVersions,
		middleware.ReportAPIVersions(pointOfInterestVersions, nil),
		middleware.JWTAuth(r.Tokens),
		middleware.MustBeFromParis(),
		rl,
	) {
		g.GET("/cities/:cityId/pointsofinterest", h.GetPointsOfInterest)
		g.GET("/cities/:cityId/pointsofinterest/:id", h.GetPointOfInterest)
		g.POST("/cities/:cityId/pointsofinterest", h.CreatePointOfInterest)
		g.PUT("/cities/:cityId/pointsofinterest/:id", h.UpdatePointOfInterest)
		g.PATCH("/cities/:cityId/pointsofinterest/:id", h.PartiallyUpdatePointOfInterest)
		g.DELETE("/cities/:cityId/pointsofinterest/:id", h.DeletePointOfInterest)
	}
}
