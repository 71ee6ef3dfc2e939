package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cityinfo-api/internal/pagination"
	"github.com/iliyamo/cityinfo-api/internal/repository"
)

// HeaderPagination carries the JSON page metadata of list responses.
const HeaderPagination = "X-Pagination"

// CityHandler serves the read-only city endpoints.
type CityHandler struct {
	Sessions        SessionFactory
	DefaultPageSize int
	MaxPageSize     int
}

func NewCityHandler(sessions SessionFactory, defaultPageSize, maxPageSize int) *CityHandler {
	if sessions == nil {
		panic("nil session factory passed to NewCityHandler")
	}
	return &CityHandler{Sessions: sessions, DefaultPageSize: defaultPageSize, MaxPageSize: maxPageSize}
}

// GetCities lists cities filtered by exact name and/or a search term. The
// page size defaults to DefaultPageSize and is capped at MaxPageSize.
func (h *CityHandler) GetCities(c echo.Context) error {
	q := citiesQuery{PageNumber: 1, PageSize: h.DefaultPageSize}
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return problem(http.StatusBadRequest, "invalid query parameters")
	}
	page, size := pagination.Clamp(q.PageNumber, q.PageSize, h.DefaultPageSize, h.MaxPageSize)

	ctx, cancel := withTimeout(c)
	defer cancel()

	cities, meta, err := h.Sessions().ListCities(ctx, repository.CityFilter{
		Name:        q.Name,
		SearchQuery: q.SearchQuery,
		PageNumber:  page,
		PageSize:    size,
	})
	if err != nil {
		return fmt.Errorf("list cities: %w", err)
	}

	hdr, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	c.Response().Header().Set(HeaderPagination, string(hdr))

	out := make([]CityWithoutPointsOfInterest, 0, len(cities))
	for _, city := range cities {
		out = append(out, toCityWithoutPointsOfInterest(city))
	}
	return c.JSON(http.StatusOK, out)
}

// GetCity returns one city, with its points of interest when
// includePointsOfInterest=true.
func (h *CityHandler) GetCity(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	include := false
	if raw := c.QueryParam("includePointsOfInterest"); raw != "" {
		if include, err = strconv.ParseBool(raw); err != nil {
			return problem(http.StatusBadRequest, "includePointsOfInterest must be true or false")
		}
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	city, err := h.Sessions().GetCity(ctx, id, include)
	if err != nil {
		return fmt.Errorf("get city %d: %w", id, err)
	}
	if city == nil {
		return echo.ErrNotFound
	}
	if include {
		return c.JSON(http.StatusOK, toCity(*city))
	}
	return c.JSON(http.StatusOK, toCityWithoutPointsOfInterest(*city))
}
