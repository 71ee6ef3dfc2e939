package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cityinfo-api/internal/logger"
	"github.com/iliyamo/cityinfo-api/internal/mail"
	"github.com/iliyamo/cityinfo-api/internal/middleware"
	"github.com/iliyamo/cityinfo-api/internal/model"
	"github.com/iliyamo/cityinfo-api/internal/repository"
)

// maxPatchBytes bounds the size of a JSON Patch document.
const maxPatchBytes = 64 << 10

// PointOfInterestHandler serves the points of interest of a city. Every
// route first checks that the caller's city claim names the route city.
type PointOfInterestHandler struct {
	Sessions SessionFactory
	Mail     mail.Sender
}

func NewPointOfInterestHandler(sessions SessionFactory, sender mail.Sender) *PointOfInterestHandler {
	if sessions == nil || sender == nil {
		panic("nil dependency passed to NewPointOfInterestHandler")
	}
	return &PointOfInterestHandler{Sessions: sessions, Mail: sender}
}

// authorizeCity answers 404 for a missing city and 403 when the city claim
// of the caller does not match the city's name.
func (h *PointOfInterestHandler) authorizeCity(ctx context.Context, c echo.Context, repo repository.CityInfoRepository, cityID uint64) error {
	exists, err := repo.CityExists(ctx, cityID)
	if err != nil {
		return fmt.Errorf("check city %d: %w", cityID, err)
	}
	if !exists {
		logger.From(ctx).Info("city not found when accessing points of interest", logger.CityID(cityID))
		return echo.ErrNotFound
	}

	var cityName string
	if claims := middleware.ClaimsFrom(c); claims != nil {
		cityName = claims.City
	}
	if cityName == "" {
		return echo.ErrForbidden
	}
	ok, err := repo.CityNameMatches(ctx, cityName, cityID)
	if err != nil {
		return fmt.Errorf("match city %d: %w", cityID, err)
	}
	if !ok {
		return echo.ErrForbidden
	}
	return nil
}

// load resolves the route city and point for the item routes.
func (h *PointOfInterestHandler) load(ctx context.Context, c echo.Context, repo repository.CityInfoRepository) (*model.PointOfInterest, error) {
	cityID, err := idParam(c, "cityId")
	if err != nil {
		return nil, err
	}
	poiID, err := idParam(c, "id")
	if err != nil {
		return nil, err
	}
	if err := h.authorizeCity(ctx, c, repo, cityID); err != nil {
		return nil, err
	}
	poi, err := repo.GetPointOfInterest(ctx, cityID, poiID)
	if err != nil {
		return nil, fmt.Errorf("get point of interest %d: %w", poiID, err)
	}
	if poi == nil {
		return nil, echo.ErrNotFound
	}
	return poi, nil
}

// GetPointsOfInterest lists the points of a city ordered by id.
func (h *PointOfInterestHandler) GetPointsOfInterest(c echo.Context) error {
	cityID, err := idParam(c, "cityId")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	repo := h.Sessions()

	if err := h.authorizeCity(ctx, c, repo, cityID); err != nil {
		return err
	}
	pois, err := repo.ListPointsOfInterest(ctx, cityID)
	if err != nil {
		return fmt.Errorf("list points of interest: %w", err)
	}
	return c.JSON(http.StatusOK, toPointsOfInterest(pois))
}

func (h *PointOfInterestHandler) GetPointOfInterest(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	poi, err := h.load(ctx, c, h.Sessions())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPointOfInterest(*poi))
}

// CreatePointOfInterest answers 201 with a Location header pointing at the
// new point.
func (h *PointOfInterestHandler) CreatePointOfInterest(c echo.Context) error {
	cityID, err := idParam(c, "cityId")
	if err != nil {
		return err
	}
	var req PointOfInterestForCreation
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()
	repo := h.Sessions()

	if err := h.authorizeCity(ctx, c, repo, cityID); err != nil {
		return err
	}
	poi := &model.PointOfInterest{Name: req.Name, Description: req.Description}
	found, err := repo.AddPointOfInterest(ctx, cityID, poi)
	if err != nil {
		return fmt.Errorf("add point of interest: %w", err)
	}
	if !found {
		return echo.ErrNotFound
	}
	saved, err := repo.SaveChanges(ctx)
	if err != nil {
		return fmt.Errorf("save point of interest: %w", err)
	}
	if !saved {
		return errSaveFailed
	}

	location := strings.TrimSuffix(c.Request().URL.Path, "/") + "/" + strconv.FormatUint(poi.ID, 10)
	c.Response().Header().Set(echo.HeaderLocation, location)
	return c.JSON(http.StatusCreated, toPointOfInterest(*poi))
}

// UpdatePointOfInterest replaces name and description.
func (h *PointOfInterestHandler) UpdatePointOfInterest(c echo.Context) error {
	var req PointOfInterestForUpdate
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()
	repo := h.Sessions()

	poi, err := h.load(ctx, c, repo)
	if err != nil {
		return err
	}
	poi.Name, poi.Description = req.Name, req.Description
	return h.save(ctx, c, repo, poi)
}

// PartiallyUpdatePointOfInterest applies an RFC 6902 JSON Patch to the
// updatable fields and validates the result.
func (h *PointOfInterestHandler) PartiallyUpdatePointOfInterest(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxPatchBytes))
	if err != nil {
		return problem(http.StatusBadRequest, "unreadable body")
	}
	patch, err := jsonpatch.DecodePatch(body)
	if err != nil {
		return problem(http.StatusBadRequest, "invalid JSON Patch document")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()
	repo := h.Sessions()

	poi, err := h.load(ctx, c, repo)
	if err != nil {
		return err
	}

	current, err := json.Marshal(PointOfInterestForUpdate{Name: poi.Name, Description: poi.Description})
	if err != nil {
		return err
	}
	patched, err := patch.Apply(current)
	if err != nil {
		ve := &ValidationError{}
		ve.Add("patch", err.Error())
		return ve
	}
	var next PointOfInterestForUpdate
	if err := json.Unmarshal(patched, &next); err != nil {
		ve := &ValidationError{}
		ve.Add("patch", "patched document does not match the point of interest shape")
		return ve
	}
	if err := c.Validate(&next); err != nil {
		return err
	}

	poi.Name, poi.Description = next.Name, next.Description
	return h.save(ctx, c, repo, poi)
}

func (h *PointOfInterestHandler) save(ctx context.Context, c echo.Context, repo repository.CityInfoRepository, poi *model.PointOfInterest) error {
	repo.UpdatePointOfInterest(poi)
	saved, err := repo.SaveChanges(ctx)
	if err != nil {
		return fmt.Errorf("update point of interest %d: %w", poi.ID, err)
	}
	if !saved {
		return errSaveFailed
	}
	return c.NoContent(http.StatusNoContent)
}

// DeletePointOfInterest removes the point and sends a notification mail.
// A failed mail does not fail the request.
func (h *PointOfInterestHandler) DeletePointOfInterest(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	repo := h.Sessions()

	poi, err := h.load(ctx, c, repo)
	if err != nil {
		return err
	}
	repo.DeletePointOfInterest(poi)
	saved, err := repo.SaveChanges(ctx)
	if err != nil {
		return fmt.Errorf("delete point of interest %d: %w", poi.ID, err)
	}
	if !saved {
		return errSaveFailed
	}

	msg := fmt.Sprintf("Point of interest %s with id %d was deleted.", poi.Name, poi.ID)
	if err := h.Mail.Send(ctx, "Point of interest deleted.", msg); err != nil {
		logger.From(ctx).Warn("deletion mail not sent", logger.PointOfInterestID(poi.ID), logger.Err(err))
	}
	return c.NoContent(http.StatusNoContent)
}
