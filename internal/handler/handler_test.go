package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cityinfo-api/internal/middleware"
	"github.com/iliyamo/cityinfo-api/internal/model"
	"github.com/iliyamo/cityinfo-api/internal/pagination"
	"github.com/iliyamo/cityinfo-api/internal/repository"
	"github.com/iliyamo/cityinfo-api/internal/service"
	"github.com/iliyamo/cityinfo-api/internal/utils"
)

type mockRepo struct{ mock.Mock }

func (m *mockRepo) ListCities(ctx context.Context, f repository.CityFilter) ([]model.City, pagination.Metadata, error) {
	args := m.Called(f)
	cities, _ := args.Get(0).([]model.City)
	return cities, args.Get(1).(pagination.Metadata), args.Error(2)
}

func (m *mockRepo) GetCity(ctx context.Context, cityID uint64, include bool) (*model.City, error) {
	args := m.Called(cityID, include)
	city, _ := args.Get(0).(*model.City)
	return city, args.Error(1)
}

func (m *mockRepo) CityExists(ctx context.Context, cityID uint64) (bool, error) {
	args := m.Called(cityID)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepo) CityNameMatches(ctx context.Context, cityName string, cityID uint64) (bool, error) {
	args := m.Called(cityName, cityID)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepo) ListPointsOfInterest(ctx context.Context, cityID uint64) ([]model.PointOfInterest, error) {
	args := m.Called(cityID)
	pois, _ := args.Get(0).([]model.PointOfInterest)
	return pois, args.Error(1)
}

func (m *mockRepo) GetPointOfInterest(ctx context.Context, cityID, poiID uint64) (*model.PointOfInterest, error) {
	args := m.Called(cityID, poiID)
	poi, _ := args.Get(0).(*model.PointOfInterest)
	return poi, args.Error(1)
}

func (m *mockRepo) AddPointOfInterest(ctx context.Context, cityID uint64, poi *model.PointOfInterest) (bool, error) {
	args := m.Called(cityID, poi)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepo) UpdatePointOfInterest(poi *model.PointOfInterest) { m.Called(poi) }

func (m *mockRepo) DeletePointOfInterest(poi *model.PointOfInterest) { m.Called(poi) }

func (m *mockRepo) SaveChanges(ctx context.Context) (bool, error) {
	args := m.Called()
	return args.Bool(0), args.Error(1)
}

type mockSender struct{ mock.Mock }

func (m *mockSender) Send(ctx context.Context, subject, message string) error {
	return m.Called(subject, message).Error(0)
}

type mockIssuer struct{ mock.Mock }

func (m *mockIssuer) Authenticate(ctx context.Context, userName, password string) (utils.AccessToken, error) {
	args := m.Called(userName, password)
	return args.Get(0).(utils.AccessToken), args.Error(1)
}

// withCity stands in for JWTAuth.
func withCity(city string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(middleware.ContextKeyClaims, &utils.Claims{City: city})
			return next(c)
		}
	}
}

func newServer(repo *mockRepo, sender *mockSender, city string) *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(false)

	sessions := func() repository.CityInfoRepository { return repo }
	cities := NewCityHandler(sessions, 10, 20)
	pois := NewPointOfInterestHandler(sessions, sender)

	g := e.Group("/api/v2", withCity(city))
	g.GET("/cities", cities.GetCities)
	g.GET("/cities/:id", cities.GetCity)
	g.GET("/cities/:cityId/pointsofinterest", pois.GetPointsOfInterest)
	g.GET("/cities/:cityId/pointsofinterest/:id", pois.GetPointOfInterest)
	g.POST("/cities/:cityId/pointsofinterest", pois.CreatePointOfInterest)
	g.PUT("/cities/:cityId/pointsofinterest/:id", pois.UpdatePointOfInterest)
	g.PATCH("/cities/:cityId/pointsofinterest/:id", pois.PartiallyUpdatePointOfInterest)
	g.DELETE("/cities/:cityId/pointsofinterest/:id", pois.DeletePointOfInterest)
	return e
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) ProblemDetails {
	t.Helper()
	assert.Equal(t, MIMEProblemJSON, rec.Header().Get(echo.HeaderContentType))
	var p ProblemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

// parisAuthorized expects the city checks for Paris (id 3) to pass.
func parisAuthorized(repo *mockRepo) {
	repo.On("CityExists", uint64(3)).Return(true, nil).Once()
	repo.On("CityNameMatches", "Paris", uint64(3)).Return(true, nil).Once()
}

func TestGetCitiesClampsPagingAndSetsHeader(t *testing.T) {
	repo := new(mockRepo)
	filter := repository.CityFilter{Name: "Paris", PageNumber: 1, PageSize: 20}
	repo.On("ListCities", filter).
		Return([]model.City{{ID: 3, Name: "Paris", Description: "The one with that big tower."}}, pagination.New(1, 20, 1), nil).Once()

	rec := do(newServer(repo, new(mockSender), "Paris"), http.MethodGet, "/api/v2/cities?name=Paris&pageNumber=0&pageSize=500", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"totalItemCount":1,"totalPageCount":1,"pageSize":20,"currentPage":1}`, rec.Header().Get(HeaderPagination))
	assert.JSONEq(t, `[{"id":3,"name":"Paris","description":"The one with that big tower."}]`, rec.Body.String())
	repo.AssertExpectations(t)
}

func TestGetCitiesDefaultsPageSize(t *testing.T) {
	repo := new(mockRepo)
	repo.On("ListCities", repository.CityFilter{SearchQuery: "park", PageNumber: 2, PageSize: 10}).
		Return([]model.City(nil), pagination.New(3, 10, 2), nil).Once()

	rec := do(newServer(repo, new(mockSender), "Paris"), http.MethodGet, "/api/v2/cities?searchQuery=park&pageNumber=2", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	repo.AssertExpectations(t)
}

func TestGetCitiesRejectsBadQuery(t *testing.T) {
	rec := do(newServer(new(mockRepo), new(mockSender), "Paris"), http.MethodGet, "/api/v2/cities?pageSize=ten", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, http.StatusBadRequest, decodeProblem(t, rec).Status)
}

func TestGetCity(t *testing.T) {
	repo := new(mockRepo)
	repo.On("GetCity", uint64(1), true).Return(&model.City{
		ID: 1, Name: "New York City",
		PointsOfInterest: []model.PointOfInterest{{ID: 1, CityID: 1, Name: "Central Park"}},
	}, nil).Once()
	repo.On("GetCity", uint64(2), false).Return(&model.City{ID: 2, Name: "Antwerp"}, nil).Once()
	repo.On("GetCity", uint64(9), false).Return(nil, nil).Once()
	e := newServer(repo, new(mockSender), "Paris")

	rec := do(e, http.MethodGet, "/api/v2/cities/1?includePointsOfInterest=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":1,"name":"New York City","numberOfPointsOfInterest":1,"pointsOfInterest":[{"id":1,"name":"Central Park"}]}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/api/v2/cities/2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":2,"name":"Antwerp"}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/api/v2/cities/9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	p := decodeProblem(t, rec)
	assert.Equal(t, "/api/v2/cities/9", p.Instance)
	assert.Equal(t, "Additional Info Example", p.AdditionalInfo)
	assert.NotEmpty(t, p.Server)

	repo.AssertExpectations(t)
}

func TestGetCityStorageErrorIs500(t *testing.T) {
	repo := new(mockRepo)
	repo.On("GetCity", uint64(1), false).Return(nil, errors.New("connection refused")).Once()

	rec := do(newServer(repo, new(mockSender), "Paris"), http.MethodGet, "/api/v2/cities/1", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decodeProblem(t, rec).Detail, "connection refused")
}

func TestPointsOfInterestRequireMatchingCity(t *testing.T) {
	repo := new(mockRepo)
	repo.On("CityExists", uint64(1)).Return(true, nil).Once()
	repo.On("CityNameMatches", "Paris", uint64(1)).Return(false, nil).Once()

	rec := do(newServer(repo, new(mockSender), "Paris"), http.MethodGet, "/api/v2/cities/1/pointsofinterest", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	repo.AssertExpectations(t)
}

func TestPointsOfInterestMissingCityIs404(t *testing.T) {
	repo := new(mockRepo)
	repo.On("CityExists", uint64(42)).Return(false, nil).Once()

	rec := do(newServer(repo, new(mockSender), "Paris"), http.MethodGet, "/api/v2/cities/42/pointsofinterest", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	repo.AssertExpectations(t)
}

func TestGetPointsOfInterest(t *testing.T) {
	repo := new(mockRepo)
	parisAuthorized(repo)
	repo.On("ListPointsOfInterest", uint64(3)).Return([]model.PointOfInterest{
		{ID: 5, CityID: 3, Name: "Eiffel Tower"},
		{ID: 6, CityID: 3, Name: "The Louvre"},
	}, nil).Once()

	rec := do(newServer(repo, new(mockSender), "Paris"), http.MethodGet, "/api/v2/cities/3/pointsofinterest", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":5,"name":"Eiffel Tower"},{"id":6,"name":"The Louvre"}]`, rec.Body.String())
	repo.AssertExpectations(t)
}

func TestGetPointOfInterestFromAnotherCityIs404(t *testing.T) {
	repo := new(mockRepo)
	parisAuthorized(repo)
	repo.On("GetPointOfInterest", uint64(3), uint64(1)).Return(nil, nil).Once()

	rec := do(newServer(repo, new(mockSender), "Paris"), http.MethodGet, "/api/v2/cities/3/pointsofinterest/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	repo.AssertExpectations(t)
}

func TestCreatePointOfInterest(t *testing.T) {
	repo := new(mockRepo)
	parisAuthorized(repo)
	var added *model.PointOfInterest
	repo.On("AddPointOfInterest", uint64(3), mock.AnythingOfType("*model.PointOfInterest")).
		Run(func(args mock.Arguments) { added = args.Get(1).(*model.PointOfInterest) }).
		Return(true, nil).Once()
	// SaveChanges assigns the generated id to the queued point.
	repo.On("SaveChanges").Run(func(mock.Arguments) { added.ID = 7 }).Return(true, nil).Once()

	rec := do(newServer(repo, new(mockSender), "Paris"), http.MethodPost, "/api/v2/cities/3/pointsofinterest",
		`{"name":"Montmartre","description":"Hill with a view."}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/api/v2/cities/3/pointsofinterest/7", rec.Header().Get(echo.HeaderLocation))
	assert.JSONEq(t, `{"id":7,"name":"Montmartre","description":"Hill with a view."}`, rec.Body.String())
	repo.AssertExpectations(t)
}

func TestCreatePointOfInterestValidation(t *testing.T) {
	repo := new(mockRepo)
	long := strings.Repeat("x", 51)

	rec := do(newServer(repo, new(mockSender), "Paris"), http.MethodPost, "/api/v2/cities/3/pointsofinterest",
		`{"name":"`+long+`"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	p := decodeProblem(t, rec)
	assert.Contains(t, p.Errors, "name")
	repo.AssertNotCalled(t, "AddPointOfInterest", mock.Anything, mock.Anything)
}

func TestCreatePointOfInterestSoftSaveFailureIs500(t *testing.T) {
	repo := new(mockRepo)
	parisAuthorized(repo)
	repo.On("AddPointOfInterest", uint64(3), mock.Anything).Return(true, nil).Once()
	repo.On("SaveChanges").Return(false, nil).Once()

	rec := do(newServer(repo, new(mockSender), "Paris"), http.MethodPost, "/api/v2/cities/3/pointsofinterest", `{"name":"Montmartre"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	repo.AssertExpectations(t)
}

func TestUpdatePointOfInterest(t *testing.T) {
	repo := new(mockRepo)
	parisAuthorized(repo)
	poi := &model.PointOfInterest{ID: 5, CityID: 3, Name: "Eiffel Tower"}
	repo.On("GetPointOfInterest", uint64(3), uint64(5)).Return(poi, nil).Once()
	repo.On("UpdatePointOfInterest", poi).Once()
	repo.On("SaveChanges").Return(true, nil).Once()

	rec := do(newServer(repo, new(mockSender), "Paris"), http.MethodPut, "/api/v2/cities/3/pointsofinterest/5",
		`{"name":"Tour Eiffel","description":"Iron lady."}`)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "Tour Eiffel", poi.Name)
	assert.Equal(t, "Iron lady.", poi.Description)
	repo.AssertExpectations(t)
}

func TestPartiallyUpdatePointOfInterest(t *testing.T) {
	repo := new(mockRepo)
	parisAuthorized(repo)
	poi := &model.PointOfInterest{ID: 5, CityID: 3, Name: "Eiffel Tower", Description: "old"}
	repo.On("GetPointOfInterest", uint64(3), uint64(5)).Return(poi, nil).Once()
	repo.On("UpdatePointOfInterest", poi).Once()
	repo.On("SaveChanges").Return(true, nil).Once()

	rec := do(newServer(repo, new(mockSender), "Paris"), http.MethodPatch, "/api/v2/cities/3/pointsofinterest/5",
		`[{"op":"replace","path":"/description","value":"new"}]`)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "Eiffel Tower", poi.Name)
	assert.Equal(t, "new", poi.Description)
	repo.AssertExpectations(t)
}

func TestPartiallyUpdatePointOfInterestRevalidates(t *testing.T) {
	repo := new(mockRepo)
	parisAuthorized(repo)
	poi := &model.PointOfInterest{ID: 5, CityID: 3, Name: "Eiffel Tower"}
	repo.On("GetPointOfInterest", uint64(3), uint64(5)).Return(poi, nil).Once()

	rec := do(newServer(repo, new(mockSender), "Paris"), http.MethodPatch, "/api/v2/cities/3/pointsofinterest/5",
		`[{"op":"remove","path":"/name"}]`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeProblem(t, rec).Errors, "name")
	repo.AssertNotCalled(t, "SaveChanges")
}

func TestPartiallyUpdatePointOfInterestRejectsMalformedPatch(t *testing.T) {
	rec := do(newServer(new(mockRepo), new(mockSender), "Paris"), http.MethodPatch, "/api/v2/cities/3/pointsofinterest/5", `{"op":"replace"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeletePointOfInterestSendsMail(t *testing.T) {
	repo := new(mockRepo)
	parisAuthorized(repo)
	poi := &model.PointOfInterest{ID: 6, CityID: 3, Name: "The Louvre"}
	repo.On("GetPointOfInterest", uint64(3), uint64(6)).Return(poi, nil).Once()
	repo.On("DeletePointOfInterest", poi).Once()
	repo.On("SaveChanges").Return(true, nil).Once()
	sender := new(mockSender)
	sender.On("Send", "Point of interest deleted.", "Point of interest The Louvre with id 6 was deleted.").Return(nil).Once()

	rec := do(newServer(repo, sender, "Paris"), http.MethodDelete, "/api/v2/cities/3/pointsofinterest/6", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	repo.AssertExpectations(t)
	sender.AssertExpectations(t)
}

func TestDeletePointOfInterestMailFailureStillSucceeds(t *testing.T) {
	repo := new(mockRepo)
	parisAuthorized(repo)
	poi := &model.PointOfInterest{ID: 6, CityID: 3, Name: "The Louvre"}
	repo.On("GetPointOfInterest", uint64(3), uint64(6)).Return(poi, nil).Once()
	repo.On("DeletePointOfInterest", poi).Once()
	repo.On("SaveChanges").Return(true, nil).Once()
	sender := new(mockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()

	rec := do(newServer(repo, sender, "Paris"), http.MethodDelete, "/api/v2/cities/3/pointsofinterest/6", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDeletePointOfInterestSoftSaveFailureSkipsMail(t *testing.T) {
	repo := new(mockRepo)
	parisAuthorized(repo)
	poi := &model.PointOfInterest{ID: 6, CityID: 3, Name: "The Louvre"}
	repo.On("GetPointOfInterest", uint64(3), uint64(6)).Return(poi, nil).Once()
	repo.On("DeletePointOfInterest", poi).Once()
	repo.On("SaveChanges").Return(false, nil).Once()
	sender := new(mockSender)

	rec := do(newServer(repo, sender, "Paris"), http.MethodDelete, "/api/v2/cities/3/pointsofinterest/6", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestAuthenticate(t *testing.T) {
	issuer := new(mockIssuer)
	issuer.On("Authenticate", "jdoe", "secret").Return(utils.AccessToken{Token: "a.b.c", Exp: time.Now().Add(time.Hour)}, nil).Once()
	issuer.On("Authenticate", "jdoe", "wrong").Return(utils.AccessToken{}, service.ErrInvalidCredentials).Once()

	e := echo.New()
	e.Validator = NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(true)
	e.POST("/api/authentication/authenticate", NewAuthHandler(issuer).Authenticate)

	rec := do(e, http.MethodPost, "/api/authentication/authenticate", `{"userName":"jdoe","password":"secret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `"a.b.c"`, rec.Body.String())

	rec = do(e, http.MethodPost, "/api/authentication/authenticate", `{"userName":"jdoe","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, decodeProblem(t, rec).Detail)

	rec = do(e, http.MethodPost, "/api/authentication/authenticate", `{"userName":"jdoe"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	issuer.AssertExpectations(t)
}

func TestErrorHandlerHidesInternalDetailInProd(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = NewHTTPErrorHandler(true)
	e.GET("/boom", func(echo.Context) error { return errors.New("dsn with password") })

	rec := do(e, http.MethodGet, "/boom", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	p := decodeProblem(t, rec)
	assert.Empty(t, p.Detail)
	assert.Equal(t, "Internal Server Error", p.Title)
	assert.Equal(t, "https://tools.ietf.org/html/rfc9110#section-15.6.1", p.Type)
}
