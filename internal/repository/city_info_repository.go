package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/cityinfo-api/internal/model"
	"github.com/iliyamo/cityinfo-api/internal/pagination"
)

// CityInfoRepository is the gateway between handlers and persisted cities
// and points of interest. Implementations are units of work: mutations are
// buffered until SaveChanges and must not be shared between requests.
type CityInfoRepository interface {
	ListCities(ctx context.Context, f CityFilter) ([]model.City, pagination.Metadata, error)
	GetCity(ctx context.Context, cityID uint64, includePointsOfInterest bool) (*model.City, error)
	CityExists(ctx context.Context, cityID uint64) (bool, error)
	CityNameMatches(ctx context.Context, cityName string, cityID uint64) (bool, error)
	ListPointsOfInterest(ctx context.Context, cityID uint64) ([]model.PointOfInterest, error)
	GetPointOfInterest(ctx context.Context, cityID, pointOfInterestID uint64) (*model.PointOfInterest, error)
	AddPointOfInterest(ctx context.Context, cityID uint64, poi *model.PointOfInterest) (bool, error)
	UpdatePointOfInterest(poi *model.PointOfInterest)
	DeletePointOfInterest(poi *model.PointOfInterest)
	SaveChanges(ctx context.Context) (bool, error)
}

// Store owns the connection pool and hands out one Session per request.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Session opens a fresh unit of work.
func (s *Store) Session() *Session { return &Session{db: s.db} }

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Session implements CityInfoRepository. Reads go straight to the pool;
// writes are queued in pending and applied by SaveChanges in a single
// transaction.
type Session struct {
	db      *sql.DB
	pending []change
}

var _ CityInfoRepository = (*Session)(nil)

// GetCity returns nil when the city does not exist. With
// includePointsOfInterest the children are loaded by the same query,
// otherwise PointsOfInterest stays nil.
func (s *Session) GetCity(ctx context.Context, cityID uint64, includePointsOfInterest bool) (*model.City, error) {
	if !includePointsOfInterest {
		const q = "SELECT id, name, description FROM cities WHERE id = ?"
		var (
			c    model.City
			desc sql.NullString
		)
		if err := s.db.QueryRowContext(ctx, q, cityID).Scan(&c.ID, &c.Name, &desc); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, err
		}
		c.Description = desc.String
		return &c, nil
	}

	const q = `SELECT c.id, c.name, c.description, p.id, p.city_id, p.name, p.description
		FROM cities c
		LEFT JOIN points_of_interest p ON p.city_id = c.id
		WHERE c.id = ?
		ORDER BY p.id ASC`
	rows, err := s.db.QueryContext(ctx, q, cityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var city *model.City
	for rows.Next() {
		var (
			c            model.City
			cDesc        sql.NullString
			pID, pCityID sql.NullInt64
			pName, pDesc sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Name, &cDesc, &pID, &pCityID, &pName, &pDesc); err != nil {
			return nil, err
		}
		if city == nil {
			c.Description = cDesc.String
			c.PointsOfInterest = []model.PointOfInterest{}
			city = &c
		}
		if pID.Valid {
			city.PointsOfInterest = append(city.PointsOfInterest, model.PointOfInterest{
				ID:          uint64(pID.Int64),
				CityID:      uint64(pCityID.Int64),
				Name:        pName.String,
				Description: pDesc.String,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return city, nil
}

func (s *Session) CityExists(ctx context.Context, cityID uint64) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM cities WHERE id = ?)", cityID).Scan(&ok)
	return ok, err
}

// CityNameMatches compares under the column collation
// (utf8mb4_0900_ai_ci), so "paris" matches "Paris".
func (s *Session) CityNameMatches(ctx context.Context, cityName string, cityID uint64) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM cities WHERE id = ? AND name = ?)", cityID, cityName).Scan(&ok)
	return ok, err
}

func (s *Session) ListPointsOfInterest(ctx context.Context, cityID uint64) ([]model.PointOfInterest, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, city_id, name, description FROM points_of_interest WHERE city_id = ? ORDER BY id ASC", cityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.PointOfInterest{}
	for rows.Next() {
		p, err := scanPointOfInterest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPointOfInterest matches on both ids, so a point that exists under a
// different city is reported as absent.
func (s *Session) GetPointOfInterest(ctx context.Context, cityID, pointOfInterestID uint64) (*model.PointOfInterest, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, city_id, name, description FROM points_of_interest WHERE city_id = ? AND id = ?",
		cityID, pointOfInterestID)
	p, err := scanPointOfInterest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPointOfInterest(sc scanner) (model.PointOfInterest, error) {
	var (
		p    model.PointOfInterest
		desc sql.NullString
	)
	if err := sc.Scan(&p.ID, &p.CityID, &p.Name, &desc); err != nil {
		return model.PointOfInterest{}, err
	}
	p.Description = desc.String
	return p, nil
}

// nullable stores empty optional text as NULL.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
