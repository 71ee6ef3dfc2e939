package repository

import (
	"context"
	"fmt"

	"github.com/iliyamo/cityinfo-api/internal/model"
)

type changeKind int

const (
	changeInsert changeKind = iota
	changeUpdate
	changeDelete
)

type change struct {
	kind changeKind
	poi  *model.PointOfInterest
}

// AddPointOfInterest queues poi for insertion under cityID. It reports
// false, and queues nothing, when the city does not exist. Nothing reaches
// the database until SaveChanges.
func (s *Session) AddPointOfInterest(ctx context.Context, cityID uint64, poi *model.PointOfInterest) (bool, error) {
	city, err := s.GetCity(ctx, cityID, false)
	if err != nil {
		return false, err
	}
	if city == nil {
		return false, nil
	}
	poi.CityID = city.ID
	s.pending = append(s.pending, change{kind: changeInsert, poi: poi})
	return true, nil
}

// UpdatePointOfInterest queues the current field values of poi.
func (s *Session) UpdatePointOfInterest(poi *model.PointOfInterest) {
	s.pending = append(s.pending, change{kind: changeUpdate, poi: poi})
}

// DeletePointOfInterest marks poi for removal.
func (s *Session) DeletePointOfInterest(poi *model.PointOfInterest) {
	s.pending = append(s.pending, change{kind: changeDelete, poi: poi})
}

// SaveChanges applies every queued change in one transaction and reports
// whether at least one row was affected. Inserted points get their
// generated IDs. A session with nothing queued returns false without
// touching the database. On error the transaction is rolled back and the
// queue is kept.
func (s *Session) SaveChanges(ctx context.Context) (bool, error) {
	if len(s.pending) == 0 {
		return false, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }() // no-op after Commit

	inserted := make(map[*model.PointOfInterest]uint64)
	var affected int64
	for _, ch := range s.pending {
		var (
			n   int64
			err error
		)
		switch ch.kind {
		case changeInsert:
			res, execErr := tx.ExecContext(ctx,
				"INSERT INTO points_of_interest (city_id, name, description) VALUES (?, ?, ?)",
				ch.poi.CityID, ch.poi.Name, nullable(ch.poi.Description))
			if execErr != nil {
				return false, fmt.Errorf("insert point of interest: %w", execErr)
			}
			id, idErr := res.LastInsertId()
			if idErr != nil {
				return false, idErr
			}
			inserted[ch.poi] = uint64(id)
			n, err = res.RowsAffected()
		case changeUpdate:
			res, execErr := tx.ExecContext(ctx,
				"UPDATE points_of_interest SET name = ?, description = ? WHERE id = ? AND city_id = ?",
				ch.poi.Name, nullable(ch.poi.Description), ch.poi.ID, ch.poi.CityID)
			if execErr != nil {
				return false, fmt.Errorf("update point of interest %d: %w", ch.poi.ID, execErr)
			}
			n, err = res.RowsAffected()
		case changeDelete:
			res, execErr := tx.ExecContext(ctx,
				"DELETE FROM points_of_interest WHERE id = ? AND city_id = ?",
				ch.poi.ID, ch.poi.CityID)
			if execErr != nil {
				return false, fmt.Errorf("delete point of interest %d: %w", ch.poi.ID, execErr)
			}
			n, err = res.RowsAffected()
		}
		if err != nil {
			return false, err
		}
		affected += n
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	for poi, id := range inserted {
		poi.ID = id
	}
	s.pending = nil
	return affected > 0, nil
}
