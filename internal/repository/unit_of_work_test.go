package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cityinfo-api/internal/model"
)

const selectCity = "SELECT id, name, description FROM cities WHERE id = ?"

func expectCity(mock sqlmock.Sqlmock, id uint64) {
	mock.ExpectQuery(q(selectCity)).WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description"}).AddRow(id, "Paris", nil))
}

func TestAddPointOfInterestIsDeferredUntilSave(t *testing.T) {
	s, mock := newSession(t)
	expectCity(mock, 3)

	poi := &model.PointOfInterest{Name: "Sacré-Coeur", Description: "A basilica on Montmartre."}
	found, err := s.AddPointOfInterest(context.Background(), 3, poi)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint64(3), poi.CityID)
	assert.Zero(t, poi.ID)
	// Only the city lookup has run so far.
	assert.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO points_of_interest (city_id, name, description) VALUES (?, ?, ?)")).
		WithArgs(3, "Sacré-Coeur", "A basilica on Montmartre.").
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectCommit()

	ok, err := s.SaveChanges(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(42), poi.ID)
	assert.NoError(t, mock.ExpectationsWereMet())

	// The queue is drained after a successful save.
	ok, err = s.SaveChanges(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAddPointOfInterestUnknownCity(t *testing.T) {
	s, mock := newSession(t)
	mock.ExpectQuery(q(selectCity)).WithArgs(99).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description"}))

	found, err := s.AddPointOfInterest(context.Background(), 99, &model.PointOfInterest{Name: "Nowhere"})
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, s.pending)
}

func TestSaveChangesWithNothingPending(t *testing.T) {
	s, mock := newSession(t)
	ok, err := s.SaveChanges(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveChangesUpdateAndDelete(t *testing.T) {
	s, mock := newSession(t)
	upd := &model.PointOfInterest{ID: 5, CityID: 3, Name: "Eiffel Tower"}
	del := &model.PointOfInterest{ID: 6, CityID: 3, Name: "The Louvre"}
	s.UpdatePointOfInterest(upd)
	s.DeletePointOfInterest(del)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE points_of_interest SET name = ?, description = ? WHERE id = ? AND city_id = ?")).
		WithArgs("Eiffel Tower", nil, 5, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("DELETE FROM points_of_interest WHERE id = ? AND city_id = ?")).
		WithArgs(6, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := s.SaveChanges(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveChangesReportsNoAffectedRows(t *testing.T) {
	s, mock := newSession(t)
	s.UpdatePointOfInterest(&model.PointOfInterest{ID: 5, CityID: 3, Name: "Eiffel Tower"})

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE points_of_interest")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	ok, err := s.SaveChanges(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveChangesRollsBackAndKeepsQueue(t *testing.T) {
	s, mock := newSession(t)
	s.DeletePointOfInterest(&model.PointOfInterest{ID: 6, CityID: 3})

	boom := errors.New("lock wait timeout")
	mock.ExpectBegin()
	mock.ExpectExec(q("DELETE FROM points_of_interest")).WillReturnError(boom)
	mock.ExpectRollback()

	_, err := s.SaveChanges(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Len(t, s.pending, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionsDoNotShareQueues(t *testing.T) {
	store := NewStore(nil)
	a, b := store.Session(), store.Session()
	a.DeletePointOfInterest(&model.PointOfInterest{ID: 1})
	assert.Len(t, a.pending, 1)
	assert.Empty(t, b.pending)
}
