package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/cityinfo-api/internal/model"
	"github.com/iliyamo/cityinfo-api/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id, user_name, password_hash, first_name, last_name, city, is_active, created_at, updated_at"

// Create hashes password and inserts the user, returning its ID.
func (r *UserRepo) Create(ctx context.Context, u model.User, password string, cost int) (uint64, error) {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (user_name, password_hash, first_name, last_name, city) VALUES (?,?,?,?,?)",
		strings.TrimSpace(u.UserName), hash, u.FirstName, u.LastName, u.City)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrDuplicateUserName
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByUserName returns nil when no user has that name.
func (r *UserRepo) GetByUserName(ctx context.Context, userName string) (*model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE user_name=? LIMIT 1",
		strings.TrimSpace(userName)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// List returns all users ordered by name, for the operator CLI.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY user_name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// SetActive enables or disables a user. It reports false for unknown names.
func (r *UserRepo) SetActive(ctx context.Context, userName string, active bool) (bool, error) {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET is_active=? WHERE user_name=?", active, strings.TrimSpace(userName))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func scanUser(sc scanner) (*model.User, error) {
	var u model.User
	if err := sc.Scan(&u.ID, &u.UserName, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.City, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
