package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/cityinfo-api/internal/model"
	"github.com/iliyamo/cityinfo-api/internal/pagination"
)

// CityFilter defines filters & pagination for listing cities.
type CityFilter struct {
	Name        string // exact match after trimming
	SearchQuery string // substring of name or description
	PageNumber  int
	PageSize    int
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListCities counts the filtered set before paging, then returns one page
// ordered by name. Cities come back without their points of interest.
func (s *Session) ListCities(ctx context.Context, f CityFilter) ([]model.City, pagination.Metadata, error) {
	page, size := pagination.Normalize(f.PageNumber, f.PageSize)

	where := []string{}
	args := []any{}

	if name := strings.TrimSpace(f.Name); name != "" {
		where = append(where, "name = ?")
		args = append(args, name)
	}
	if q := strings.TrimSpace(f.SearchQuery); q != "" {
		like := "%" + likeEscaper.Replace(q) + "%"
		where = append(where, "(name LIKE ? OR description LIKE ?)")
		args = append(args, like, like)
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cities WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, pagination.Metadata{}, err
	}

	dataSQL := "SELECT id, name, description FROM cities WHERE " + cond +
		" ORDER BY name ASC, id ASC LIMIT ? OFFSET ?"
	argsData := append(append([]any{}, args...), size, pagination.Offset(page, size))

	rows, err := s.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, pagination.Metadata{}, err
	}
	defer rows.Close()

	out := make([]model.City, 0, min(int64(size), total))
	for rows.Next() {
		var (
			c    model.City
			desc sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Name, &desc); err != nil {
			return nil, pagination.Metadata{}, err
		}
		c.Description = desc.String
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, pagination.Metadata{}, err
	}
	return out, pagination.New(total, size, page), nil
}
