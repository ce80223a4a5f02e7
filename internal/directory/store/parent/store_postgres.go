// Package parent persists parent profile rows.
package parent

import (
	"context"
	"database/sql"

	"roster/internal/directory/models"
	"roster/internal/directory/store"
)

// Postgres is the production repository.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Insert(ctx context.Context, id string, cmd models.ParentCommand) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO parents (id, username, name, surname, email, phone, address)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id, cmd.Username, cmd.Name, cmd.Surname, nullString(cmd.Email), nullString(cmd.Phone), cmd.Address)
	return store.MapError(err)
}

func (s *Postgres) Update(ctx context.Context, id string, cmd models.ParentCommand) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE parents
		SET username = $2, name = $3, surname = $4, email = $5, phone = $6, address = $7
		WHERE id = $1
	`, id, cmd.Username, cmd.Name, cmd.Surname, nullString(cmd.Email), nullString(cmd.Phone), cmd.Address)
	if err != nil {
		return store.MapError(err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Delete fails with a foreign key violation while students still
// reference the parent.
func (s *Postgres) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM parents WHERE id = $1`, id)
	if err != nil {
		return store.MapError(err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id string) (*models.Parent, error) {
	var p models.Parent
	var email, phone sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, name, surname, email, phone, address, created_at
		FROM parents WHERE id = $1
	`, id).Scan(&p.ID, &p.Username, &p.Name, &p.Surname, &email, &phone, &p.Address, &p.CreatedAt)
	if err != nil {
		return nil, store.MapError(err)
	}
	p.Email = email.String
	p.Phone = phone.String
	return &p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
