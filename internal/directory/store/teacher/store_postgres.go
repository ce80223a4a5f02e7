// Package teacher persists teacher profile rows. The row id always
// equals the identity account id the coordinator obtained from the
// provider.
package teacher

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

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

// Insert creates the profile row and its subject links in one
// transaction so a half-written teacher never becomes visible.
func (s *Postgres) Insert(ctx context.Context, id string, cmd models.TeacherCommand) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.MapError(err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO teachers (id, username, name, surname, email, phone, address, img, blood_type, sex, birthday)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, id, cmd.Username, cmd.Name, cmd.Surname, nullString(cmd.Email), nullString(cmd.Phone),
		cmd.Address, nullString(cmd.Img), cmd.BloodType, cmd.Sex, cmd.Birthday)
	if err != nil {
		return store.MapError(err)
	}

	if err := replaceSubjects(ctx, tx, id, cmd.Subjects); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return store.MapError(err)
	}
	return nil
}

// Update rewrites the profile fields and replaces the subject set
// wholesale with the set named in the command.
func (s *Postgres) Update(ctx context.Context, id string, cmd models.TeacherCommand) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.MapError(err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE teachers
		SET username = $2, name = $3, surname = $4, email = $5, phone = $6,
			address = $7, img = $8, blood_type = $9, sex = $10, birthday = $11
		WHERE id = $1
	`, id, cmd.Username, cmd.Name, cmd.Surname, nullString(cmd.Email), nullString(cmd.Phone),
		cmd.Address, nullString(cmd.Img), cmd.BloodType, cmd.Sex, cmd.Birthday)
	if err != nil {
		return store.MapError(err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return store.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM teacher_subjects WHERE teacher_id = $1`, id); err != nil {
		return store.MapError(err)
	}
	if err := replaceSubjects(ctx, tx, id, cmd.Subjects); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return store.MapError(err)
	}
	return nil
}

// Delete removes the profile row. Subject links go with it via cascade;
// rows referenced elsewhere (lessons, classes) make the delete fail with
// a foreign key violation, which the caller classifies.
func (s *Postgres) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM teachers WHERE id = $1`, id)
	if err != nil {
		return store.MapError(err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// FindByID loads one teacher with its subject ids.
func (s *Postgres) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	var t models.Teacher
	var email, phone, img sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, name, surname, email, phone, address, img, blood_type, sex, birthday, created_at
		FROM teachers WHERE id = $1
	`, id).Scan(&t.ID, &t.Username, &t.Name, &t.Surname, &email, &phone,
		&t.Address, &img, &t.BloodType, &t.Sex, &t.Birthday, &t.CreatedAt)
	if err != nil {
		return nil, store.MapError(err)
	}
	t.Email = email.String
	t.Phone = phone.String
	t.Img = img.String

	rows, err := s.db.QueryContext(ctx, `SELECT subject_id FROM teacher_subjects WHERE teacher_id = $1 ORDER BY subject_id`, id)
	if err != nil {
		return nil, store.MapError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var subjectID int64
		if err := rows.Scan(&subjectID); err != nil {
			return nil, fmt.Errorf("scan subject id: %w", err)
		}
		t.Subjects = append(t.Subjects, subjectID)
	}
	if err := rows.Err(); err != nil {
		return nil, store.MapError(err)
	}
	return &t, nil
}

func replaceSubjects(ctx context.Context, tx *sql.Tx, id string, subjects []int64) error {
	if len(subjects) == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO teacher_subjects (teacher_id, subject_id)
		SELECT $1, unnest($2::bigint[])
	`, id, pq.Array(subjects))
	if err != nil {
		return store.MapError(err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
