// Package student persists student profile rows, including the class,
// grade, and parent links that must already exist in the schema.
package student

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

func (s *Postgres) Insert(ctx context.Context, id string, cmd models.StudentCommand) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO students (id, username, name, surname, email, phone, address, img, blood_type, sex, birthday, class_id, grade_id, parent_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, id, cmd.Username, cmd.Name, cmd.Surname, nullString(cmd.Email), nullString(cmd.Phone),
		cmd.Address, nullString(cmd.Img), cmd.BloodType, cmd.Sex, cmd.Birthday,
		cmd.ClassID, cmd.GradeID, cmd.ParentID)
	return store.MapError(err)
}

func (s *Postgres) Update(ctx context.Context, id string, cmd models.StudentCommand) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE students
		SET username = $2, name = $3, surname = $4, email = $5, phone = $6, address = $7,
			img = $8, blood_type = $9, sex = $10, birthday = $11, class_id = $12, grade_id = $13, parent_id = $14
		WHERE id = $1
	`, id, cmd.Username, cmd.Name, cmd.Surname, nullString(cmd.Email), nullString(cmd.Phone),
		cmd.Address, nullString(cmd.Img), cmd.BloodType, cmd.Sex, cmd.Birthday,
		cmd.ClassID, cmd.GradeID, cmd.ParentID)
	if err != nil {
		return store.MapError(err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Delete fails with a foreign key violation while dependent rows
// (attendance, results) still reference the student.
func (s *Postgres) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return store.MapError(err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id string) (*models.Student, error) {
	var st models.Student
	var email, phone, img sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, name, surname, email, phone, address, img, blood_type, sex, birthday, class_id, grade_id, parent_id, created_at
		FROM students WHERE id = $1
	`, id).Scan(&st.ID, &st.Username, &st.Name, &st.Surname, &email, &phone, &st.Address,
		&img, &st.BloodType, &st.Sex, &st.Birthday, &st.ClassID, &st.GradeID, &st.ParentID, &st.CreatedAt)
	if err != nil {
		return nil, store.MapError(err)
	}
	st.Email = email.String
	st.Phone = phone.String
	st.Img = img.String
	return &st, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
