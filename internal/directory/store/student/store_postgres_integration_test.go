//go:build integration

package student_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"roster/internal/directory/models"
	"roster/internal/directory/store"
	"roster/internal/directory/store/parent"
	"roster/internal/directory/store/student"
	"roster/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *student.Postgres
	parents  *parent.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.Require().NoError(s.postgres.SeedReferenceData(context.Background()))
	s.store = student.NewPostgres(s.postgres.DB)
	s.parents = parent.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	_ = s.postgres.DB.Close()
	_ = s.postgres.Container.Terminate(context.Background())
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background()))
}

func (s *PostgresStoreSuite) seedParent(id string) {
	cmd := models.ParentCommand{
		IdentityFields: models.IdentityFields{
			Username: "parent-" + id,
			Name:     "Pat",
			Surname:  "Doe",
		},
		Phone:   "+1-555-" + id,
		Address: "12 Main St",
	}
	s.Require().NoError(s.parents.Insert(context.Background(), id, cmd))
}

func newStudentCmd(username string, parentID string) models.StudentCommand {
	return models.StudentCommand{
		IdentityFields: models.IdentityFields{
			Username: username,
			Name:     "Sam",
			Surname:  "Doe",
			Email:    username + "@example.com",
		},
		Address:   "12 Main St",
		BloodType: "O-",
		Sex:       models.SexMale,
		ClassID:   1,
		GradeID:   1,
		ParentID:  parentID,
	}
}

func (s *PostgresStoreSuite) TestInsertAndFind() {
	ctx := context.Background()
	s.seedParent("usr_parent")

	s.Require().NoError(s.store.Insert(ctx, "usr_1", newStudentCmd("sdoe", "usr_parent")))

	row, err := s.store.FindByID(ctx, "usr_1")
	s.Require().NoError(err)
	s.Equal("usr_1", row.ID)
	s.Equal(int64(1), row.ClassID)
	s.Equal("usr_parent", row.ParentID)
}

func (s *PostgresStoreSuite) TestInsertUnknownParentFails() {
	err := s.store.Insert(context.Background(), "usr_1", newStudentCmd("sdoe", "usr_missing"))

	var typed *store.Error
	s.Require().ErrorAs(err, &typed)
	s.Equal(store.CodeForeignKeyViolation, typed.Code)
	s.Equal([]string{"parent_id"}, typed.Fields)
}

func (s *PostgresStoreSuite) TestInsertUnknownClassFails() {
	s.seedParent("usr_parent")
	cmd := newStudentCmd("sdoe", "usr_parent")
	cmd.ClassID = 999

	err := s.store.Insert(context.Background(), "usr_1", cmd)

	var typed *store.Error
	s.Require().ErrorAs(err, &typed)
	s.Equal(store.CodeForeignKeyViolation, typed.Code)
	s.Equal([]string{"class_id"}, typed.Fields)
}

func (s *PostgresStoreSuite) TestUpdateMissingRow() {
	s.seedParent("usr_parent")
	err := s.store.Update(context.Background(), "usr_missing", newStudentCmd("sdoe", "usr_parent"))
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *PostgresStoreSuite) TestDelete() {
	ctx := context.Background()
	s.seedParent("usr_parent")
	s.Require().NoError(s.store.Insert(ctx, "usr_1", newStudentCmd("sdoe", "usr_parent")))

	s.Require().NoError(s.store.Delete(ctx, "usr_1"))

	_, err := s.store.FindByID(ctx, "usr_1")
	s.ErrorIs(err, store.ErrNotFound)
}
