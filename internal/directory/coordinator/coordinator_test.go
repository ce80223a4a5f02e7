package coordinator

//go:generate mockgen -source=coordinator.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"roster/internal/audit"
	"roster/internal/directory/coordinator/mocks"
	"roster/internal/directory/idp"
	"roster/internal/directory/models"
	"roster/internal/directory/store"
	"roster/internal/ledger"
)

func teacherCmd() models.TeacherCommand {
	return models.TeacherCommand{
		IdentityFields: models.IdentityFields{
			Username: "jdoe",
			Password: "correct-horse-battery",
			Name:     "Jane",
			Surname:  "Doe",
			Email:    "jane@example.com",
		},
		Address:   "12 Main St",
		BloodType: "A+",
		Sex:       models.SexFemale,
		Subjects:  []int64{1, 2},
	}
}

func TestCoordinator_Create_InsertsUnderAccountID(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockIdentityProvider(ctrl)
	repo := mocks.NewMockRepository[models.TeacherCommand](ctrl)

	cmd := teacherCmd()
	provider.EXPECT().
		CreateAccount(gomock.Any(), cmd.IdentityFields, models.RoleTeacher).
		Return("usr_1", nil)
	repo.EXPECT().
		Insert(gomock.Any(), "usr_1", cmd).
		Return(nil)

	c := New[models.TeacherCommand](models.RoleTeacher, provider, repo)
	result := c.Create(context.Background(), cmd)

	assert.True(t, result.Success)
	assert.False(t, result.Error)
	assert.Empty(t, result.ErrorMessage)
}

func TestCoordinator_Create_AccountFailureSkipsInsert(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockIdentityProvider(ctrl)
	repo := mocks.NewMockRepository[models.TeacherCommand](ctrl)

	provider.EXPECT().
		CreateAccount(gomock.Any(), gomock.Any(), models.RoleTeacher).
		Return("", &idp.Error{Code: idp.CodeDuplicateIdentifier, Message: "username is taken"})
	// No Insert, no DeleteAccount: nothing was applied, nothing unwinds.

	c := New[models.TeacherCommand](models.RoleTeacher, provider, repo)
	result := c.Create(context.Background(), teacherCmd())

	assert.True(t, result.Error)
	assert.Equal(t, "That username or email address is already taken.", result.ErrorMessage)
}

func TestCoordinator_Create_InsertFailureCompensatesOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockIdentityProvider(ctrl)
	repo := mocks.NewMockRepository[models.TeacherCommand](ctrl)

	insertErr := &store.Error{Code: store.CodeUniqueViolation, Fields: []string{"username"}}
	provider.EXPECT().CreateAccount(gomock.Any(), gomock.Any(), models.RoleTeacher).Return("usr_1", nil)
	repo.EXPECT().Insert(gomock.Any(), "usr_1", gomock.Any()).Return(insertErr)
	provider.EXPECT().DeleteAccount(gomock.Any(), "usr_1").Return(nil).Times(1)

	c := New[models.TeacherCommand](models.RoleTeacher, provider, repo)
	result := c.Create(context.Background(), teacherCmd())

	assert.True(t, result.Error)
	assert.Equal(t, "A record with the same username already exists.", result.ErrorMessage)
}

func TestCoordinator_Create_CompensationFailureKeepsOriginalError(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockIdentityProvider(ctrl)
	repo := mocks.NewMockRepository[models.TeacherCommand](ctrl)
	ledgerStore := ledger.NewMemoryStore()

	insertErr := &store.Error{Code: store.CodeForeignKeyViolation, Fields: []string{"parent_id"}}
	provider.EXPECT().CreateAccount(gomock.Any(), gomock.Any(), models.RoleTeacher).Return("usr_1", nil)
	repo.EXPECT().Insert(gomock.Any(), "usr_1", gomock.Any()).Return(insertErr)
	provider.EXPECT().DeleteAccount(gomock.Any(), "usr_1").Return(errors.New("provider down"))

	c := New[models.TeacherCommand](models.RoleTeacher, provider, repo, WithLedger(ledgerStore))
	result := c.Create(context.Background(), teacherCmd())

	// Caller sees the insert failure, not the compensation failure.
	assert.True(t, result.Error)
	assert.Equal(t, "Foreign key constraint failed on parent_id. Make sure related data exists.", result.ErrorMessage)

	// The orphaned account is on the ledger.
	entries, err := ledgerStore.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.KindOrphanedAccount, entries[0].Kind)
	assert.Equal(t, "usr_1", entries[0].EntityID)
}

func TestCoordinator_Update_RequiresID(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockIdentityProvider(ctrl)
	repo := mocks.NewMockRepository[models.TeacherCommand](ctrl)

	c := New[models.TeacherCommand](models.RoleTeacher, provider, repo)
	result := c.Update(context.Background(), teacherCmd())

	assert.True(t, result.Error)
	assert.Equal(t, "Cannot update a record without an id.", result.ErrorMessage)
}

func TestCoordinator_Update_HappyPathRotatesEmail(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockIdentityProvider(ctrl)
	repo := mocks.NewMockRepository[models.TeacherCommand](ctrl)

	cmd := teacherCmd()
	cmd.ID = "usr_1"
	account := &idp.Account{
		ID:             "usr_1",
		Emails:         []idp.EmailAddress{{ID: "eml_old", Address: "old@example.com"}},
		PrimaryEmailID: "eml_old",
	}

	gomock.InOrder(
		provider.EXPECT().UpdateAccount(gomock.Any(), "usr_1", cmd.IdentityFields).Return(nil),
		provider.EXPECT().GetAccount(gomock.Any(), "usr_1").Return(account, nil),
		provider.EXPECT().CreateEmail(gomock.Any(), "usr_1", "jane@example.com").Return("eml_new", nil),
		provider.EXPECT().SetPrimaryEmail(gomock.Any(), "usr_1", "eml_new").Return(nil),
		provider.EXPECT().DeleteEmail(gomock.Any(), "eml_old").Return(nil),
		repo.EXPECT().Update(gomock.Any(), "usr_1", cmd).Return(nil),
	)

	c := New[models.TeacherCommand](models.RoleTeacher, provider, repo)
	result := c.Update(context.Background(), cmd)

	assert.True(t, result.Success)
	assert.Empty(t, result.PartialFailures)
}

func TestCoordinator_Update_EmailAlreadyPrimaryIsNoop(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockIdentityProvider(ctrl)
	repo := mocks.NewMockRepository[models.TeacherCommand](ctrl)

	cmd := teacherCmd()
	cmd.ID = "usr_1"
	account := &idp.Account{
		ID:             "usr_1",
		Emails:         []idp.EmailAddress{{ID: "eml_1", Address: "jane@example.com"}},
		PrimaryEmailID: "eml_1",
	}

	provider.EXPECT().UpdateAccount(gomock.Any(), "usr_1", gomock.Any()).Return(nil)
	provider.EXPECT().GetAccount(gomock.Any(), "usr_1").Return(account, nil)
	// No CreateEmail, SetPrimaryEmail, or DeleteEmail.
	repo.EXPECT().Update(gomock.Any(), "usr_1", cmd).Return(nil)

	c := New[models.TeacherCommand](models.RoleTeacher, provider, repo)
	result := c.Update(context.Background(), cmd)

	assert.True(t, result.Success)
	assert.Empty(t, result.PartialFailures)
}

func TestCoordinator_Update_EmailRotationFailureIsPartial(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockIdentityProvider(ctrl)
	repo := mocks.NewMockRepository[models.TeacherCommand](ctrl)

	cmd := teacherCmd()
	cmd.ID = "usr_1"
	account := &idp.Account{ID: "usr_1"}

	provider.EXPECT().UpdateAccount(gomock.Any(), "usr_1", gomock.Any()).Return(nil)
	provider.EXPECT().GetAccount(gomock.Any(), "usr_1").Return(account, nil)
	provider.EXPECT().CreateEmail(gomock.Any(), "usr_1", "jane@example.com").
		Return("", &idp.Error{Code: idp.CodeRateLimited})
	// Profile update still runs.
	repo.EXPECT().Update(gomock.Any(), "usr_1", cmd).Return(nil)

	c := New[models.TeacherCommand](models.RoleTeacher, provider, repo)
	result := c.Update(context.Background(), cmd)

	assert.True(t, result.Success)
	assert.False(t, result.Error)
	require.Len(t, result.PartialFailures, 1)
	assert.Equal(t, "email rotation: Too many requests. Try again in a moment.", result.PartialFailures[0])
}

func TestCoordinator_Update_NoEmailSkipsRotation(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockIdentityProvider(ctrl)
	repo := mocks.NewMockRepository[models.TeacherCommand](ctrl)

	cmd := teacherCmd()
	cmd.ID = "usr_1"
	cmd.Email = ""

	provider.EXPECT().UpdateAccount(gomock.Any(), "usr_1", gomock.Any()).Return(nil)
	repo.EXPECT().Update(gomock.Any(), "usr_1", cmd).Return(nil)

	c := New[models.TeacherCommand](models.RoleTeacher, provider, repo)
	result := c.Update(context.Background(), cmd)

	assert.True(t, result.Success)
}

func TestCoordinator_Update_ProfileFailureHasNoCompensation(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockIdentityProvider(ctrl)
	repo := mocks.NewMockRepository[models.TeacherCommand](ctrl)
	ledgerStore := ledger.NewMemoryStore()

	cmd := teacherCmd()
	cmd.ID = "usr_1"
	cmd.Email = ""

	provider.EXPECT().UpdateAccount(gomock.Any(), "usr_1", gomock.Any()).Return(nil)
	repo.EXPECT().Update(gomock.Any(), "usr_1", cmd).Return(store.ErrNotFound)
	// The identity update is never rolled back.

	c := New[models.TeacherCommand](models.RoleTeacher, provider, repo, WithLedger(ledgerStore))
	result := c.Update(context.Background(), cmd)

	assert.True(t, result.Error)
	assert.Equal(t, "Record to update/delete does not exist.", result.ErrorMessage)

	entries, err := ledgerStore.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.KindPartialUpdate, entries[0].Kind)
}

func TestCoordinator_Delete_RequiresID(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockIdentityProvider(ctrl)
	repo := mocks.NewMockRepository[models.TeacherCommand](ctrl)

	c := New[models.TeacherCommand](models.RoleTeacher, provider, repo)
	result := c.Delete(context.Background(), "")

	assert.True(t, result.Error)
	assert.Equal(t, "Cannot delete a record without an id.", result.ErrorMessage)
}

func TestCoordinator_Delete_AccountFirstThenProfile(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockIdentityProvider(ctrl)
	repo := mocks.NewMockRepository[models.TeacherCommand](ctrl)

	gomock.InOrder(
		provider.EXPECT().DeleteAccount(gomock.Any(), "usr_1").Return(nil),
		repo.EXPECT().Delete(gomock.Any(), "usr_1").Return(nil),
	)

	c := New[models.TeacherCommand](models.RoleTeacher, provider, repo)
	result := c.Delete(context.Background(), "usr_1")

	assert.True(t, result.Success)
}

func TestCoordinator_Delete_AccountFailureStopsPipeline(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockIdentityProvider(ctrl)
	repo := mocks.NewMockRepository[models.TeacherCommand](ctrl)

	provider.EXPECT().DeleteAccount(gomock.Any(), "usr_1").
		Return(&idp.Error{Code: idp.CodeNotFound})
	// Profile delete never runs.

	c := New[models.TeacherCommand](models.RoleTeacher, provider, repo)
	result := c.Delete(context.Background(), "usr_1")

	assert.True(t, result.Error)
	assert.Equal(t, "The account does not exist.", result.ErrorMessage)
}

func TestCoordinator_Delete_ProfileFailureLeavesOrphanOnLedger(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockIdentityProvider(ctrl)
	repo := mocks.NewMockRepository[models.TeacherCommand](ctrl)
	ledgerStore := ledger.NewMemoryStore()

	provider.EXPECT().DeleteAccount(gomock.Any(), "usr_1").Return(nil)
	repo.EXPECT().Delete(gomock.Any(), "usr_1").Return(store.ErrNotFound)
	// No compensating account re-create exists.

	c := New[models.TeacherCommand](models.RoleTeacher, provider, repo, WithLedger(ledgerStore))
	result := c.Delete(context.Background(), "usr_1")

	assert.True(t, result.Error)
	assert.Equal(t, "Record to update/delete does not exist.", result.ErrorMessage)

	entries, err := ledgerStore.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.KindOrphanedProfile, entries[0].Kind)
	assert.Equal(t, "usr_1", entries[0].EntityID)
}

func TestCoordinator_AuditEventsOnLifecycle(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockIdentityProvider(ctrl)
	repo := mocks.NewMockRepository[models.TeacherCommand](ctrl)
	sink := audit.NewMemorySink()
	publisher := audit.NewPublisher(sink)

	provider.EXPECT().CreateAccount(gomock.Any(), gomock.Any(), models.RoleTeacher).Return("usr_1", nil)
	repo.EXPECT().Insert(gomock.Any(), "usr_1", gomock.Any()).Return(nil)

	c := New[models.TeacherCommand](models.RoleTeacher, provider, repo, WithAuditPublisher(publisher))
	result := c.Create(context.Background(), teacherCmd())

	require.True(t, result.Success)
	events := sink.ByAction(audit.ActionProfileCreated)
	require.Len(t, events, 1)
	assert.Equal(t, "usr_1", events[0].EntityID)
	assert.Equal(t, "teacher", events[0].Role)
}
