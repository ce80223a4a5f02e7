// Package coordinator sequences lifecycle operations across the two
// independently failing stores that back a directory profile: the
// external identity provider owning the login account, and the
// relational store owning the profile row. No transaction spans the two;
// the coordinator orders the calls and compensates where configured.
//
// The asymmetry is deliberate and mirrors long-standing behavior:
// create compensates (a failed insert deletes the just-created account),
// update and delete do not, and their accepted inconsistency windows are
// recorded to the ledger instead.
package coordinator

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"roster/internal/audit"
	"roster/internal/directory/classify"
	"roster/internal/directory/idp"
	"roster/internal/directory/metrics"
	"roster/internal/directory/models"
	"roster/internal/ledger"
	dErrors "roster/pkg/domain-errors"
)

var tracer = otel.Tracer("roster/internal/directory/coordinator")

// IdentityProvider is the synchronous contract over the external IdP.
// Every call blocks until the provider settles; the coordinator never
// retries.
type IdentityProvider interface {
	CreateAccount(ctx context.Context, fields models.IdentityFields, role models.Role) (string, error)
	UpdateAccount(ctx context.Context, id string, fields models.IdentityFields) error
	DeleteAccount(ctx context.Context, id string) error
	GetAccount(ctx context.Context, id string) (*idp.Account, error)
	CreateEmail(ctx context.Context, accountID string, address string) (string, error)
	SetPrimaryEmail(ctx context.Context, accountID string, emailID string) error
	DeleteEmail(ctx context.Context, emailID string) error
}

// Repository is the synchronous contract over the profile row for one
// entity kind. Update replaces association sets wholesale.
type Repository[C models.Command] interface {
	Insert(ctx context.Context, id string, cmd C) error
	Update(ctx context.Context, id string, cmd C) error
	Delete(ctx context.Context, id string) error
}

// AuditPublisher receives lifecycle events best effort.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type options struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   AuditPublisher
	ledger  ledger.Store
}

// Option configures a Coordinator.
type Option func(*options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(o *options) { o.audit = publisher }
}

func WithLedger(store ledger.Store) Option {
	return func(o *options) { o.ledger = store }
}

// Coordinator runs create, update, and delete for one entity kind.
// Commands arrive already validated; the coordinator trusts their shape
// and concentrates on ordering and failure handling.
type Coordinator[C models.Command] struct {
	role     models.Role
	provider IdentityProvider
	repo     Repository[C]
	logger   *slog.Logger
	metrics  *metrics.Metrics
	audit    AuditPublisher
	ledger   ledger.Store
}

// New constructs a Coordinator for one entity kind. Client lifecycles
// are owned by the process entry point, not by this package.
func New[C models.Command](role models.Role, provider IdentityProvider, repo Repository[C], opts ...Option) *Coordinator[C] {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return &Coordinator[C]{
		role:     role,
		provider: provider,
		repo:     repo,
		logger:   o.logger,
		metrics:  o.metrics,
		audit:    o.audit,
		ledger:   o.ledger,
	}
}

// Create provisions the identity account first, then inserts the profile
// row under the account id. A failed insert triggers the compensating
// account delete; the caller always sees the insert's error, classified,
// regardless of how the compensation fares.
func (c *Coordinator[C]) Create(ctx context.Context, cmd C) models.Result {
	start := time.Now()
	ctx, span := c.startSpan(ctx, "create")
	defer span.End()

	var accountID string
	sg := newSaga(c.logger)
	sg.add(step{
		name: "create-account",
		run: func(ctx context.Context) error {
			id, err := c.provider.CreateAccount(ctx, cmd.Identity(), c.role)
			if err != nil {
				return err
			}
			accountID = id
			return nil
		},
		compensate: func(ctx context.Context) error {
			return c.provider.DeleteAccount(ctx, accountID)
		},
	})
	sg.add(step{
		name: "insert-profile",
		run: func(ctx context.Context) error {
			return c.repo.Insert(ctx, accountID, cmd)
		},
	})

	if err := sg.execute(ctx); err != nil {
		c.noteCompensations(ctx, sg, accountID)
		c.observe("create", false, start)
		return models.Failed(classify.Error(err))
	}

	c.observe("create", true, start)
	c.emitAudit(ctx, audit.ActionProfileCreated, accountID)
	c.logger.InfoContext(ctx, "profile created", "role", c.role, "entity_id", accountID)
	return models.OK()
}

// Update rewrites the identity fields, best-effort rotates the primary
// email, then rewrites the profile row. There is no compensation: a
// profile update failing after the identity update leaves the account
// ahead of the row, an accepted window recorded to the ledger.
func (c *Coordinator[C]) Update(ctx context.Context, cmd C) models.Result {
	id := cmd.EntityID()
	if id == "" {
		return models.Failed(classify.Error(
			dErrors.New(dErrors.CodeValidation, "Cannot update a record without an id.")))
	}

	start := time.Now()
	ctx, span := c.startSpan(ctx, "update")
	defer span.End()

	var partial []string
	sg := newSaga(c.logger)
	sg.add(step{
		name: "update-account",
		run: func(ctx context.Context) error {
			return c.provider.UpdateAccount(ctx, id, cmd.Identity())
		},
	})
	sg.add(step{
		name: "rotate-primary-email",
		run: func(ctx context.Context) error {
			requested := cmd.Identity().Email
			if requested == "" {
				return nil
			}
			if err := c.rotatePrimaryEmail(ctx, id, requested); err != nil {
				// Email correctness ranks below completing the rest of
				// the update; the failure is surfaced as partial only.
				c.logger.WarnContext(ctx, "email rotation failed",
					"role", c.role, "entity_id", id, "error", err)
				if c.metrics != nil {
					c.metrics.EmailRotationsFailed.Inc()
				}
				partial = append(partial, "email rotation: "+classify.Error(err))
			}
			return nil
		},
	})
	sg.add(step{
		name: "update-profile",
		run: func(ctx context.Context) error {
			return c.repo.Update(ctx, id, cmd)
		},
	})

	if err := sg.execute(ctx); err != nil {
		if sg.failedStep == "update-profile" {
			c.recordInconsistency(ctx, ledger.KindPartialUpdate, id,
				"identity account updated but profile row was not")
		}
		c.observe("update", false, start)
		result := models.Failed(classify.Error(err))
		result.PartialFailures = partial
		return result
	}

	c.observe("update", true, start)
	c.emitAudit(ctx, audit.ActionProfileUpdated, id)
	c.logger.InfoContext(ctx, "profile updated", "role", c.role, "entity_id", id)
	result := models.OK()
	result.PartialFailures = partial
	return result
}

// Delete removes the identity account strictly before the profile row.
// A failed account delete stops everything; a failed row delete leaves
// an orphaned profile behind a deleted account, recorded to the ledger
// and never auto-repaired.
func (c *Coordinator[C]) Delete(ctx context.Context, id string) models.Result {
	if id == "" {
		return models.Failed(classify.Error(
			dErrors.New(dErrors.CodeValidation, "Cannot delete a record without an id.")))
	}

	start := time.Now()
	ctx, span := c.startSpan(ctx, "delete")
	defer span.End()

	sg := newSaga(c.logger)
	sg.add(step{
		name: "delete-account",
		run: func(ctx context.Context) error {
			return c.provider.DeleteAccount(ctx, id)
		},
	})
	sg.add(step{
		name: "delete-profile",
		run: func(ctx context.Context) error {
			return c.repo.Delete(ctx, id)
		},
	})

	if err := sg.execute(ctx); err != nil {
		if sg.failedStep == "delete-profile" {
			c.recordInconsistency(ctx, ledger.KindOrphanedProfile, id,
				"identity account deleted but profile row remains")
		}
		c.observe("delete", false, start)
		return models.Failed(classify.Error(err))
	}

	c.observe("delete", true, start)
	c.emitAudit(ctx, audit.ActionProfileDeleted, id)
	c.logger.InfoContext(ctx, "profile deleted", "role", c.role, "entity_id", id)
	return models.OK()
}

// noteCompensations translates the saga's unwind bookkeeping into
// metrics, audit events, and ledger entries.
func (c *Coordinator[C]) noteCompensations(ctx context.Context, sg *saga, entityID string) {
	if sg.compensationsRun > 0 {
		if c.metrics != nil {
			c.metrics.CompensationsRun.Add(float64(sg.compensationsRun))
		}
		c.emitAudit(ctx, audit.ActionCompensationRun, entityID)
	}
	for _, failure := range sg.compensationErrs {
		if c.metrics != nil {
			c.metrics.CompensationsFailed.Inc()
		}
		c.emitAudit(ctx, audit.ActionCompensationFailed, entityID)
		c.recordInconsistency(ctx, ledger.KindOrphanedAccount, entityID,
			"compensating "+failure.step+" undo failed: "+failure.err.Error())
	}
}

func (c *Coordinator[C]) recordInconsistency(ctx context.Context, kind ledger.Kind, entityID, detail string) {
	c.logger.ErrorContext(ctx, "accepted inconsistency window",
		"kind", kind, "role", c.role, "entity_id", entityID, "detail", detail)
	if c.metrics != nil {
		c.metrics.InconsistenciesLogged.Inc()
	}
	if c.ledger == nil {
		return
	}
	entry := ledger.Entry{
		Kind:     kind,
		Role:     string(c.role),
		EntityID: entityID,
		Detail:   detail,
	}
	if err := c.ledger.Record(ctx, entry); err != nil {
		c.logger.ErrorContext(ctx, "failed to record ledger entry", "error", err)
	}
}

func (c *Coordinator[C]) emitAudit(ctx context.Context, action audit.Action, entityID string) {
	if c.audit == nil {
		return
	}
	event := audit.Event{
		Action:   action,
		Role:     string(c.role),
		EntityID: entityID,
	}
	if err := c.audit.Emit(ctx, event); err != nil {
		c.logger.WarnContext(ctx, "audit emit failed", "action", action, "error", err)
	}
}

func (c *Coordinator[C]) observe(operation string, success bool, start time.Time) {
	if c.metrics != nil {
		c.metrics.ObserveOperation(string(c.role), operation, success, start)
	}
}

func (c *Coordinator[C]) startSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "directory."+operation,
		trace.WithAttributes(attribute.String("role", string(c.role))))
}
