package coordinator

import (
	"context"

	"roster/internal/audit"
)

// rotatePrimaryEmail swaps the account's primary email for the requested
// address: create the new email object pre-verified, promote it to
// primary, then delete the old primary. When the current primary already
// matches, nothing is touched. This guards against a no-op only, not
// against a concurrent rotation on the same account; the coordinator
// holds no lock per entity id.
func (c *Coordinator[C]) rotatePrimaryEmail(ctx context.Context, accountID string, requested string) error {
	account, err := c.provider.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}

	current := account.PrimaryEmail()
	if current != nil && current.Address == requested {
		return nil
	}

	emailID, err := c.provider.CreateEmail(ctx, accountID, requested)
	if err != nil {
		return err
	}
	if err := c.provider.SetPrimaryEmail(ctx, accountID, emailID); err != nil {
		return err
	}
	if current != nil {
		if err := c.provider.DeleteEmail(ctx, current.ID); err != nil {
			return err
		}
	}

	c.emitAudit(ctx, audit.ActionEmailRotated, accountID)
	return nil
}
