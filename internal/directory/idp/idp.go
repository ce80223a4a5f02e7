// Package idp talks to the external identity provider that owns login
// accounts for directory profiles. The provider is the source of truth
// for usernames, credentials, email addresses, and the role claim; this
// package only issues commands against it.
package idp

import "roster/internal/directory/models"

// Account is a point-in-time snapshot of a provider account.
type Account struct {
	ID             string
	Username       string
	Name           string
	Surname        string
	Role           models.Role
	Emails         []EmailAddress
	PrimaryEmailID string
}

// EmailAddress is one email object attached to an account.
type EmailAddress struct {
	ID       string
	Address  string
	Verified bool
}

// PrimaryEmail returns the email object currently marked primary, or nil
// when the account has none.
func (a *Account) PrimaryEmail() *EmailAddress {
	for i := range a.Emails {
		if a.Emails[i].ID == a.PrimaryEmailID {
			return &a.Emails[i]
		}
	}
	return nil
}
