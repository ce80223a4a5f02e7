package idp

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"roster/internal/directory/models"
)

// FakeProvider is an in-memory stand-in for the external provider, used
// by handler tests and the dev wiring. It enforces the same identifier
// uniqueness the real provider does and hashes credentials so tests never
// hold plaintext passwords.
type FakeProvider struct {
	mu        sync.Mutex
	accounts  map[string]*Account
	passwords map[string][]byte
	failures  map[string]error
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		accounts:  make(map[string]*Account),
		passwords: make(map[string][]byte),
		failures:  make(map[string]error),
	}
}

// FailNext arranges for the next call to the named operation to return
// err once. Operation names match the method names on the client.
func (f *FakeProvider) FailNext(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = err
}

func (f *FakeProvider) takeFailure(op string) error {
	if err, ok := f.failures[op]; ok {
		delete(f.failures, op)
		return err
	}
	return nil
}

func (f *FakeProvider) CreateAccount(_ context.Context, fields models.IdentityFields, role models.Role) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure("CreateAccount"); err != nil {
		return "", err
	}

	for _, a := range f.accounts {
		if a.Username == fields.Username {
			return "", &Error{Code: CodeDuplicateIdentifier, Message: "username is taken"}
		}
		if fields.Email != "" {
			for _, e := range a.Emails {
				if e.Address == fields.Email {
					return "", &Error{Code: CodeDuplicateIdentifier, Message: "email address is taken"}
				}
			}
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(fields.Password), bcrypt.MinCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	account := &Account{
		ID:       "usr_" + uuid.NewString(),
		Username: fields.Username,
		Name:     fields.Name,
		Surname:  fields.Surname,
		Role:     role,
	}
	if fields.Email != "" {
		email := EmailAddress{ID: "eml_" + uuid.NewString(), Address: fields.Email, Verified: true}
		account.Emails = append(account.Emails, email)
		account.PrimaryEmailID = email.ID
	}

	f.accounts[account.ID] = account
	f.passwords[account.ID] = hash
	return account.ID, nil
}

func (f *FakeProvider) UpdateAccount(_ context.Context, id string, fields models.IdentityFields) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure("UpdateAccount"); err != nil {
		return err
	}

	account, ok := f.accounts[id]
	if !ok {
		return &Error{Code: CodeNotFound, Message: "account not found"}
	}
	account.Username = fields.Username
	account.Name = fields.Name
	account.Surname = fields.Surname
	if fields.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(fields.Password), bcrypt.MinCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		f.passwords[id] = hash
	}
	return nil
}

func (f *FakeProvider) DeleteAccount(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure("DeleteAccount"); err != nil {
		return err
	}

	if _, ok := f.accounts[id]; !ok {
		return &Error{Code: CodeNotFound, Message: "account not found"}
	}
	delete(f.accounts, id)
	delete(f.passwords, id)
	return nil
}

func (f *FakeProvider) GetAccount(_ context.Context, id string) (*Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure("GetAccount"); err != nil {
		return nil, err
	}

	account, ok := f.accounts[id]
	if !ok {
		return nil, &Error{Code: CodeNotFound, Message: "account not found"}
	}
	snapshot := *account
	snapshot.Emails = append([]EmailAddress(nil), account.Emails...)
	return &snapshot, nil
}

func (f *FakeProvider) CreateEmail(_ context.Context, accountID string, address string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure("CreateEmail"); err != nil {
		return "", err
	}

	account, ok := f.accounts[accountID]
	if !ok {
		return "", &Error{Code: CodeNotFound, Message: "account not found"}
	}
	email := EmailAddress{ID: "eml_" + uuid.NewString(), Address: address, Verified: true}
	account.Emails = append(account.Emails, email)
	return email.ID, nil
}

func (f *FakeProvider) SetPrimaryEmail(_ context.Context, accountID string, emailID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure("SetPrimaryEmail"); err != nil {
		return err
	}

	account, ok := f.accounts[accountID]
	if !ok {
		return &Error{Code: CodeNotFound, Message: "account not found"}
	}
	for _, e := range account.Emails {
		if e.ID == emailID {
			account.PrimaryEmailID = emailID
			return nil
		}
	}
	return &Error{Code: CodeNotFound, Message: "email address not found"}
}

func (f *FakeProvider) DeleteEmail(_ context.Context, emailID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure("DeleteEmail"); err != nil {
		return err
	}

	for _, account := range f.accounts {
		for i, e := range account.Emails {
			if e.ID == emailID {
				account.Emails = append(account.Emails[:i], account.Emails[i+1:]...)
				if account.PrimaryEmailID == emailID {
					account.PrimaryEmailID = ""
				}
				return nil
			}
		}
	}
	return &Error{Code: CodeNotFound, Message: "email address not found"}
}
