package idp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster/internal/directory/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	minter := NewTokenMinter("test-key", "roster", "idp-admin-api")
	return NewHTTPClient(server.URL, minter)
}

func TestHTTPClient_CreateAccount(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/users", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "usr_1"})
	})

	id, err := client.CreateAccount(context.Background(), models.IdentityFields{
		Username: "jdoe",
		Password: "secret",
		Name:     "Jane",
		Surname:  "Doe",
		Email:    "jane@example.com",
	}, models.RoleTeacher)

	require.NoError(t, err)
	assert.Equal(t, "usr_1", id)
	assert.True(t, strings.HasPrefix(gotAuth, "Bearer "))
	assert.Equal(t, "jdoe", gotBody["username"])
	assert.Equal(t, "teacher", gotBody["role"])
	assert.Equal(t, []any{"jane@example.com"}, gotBody["email_addresses"])
}

func TestHTTPClient_ErrorEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"errors":[{"code":"form_identifier_exists","message":"That username is taken."}]}`))
	})

	_, err := client.CreateAccount(context.Background(), models.IdentityFields{Username: "jdoe"}, models.RoleTeacher)

	var typed *Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, CodeDuplicateIdentifier, typed.Code)
	assert.Equal(t, "That username is taken.", typed.Message)
}

func TestHTTPClient_NotFoundWithoutEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	err := client.DeleteAccount(context.Background(), "usr_missing")

	var typed *Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, CodeNotFound, typed.Code)
}

func TestHTTPClient_UnparsableErrorKeepsStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream blew up"))
	})

	err := client.UpdateAccount(context.Background(), "usr_1", models.IdentityFields{Username: "jdoe"})

	var typed *Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, CodeUnknown, typed.Code)
	assert.Contains(t, typed.Message, "502")
}

func TestHTTPClient_GetAccountMapsEmails(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/users/usr_1", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":                       "usr_1",
			"username":                 "jdoe",
			"first_name":               "Jane",
			"last_name":                "Doe",
			"primary_email_address_id": "eml_1",
			"email_addresses": []map[string]any{
				{"id": "eml_1", "email_address": "jane@example.com", "verified": true},
				{"id": "eml_2", "email_address": "alt@example.com", "verified": false},
			},
		})
	})

	account, err := client.GetAccount(context.Background(), "usr_1")
	require.NoError(t, err)

	assert.Equal(t, "Jane", account.Name)
	require.Len(t, account.Emails, 2)
	primary := account.PrimaryEmail()
	require.NotNil(t, primary)
	assert.Equal(t, "jane@example.com", primary.Address)
}

func TestHTTPClient_SetPrimaryEmail(t *testing.T) {
	var gotBody map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/v1/users/usr_1", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.SetPrimaryEmail(context.Background(), "usr_1", "eml_2"))
	assert.Equal(t, "eml_2", gotBody["primary_email_address_id"])
}
