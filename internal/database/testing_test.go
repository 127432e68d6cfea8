package database

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// newMockDB wires a sqlmock connection through sqlx so repositories can be
// exercised without Postgres.
func newMockDB(t *testing.T) (DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &PostgresDB{sqlx.NewDb(db, "sqlmock")}, mock
}

var vehicleColumns = []string{
	"id", "owner_id", "chassis_number", "make", "model", "status",
	"documents_uploaded", "submitted_at", "decided_at", "created_at", "updated_at",
}

var profileColumns = []string{
	"id", "full_name", "email", "phone", "company", "role",
	"account_status", "password_hash", "last_login_at", "created_at", "updated_at",
}

var documentColumns = []string{
	"id", "owner_id", "vehicle_id", "doc_type", "file_name", "file_path",
	"status", "remarks", "reviewed_by", "reviewed_at", "created_at", "updated_at",
}

var invoiceColumns = []string{
	"id", "vehicle_id", "owner_id", "status", "request_date", "issue_date",
	"file_path", "issued_by", "created_at", "updated_at",
}

var activationColumns = []string{
	"id", "user_id", "company_name", "authorization_letter", "id_document",
	"status", "reviewed_by", "review_notes", "reviewed_at", "created_at", "updated_at",
}

var notificationColumns = []string{
	"id", "notif_type", "title", "message", "recipient_id", "recipient_email",
	"document_id", "dispatch_status", "attempts", "dispatched_at", "created_at",
}
