package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleics/gql-dyn/internal/ir"
)

// newMockDB creates a sqlmock database with automatic cleanup and expectation checking.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

var recordColumns = []string{"id", "name", "kind", "fields"}

func TestLoad(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT id, name, kind, fields FROM records ORDER BY seq ASC").
		WillReturnRows(sqlmock.NewRows(recordColumns).
			AddRow("1", "Cat 0", "Cat", []byte(`{"fur":"long"}`)).
			AddRow("2", "Elephant 0", "Elephant", []byte(`{"age":12}`)))

	got, err := NewFromDB(db).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ir.Record{
		ID: "1", Name: "Cat 0", Kind: "Cat",
		Fields: map[string]ir.FieldValue{"fur": ir.StringValue("long")},
	}, got[0])
	assert.Equal(t, ir.NumberValue(12), got[1].Fields["age"])
}

func TestLoad_Empty(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT .+ FROM records").
		WillReturnRows(sqlmock.NewRows(recordColumns))

	got, err := NewFromDB(db).Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestLoad_RejectsBadFields(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT .+ FROM records").
		WillReturnRows(sqlmock.NewRows(recordColumns).
			AddRow("1", "Cat 0", "Cat", []byte(`{"fur":true}`)))

	_, err := NewFromDB(db).Load(context.Background())
	assert.ErrorContains(t, err, `record "1"`)
}

func TestLoad_QueryError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT .+ FROM records").WillReturnError(errors.New("connection reset"))

	_, err := NewFromDB(db).Load(context.Background())
	assert.ErrorContains(t, err, "query records")
}

func TestWrite(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO records").
		WithArgs("1", "Cat 0", "Cat", []byte(`{"fur":"long"}`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO records").
		WithArgs("2", "Dog 0", "Dog", []byte(`{}`)).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err := NewFromDB(db).Write(context.Background(), []ir.Record{
		{ID: "1", Name: "Cat 0", Kind: "Cat", Fields: map[string]ir.FieldValue{"fur": ir.StringValue("long")}},
		{ID: "2", Name: "Dog 0", Kind: "Dog"},
	})
	require.NoError(t, err)
}

func TestWrite_RollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO records").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := NewFromDB(db).Write(context.Background(), []ir.Record{
		{ID: "1", Name: "Cat 0", Kind: "Cat"},
	})
	assert.ErrorContains(t, err, `insert record "1"`)
}
