package tests

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/rentdesk/rentdesk/internal/database"
	"github.com/rentdesk/rentdesk/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// AssertJSONResponse checks the status code and compares the JSON body with expected.
func AssertJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, status int, expected any) {
	t.Helper()

	assert.Equal(t, status, recorder.Code)
	if expected == nil {
		assert.Empty(t, recorder.Body.String())
		return
	}

	want, err := json.Marshal(expected)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), recorder.Body.String())
}

// AssertErrorResponse checks that the body carries the given error code.
func AssertErrorResponse(t *testing.T, recorder *httptest.ResponseRecorder, status int, code string) {
	t.Helper()

	assert.Equal(t, status, recorder.Code)

	var body models.Error
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, status, body.Status)
	assert.Contains(t, body.Error, code)
}

// NewSQLiteDB returns an isolated in-memory database with the full schema.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	config := models.DatabaseConfiguration{
		Type: "sqlite",
		Name: fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	}

	db, err := database.Open(config)
	require.NoError(t, err)
	db.Logger = logger.Discard

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db, config.Type))
	return db
}
