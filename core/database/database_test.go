package database_test

import (
	"testing"

	"license-reconciler/core/database"

	"github.com/stretchr/testify/assert"
)

func TestConnectSQLiteInMemory(t *testing.T) {
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	assert.NoError(t, err)
	assert.NotNil(t, db)

	// The connection should be usable for plain SQL.
	err = db.Exec("CREATE TABLE probe (id INTEGER PRIMARY KEY)").Error
	assert.NoError(t, err)
}

func TestConnectMySQLUnreachable(t *testing.T) {
	// Port 1 is never a MySQL server; Connect must fail with an error
	// rather than returning a half-open handle.
	cfg := database.Config{
		Driver:         "mysql",
		Host:           "127.0.0.1",
		Port:           1,
		User:           "root",
		Name:           "licenses",
		TimeoutSeconds: 1,
	}
	db, err := database.Connect(cfg)
	assert.Error(t, err)
	assert.Nil(t, db)
}
