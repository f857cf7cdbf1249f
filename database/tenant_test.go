package database

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"atelier-backend/models"
)

// A failed registration must roll the tenant schema back together with the
// user row, leaving no orphaned schema behind.
func TestCreateTenant_RollsBackSchemaOnFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS shop_x`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO "users"`).
		WillReturnError(errors.New("duplicate key value violates unique constraint"))
	mock.ExpectRollback()

	user := &models.User{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      "ada@example.com",
		ShopName:   "Shop X",
		SchemaName: "shop_x",
	}
	user.SetPassword("correct horse battery staple")

	err = CreateTenant(db, user, "shop_x")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet(), "schema creation and user insert share one transaction")
}
