package connection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDetailsDefaults(t *testing.T) {
	pg := NewDetails(Profile{Driver: DriverPostgres, Server: "db1"})
	assert.Equal(t, 5432, pg.Port)
	assert.Equal(t, "disable", pg.SSLMode)

	my := NewDetails(Profile{Driver: DriverMySQL, Server: "db2"})
	assert.Equal(t, 3306, my.Port)
}

func TestConnectionStringPostgres(t *testing.T) {
	m := NewSessionManager()
	d := m.CreateDetails(Profile{
		Driver:   DriverPostgres,
		Server:   "db1.internal",
		Database: "sales",
		User:     "app",
		Password: "s3cret",
	})

	full := m.ConnectionString(d, true, true)
	assert.Contains(t, full, "password=s3cret")
	assert.Contains(t, full, "dbname=sales")
	assert.Contains(t, full, "application_name=connshare")

	masked := m.ConnectionString(d, false, false)
	assert.NotContains(t, masked, "s3cret")
	assert.Contains(t, masked, "password=********")
	assert.NotContains(t, masked, "application_name")
}

func TestConnectionStringMySQL(t *testing.T) {
	m := NewSessionManager()
	d := m.CreateDetails(Profile{
		Driver:   DriverMySQL,
		Server:   "db2.internal",
		Database: "sales",
		User:     "app",
		Password: "s3cret",
	})

	full := m.ConnectionString(d, true, false)
	assert.Equal(t, "app:s3cret@tcp(db2.internal:3306)/sales", full)
}

func TestPostgresURLEscapesCredentials(t *testing.T) {
	d := NewDetails(Profile{
		Driver:   DriverPostgres,
		Server:   "db1",
		Database: "sales",
		User:     "app",
		Password: "p@ss/word",
	})

	url := d.PostgresURL()
	assert.Contains(t, url, "postgres://")
	assert.NotContains(t, url, "p@ss/word")
	assert.Contains(t, url, "sslmode=disable")
}
