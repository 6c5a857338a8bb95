package connection

import (
	"fmt"
	"net/url"
)

// appName identifies connshare sessions on the server side.
const appName = "connshare"

// passwordMask replaces the password when includePassword is false.
const passwordMask = "********"

// CreateDetails flattens a profile into connection details, applying
// driver defaults for missing ports and SSL settings.
func (m *SessionManager) CreateDetails(p Profile) Details {
	return NewDetails(p)
}

// NewDetails is the package-level form of CreateDetails, used by the
// driver packages when opening sessions.
func NewDetails(p Profile) Details {
	d := Details{
		Driver:   p.Driver,
		Server:   p.Server,
		Port:     p.Port,
		Database: p.Database,
		User:     p.User,
		Password: p.Password,
		SSLMode:  p.SSLMode,
	}
	if d.Port == 0 {
		switch p.Driver {
		case DriverPostgres:
			d.Port = 5432
		case DriverMySQL:
			d.Port = 3306
		}
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	return d
}

// ConnectionString renders details as the driver's native DSN.
func (m *SessionManager) ConnectionString(d Details, includePassword, includeAppName bool) string {
	password := d.Password
	if !includePassword {
		password = passwordMask
	}

	switch d.Driver {
	case DriverMySQL:
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s",
			d.User, password, d.Server, d.Port, d.Database)
		if includeAppName {
			dsn += "?connectionAttributes=program_name:" + appName
		}
		return dsn
	default:
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Server, d.Port, d.User, password, d.Database, d.SSLMode)
		if includeAppName {
			dsn += " application_name=" + appName
		}
		return dsn
	}
}

// PostgresURL renders details as a postgres:// URL, used by the pgx opener.
func (d Details) PostgresURL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Server, d.Port),
		Path:   "/" + d.Database,
	}
	q := url.Values{}
	q.Set("sslmode", d.SSLMode)
	q.Set("application_name", appName)
	u.RawQuery = q.Encode()
	return u.String()
}
