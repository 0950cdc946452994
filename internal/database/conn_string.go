package database

import (
	"net"
	"net/url"
	"strconv"

	"github.com/rickgao/mse-history/internal/config"
)

// ApplicationName tags sessions in pg_stat_activity.
const ApplicationName = "mse-sync"

// BuildConnString builds a PostgreSQL connection URL from config.
// User and password are escaped, so any characters are allowed.
func BuildConnString(cfg config.DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = config.DefaultDBSSLMode
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Name,
		RawQuery: url.Values{
			"sslmode":          {sslMode},
			"application_name": {ApplicationName},
		}.Encode(),
	}
	return u.String()
}
