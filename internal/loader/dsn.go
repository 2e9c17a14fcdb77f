package loader

import (
	"net"
	"net/url"
	"strconv"

	"github.com/dvloznov/skyloader/internal/config"
)

const (
	defaultPostgresPort  = 5432
	defaultSQLServerPort = 1433
)

// PostgresDSN builds a postgres:// URL from the database settings.
func PostgresDSN(cfg config.Database) string {
	u := url.URL{
		Scheme: "postgres",
		User:   userInfo(cfg),
		Host:   hostPort(cfg.Host, cfg.Port, defaultPostgresPort),
		Path:   "/" + cfg.Database,
	}
	u.RawQuery = encodeParams(cfg.Extra, nil)
	return u.String()
}

// SQLServerDSN builds a sqlserver:// URL understood by go-mssqldb.
func SQLServerDSN(cfg config.Database) string {
	u := url.URL{
		Scheme: "sqlserver",
		User:   userInfo(cfg),
		Host:   hostPort(cfg.Host, cfg.Port, defaultSQLServerPort),
	}
	u.RawQuery = encodeParams(cfg.Extra, map[string]string{"database": cfg.Database})
	return u.String()
}

func userInfo(cfg config.Database) *url.Userinfo {
	if cfg.Username == "" {
		return nil
	}
	if cfg.Password == "" {
		return url.User(cfg.Username)
	}
	return url.UserPassword(cfg.Username, cfg.Password)
}

func hostPort(host string, port, defaultPort int) string {
	if port == 0 {
		port = defaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// encodeParams renders base and extra as a query string. extra wins on
// conflicts; empty base values are dropped.
func encodeParams(extra, base map[string]string) string {
	q := url.Values{}
	for k, v := range base {
		if v != "" {
			q.Set(k, v)
		}
	}
	for k, v := range extra {
		q.Set(k, v)
	}
	return q.Encode()
}
