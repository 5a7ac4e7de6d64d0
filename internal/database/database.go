package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"section8map/internal/dataset"
	"section8map/internal/logger"
	"section8map/internal/types"

	_ "github.com/sijms/go-ora/v2"
)

// dsn builds a properly encoded connection string for Oracle Autonomous Database
func dsn(username, password, host, port, service string, walletLocation string) string {
	if walletLocation != "" {
		// Use wallet-based mTLS connection
		return fmt.Sprintf(
			"oracle://%s:%s@%s:%s/%s?ssl=true&wallet_location=%s",
			url.PathEscape(username), url.PathEscape(password), host, port, service, url.PathEscape(walletLocation))
	}

	return (&url.URL{
		Scheme:   "oracle",
		User:     url.UserPassword(username, password), // escapes automatically
		Host:     host + ":" + port,
		Path:     "/" + service, // keep full service name
		RawQuery: "ssl=true",    // ADB requires TCPS on 1522
	}).String()
}

// DBConfig holds database connection configuration
type DBConfig struct {
	Host           string
	Port           string
	Service        string
	Username       string
	Password       string
	WalletLocation string
}

// Database reads listings from an Oracle table with the same columns as the
// dataset file. It implements dataset.Source.
type Database struct {
	db    *sql.DB
	table string
}

var tableName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_$#]*(\.[A-Za-z][A-Za-z0-9_$#]*)?$`)

// NewDatabase opens and pings the connection. table names the listings table.
func NewDatabase(config DBConfig, table string) (*Database, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid listings table name %q", table)
	}

	logger.Log.Infof("Connecting to Oracle database %s:%s/%s", config.Host, config.Port, config.Service)
	db, err := sql.Open("oracle", dsn(config.Username, config.Password, config.Host, config.Port, config.Service, config.WalletLocation))
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{db: db, table: table}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// listingsQuery selects every dataset column, quoted because the file headers
// are mixed case.
func listingsQuery(table string) string {
	cols := make([]string, len(dataset.Columns))
	for i, c := range dataset.Columns {
		cols[i] = `"` + c + `"`
	}
	return "SELECT " + strings.Join(cols, ", ") + " FROM " + table
}

// Listings implements dataset.Source.
func (d *Database) Listings(ctx context.Context) ([]types.Property, error) {
	rows, err := d.db.QueryContext(ctx, listingsQuery(d.table))
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer rows.Close()

	var (
		properties []types.Property
		skipped    int
		n          int
	)
	for rows.Next() {
		n++
		vals := make([]sql.NullString, len(dataset.Columns))
		dest := make([]any, len(vals))
		for i := range vals {
			dest[i] = &vals[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}

		record := make(map[string]string, len(vals))
		for i, c := range dataset.Columns {
			record[c] = strings.TrimSpace(vals[i].String)
		}
		prop, skip, err := dataset.ParseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", d.table, n, err)
		}
		if skip {
			skipped++
			continue
		}
		properties = append(properties, prop)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read listings: %w", err)
	}
	if skipped > 0 {
		logger.Log.Warnf("Skipped %d rows of %s without a state or county", skipped, d.table)
	}

	return properties, nil
}
