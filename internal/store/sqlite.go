package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/ethicalfinder/esg-api/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// company_tickers enforces case-insensitive ticker uniqueness across the
// whole registry via the NOCASE primary key collation.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	country     TEXT,
	aliases     TEXT NOT NULL DEFAULT '[]',
	tickers     TEXT NOT NULL DEFAULT '[]',
	domains     TEXT NOT NULL DEFAULT '[]',
	esg_sources TEXT NOT NULL DEFAULT '[]',
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS company_tickers (
	ticker     TEXT PRIMARY KEY COLLATE NOCASE,
	company_id TEXT NOT NULL REFERENCES companies(id)
);

CREATE TABLE IF NOT EXISTS product_cache (
	key        TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	cached_at  DATETIME NOT NULL,
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_companies_name ON companies(name);
CREATE INDEX IF NOT EXISTS idx_company_tickers_company_id ON company_tickers(company_id);
CREATE INDEX IF NOT EXISTS idx_product_cache_expires_at ON product_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateCompany(ctx context.Context, c *model.Company) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	aliases, tickers, domains, sources, err := marshalCompanyFields(c)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO companies (id, name, country, aliases, tickers, domains, esg_sources, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, nullIfEmpty(c.Country), aliases, tickers, domains, sources, now, now,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert company %s", c.Name)
	}

	if err := claimTickersSQLite(ctx, tx, c.ID, c.Tickers); err != nil {
		return err
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit create company")
}

func (s *SQLiteStore) UpdateCompany(ctx context.Context, c *model.Company) error {
	now := time.Now().UTC()
	c.UpdatedAt = now

	aliases, tickers, domains, sources, err := marshalCompanyFields(c)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE companies SET name = ?, country = ?, aliases = ?, tickers = ?, domains = ?, esg_sources = ?, updated_at = ?
		 WHERE id = ?`,
		c.Name, nullIfEmpty(c.Country), aliases, tickers, domains, sources, now, c.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update company %s", c.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("company not found: %s", c.ID)
	}

	if err := claimTickersSQLite(ctx, tx, c.ID, c.Tickers); err != nil {
		return err
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit update company")
}

// claimTickersSQLite registers tickers for a company, rejecting any ticker
// already claimed (case-insensitively) by a different company.
func claimTickersSQLite(ctx context.Context, tx *sql.Tx, companyID string, tickers []string) error {
	for _, ticker := range tickers {
		var owner string
		err := tx.QueryRowContext(ctx,
			`SELECT company_id FROM company_tickers WHERE ticker = ?`, ticker,
		).Scan(&owner)
		switch {
		case err == sql.ErrNoRows:
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO company_tickers (ticker, company_id) VALUES (?, ?)`,
				ticker, companyID,
			); err != nil {
				return eris.Wrapf(err, "sqlite: claim ticker %s", ticker)
			}
		case err != nil:
			return eris.Wrapf(err, "sqlite: check ticker %s", ticker)
		case owner != companyID:
			return eris.Errorf("ticker %s already registered to company %s", ticker, owner)
		}
	}
	return nil
}

func (s *SQLiteStore) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, country, aliases, tickers, domains, esg_sources, created_at, updated_at
		 FROM companies WHERE id = ?`, id,
	)
	return scanCompany(row)
}

func (s *SQLiteStore) FindByTicker(ctx context.Context, ticker string) (*model.Company, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT c.id, c.name, c.country, c.aliases, c.tickers, c.domains, c.esg_sources, c.created_at, c.updated_at
		 FROM companies c JOIN company_tickers t ON t.company_id = c.id
		 WHERE t.ticker = ?`, ticker,
	)
	return scanCompany(row)
}

func (s *SQLiteStore) SearchCompanies(ctx context.Context, pattern string, limit int) ([]model.Company, error) {
	if limit <= 0 {
		limit = 10
	}
	like := "%" + pattern + "%"

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, country, aliases, tickers, domains, esg_sources, created_at, updated_at
		 FROM companies WHERE name LIKE ? OR aliases LIKE ? LIMIT ?`,
		like, like, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: search companies")
	}
	defer rows.Close()

	var companies []model.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		companies = append(companies, *c)
	}
	return companies, eris.Wrap(rows.Err(), "sqlite: search companies iterate")
}

func (s *SQLiteStore) GetCachedProduct(ctx context.Context, key string) (*model.Product, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM product_cache WHERE key = ? AND expires_at > ?`,
		key, time.Now().UTC(),
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached product")
	}

	var p model.Product
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal cached product")
	}
	return &p, nil
}

func (s *SQLiteStore) SetCachedProduct(ctx context.Context, key string, p *model.Product, ttl time.Duration) error {
	data, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal product")
	}
	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO product_cache (key, data, cached_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data, cached_at = excluded.cached_at, expires_at = excluded.expires_at`,
		key, string(data), now, now.Add(ttl),
	)
	return eris.Wrap(err, "sqlite: set cached product")
}

func (s *SQLiteStore) DeleteExpiredProducts(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM product_cache WHERE expires_at <= ?`, time.Now().UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired products")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// helpers

func marshalCompanyFields(c *model.Company) (aliases, tickers, domains, sources string, err error) {
	parts := []struct {
		name string
		v    any
		out  *string
	}{
		{"aliases", emptyIfNilStrings(c.Aliases), &aliases},
		{"tickers", emptyIfNilStrings(c.Tickers), &tickers},
		{"domains", emptyIfNilStrings(c.Domains), &domains},
		{"esg_sources", emptyIfNilSources(c.ESGSources), &sources},
	}
	for _, p := range parts {
		b, merr := json.Marshal(p.v)
		if merr != nil {
			return "", "", "", "", eris.Wrapf(merr, "sqlite: marshal %s", p.name)
		}
		*p.out = string(b)
	}
	return aliases, tickers, domains, sources, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanCompany(row scannable) (*model.Company, error) {
	var c model.Company
	var country sql.NullString
	var aliases, tickers, domains, sources string

	err := row.Scan(&c.ID, &c.Name, &country, &aliases, &tickers, &domains, &sources, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan company")
	}

	c.Country = country.String
	for _, part := range []struct {
		data string
		dst  any
	}{
		{aliases, &c.Aliases},
		{tickers, &c.Tickers},
		{domains, &c.Domains},
		{sources, &c.ESGSources},
	} {
		if err := json.Unmarshal([]byte(part.data), part.dst); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal company field")
		}
	}
	return &c, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func emptyIfNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func emptyIfNilSources(v []model.ESGSource) []model.ESGSource {
	if v == nil {
		return []model.ESGSource{}
	}
	return v
}
