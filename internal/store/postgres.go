package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/ethicalfinder/esg-api/internal/config"
	"github.com/ethicalfinder/esg-api/internal/db"
	"github.com/ethicalfinder/esg-api/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_company":    `SELECT id, name, country, aliases, tickers, domains, esg_sources, created_at, updated_at FROM companies WHERE id = $1`,
	"find_by_ticker": `SELECT c.id, c.name, c.country, c.aliases, c.tickers, c.domains, c.esg_sources, c.created_at, c.updated_at FROM companies c JOIN company_tickers t ON t.company_id = c.id WHERE lower(t.ticker) = lower($1)`,
	"get_cached":     `SELECT data FROM product_cache WHERE key = $1 AND expires_at > now()`,
	"set_cached":     `INSERT INTO product_cache (key, data, cached_at, expires_at) VALUES ($1, $2, $3, $4) ON CONFLICT (key) DO UPDATE SET data = $2, cached_at = $3, expires_at = $4`,
	"delete_expired": `DELETE FROM product_cache WHERE expires_at <= now()`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *config.PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Ticker uniqueness is case-insensitive, enforced by the expression index
// on company_tickers.
const postgresMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name        TEXT NOT NULL,
	country     TEXT,
	aliases     JSONB NOT NULL DEFAULT '[]',
	tickers     JSONB NOT NULL DEFAULT '[]',
	domains     JSONB NOT NULL DEFAULT '[]',
	esg_sources JSONB NOT NULL DEFAULT '[]',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS company_tickers (
	ticker     TEXT PRIMARY KEY,
	company_id TEXT NOT NULL REFERENCES companies(id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_company_tickers_lower ON company_tickers(lower(ticker));
CREATE INDEX IF NOT EXISTS idx_company_tickers_company_id ON company_tickers(company_id);
CREATE INDEX IF NOT EXISTS idx_companies_name ON companies(name);

CREATE TABLE IF NOT EXISTS product_cache (
	key        TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	cached_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_product_cache_expires_at ON product_cache(expires_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateCompany(ctx context.Context, c *model.Company) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	aliasJSON, tickerJSON, domainJSON, sourceJSON, err := marshalCompanyJSON(c)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO companies (id, name, country, aliases, tickers, domains, esg_sources, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.Name, nullIfEmpty(c.Country), aliasJSON, tickerJSON, domainJSON, sourceJSON, now, now,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert company %s", c.Name)
	}

	if err := claimTickersPostgres(ctx, tx, c.ID, c.Tickers); err != nil {
		return err
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit create company")
}

func (s *PostgresStore) UpdateCompany(ctx context.Context, c *model.Company) error {
	now := time.Now().UTC()
	c.UpdatedAt = now

	aliasJSON, tickerJSON, domainJSON, sourceJSON, err := marshalCompanyJSON(c)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE companies SET name = $1, country = $2, aliases = $3, tickers = $4, domains = $5, esg_sources = $6, updated_at = $7
		 WHERE id = $8`,
		c.Name, nullIfEmpty(c.Country), aliasJSON, tickerJSON, domainJSON, sourceJSON, now, c.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update company %s", c.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("company not found: %s", c.ID)
	}

	if err := claimTickersPostgres(ctx, tx, c.ID, c.Tickers); err != nil {
		return err
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit update company")
}

// claimTickersPostgres registers tickers for a company, rejecting any ticker
// already claimed (case-insensitively) by a different company.
func claimTickersPostgres(ctx context.Context, tx pgx.Tx, companyID string, tickers []string) error {
	for _, ticker := range tickers {
		var owner string
		err := tx.QueryRow(ctx,
			`SELECT company_id FROM company_tickers WHERE lower(ticker) = lower($1)`, ticker,
		).Scan(&owner)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			if _, err := tx.Exec(ctx,
				`INSERT INTO company_tickers (ticker, company_id) VALUES ($1, $2)`,
				ticker, companyID,
			); err != nil {
				return eris.Wrapf(err, "postgres: claim ticker %s", ticker)
			}
		case err != nil:
			return eris.Wrapf(err, "postgres: check ticker %s", ticker)
		case owner != companyID:
			return eris.Errorf("ticker %s already registered to company %s", ticker, owner)
		}
	}
	return nil
}

func (s *PostgresStore) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, country, aliases, tickers, domains, esg_sources, created_at, updated_at
		 FROM companies WHERE id = $1`, id,
	)
	return scanCompanyPostgres(row)
}

func (s *PostgresStore) FindByTicker(ctx context.Context, ticker string) (*model.Company, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT c.id, c.name, c.country, c.aliases, c.tickers, c.domains, c.esg_sources, c.created_at, c.updated_at
		 FROM companies c JOIN company_tickers t ON t.company_id = c.id
		 WHERE lower(t.ticker) = lower($1)`, ticker,
	)
	return scanCompanyPostgres(row)
}

func (s *PostgresStore) SearchCompanies(ctx context.Context, pattern string, limit int) ([]model.Company, error) {
	if limit <= 0 {
		limit = 10
	}
	like := "%" + pattern + "%"

	rows, err := s.pool.Query(ctx,
		`SELECT id, name, country, aliases, tickers, domains, esg_sources, created_at, updated_at
		 FROM companies WHERE name ILIKE $1 OR aliases::text ILIKE $1 LIMIT $2`,
		like, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: search companies")
	}
	defer rows.Close()

	var companies []model.Company
	for rows.Next() {
		c, err := scanCompanyPostgres(rows)
		if err != nil {
			return nil, err
		}
		companies = append(companies, *c)
	}
	return companies, eris.Wrap(rows.Err(), "postgres: search companies iterate")
}

func (s *PostgresStore) GetCachedProduct(ctx context.Context, key string) (*model.Product, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM product_cache WHERE key = $1 AND expires_at > now()`,
		key,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get cached product")
	}

	var p model.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal cached product")
	}
	return &p, nil
}

func (s *PostgresStore) SetCachedProduct(ctx context.Context, key string, p *model.Product, ttl time.Duration) error {
	data, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal product")
	}
	now := time.Now().UTC()

	_, err = s.pool.Exec(ctx,
		`INSERT INTO product_cache (key, data, cached_at, expires_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (key) DO UPDATE SET data = $2, cached_at = $3, expires_at = $4`,
		key, data, now, now.Add(ttl),
	)
	return eris.Wrap(err, "postgres: set cached product")
}

func (s *PostgresStore) DeleteExpiredProducts(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM product_cache WHERE expires_at <= now()`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired products")
	}
	return int(tag.RowsAffected()), nil
}

func marshalCompanyJSON(c *model.Company) (aliases, tickers, domains, sources []byte, err error) {
	if aliases, err = json.Marshal(emptyIfNilStrings(c.Aliases)); err != nil {
		return nil, nil, nil, nil, eris.Wrap(err, "postgres: marshal aliases")
	}
	if tickers, err = json.Marshal(emptyIfNilStrings(c.Tickers)); err != nil {
		return nil, nil, nil, nil, eris.Wrap(err, "postgres: marshal tickers")
	}
	if domains, err = json.Marshal(emptyIfNilStrings(c.Domains)); err != nil {
		return nil, nil, nil, nil, eris.Wrap(err, "postgres: marshal domains")
	}
	if sources, err = json.Marshal(emptyIfNilSources(c.ESGSources)); err != nil {
		return nil, nil, nil, nil, eris.Wrap(err, "postgres: marshal esg sources")
	}
	return aliases, tickers, domains, sources, nil
}

func scanCompanyPostgres(row pgx.Row) (*model.Company, error) {
	var c model.Company
	var country *string
	var aliases, tickers, domains, sources []byte

	err := row.Scan(&c.ID, &c.Name, &country, &aliases, &tickers, &domains, &sources, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: scan company")
	}

	if country != nil {
		c.Country = *country
	}
	for _, part := range []struct {
		data []byte
		dst  any
	}{
		{aliases, &c.Aliases},
		{tickers, &c.Tickers},
		{domains, &c.Domains},
		{sources, &c.ESGSources},
	} {
		if err := json.Unmarshal(part.data, part.dst); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal company field")
		}
	}
	return &c, nil
}
