// Package tds implements the TDS Query Executor (C6): a read-only
// database/sql connection to the platform's SQL read replica, row
// streaming, and type normalization into value.Value, per spec.md §4.5.
// DSN construction is grounded on the teacher's database/mssql/database.go
// mssqlBuildDSN (net/url.URL assembly). Where the teacher opens a DSN
// carrying a user/password via sql.Open("sqlserver", dsn), this executor
// authenticates with a bearer token minted by the pool's seed identity, so
// it builds an *mssql.Connector via NewAccessTokenConnector and opens it
// with sql.OpenDB instead.
package tds

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	mssql "github.com/denisenkom/go-mssqldb"

	"github.com/dvsuite/queryexec/errs"
	"github.com/dvsuite/queryexec/value"
	"github.com/dvsuite/queryexec/vars"
)

// DefaultPort is the read replica's fixed TDS port (§4.5). Unlike the
// teacher's mssql adapter, which takes config.Port from the caller, this is
// not overridable: Dataverse's TDS endpoint always listens on 5558.
const DefaultPort = 5558

// TokenProvider mints a fresh bearer token for the TDS connection, backed by
// the same seed identity the rest of the core authenticates through.
type TokenProvider func(ctx context.Context) (string, error)

// Reseeder invalidates and re-establishes the seed identity, mirroring
// pool.Pool's own reseed-once-on-AuthFailed policy (§4.3), so the executor
// can retry exactly once after an auth failure (§4.5).
type Reseeder func(ctx context.Context) error

// Executor is the read-only SQL query executor.
type Executor struct {
	host     string
	database string
	tokens   TokenProvider
	reseed   Reseeder
	db       *sql.DB
}

func buildDSN(host, database string) string {
	q := url.Values{}
	if database != "" {
		q.Add("database", database)
	}
	u := &url.URL{
		Scheme:   "sqlserver",
		Host:     fmt.Sprintf("%s:%d", host, DefaultPort),
		RawQuery: q.Encode(),
	}
	return u.String()
}

// NewExecutor opens a database/sql *sql.DB against host's TDS endpoint,
// authenticated via tokens rather than a DSN-embedded password. reseed is
// called at most once per ExecuteSql call, on AuthFailed.
func NewExecutor(host, database string, tokens TokenProvider, reseed Reseeder) (*Executor, error) {
	dsn := buildDSN(host, database)
	connector, err := mssql.NewAccessTokenConnector(dsn, func() (string, error) {
		return tokens(context.Background())
	})
	if err != nil {
		return nil, errs.Wrap(errs.AuthFailed, err)
	}
	db := sql.OpenDB(connector)
	return &Executor{host: host, database: database, tokens: tokens, reseed: reseed, db: db}, nil
}

// Close releases the underlying *sql.DB's connection pool.
func (e *Executor) Close() error { return e.db.Close() }

// ExecuteSql runs sql against the read replica and streams every row into a
// QueryResult, applying maxRows as a hard stop (§4.5's "caller sees
// truncation by moreRecords=true with no cookie"). maxRows<=0 means
// unbounded. Non-SELECT-shaped statements rejected by the read-only
// accept-list fault before a connection is even attempted.
func (e *Executor) ExecuteSql(ctx context.Context, scope *vars.Scope, sqlText string, maxRows int) (*value.QueryResult, error) {
	if err := checkReadOnly(sqlText); err != nil {
		return nil, err
	}

	start := timeNow()
	rows, err := e.queryWithReseed(ctx, sqlText)
	if err != nil {
		return e.classifyAndRecord(scope, err)
	}
	defer rows.Close()

	result, err := e.streamRows(rows, maxRows)
	if err != nil {
		return e.classifyAndRecord(scope, err)
	}
	result.ExecutedFetch = sqlText
	result.ElapsedMs = elapsedMs(start)
	return result, nil
}

// queryWithReseed runs the query, and on an AuthFailed-shaped driver error
// reseeds exactly once and retries, per §4.5's "AuthFailed (one
// reseed-and-retry, then propagate)".
func (e *Executor) queryWithReseed(ctx context.Context, sqlText string) (*sql.Rows, error) {
	rows, err := e.db.QueryContext(ctx, sqlText)
	if err == nil {
		return rows, nil
	}
	if !isAuthError(err) || e.reseed == nil {
		return nil, err
	}
	if reErr := e.reseed(ctx); reErr != nil {
		return nil, errs.Wrap(errs.AuthFailed, err)
	}
	rows, err2 := e.db.QueryContext(ctx, sqlText)
	if err2 != nil {
		return nil, errs.Wrap(errs.AuthFailed, err2)
	}
	return rows, nil
}

// streamRows consumes rows in order, mapping each into a *value.Record via
// normalizeCell, stopping at maxRows (if positive) and reporting
// MoreRecords=true with no cookie, per §4.5's Streaming contract.
func (e *Executor) streamRows(rows *sql.Rows, maxRows int) (*value.QueryResult, error) {
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, errs.Wrap(errs.QueryFailed, err)
	}
	columns := make([]value.Column, len(colTypes))
	for i, ct := range colTypes {
		columns[i] = value.Column{LogicalName: ct.Name(), DataType: ct.DatabaseTypeName()}
	}

	result := &value.QueryResult{Columns: columns}
	scan := make([]any, len(colTypes))
	scanPtrs := make([]any, len(colTypes))
	for i := range scan {
		scanPtrs[i] = &scan[i]
	}

	for rows.Next() {
		if maxRows > 0 && result.Count >= maxRows {
			result.MoreRecords = true
			break
		}
		if err := rows.Scan(scanPtrs...); err != nil {
			return nil, errs.Wrap(errs.QueryFailed, err)
		}
		rec := value.NewRecord()
		for i, col := range columns {
			rec.Set(col.LogicalName, normalizeCell(col.DataType, scan[i]))
		}
		result.Records = append(result.Records, rec)
		result.Count++
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.QueryFailed, err)
	}
	return result, nil
}

// classifyAndRecord maps a driver-level failure into the core taxonomy and,
// for a server-raised QueryFailed, records the four @@ERROR_* pseudo-
// variables in scope for the caller's TRY/CATCH frame (§4.5, §7).
func (e *Executor) classifyAndRecord(scope *vars.Scope, err error) (*value.QueryResult, error) {
	if sqlErr, ok := asSQLServerError(err); ok {
		if scope != nil {
			scope.SetErrorState(sqlErr.Message, int(sqlErr.Number), int(sqlErr.Class), int(sqlErr.State))
		}
		return nil, errs.Wrap(errs.QueryFailed, err).WithDetails(sqlErr.Message)
	}
	if isAuthError(err) {
		return nil, errs.Wrap(errs.AuthFailed, err)
	}
	if ctxErr := err; ctxErr == context.Canceled || ctxErr == context.DeadlineExceeded {
		return nil, errs.Wrap(errs.Cancelled, err)
	}
	return nil, errs.Wrap(errs.Transient, err)
}

// asSQLServerError extracts the driver's structured server error when err
// itself is an mssql.Error; errors wrapping one are not unwrapped.
func asSQLServerError(err error) (mssql.Error, bool) {
	if e, ok := err.(mssql.Error); ok {
		return e, true
	}
	return mssql.Error{}, false
}

// isAuthError reports whether err looks like a login/auth failure from the
// driver. go-mssqldb surfaces these as mssql.Error with class 14 (login
// failures sit in severity class 14-20 per the protocol; 14 is the
// canonical "permission/login" band) or as a plain connection error
// containing "login failed".
func isAuthError(err error) bool {
	if sqlErr, ok := asSQLServerError(err); ok {
		return sqlErr.Class == 14
	}
	return containsFold(err.Error(), "login failed") || containsFold(err.Error(), "unauthorized")
}
