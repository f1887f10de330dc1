// Package postgres is a reference AdapterPort implementation
// exercising the postgres backend kind (SqlOp operations), grounded on
// this codebase's `sqlx.DB` over `pgx/v5/stdlib` connection pattern
// (`test/integration/datastorage/suite_test.go`: "DD-010: Migrated
// from lib/pq"). It is an illustrative collaborator only — the
// orchestration core talks only to adapter.Port.
package postgres

import (
	"context"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	appErrors "github.com/hardikgo/crossdb/internal/errors"
	"github.com/hardikgo/crossdb/pkg/planmodel"
)

// Adapter executes SqlOp operations against a single Postgres source
// via a pooled *sqlx.DB.
type Adapter struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// New connects to connectionURI using the pgx stdlib driver and wraps
// the pool in an Adapter.
func New(connectionURI string, logger *zap.Logger) (*Adapter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sqlx.Connect("pgx", connectionURI)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrorTypeAdapterConnection, "connect to postgres")
	}
	return &Adapter{db: db, logger: logger}, nil
}

// NewFromDB wraps an already-open *sqlx.DB (used by tests with
// sqlmock, since sqlmock hands back a *sql.DB, not a connection URI).
func NewFromDB(db *sqlx.DB, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{db: db, logger: logger}
}

func (a *Adapter) TestConnection(ctx context.Context) (bool, error) {
	if err := a.db.PingContext(ctx); err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrorTypeAdapterConnection, "ping postgres")
	}
	return true, nil
}

// Execute runs op.SQL.SQL with op.SQL.Params as positional bind
// parameters and returns each row as a string-keyed map.
func (a *Adapter) Execute(ctx context.Context, op *planmodel.Operation) ([]map[string]any, error) {
	if op.SQL == nil {
		return nil, appErrors.New(appErrors.ErrorTypeAdapterSyntax, "postgres adapter requires a SqlOp")
	}

	rows, err := a.db.QueryxContext(ctx, a.db.Rebind(op.SQL.SQL), op.SQL.Params...)
	if err != nil {
		return nil, classifyPostgresError(err)
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		row := map[string]any{}
		if err := rows.MapScan(row); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrorTypeInternal, "scan postgres row")
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPostgresError(err)
	}
	return out, nil
}

// IntrospectSchema queries information_schema for every base table's
// columns, rendering them as planmodel.TableDescriptor.
func (a *Adapter) IntrospectSchema(ctx context.Context) ([]planmodel.TableDescriptor, error) {
	const query = `
		SELECT table_name, column_name, data_type, is_nullable,
		       (column_name IN (
		           SELECT kcu.column_name
		           FROM information_schema.table_constraints tc
		           JOIN information_schema.key_column_usage kcu
		             ON tc.constraint_name = kcu.constraint_name
		            AND tc.table_name = kcu.table_name
		           WHERE tc.constraint_type = 'PRIMARY KEY'
		             AND tc.table_name = c.table_name
		       )) AS is_primary_key
		FROM information_schema.columns c
		WHERE table_schema = 'public'
		ORDER BY table_name, ordinal_position`

	rows, err := a.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrorTypeAdapterConnection, "introspect postgres schema")
	}
	defer rows.Close()

	tables := map[string]*planmodel.TableDescriptor{}
	var order []string
	for rows.Next() {
		var tableName, columnName, dataType, isNullable string
		var isPrimaryKey bool
		if err := rows.Scan(&tableName, &columnName, &dataType, &isNullable, &isPrimaryKey); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrorTypeInternal, "scan postgres introspection row")
		}
		t, ok := tables[tableName]
		if !ok {
			t = &planmodel.TableDescriptor{Name: tableName, Fields: map[string]planmodel.FieldMeta{}}
			tables[tableName] = t
			order = append(order, tableName)
		}
		t.Fields[columnName] = planmodel.FieldMeta{
			DataType:   dataType,
			PrimaryKey: isPrimaryKey,
			Nullable:   isNullable == "YES",
		}
	}

	out := make([]planmodel.TableDescriptor, 0, len(order))
	for _, name := range order {
		out = append(out, *tables[name])
	}
	return out, nil
}

// classifyPostgresError maps a driver-level error to this module's
// error taxonomy (connection/syntax/permission/timeout).
// pgx/lib/pq surface these as plain errors without a shared sentinel
// type usable without importing pgconn internals, so classification
// here is message-based, matching the source's own best-effort
// exception-string sniffing in `_compare_values_with_coercion`-style
// helpers elsewhere in result_aggregator.py.
func classifyPostgresError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "syntax error") || strings.Contains(msg, "does not exist"):
		return appErrors.Wrap(err, appErrors.ErrorTypeAdapterSyntax, "postgres query rejected")
	case strings.Contains(msg, "permission denied"):
		return appErrors.Wrap(err, appErrors.ErrorTypeAdapterSyntax, "postgres permission denied").WithDetails("permission")
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "context deadline exceeded"):
		return appErrors.Wrap(err, appErrors.ErrorTypeTimeout, "postgres query timed out")
	default:
		return appErrors.Wrap(err, appErrors.ErrorTypeAdapterConnection, "postgres query failed")
	}
}
