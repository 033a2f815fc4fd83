package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump is the log-side view of a failure. It never reaches clients.
type ErrorDump struct {
	Code     Code
	Details  any
	Chain    []string
	Postgres *PostgresDetail
}

// PostgresDetail carries the server fields of a Postgres error raised through
// either pgx or lib/pq.
type PostgresDetail struct {
	SQLState   string
	Constraint string
	Table      string
	Detail     string
}

func Dump(err error) ErrorDump {
	var d ErrorDump
	if err == nil {
		return d
	}
	d.Code = CodeInternal
	if te := As(err); te != nil {
		d.Code = te.Code()
		d.Details = te.Details()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	d.Postgres = postgresDetail(err)
	return d
}

func postgresDetail(err error) *PostgresDetail {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &PostgresDetail{SQLState: pgErr.Code, Constraint: pgErr.ConstraintName, Table: pgErr.TableName, Detail: pgErr.Detail}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &PostgresDetail{SQLState: string(pqErr.Code), Constraint: pqErr.Constraint, Table: pqErr.Table, Detail: pqErr.Detail}
	}
	return nil
}

// Fields flattens the dump into structured log fields.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{"error_code": d.Code}
	if len(d.Chain) > 0 {
		fields["error_chain"] = d.Chain
	}
	if pg := d.Postgres; pg != nil {
		fields["pg_code"] = pg.SQLState
		if pg.Constraint != "" {
			fields["pg_constraint"] = pg.Constraint
		}
		if pg.Table != "" {
			fields["pg_table"] = pg.Table
		}
	}
	return fields
}
