package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Diagnosis is the log-only view of an error: its code, the full wrap chain
// and any Postgres server detail found along it. It never reaches a response.
type Diagnosis struct {
	Message string
	Code    Code
	Chain   []string

	SQLState   string
	Constraint string
	Table      string
	Column     string
	Detail     string
	ServerMsg  string
}

// Diagnose walks err and extracts what an operator needs to debug it.
func Diagnose(err error) Diagnosis {
	if err == nil {
		return Diagnosis{}
	}
	d := Diagnosis{Message: err.Error(), Code: CodeOf(err)}
	for e := err; e != nil; e = stdErrors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case stdErrors.As(err, &pgxErr):
		d.SQLState, d.Constraint, d.Table = pgxErr.Code, pgxErr.ConstraintName, pgxErr.TableName
		d.Column, d.Detail, d.ServerMsg = pgxErr.ColumnName, pgxErr.Detail, pgxErr.Message
	case stdErrors.As(err, &pqErr):
		d.SQLState, d.Constraint, d.Table = string(pqErr.Code), pqErr.Constraint, pqErr.Table
		d.Column, d.Detail, d.ServerMsg = pqErr.Column, pqErr.Detail, pqErr.Message
	}
	return d
}

// LogFields renders the diagnosis as logger fields, leaving out empty pg values.
func (d Diagnosis) LogFields() map[string]any {
	fields := map[string]any{
		"error":       d.Message,
		"error_code":  d.Code,
		"error_chain": d.Chain,
	}
	for key, value := range map[string]string{
		"pg_code":       d.SQLState,
		"pg_constraint": d.Constraint,
		"pg_table":      d.Table,
		"pg_column":     d.Column,
		"pg_detail":     d.Detail,
		"pg_message":    d.ServerMsg,
	} {
		if value != "" {
			fields[key] = value
		}
	}
	return fields
}
