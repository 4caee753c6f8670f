// Package postgres stores docchat session histories in PostgreSQL.
//
// Messages live in one table keyed by session ID, with the message body in
// a JSONB column. Access goes through the DBPool interface so tests can
// substitute pgxmock for a live pgxpool.Pool.
package postgres
