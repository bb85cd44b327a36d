// Package db embeds the database schema used by the PostgreSQL ledger.
package db

import _ "embed"

// Schema holds the DDL for the customers and orders tables.
//
//go:embed migrations/001_schema.sql
var Schema string
