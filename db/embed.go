// Package db provides the embedded database schema and seed catalog.
package db

import _ "embed"

// Schema contains the DDL statements for all application tables. Every
// statement is idempotent.
//
//go:embed migrations/001_schema.sql
var Schema string

// SeedProducts is the demo catalog in the JSON form read by ParseProducts.
//
//go:embed seed/products.json
var SeedProducts []byte
