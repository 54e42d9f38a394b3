// Package db provides embedded database migration files.
package db

import "embed"

// Migrations contains the goose migration files for all application tables.
//
//go:embed migrations/*.sql
var Migrations embed.FS
