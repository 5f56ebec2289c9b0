// Package schema embeds the golang-migrate migration set for the
// configuration database (domain, resolution, site_config, state tables),
// grounded on banshee-data-velocity.report/internal/db's embed.FS +
// golang-migrate/iofs pattern.
package schema

import "embed"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrations returns the embedded migration filesystem rooted at
// "migrations", ready to hand to iofs.New.
func Migrations() embed.FS { return migrationsFS }
