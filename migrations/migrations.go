// Package migrations embeds the SQL schema for every supported database driver.
package migrations

import "embed"

// FS holds the migration files, one directory per driver (postgresql, mysql).
//
//go:embed postgresql/*.sql mysql/*.sql
var FS embed.FS
