// migrations содержит SQL-миграции схемы auth-service.
package migrations

import "embed"

// FS встраивает *.sql для раннера golang-migrate (cmd/migrate).
//
//go:embed *.sql
var FS embed.FS
