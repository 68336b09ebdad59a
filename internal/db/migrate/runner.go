// migrate применяет встроенные SQL-миграции через golang-migrate.
package migrate

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/pribylovaa/propertia-auth/migrations"
)

// ErrNoChange — схема уже на целевой версии.
var ErrNoChange = migrate.ErrNoChange

// Run применяет миграции в направлении "up" или "down".
// Отсутствие изменений не считается ошибкой.
func Run(dsn string, direction string) error {
	const op = "db.migrate.Run"

	if dsn == "" {
		return fmt.Errorf("%s: empty database url", op)
	}

	if direction != "up" && direction != "down" {
		return fmt.Errorf("%s: direction must be up or down, got %q", op, direction)
	}

	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("%s: source: %w", op, err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _, _ = m.Close() }()

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
