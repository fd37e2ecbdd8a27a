package db

import (
	"fmt"
	"time"

	"github.com/taskextreme/backend/internal/domain"
	"gorm.io/gorm"
)

type migration struct {
	version int
	name    string
	up      func(tx *gorm.DB) error
}

// Migrations are additive only: a new version may add tables, columns or
// indexes but never drops what an older one created.
var migrations = []migration{
	{
		version: 1,
		name:    "create_tasks_and_kv_entries",
		up: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&domain.Task{}, &domain.KVEntry{})
		},
	},
}

// LatestVersion is the schema version this binary migrates to.
func LatestVersion() int {
	return migrations[len(migrations)-1].version
}

// RunMigrations applies every migration newer than the recorded version and
// returns the resulting version.
func RunMigrations(database *gorm.DB) (int, error) {
	if err := database.AutoMigrate(&domain.SchemaVersion{}); err != nil {
		return 0, err
	}

	current, err := CurrentVersion(database)
	if err != nil {
		return 0, err
	}
	if current > LatestVersion() {
		return current, fmt.Errorf("schema version %d is newer than supported version %d", current, LatestVersion())
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		m := m
		err := database.Transaction(func(tx *gorm.DB) error {
			if err := m.up(tx); err != nil {
				return err
			}
			return tx.Create(&domain.SchemaVersion{
				Version:   m.version,
				Name:      m.name,
				AppliedAt: time.Now().UTC(),
			}).Error
		})
		if err != nil {
			return current, fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		current = m.version
	}

	return current, nil
}

// CurrentVersion returns the highest applied schema version, 0 when none.
func CurrentVersion(database *gorm.DB) (int, error) {
	var version int
	err := database.Model(&domain.SchemaVersion{}).
		Select("COALESCE(MAX(version), 0)").
		Scan(&version).Error
	return version, err
}
