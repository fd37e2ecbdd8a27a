package domain

import "time"

// Fixed names of the JSON blobs kept in the key-value store.
const (
	KeyTasks         = "taskextreme_tasks"
	KeyChecked       = "taskextreme_checked"
	KeyTemplates     = "taskextreme_templates"
	KeyPreferredView = "preferredView"
	KeyTheme         = "theme"
)

type ViewMode string

const (
	ViewList   ViewMode = "list"
	ViewKanban ViewMode = "kanban"
)

func (v ViewMode) Valid() bool {
	return v == ViewList || v == ViewKanban
}

// KVEntry holds one JSON-encoded value under a fixed key.
type KVEntry struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Key   string `gorm:"size:255;uniqueIndex;not null" json:"key"`
	Value string `gorm:"type:text" json:"value"`
}

func (KVEntry) TableName() string {
	return "kv_entries"
}

// SchemaVersion records an applied store migration.
type SchemaVersion struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false" json:"version"`
	Name      string    `gorm:"size:255" json:"name"`
	AppliedAt time.Time `json:"applied_at"`
}

func (SchemaVersion) TableName() string {
	return "schema_versions"
}
