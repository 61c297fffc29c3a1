package domain

import (
	"time"
)

// SchemaMeta is a key-value marker row describing the observation table layout.
type SchemaMeta struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName pins the marker table name.
func (SchemaMeta) TableName() string {
	return "schema_meta"
}

const (
	// SchemaVersionKey is the SchemaMeta key holding the detected layout version.
	SchemaVersionKey = "schema_version"

	// SchemaVersionReduced is the legacy layout without a volume column.
	SchemaVersionReduced = 1

	// SchemaVersionFull is the five-column layout with volume.
	SchemaVersionFull = 2
)
