package models

import (
	"database/sql"
	"time"
)

// Project represents a project entity - one instructional-design engagement
// moving through the document pipeline.
type Project struct {
	ID           string
	UserID       string
	Name         string
	Description  sql.NullString
	Mode         string
	Status       string
	CurrentStage sql.NullString
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Project mode constants
const (
	ProjectModeStandard = "standard"
	ProjectModeQuick    = "quick"
)

// Project status constants
const (
	ProjectStatusActive   = "active"
	ProjectStatusArchived = "archived"
)
