package models

import (
	"time"

	"github.com/google/uuid"
)

// Folder groups one comparison with its collaborators. Folder CRUD lives in
// the dashboard layer; the ingestion pipeline only references it.
type Folder struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
