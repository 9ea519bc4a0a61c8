package catalog

import "time"

// Project is the display record for an engineering project owned by the wider application.
type Project struct {
	ID        string    `gorm:"column:id;primaryKey;size:190;not null"`
	Name      string    `gorm:"column:name;size:320;not null"`
	Code      string    `gorm:"column:code;size:64;not null;default:''"`
	Category  string    `gorm:"column:category;size:190;not null;default:''"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

// TableName provides the explicit table binding for GORM.
func (Project) TableName() string {
	return "projects"
}

// Set is the display record for a build set within a project.
type Set struct {
	ID        string    `gorm:"column:id;primaryKey;size:190;not null"`
	Name      string    `gorm:"column:name;size:320;not null"`
	ProjectID string    `gorm:"column:project_id;size:190;not null;default:'';index"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

// TableName provides the explicit table binding for GORM.
func (Set) TableName() string {
	return "sets"
}
