package domain

import "time"

// Table is a physical table in the salon. Available true means free.
type Table struct {
	Number    int       `gorm:"primaryKey;autoIncrement:false" json:"number"`
	Available bool      `gorm:"not null;default:true" json:"available"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Table) TableName() string { return "restaurant_tables" }
