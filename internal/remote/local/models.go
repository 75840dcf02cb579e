package local

import (
	"time"

	"github.com/robby/homestock/internal/domain"
)

// ItemModel is the GORM model for the items table
type ItemModel struct {
	CreatedOrder int64     `gorm:"not null;index:idx_created_order"`
	ID           string    `gorm:"primaryKey"`
	Name         string    `gorm:"not null"`
	Note         *string   `gorm:"default:null"`
	Pinned       bool      `gorm:"not null;default:false"`
	PinOrder     *int64    `gorm:"default:null"`
	State        string    `gorm:"not null;default:'LOW';check:state IN ('NEED','LOW','OK')"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime:false"`
}

// TableName specifies the table name for GORM
func (ItemModel) TableName() string { return "items" }

// itemModelToDomain converts an ItemModel (GORM) to domain.Item
func itemModelToDomain(m ItemModel) domain.Item {
	return domain.Item{
		CreatedOrder: m.CreatedOrder,
		ID:           m.ID,
		Name:         m.Name,
		Note:         m.Note,
		Pinned:       m.Pinned,
		PinOrder:     m.PinOrder,
		State:        domain.State(m.State),
		UpdatedAt:    m.UpdatedAt,
	}
}
