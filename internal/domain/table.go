package domain

import "time"

type TableState string

const (
	TableAvailable TableState = "AVAILABLE"
	TableOccupied  TableState = "OCCUPIED"
	TableInactive  TableState = "INACTIVE"
)

// DiningTable a dine-in table, occupied while it has an active TABLE order
type DiningTable struct {
	ID        int64      `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	Number    int        `gorm:"uniqueIndex;not null" json:"number"`
	Capacity  int        `gorm:"not null" json:"capacity"`
	Location  string     `gorm:"size:100" json:"location"`
	State     TableState `gorm:"size:16;index;not null" json:"state"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName Specify table name
func (DiningTable) TableName() string {
	return "pos_table"
}
