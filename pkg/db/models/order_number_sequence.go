package models

// OrderNumberSequence holds the last order number suffix handed out per year.
type OrderNumberSequence struct {
	Year      int `gorm:"column:year;primaryKey;autoIncrement:false"`
	LastValue int `gorm:"column:last_value;not null"`
}
