package domain

type Court struct {
	ID      string `gorm:"primaryKey" json:"id" yaml:"id"`
	Name    string `gorm:"not null" json:"name" yaml:"name"`
	Address string `gorm:"not null" json:"address" yaml:"address"`
	City    string `gorm:"index;not null" json:"city" yaml:"city"`
	Price   int64  `gorm:"not null" json:"price" yaml:"price"`
}
