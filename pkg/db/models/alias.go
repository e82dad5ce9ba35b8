package models

import "time"

// Alias is a secondary name that points directly at exactly one Tag.
type Alias struct {
	Alias     string `gorm:"primaryKey;type:varchar(191)"`
	TagName   string `gorm:"type:varchar(191);not null;index:idx_alias_tag"`
	CreatedAt time.Time

	// Relationships
	Tag *Tag `gorm:"foreignKey:TagName;references:Name;constraint:OnDelete:CASCADE"`
}

func (Alias) TableName() string {
	return "tag_aliases"
}
