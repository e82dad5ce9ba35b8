package models

import (
	"time"
)

// Tag is a community-maintained text snippet addressed by its normalized name.
type Tag struct {
	Name         string     `gorm:"primaryKey;type:varchar(191)"`
	Content      string     `gorm:"type:text;not null"`
	CreatorID    string     `gorm:"type:varchar(64);not null;index:idx_tag_creator"`
	LastEditorID *string    `gorm:"type:varchar(64)"`
	CreatedAt    time.Time  `gorm:"not null"`
	LastEditedAt *time.Time `gorm:"default:null"`
	TimesUsed    int64      `gorm:"not null;default:0"`
	Restricted   bool       `gorm:"not null;default:false"`

	// Relationships
	Aliases []Alias `gorm:"foreignKey:TagName;references:Name;constraint:OnDelete:CASCADE"`
}

func (Tag) TableName() string {
	return "tags"
}

// TagSummary is the projection used for listings.
type TagSummary struct {
	Name       string
	CreatorID  string
	TimesUsed  int64
	Restricted bool
}
