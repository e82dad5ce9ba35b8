package models

const (
	NameKindTag   = "tag"
	NameKindAlias = "alias"
)

// Name reserves a normalized identifier across both the tag and the alias namespace.
// Its primary key is what makes concurrent creates of the same name collide.
type Name struct {
	Name string `gorm:"primaryKey;type:varchar(191)"`
	Kind string `gorm:"type:varchar(16);not null"`
}

func (Name) TableName() string {
	return "tag_names"
}
