package store

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrNameCollision = errors.New("name already used by a tag or alias")
	ErrNotFound      = errors.New("tag not found")
	ErrAliasOfAlias  = errors.New("alias target is itself an alias")
	ErrIsAlias       = errors.New("name is an alias, not a tag")
	ErrInvalidName   = errors.New("invalid tag name")
	ErrEmptyContent  = errors.New("tag content is empty")
)

// translate maps driver errors onto the store's own error values.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case isDuplicate(err):
		return ErrNameCollision
	}
	return err
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}
