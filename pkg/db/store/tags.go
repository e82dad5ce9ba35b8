package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mwantia/modbot/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Resolve returns the tag named by key, following at most one alias.
func (s *GormStore) Resolve(ctx context.Context, key string) (*models.Tag, error) {
	name, err := NormalizeName(key)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	var tag models.Tag
	err = db.Where("name = ?", name).First(&tag).Error
	if err == nil {
		return &tag, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var alias models.Alias
	if err := db.Where("alias = ?", name).First(&alias).Error; err != nil {
		return nil, translate(err)
	}
	if err := db.Where("name = ?", alias.TagName).First(&tag).Error; err != nil {
		return nil, translate(err)
	}
	return &tag, nil
}

func (s *GormStore) TagAliases(ctx context.Context, name string) ([]string, error) {
	normalized, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}

	var aliases []string
	err = s.db.WithContext(ctx).Model(&models.Alias{}).
		Where("tag_name = ?", normalized).
		Order("alias ASC").
		Pluck("alias", &aliases).Error
	return aliases, err
}

func (s *GormStore) CreateTag(ctx context.Context, name, content, creatorID string) (*models.Tag, error) {
	normalized, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	tag := &models.Tag{
		Name:      normalized,
		Content:   content,
		CreatorID: creatorID,
	}

	err = s.transaction(ctx, func(tx *gorm.DB) error {
		if err := reserveName(tx, normalized, models.NameKindTag); err != nil {
			return err
		}
		return translate(tx.Omit(clause.Associations).Create(tag).Error)
	})
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// EditTag replaces the content of the tag named by name. An alias edits the tag it points at.
func (s *GormStore) EditTag(ctx context.Context, name, content, editorID string) (*models.Tag, error) {
	normalized, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	var tag models.Tag
	err = s.transaction(ctx, func(tx *gorm.DB) error {
		canonical, err := canonicalName(tx, normalized)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		result := tx.Model(&models.Tag{}).
			Where("name = ?", canonical).
			Updates(map[string]any{
				"content":        content,
				"last_editor_id": editorID,
				"last_edited_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("name = ?", canonical).First(&tag).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &tag, nil
}

// DeleteTag removes a tag together with all of its aliases. When name is an
// alias only that alias is removed.
func (s *GormStore) DeleteTag(ctx context.Context, name string) (*DeleteResult, error) {
	normalized, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}

	result := &DeleteResult{Name: normalized}
	err = s.transaction(ctx, func(tx *gorm.DB) error {
		var entry models.Name
		if err := tx.Where("name = ?", normalized).First(&entry).Error; err != nil {
			return translate(err)
		}

		if entry.Kind == models.NameKindAlias {
			var alias models.Alias
			if err := tx.Where("alias = ?", normalized).First(&alias).Error; err != nil {
				return translate(err)
			}
			result.Alias = true
			result.TagName = alias.TagName
			if err := tx.Delete(&models.Alias{}, "alias = ?", normalized).Error; err != nil {
				return err
			}
			return tx.Delete(&models.Name{}, "name = ?", normalized).Error
		}

		result.TagName = normalized
		if err := tx.Model(&models.Alias{}).
			Where("tag_name = ?", normalized).
			Order("alias ASC").
			Pluck("alias", &result.Aliases).Error; err != nil {
			return err
		}

		if len(result.Aliases) > 0 {
			if err := tx.Delete(&models.Name{}, "name IN ?", result.Aliases).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.Alias{}, "tag_name = ?", normalized).Error; err != nil {
				return err
			}
		}
		if err := tx.Delete(&models.Tag{}, "name = ?", normalized).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Name{}, "name = ?", normalized).Error
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *GormStore) AddAlias(ctx context.Context, alias, target string) (*models.Alias, error) {
	aliasName, err := NormalizeName(alias)
	if err != nil {
		return nil, err
	}
	targetName, err := NormalizeName(target)
	if err != nil {
		return nil, err
	}
	if aliasName == targetName {
		return nil, ErrNameCollision
	}

	created := &models.Alias{
		Alias:   aliasName,
		TagName: targetName,
	}

	err = s.transaction(ctx, func(tx *gorm.DB) error {
		var entry models.Name
		if err := tx.Where("name = ?", targetName).First(&entry).Error; err != nil {
			return translate(err)
		}
		if entry.Kind == models.NameKindAlias {
			return ErrAliasOfAlias
		}

		if err := reserveName(tx, aliasName, models.NameKindAlias); err != nil {
			return err
		}
		return translate(tx.Omit(clause.Associations).Create(created).Error)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// RenameTag moves a tag to newName and keeps oldName reachable as an alias of it.
// Existing aliases are repointed. If newName is already an alias of the same tag,
// that alias is consumed by the rename.
func (s *GormStore) RenameTag(ctx context.Context, oldName, newName string) (*models.Tag, error) {
	from, err := NormalizeName(oldName)
	if err != nil {
		return nil, err
	}
	to, err := NormalizeName(newName)
	if err != nil {
		return nil, err
	}
	if from == to {
		return nil, ErrNameCollision
	}

	var renamed models.Tag
	err = s.transaction(ctx, func(tx *gorm.DB) error {
		var entry models.Name
		if err := tx.Where("name = ?", from).First(&entry).Error; err != nil {
			return translate(err)
		}
		if entry.Kind == models.NameKindAlias {
			return ErrIsAlias
		}

		var existing models.Name
		err := tx.Where("name = ?", to).First(&existing).Error
		switch {
		case err == nil:
			if existing.Kind != models.NameKindAlias {
				return ErrNameCollision
			}
			var alias models.Alias
			if err := tx.Where("alias = ?", to).First(&alias).Error; err != nil {
				return translate(err)
			}
			if alias.TagName != from {
				return ErrNameCollision
			}
			if err := tx.Delete(&models.Alias{}, "alias = ?", to).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.Name{}, "name = ?", to).Error; err != nil {
				return err
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		var tag models.Tag
		if err := tx.Where("name = ?", from).First(&tag).Error; err != nil {
			return translate(err)
		}

		if err := reserveName(tx, to, models.NameKindTag); err != nil {
			return err
		}
		renamed = tag
		renamed.Name = to
		renamed.Aliases = nil
		if err := tx.Omit(clause.Associations).Create(&renamed).Error; err != nil {
			return translate(err)
		}

		if err := tx.Model(&models.Alias{}).
			Where("tag_name = ?", from).
			Update("tag_name", to).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Tag{}, "name = ?", from).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Name{}).
			Where("name = ?", from).
			Update("kind", models.NameKindAlias).Error; err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(&models.Alias{Alias: from, TagName: to}).Error
	})
	if err != nil {
		return nil, err
	}
	return &renamed, nil
}

// RestrictTag sets the restricted flag. An alias restricts the tag it points at.
func (s *GormStore) RestrictTag(ctx context.Context, name string, restricted bool) (*models.Tag, error) {
	normalized, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}

	var tag models.Tag
	err = s.transaction(ctx, func(tx *gorm.DB) error {
		canonical, err := canonicalName(tx, normalized)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.Tag{}).
			Where("name = ?", canonical).
			Update("restricted", restricted).Error; err != nil {
			return err
		}
		return tx.Where("name = ?", canonical).First(&tag).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &tag, nil
}

// IncrementUsage bumps times_used of the canonical tag name by one.
func (s *GormStore) IncrementUsage(ctx context.Context, name string) error {
	normalized, err := NormalizeName(name)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	result := s.db.WithContext(ctx).Model(&models.Tag{}).
		Where("name = ?", normalized).
		UpdateColumn("times_used", gorm.Expr("times_used + ?", 1))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListTags(ctx context.Context, query TagQuery) ([]models.TagSummary, error) {
	var summaries []models.TagSummary

	q := s.filtered(ctx, query).
		Select("name", "creator_id", "times_used", "restricted").
		Order("name ASC")
	if query.Limit > 0 {
		q = q.Limit(query.Limit)
	}
	if query.Offset > 0 {
		q = q.Offset(query.Offset)
	}

	err := q.Scan(&summaries).Error
	return summaries, err
}

func (s *GormStore) CountTags(ctx context.Context, query TagQuery) (int64, error) {
	var count int64
	err := s.filtered(ctx, query).Count(&count).Error
	return count, err
}

// AllTags returns every tag with its aliases, ordered by name.
func (s *GormStore) AllTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	err := s.db.WithContext(ctx).
		Preload("Aliases", func(db *gorm.DB) *gorm.DB {
			return db.Order("alias ASC")
		}).
		Order("name ASC").
		Find(&tags).Error
	return tags, err
}

func (s *GormStore) filtered(ctx context.Context, query TagQuery) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.Tag{})
	if query.Prefix != "" {
		prefix := strings.ToLower(strings.TrimSpace(query.Prefix))
		pattern := escapeLike(prefix) + "%"
		// MySQL and Postgres already treat backslash as the LIKE escape
		if s.dialect == TypeSQLite {
			q = q.Where(`name LIKE ? ESCAPE '\'`, pattern)
		} else {
			q = q.Where("name LIKE ?", pattern)
		}
	}
	if query.CreatorID != "" {
		q = q.Where("creator_id = ?", query.CreatorID)
	}
	return q
}

// reserveName claims name in the shared tag/alias namespace. The primary key
// on tag_names turns a concurrent claim into ErrNameCollision.
func reserveName(tx *gorm.DB, name, kind string) error {
	return translate(tx.Create(&models.Name{Name: name, Kind: kind}).Error)
}

// canonicalName returns the tag name that name refers to, directly or via an alias.
func canonicalName(tx *gorm.DB, name string) (string, error) {
	var entry models.Name
	if err := tx.Where("name = ?", name).First(&entry).Error; err != nil {
		return "", translate(err)
	}
	if entry.Kind == models.NameKindTag {
		return name, nil
	}

	var alias models.Alias
	if err := tx.Where("alias = ?", name).First(&alias).Error; err != nil {
		return "", translate(err)
	}
	return alias.TagName, nil
}
