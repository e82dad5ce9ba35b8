package store

import (
	"context"

	"github.com/mwantia/modbot/pkg/db/models"
)

const topN = 3

// TagRank returns the position of a tag ordered by use count, ties sharing a position.
func (s *GormStore) TagRank(ctx context.Context, name string) (*Rank, error) {
	tag, err := s.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	rank := &Rank{}

	var ahead int64
	if err := db.Model(&models.Tag{}).Where("times_used > ?", tag.TimesUsed).Count(&ahead).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Tag{}).Count(&rank.Total).Error; err != nil {
		return nil, err
	}

	rank.Position = ahead + 1
	return rank, nil
}

func (s *GormStore) ServerStats(ctx context.Context) (*models.ServerStats, error) {
	db := s.db.WithContext(ctx)
	stats := &models.ServerStats{}

	if err := db.Model(&models.Tag{}).Count(&stats.TotalTags).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Tag{}).
		Select("COALESCE(SUM(times_used), 0)").
		Scan(&stats.TotalUses).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Tag{}).
		Select("name", "creator_id", "times_used", "restricted").
		Order("times_used DESC, name ASC").
		Limit(topN).
		Scan(&stats.TopTags).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Tag{}).
		Select("creator_id, COUNT(*) AS count").
		Group("creator_id").
		Order("count DESC, creator_id ASC").
		Limit(topN).
		Scan(&stats.TopCreators).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Tag{}).
		Select("creator_id, COALESCE(SUM(times_used), 0) AS count").
		Group("creator_id").
		Order("count DESC, creator_id ASC").
		Limit(topN).
		Scan(&stats.TopCreatorsByUses).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

func (s *GormStore) MemberStats(ctx context.Context, creatorID string) (*models.MemberStats, error) {
	db := s.db.WithContext(ctx)
	stats := &models.MemberStats{CreatorID: creatorID}

	owned := db.Model(&models.Tag{}).Where("creator_id = ?", creatorID)
	if err := owned.Count(&stats.OwnedTags).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Tag{}).
		Where("creator_id = ?", creatorID).
		Select("COALESCE(SUM(times_used), 0)").
		Scan(&stats.TotalUses).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Tag{}).
		Where("creator_id = ?", creatorID).
		Select("name", "creator_id", "times_used", "restricted").
		Order("times_used DESC, name ASC").
		Limit(topN).
		Scan(&stats.TopTags).Error; err != nil {
		return nil, err
	}

	return stats, nil
}
