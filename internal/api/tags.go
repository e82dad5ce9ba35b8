package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mwantia/modbot/pkg/db/models"
	"github.com/mwantia/modbot/pkg/db/store"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

type tagSummary struct {
	Name       string `json:"name"`
	CreatorID  string `json:"creator_id"`
	TimesUsed  int64  `json:"times_used"`
	Restricted bool   `json:"restricted"`
}

type tagListResponse struct {
	Tags   []tagSummary `json:"tags"`
	Total  int64        `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

type tagDetail struct {
	Name         string     `json:"name"`
	Content      string     `json:"content"`
	CreatorID    string     `json:"creator_id"`
	LastEditorID *string    `json:"last_editor_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	LastEditedAt *time.Time `json:"last_edited_at,omitempty"`
	TimesUsed    int64      `json:"times_used"`
	Restricted   bool       `json:"restricted"`
	Aliases      []string   `json:"aliases"`
	Rank         int64      `json:"rank"`
}

type creatorCount struct {
	CreatorID string `json:"creator_id"`
	Count     int64  `json:"count"`
}

type serverStatsResponse struct {
	TotalTags         int64          `json:"total_tags"`
	TotalUses         int64          `json:"total_uses"`
	TopTags           []tagSummary   `json:"top_tags"`
	TopCreators       []creatorCount `json:"top_creators"`
	TopCreatorsByUses []creatorCount `json:"top_creators_by_uses"`
}

type memberStatsResponse struct {
	CreatorID string       `json:"creator_id"`
	OwnedTags int64        `json:"owned_tags"`
	TotalUses int64        `json:"total_uses"`
	TopTags   []tagSummary `json:"top_tags"`
}

func (s *Server) ListTags(c *gin.Context) {
	query := store.TagQuery{
		Prefix:    c.Query("prefix"),
		CreatorID: c.Query("creator"),
		Limit:     defaultLimit,
	}

	var err error
	if v := c.Query("limit"); v != "" {
		if query.Limit, err = strconv.Atoi(v); err != nil || query.Limit <= 0 || query.Limit > maxLimit {
			ErrorResponse(c, http.StatusBadRequest, ErrCodeInvalidRequest, "limit must be between 1 and 200")
			return
		}
	}
	if v := c.Query("offset"); v != "" {
		if query.Offset, err = strconv.Atoi(v); err != nil || query.Offset < 0 {
			ErrorResponse(c, http.StatusBadRequest, ErrCodeInvalidRequest, "offset must not be negative")
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	tags, err := s.store.ListTags(ctx, query)
	if err != nil {
		s.storeError(c, err)
		return
	}
	total, err := s.store.CountTags(ctx, query)
	if err != nil {
		s.storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, tagListResponse{
		Tags:   makeSummaries(tags),
		Total:  total,
		Limit:  query.Limit,
		Offset: query.Offset,
	})
}

// GetTag resolves the name, so an alias returns the tag it points at.
func (s *Server) GetTag(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	tag, err := s.store.Resolve(ctx, c.Param("name"))
	if err != nil {
		s.storeError(c, err)
		return
	}
	aliases, err := s.store.TagAliases(ctx, tag.Name)
	if err != nil {
		s.storeError(c, err)
		return
	}
	rank, err := s.store.TagRank(ctx, tag.Name)
	if err != nil {
		s.storeError(c, err)
		return
	}
	if aliases == nil {
		aliases = []string{}
	}

	c.JSON(http.StatusOK, tagDetail{
		Name:         tag.Name,
		Content:      tag.Content,
		CreatorID:    tag.CreatorID,
		LastEditorID: tag.LastEditorID,
		CreatedAt:    tag.CreatedAt,
		LastEditedAt: tag.LastEditedAt,
		TimesUsed:    tag.TimesUsed,
		Restricted:   tag.Restricted,
		Aliases:      aliases,
		Rank:         rank.Position,
	})
}

func (s *Server) ServerStats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	stats, err := s.store.ServerStats(ctx)
	if err != nil {
		s.storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, serverStatsResponse{
		TotalTags:         stats.TotalTags,
		TotalUses:         stats.TotalUses,
		TopTags:           makeSummaries(stats.TopTags),
		TopCreators:       makeCreatorCounts(stats.TopCreators),
		TopCreatorsByUses: makeCreatorCounts(stats.TopCreatorsByUses),
	})
}

func (s *Server) MemberStats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	stats, err := s.store.MemberStats(ctx, c.Param("creator"))
	if err != nil {
		s.storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, memberStatsResponse{
		CreatorID: stats.CreatorID,
		OwnedTags: stats.OwnedTags,
		TotalUses: stats.TotalUses,
		TopTags:   makeSummaries(stats.TopTags),
	})
}

func makeSummaries(tags []models.TagSummary) []tagSummary {
	out := make([]tagSummary, 0, len(tags))
	for _, t := range tags {
		out = append(out, tagSummary{
			Name:       t.Name,
			CreatorID:  t.CreatorID,
			TimesUsed:  t.TimesUsed,
			Restricted: t.Restricted,
		})
	}
	return out
}

func makeCreatorCounts(counts []models.CreatorCount) []creatorCount {
	out := make([]creatorCount, 0, len(counts))
	for _, c := range counts {
		out = append(out, creatorCount{CreatorID: c.CreatorID, Count: c.Count})
	}
	return out
}
