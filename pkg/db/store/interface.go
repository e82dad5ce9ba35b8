package store

import (
	"context"

	"github.com/mwantia/modbot/pkg/db/models"
)

// TagStore defines the interface for tag knowledge base operations
type TagStore interface {
	// Lifecycle
	Connect(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error
	Health(ctx context.Context) error

	// Lookup operations
	Resolve(ctx context.Context, key string) (*models.Tag, error)
	TagAliases(ctx context.Context, name string) ([]string, error)
	ListTags(ctx context.Context, query TagQuery) ([]models.TagSummary, error)
	CountTags(ctx context.Context, query TagQuery) (int64, error)
	AllTags(ctx context.Context) ([]models.Tag, error)

	// Mutating operations
	CreateTag(ctx context.Context, name, content, creatorID string) (*models.Tag, error)
	EditTag(ctx context.Context, name, content, editorID string) (*models.Tag, error)
	DeleteTag(ctx context.Context, name string) (*DeleteResult, error)
	AddAlias(ctx context.Context, alias, target string) (*models.Alias, error)
	RenameTag(ctx context.Context, oldName, newName string) (*models.Tag, error)
	RestrictTag(ctx context.Context, name string, restricted bool) (*models.Tag, error)
	IncrementUsage(ctx context.Context, name string) error

	// Statistics
	TagRank(ctx context.Context, name string) (*Rank, error)
	ServerStats(ctx context.Context) (*models.ServerStats, error)
	MemberStats(ctx context.Context, creatorID string) (*models.MemberStats, error)
}

// TagQuery filters and pages a tag listing. Results are always ordered by name.
type TagQuery struct {
	Prefix    string
	CreatorID string
	Limit     int
	Offset    int
}

// DeleteResult describes what a delete removed.
type DeleteResult struct {
	Name    string
	Alias   bool
	TagName string
	Aliases []string
}

// Rank places a tag among all tags by use count, 1 being the most used.
type Rank struct {
	Position int64
	Total    int64
}
