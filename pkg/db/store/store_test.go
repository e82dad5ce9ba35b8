package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mwantia/modbot/pkg/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()

	s, err := NewStore(Config{Type: TypeSQLite, Path: ":memory:"})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Connect(ctx))
	require.NoError(t, s.Migrate(ctx))

	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "rustfmt", want: "rustfmt"},
		{in: "  RustFmt ", want: "rustfmt"},
		{in: "How   To\tAsk", want: "how to ask"},
		{in: "   ", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeName(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidName)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateAndResolve(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tag, err := s.CreateTag(ctx, "rustfmt", "Use `cargo fmt`.", "42")
	require.NoError(t, err)
	assert.Equal(t, "rustfmt", tag.Name)

	require.NoError(t, s.IncrementUsage(ctx, "rustfmt"))

	got, err := s.Resolve(ctx, " RUSTFMT ")
	require.NoError(t, err)
	assert.Equal(t, "Use `cargo fmt`.", got.Content)
	assert.Equal(t, "42", got.CreatorID)
	assert.EqualValues(t, 1, got.TimesUsed)
	assert.Nil(t, got.LastEditorID)
	assert.Nil(t, got.LastEditedAt)
}

func TestAliasResolution(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateTag(ctx, "rustfmt", "Use `cargo fmt`.", "42")
	require.NoError(t, err)
	require.NoError(t, s.IncrementUsage(ctx, "rustfmt"))

	_, err = s.AddAlias(ctx, "fmt", "rustfmt")
	require.NoError(t, err)

	viaAlias, err := s.Resolve(ctx, "fmt")
	require.NoError(t, err)
	assert.Equal(t, "rustfmt", viaAlias.Name)
	require.NoError(t, s.IncrementUsage(ctx, viaAlias.Name))

	direct, err := s.Resolve(ctx, "rustfmt")
	require.NoError(t, err)
	assert.Equal(t, direct.Content, viaAlias.Content)
	assert.EqualValues(t, 2, direct.TimesUsed)

	_, err = s.AddAlias(ctx, "fmt2", "fmt")
	assert.ErrorIs(t, err, ErrAliasOfAlias)

	_, err = s.AddAlias(ctx, "fmt3", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNameCollisions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateTag(ctx, "rustfmt", "content", "1")
	require.NoError(t, err)
	_, err = s.AddAlias(ctx, "fmt", "rustfmt")
	require.NoError(t, err)

	_, err = s.CreateTag(ctx, "RustFmt", "other", "2")
	assert.ErrorIs(t, err, ErrNameCollision)

	_, err = s.CreateTag(ctx, "fmt", "other", "2")
	assert.ErrorIs(t, err, ErrNameCollision)

	_, err = s.AddAlias(ctx, "fmt", "rustfmt")
	assert.ErrorIs(t, err, ErrNameCollision)

	_, err = s.AddAlias(ctx, "rustfmt", "rustfmt")
	assert.ErrorIs(t, err, ErrNameCollision)

	// prior state untouched
	tag, err := s.Resolve(ctx, "rustfmt")
	require.NoError(t, err)
	assert.Equal(t, "content", tag.Content)
	assert.Equal(t, "1", tag.CreatorID)
}

func TestConcurrentCreate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.CreateTag(ctx, "dup", "content", "actor")
		}(i)
	}
	wg.Wait()

	var ok, collided int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrNameCollision):
			collided++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, collided)
}

func TestDeleteCascadesAliases(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateTag(ctx, "ask", "Just ask.", "1")
	require.NoError(t, err)
	_, err = s.AddAlias(ctx, "question", "ask")
	require.NoError(t, err)
	_, err = s.AddAlias(ctx, "q", "ask")
	require.NoError(t, err)

	result, err := s.DeleteTag(ctx, "ask")
	require.NoError(t, err)
	assert.False(t, result.Alias)
	assert.Equal(t, []string{"q", "question"}, result.Aliases)

	for _, name := range []string{"ask", "question", "q"} {
		_, err := s.Resolve(ctx, name)
		assert.ErrorIs(t, err, ErrNotFound, name)
	}

	// freed names are reusable
	_, err = s.CreateTag(ctx, "q", "new", "2")
	require.NoError(t, err)

	_, err = s.DeleteTag(ctx, "ask")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAliasKeepsTag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateTag(ctx, "ask", "Just ask.", "1")
	require.NoError(t, err)
	_, err = s.AddAlias(ctx, "question", "ask")
	require.NoError(t, err)

	result, err := s.DeleteTag(ctx, "question")
	require.NoError(t, err)
	assert.True(t, result.Alias)
	assert.Equal(t, "ask", result.TagName)

	_, err = s.Resolve(ctx, "ask")
	require.NoError(t, err)
	_, err = s.Resolve(ctx, "question")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEditTag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateTag(ctx, "ask", "Just ask.", "1")
	require.NoError(t, err)
	_, err = s.AddAlias(ctx, "question", "ask")
	require.NoError(t, err)

	edited, err := s.EditTag(ctx, "question", "Don't ask to ask.", "2")
	require.NoError(t, err)
	assert.Equal(t, "ask", edited.Name)
	assert.Equal(t, "Don't ask to ask.", edited.Content)
	require.NotNil(t, edited.LastEditorID)
	assert.Equal(t, "2", *edited.LastEditorID)
	assert.NotNil(t, edited.LastEditedAt)
	assert.Equal(t, "1", edited.CreatorID)

	_, err = s.EditTag(ctx, "missing", "x", "2")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.EditTag(ctx, "ask", "  ", "2")
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestRenameTag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateTag(ctx, "old", "content", "1")
	require.NoError(t, err)
	require.NoError(t, s.IncrementUsage(ctx, "old"))
	_, err = s.AddAlias(ctx, "other", "old")
	require.NoError(t, err)
	_, err = s.AddAlias(ctx, "new", "old")
	require.NoError(t, err)

	renamed, err := s.RenameTag(ctx, "old", "new")
	require.NoError(t, err)
	assert.Equal(t, "new", renamed.Name)
	assert.EqualValues(t, 1, renamed.TimesUsed)

	for _, name := range []string{"old", "other", "new"} {
		tag, err := s.Resolve(ctx, name)
		require.NoError(t, err, name)
		assert.Equal(t, "new", tag.Name)
	}

	aliases, err := s.TagAliases(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, []string{"old", "other"}, aliases)

	_, err = s.RenameTag(ctx, "other", "x")
	assert.ErrorIs(t, err, ErrIsAlias)

	_, err = s.CreateTag(ctx, "taken", "content", "1")
	require.NoError(t, err)
	_, err = s.RenameTag(ctx, "new", "taken")
	assert.ErrorIs(t, err, ErrNameCollision)
}

func TestRestrictTag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateTag(ctx, "rules", "Be nice.", "1")
	require.NoError(t, err)

	tag, err := s.RestrictTag(ctx, "rules", true)
	require.NoError(t, err)
	assert.True(t, tag.Restricted)

	tag, err = s.RestrictTag(ctx, "rules", false)
	require.NoError(t, err)
	assert.False(t, tag.Restricted)

	_, err = s.AddAlias(ctx, "r", "rules")
	require.NoError(t, err)
	tag, err = s.RestrictTag(ctx, "r", true)
	require.NoError(t, err)
	assert.Equal(t, "rules", tag.Name)
	assert.True(t, tag.Restricted)

	resolved, err := s.Resolve(ctx, "rules")
	require.NoError(t, err)
	assert.True(t, resolved.Restricted)

	_, err = s.RestrictTag(ctx, "missing", true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIncrementUsageMissing(t *testing.T) {
	s := newTestStore(t)

	err := s.IncrementUsage(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListTags(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"beta", "alpha", "al_x", "gamma", "alpine"} {
		_, err := s.CreateTag(ctx, name, "content", "1")
		require.NoError(t, err)
	}
	_, err := s.CreateTag(ctx, "delta", "content", "2")
	require.NoError(t, err)

	all, err := s.ListTags(ctx, TagQuery{})
	require.NoError(t, err)
	names := make([]string, 0, len(all))
	for _, tag := range all {
		names = append(names, tag.Name)
	}
	assert.Equal(t, []string{"al_x", "alpha", "alpine", "beta", "delta", "gamma"}, names)

	page, err := s.ListTags(ctx, TagQuery{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "alpine", page[0].Name)
	assert.Equal(t, "beta", page[1].Name)

	prefixed, err := s.ListTags(ctx, TagQuery{Prefix: "al_"})
	require.NoError(t, err)
	require.Len(t, prefixed, 1)
	assert.Equal(t, "al_x", prefixed[0].Name)

	byCreator, err := s.ListTags(ctx, TagQuery{CreatorID: "2"})
	require.NoError(t, err)
	require.Len(t, byCreator, 1)
	assert.Equal(t, "delta", byCreator[0].Name)

	count, err := s.CountTags(ctx, TagQuery{Prefix: "al"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	uses := map[string]int{"a": 5, "b": 3, "c": 1, "d": 0}
	creators := map[string]string{"a": "1", "b": "2", "c": "1", "d": "1"}
	for name, n := range uses {
		_, err := s.CreateTag(ctx, name, "content", creators[name])
		require.NoError(t, err)
		for i := 0; i < n; i++ {
			require.NoError(t, s.IncrementUsage(ctx, name))
		}
	}

	server, err := s.ServerStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, server.TotalTags)
	assert.EqualValues(t, 9, server.TotalUses)
	require.Len(t, server.TopTags, 3)
	assert.Equal(t, "a", server.TopTags[0].Name)
	assert.Equal(t, "b", server.TopTags[1].Name)
	require.NotEmpty(t, server.TopCreators)
	assert.Equal(t, models.CreatorCount{CreatorID: "1", Count: 3}, server.TopCreators[0])
	require.NotEmpty(t, server.TopCreatorsByUses)
	assert.Equal(t, models.CreatorCount{CreatorID: "1", Count: 6}, server.TopCreatorsByUses[0])

	member, err := s.MemberStats(ctx, "2")
	require.NoError(t, err)
	assert.EqualValues(t, 1, member.OwnedTags)
	assert.EqualValues(t, 3, member.TotalUses)
	require.Len(t, member.TopTags, 1)

	rank, err := s.TagRank(ctx, "b")
	require.NoError(t, err)
	assert.EqualValues(t, 2, rank.Position)
	assert.EqualValues(t, 4, rank.Total)
}

func TestAllTags(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateTag(ctx, "b", "content", "1")
	require.NoError(t, err)
	_, err = s.CreateTag(ctx, "a", "content", "1")
	require.NoError(t, err)
	_, err = s.AddAlias(ctx, "a2", "a")
	require.NoError(t, err)

	tags, err := s.AllTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "a", tags[0].Name)
	require.Len(t, tags[0].Aliases, 1)
	assert.Equal(t, "a2", tags[0].Aliases[0].Alias)
	assert.Empty(t, tags[1].Aliases)
}

func TestNewStoreRejectsUnknownType(t *testing.T) {
	_, err := NewStore(Config{Type: "oracle"})
	assert.Error(t, err)

	_, err = NewStore(Config{Type: TypePostgres})
	assert.Error(t, err)
}
