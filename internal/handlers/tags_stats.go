package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mwantia/modbot/internal/dispatch"
	"github.com/mwantia/modbot/pkg/db/models"
	"github.com/mwantia/modbot/pkg/db/store"
)

const timeLayout = "2006-01-02 15:04 UTC"

func (m *module) tagInfo(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	name := req.Invocation.Tail(0)
	if name == "" {
		return nil, dispatch.ErrUsage
	}

	tag, err := req.Store.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	rank, err := req.Store.TagRank(ctx, tag.Name)
	if err != nil {
		return nil, err
	}
	aliases, err := req.Store.TagAliases(ctx, tag.Name)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n", tag.Name)
	fmt.Fprintf(&b, "Created by %s on %s\n", mention(tag.CreatorID), tag.CreatedAt.UTC().Format(timeLayout))
	fmt.Fprintf(&b, "Uses: %d (rank %d/%d)\n", tag.TimesUsed, rank.Position, rank.Total)
	fmt.Fprintf(&b, "Restricted: %t", tag.Restricted)
	if len(aliases) > 0 {
		fmt.Fprintf(&b, "\nAliases: %s", strings.Join(aliases, ", "))
	}
	if tag.LastEditorID != nil {
		fmt.Fprintf(&b, "\nLast editor: %s", mention(*tag.LastEditorID))
	}
	if tag.LastEditedAt != nil {
		fmt.Fprintf(&b, "\nLast edit: %s", tag.LastEditedAt.UTC().Format(timeLayout))
	}
	return dispatch.Reply(b.String()), nil
}

func (m *module) tagList(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	query := store.TagQuery{Limit: tagsPerPage}
	page := 1

	for _, arg := range req.Invocation.Args {
		if id, ok := parseMember(arg); ok && strings.HasPrefix(arg, "<@") {
			query.CreatorID = id
			continue
		}
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return nil, dispatch.ErrUsage
		}
		page = n
	}

	total, err := req.Store.CountTags(ctx, query)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return dispatch.Reply("No tags found."), nil
	}

	pages := int((total + tagsPerPage - 1) / tagsPerPage)
	if page > pages {
		page = pages
	}
	query.Offset = (page - 1) * tagsPerPage

	tags, err := req.Store.ListTags(ctx, query)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	return dispatch.Reply(fmt.Sprintf("Tags (page %d/%d): %s", page, pages, strings.Join(names, ", "))), nil
}

func (m *module) tagStats(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	if len(req.Invocation.Args) > 1 {
		return nil, dispatch.ErrUsage
	}
	if len(req.Invocation.Args) == 1 {
		member, ok := parseMember(req.Invocation.Arg(0))
		if !ok {
			return nil, dispatch.ErrUsage
		}
		return m.memberStats(ctx, req, member)
	}

	stats, err := req.Store.ServerStats(ctx)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("**Tag Stats**\n")
	fmt.Fprintf(&b, "Total number of tags: %d\nTotal tag uses: %d\n", stats.TotalTags, stats.TotalUses)
	b.WriteString("\n**Top Tags**\n")
	writeTopTags(&b, stats.TopTags)
	b.WriteString("\n**Top Tag Creators**\n")
	writeCreators(&b, stats.TopCreators, "tags")
	b.WriteString("\n**Top Tag Creators by Uses**\n")
	writeCreators(&b, stats.TopCreatorsByUses, "uses")
	return dispatch.Reply(strings.TrimRight(b.String(), "\n")), nil
}

func (m *module) memberStats(ctx context.Context, req *dispatch.Request, member string) (*dispatch.Result, error) {
	stats, err := req.Store.MemberStats(ctx, member)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Tag Stats for %s**\n", mention(member))
	fmt.Fprintf(&b, "Owned tags: %d (%d uses)\n", stats.OwnedTags, stats.TotalUses)
	b.WriteString("\n**Top Tags**\n")
	writeTopTags(&b, stats.TopTags)
	return dispatch.Reply(strings.TrimRight(b.String(), "\n")), nil
}

func writeTopTags(b *strings.Builder, tags []models.TagSummary) {
	if len(tags) == 0 {
		b.WriteString("None\n")
		return
	}
	for _, tag := range tags {
		fmt.Fprintf(b, "%s (%d uses)\n", tag.Name, tag.TimesUsed)
	}
}

func writeCreators(b *strings.Builder, creators []models.CreatorCount, unit string) {
	if len(creators) == 0 {
		b.WriteString("None\n")
		return
	}
	for _, c := range creators {
		fmt.Fprintf(b, "%s (%d %s)\n", mention(c.CreatorID), c.Count, unit)
	}
}
