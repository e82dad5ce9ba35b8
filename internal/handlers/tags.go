package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/mwantia/modbot/internal/dispatch"
	"github.com/mwantia/modbot/internal/policy"
	"github.com/mwantia/modbot/pkg/db/store"
)

const tagsPerPage = 30

func (m *module) tagCommands() []dispatch.Command {
	return []dispatch.Command{
		{
			Name:          "tag",
			Description:   "Displays a tag.",
			Usage:         "tag <name>",
			Category:      "Tags",
			RequiresStore: true,
			Handler:       m.tagShow,
		},
		{
			Name:          "tags create",
			Aliases:       []string{"tags add"},
			Description:   "Creates a tag.",
			Usage:         "tags create <name> <content>",
			Category:      "Tags",
			RequiresStore: true,
			Handler:       m.tagCreate,
		},
		{
			Name:          "tags edit",
			Description:   "Edits the content of an existing tag.",
			Usage:         "tags edit <name> <content>",
			Category:      "Tags",
			RequiresStore: true,
			Target:        tagTarget,
			Handler:       m.tagEdit,
		},
		{
			Name:          "tags delete",
			Aliases:       []string{"tags remove"},
			Description:   "Removes a tag and all of its aliases. Removing an alias keeps the tag.",
			Usage:         "tags delete <name>",
			Category:      "Tags",
			RequiresStore: true,
			Target:        tagTarget,
			Handler:       m.tagDelete,
		},
		{
			Name:          "tags alias",
			Description:   "Creates an alias so a tag can be called by either name.",
			Usage:         "tags alias <existing> <new>",
			Category:      "Tags",
			RequiresStore: true,
			Handler:       m.tagAlias,
		},
		{
			Name:          "tags rename",
			Description:   "Renames a tag. The old name keeps working as an alias.",
			Usage:         "tags rename <old> <new>",
			Category:      "Tags",
			RequiresStore: true,
			Target:        tagTarget,
			Handler:       m.tagRename,
		},
		{
			Name:          "tags restrict",
			Description:   "Restricts editing and deleting a tag to its creator and moderators.",
			Usage:         "tags restrict <name>",
			Category:      "Tags",
			Permission:    policy.PermissionElevated,
			RequiresStore: true,
			Handler:       m.tagRestrict(true),
		},
		{
			Name:          "tags unrestrict",
			Description:   "Lifts the restriction of a tag.",
			Usage:         "tags unrestrict <name>",
			Category:      "Tags",
			Permission:    policy.PermissionElevated,
			RequiresStore: true,
			Handler:       m.tagRestrict(false),
		},
		{
			Name:          "tags info",
			Description:   "Shows some stats collected about a tag.",
			Usage:         "tags info <name>",
			Category:      "Tags",
			RequiresStore: true,
			Handler:       m.tagInfo,
		},
		{
			Name:          "tags list",
			Description:   "Lists all tags. Mention someone to list their tags instead.",
			Usage:         "tags list [@member] [page]",
			Category:      "Tags",
			RequiresStore: true,
			Handler:       m.tagList,
		},
		{
			Name:          "tags stats",
			Description:   "Shows tag stats for the server. Mention someone to show theirs instead.",
			Usage:         "tags stats [@member]",
			Category:      "Tags",
			RequiresStore: true,
			Handler:       m.tagStats,
		},
	}
}

// tagTarget resolves the tag named by the first argument for the gate.
func tagTarget(ctx context.Context, req *dispatch.Request) (*policy.Target, error) {
	name := req.Invocation.Arg(0)
	if name == "" {
		return nil, dispatch.ErrUsage
	}

	tag, err := req.Store.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	return &policy.Target{
		Tag: &policy.TagTarget{
			CreatorID:  tag.CreatorID,
			Restricted: tag.Restricted,
		},
	}, nil
}

func (m *module) tagShow(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	name := req.Invocation.Tail(0)
	if name == "" {
		return nil, dispatch.ErrUsage
	}

	tag, err := req.Store.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}

	return dispatch.Reply(tag.Content).Then(func(ctx context.Context) error {
		return req.Store.IncrementUsage(ctx, tag.Name)
	}), nil
}

func (m *module) tagCreate(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	inv := req.Invocation
	if len(inv.Args) < 2 {
		return nil, dispatch.ErrUsage
	}

	tag, err := req.Store.CreateTag(ctx, inv.Arg(0), inv.Tail(1), inv.Actor.ID)
	if err != nil {
		return nil, err
	}
	req.Logger.Info("Tag '%s' created by %s", tag.Name, inv.Actor.ID)
	return dispatch.Reply("Tag created."), nil
}

func (m *module) tagEdit(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	inv := req.Invocation
	if len(inv.Args) < 2 {
		return nil, dispatch.ErrUsage
	}

	tag, err := req.Store.EditTag(ctx, inv.Arg(0), inv.Tail(1), inv.Actor.ID)
	if err != nil {
		return nil, err
	}
	req.Logger.Info("Tag '%s' edited by %s", tag.Name, inv.Actor.ID)
	return dispatch.Reply("Tag edited."), nil
}

func (m *module) tagDelete(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	inv := req.Invocation
	if len(inv.Args) != 1 {
		return nil, dispatch.ErrUsage
	}

	deleted, err := req.Store.DeleteTag(ctx, inv.Arg(0))
	if err != nil {
		return nil, err
	}
	if deleted.Alias {
		req.Logger.Info("Alias '%s' of '%s' deleted by %s", deleted.Name, deleted.TagName, inv.Actor.ID)
		return dispatch.Reply("Alias deleted."), nil
	}

	req.Logger.Info("Tag '%s' deleted by %s with %d aliases", deleted.Name, inv.Actor.ID, len(deleted.Aliases))
	return dispatch.Reply("Tag deleted."), nil
}

func (m *module) tagAlias(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	inv := req.Invocation
	if len(inv.Args) < 2 {
		return nil, dispatch.ErrUsage
	}
	existing := inv.Arg(0)

	_, err := req.Store.AddAlias(ctx, inv.Tail(1), existing)
	if errors.Is(err, store.ErrAliasOfAlias) {
		return nil, dispatch.WithReply(err, fmt.Sprintf("`%s` is an alias; aliases must point at a tag.", existing))
	}
	if err != nil {
		return nil, err
	}
	return dispatch.Reply("Alias created."), nil
}

func (m *module) tagRename(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	inv := req.Invocation
	if len(inv.Args) < 2 {
		return nil, dispatch.ErrUsage
	}
	oldName := inv.Arg(0)

	tag, err := req.Store.RenameTag(ctx, oldName, inv.Tail(1))
	if errors.Is(err, store.ErrIsAlias) {
		return nil, dispatch.WithReply(err, fmt.Sprintf("`%s` is an alias; rename the tag it points to.", oldName))
	}
	if err != nil {
		return nil, err
	}
	req.Logger.Info("Tag '%s' renamed to '%s' by %s", oldName, tag.Name, inv.Actor.ID)
	return dispatch.Reply(fmt.Sprintf("Tag renamed; `%s` now points at `%s`.", oldName, tag.Name)), nil
}

func (m *module) tagRestrict(restricted bool) dispatch.HandlerFunc {
	return func(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
		name := req.Invocation.Tail(0)
		if name == "" {
			return nil, dispatch.ErrUsage
		}

		if _, err := req.Store.RestrictTag(ctx, name, restricted); err != nil {
			return nil, err
		}
		if restricted {
			return dispatch.Reply("Tag restricted."), nil
		}
		return dispatch.Reply("Tag unrestricted."), nil
	}
}
