package handlers

import (
	"context"

	"github.com/mwantia/modbot/internal/dispatch"
	"github.com/mwantia/modbot/internal/policy"
	"github.com/mwantia/modbot/internal/sink"
)

func (m *module) roleCommands() []dispatch.Command {
	return []dispatch.Command{
		{
			Name:        "role add",
			Description: "Gives yourself the opt-in role.",
			Usage:       "role add [@member]",
			Category:    "Roles",
			SelfTarget:  true,
			Target:      memberTarget,
			Handler:     m.roleChange(true),
		},
		{
			Name:        "role remove",
			Description: "Removes the opt-in role from yourself.",
			Usage:       "role remove [@member]",
			Category:    "Roles",
			SelfTarget:  true,
			Target:      memberTarget,
			Handler:     m.roleChange(false),
		},
	}
}

// memberTarget is the mentioned member, or the actor when nobody is mentioned.
func memberTarget(_ context.Context, req *dispatch.Request) (*policy.Target, error) {
	inv := req.Invocation
	switch len(inv.Args) {
	case 0:
		return &policy.Target{MemberID: inv.Actor.ID}, nil
	case 1:
		member, ok := parseMember(inv.Arg(0))
		if !ok {
			return nil, dispatch.ErrUsage
		}
		return &policy.Target{MemberID: member}, nil
	default:
		return nil, dispatch.ErrUsage
	}
}

func (m *module) roleChange(add bool) dispatch.HandlerFunc {
	return func(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
		if m.opts.OptInRoleID == "" {
			return dispatch.Reply("No opt-in role is configured."), nil
		}

		inv := req.Invocation
		if add {
			action := sink.AddRole(inv.Origin.GuildID, inv.Actor.ID, m.opts.OptInRoleID)
			return dispatch.ReplyWithActions("Role added.", action), nil
		}
		action := sink.RemoveRole(inv.Origin.GuildID, inv.Actor.ID, m.opts.OptInRoleID)
		return dispatch.ReplyWithActions("Role removed.", action), nil
	}
}
