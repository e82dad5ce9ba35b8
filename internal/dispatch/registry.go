package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mwantia/modbot/internal/policy"
)

type HandlerFunc func(ctx context.Context, req *Request) (*Result, error)

// TargetFunc resolves what an invocation acts on so the gate can inspect it.
type TargetFunc func(ctx context.Context, req *Request) (*policy.Target, error)

// Command is one entry of the static command table.
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	Category    string
	Hidden      bool

	Permission    policy.Permission
	RequiresStore bool
	SelfTarget    bool

	Target  TargetFunc
	Handler HandlerFunc
}

func (c *Command) Requirement() policy.Requirement {
	return policy.Requirement{
		Permission:    c.Permission,
		RequiresStore: c.RequiresStore,
		SelfTarget:    c.SelfTarget,
	}
}

// Registry maps exact command names, including aliases, to commands.
// It is built once and never modified afterwards.
type Registry struct {
	byName   map[string]*Command
	commands []*Command
}

func NewRegistry(commands ...Command) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]*Command),
	}

	for i := range commands {
		cmd := &commands[i]
		if cmd.Handler == nil {
			return nil, fmt.Errorf("command '%s' has no handler", cmd.Name)
		}

		cmd.Name = canonical(cmd.Name)
		if cmd.Name == "" {
			return nil, fmt.Errorf("command %d has no name", i)
		}

		for _, name := range append([]string{cmd.Name}, cmd.Aliases...) {
			name = canonical(name)
			if _, exists := r.byName[name]; exists {
				return nil, fmt.Errorf("command '%s' registered twice", name)
			}
			r.byName[name] = cmd
		}
		r.commands = append(r.commands, cmd)
	}

	sort.Slice(r.commands, func(i, j int) bool {
		return r.commands[i].Name < r.commands[j].Name
	})
	return r, nil
}

func (r *Registry) Lookup(name string) (*Command, bool) {
	cmd, ok := r.byName[canonical(name)]
	return cmd, ok
}

// Commands returns every registered command ordered by name.
func (r *Registry) Commands() []*Command {
	return r.commands
}

// Groups returns the first words of multi-word command names, e.g. "tags".
func (r *Registry) Groups() []string {
	seen := make(map[string]bool)
	var groups []string
	for name := range r.byName {
		group, _, found := strings.Cut(name, " ")
		if found && !seen[group] {
			seen[group] = true
			groups = append(groups, group)
		}
	}
	sort.Strings(groups)
	return groups
}

func canonical(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
