package command

import (
	"context"
	"fmt"

	"launchpad/models"
	"launchpad/permissions"
)

// Call is what a handler receives: the actor, the parsed command and its
// arguments split per the entry's Positional count.
type Call struct {
	Actor   Actor
	Command Command
	Args    []string
	Entry   Entry
}

// Handler runs one command. Expected failures come back as a Result with
// Success false; a returned error means a collaborator failed.
type Handler func(ctx context.Context, d *Dispatcher, call Call) (Result, error)

// Entry describes one command in the registry.
type Entry struct {
	Name        string
	Aliases     []string
	Capability  permissions.Capability
	Roles       []models.Role // optional restriction on top of Capability
	Usage       string
	Description string
	// Positional is the number of leading fields split off before the free
	// text argument.
	Positional int
	Handler    Handler
}

// Allows reports whether role may run the command.
func (e Entry) Allows(role models.Role) bool {
	if !permissions.Authorize(role, e.Capability) {
		return false
	}
	if len(e.Roles) == 0 {
		return true
	}
	for _, r := range e.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Registry is the immutable command table. It is built once and shared by
// every dispatch.
type Registry struct {
	entries []Entry
	index   map[string]int
}

// NewRegistry indexes entries by name and alias. Duplicate names are an error.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{index: make(map[string]int)}
	for _, e := range entries {
		if e.Name == "" || e.Handler == nil {
			return nil, fmt.Errorf("command entry %q is incomplete", e.Name)
		}
		pos := len(r.entries)
		for _, key := range append([]string{e.Name}, e.Aliases...) {
			if _, dup := r.index[key]; dup {
				return nil, fmt.Errorf("command %q registered twice", key)
			}
			r.index[key] = pos
		}
		r.entries = append(r.entries, e)
	}
	return r, nil
}

// Lookup finds an entry by name or alias.
func (r *Registry) Lookup(name string) (Entry, bool) {
	i, ok := r.index[name]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i], true
}

// Entries returns every entry in registration order.
func (r *Registry) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Visible returns the entries role may run, in registration order.
func (r *Registry) Visible(role models.Role) []Entry {
	var out []Entry
	for _, e := range r.entries {
		if e.Allows(role) {
			out = append(out, e)
		}
	}
	return out
}

// Builtins is the command table served by the Oracle.
func Builtins() *Registry {
	r, err := NewRegistry(
		Entry{
			Name: "help", Aliases: []string{"?", "h"},
			Capability:  permissions.None,
			Usage:       "/help [command]",
			Description: "List the commands you can use, or show how to use one",
			Handler:     handleHelp,
		},
		Entry{
			Name:        "status",
			Capability:  permissions.ViewTeamData,
			Usage:       "/status [@user|team]",
			Description: "Show your status, a teammate's, or a team's",
			Handler:     handleStatus,
		},
		Entry{
			Name:        "update",
			Capability:  permissions.EditOwnProgress,
			Usage:       "/update <what you did>",
			Description: "Log progress for your team",
			Handler:     handleUpdate,
		},
		Entry{
			Name: "message", Aliases: []string{"msg", "dm"},
			Capability:  permissions.SendMessages,
			Usage:       "/message <@user|builders|mentors|leads|guests> <text>",
			Description: "Message one person or everyone with a role",
			Positional:  1,
			Handler:     handleMessage,
		},
		Entry{
			Name:        "chat",
			Capability:  permissions.SendMessages,
			Usage:       "/chat <text>",
			Description: "Post to your team chat",
			Handler:     handleChat,
		},
		Entry{
			Name:        "find",
			Capability:  permissions.None,
			Usage:       "/find <name, skill or keyword>",
			Description: "Search the program directory",
			Handler:     handleFind,
		},
		Entry{
			Name:        "connect",
			Capability:  permissions.None,
			Usage:       "/connect <skills>",
			Description: "Find people whose skills overlap what you need",
			Handler:     handleConnect,
		},
		Entry{
			Name:        "resources",
			Capability:  permissions.None,
			Usage:       "/resources <topic>",
			Description: "Get learning resources on a topic",
			Handler:     handleResources,
		},
		Entry{
			Name:        "progress",
			Capability:  permissions.ViewTeamData,
			Usage:       "/progress [team]",
			Description: "Show a team's stage and recent updates",
			Handler:     handleProgress,
		},
		Entry{
			Name:        "analyze",
			Capability:  permissions.RunAnalysis,
			Roles:       []models.Role{models.RoleMentor, models.RoleLead},
			Usage:       "/analyze [team|overall]",
			Description: "Compute team health scores",
			Handler:     handleAnalyze,
		},
		Entry{
			Name:        "broadcast",
			Capability:  permissions.SendBroadcasts,
			Roles:       []models.Role{models.RoleLead},
			Usage:       "/broadcast [--to=all|team|role|builders|mentors|leads|guests] <text>",
			Description: "Send an announcement to every recipient in scope",
			Handler:     handleBroadcast,
		},
		Entry{
			Name:        "advance",
			Capability:  permissions.EditAnyTeam,
			Roles:       []models.Role{models.RoleLead},
			Usage:       "/advance <team>",
			Description: "Move a team to its next stage",
			Handler:     handleAdvance,
		},
	)
	if err != nil {
		panic(err)
	}
	return r
}
