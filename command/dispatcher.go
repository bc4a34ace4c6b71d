package command

import (
	"context"
	"fmt"
	"time"

	"launchpad/directory"
	"launchpad/metrics"
	"launchpad/oracle"
	"launchpad/permissions"
	"launchpad/store"
	"launchpad/utils"

	"github.com/sirupsen/logrus"
)

// Dispatcher resolves parsed input against the registry and runs handlers.
// It holds no per-dispatch state; concurrent Dispatch calls are independent.
type Dispatcher struct {
	registry  *Registry
	store     store.Store
	directory *directory.Directory
	oracle    oracle.Client
	logger    *logrus.Entry
	now       func() time.Time
}

func NewDispatcher(registry *Registry, st store.Store, dir *directory.Directory, orc oracle.Client, logger *logrus.Entry) *Dispatcher {
	return &Dispatcher{
		registry:  registry,
		store:     st,
		directory: dir,
		oracle:    orc,
		logger:    logger,
		now:       time.Now,
	}
}

func (d *Dispatcher) Registry() *Registry { return d.registry }

// Run parses raw and dispatches it.
func (d *Dispatcher) Run(ctx context.Context, raw string, actor Actor) Result {
	return d.Dispatch(ctx, Parse(raw), actor)
}

// Dispatch runs one parsed input as actor. Every path ends in a Result; a
// handler error or panic becomes a generic CollaboratorFailure.
func (d *Dispatcher) Dispatch(ctx context.Context, in ParsedInput, actor Actor) (res Result) {
	label := "freeform"
	if in.Kind == KindCommand {
		label = in.Command.Name
	}
	start := d.now()

	defer func() {
		if r := recover(); r != nil {
			d.report(fmt.Errorf("panic: %v", r), label, actor)
			res = generic(label)
		}
		if in.Kind == KindCommand && res.Command == "" {
			res.Command = in.Command.Name
		}
		outcome := "ok"
		if !res.Success {
			outcome = string(res.Kind)
		}
		metrics.CommandsTotal.WithLabelValues(metricLabel(d.registry, label), outcome).Inc()
		metrics.CommandDuration.WithLabelValues(metricLabel(d.registry, label)).Observe(d.now().Sub(start).Seconds())
	}()

	switch in.Kind {
	case KindEmpty:
		return Result{
			Kind:    ValidationFailure,
			Message: "Type a question, or /help to see what you can do.",
			Usage:   "/help",
		}
	case KindFreeform:
		return d.freeform(ctx, in.Text, actor)
	}

	entry, found := d.registry.Lookup(in.Command.Name)
	if !found {
		return Result{
			Kind:    ParseFailure,
			Message: fmt.Sprintf("unknown command /%s. Type /help to see available commands.", in.Command.Name),
			Usage:   "/help",
		}
	}
	if !entry.Allows(actor.Role) {
		d.logger.WithFields(logrus.Fields{
			"command": entry.Name,
			"actor":   actor.ID,
			"role":    actor.Role,
		}).Info("Command rejected")
		return Result{
			Command: entry.Name,
			Kind:    AuthorizationFailure,
			Message: fmt.Sprintf("insufficient permission: your role (%s) cannot use /%s.", displayRole(actor), entry.Name),
		}
	}

	call := Call{
		Actor:   actor,
		Command: in.Command,
		Args:    in.Command.Split(entry.Positional),
		Entry:   entry,
	}
	res, err := entry.Handler(ctx, d, call)
	if err != nil {
		d.report(err, entry.Name, actor)
		return generic(entry.Name)
	}
	res.Command = entry.Name
	return res
}

func (d *Dispatcher) freeform(ctx context.Context, text string, actor Actor) Result {
	if !permissions.Authorize(actor.Role, permissions.None) {
		return fail(AuthorizationFailure, "insufficient permission: your account has no role yet.")
	}
	ans, err := d.oracle.Answer(ctx, text, actor.Role, oracle.Context{TeamID: actor.TeamID, UserID: actor.ID})
	if err != nil {
		d.logger.WithError(err).WithField("actor", actor.ID).Warn("Oracle answer failed")
		return Result{
			Kind:      CollaboratorFailure,
			Message:   "The Oracle can't answer right now. Try again in a moment, or use /help to see commands.",
			Resources: oracle.CuratedFor(text),
		}
	}
	return Result{Success: true, Message: ans.Text, Resources: ans.Resources}
}

func (d *Dispatcher) report(err error, name string, actor Actor) {
	utils.LogError("command_failed", err, map[string]interface{}{
		"command": name,
		"actor":   actor.ID,
		"role":    string(actor.Role),
	})
}

func generic(name string) Result {
	return Result{
		Command: name,
		Kind:    CollaboratorFailure,
		Message: fmt.Sprintf("Something went wrong while running /%s. Please try again.", name),
	}
}

// metricLabel keeps label cardinality bounded: unknown names collapse to one value.
func metricLabel(r *Registry, name string) string {
	if name == "freeform" {
		return name
	}
	if e, ok := r.Lookup(name); ok {
		return e.Name
	}
	return "unknown"
}

func displayRole(a Actor) string {
	if a.Role == "" {
		return "none"
	}
	return string(a.Role)
}
