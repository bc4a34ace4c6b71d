package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"launchpad/analysis"
	"launchpad/directory"
	"launchpad/models"
	"launchpad/oracle"
	"launchpad/permissions"
	"launchpad/store"
	"launchpad/utils"
)

const searchLimit = 5

func deref(r *Result) Result {
	if r == nil {
		return Result{}
	}
	return *r
}

// findTeam resolves a team by name the way people are resolved: one
// case-insensitive exact match, else one substring match. A non-nil Result
// means the lookup ended in a user-facing failure.
func (d *Dispatcher) findTeam(ctx context.Context, name string) (models.Team, *Result, error) {
	teams, err := d.store.ListTeams(ctx)
	if err != nil {
		return models.Team{}, nil, fmt.Errorf("list teams: %w", err)
	}
	needle := strings.ToLower(strings.TrimSpace(name))
	var exact, partial []models.Team
	for _, t := range teams {
		hay := strings.ToLower(t.Name)
		switch {
		case hay == needle || t.ID == name:
			exact = append(exact, t)
		case strings.Contains(hay, needle):
			partial = append(partial, t)
		}
	}
	switch {
	case len(exact) == 1:
		return exact[0], nil, nil
	case len(exact) == 0 && len(partial) == 1:
		return partial[0], nil, nil
	}
	r := fail(NotFound, fmt.Sprintf("team not found: no single team matches %q.", name))
	return models.Team{}, &r, nil
}

// ownOrNamedTeam picks the actor's team when name is empty and enforces
// viewAllTeams for anyone else's team.
func (d *Dispatcher) ownOrNamedTeam(ctx context.Context, actor Actor, name string) (models.Team, *Result, error) {
	if name == "" {
		if !actor.HasTeam() {
			r := fail(ValidationFailure, "no team assigned: name a team to look at.")
			return models.Team{}, &r, nil
		}
		team, err := d.store.GetTeam(ctx, actor.TeamID)
		if errors.Is(err, store.ErrNotFound) {
			r := fail(NotFound, "team not found: your team no longer exists.")
			return models.Team{}, &r, nil
		}
		return team, nil, err
	}

	team, res, err := d.findTeam(ctx, name)
	if err != nil || res != nil {
		return team, res, err
	}
	if team.ID != actor.TeamID && !permissions.Authorize(actor.Role, permissions.ViewAllTeams) {
		r := fail(AuthorizationFailure, "insufficient permission: you can only view your own team.")
		return models.Team{}, &r, nil
	}
	return team, nil, nil
}

func stageLine(t models.Team) string {
	return fmt.Sprintf("stage %s (%d/%d)", t.Stage, models.StageIndex(t.Stage)+1, len(models.Stages))
}

func (d *Dispatcher) statusLine(ctx context.Context, teamID string) (string, error) {
	st, err := d.store.GetTeamStatus(ctx, teamID)
	if errors.Is(err, store.ErrNotFound) {
		return "No status posted yet.", nil
	}
	if err != nil {
		return "", fmt.Errorf("load team status: %w", err)
	}
	return fmt.Sprintf("Current status: %s (updated %s)", st.CurrentStatus, utils.FormatAge(d.now().Sub(st.UpdatedAt))), nil
}

func handleHelp(ctx context.Context, d *Dispatcher, call Call) (Result, error) {
	role := call.Actor.Role
	if name := strings.TrimPrefix(strings.ToLower(call.Args[0]), "/"); name != "" {
		e, found := d.registry.Lookup(name)
		if !found {
			return Result{Kind: ParseFailure, Message: fmt.Sprintf("unknown command /%s.", name), Usage: call.Entry.Usage}, nil
		}
		if !e.Allows(role) {
			return fail(AuthorizationFailure, fmt.Sprintf("insufficient permission: /%s is not available to your role.", e.Name)), nil
		}
		res := ok(fmt.Sprintf("%s\n%s", e.Usage, e.Description))
		res.Usage = e.Usage
		return res, nil
	}

	visible := d.registry.Visible(role)
	var b strings.Builder
	fmt.Fprintf(&b, "Commands available to you as %s:", displayRole(call.Actor))
	for _, e := range visible {
		fmt.Fprintf(&b, "\n%s - %s", e.Usage, e.Description)
	}
	b.WriteString("\nYou can also just ask me a question.")
	return ok(b.String()), nil
}

func handleStatus(ctx context.Context, d *Dispatcher, call Call) (Result, error) {
	target := call.Args[0]
	actor := call.Actor

	if strings.HasPrefix(target, "@") {
		p, err := d.directory.Resolve(ctx, target)
		if errors.Is(err, directory.ErrNotFound) || errors.Is(err, directory.ErrAmbiguous) {
			return fail(NotFound, fmt.Sprintf("user not found: no single person matches %s.", target)), nil
		}
		if err != nil {
			return Result{}, err
		}
		lines := []string{fmt.Sprintf("%s is a %s.", p.Name, p.Role)}
		if tid := p.TeamIDValue(); tid != "" {
			team, err := d.store.GetTeam(ctx, tid)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return Result{}, fmt.Errorf("load team %s: %w", tid, err)
			}
			if err == nil {
				lines = append(lines, fmt.Sprintf("Team: %s, %s.", team.Name, stageLine(team)))
				if tid == actor.TeamID || permissions.Authorize(actor.Role, permissions.ViewAllTeams) {
					line, err := d.statusLine(ctx, tid)
					if err != nil {
						return Result{}, err
					}
					lines = append(lines, line)
				}
			}
		}
		return ok(strings.Join(lines, "\n")), nil
	}

	if target != "" {
		team, res, err := d.ownOrNamedTeam(ctx, actor, target)
		if err != nil || res != nil {
			return deref(res), err
		}
		line, err := d.statusLine(ctx, team.ID)
		if err != nil {
			return Result{}, err
		}
		return ok(fmt.Sprintf("%s: %s, %d members.\n%s", team.Name, stageLine(team), len(team.Members), line)), nil
	}

	lines := []string{fmt.Sprintf("You are %s (%s).", actor.Name, displayRole(actor))}
	if actor.HasTeam() {
		team, err := d.store.GetTeam(ctx, actor.TeamID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			lines = append(lines, "Your team could not be found.")
		case err != nil:
			return Result{}, fmt.Errorf("load team %s: %w", actor.TeamID, err)
		default:
			line, err := d.statusLine(ctx, team.ID)
			if err != nil {
				return Result{}, err
			}
			lines = append(lines, fmt.Sprintf("Team: %s, %s.", team.Name, stageLine(team)), line)
		}
	} else {
		lines = append(lines, "You are not on a team yet.")
	}

	unread, err := d.store.ListMessages(ctx, actor.Inbox(true))
	if err != nil {
		return Result{}, fmt.Errorf("count unread messages: %w", err)
	}
	lines = append(lines, fmt.Sprintf("Unread messages: %d.", len(unread)))
	return ok(strings.Join(lines, "\n")), nil
}

func handleProgress(ctx context.Context, d *Dispatcher, call Call) (Result, error) {
	team, res, err := d.ownOrNamedTeam(ctx, call.Actor, call.Args[0])
	if err != nil || res != nil {
		return deref(res), err
	}

	now := d.now()
	recent, err := d.store.ListUpdates(ctx, store.UpdateFilter{TeamID: team.ID, Since: now.Add(-analysis.RecentWindow)})
	if err != nil {
		return Result{}, fmt.Errorf("load updates: %w", err)
	}
	line, err := d.statusLine(ctx, team.ID)
	if err != nil {
		return Result{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s is at %s.\n", team.Name, stageLine(team))
	if next, has := team.NextStage(); has {
		fmt.Fprintf(&b, "Next milestone: %s.\n", next)
	} else {
		b.WriteString("Final stage reached.\n")
	}
	fmt.Fprintf(&b, "%d updates in the last 14 days.\n%s", len(recent), line)
	for i, u := range recent {
		if i == 3 {
			break
		}
		fmt.Fprintf(&b, "\n- %s (%s)", u.Content, utils.FormatAge(now.Sub(u.CreatedAt)))
	}
	return ok(b.String()), nil
}

func formatMatches(header string, matches []directory.Match) string {
	var b strings.Builder
	b.WriteString(header)
	for _, m := range matches {
		fmt.Fprintf(&b, "\n- %s (%s)", m.Profile.Name, m.Profile.Role)
		if len(m.Matched) > 0 {
			fmt.Fprintf(&b, ": %s", strings.Join(m.Matched, ", "))
		}
	}
	return b.String()
}

func handleFind(ctx context.Context, d *Dispatcher, call Call) (Result, error) {
	query := call.Args[0]
	if query == "" {
		return invalid(call.Entry, "What should I look for?"), nil
	}
	actors, err := d.directory.Actors(ctx)
	if err != nil {
		return Result{}, err
	}
	matches := directory.Find(actors, query, searchLimit)
	if len(matches) == 0 {
		return ok(fmt.Sprintf("No one matches %q.", query)), nil
	}
	return ok(formatMatches(fmt.Sprintf("Found %d matching %q:", len(matches), query), matches)), nil
}

func handleConnect(ctx context.Context, d *Dispatcher, call Call) (Result, error) {
	query := call.Args[0]
	if query == "" {
		return invalid(call.Entry, "Which skills are you looking for?"), nil
	}
	actors, err := d.directory.Actors(ctx)
	if err != nil {
		return Result{}, err
	}
	matches := directory.Connect(actors, query, call.Actor.ID, searchLimit)
	if len(matches) == 0 {
		return ok(fmt.Sprintf("Nobody lists skills matching %q yet.", query)), nil
	}
	return ok(formatMatches("People you could connect with:", matches)), nil
}

func handleResources(ctx context.Context, d *Dispatcher, call Call) (Result, error) {
	topic := call.Args[0]
	if topic == "" {
		return invalid(call.Entry, "Which topic do you want resources for?"), nil
	}
	query := "Recommend learning resources about: " + topic
	ans, err := d.oracle.Answer(ctx, query, call.Actor.Role, oracle.Context{TeamID: call.Actor.TeamID, UserID: call.Actor.ID})
	if err != nil {
		d.logger.WithError(err).WithField("topic", topic).Warn("Oracle resources lookup failed, serving curated list")
		res := ok(fmt.Sprintf("Here are curated resources for %q.", topic))
		res.Resources = oracle.CuratedFor(topic)
		res.Warnings = []string{"The Oracle is unavailable, so these come from the curated list."}
		return res, nil
	}
	res := ok(ans.Text)
	res.Resources = ans.Resources
	return res, nil
}

func handleAnalyze(ctx context.Context, d *Dispatcher, call Call) (Result, error) {
	target := call.Args[0]
	now := d.now()

	if strings.EqualFold(target, "overall") || (target == "" && !call.Actor.HasTeam()) {
		reports, err := analysis.Overall(ctx, d.store, now)
		if err != nil {
			return Result{}, err
		}
		if len(reports) == 0 {
			return ok("There are no teams to analyze yet."), nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Program health: average %d/100 across %d teams.", analysis.Average(reports), len(reports))
		for _, r := range reports {
			fmt.Fprintf(&b, "\n- %s: %d (%s)", r.TeamName, r.Score, r.Label)
		}
		return ok(b.String()), nil
	}

	team, res, err := d.ownOrNamedTeam(ctx, call.Actor, target)
	if err != nil || res != nil {
		return deref(res), err
	}
	r, err := analysis.TeamReport(ctx, d.store, team, now)
	if err != nil {
		return Result{}, err
	}
	last := "no updates yet"
	if r.DaysSinceUpdate >= 0 {
		last = fmt.Sprintf("last update %.0f days ago", r.DaysSinceUpdate)
	}
	return ok(fmt.Sprintf("%s health: %d/100 (%s). %s, %d updates in 14 days, %d members.",
		r.TeamName, r.Score, r.Label, capitalize(last), r.RecentUpdates, r.MemberCount)), nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
