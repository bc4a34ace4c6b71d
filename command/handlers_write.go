package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"launchpad/directory"
	"launchpad/models"
)

// statusLimit is the rune length of a team's current status summary.
const statusLimit = 100

func truncateStatus(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= statusLimit {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:statusLimit])) + "…"
}

func handleUpdate(ctx context.Context, d *Dispatcher, call Call) (Result, error) {
	content := call.Args[0]
	if content == "" {
		return invalid(call.Entry, "Tell me what you worked on."), nil
	}
	if !call.Actor.HasTeam() {
		return fail(ValidationFailure, "no team assigned: join a team before logging progress."), nil
	}

	u := &models.Update{
		TeamID:    call.Actor.TeamID,
		Content:   content,
		CreatedBy: call.Actor.ID,
		CreatedAt: d.now().UTC(),
	}
	if err := d.store.InsertUpdate(ctx, u); err != nil {
		return Result{}, fmt.Errorf("insert update: %w", err)
	}

	res := ok("Progress logged for your team.")
	res.Effects.UpdateIDs = []string{u.ID}
	res.Effects.Writes = 1

	status := &models.TeamStatus{
		TeamID:        call.Actor.TeamID,
		CurrentStatus: truncateStatus(content),
		UpdatedBy:     call.Actor.ID,
		UpdatedAt:     u.CreatedAt,
	}
	if err := d.store.UpsertTeamStatus(ctx, status); err != nil {
		d.logger.WithError(err).WithField("team", call.Actor.TeamID).Warn("Team status upsert failed after update insert")
		res.Warnings = append(res.Warnings, "Your update was saved, but the team's current status could not be refreshed.")
		return res, nil
	}
	res.Effects.Writes++
	return res, nil
}

func handleMessage(ctx context.Context, d *Dispatcher, call Call) (Result, error) {
	target, content := call.Args[0], call.Args[1]
	if target == "" || content == "" {
		return invalid(call.Entry, "Say who the message is for and what it says."), nil
	}

	msg := &models.Message{
		SenderID:   call.Actor.ID,
		SenderRole: call.Actor.Role,
		Content:    content,
		CreatedAt:  d.now().UTC(),
	}
	var recipient string
	if role, isRole := models.RoleFromPlural(target); isRole {
		msg.ReceiverRole = role
		recipient = "all " + role.Plural()
	} else {
		if !strings.HasPrefix(target, "@") {
			return invalid(call.Entry, fmt.Sprintf("%q is not a recipient. Use @name or a role such as mentors.", target)), nil
		}
		p, err := d.directory.Resolve(ctx, target)
		if errors.Is(err, directory.ErrNotFound) || errors.Is(err, directory.ErrAmbiguous) {
			return fail(NotFound, fmt.Sprintf("user not found: no single person matches %s.", target)), nil
		}
		if err != nil {
			return Result{}, err
		}
		id := p.ID
		msg.ReceiverID = &id
		msg.ReceiverRole = p.Role
		recipient = p.Name
	}

	if err := d.store.InsertMessages(ctx, []*models.Message{msg}); err != nil {
		return Result{}, fmt.Errorf("insert message: %w", err)
	}
	res := ok("Message sent to " + recipient + ".")
	res.Effects.MessageIDs = []string{msg.ID}
	res.Effects.Writes = 1
	return res, nil
}

func handleChat(ctx context.Context, d *Dispatcher, call Call) (Result, error) {
	content := call.Args[0]
	if content == "" {
		return invalid(call.Entry, "Your message is empty."), nil
	}
	if !call.Actor.HasTeam() {
		return fail(ValidationFailure, "no team assigned: team chat needs a team."), nil
	}

	team := call.Actor.TeamID
	msg := &models.Message{
		SenderID:     call.Actor.ID,
		SenderRole:   call.Actor.Role,
		ReceiverRole: models.RoleBuilder,
		TeamID:       &team,
		Content:      content,
		CreatedAt:    d.now().UTC(),
	}
	if err := d.store.InsertMessages(ctx, []*models.Message{msg}); err != nil {
		return Result{}, fmt.Errorf("insert chat message: %w", err)
	}
	res := ok("Posted to your team chat.")
	res.Effects.MessageIDs = []string{msg.ID}
	res.Effects.Writes = 1
	return res, nil
}

// broadcastRoles are the roles that get a role-wide row for --to=role.
var broadcastRoles = []models.Role{models.RoleBuilder, models.RoleMentor, models.RoleLead, models.RoleGuest}

// handleBroadcast writes one row per recipient. --to=role is the exception:
// it writes one undirected row per role, filtered at read time.
func handleBroadcast(ctx context.Context, d *Dispatcher, call Call) (Result, error) {
	scope, content := "all", call.Args[0]
	if strings.HasPrefix(content, "--to=") {
		fields := call.Command.Split(1)
		scope = strings.ToLower(strings.TrimPrefix(fields[0], "--to="))
		content = fields[1]
	}
	if content == "" {
		return invalid(call.Entry, "Your announcement is empty."), nil
	}

	now := d.now().UTC()
	var msgs []*models.Message
	newMsg := func() *models.Message {
		return &models.Message{
			SenderID:   call.Actor.ID,
			SenderRole: call.Actor.Role,
			Content:    content,
			CreatedAt:  now,
		}
	}

	if scope == "role" {
		for _, role := range broadcastRoles {
			m := newMsg()
			m.ReceiverRole = role
			msgs = append(msgs, m)
		}
	} else {
		actors, err := d.directory.Actors(ctx)
		if err != nil {
			return Result{}, err
		}
		var keep func(models.Profile) bool
		switch role, isRole := models.RoleFromPlural(scope); {
		case scope == "all":
			keep = func(models.Profile) bool { return true }
		case scope == "team":
			if !call.Actor.HasTeam() {
				return fail(ValidationFailure, "no team assigned: --to=team needs a team."), nil
			}
			keep = func(p models.Profile) bool { return p.TeamIDValue() == call.Actor.TeamID }
		case isRole:
			keep = func(p models.Profile) bool { return p.Role == role }
		default:
			return invalid(call.Entry, fmt.Sprintf("unknown broadcast scope %q.", scope)), nil
		}
		for _, p := range actors {
			if !keep(p) {
				continue
			}
			id := p.ID
			m := newMsg()
			m.ReceiverID = &id
			m.ReceiverRole = p.Role
			msgs = append(msgs, m)
		}
	}

	if len(msgs) == 0 {
		return fail(ValidationFailure, "Nobody is in that broadcast scope yet."), nil
	}
	if err := d.store.InsertMessages(ctx, msgs); err != nil {
		return Result{}, fmt.Errorf("insert broadcast: %w", err)
	}

	res := ok(fmt.Sprintf("Broadcast sent to %d recipients.", len(msgs)))
	if scope == "role" {
		res.Message = fmt.Sprintf("Broadcast posted to %d role channels.", len(msgs))
	}
	for _, m := range msgs {
		res.Effects.MessageIDs = append(res.Effects.MessageIDs, m.ID)
	}
	res.Effects.Writes = len(msgs)
	return res, nil
}

func handleAdvance(ctx context.Context, d *Dispatcher, call Call) (Result, error) {
	name := call.Args[0]
	if name == "" {
		return invalid(call.Entry, "Name the team to advance."), nil
	}
	team, res, err := d.findTeam(ctx, name)
	if err != nil || res != nil {
		return deref(res), err
	}

	next, has := team.NextStage()
	if !has {
		return fail(ValidationFailure, fmt.Sprintf("%s is already at the final stage (%s).", team.Name, team.Stage)), nil
	}
	if err := d.store.UpdateTeam(ctx, team.ID, map[string]interface{}{"stage": next}); err != nil {
		return Result{}, fmt.Errorf("advance team %s: %w", team.ID, err)
	}
	out := ok(fmt.Sprintf("%s moved from %s to %s.", team.Name, team.Stage, next))
	out.Effects.Writes = 1
	return out, nil
}
