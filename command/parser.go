// Package command turns raw Oracle input into dispatched, permission-checked
// handler calls.
//
// Input is either a slash command ("/update shipped v1"), one of a few prose
// shortcuts that synthesize a command ("tell @alice: hi"), or anything else,
// which is forwarded to the Oracle as a free-form question.
package command

import (
	"regexp"
	"strings"

	"launchpad/models"
)

// Kind classifies parsed input.
type Kind int

const (
	KindEmpty Kind = iota
	KindCommand
	KindFreeform
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindFreeform:
		return "freeform"
	}
	return "empty"
}

// Command is one slash invocation. Args are the whitespace separated fields
// after the name. Rest is the same text with its internal whitespace intact.
type Command struct {
	Name string   `json:"name"`
	Args []string `json:"args"`
	Rest string   `json:"rest"`
	Raw  string   `json:"raw"`
	// Synthesized is set when the command came from a prose shortcut.
	Synthesized bool `json:"synthesized,omitempty"`
}

// ParsedInput is the result of Parse. Command is only meaningful for
// KindCommand and Text only for KindFreeform.
type ParsedInput struct {
	Kind    Kind
	Command Command
	Text    string
	Raw     string
}

// Split returns n leading fields followed by the remaining text as one
// free-text argument, always n+1 elements long. Missing fields are empty. One
// pair of matching surrounding quotes is stripped from the free text.
func (c Command) Split(n int) []string {
	out := make([]string, n+1)
	rest := strings.TrimSpace(c.Rest)
	for i := 0; i < n; i++ {
		if rest == "" {
			return out
		}
		end := strings.IndexFunc(rest, isSpace)
		if end < 0 {
			out[i] = rest
			rest = ""
			continue
		}
		out[i] = rest[:end]
		rest = strings.TrimSpace(rest[end:])
	}
	out[n] = unquote(rest)
	return out
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' || first == '\'') && first == last {
			return strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}

var (
	messagePattern   = regexp.MustCompile(`(?is)^(?:send|message|tell)\s+(@?[^\s:]+)\s*(?::|\s+that\s+)\s*(.+)$`)
	updatePattern    = regexp.MustCompile(`(?is)^(?:update|log|record)\s*:\s*(.+)$`)
	broadcastPattern = regexp.MustCompile(`(?is)^broadcast(?:\s+to\s+(all|team|role))?\s*:\s*(.+)$`)
)

// shortcut maps one prose pattern to the command it stands for. Shortcuts are
// tried in declaration order.
type shortcut struct {
	pattern    *regexp.Regexp
	synthesize func(m []string) (name, rest string)
}

var shortcuts = []shortcut{
	{messagePattern, func(m []string) (string, string) {
		target := m[1]
		if _, isRole := models.RoleFromPlural(target); !isRole && !strings.HasPrefix(target, "@") {
			target = "@" + target
		}
		return "message", target + " " + strings.TrimSpace(m[2])
	}},
	{updatePattern, func(m []string) (string, string) {
		return "update", strings.TrimSpace(m[1])
	}},
	{broadcastPattern, func(m []string) (string, string) {
		content := strings.TrimSpace(m[2])
		if m[1] == "" {
			return "broadcast", content
		}
		return "broadcast", "--to=" + strings.ToLower(m[1]) + " " + content
	}},
}

// Parse classifies raw input. It never fails: a slash command with an unknown
// or empty name still comes back as KindCommand so the dispatcher can report
// it uniformly.
func Parse(raw string) ParsedInput {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ParsedInput{Kind: KindEmpty, Raw: raw}
	}

	if strings.HasPrefix(trimmed, "/") {
		body := trimmed[1:]
		name, rest := body, ""
		if i := strings.IndexFunc(body, isSpace); i >= 0 {
			name, rest = body[:i], strings.TrimSpace(body[i:])
		}
		return ParsedInput{Kind: KindCommand, Raw: raw, Command: newCommand(strings.ToLower(name), rest, raw, false)}
	}

	for _, sc := range shortcuts {
		if m := sc.pattern.FindStringSubmatch(trimmed); m != nil {
			name, rest := sc.synthesize(m)
			return ParsedInput{Kind: KindCommand, Raw: raw, Command: newCommand(name, rest, raw, true)}
		}
	}

	return ParsedInput{Kind: KindFreeform, Text: trimmed, Raw: raw}
}

func newCommand(name, rest, raw string, synthesized bool) Command {
	return Command{
		Name:        name,
		Args:        strings.Fields(rest),
		Rest:        rest,
		Raw:         raw,
		Synthesized: synthesized,
	}
}
