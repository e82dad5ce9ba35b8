package event

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// quoted arguments keep their spaces: name "some text"
var reArg = regexp.MustCompile(`"([^"]*)"|(\S+)`)

// SplitArgs tokenizes text on whitespace, honouring double quotes.
func SplitArgs(text string) []string {
	args, _ := splitArgs(text)
	return args
}

func splitArgs(text string) ([]string, [][2]int) {
	matches := reArg.FindAllStringSubmatchIndex(text, -1)
	args := make([]string, 0, len(matches))
	spans := make([][2]int, 0, len(matches))
	for _, m := range matches {
		if m[2] >= 0 {
			args = append(args, text[m[2]:m[3]])
		} else {
			args = append(args, text[m[4]:m[5]])
		}
		spans = append(spans, [2]int{m[0], m[1]})
	}
	return args, spans
}

// Normalizer turns gateway events into invocations.
type Normalizer struct {
	// Prefix marks a chat message as a command, e.g. "?".
	Prefix string
	// Groups names commands that take a subcommand, e.g. "tags" for "tags create".
	Groups map[string]bool
	// Now is replaced in tests.
	Now func() time.Time
}

func NewNormalizer(prefix string, groups ...string) *Normalizer {
	n := &Normalizer{
		Prefix: prefix,
		Groups: make(map[string]bool, len(groups)),
		Now:    time.Now,
	}
	for _, g := range groups {
		n.Groups[strings.ToLower(g)] = true
	}
	return n
}

// Normalize returns the invocation an event carries, or false when the event
// is not a command (reactions, bot messages, chatter without the prefix).
func (n *Normalizer) Normalize(ev Event) (*Invocation, bool) {
	if ev.Author.Bot || ev.Author.ID == "" {
		return nil, false
	}

	var raw string
	var tokens []string
	var spans [][2]int

	switch ev.Kind {
	case KindMessage:
		content := strings.TrimSpace(ev.Content)
		if n.Prefix == "" || !strings.HasPrefix(content, n.Prefix) {
			return nil, false
		}
		raw = strings.TrimPrefix(content, n.Prefix)
		tokens, spans = splitArgs(raw)
	case KindInteraction:
		if strings.TrimSpace(ev.Command) == "" {
			return nil, false
		}
		raw, spans = joinOptions(ev.Command, ev.Options)
		tokens = append(strings.Fields(ev.Command), ev.Options...)
	default:
		return nil, false
	}

	if len(tokens) == 0 {
		return nil, false
	}

	command, consumed := n.command(ev, tokens)

	now := ev.Timestamp
	if now.IsZero() {
		now = n.Now()
	}

	return &Invocation{
		ID: uuid.NewString(),
		Actor: Actor{
			ID:    ev.Author.ID,
			Name:  ev.Author.Name,
			Roles: ev.Author.Roles,
		},
		Origin: Origin{
			GuildID:   ev.GuildID,
			ChannelID: ev.ChannelID,
			MessageID: ev.MessageID,
		},
		Command:     command,
		Args:        tokens[consumed:],
		Trigger:     ev.Kind,
		Attachments: ev.Attachments,
		ReceivedAt:  now,
		raw:         raw,
		spans:       spans[consumed:],
	}, true
}

// command picks the registry name out of the leading tokens and reports how many it used.
func (n *Normalizer) command(ev Event, tokens []string) (string, int) {
	if ev.Kind == KindInteraction {
		fields := strings.Fields(ev.Command)
		return strings.ToLower(strings.Join(fields, " ")), len(fields)
	}

	command := strings.ToLower(tokens[0])
	if n.Groups[command] && len(tokens) > 1 {
		return command + " " + strings.ToLower(tokens[1]), 2
	}
	return command, 1
}

// joinOptions lays interaction options out as if they had been typed, so Tail
// behaves the same for both triggers.
func joinOptions(command string, options []string) (string, [][2]int) {
	var b strings.Builder
	var spans [][2]int
	for _, field := range strings.Fields(command) {
		start := b.Len()
		b.WriteString(field)
		spans = append(spans, [2]int{start, b.Len()})
		b.WriteByte(' ')
	}
	for _, opt := range options {
		start := b.Len()
		b.WriteString(opt)
		spans = append(spans, [2]int{start, b.Len()})
		b.WriteByte(' ')
	}
	return b.String(), spans
}
