package node

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/openfroyo/nodeutils/pkg/cmdref"
)

// ErrMissingArgument is returned when a template has more %s placeholders
// than arguments were supplied.
var ErrMissingArgument = errors.New("missing template argument")

// Get reads the current state of ref's feature from the node.
//
// The config_get command is run and its output is narrowed with the
// config_get_token and config_get_token_append patterns. Every pattern but
// the last selects the first matching line and descends into the block
// indented beneath it. The last pattern collects capture group 1 of each
// matching line, or the whole trimmed line when it has no groups. A nil
// result with a nil error means the state is absent on the node.
//
// String patterns are formatted with args before compilation; each %s takes
// the next argument, regexp-quoted. A string of the form /expr/flags is
// compiled like a regexp literal.
func Get(ctx context.Context, client Client, ref *cmdref.CmdRef, args ...string) ([]string, error) {
	command, ok := ref.ConfigGet()
	if !ok {
		return nil, fmt.Errorf("%s: get: %w", ref.Feature(), ErrUnsupported)
	}

	tokens, err := compileTokens(ref, args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ref.Feature(), err)
	}

	output, err := client.Show(ctx, command)
	if err != nil {
		return nil, fmt.Errorf("%s: get: %w", ref.Feature(), err)
	}

	return Extract(output, tokens), nil
}

// GetValue is Get narrowed to the first result. ok is false when the state
// is absent.
func GetValue(ctx context.Context, client Client, ref *cmdref.CmdRef, args ...string) (value string, ok bool, err error) {
	values, err := Get(ctx, client, ref, args...)
	if err != nil || len(values) == 0 {
		return "", false, err
	}
	return values[0], true, nil
}

// Set applies ref's config_set and config_set_append lines, formatted with
// args, in one configuration exchange.
func Set(ctx context.Context, client Client, ref *cmdref.CmdRef, args ...string) error {
	lines, err := SetCommands(ref, args...)
	if err != nil {
		return err
	}
	if err := client.Config(ctx, lines...); err != nil {
		return fmt.Errorf("%s: set: %w", ref.Feature(), err)
	}
	return nil
}

// SetCommands returns the configuration lines Set would send.
func SetCommands(ref *cmdref.CmdRef, args ...string) ([]string, error) {
	set, ok := ref.ConfigSet()
	appendSet, hasAppend := ref.ConfigSetAppend()
	if !ok && !hasAppend {
		return nil, fmt.Errorf("%s: set: %w", ref.Feature(), ErrUnsupported)
	}

	templates := append(append([]string(nil), set...), appendSet...)
	lines := make([]string, 0, len(templates))
	for _, tmpl := range templates {
		line, rest, err := expand(tmpl, args, nil)
		if err != nil {
			return nil, fmt.Errorf("%s: set %q: %w", ref.Feature(), tmpl, err)
		}
		args = rest
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// Extract applies tokens to output as described on Get. With no tokens it
// returns the non-empty trimmed lines.
func Extract(output string, tokens []*regexp.Regexp) []string {
	lines := splitLines(output)

	if len(tokens) == 0 {
		var out []string
		for _, l := range lines {
			if t := strings.TrimSpace(l); t != "" {
				out = append(out, t)
			}
		}
		return out
	}

	for _, re := range tokens[:len(tokens)-1] {
		idx := -1
		for i, l := range lines {
			if re.MatchString(strings.TrimSpace(l)) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil
		}
		lines = block(lines, idx)
	}

	last := tokens[len(tokens)-1]
	var out []string
	for _, l := range lines {
		line := strings.TrimSpace(l)
		m := last.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if len(m) > 1 {
			out = append(out, m[1])
		} else {
			out = append(out, line)
		}
	}
	return out
}

func compileTokens(ref *cmdref.CmdRef, args []string) ([]*regexp.Regexp, error) {
	tokens, _ := ref.ConfigGetToken()
	appendTokens, _ := ref.ConfigGetTokenAppend()
	all := append(append([]cmdref.Value(nil), tokens...), appendTokens...)

	res := make([]*regexp.Regexp, 0, len(all))
	for _, tok := range all {
		switch tok.Kind() {
		case cmdref.KindRegexp:
			res = append(res, tok.Regexp())
		case cmdref.KindString:
			pattern, rest, err := expand(tok.Str(), args, regexp.QuoteMeta)
			if err != nil {
				return nil, fmt.Errorf("token %q: %w", tok.Str(), err)
			}
			args = rest
			re, err := cmdref.ParseRegexpLiteral(pattern)
			if err != nil {
				return nil, fmt.Errorf("token %q: %w", tok.Str(), err)
			}
			res = append(res, re)
		default:
			return nil, fmt.Errorf("token %s: unexpected %s", tok, tok.Kind())
		}
	}
	return res, nil
}

// expand replaces each %s in tmpl with the next arg and %% with %. It
// returns the arguments left over.
func expand(tmpl string, args []string, quote func(string) string) (string, []string, error) {
	if !strings.Contains(tmpl, "%") {
		return tmpl, args, nil
	}

	var b strings.Builder
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		if c != '%' || i+1 == len(tmpl) {
			b.WriteByte(c)
			continue
		}
		switch tmpl[i+1] {
		case 's':
			if len(args) == 0 {
				return "", nil, ErrMissingArgument
			}
			arg := args[0]
			if quote != nil {
				arg = quote(arg)
			}
			b.WriteString(arg)
			args = args[1:]
			i++
		case '%':
			b.WriteByte('%')
			i++
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), args, nil
}

func splitLines(s string) []string {
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}

// block returns the lines after lines[idx] that are indented deeper than it.
func block(lines []string, idx int) []string {
	base := indent(lines[idx])
	var out []string
	for _, l := range lines[idx+1:] {
		if strings.TrimSpace(l) == "" {
			continue
		}
		if indent(l) <= base {
			break
		}
		out = append(out, l)
	}
	return out
}

func indent(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}
