package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/roach88/lockstep/internal/logic"
)

// ParseCommandLine parses one line of the interactive command syntax,
// "<id> key=value ...", into a player command from sender. Values may be
// double-quoted when they contain spaces.
func ParseCommandLine(line string, sender logic.PlayerNumber) (logic.PlayerCommand, error) {
	fields, err := splitFields(line)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	args := make(map[string]string, len(fields)-1)
	for _, f := range fields[1:] {
		k, v, ok := strings.Cut(f, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("argument %q is not key=value", f)
		}
		if strings.HasPrefix(v, `"`) {
			if v, err = strconv.Unquote(v); err != nil {
				return nil, fmt.Errorf("argument %q: %w", k, err)
			}
		}
		args[k] = v
	}
	return logic.NewPlayerCommand(fields[0], 0, sender, args)
}

// splitFields splits on spaces outside double quotes.
func splitFields(line string) ([]string, error) {
	var (
		fields  []string
		cur     strings.Builder
		quoted  bool
		escaped bool
	)
	for _, r := range line {
		switch {
		case escaped:
			escaped = false
		case quoted && r == '\\':
			escaped = true
		case r == '"':
			quoted = !quoted
		case !quoted && (r == ' ' || r == '\t'):
			if cur.Len() > 0 {
				fields = append(fields, cur.String())
				cur.Reset()
			}
			continue
		}
		cur.WriteRune(r)
	}
	if quoted {
		return nil, fmt.Errorf("unterminated quote")
	}
	if cur.Len() > 0 {
		fields = append(fields, cur.String())
	}
	return fields, nil
}

// readCommands sends every non-blank, non-comment line of in as a player
// command until in is exhausted or ctx is done. Bad lines are logged and
// skipped.
func readCommands(ctx context.Context, in io.Reader, sender logic.PlayerNumber, send func(logic.PlayerCommand) error, log *slog.Logger) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cmd, err := ParseCommandLine(line, sender)
		if err != nil {
			log.Warn("ignoring command", "line", line, "error", err)
			continue
		}
		if err := send(cmd); err != nil {
			return err
		}
		log.Debug("command sent", "command", logic.FormatPlayerCommand(cmd))
	}
	return sc.Err()
}
