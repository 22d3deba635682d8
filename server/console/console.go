// Package console implements the operator console: a
// status/save/players/kick/stop command line, interactive with
// tab-completion when attached to a terminal, and line-buffered when
// fed from a script or test.
package console

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	prompt "github.com/c-bata/go-prompt"

	"github.com/ironfoundry/forge/server"
)

const (
	defaultPromptPrefix = "> "
	maxHistoryEntries   = 128
)

var commandNames = []string{"status", "save", "players", "kick", "stop"}

// Console reads commands from an io.Reader (defaulting to os.Stdin) and
// executes them against the bound Server.
type Console struct {
	srv     *server.Server
	log     *slog.Logger
	reader  io.Reader
	history []string

	// stop is closed once the "stop" command runs, signalling the caller
	// (main) to begin graceful shutdown.
	stop chan struct{}
}

// New returns a Console bound to srv. The console reads from os.Stdin by
// default.
func New(srv *server.Server, log *slog.Logger) *Console {
	if log == nil {
		log = slog.Default()
	}
	return &Console{srv: srv, log: log, reader: os.Stdin, stop: make(chan struct{})}
}

// WithReader sets a custom reader for the console input, enabling testing
// the console without relying on os.Stdin.
func (c *Console) WithReader(r io.Reader) *Console {
	if r != nil {
		c.reader = r
	}
	return c
}

// Stopped is closed once the "stop" command has been executed.
func (c *Console) Stopped() <-chan struct{} { return c.stop }

// Run starts consuming commands. It blocks until ctx is cancelled, "stop"
// is entered, or the underlying reader reaches EOF.
func (c *Console) Run(ctx context.Context) {
	if c.reader != os.Stdin {
		c.runScanner(ctx)
		return
	}
	c.runInteractive(ctx)
}

func (c *Console) runScanner(ctx context.Context) {
	scanner := bufio.NewScanner(c.reader)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				c.log.Error("console input error", "error", err)
			}
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if c.execute(line) {
			return
		}
	}
}

func (c *Console) runInteractive(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := prompt.Input(defaultPromptPrefix, c.complete,
			prompt.OptionTitle("Forge Console"),
			prompt.OptionHistory(c.history),
			prompt.OptionPrefix(defaultPromptPrefix),
			prompt.OptionCompletionOnDown(),
			prompt.OptionMaxSuggestion(12),
		)

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if c.execute(line) {
			return
		}
	}
}

// execute runs one command line, returning true if it was "stop" (the
// caller should stop reading further input).
func (c *Console) execute(line string) bool {
	c.history = append(c.history, line)
	if len(c.history) > maxHistoryEntries {
		c.history = c.history[len(c.history)-maxHistoryEntries:]
	}

	fields := strings.Fields(line)
	name := strings.ToLower(fields[0])
	args := fields[1:]

	switch name {
	case "status":
		st := c.srv.Status()
		c.log.Info("status", "tick", st.Tick, "players", st.Players, "chunks", st.LoadedChunks, "entities", st.LoadedEntities)
	case "save":
		c.srv.Save()
		c.log.Info("world saved")
	case "players":
		names := c.srv.Players()
		if len(names) == 0 {
			c.log.Info("no players online")
			break
		}
		c.log.Info("players online", "count", len(names), "names", strings.Join(names, ", "))
	case "kick":
		if len(args) == 0 {
			c.log.Error("usage: kick <name>")
			break
		}
		if !c.srv.Kick(strings.Join(args, " ")) {
			c.log.Warn("no such player online", "name", strings.Join(args, " "))
		}
	case "stop":
		close(c.stop)
		return true
	default:
		c.log.Error("unknown command", "command", name)
	}
	return false
}

func (c *Console) complete(doc prompt.Document) []prompt.Suggest {
	word := doc.GetWordBeforeCursor()
	if strings.Contains(doc.TextBeforeCursor(), " ") {
		return c.playerNameSuggestions(word)
	}
	suggestions := make([]prompt.Suggest, 0, len(commandNames))
	for _, name := range commandNames {
		suggestions = append(suggestions, prompt.Suggest{Text: name})
	}
	sort.Slice(suggestions, func(i, j int) bool { return suggestions[i].Text < suggestions[j].Text })
	return prompt.FilterHasPrefix(suggestions, word, true)
}

func (c *Console) playerNameSuggestions(word string) []prompt.Suggest {
	names := c.srv.Players()
	suggestions := make([]prompt.Suggest, 0, len(names))
	for _, name := range names {
		suggestions = append(suggestions, prompt.Suggest{Text: name})
	}
	sort.Slice(suggestions, func(i, j int) bool { return suggestions[i].Text < suggestions[j].Text })
	return prompt.FilterHasPrefix(suggestions, word, true)
}
