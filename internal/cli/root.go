package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"apicatalog/internal/apiclient"
	"apicatalog/internal/store"
	"apicatalog/pkg/config"
)

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet
}

// App carries what every command needs: the resolved configuration and
// where to write.
type App struct {
	Config config.AppConfig
	Out    io.Writer
	Err    io.Writer
}

// NewApp fills the config defaults and writes to the process stdout and
// stderr.
func NewApp(cfg config.AppConfig) *App {
	return &App{Config: cfg.WithDefaults(), Out: os.Stdout, Err: os.Stderr}
}

func (a *App) client() *apiclient.Client {
	return apiclient.New(a.Config.Client.BaseURL, apiclient.WithProbeTimeout(a.Config.Client.ProbeTimeout()))
}

// catalog builds a store whose swallowed failures are printed and counted.
func (a *App) catalog() (*store.Catalog, *noticeLog) {
	n := &noticeLog{w: a.Err}
	return store.New(a.client(), store.WithNotifier(n)), n
}

// noticeLog prints notices and remembers whether any operation failed.
type noticeLog struct {
	mu     sync.Mutex
	w      io.Writer
	failed int
}

func (n *noticeLog) Notify(notice store.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if notice.Severity >= store.SeverityWarning {
		n.failed++
	}
	fmt.Fprintf(n.w, "%s: %s: %s\n", notice.Severity, notice.Title, notice.Message)
}

// err returns an error when a notice reported a failure of op.
func (n *noticeLog) err(op string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failed > 0 {
		return fmt.Errorf("%s failed", op)
	}
	return nil
}

// NewRootCommand creates the root command
func NewRootCommand(app *App) *Command {
	root := &Command{
		Name:        "apicatalog",
		Description: "apicatalog - REST endpoint catalogue CLI",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("apicatalog", flag.ContinueOnError),
	}

	root.Subcommands["domain"] = newDomainCommand(app)
	root.Subcommands["endpoint"] = newEndpointCommand(app)
	root.Subcommands["restapi"] = newRestApiCommand(app)
	root.Subcommands["explore"] = newExploreCommand(app)

	return root
}

// Execute dispatches args to the matching subcommand.
func (c *Command) Execute(w io.Writer, args []string) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		c.usage(w)
		return nil
	}
	if sub, ok := c.Subcommands[args[0]]; ok {
		if sub.Run != nil {
			return sub.Run(args[1:])
		}
		return sub.Execute(w, args[1:])
	}
	return fmt.Errorf("unknown %s command: %s", c.Name, args[0])
}

func (c *Command) usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: %s <command> [args]\n\n", c.Name)
	fmt.Fprintln(w, "Commands:")
	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-15s %s\n", name, c.Subcommands[name].Description)
	}
}

// group builds a command whose only job is to dispatch to subcommands.
func group(app *App, name, desc string, subs ...*Command) *Command {
	cmd := &Command{
		Name:        name,
		Description: desc,
		Subcommands: make(map[string]*Command, len(subs)),
	}
	for _, s := range subs {
		cmd.Subcommands[s.Name] = s
	}
	cmd.Run = func(args []string) error {
		return cmd.Execute(app.Out, args)
	}
	return cmd
}

func leaf(app *App, name, desc string) *Command {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(app.Err)
	return &Command{Name: name, Description: desc, Flags: fs}
}

// firstArg returns the single positional argument left after flag parsing.
func firstArg(fs *flag.FlagSet, what string) (string, error) {
	if fs.NArg() == 0 || fs.Arg(0) == "" {
		return "", fmt.Errorf("%s required", what)
	}
	return fs.Arg(0), nil
}
