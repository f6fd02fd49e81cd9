// Command starhunt is the player and admin client. It keeps its session in
// a local file so a restart resumes where the player left off.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"

	"github.com/playperu/starhunt/internal/client"
	"github.com/playperu/starhunt/internal/config"
	"github.com/playperu/starhunt/internal/feed"
	"github.com/playperu/starhunt/internal/session"
	"github.com/playperu/starhunt/internal/starhunt"
)

var errUsage = errors.New("usage")

type app struct {
	cfg     *config.Client
	client  *client.Client
	out     io.Writer
	errOut  io.Writer
	verbose bool
	closers []func() error
}

type command struct {
	args  string
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"register":        {"-name NAME -pin PIN -confirm PIN", "create a team", cmdRegister},
	"login":           {"-name NAME -pin PIN", "log in as a team", cmdLogin},
	"admin-login":     {"-pin PIN", "log in to the admin console", cmdAdminLogin},
	"logout":          {"", "end the session", cmdLogout},
	"forgot-password": {"-name NAME [-confirm]", "check or issue the one-time warning", cmdForgotPassword},
	"state":           {"[-refresh]", "show the session and section gates", cmdState},
	"section":         {"N", "enter a section and list its riddles", cmdSection},
	"back":            {"", "return to section selection", cmdBack},
	"answer":          {"SECTION INDEX ANSWER", "submit an answer", cmdAnswer},
	"pointing":        {"SUBJECT", "request telescope verification of a solved star", cmdPointing},
	"watch":           {"", "follow live updates until interrupted", cmdWatch},
	"requests":        {"[-status STATUS]", "list verification requests (admin)", cmdRequests},
	"decide":          {"ID approve|reject", "decide a pending request (admin)", cmdDecide},
	"teams":           {"", "show the leaderboard (admin)", cmdTeams},
	"config":          {"[-sections12 BOOL] [-section3 BOOL]", "show or set the unlock switches", cmdConfig},
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stderr)
		return errUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		printUsage(stderr)
		return errUsage
	}

	cfg, err := config.LoadClient()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a := &app{cfg: cfg, out: stdout, errOut: stderr}
	defer a.close()
	return cmd.run(ctx, a, args[1:])
}

// flags returns a flag set carrying the options every command accepts.
func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("starhunt "+name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	fs.StringVar(&a.cfg.Server, "server", a.cfg.Server, "server base URL")
	fs.StringVar(&a.cfg.StatePath, "state", a.cfg.StatePath, "session file")
	fs.BoolVar(&a.verbose, "v", false, "debug logging")
	return fs
}

// parse parses args, checks the positional count and opens the client.
func (a *app) parse(ctx context.Context, fs *flag.FlagSet, args []string, positional int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != positional {
		fmt.Fprintf(a.errOut, "expected %d argument(s), got %d\n", positional, fs.NArg())
		fs.Usage()
		return nil, errUsage
	}

	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: level}))

	sess, err := session.Open(ctx, a.cfg.StatePath)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, sess.Close)
	a.client = client.New(a.cfg.Server, sess, logger, client.Options{Timeout: a.cfg.Timeout})
	return fs.Args(), nil
}

func (a *app) close() {
	for _, c := range a.closers {
		c()
	}
}

func printUsage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "usage: starhunt COMMAND [flags] [args]")
	fmt.Fprintln(w)
	for _, name := range names {
		c := commands[name]
		fmt.Fprintf(w, "  %-16s %-36s %s\n", name, c.args, c.usage)
	}
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := a.flags("register")
	name := fs.String("name", "", "team name")
	pin := fs.String("pin", "", "team PIN")
	confirm := fs.String("confirm", "", "PIN again")
	if _, err := a.parse(ctx, fs, args, 0); err != nil {
		return err
	}
	p, err := a.client.Register(ctx, *name, *pin, *confirm)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "team %q registered, log in to start\n", p.Name)
	return nil
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := a.flags("login")
	name := fs.String("name", "", "team name")
	pin := fs.String("pin", "", "team PIN")
	if _, err := a.parse(ctx, fs, args, 0); err != nil {
		return err
	}
	st, err := a.client.Login(ctx, *name, *pin)
	if err != nil {
		return err
	}
	return a.print(st.Profile)
}

func cmdAdminLogin(ctx context.Context, a *app, args []string) error {
	fs := a.flags("admin-login")
	pin := fs.String("pin", "", "admin PIN")
	if _, err := a.parse(ctx, fs, args, 0); err != nil {
		return err
	}
	if _, err := a.client.AdminLogin(ctx, *pin); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "logged in as admin")
	return nil
}

func cmdLogout(ctx context.Context, a *app, args []string) error {
	fs := a.flags("logout")
	if _, err := a.parse(ctx, fs, args, 0); err != nil {
		return err
	}
	return a.client.Logout(ctx)
}

func cmdForgotPassword(ctx context.Context, a *app, args []string) error {
	fs := a.flags("forgot-password")
	name := fs.String("name", "", "team name")
	confirm := fs.Bool("confirm", false, "issue the warning")
	if _, err := a.parse(ctx, fs, args, 0); err != nil {
		return err
	}
	msg, err := a.client.ForgotPassword(ctx, *name, *confirm)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func cmdState(ctx context.Context, a *app, args []string) error {
	fs := a.flags("state")
	refresh := fs.Bool("refresh", false, "fetch the server state first")
	if _, err := a.parse(ctx, fs, args, 0); err != nil {
		return err
	}
	if *refresh {
		if _, err := a.client.Refresh(ctx); err != nil {
			return err
		}
	}
	st := a.client.Session()
	out := struct {
		Screen   session.Screen        `json:"screen"`
		Profile  *starhunt.TeamProfile `json:"profile,omitempty"`
		Sections map[int]bool          `json:"sections,omitempty"`
	}{Screen: st.Screen, Profile: st.Profile}
	if st.LoggedIn() && st.Screen != session.ScreenAdmin {
		out.Sections = make(map[int]bool, starhunt.SectionCount)
		for s := 1; s <= starhunt.SectionCount; s++ {
			out.Sections[s], _ = a.client.SectionUnlocked(s)
		}
	}
	return a.print(out)
}

func cmdSection(ctx context.Context, a *app, args []string) error {
	fs := a.flags("section")
	args, err := a.parse(ctx, fs, args, 1)
	if err != nil {
		return err
	}
	section, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("%w: section must be a number", errUsage)
	}
	riddles, err := a.client.SelectSection(ctx, section)
	if err != nil {
		return err
	}
	return a.print(riddles)
}

func cmdBack(ctx context.Context, a *app, args []string) error {
	fs := a.flags("back")
	if _, err := a.parse(ctx, fs, args, 0); err != nil {
		return err
	}
	return a.client.Back(ctx)
}

func cmdAnswer(ctx context.Context, a *app, args []string) error {
	fs := a.flags("answer")
	args, err := a.parse(ctx, fs, args, 3)
	if err != nil {
		return err
	}
	section, err1 := strconv.Atoi(args[0])
	index, err2 := strconv.Atoi(args[1])
	if err1 != nil || err2 != nil {
		return fmt.Errorf("%w: section and index must be numbers", errUsage)
	}
	res, err := a.client.Submit(ctx, section, index, args[2])
	if perr := a.print(res); perr != nil {
		return perr
	}
	return err
}

func cmdPointing(ctx context.Context, a *app, args []string) error {
	fs := a.flags("pointing")
	args, err := a.parse(ctx, fs, args, 1)
	if err != nil {
		return err
	}
	req, err := a.client.RequestPointing(ctx, args[0])
	if err != nil {
		return err
	}
	return a.print(req)
}

func cmdWatch(ctx context.Context, a *app, args []string) error {
	fs := a.flags("watch")
	if _, err := a.parse(ctx, fs, args, 0); err != nil {
		return err
	}
	enc := json.NewEncoder(a.out)
	err := a.client.Watch(ctx, func(ev feed.Event) {
		enc.Encode(ev)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func cmdRequests(ctx context.Context, a *app, args []string) error {
	fs := a.flags("requests")
	status := fs.String("status", "", "pending, approved, auto-verified or rejected")
	if _, err := a.parse(ctx, fs, args, 0); err != nil {
		return err
	}
	reqs, err := a.client.Requests(ctx, starhunt.Status(*status))
	if err != nil {
		return err
	}
	return a.print(reqs)
}

func cmdDecide(ctx context.Context, a *app, args []string) error {
	fs := a.flags("decide")
	args, err := a.parse(ctx, fs, args, 2)
	if err != nil {
		return err
	}
	decided, err := a.client.Decide(ctx, args[0], starhunt.Decision(args[1]))
	if err != nil {
		return err
	}
	return a.print(decided)
}

func cmdTeams(ctx context.Context, a *app, args []string) error {
	fs := a.flags("teams")
	if _, err := a.parse(ctx, fs, args, 0); err != nil {
		return err
	}
	teams, err := a.client.Teams(ctx)
	if err != nil {
		return err
	}
	return a.print(teams)
}

func cmdConfig(ctx context.Context, a *app, args []string) error {
	fs := a.flags("config")
	var s12, s3 optionalBool
	fs.Var(&s12, "sections12", "open sections 1 and 2")
	fs.Var(&s3, "section3", "open section 3")
	if _, err := a.parse(ctx, fs, args, 0); err != nil {
		return err
	}

	cfg, err := a.client.FetchConfig(ctx)
	if err != nil {
		return err
	}
	if !s12.set && !s3.set {
		return a.print(cfg)
	}
	if s12.set {
		cfg.Sections12Unlocked = s12.v
	}
	if s3.set {
		cfg.Section3Unlocked = s3.v
	}
	saved, err := a.client.SetConfig(ctx, cfg)
	if err != nil {
		return err
	}
	return a.print(saved)
}

// optionalBool is a bool flag that remembers whether it was given.
type optionalBool struct {
	v   bool
	set bool
}

func (b *optionalBool) String() string { return strconv.FormatBool(b.v) }

func (b *optionalBool) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	b.v, b.set = v, true
	return nil
}
