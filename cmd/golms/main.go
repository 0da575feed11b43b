package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/docopt/docopt-go"
	"github.com/golang/glog"
	"golang.org/x/term"
)

const version = "0.1.0"

const usage = `golms talks to an LMS backend from the terminal.

Settings come from GOLMS_ORIGIN, GOLMS_TRANSPORT, GOLMS_TENANT,
GOLMS_TOKEN_FILE, GOLMS_REDIS and GOLMS_TIMEOUT, optionally loaded from .env.
--redis=mem uses an in-process Redis.

Usage:
    golms login [options] [--username=<name>]
    golms logout [options]
    golms whoami [options]
    golms prefs [options]
    golms prefs set <event_type> <channel> (on | off) [--course=<id>] [options]
    golms notifications [--unread] [options]
    golms read (<id> | --all) [options]
    golms tail [--count=<n>] [options]
    golms metrics [options]
    golms -h | --help
    golms --version

Options:
    -h --help            Show this screen.
    --version            Show version.
    --origin=<url>       API origin, e.g. https://lms.example.edu.
    --redis=<addr>       Keep the token in Redis at addr.
    --env=<file>         Environment file [default: .env].
    --username=<name>    Login name; prompted when absent.
    --course=<id>        Scope a preference to one course.
    --count=<n>          Stop tail after n events.
    --unread             Only unread notifications.
    --all                Mark every notification read.`

// readPassword is swapped in tests.
var readPassword = term.ReadPassword

func main() {
	// glog registers its flags on the default set; parse an empty list so
	// it logs with defaults and docopt owns the command line.
	_ = flag.CommandLine.Parse(nil)
	defer glog.Flush()

	opts, err := docopt.ParseArgs(usage, os.Args[1:], version)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "golms:", err)
		glog.Flush()
		os.Exit(1)
	}
}

func run(ctx context.Context, opts docopt.Opts, stdin *os.File, stdout, stderr io.Writer) error {
	envFile, _ := opts.String("--env")
	s, err := loadSettings(envFile)
	if err != nil {
		return err
	}
	if origin, _ := opts.String("--origin"); origin != "" {
		s.Origin = origin
	}
	if addr, _ := opts.String("--redis"); addr != "" {
		s.Redis = addr
	}

	app, err := newApp(ctx, s, stdout, stderr)
	if err != nil {
		return err
	}
	defer app.close()

	switch {
	case flagSet(opts, "login"):
		username, _ := opts.String("--username")
		return app.login(ctx, stdin, username)
	case flagSet(opts, "logout"):
		return app.logout(ctx)
	case flagSet(opts, "whoami"):
		return app.whoami(ctx)
	case flagSet(opts, "prefs") && flagSet(opts, "set"):
		eventType, _ := opts.String("<event_type>")
		channel, _ := opts.String("<channel>")
		course, _ := opts.String("--course")
		return app.setPreference(ctx, eventType, channel, course, flagSet(opts, "on"))
	case flagSet(opts, "prefs"):
		return app.preferences(ctx)
	case flagSet(opts, "notifications"):
		return app.notifications(ctx, flagSet(opts, "--unread"))
	case flagSet(opts, "read"):
		id, _ := opts.String("<id>")
		return app.markRead(ctx, id, flagSet(opts, "--all"))
	case flagSet(opts, "tail"):
		count := 0
		if raw, _ := opts.String("--count"); raw != "" {
			if _, err := fmt.Sscanf(raw, "%d", &count); err != nil || count < 0 {
				return fmt.Errorf("invalid --count %q", raw)
			}
		}
		return app.tail(ctx, count)
	case flagSet(opts, "metrics"):
		return app.metrics(ctx)
	}
	return fmt.Errorf("no command")
}

func flagSet(opts docopt.Opts, name string) bool {
	v, _ := opts.Bool(name)
	return v
}
