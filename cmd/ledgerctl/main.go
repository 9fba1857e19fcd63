// Command ledgerctl inspects and administers a student aid ledger directly,
// without going through the HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/amirasaad/studentaid/infra/initializer"
	"github.com/amirasaad/studentaid/pkg/app"
	"github.com/amirasaad/studentaid/pkg/config"
	"github.com/fatih/color"
	"golang.org/x/term"
)

const usage = `Usage: ledgerctl [-as admin@email] [-env .env] <command> [arguments]

Commands:
  snapshot                          print the ledger document as JSON
  feed [urgency|critical|newest]    list approved requests, most urgent first
  pending                           list requests and users awaiting review
  logs                              list the admin audit log, newest first
  summary <email>                   show a user's requests and donations totals
  verify <user_id> approve|reject   decide a user's identity verification
  approve <request_id>              approve a pending request
  reject <request_id>               reject a pending request
  close <request_id>                close an approved request
  donate <request_id> <amount> <donor_email> [mode]
                                    record a settled donation
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fs := flag.NewFlagSet("ledgerctl", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	as := fs.String("as", os.Getenv("LEDGERCTL_ADMIN"), "email of the admin performing decisions")
	envFile := fs.String("env", ".env", "environment file")
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	fd := int(os.Stdout.Fd())
	color.NoColor = !term.IsTerminal(fd)
	width := 0
	if w, _, err := term.GetSize(fd); err == nil {
		width = w
	}

	if err := start(ctx, *envFile, *as, width, fs.Args(), os.Stdout); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "Error:", err) //nolint:errcheck
		os.Exit(1)
	}
}

func start(ctx context.Context, envFile, as string, width int, args []string, out io.Writer) (err error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	// Keep stdout for command output.
	cfg.Log.Format = "text"
	deps, cleanup, err := initializer.InitializeDependenciesWithLogOutput(ctx, cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, cleanup(context.WithoutCancel(ctx)))
	}()
	cli := &CLI{App: app.New(deps, cfg), Out: out, AdminEmail: as, Width: width}
	return cli.Run(ctx, args)
}
