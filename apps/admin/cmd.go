package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/invitation"
	"github.com/malekai-gauntlet/tsa-platform-sub001/storage/database"
)

var (
	isTerminalFunc = term.IsTerminal // mockable
	migrateFunc    = database.Run    // mockable

	errHelp      = errors.New("help provided")
	errAborted   = errors.New("aborted")
	errNoDB      = errors.New("no database configured")
	errNoCommand = errors.New("missing migration command")
)

type commandLine struct {
	invitations *invitation.Service
	logger      core.Logger
	db          *sqlx.DB // nil when data is kept in memory

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.stdout, "Usage:")
	fmt.Fprintln(cli.stdout, "  invite-coach -name NAME -email EMAIL -cell CELL -city CITY -state ST -bio BIO [-d1-athletics N] [-dry-run] [-test-email-only] [-yes]")
	fmt.Fprintln(cli.stdout, "      validate, store and e-mail a coach invitation")
	fmt.Fprintln(cli.stdout, "  expire-invitations - mark pending invitations past their expiry date as expired")
	fmt.Fprintln(cli.stdout, "  migrate COMMAND [ARGS...] - run a goose migration command (up, down, status, ...)")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "invite-coach":
		opts, err := parseInviteOptions(args[2:], cli.stderr)
		if err != nil {
			return err
		}
		return cli.inviteCoach(ctx, opts)
	case "expire-invitations":
		n, err := cli.invitations.ExpireStale(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.stdout, "%d invitation(s) expired\n", n)
		return nil
	case "migrate":
		return cli.migrate(ctx, args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

// confirm asks a yes/no question when stdin is a terminal; anything else is a yes.
func (cli *commandLine) confirm(question string) (bool, error) {
	f, ok := cli.stdin.(*os.File)
	if !ok || !isTerminalFunc(int(f.Fd())) {
		return true, nil
	}
	fmt.Fprintf(cli.stdout, "%s [y/N]: ", question)
	answer, err := bufio.NewReader(cli.stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func (cli *commandLine) migrate(ctx context.Context, args []string) error {
	if len(args) == 0 {
		cli.printUsage()
		return errNoCommand
	}
	if cli.db == nil {
		return errNoDB
	}
	return migrateFunc(ctx, cli.db, args[0], args[1:]...)
}

func newFlagSet(name string, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)
	return fs
}
