package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/invitation"
)

type inviteOptions struct {
	invite        invitation.CoachInvite
	dryRun        bool
	testEmailOnly bool
	yes           bool
}

func parseInviteOptions(args []string, output io.Writer) (inviteOptions, error) {
	var (
		opts        inviteOptions
		city, state string
	)
	fs := newFlagSet("invite-coach", output)
	fs.StringVar(&opts.invite.Name, "name", "", "The coach's full name.")
	fs.StringVar(&opts.invite.Email, "email", "", "The coach's e-mail address.")
	fs.StringVar(&opts.invite.Cell, "cell", "", "The coach's cell phone number.")
	fs.StringVar(&city, "city", "", "The city the coach lives in.")
	fs.StringVar(&state, "state", "", "The two-letter state code.")
	fs.IntVar(&opts.invite.D1AthleticsCount, "d1-athletics", 0, "Number of D1 athletes coached.")
	fs.StringVar(&opts.invite.Bio, "bio", "", "A short biography.")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "Validate and print the invitation without storing it.")
	fs.BoolVar(&opts.testEmailOnly, "test-email-only", false, "Only render and send the invitation e-mail.")
	fs.BoolVar(&opts.yes, "yes", false, "Do not ask for confirmation.")

	if err := fs.Parse(args); err != nil {
		return opts, errHelp
	}
	flags := map[string]string{
		"name":  opts.invite.Name,
		"email": opts.invite.Email,
		"cell":  opts.invite.Cell,
		"city":  city,
		"bio":   opts.invite.Bio,
	}
	if missing := invitation.MissingFields(flags, "name", "email", "cell", "city", "bio"); len(missing) > 0 {
		fmt.Fprintf(output, "missing required flags: -%s\n", strings.Join(missing, ", -"))
		fs.Usage()
		return opts, errHelp
	}
	opts.invite.Location = strings.TrimSpace(city)
	if state = strings.TrimSpace(state); state != "" {
		opts.invite.Location += ", " + state
	}
	opts.invite.InvitedBy = "admin-cli"
	return opts, nil
}

func (cli *commandLine) inviteCoach(ctx context.Context, opts inviteOptions) error {
	inv, err := cli.invitations.BuildCoachInvitation(ctx, opts.invite)
	if err != nil {
		cli.printValidationErrors(err)
		return err
	}

	switch {
	case opts.dryRun:
		return cli.printInvitation(ctx, inv)
	case opts.testEmailOnly:
		res := cli.invitations.SendInvitationEmail(ctx, inv)
		if !res.Success {
			return errors.Wrap(res.Err, "sending test e-mail")
		}
		fmt.Fprintf(cli.stdout, "test e-mail sent to %s (message id %q)\n", inv.Email, res.MessageID)
		return nil
	}

	if !opts.yes {
		ok, err := cli.confirm(fmt.Sprintf("Invite %s <%s>?", inv.FullName(), inv.Email))
		if err != nil {
			return err
		}
		if !ok {
			return errAborted
		}
	}

	inv, err = cli.invitations.CreateCoachInvitation(ctx, opts.invite)
	if err != nil {
		cli.printValidationErrors(err)
		return err
	}
	fmt.Fprintf(cli.stdout, "invitation %s sent to %s\n", inv.ID, inv.Email)
	fmt.Fprintf(cli.stdout, "  link: %s\n", cli.invitations.InviteURL(inv))
	fmt.Fprintf(cli.stdout, "  expires: %s\n", inv.ExpiresAt.Format("2006-01-02 15:04 MST"))
	return nil
}

// printInvitation writes the record that would be stored, followed by a diff against the
// pending invitation it would conflict with, if any.
func (cli *commandLine) printInvitation(ctx context.Context, inv invitation.Invitation) error {
	rec, err := invitationRecord(inv)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.stdout, rec)

	pending, err := cli.invitations.GetPendingByEmail(ctx, inv.Email)
	if err != nil {
		if errors.Is(err, invitation.ErrNotFound) {
			return nil
		}
		return err
	}
	prev, err := invitationRecord(pending)
	if err != nil {
		return err
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(prev),
		B:        difflib.SplitLines(rec),
		FromFile: "pending " + pending.ID,
		ToFile:   "new",
		Context:  2,
	})
	if err != nil {
		return errors.Wrap(err, "diffing invitations")
	}
	fmt.Fprintf(cli.stdout, "a pending invitation already exists for %s:\n%s", inv.Email, diff)
	return nil
}

// invitationRecord renders the fields an admin cares about; ids, tokens and dates
// always differ.
func invitationRecord(inv invitation.Invitation) (string, error) {
	b, err := json.MarshalIndent(struct {
		Email            string `json:"email"`
		FirstName        string `json:"first_name"`
		LastName         string `json:"last_name"`
		Phone            string `json:"phone"`
		City             string `json:"city"`
		State            string `json:"state"`
		D1AthleticsCount int    `json:"d1_athletics_count"`
		Bio              string `json:"bio"`
	}{
		Email:            inv.Email,
		FirstName:        inv.FirstName,
		LastName:         inv.LastName,
		Phone:            inv.Phone,
		City:             inv.City,
		State:            inv.State,
		D1AthleticsCount: inv.D1AthleticsCount,
		Bio:              inv.Bio,
	}, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "marshalling invitation")
	}
	return string(b) + "\n", nil
}

func (cli *commandLine) printValidationErrors(err error) {
	var vErr *core.ValidationError
	if !errors.As(err, &vErr) || len(vErr.Fields) == 0 {
		return
	}
	for _, fe := range vErr.Fields {
		fmt.Fprintf(cli.stderr, "  %s: %s\n", fe.Field, fe.Error)
	}
}
