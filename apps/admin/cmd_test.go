package main

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/invitation"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/notify"
	emailsvc "github.com/malekai-gauntlet/tsa-platform-sub001/services/email"
	identitysvc "github.com/malekai-gauntlet/tsa-platform-sub001/services/identity"
	inmemdb "github.com/malekai-gauntlet/tsa-platform-sub001/storage/database/inmem"
)

type cliFixture struct {
	cli    *commandLine
	repo   invitation.Repository
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func setup(t *testing.T) *cliFixture {
	conf := core.NewTestConfig()
	templates, err := notify.NewGenerator(conf)
	require.NoError(t, err)

	repo := inmemdb.NewInvitationRepository(inmemdb.Open())
	svc := invitation.NewService(
		repo,
		identitysvc.NewLocalProvider(core.NopLogger{}),
		emailsvc.NewConsoleServiceMock(conf),
		templates,
		core.NopLogger{},
		conf,
	)
	emailsvc.ResetSentMessages()

	f := &cliFixture{repo: repo, stdout: new(bytes.Buffer), stderr: new(bytes.Buffer)}
	f.cli = &commandLine{
		invitations: svc,
		logger:      core.NopLogger{},
		stdin:       new(bytes.Buffer),
		stdout:      f.stdout,
		stderr:      f.stderr,
	}
	return f
}

func (f *cliFixture) run(args ...string) error {
	return f.cli.run(context.Background(), append([]string{"admin"}, args...))
}

func inviteArgs(extra ...string) []string {
	args := []string{
		"invite-coach",
		"-name", "Marcus Johnson",
		"-email", "Marcus@Example.com",
		"-cell", "512-555-0100",
		"-city", "Austin",
		"-state", "tx",
		"-d1-athletics", "3",
		"-bio", "Former sprinter, coaching for ten years.",
	}
	return append(args, extra...)
}

func pendingInvitations(t *testing.T, repo invitation.Repository) []invitation.Invitation {
	invs, err := repo.Query(context.Background(), &invitation.QueryFilter{Statuses: []invitation.Status{invitation.StatusPending}}, nil)
	require.NoError(t, err)
	return invs
}

func Test_commandLine_usage(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "no command"},
		{name: "unknown command", args: []string{"lol"}},
		{name: "invite without email", args: []string{"invite-coach", "-name", "Marcus"}},
		{name: "invite with unknown flag", args: []string{"invite-coach", "-lol"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, errHelp, f.run(tt.args...))
		})
	}
}

func Test_commandLine_inviteCoach_missingFlags(t *testing.T) {
	f := setup(t)

	err := f.run("invite-coach", "-name", "Marcus Johnson", "-email", "marcus@example.com", "-city", " ")
	assert.Equal(t, errHelp, err)
	assert.Contains(t, f.stderr.String(), "missing required flags: -cell, -city, -bio")
	assert.Empty(t, pendingInvitations(t, f.repo))
	assert.Empty(t, emailsvc.Sent())
}

func Test_commandLine_inviteCoach(t *testing.T) {
	f := setup(t)

	require.NoError(t, f.run(inviteArgs("-yes")...))

	invs := pendingInvitations(t, f.repo)
	require.Len(t, invs, 1)
	inv := invs[0]
	assert.Equal(t, "marcus@example.com", inv.Email)
	assert.Equal(t, "Marcus", inv.FirstName)
	assert.Equal(t, "Johnson", inv.LastName)
	assert.Equal(t, "Austin", inv.City)
	assert.Equal(t, "TX", inv.State)
	assert.Equal(t, "+15125550100", inv.Phone)
	assert.Equal(t, 3, inv.D1AthleticsCount)
	assert.Equal(t, "admin-cli", inv.InvitedBy)
	assert.Contains(t, f.stdout.String(), "invitation "+inv.ID+" sent to marcus@example.com")

	sent := emailsvc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "marcus@example.com", sent[0].To[0].Address)

	t.Run("pending invitation exists", func(t *testing.T) {
		f.stderr.Reset()
		err := f.run(inviteArgs("-yes")...)
		require.Error(t, err)
		assert.Contains(t, f.stderr.String(), "email: "+invitation.ErrPendingExists.Error())
		assert.Len(t, pendingInvitations(t, f.repo), 1)
	})
}

func Test_commandLine_inviteCoach_invalid(t *testing.T) {
	f := setup(t)

	err := f.run("invite-coach", "-name", "Marcus", "-email", "nope", "-cell", "12", "-city", "Nowhere", "-bio", "short")
	require.Error(t, err)
	out := f.stderr.String()
	for _, field := range []string{"email:", "cell:", "location:", "bio:"} {
		assert.Contains(t, out, field)
	}
	assert.Empty(t, pendingInvitations(t, f.repo))
	assert.Empty(t, emailsvc.Sent())
}

func Test_commandLine_inviteCoach_dryRun(t *testing.T) {
	f := setup(t)

	require.NoError(t, f.run(inviteArgs("-dry-run")...))
	assert.Contains(t, f.stdout.String(), `"email": "marcus@example.com"`)
	assert.NotContains(t, f.stdout.String(), "@@")
	assert.Empty(t, pendingInvitations(t, f.repo))
	assert.Empty(t, emailsvc.Sent())

	t.Run("diff against the pending invitation", func(t *testing.T) {
		require.NoError(t, f.run(inviteArgs("-yes")...))
		f.stdout.Reset()

		args := inviteArgs("-dry-run")
		args[8] = "Dallas" // -city
		require.NoError(t, f.run(args...))

		out := f.stdout.String()
		assert.Contains(t, out, "a pending invitation already exists for marcus@example.com")
		assert.Contains(t, out, `-  "city": "Austin",`)
		assert.Contains(t, out, `+  "city": "Dallas",`)
		assert.Len(t, pendingInvitations(t, f.repo), 1)
	})
}

func Test_commandLine_inviteCoach_testEmailOnly(t *testing.T) {
	f := setup(t)

	require.NoError(t, f.run(inviteArgs("-test-email-only")...))
	assert.Contains(t, f.stdout.String(), "test e-mail sent to marcus@example.com")
	assert.Len(t, emailsvc.Sent(), 1)
	assert.Empty(t, pendingInvitations(t, f.repo))
}

func Test_commandLine_inviteCoach_confirm(t *testing.T) {
	origTerm := isTerminalFunc
	t.Cleanup(func() { isTerminalFunc = origTerm })
	isTerminalFunc = func(int) bool { return true }

	tests := []struct {
		name    string
		answer  string
		wantErr error
		wantLen int
	}{
		{name: "declined", answer: "n\n", wantErr: errAborted},
		{name: "no answer", answer: "", wantErr: errAborted},
		{name: "accepted", answer: "yes\n", wantLen: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)

			r, w, err := os.Pipe()
			require.NoError(t, err)
			t.Cleanup(func() { _ = r.Close() })
			_, err = w.WriteString(tt.answer)
			require.NoError(t, err)
			require.NoError(t, w.Close())
			f.cli.stdin = r

			assert.Equal(t, tt.wantErr, f.run(inviteArgs()...))
			assert.Contains(t, f.stdout.String(), "Invite Marcus Johnson <marcus@example.com>? [y/N]")
			assert.Len(t, pendingInvitations(t, f.repo), tt.wantLen)
		})
	}
}

func Test_commandLine_expireInvitations(t *testing.T) {
	f := setup(t)

	origNow := invitation.NowFunc
	invitation.NowFunc = func() time.Time { return time.Now().Add(-60 * 24 * time.Hour) }
	require.NoError(t, f.run(inviteArgs("-yes")...))
	invitation.NowFunc = origNow

	f.stdout.Reset()
	require.NoError(t, f.run("expire-invitations"))
	assert.Equal(t, "1 invitation(s) expired\n", f.stdout.String())
	assert.Empty(t, pendingInvitations(t, f.repo))

	f.stdout.Reset()
	require.NoError(t, f.run("expire-invitations"))
	assert.Equal(t, "0 invitation(s) expired\n", f.stdout.String())
}

func Test_commandLine_migrate(t *testing.T) {
	f := setup(t)

	origMigrate := migrateFunc
	t.Cleanup(func() { migrateFunc = origMigrate })
	var gotCommand string
	var gotArgs []string
	migrateFunc = func(_ context.Context, _ *sqlx.DB, command string, args ...string) error {
		gotCommand, gotArgs = command, args
		return nil
	}

	assert.Equal(t, errNoCommand, f.run("migrate"))
	assert.Equal(t, errNoDB, f.run("migrate", "up"))

	f.cli.db = &sqlx.DB{}
	require.NoError(t, f.run("migrate", "up-to", "2"))
	assert.Equal(t, "up-to", gotCommand)
	assert.Equal(t, []string{"2"}, gotArgs)

	require.NoError(t, f.run("migrate", "status"))
	assert.Equal(t, "status", gotCommand)
	assert.Empty(t, gotArgs)
}
