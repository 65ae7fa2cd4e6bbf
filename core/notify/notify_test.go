package notify

import (
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
)

func newGenerator(t *testing.T) *Generator {
	t.Helper()
	g, err := NewGenerator(core.NewTestConfig())
	require.NoError(t, err)
	return g
}

func TestGenerator_CoachInvitation(t *testing.T) {
	g := newGenerator(t)
	expires := time.Date(2026, time.November, 15, 12, 0, 0, 0, time.UTC)

	r, err := g.CoachInvitation(CoachInvitationData{
		FirstName: "Jane",
		InviteURL: g.URL("/onboarding?invite=01abc"),
		ExpiresAt: expires,
	})
	require.NoError(t, err)

	assert.Equal(t, "You're invited to coach with TSA", r.Subject)
	assert.Contains(t, r.Text, "Hi Jane,")
	assert.Contains(t, r.Text, "http://localhost:3000/onboarding?invite=01abc")
	assert.Contains(t, r.Text, "November 15, 2026")
	assert.Contains(t, r.HTML, `href="http://localhost:3000/onboarding?invite=01abc"`)
	assert.NotContains(t, r.HTML, "<blockquote")
}

func TestGenerator_EventNotification(t *testing.T) {
	g := newGenerator(t)
	start := time.Date(2026, time.December, 1, 17, 0, 0, 0, time.UTC)
	data := EventNotificationData{
		RecipientName: "Sam",
		EventTitle:    "Open Tryouts",
		Location:      "Main Gym",
		Start:         start,
		End:           start.Add(2 * time.Hour),
	}

	t.Run("without meeting url", func(t *testing.T) {
		r, err := g.EventNotification(data)
		require.NoError(t, err)
		assert.NotContains(t, r.HTML, "Join Meeting")
		assert.NotContains(t, r.Text, "Join Meeting")
		assert.Contains(t, r.Text, "Where: Main Gym")
		assert.True(t, strings.HasPrefix(r.Subject, "Open Tryouts - "))
	})

	t.Run("with meeting url", func(t *testing.T) {
		data := data
		data.MeetingURL = "https://meet.example.com/abc"
		r, err := g.EventNotification(data)
		require.NoError(t, err)
		assert.Contains(t, r.HTML, "Join Meeting")
		assert.Contains(t, r.HTML, `href="https://meet.example.com/abc"`)
		assert.Contains(t, r.Text, "Join Meeting: https://meet.example.com/abc")
	})
}

func TestGenerator_RegistrationConfirmation(t *testing.T) {
	g := newGenerator(t)
	r, err := g.RegistrationConfirmation(RegistrationConfirmationData{
		ParentName:  "Pat",
		StudentName: "Alex",
		EventTitle:  "Summer Camp",
		Status:      "WAITLISTED",
		Start:       time.Date(2026, time.July, 1, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "Registration waitlisted: Summer Camp", r.Subject)
	assert.Contains(t, r.Text, "The event is full.")
}

func TestGenerator_Deterministic(t *testing.T) {
	g := newGenerator(t)
	data := OnboardingCompleteAdminData{
		CoachName:   "Jane Doe",
		CoachEmail:  "jane@example.com",
		SchoolName:  "Austin Sports Academy",
		City:        "Austin",
		State:       "TX",
		Sport:       "Basketball",
		CompletedAt: time.Date(2026, time.October, 1, 10, 0, 0, 0, time.UTC),
	}
	r1, err := g.OnboardingCompleteAdmin(data)
	require.NoError(t, err)
	r2, err := g.OnboardingCompleteAdmin(data)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
	assert.Contains(t, r1.Text, "- Location: Austin, TX")
}

func TestRendered_Message(t *testing.T) {
	to := mail.Address{Name: "Jane Doe", Address: "jane@example.com"}
	msg := Rendered{Subject: "s", HTML: "<p>h</p>", Text: "t"}.Message(to)

	assert.Equal(t, []mail.Address{to}, msg.To)
	assert.Equal(t, "s", msg.Subject)
	assert.Equal(t, "t", msg.TextContent)
	assert.Equal(t, "<p>h</p>", msg.HTMLContent)
	assert.True(t, msg.HasRecipients())
	assert.True(t, msg.HasContent())
}
