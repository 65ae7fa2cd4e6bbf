package notify

import "time"

type CoachInvitationData struct {
	FirstName     string
	InvitedByName string
	InviteURL     string
	Message       string
	ExpiresAt     time.Time
}

type ParentInvitationData struct {
	ParentName  string
	StudentName string
	SchoolName  string
	InviteURL   string
	ExpiresAt   time.Time
}

type WelcomeData struct {
	FirstName    string
	SchoolName   string
	DashboardURL string
}

type OnboardingCompleteAdminData struct {
	CoachName       string
	CoachEmail      string
	SchoolName      string
	City            string
	State           string
	Sport           string
	InvitationBased bool
	CompletedAt     time.Time
}

// EventNotificationData describes an event announced to a participant.
// The "Join Meeting" block is only rendered when MeetingURL is set.
type EventNotificationData struct {
	RecipientName string
	CoachName     string
	EventTitle    string
	Location      string
	MeetingURL    string
	EventURL      string
	Start         time.Time
	End           time.Time
}

type RegistrationConfirmationData struct {
	ParentName  string
	StudentName string
	EventTitle  string
	Location    string
	Status      string
	Start       time.Time
}

func (g *Generator) CoachInvitation(data CoachInvitationData) (Rendered, error) {
	return g.render(tmplCoachInvitation, data)
}

func (g *Generator) ParentInvitation(data ParentInvitationData) (Rendered, error) {
	return g.render(tmplParentInvitation, data)
}

func (g *Generator) Welcome(data WelcomeData) (Rendered, error) {
	return g.render(tmplWelcome, data)
}

func (g *Generator) OnboardingCompleteAdmin(data OnboardingCompleteAdminData) (Rendered, error) {
	return g.render(tmplOnboardingCompleteAdmin, data)
}

func (g *Generator) EventNotification(data EventNotificationData) (Rendered, error) {
	return g.render(tmplEventNotification, data)
}

func (g *Generator) RegistrationConfirmation(data RegistrationConfirmationData) (Rendered, error) {
	return g.render(tmplRegistrationConfirm, data)
}
