// Package onboarding drives the step by step onboarding of invited coaches, from the
// first form to the creation of their school records.
package onboarding

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/mail"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/edfi"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/invitation"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/notify"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound        = errors.New("onboarding progress not found")
	ErrAlreadyComplete = errors.New("onboarding is already complete")
	ErrStepNotReached  = errors.New("this step has not been reached yet")
	ErrProgressExists  = errors.New("onboarding progress already exists for this email")
)

type (
	Repository interface {
		Create(ctx context.Context, p Progress) (Progress, error)
		GetByEmail(ctx context.Context, email string) (Progress, error)
		GetByUserID(ctx context.Context, userID string) (Progress, error)
		Update(ctx context.Context, p Progress) (Progress, error)
	}

	// Invitations is the part of the invitation service onboarding relies on.
	Invitations interface {
		Validate(ctx context.Context, token string) (invitation.Invitation, error)
		GetByID(ctx context.Context, id string) (invitation.Invitation, error)
		Accept(ctx context.Context, token string) (invitation.Invitation, error)
	}

	// Provisioner creates the records of a completed onboarding.
	Provisioner interface {
		Provision(ctx context.Context, b edfi.Bundle) (edfi.Result, error)
	}

	ResumeRequest struct {
		Email       string `json:"email"`
		UserID      string `json:"user_id"`
		InviteToken string `json:"invite_token"`
	}

	Service struct {
		repo        Repository
		invitations Invitations
		provisioner Provisioner
		identity    core.IdentityProvider
		mailSvc     core.EmailService
		templates   *notify.Generator
		logger      core.Logger
		conf        *core.Config
		validate    *validator.Validate
		translator  ut.Translator
		completions singleflight.Group
	}
)

func NewService(
	repo Repository,
	invitations Invitations,
	provisioner Provisioner,
	identity core.IdentityProvider,
	mailSvc core.EmailService,
	templates *notify.Generator,
	logger core.Logger,
	conf *core.Config,
) *Service {
	validate, translator := core.NewValidator()
	InitValidators(validate, translator)

	return &Service{
		repo:        repo,
		invitations: invitations,
		provisioner: provisioner,
		identity:    identity,
		mailSvc:     mailSvc,
		templates:   templates,
		logger:      logger,
		conf:        conf,
		validate:    validate,
		translator:  translator,
	}
}

// Get returns the progress of `key`, preferring the user id when known.
func (svc *Service) Get(ctx context.Context, key Key) (Progress, error) {
	if key.UserID != "" {
		p, err := svc.repo.GetByUserID(ctx, key.UserID)
		if err == nil || !errors.Is(err, ErrNotFound) {
			return p, err
		}
	}
	if key.Email == "" {
		return Progress{}, ErrNotFound
	}
	return svc.repo.GetByEmail(ctx, core.CleanString(key.Email, true /* lower */))
}

// Resume returns the saved progress of the requester, creating it at the first step when
// there is none. With an invitation token the invitation must still be valid, and its
// values pre-fill the blanks of the form.
func (svc *Service) Resume(ctx context.Context, req ResumeRequest) (Progress, error) {
	req.Email = core.CleanString(req.Email, true /* lower */)
	req.UserID = core.CleanString(req.UserID)
	req.InviteToken = core.CleanString(req.InviteToken)

	var inv *invitation.Invitation
	if req.InviteToken != "" {
		i, err := svc.invitations.Validate(ctx, req.InviteToken)
		if err != nil {
			return Progress{}, err
		}
		if req.Email != "" && req.Email != i.Email {
			return Progress{}, core.NewValidationError(nil, core.FieldError{
				Field: "email", Error: "email does not match the invitation",
			})
		}
		req.Email = i.Email
		inv = &i
	}
	if !invitation.ValidateEmail(req.Email) {
		return Progress{}, core.NewValidationError(nil, core.FieldError{Field: "email", Error: "must be a valid email address"})
	}

	key := Key{UserID: req.UserID, Email: req.Email}
	p, err := svc.Get(ctx, key)
	switch {
	case err == nil:
		if p.IsComplete() {
			return p, nil
		}
		changed := false
		if p.UserID == "" && req.UserID != "" {
			p.UserID = req.UserID
			changed = true
		}
		if inv != nil && !p.InvitationBased {
			svc.attachInvitation(&p, *inv)
			changed = true
		}
		if !changed {
			return p, nil
		}
		p.UpdatedAt = NowFunc().UTC()
		return svc.repo.Update(ctx, p)
	case errors.Is(err, ErrNotFound):
	default:
		return Progress{}, errors.Wrap(err, "loading onboarding progress")
	}

	now := NowFunc().UTC()
	p = Progress{
		ID:             uuid.NewString(),
		UserID:         req.UserID,
		Email:          req.Email,
		CurrentStep:    StepPersonalInfo,
		CompletedSteps: []Step{},
		FormData:       FormData{PersonalInfo: &PersonalInfo{Email: req.Email}},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if inv != nil {
		svc.attachInvitation(&p, *inv)
	}
	created, err := svc.repo.Create(ctx, p)
	if errors.Is(err, ErrProgressExists) {
		// lost a race with a concurrent resume
		return svc.repo.GetByEmail(ctx, req.Email)
	}
	return created, err
}

// HoldsInvitation reports whether `token` is the token of the invitation `p` was started
// from. It still holds once the invitation is accepted.
func (svc *Service) HoldsInvitation(ctx context.Context, p Progress, token string) bool {
	token = core.CleanString(token, true /* lower */)
	if token == "" || !p.InvitationBased {
		return false
	}
	inv, err := svc.invitations.GetByID(ctx, p.InvitationID)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(inv.Token), []byte(token)) == 1
}

func (svc *Service) attachInvitation(p *Progress, inv invitation.Invitation) {
	p.InvitationBased = true
	p.InvitationID = inv.ID
	p.FormData.ApplyPrefill(inv.Prefill())
}

// SaveStep validates the format of the step data and stores it. Presence of required
// fields is only checked at completion.
// Saving the current step moves to the next one; saving an earlier step replaces its data
// and leaves the current step where it is.
func (svc *Service) SaveStep(ctx context.Context, key Key, step Step, data json.RawMessage) (Progress, error) {
	if !step.IsValid() || step.IsTerminal() {
		return Progress{}, core.NewValidationError(ErrUnknownStep, core.FieldError{Field: "step", Error: ErrUnknownStep.Error()})
	}

	p, err := svc.Get(ctx, key)
	if err != nil {
		return Progress{}, err
	}
	if p.IsComplete() {
		return p, ErrAlreadyComplete
	}
	if p.CurrentStep.Before(step) {
		return p, core.NewValidationError(ErrStepNotReached, core.FieldError{Field: "step", Error: ErrStepNotReached.Error()})
	}

	rec, err := decodeStep(step, data)
	if err != nil {
		return p, core.NewValidationError(err, core.FieldError{Field: "data", Error: "malformed step data"})
	}
	if err = core.TranslateValidationErrors(svc.validate.Struct(rec), svc.translator); err != nil {
		return p, err
	}

	p.FormData.set(rec)
	p.markCompleted(step)
	p.UpdatedAt = NowFunc().UTC()
	return svc.repo.Update(ctx, p)
}

// Complete validates the accumulated data, provisions the records and closes the
// onboarding. Missing required fields are reported as a *MissingFieldsError before
// anything is created.
// Completing twice returns the stored result; concurrent calls for the same person share
// a single run.
func (svc *Service) Complete(ctx context.Context, key Key) (Progress, error) {
	sfKey := key.UserID + "|" + core.CleanString(key.Email, true /* lower */)
	v, err, _ := svc.completions.Do(sfKey, func() (interface{}, error) {
		// shared by every caller: one caller going away must not abort the others
		return svc.complete(context.WithoutCancel(ctx), key)
	})
	if v == nil {
		return Progress{}, err
	}
	return v.(Progress), err
}

func (svc *Service) complete(ctx context.Context, key Key) (Progress, error) {
	p, err := svc.Get(ctx, key)
	if err != nil {
		return Progress{}, err
	}
	if p.IsComplete() {
		return p, nil
	}

	var (
		prefill *invitation.Prefill
		inv     invitation.Invitation
	)
	if p.InvitationBased {
		inv, err = svc.invitations.GetByID(ctx, p.InvitationID)
		switch {
		case err == nil:
			pf := inv.Prefill()
			prefill = &pf
		case errors.Is(err, invitation.ErrNotFound):
			svc.logger.Warn(fmt.Sprintf("onboarding %s: invitation %s not found", p.ID, p.InvitationID))
		default:
			return p, errors.Wrap(err, "loading invitation")
		}
	}

	fd := p.FormData.withDefaults(p.Email, prefill)
	if err = ValidateForCompletion(fd); err != nil {
		return p, err
	}

	bundle := Transform(fd, prefill)
	if ident, err := svc.identity.GetUserByEmail(ctx, bundle.User.Email); err == nil {
		bundle.User.IdentityID = ident.ID
	}
	if p.UserID != "" {
		bundle.User.ID = p.UserID
	}

	res, err := svc.provisioner.Provision(ctx, bundle)
	if err != nil {
		return p, err
	}

	if prefill != nil && inv.IsPending() {
		if _, err := svc.invitations.Accept(ctx, inv.Token); err != nil {
			svc.logger.Warn(fmt.Sprintf("onboarding %s: accepting invitation %s: %v", p.ID, inv.ID, err), err)
		}
	}

	now := NowFunc().UTC()
	p.UserID = res.UserID
	p.ProfileID = res.ProfileID
	p.Result = &res
	p.markCompleted(StepComplete)
	p.CurrentStep = StepComplete
	p.CompletedAt = &now
	p.UpdatedAt = now
	saved, err := svc.repo.Update(ctx, p)
	if err != nil {
		return p, errors.Wrap(err, "saving completed onboarding")
	}

	svc.sendCompletionEmails(saved, bundle)
	return saved, nil
}

func (svc *Service) sendCompletionEmails(p Progress, b edfi.Bundle) {
	var msgs []*core.EmailMessage

	welcome, err := svc.templates.Welcome(notify.WelcomeData{
		FirstName:    b.User.FirstName,
		SchoolName:   b.EducationOrganization.NameOfInstitution,
		DashboardURL: svc.templates.URL("/coach/dashboard"),
	})
	if err != nil {
		svc.logger.Error(fmt.Sprintf("onboarding %s: rendering welcome email: %v", p.ID, err), err)
	} else {
		msgs = append(msgs, welcome.Message(mail.Address{Name: b.User.FullName(), Address: b.User.Email}))
	}

	if len(svc.conf.AdminEmails) > 0 {
		admin, err := svc.templates.OnboardingCompleteAdmin(notify.OnboardingCompleteAdminData{
			CoachName:       b.User.FullName(),
			CoachEmail:      b.User.Email,
			SchoolName:      b.EducationOrganization.NameOfInstitution,
			City:            b.EducationOrganization.Address.City,
			State:           b.EducationOrganization.Address.StateAbbreviation,
			Sport:           firstOf(b.School.Sports),
			InvitationBased: p.InvitationBased,
			CompletedAt:     *p.CompletedAt,
		})
		if err != nil {
			svc.logger.Error(fmt.Sprintf("onboarding %s: rendering admin email: %v", p.ID, err), err)
		} else {
			to := make([]mail.Address, 0, len(svc.conf.AdminEmails))
			for _, email := range svc.conf.AdminEmails {
				to = append(to, mail.Address{Address: email})
			}
			msgs = append(msgs, admin.Message(to...))
		}
	}

	if len(msgs) > 0 {
		svc.mailSvc.SendMessages(msgs...)
	}
}

func firstOf(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}
