package invitation

import (
	"context"
	"fmt"
	"net/mail"
	"net/url"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/notify"
)

var (
	// errors
	ErrNotFound      = errors.New("invitation not found")
	ErrExpired       = errors.New("invitation has expired")
	ErrNotPending    = errors.New("invitation is no longer pending")
	ErrPendingExists = errors.New("a pending invitation already exists for this email")
)

type (
	Repository interface {
		Create(ctx context.Context, inv Invitation) (Invitation, error)
		GetByID(ctx context.Context, id string) (Invitation, error)
		GetByToken(ctx context.Context, token string) (Invitation, error)
		// GetPendingByEmail returns ErrNotFound when the email has no PENDING invitation.
		GetPendingByEmail(ctx context.Context, email string) (Invitation, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Invitation, error)
		Update(ctx context.Context, inv Invitation) (Invitation, error)
		// ExpireBefore flips every PENDING invitation that expired at `now` to EXPIRED.
		ExpireBefore(ctx context.Context, now time.Time) (int64, error)
	}

	Service struct {
		repo       Repository
		identity   core.IdentityProvider
		mailSvc    core.EmailService
		templates  *notify.Generator
		logger     core.Logger
		validate   *validator.Validate
		translator ut.Translator
		ttl        time.Duration
	}
)

func NewService(
	repo Repository,
	identity core.IdentityProvider,
	mailSvc core.EmailService,
	templates *notify.Generator,
	logger core.Logger,
	conf *core.Config,
) *Service {
	validate, translator := core.NewValidator()
	InitValidators(validate, translator)

	ttl := conf.InvitationTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Service{
		repo:       repo,
		identity:   identity,
		mailSvc:    mailSvc,
		templates:  templates,
		logger:     logger,
		validate:   validate,
		translator: translator,
		ttl:        ttl,
	}
}

func (svc *Service) validateStruct(s interface{}) error {
	return core.TranslateValidationErrors(svc.validate.Struct(s), svc.translator)
}

// checkNoPending fails when `email` already has a live PENDING invitation. One found past
// its expiry date is marked EXPIRED so it no longer blocks a new invitation.
func (svc *Service) checkNoPending(ctx context.Context, email string) error {
	inv, err := svc.repo.GetPendingByEmail(ctx, email)
	switch {
	case err == nil:
		now := NowFunc().UTC()
		if !inv.IsExpired(now) {
			return pendingExistsError()
		}
		inv.Status = StatusExpired
		inv.UpdatedAt = now
		if _, err = svc.repo.Update(ctx, inv); err != nil {
			return errors.Wrap(err, "expiring invitation")
		}
		return nil
	case errors.Is(err, ErrNotFound):
		return nil
	default:
		return errors.Wrap(err, "checking pending invitations")
	}
}

func pendingExistsError() error {
	return core.NewValidationError(ErrPendingExists, core.FieldError{Field: "email", Error: ErrPendingExists.Error()})
}

// BuildCoachInvitation validates `ci` and returns the invitation it describes without
// storing it.
func (svc *Service) BuildCoachInvitation(ctx context.Context, ci CoachInvite) (Invitation, error) {
	ci.Clean()
	if err := svc.validateStruct(ci); err != nil {
		return Invitation{}, err
	}

	first, last := SplitName(ci.Name)
	city, state, _ := ParseLocation(ci.Location)
	return svc.newInvitation(TypeCoach, Invitation{
		Email:            ci.Email,
		InvitedBy:        ci.InvitedBy,
		FirstName:        first,
		LastName:         last,
		Phone:            FormatPhoneNumber(ci.Cell),
		City:             city,
		State:            state,
		Bio:              ci.Bio,
		D1AthleticsCount: ci.D1AthleticsCount,
	}), nil
}

// CreateCoachInvitation stores a PENDING coach invitation, makes sure the coach has a
// sign-in account and e-mails the invitation link.
// The e-mail is sent in the background: a delivery failure is logged, never rolled back.
func (svc *Service) CreateCoachInvitation(ctx context.Context, ci CoachInvite) (Invitation, error) {
	inv, err := svc.BuildCoachInvitation(ctx, ci)
	if err != nil {
		return Invitation{}, err
	}
	if err = svc.checkNoPending(ctx, inv.Email); err != nil {
		return Invitation{}, err
	}
	if err = svc.ensureIdentity(ctx, inv); err != nil {
		return Invitation{}, err
	}

	inv, err = svc.repo.Create(ctx, inv)
	if err != nil {
		if errors.Is(err, ErrPendingExists) {
			return Invitation{}, pendingExistsError()
		}
		return Invitation{}, errors.Wrap(err, "creating invitation")
	}
	svc.sendInvitationEmail(inv)
	return inv, nil
}

// CreateParentInvitation turns a parent application into a PENDING parent invitation.
func (svc *Service) CreateParentInvitation(ctx context.Context, pa ParentApplication) (Invitation, error) {
	pa.Clean()
	if err := svc.validateStruct(pa); err != nil {
		return Invitation{}, err
	}
	if err := svc.checkNoPending(ctx, pa.Email); err != nil {
		return Invitation{}, err
	}

	first, last := SplitName(pa.ParentName)
	inv := svc.newInvitation(TypeParent, Invitation{
		Email:        pa.Email,
		InvitedBy:    pa.InvitedBy,
		FirstName:    first,
		LastName:     last,
		Phone:        FormatPhoneNumber(pa.Phone),
		City:         pa.City,
		State:        pa.State,
		SchoolName:   pa.SchoolName,
		Sport:        pa.Sport,
		StudentName:  pa.StudentName,
		StudentGrade: pa.StudentGrade,
		Message:      pa.Message,
	})

	inv, err := svc.repo.Create(ctx, inv)
	if err != nil {
		if errors.Is(err, ErrPendingExists) {
			return Invitation{}, pendingExistsError()
		}
		return Invitation{}, errors.Wrap(err, "creating invitation")
	}
	svc.sendInvitationEmail(inv)
	return inv, nil
}

func (svc *Service) newInvitation(typ Type, inv Invitation) Invitation {
	now := NowFunc().UTC()
	inv.ID = uuid.NewString()
	inv.Type = typ
	inv.Status = StatusPending
	inv.Token = GenerateToken()
	inv.ExpiresAt = now.Add(svc.ttl)
	inv.CreatedAt = now
	inv.UpdatedAt = now
	return inv
}

func (svc *Service) ensureIdentity(ctx context.Context, inv Invitation) error {
	_, err := svc.identity.CreateUser(ctx, inv.Email, map[string]string{
		"given_name":  inv.FirstName,
		"family_name": inv.LastName,
		"phone":       inv.Phone,
		"role":        string(inv.Type),
	})
	if err == nil || errors.Is(err, core.ErrIdentityExists) {
		return nil
	}
	return errors.Wrap(err, "creating identity user")
}

// Validate returns the invitation behind `token` if it can still be accepted.
// A PENDING invitation found past its expiry date is marked EXPIRED.
func (svc *Service) Validate(ctx context.Context, token string) (Invitation, error) {
	inv, err := svc.repo.GetByToken(ctx, core.CleanString(token, true /* lower */))
	if err != nil {
		return Invitation{}, err
	}
	if !inv.IsPending() {
		return inv, ErrNotPending
	}
	if now := NowFunc().UTC(); inv.IsExpired(now) {
		inv.Status = StatusExpired
		inv.UpdatedAt = now
		if inv, err = svc.repo.Update(ctx, inv); err != nil {
			return Invitation{}, errors.Wrap(err, "expiring invitation")
		}
		return inv, ErrExpired
	}
	return inv, nil
}

// Accept marks a valid invitation as ACCEPTED.
func (svc *Service) Accept(ctx context.Context, token string) (Invitation, error) {
	inv, err := svc.Validate(ctx, token)
	if err != nil {
		return Invitation{}, err
	}
	now := NowFunc().UTC()
	inv.Status = StatusAccepted
	inv.AcceptedAt = &now
	inv.UpdatedAt = now
	return svc.repo.Update(ctx, inv)
}

// Revoke withdraws a PENDING invitation on behalf of an admin.
func (svc *Service) Revoke(ctx context.Context, id string) (Invitation, error) {
	return svc.close(ctx, id, StatusRevoked)
}

// Cancel withdraws a PENDING invitation on behalf of the invitee.
func (svc *Service) Cancel(ctx context.Context, id string) (Invitation, error) {
	return svc.close(ctx, id, StatusCancelled)
}

func (svc *Service) close(ctx context.Context, id string, status Status) (Invitation, error) {
	inv, err := svc.repo.GetByID(ctx, id)
	if err != nil {
		return Invitation{}, err
	}
	if !inv.IsPending() {
		return inv, ErrNotPending
	}
	inv.Status = status
	inv.UpdatedAt = NowFunc().UTC()
	return svc.repo.Update(ctx, inv)
}

// ExpireStale marks every overdue PENDING invitation as EXPIRED and returns how many were.
func (svc *Service) ExpireStale(ctx context.Context) (int64, error) {
	n, err := svc.repo.ExpireBefore(ctx, NowFunc().UTC())
	if err != nil {
		return 0, errors.Wrap(err, "expiring invitations")
	}
	return n, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Invitation, error) {
	return svc.repo.GetByID(ctx, id)
}

func (svc *Service) GetPendingByEmail(ctx context.Context, email string) (Invitation, error) {
	return svc.repo.GetPendingByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Invitation, error) {
	return svc.repo.Query(ctx, filter, ordering)
}

// InviteURL is the onboarding link e-mailed to the invitee.
func (svc *Service) InviteURL(inv Invitation) string {
	path := "/onboarding"
	if inv.Type == TypeParent {
		path = "/parent-onboarding"
	}
	return svc.templates.URL(path + "?invite=" + url.QueryEscape(inv.Token))
}

// InvitationEmail renders the invitation e-mail of `inv`.
func (svc *Service) InvitationEmail(inv Invitation) (*core.EmailMessage, error) {
	var (
		r   notify.Rendered
		err error
	)
	switch inv.Type {
	case TypeParent:
		r, err = svc.templates.ParentInvitation(notify.ParentInvitationData{
			ParentName:  inv.FullName(),
			StudentName: inv.StudentName,
			SchoolName:  inv.SchoolName,
			InviteURL:   svc.InviteURL(inv),
			ExpiresAt:   inv.ExpiresAt,
		})
	default:
		r, err = svc.templates.CoachInvitation(notify.CoachInvitationData{
			FirstName: inv.FirstName,
			InviteURL: svc.InviteURL(inv),
			Message:   inv.Message,
			ExpiresAt: inv.ExpiresAt,
		})
	}
	if err != nil {
		return nil, errors.Wrap(err, "rendering invitation email")
	}
	return r.Message(mail.Address{Name: inv.FullName(), Address: inv.Email}), nil
}

// SendInvitationEmail delivers the invitation e-mail synchronously.
func (svc *Service) SendInvitationEmail(ctx context.Context, inv Invitation) core.SendResult {
	msg, err := svc.InvitationEmail(inv)
	if err != nil {
		return core.SendResult{Err: err}
	}
	return svc.mailSvc.Send(ctx, msg)
}

func (svc *Service) sendInvitationEmail(inv Invitation) {
	msg, err := svc.InvitationEmail(inv)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("invitation %s: %v", inv.ID, err), err)
		return
	}
	svc.mailSvc.SendMessages(msg)
}
