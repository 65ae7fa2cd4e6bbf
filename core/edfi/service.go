package edfi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/user"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// provisioning stages
const (
	StageUser                  = "user"
	StageProfile               = "profile"
	StageEducationOrganization = "education_organization"
	StageSchool                = "school"
	StageStaff                 = "staff"
	StageParent                = "parent"
	StageStudents              = "students"
)

type Repository interface {
	CreateEducationOrganization(ctx context.Context, org EducationOrganization) (EducationOrganization, error)
	GetEducationOrganization(ctx context.Context, id int64) (EducationOrganization, error)
	// FindEducationOrganization matches the name case-insensitively.
	FindEducationOrganization(ctx context.Context, name, state string) (EducationOrganization, error)
	CreateSchool(ctx context.Context, sch School) (School, error)
	GetSchoolByEducationOrganization(ctx context.Context, orgID int64) (School, error)
	CreateStaff(ctx context.Context, stf Staff) (Staff, error)
	GetStaffByUserID(ctx context.Context, userID string) (Staff, error)
	CreateParent(ctx context.Context, p Parent) (Parent, error)
	GetParentByUserID(ctx context.Context, userID string) (Parent, error)
	CreateStudent(ctx context.Context, st Student) (Student, error)
	QueryStudents(ctx context.Context, schoolID int64) ([]Student, error)
}

// ProvisionError reports the stage a provisioning run failed at and what it had already
// created. Running Provision again with the same bundle resumes from that stage.
type ProvisionError struct {
	Stage   string
	Created Result
	Err     error
}

func (err *ProvisionError) Error() string {
	return fmt.Sprintf("provisioning failed at stage %q: %v", err.Stage, err.Err)
}

func (err *ProvisionError) Unwrap() error { return err.Err }

// Provisioner creates the records of an onboarding bundle.
// Every stage looks its record up by a natural key before creating it, so a failed run
// can be retried without duplicating the records it already created.
type Provisioner struct {
	users  user.Repository
	repo   Repository
	ids    *IDGenerator
	logger core.Logger
}

func NewProvisioner(users user.Repository, repo Repository, ids *IDGenerator, logger core.Logger) *Provisioner {
	return &Provisioner{users: users, repo: repo, ids: ids, logger: logger}
}

// Provision creates User, Profile, EducationOrganization, School, Staff (or Parent) and
// Students, in that order.
func (p *Provisioner) Provision(ctx context.Context, b Bundle) (Result, error) {
	var res Result
	now := NowFunc().UTC()
	fail := func(stage string, err error) (Result, error) {
		p.logger.Error(fmt.Sprintf("provisioning %s: stage %s: %v", b.User.Email, stage, err), err,
			map[string]interface{}{"stage": stage, "created": res})
		return res, &ProvisionError{Stage: stage, Created: res, Err: err}
	}

	usr, err := p.getOrCreateUser(ctx, b.User, now)
	if err != nil {
		return fail(StageUser, err)
	}
	res.UserID = usr.ID

	prof, err := p.getOrCreateProfile(ctx, usr.ID, b.Profile, now)
	if err != nil {
		return fail(StageProfile, err)
	}
	res.ProfileID = prof.ID

	org, err := p.getOrCreateOrganization(ctx, b.EducationOrganization, now)
	if err != nil {
		return fail(StageEducationOrganization, err)
	}
	res.EducationOrganizationID = org.ID

	sch, err := p.getOrCreateSchool(ctx, org.ID, b.School, now)
	if err != nil {
		return fail(StageSchool, err)
	}
	res.SchoolID = sch.ID

	switch {
	case b.Staff != nil:
		stf, err := p.getOrCreateStaff(ctx, usr.ID, sch.ID, *b.Staff, now)
		if err != nil {
			return fail(StageStaff, err)
		}
		res.StaffUSI = stf.StaffUSI
	case b.Parent != nil:
		par, err := p.getOrCreateParent(ctx, usr.ID, *b.Parent, now)
		if err != nil {
			return fail(StageParent, err)
		}
		res.ParentUSI = par.ParentUSI
	}

	if len(b.Students) > 0 {
		usis, err := p.getOrCreateStudents(ctx, sch.ID, b.Students, now)
		res.StudentUSIs = usis
		if err != nil {
			return fail(StageStudents, err)
		}
	}
	return res, nil
}

func (p *Provisioner) getOrCreateUser(ctx context.Context, usr user.User, now time.Time) (user.User, error) {
	existing, err := p.users.GetUser(ctx, user.GetFilter{Email: usr.Email})
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return user.User{}, err
	}
	if usr.ID == "" {
		usr.ID = uuid.NewString()
	}
	usr.CreatedAt = now
	usr.UpdatedAt = now
	return p.users.CreateUser(ctx, usr)
}

func (p *Provisioner) getOrCreateProfile(ctx context.Context, userID string, prof user.Profile, now time.Time) (user.Profile, error) {
	existing, err := p.users.GetProfile(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, user.ErrProfileNotFound) {
		return user.Profile{}, err
	}
	prof.ID = uuid.NewString()
	prof.UserID = userID
	prof.CreatedAt = now
	prof.UpdatedAt = now
	return p.users.CreateProfile(ctx, prof)
}

func (p *Provisioner) getOrCreateOrganization(ctx context.Context, org EducationOrganization, now time.Time) (EducationOrganization, error) {
	existing, err := p.repo.FindEducationOrganization(ctx, org.NameOfInstitution, org.Address.StateAbbreviation)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return EducationOrganization{}, err
	}
	org.ID = p.ids.Next()
	org.CreatedAt = now
	org.UpdatedAt = now
	return p.repo.CreateEducationOrganization(ctx, org)
}

func (p *Provisioner) getOrCreateSchool(ctx context.Context, orgID int64, sch School, now time.Time) (School, error) {
	existing, err := p.repo.GetSchoolByEducationOrganization(ctx, orgID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return School{}, err
	}
	sch.ID = p.ids.Next()
	sch.EducationOrganizationID = orgID
	sch.CreatedAt = now
	sch.UpdatedAt = now
	return p.repo.CreateSchool(ctx, sch)
}

func (p *Provisioner) getOrCreateStaff(ctx context.Context, userID string, schoolID int64, stf Staff, now time.Time) (Staff, error) {
	existing, err := p.repo.GetStaffByUserID(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Staff{}, err
	}
	stf.StaffUSI = p.ids.Next()
	stf.UserID = userID
	stf.SchoolID = schoolID
	stf.CreatedAt = now
	stf.UpdatedAt = now
	return p.repo.CreateStaff(ctx, stf)
}

func (p *Provisioner) getOrCreateParent(ctx context.Context, userID string, par Parent, now time.Time) (Parent, error) {
	existing, err := p.repo.GetParentByUserID(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Parent{}, err
	}
	par.ParentUSI = p.ids.Next()
	par.UserID = userID
	par.CreatedAt = now
	par.UpdatedAt = now
	return p.repo.CreateParent(ctx, par)
}

func (p *Provisioner) getOrCreateStudents(ctx context.Context, schoolID int64, students []Student, now time.Time) ([]int64, error) {
	existing, err := p.repo.QueryStudents(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	known := make(map[string]int64, len(existing))
	for _, st := range existing {
		known[studentKey(st)] = st.StudentUSI
	}

	usis := make([]int64, 0, len(students))
	for _, st := range students {
		key := studentKey(st)
		if usi, ok := known[key]; ok {
			usis = append(usis, usi)
			continue
		}
		st.StudentUSI = p.ids.Next()
		st.SchoolID = schoolID
		st.CreatedAt = now
		st.UpdatedAt = now
		created, err := p.repo.CreateStudent(ctx, st)
		if err != nil {
			return usis, err
		}
		known[key] = created.StudentUSI
		usis = append(usis, created.StudentUSI)
	}
	return usis, nil
}

func studentKey(st Student) string {
	birth := ""
	if st.BirthDate != nil {
		birth = st.BirthDate.Format("2006-01-02")
	}
	return strings.ToLower(st.FirstName + "|" + st.LastSurname + "|" + birth)
}
