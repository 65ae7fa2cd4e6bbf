package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core/edfi"
)

type edfiRepository struct {
	org     *table[int64, edfi.EducationOrganization]
	school  *table[int64, edfi.School]
	staff   *table[int64, edfi.Staff]
	parent  *table[int64, edfi.Parent]
	student *table[int64, edfi.Student]
}

var _ edfi.Repository = (*edfiRepository)(nil) // interface compliance check

func NewEdfiRepository(db *DB) edfi.Repository {
	return &edfiRepository{org: db.org, school: db.school, staff: db.staff, parent: db.parent, student: db.student}
}

// insert stores `row` under `id` unless the key is taken.
func insert[T any](t *table[int64, T], id int64, row T) (T, error) {
	t.Lock()
	defer t.Unlock()

	if _, ok := t.rows[id]; ok {
		var zero T
		return zero, edfi.ErrDuplicate
	}
	t.rows[id] = &row
	return row, nil
}

func find[T any](t *table[int64, T], keep func(*T) bool) (T, error) {
	t.RLock()
	defer t.RUnlock()

	if row, ok := t.first(keep); ok {
		return row, nil
	}
	var zero T
	return zero, edfi.ErrNotFound
}

func (repo *edfiRepository) CreateEducationOrganization(_ context.Context, org edfi.EducationOrganization) (edfi.EducationOrganization, error) {
	return insert(repo.org, org.ID, org)
}

func (repo *edfiRepository) GetEducationOrganization(_ context.Context, id int64) (edfi.EducationOrganization, error) {
	return find(repo.org, func(o *edfi.EducationOrganization) bool { return o.ID == id })
}

func (repo *edfiRepository) FindEducationOrganization(_ context.Context, name, state string) (edfi.EducationOrganization, error) {
	return find(repo.org, func(o *edfi.EducationOrganization) bool {
		return strings.EqualFold(o.NameOfInstitution, name) && o.Address.StateAbbreviation == state
	})
}

func (repo *edfiRepository) CreateSchool(ctx context.Context, sch edfi.School) (edfi.School, error) {
	if _, err := repo.GetSchoolByEducationOrganization(ctx, sch.EducationOrganizationID); err == nil {
		return edfi.School{}, edfi.ErrDuplicate
	}
	sch.GradeLevels = nonNil(sch.GradeLevels)
	sch.Sports = nonNil(sch.Sports)
	return insert(repo.school, sch.ID, sch)
}

func (repo *edfiRepository) GetSchoolByEducationOrganization(_ context.Context, orgID int64) (edfi.School, error) {
	return find(repo.school, func(s *edfi.School) bool { return s.EducationOrganizationID == orgID })
}

func (repo *edfiRepository) CreateStaff(ctx context.Context, stf edfi.Staff) (edfi.Staff, error) {
	if _, err := repo.GetStaffByUserID(ctx, stf.UserID); err == nil {
		return edfi.Staff{}, edfi.ErrDuplicate
	}
	return insert(repo.staff, stf.StaffUSI, stf)
}

func (repo *edfiRepository) GetStaffByUserID(_ context.Context, userID string) (edfi.Staff, error) {
	return find(repo.staff, func(s *edfi.Staff) bool { return s.UserID == userID })
}

func (repo *edfiRepository) CreateParent(ctx context.Context, p edfi.Parent) (edfi.Parent, error) {
	if _, err := repo.GetParentByUserID(ctx, p.UserID); err == nil {
		return edfi.Parent{}, edfi.ErrDuplicate
	}
	return insert(repo.parent, p.ParentUSI, p)
}

func (repo *edfiRepository) GetParentByUserID(_ context.Context, userID string) (edfi.Parent, error) {
	return find(repo.parent, func(p *edfi.Parent) bool { return p.UserID == userID })
}

func (repo *edfiRepository) CreateStudent(_ context.Context, st edfi.Student) (edfi.Student, error) {
	return insert(repo.student, st.StudentUSI, st)
}

func (repo *edfiRepository) QueryStudents(_ context.Context, schoolID int64) ([]edfi.Student, error) {
	repo.student.RLock()
	defer repo.student.RUnlock()

	students := repo.student.all(func(s *edfi.Student) bool { return s.SchoolID == schoolID })
	sort.Slice(students, func(i, j int) bool {
		if students[i].LastSurname != students[j].LastSurname {
			return students[i].LastSurname < students[j].LastSurname
		}
		return students[i].FirstName < students[j].FirstName
	})
	return students, nil
}
