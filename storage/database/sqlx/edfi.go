package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"gorm.io/datatypes"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core/edfi"
)

const (
	orgColumns = "id, name_of_institution, short_name_of_institution, web_site, phone, category, " +
		"operational_status, address_type, street_number_name, city, state_abbreviation, postal_code, " +
		"created_at, updated_at"
	schoolColumns = "id, education_organization_id, school_type, grade_levels, sports, academic_focus, " +
		"description, estimated_student_count, opening_date, created_at, updated_at"
	staffColumns = "staff_usi, user_id, school_id, first_name, last_surname, email, phone, sex, birth_date, " +
		"position_title, years_of_prior_professional_xp, created_at, updated_at"
	parentColumns  = "parent_usi, user_id, first_name, last_surname, email, phone, created_at, updated_at"
	studentColumns = "student_usi, school_id, first_name, last_surname, sex, birth_date, grade_level, created_at, updated_at"
)

type (
	orgRow struct {
		ID                     int64     `db:"id"`
		NameOfInstitution      string    `db:"name_of_institution"`
		ShortNameOfInstitution string    `db:"short_name_of_institution"`
		WebSite                string    `db:"web_site"`
		Phone                  string    `db:"phone"`
		Category               string    `db:"category"`
		OperationalStatus      string    `db:"operational_status"`
		AddressType            string    `db:"address_type"`
		StreetNumberName       string    `db:"street_number_name"`
		City                   string    `db:"city"`
		StateAbbreviation      string    `db:"state_abbreviation"`
		PostalCode             string    `db:"postal_code"`
		CreatedAt              time.Time `db:"created_at"`
		UpdatedAt              time.Time `db:"updated_at"`
	}

	schoolRow struct {
		ID                      int64                       `db:"id"`
		EducationOrganizationID int64                       `db:"education_organization_id"`
		SchoolType              string                      `db:"school_type"`
		GradeLevels             datatypes.JSONSlice[string] `db:"grade_levels"`
		Sports                  datatypes.JSONSlice[string] `db:"sports"`
		AcademicFocus           string                      `db:"academic_focus"`
		Description             string                      `db:"description"`
		EstimatedStudentCount   int                         `db:"estimated_student_count"`
		OpeningDate             string                      `db:"opening_date"`
		CreatedAt               time.Time                   `db:"created_at"`
		UpdatedAt               time.Time                   `db:"updated_at"`
	}

	staffRow struct {
		StaffUSI                   int64      `db:"staff_usi"`
		UserID                     string     `db:"user_id"`
		SchoolID                   int64      `db:"school_id"`
		FirstName                  string     `db:"first_name"`
		LastSurname                string     `db:"last_surname"`
		Email                      string     `db:"email"`
		Phone                      string     `db:"phone"`
		Sex                        string     `db:"sex"`
		BirthDate                  *time.Time `db:"birth_date"`
		PositionTitle              string     `db:"position_title"`
		YearsOfPriorProfessionalXP int        `db:"years_of_prior_professional_xp"`
		CreatedAt                  time.Time  `db:"created_at"`
		UpdatedAt                  time.Time  `db:"updated_at"`
	}

	parentRow struct {
		ParentUSI   int64     `db:"parent_usi"`
		UserID      string    `db:"user_id"`
		FirstName   string    `db:"first_name"`
		LastSurname string    `db:"last_surname"`
		Email       string    `db:"email"`
		Phone       string    `db:"phone"`
		CreatedAt   time.Time `db:"created_at"`
		UpdatedAt   time.Time `db:"updated_at"`
	}

	studentRow struct {
		StudentUSI  int64      `db:"student_usi"`
		SchoolID    int64      `db:"school_id"`
		FirstName   string     `db:"first_name"`
		LastSurname string     `db:"last_surname"`
		Sex         string     `db:"sex"`
		BirthDate   *time.Time `db:"birth_date"`
		GradeLevel  string     `db:"grade_level"`
		CreatedAt   time.Time  `db:"created_at"`
		UpdatedAt   time.Time  `db:"updated_at"`
	}
)

func (r orgRow) org() edfi.EducationOrganization {
	return edfi.EducationOrganization{
		ID:                     r.ID,
		NameOfInstitution:      r.NameOfInstitution,
		ShortNameOfInstitution: r.ShortNameOfInstitution,
		WebSite:                r.WebSite,
		Phone:                  r.Phone,
		Category:               r.Category,
		OperationalStatus:      r.OperationalStatus,
		Address: edfi.Address{
			AddressType:       r.AddressType,
			StreetNumberName:  r.StreetNumberName,
			City:              r.City,
			StateAbbreviation: r.StateAbbreviation,
			PostalCode:        r.PostalCode,
		},
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func (r schoolRow) school() edfi.School {
	return edfi.School{
		ID:                      r.ID,
		EducationOrganizationID: r.EducationOrganizationID,
		SchoolType:              r.SchoolType,
		GradeLevels:             nonNil(r.GradeLevels),
		Sports:                  nonNil(r.Sports),
		AcademicFocus:           r.AcademicFocus,
		Description:             r.Description,
		EstimatedStudentCount:   r.EstimatedStudentCount,
		OpeningDate:             r.OpeningDate,
		CreatedAt:               r.CreatedAt.UTC(),
		UpdatedAt:               r.UpdatedAt.UTC(),
	}
}

func (r staffRow) staff() edfi.Staff {
	return edfi.Staff{
		StaffUSI:                   r.StaffUSI,
		UserID:                     r.UserID,
		SchoolID:                   r.SchoolID,
		FirstName:                  r.FirstName,
		LastSurname:                r.LastSurname,
		Email:                      r.Email,
		Phone:                      r.Phone,
		Sex:                        r.Sex,
		BirthDate:                  utcPtr(r.BirthDate),
		PositionTitle:              r.PositionTitle,
		YearsOfPriorProfessionalXP: r.YearsOfPriorProfessionalXP,
		CreatedAt:                  r.CreatedAt.UTC(),
		UpdatedAt:                  r.UpdatedAt.UTC(),
	}
}

func (r parentRow) parent() edfi.Parent {
	return edfi.Parent{
		ParentUSI:   r.ParentUSI,
		UserID:      r.UserID,
		FirstName:   r.FirstName,
		LastSurname: r.LastSurname,
		Email:       r.Email,
		Phone:       r.Phone,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

func (r studentRow) student() edfi.Student {
	return edfi.Student{
		StudentUSI:  r.StudentUSI,
		SchoolID:    r.SchoolID,
		FirstName:   r.FirstName,
		LastSurname: r.LastSurname,
		Sex:         r.Sex,
		BirthDate:   utcPtr(r.BirthDate),
		GradeLevel:  r.GradeLevel,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type edfiRepository struct {
	db *sqlx.DB
}

var _ edfi.Repository = (*edfiRepository)(nil) // interface compliance check

func NewEdfiRepository(db *sqlx.DB) edfi.Repository {
	return &edfiRepository{db: db}
}

func (repo edfiRepository) get(ctx context.Context, dest interface{}, msg, q string, args ...interface{}) error {
	if err := repo.db.GetContext(ctx, dest, repo.db.Rebind(q), args...); err != nil {
		return trapNoRowsErr(err, edfi.ErrNotFound, msg)
	}
	return nil
}

func insertErr(err error, msg string) error {
	if isUniqueViolation(err) {
		return edfi.ErrDuplicate
	}
	return errors.Wrap(err, msg)
}

func (repo edfiRepository) CreateEducationOrganization(ctx context.Context, org edfi.EducationOrganization) (edfi.EducationOrganization, error) {
	row := orgRow{
		ID:                     org.ID,
		NameOfInstitution:      org.NameOfInstitution,
		ShortNameOfInstitution: org.ShortNameOfInstitution,
		WebSite:                org.WebSite,
		Phone:                  org.Phone,
		Category:               org.Category,
		OperationalStatus:      org.OperationalStatus,
		AddressType:            org.Address.AddressType,
		StreetNumberName:       org.Address.StreetNumberName,
		City:                   org.Address.City,
		StateAbbreviation:      org.Address.StateAbbreviation,
		PostalCode:             org.Address.PostalCode,
		CreatedAt:              org.CreatedAt.UTC(),
		UpdatedAt:              org.UpdatedAt.UTC(),
	}
	q := "INSERT INTO education_organizations (" + orgColumns + ") VALUES (:id, :name_of_institution, " +
		":short_name_of_institution, :web_site, :phone, :category, :operational_status, :address_type, " +
		":street_number_name, :city, :state_abbreviation, :postal_code, :created_at, :updated_at)"
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return edfi.EducationOrganization{}, insertErr(err, "inserting education organization")
	}
	return row.org(), nil
}

func (repo edfiRepository) GetEducationOrganization(ctx context.Context, id int64) (edfi.EducationOrganization, error) {
	var row orgRow
	err := repo.get(ctx, &row, "finding education organization",
		"SELECT "+orgColumns+" FROM education_organizations WHERE id = ?", id)
	return row.org(), err
}

func (repo edfiRepository) FindEducationOrganization(ctx context.Context, name, state string) (edfi.EducationOrganization, error) {
	var row orgRow
	err := repo.get(ctx, &row, "finding education organization",
		"SELECT "+orgColumns+" FROM education_organizations WHERE LOWER(name_of_institution) = LOWER(?) "+
			"AND state_abbreviation = ? ORDER BY created_at LIMIT 1", name, state)
	return row.org(), err
}

func (repo edfiRepository) CreateSchool(ctx context.Context, sch edfi.School) (edfi.School, error) {
	row := schoolRow{
		ID:                      sch.ID,
		EducationOrganizationID: sch.EducationOrganizationID,
		SchoolType:              sch.SchoolType,
		GradeLevels:             datatypes.NewJSONSlice(nonNil(sch.GradeLevels)),
		Sports:                  datatypes.NewJSONSlice(nonNil(sch.Sports)),
		AcademicFocus:           sch.AcademicFocus,
		Description:             sch.Description,
		EstimatedStudentCount:   sch.EstimatedStudentCount,
		OpeningDate:             sch.OpeningDate,
		CreatedAt:               sch.CreatedAt.UTC(),
		UpdatedAt:               sch.UpdatedAt.UTC(),
	}
	q := "INSERT INTO schools (" + schoolColumns + ") VALUES (:id, :education_organization_id, :school_type, " +
		":grade_levels, :sports, :academic_focus, :description, :estimated_student_count, :opening_date, " +
		":created_at, :updated_at)"
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return edfi.School{}, insertErr(err, "inserting school")
	}
	return row.school(), nil
}

func (repo edfiRepository) GetSchoolByEducationOrganization(ctx context.Context, orgID int64) (edfi.School, error) {
	var row schoolRow
	err := repo.get(ctx, &row, "finding school",
		"SELECT "+schoolColumns+" FROM schools WHERE education_organization_id = ?", orgID)
	return row.school(), err
}

func (repo edfiRepository) CreateStaff(ctx context.Context, stf edfi.Staff) (edfi.Staff, error) {
	row := staffRow{
		StaffUSI:                   stf.StaffUSI,
		UserID:                     stf.UserID,
		SchoolID:                   stf.SchoolID,
		FirstName:                  stf.FirstName,
		LastSurname:                stf.LastSurname,
		Email:                      stf.Email,
		Phone:                      stf.Phone,
		Sex:                        stf.Sex,
		BirthDate:                  utcPtr(stf.BirthDate),
		PositionTitle:              stf.PositionTitle,
		YearsOfPriorProfessionalXP: stf.YearsOfPriorProfessionalXP,
		CreatedAt:                  stf.CreatedAt.UTC(),
		UpdatedAt:                  stf.UpdatedAt.UTC(),
	}
	q := "INSERT INTO staff (" + staffColumns + ") VALUES (:staff_usi, :user_id, :school_id, :first_name, " +
		":last_surname, :email, :phone, :sex, :birth_date, :position_title, :years_of_prior_professional_xp, " +
		":created_at, :updated_at)"
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return edfi.Staff{}, insertErr(err, "inserting staff")
	}
	return row.staff(), nil
}

func (repo edfiRepository) GetStaffByUserID(ctx context.Context, userID string) (edfi.Staff, error) {
	var row staffRow
	err := repo.get(ctx, &row, "finding staff", "SELECT "+staffColumns+" FROM staff WHERE user_id = ?", userID)
	return row.staff(), err
}

func (repo edfiRepository) CreateParent(ctx context.Context, p edfi.Parent) (edfi.Parent, error) {
	row := parentRow{
		ParentUSI:   p.ParentUSI,
		UserID:      p.UserID,
		FirstName:   p.FirstName,
		LastSurname: p.LastSurname,
		Email:       p.Email,
		Phone:       p.Phone,
		CreatedAt:   p.CreatedAt.UTC(),
		UpdatedAt:   p.UpdatedAt.UTC(),
	}
	q := "INSERT INTO parents (" + parentColumns + ") VALUES (:parent_usi, :user_id, :first_name, :last_surname, " +
		":email, :phone, :created_at, :updated_at)"
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return edfi.Parent{}, insertErr(err, "inserting parent")
	}
	return row.parent(), nil
}

func (repo edfiRepository) GetParentByUserID(ctx context.Context, userID string) (edfi.Parent, error) {
	var row parentRow
	err := repo.get(ctx, &row, "finding parent", "SELECT "+parentColumns+" FROM parents WHERE user_id = ?", userID)
	return row.parent(), err
}

func (repo edfiRepository) CreateStudent(ctx context.Context, st edfi.Student) (edfi.Student, error) {
	row := studentRow{
		StudentUSI:  st.StudentUSI,
		SchoolID:    st.SchoolID,
		FirstName:   st.FirstName,
		LastSurname: st.LastSurname,
		Sex:         st.Sex,
		BirthDate:   utcPtr(st.BirthDate),
		GradeLevel:  st.GradeLevel,
		CreatedAt:   st.CreatedAt.UTC(),
		UpdatedAt:   st.UpdatedAt.UTC(),
	}
	q := "INSERT INTO students (" + studentColumns + ") VALUES (:student_usi, :school_id, :first_name, " +
		":last_surname, :sex, :birth_date, :grade_level, :created_at, :updated_at)"
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return edfi.Student{}, insertErr(err, "inserting student")
	}
	return row.student(), nil
}

func (repo edfiRepository) QueryStudents(ctx context.Context, schoolID int64) ([]edfi.Student, error) {
	var rows []studentRow
	q := repo.db.Rebind("SELECT " + studentColumns + " FROM students WHERE school_id = ? ORDER BY last_surname, first_name")
	if err := repo.db.SelectContext(ctx, &rows, q, schoolID); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]edfi.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.student())
	}
	return students, nil
}
