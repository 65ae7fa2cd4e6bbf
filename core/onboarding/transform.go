package onboarding

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/edfi"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/invitation"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/user"
)

const dateLayout = "2006-01-02"

// Ed-Fi grade level descriptors, in school order.
var gradeLevels = []string{
	"Infant/toddler",
	"Preschool/Prekindergarten",
	"Kindergarten",
	"First grade",
	"Second grade",
	"Third grade",
	"Fourth grade",
	"Fifth grade",
	"Sixth grade",
	"Seventh grade",
	"Eighth grade",
	"Ninth grade",
	"Tenth grade",
	"Eleventh grade",
	"Twelfth grade",
	"Postsecondary",
	"Adult Education",
	"Ungraded",
}

var (
	gradeNumberRegex = regexp.MustCompile(`^(\d{1,2})(st|nd|rd|th)?( grade)?$`)
	gradeAliases     = map[string]string{
		"infant":          "Infant/toddler",
		"toddler":         "Infant/toddler",
		"pk":              "Preschool/Prekindergarten",
		"pre-k":           "Preschool/Prekindergarten",
		"prek":            "Preschool/Prekindergarten",
		"preschool":       "Preschool/Prekindergarten",
		"prekindergarten": "Preschool/Prekindergarten",
		"k":               "Kindergarten",
		"kg":              "Kindergarten",
		"kindergarten":    "Kindergarten",
		"first":           "First grade",
		"second":          "Second grade",
		"third":           "Third grade",
		"fourth":          "Fourth grade",
		"fifth":           "Fifth grade",
		"sixth":           "Sixth grade",
		"seventh":         "Seventh grade",
		"eighth":          "Eighth grade",
		"ninth":           "Ninth grade",
		"tenth":           "Tenth grade",
		"eleventh":        "Eleventh grade",
		"twelfth":         "Twelfth grade",
		"freshman":        "Ninth grade",
		"sophomore":       "Tenth grade",
		"junior":          "Eleventh grade",
		"senior":          "Twelfth grade",
		"college":         "Postsecondary",
		"postsecondary":   "Postsecondary",
		"adult":           "Adult Education",
		"ungraded":        "Ungraded",
	}
)

// Transform maps the collected form data onto the records created at completion.
// Invitation values are defaults that explicit form values override. Transform does no I/O
// and reads no clock: identical input gives identical output.
// Required fields are checked by ValidateForCompletion beforehand; absent optional fields
// simply yield zero values.
func Transform(fd FormData, prefill *invitation.Prefill) edfi.Bundle {
	var (
		pi  PersonalInfo
		re  RoleExperience
		ss  SchoolSetup
		sn  SchoolName
		sf  SchoolFocus
		sp  StudentPlanning
		sts Students
		p   invitation.Prefill
	)
	if fd.PersonalInfo != nil {
		pi = *fd.PersonalInfo
	}
	if fd.RoleExperience != nil {
		re = *fd.RoleExperience
	}
	if fd.SchoolSetup != nil {
		ss = *fd.SchoolSetup
	}
	if fd.SchoolName != nil {
		sn = *fd.SchoolName
	}
	if fd.SchoolFocus != nil {
		sf = *fd.SchoolFocus
	}
	if fd.StudentPlanning != nil {
		sp = *fd.StudentPlanning
	}
	if fd.Students != nil {
		sts = *fd.Students
	}
	if prefill != nil {
		p = *prefill
	}

	role := user.RoleCoach
	if r, ok := user.ParseRole(re.Role); ok {
		role = r
	}
	// the invitation decides between parent and staff records
	switch p.Type {
	case invitation.TypeParent:
		role = user.RoleParent
	case invitation.TypeCoach:
		if role == user.RoleParent {
			role = user.RoleCoach
		}
	}

	usr := user.User{
		Email:     strings.ToLower(core.FirstNonEmpty(pi.Email, p.Email)),
		FirstName: core.FirstNonEmpty(pi.FirstName, p.FirstName),
		LastName:  core.FirstNonEmpty(pi.LastName, p.LastName),
		Phone:     invitation.FormatPhoneNumber(core.FirstNonEmpty(pi.Phone, p.Phone)),
		Role:      role,
		IsActive:  true,
	}

	d1 := re.D1AthleticsCount
	if d1 == 0 {
		d1 = p.D1AthleticsCount
	}
	profile := user.Profile{
		Position:         core.FirstNonEmpty(re.Position, edfi.DefaultPositionTitle),
		Bio:              core.FirstNonEmpty(re.Bio, p.Bio),
		YearsExperience:  re.YearsExperience,
		Certifications:   nonNil(re.Certifications),
		Specialties:      nonNil(re.Specialties),
		D1AthleticsCount: d1,
	}

	city := core.FirstNonEmpty(pi.City, p.City)
	state := strings.ToUpper(core.FirstNonEmpty(pi.State, p.State))
	address := edfi.Address{
		AddressType:       edfi.AddressTypePhysical,
		StreetNumberName:  ss.SchoolStreet,
		City:              core.FirstNonEmpty(ss.SchoolCity, city),
		StateAbbreviation: strings.ToUpper(core.FirstNonEmpty(ss.SchoolState, state)),
		PostalCode:        ss.SchoolZip,
	}
	if ss.SchoolCity == "" && address.PostalCode == "" {
		address.PostalCode = pi.Zip
	}

	name := core.FirstNonEmpty(sn.NameOfInstitution, p.SchoolName)
	org := edfi.EducationOrganization{
		NameOfInstitution:      name,
		ShortNameOfInstitution: slug.Make(name),
		WebSite:                sn.Website,
		Phone:                  invitation.FormatPhoneNumber(core.FirstNonEmpty(sn.SchoolPhone, pi.Phone, p.Phone)),
		Category:               edfi.CategorySchool,
		OperationalStatus:      edfi.OperationalStatusActive,
		Address:                address,
	}

	school := edfi.School{
		SchoolType:            core.FirstNonEmpty(ss.SchoolType, p.SchoolType),
		GradeLevels:           NormalizeGradeLevels(sf.GradeLevels),
		Sports:                uniqueFold(append([]string{core.FirstNonEmpty(ss.Sport, p.Sport)}, sf.Sports...)),
		AcademicFocus:         sf.AcademicFocus,
		Description:           sf.Description,
		EstimatedStudentCount: sp.EstimatedStudentCount,
		OpeningDate:           sp.StartDate,
	}

	bundle := edfi.Bundle{
		User:                  usr,
		Profile:               profile,
		EducationOrganization: org,
		School:                school,
		Students:              make([]edfi.Student, 0, len(sts.Students)),
	}

	sex, _ := ParseSex(pi.Sex)
	switch role {
	case user.RoleParent:
		bundle.Parent = &edfi.Parent{
			FirstName:   usr.FirstName,
			LastSurname: usr.LastName,
			Email:       usr.Email,
			Phone:       usr.Phone,
		}
	case user.RoleCoach, user.RoleAdmin:
		bundle.Staff = &edfi.Staff{
			FirstName:                  usr.FirstName,
			LastSurname:                usr.LastName,
			Email:                      usr.Email,
			Phone:                      usr.Phone,
			Sex:                        sex,
			BirthDate:                  parseDate(pi.BirthDate),
			PositionTitle:              profile.Position,
			YearsOfPriorProfessionalXP: re.YearsExperience,
		}
	}

	for _, st := range sts.Students {
		if strings.TrimSpace(st.FirstName) == "" {
			continue
		}
		stSex, _ := ParseSex(st.Sex)
		grade, _ := NormalizeGradeLevel(st.GradeLevel)
		bundle.Students = append(bundle.Students, edfi.Student{
			FirstName:   st.FirstName,
			LastSurname: st.LastName,
			Sex:         stSex,
			BirthDate:   parseDate(st.BirthDate),
			GradeLevel:  grade,
		})
	}
	return bundle
}

// NormalizeGradeLevel maps free-form grades ("K", "3rd", "9th grade", "Pre-K") to Ed-Fi
// descriptors. Unrecognized values are returned cleaned, with ok false.
func NormalizeGradeLevel(s string) (level string, ok bool) {
	s = core.CleanString(s)
	key := strings.ToLower(strings.TrimSuffix(strings.ToLower(s), " grade"))
	if lvl, found := gradeAliases[key]; found {
		return lvl, true
	}
	if m := gradeNumberRegex.FindStringSubmatch(strings.ToLower(s)); m != nil {
		n, _ := strconv.Atoi(m[1])
		switch {
		case n == 0:
			return "Kindergarten", true
		case n >= 1 && n <= 12:
			return gradeLevels[n+2], true
		}
	}
	for _, lvl := range gradeLevels {
		if strings.EqualFold(lvl, s) {
			return lvl, true
		}
	}
	return s, false
}

// NormalizeGradeLevels normalizes, dedupes and sorts grade levels in school order;
// unrecognized values follow in input order.
func NormalizeGradeLevels(vals []string) []string {
	seen := make(map[string]bool, len(vals))
	var known, unknown []string
	for _, v := range vals {
		lvl, ok := NormalizeGradeLevel(v)
		if lvl == "" || seen[lvl] {
			continue
		}
		seen[lvl] = true
		if ok {
			known = append(known, lvl)
		} else {
			unknown = append(unknown, lvl)
		}
	}
	sort.SliceStable(known, func(i, j int) bool { return gradeIndex(known[i]) < gradeIndex(known[j]) })
	out := make([]string, 0, len(known)+len(unknown))
	out = append(out, known...)
	return append(out, unknown...)
}

func gradeIndex(lvl string) int {
	for i, l := range gradeLevels {
		if l == lvl {
			return i
		}
	}
	return len(gradeLevels)
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

func uniqueFold(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		v = core.CleanString(v)
		if v == "" {
			continue
		}
		dup := false
		for _, o := range out {
			if strings.EqualFold(o, v) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	return out
}

func nonNil(vals []string) []string {
	if vals == nil {
		return []string{}
	}
	return append([]string(nil), vals...)
}
