package constants

// Profile codes carried in the session token and produced by the
// authorization resolver. Keep in sync with the gateway's claim values.
const (
	ProfileAuthorities    = "Authorities"
	ProfileExecutives     = "Executives"
	ProfileAuditors       = "Auditors"
	ProfileClassTeacher   = "ClassTeacher"
	ProfileSubjectTeacher = "SubjectTeacher"
	ProfileTeacher        = "Teacher"
	ProfileStudent        = "Student"
	ProfileRelatedPerson  = "RelatedPerson"
	ProfileStandardUsers  = "StandardUsers"
)

// ==========================
// ✅ Grouped Profile Slices
// ==========================
var (
	PrivilegedProfiles = []string{
		ProfileAuthorities,
		ProfileExecutives,
		ProfileAuditors,
	}

	TeacherAndAbove = []string{
		ProfileAuthorities,
		ProfileExecutives,
		ProfileClassTeacher,
		ProfileSubjectTeacher,
		ProfileTeacher,
	}
)

func IsPrivileged(profiles []string) bool {
	for _, p := range profiles {
		switch p {
		case ProfileAuthorities, ProfileExecutives, ProfileAuditors:
			return true
		}
	}
	return false
}

func HasProfile(profiles []string, want string) bool {
	for _, p := range profiles {
		if p == want {
			return true
		}
	}
	return false
}
