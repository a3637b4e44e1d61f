package constants

// Artifact type codes registered in the external artifact registry. These map
// one-to-one onto the local entity kinds.
const (
	ArtifactTypeSchoolInstance = "school-kit-instance"
	ArtifactTypeSchoolYear     = "school-kit-year"
	ArtifactTypeClass          = "school-kit-class"
	ArtifactTypeSubject        = "school-kit-subject"
	ArtifactTypeStudent        = "school-kit-student"
	ArtifactTypeTeacher        = "school-kit-teacher"
	ArtifactTypeRelatedPerson  = "school-kit-related-person"
)

// Script engine entry points (relative to the tenant's script base URI).
const (
	ScriptSetPermissions   = "setPermissions"
	ScriptCourseRegister   = "course/register"
	ScriptCourseDeregister = "course/deregister"
)
