package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRosters(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	activities := filepath.Join(dir, "activities.csv")
	require.NoError(t, os.WriteFile(activities, []byte(
		"id,id_curso,name\n"+
			"181726,32561,Quiz 1\n"+
			"181727,32561,Evaluación Integral\n"+
			"181800,32562,Quiz 1\n"+
			"181900,32563,Práctica 1\n",
	), 0o644))

	courses := filepath.Join(dir, "courses.csv")
	require.NoError(t, os.WriteFile(courses, []byte(
		"id_NRC,NomCurso,DOCENTE,Modalidad,NRC\n"+
			"32561,Matemática I,R. Flores,Presencial,NRC-4411\n"+
			"32562,Física I,M. Paredes,Virtual,\n",
	), 0o644))

	return activities, courses
}

func TestLoad_JoinsCoursesLeft(t *testing.T) {
	activitiesPath, coursesPath := writeRosters(t)

	c, err := Load(activitiesPath, coursesPath)
	require.NoError(t, err)

	all := c.Activities()
	require.Len(t, all, 4)

	assert.Equal(t, "Matemática I", all[0].CourseName)
	assert.Equal(t, "R. Flores", all[0].Instructor)
	assert.Equal(t, "NRC-4411", all[0].Classroom)

	// Missing classroom code gets the placeholder.
	assert.Equal(t, "SIN_NRC", all[2].Classroom)

	// Activity with no course row keeps empty course fields.
	assert.Equal(t, "", all[3].CourseName)
	assert.Equal(t, "", all[3].Instructor)
}

func TestByCourseName(t *testing.T) {
	activitiesPath, coursesPath := writeRosters(t)
	c, err := Load(activitiesPath, coursesPath)
	require.NoError(t, err)

	scopes, identifier := c.ByCourseName("Matemática I")

	assert.Equal(t, "curso_Matemática I", identifier)
	require.Len(t, scopes, 2)
	assert.Equal(t, 181726, scopes[0].AssignmentID)
	assert.Equal(t, "Quiz 1", scopes[0].AssignmentName)
	assert.Equal(t, 181727, scopes[1].AssignmentID)
	assert.Equal(t, 32561, scopes[1].CourseID)
}

func TestByInstructorAndClassroom(t *testing.T) {
	activitiesPath, coursesPath := writeRosters(t)
	c, err := Load(activitiesPath, coursesPath)
	require.NoError(t, err)

	scopes, identifier := c.ByInstructor("M. Paredes")
	assert.Equal(t, "docente_M. Paredes", identifier)
	require.Len(t, scopes, 1)
	assert.Equal(t, 181800, scopes[0].AssignmentID)

	label := "NRC-4411 - Matemática I - R. Flores"
	scopes, identifier = c.ByClassroom(label)
	assert.Equal(t, "aula_"+label, identifier)
	assert.Len(t, scopes, 2)
}

func TestDistinctListings(t *testing.T) {
	activitiesPath, coursesPath := writeRosters(t)
	c, err := Load(activitiesPath, coursesPath)
	require.NoError(t, err)

	assert.Equal(t, []string{"Física I", "Matemática I"}, c.CourseNames())
	assert.Equal(t, []string{"M. Paredes", "R. Flores"}, c.Instructors())

	classrooms := c.Classrooms()
	require.Len(t, classrooms, 3)
	assert.Contains(t, classrooms, "NRC-4411 - Matemática I - R. Flores")
	assert.Contains(t, classrooms, "SIN_NRC - Física I - M. Paredes")
}
