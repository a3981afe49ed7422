// Package catalog loads the course and activity rosters from CSV exports and
// turns operator selections (a course, an instructor, a classroom) into the
// scope sets the resolution engine works on.
package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/ecala/gradesync/internal/domain"
)

// missingClassroom labels course rows whose export carries no classroom code.
const missingClassroom = "SIN_NRC"

// Activity is one assignment joined against its course roster row. Course
// fields stay empty when the roster has no row for the activity's course.
type Activity struct {
	AssignmentID int
	CourseID     int
	Name         string
	CourseName   string
	Instructor   string
	Modality     string
	Classroom    string
}

type courseInfo struct {
	name       string
	instructor string
	modality   string
	classroom  string
}

type Catalog struct {
	activities []Activity
}

// Load reads the activities and courses exports and left-joins activities
// against course rows on the course id.
func Load(activitiesPath, coursesPath string) (*Catalog, error) {
	courseRows, err := readTable(coursesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load courses roster: %w", err)
	}
	courses := make(map[int]courseInfo, len(courseRows))
	for _, row := range courseRows {
		id, err := strconv.Atoi(row["id_NRC"])
		if err != nil {
			return nil, fmt.Errorf("malformed course id %q: %w", row["id_NRC"], err)
		}
		classroom := row["NRC"]
		if classroom == "" {
			classroom = missingClassroom
		}
		courses[id] = courseInfo{
			name:       row["NomCurso"],
			instructor: row["DOCENTE"],
			modality:   row["Modalidad"],
			classroom:  classroom,
		}
	}

	activityRows, err := readTable(activitiesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load activities roster: %w", err)
	}
	activities := make([]Activity, 0, len(activityRows))
	for _, row := range activityRows {
		assignmentID, err := strconv.Atoi(row["id"])
		if err != nil {
			return nil, fmt.Errorf("malformed activity id %q: %w", row["id"], err)
		}
		courseID, err := strconv.Atoi(row["id_curso"])
		if err != nil {
			return nil, fmt.Errorf("malformed activity course id %q: %w", row["id_curso"], err)
		}
		course := courses[courseID]
		activities = append(activities, Activity{
			AssignmentID: assignmentID,
			CourseID:     courseID,
			Name:         row["name"],
			CourseName:   course.name,
			Instructor:   course.instructor,
			Modality:     course.modality,
			Classroom:    course.classroom,
		})
	}

	return &Catalog{activities: activities}, nil
}

func (c *Catalog) Activities() []Activity {
	return c.activities
}

// CourseNames lists distinct course names, sorted.
func (c *Catalog) CourseNames() []string {
	return c.distinct(func(a Activity) string { return a.CourseName })
}

// Instructors lists distinct instructor names, sorted.
func (c *Catalog) Instructors() []string {
	return c.distinct(func(a Activity) string { return a.Instructor })
}

// Classrooms lists distinct classroom labels, sorted. A label identifies one
// (classroom, course, instructor) combination.
func (c *Catalog) Classrooms() []string {
	return c.distinct(func(a Activity) string { return classroomLabel(a) })
}

// ByCourseName builds the scope set covering every activity of the named
// course, plus the identifier bulk runs cache under.
func (c *Catalog) ByCourseName(name string) ([]domain.ScopeRequest, string) {
	return c.scopes("curso_"+name, func(a Activity) bool { return a.CourseName == name })
}

// ByInstructor builds the scope set covering every activity the named
// instructor teaches.
func (c *Catalog) ByInstructor(name string) ([]domain.ScopeRequest, string) {
	return c.scopes("docente_"+name, func(a Activity) bool { return a.Instructor == name })
}

// ByClassroom builds the scope set for one classroom label as produced by
// Classrooms.
func (c *Catalog) ByClassroom(label string) ([]domain.ScopeRequest, string) {
	return c.scopes("aula_"+label, func(a Activity) bool { return classroomLabel(a) == label })
}

func (c *Catalog) scopes(identifier string, match func(Activity) bool) ([]domain.ScopeRequest, string) {
	var scopes []domain.ScopeRequest
	for _, a := range c.activities {
		if !match(a) {
			continue
		}
		scopes = append(scopes, domain.ScopeRequest{
			CourseID:       a.CourseID,
			AssignmentID:   a.AssignmentID,
			CourseName:     a.CourseName,
			AssignmentName: a.Name,
			Instructor:     a.Instructor,
		})
	}
	return scopes, identifier
}

func (c *Catalog) distinct(value func(Activity) string) []string {
	seen := make(map[string]struct{})
	var values []string
	for _, a := range c.activities {
		v := value(a)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

func classroomLabel(a Activity) string {
	return fmt.Sprintf("%s - %s - %s", a.Classroom, a.CourseName, a.Instructor)
}

// readTable reads a CSV file into header-mapped rows.
func readTable(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	csvReader := csv.NewReader(f)
	headers, err := csvReader.Read()
	if err != nil {
		return nil, err
	}

	var rows []map[string]string
	for {
		row, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		record := make(map[string]string)
		for i, h := range headers {
			record[h] = row[i]
		}
		rows = append(rows, record)
	}
	return rows, nil
}
