package router

import (
	"strconv"

	"github.com/ecala/gradesync/internal/catalog"
	"github.com/ecala/gradesync/internal/cohort"
	"github.com/ecala/gradesync/internal/domain"
	"github.com/ecala/gradesync/internal/extract"
	"github.com/ecala/gradesync/internal/matrix"
	"github.com/labstack/echo/v4"
)

type ExtractRouter struct {
	e       *echo.Echo
	engine  *extract.Engine
	catalog *catalog.Catalog
}

func NewExtractRouter(e *echo.Echo, engine *extract.Engine, cat *catalog.Catalog) *ExtractRouter {
	return &ExtractRouter{
		e:       e,
		engine:  engine,
		catalog: cat,
	}
}

func (r *ExtractRouter) Bind() {
	r.e.GET("/extract/single", r.singleHandler)
	r.e.POST("/extract/bulk", r.bulkHandler)
	r.e.POST("/matrix", r.matrixHandler)
	r.e.POST("/cohort", r.cohortHandler)
	r.e.GET("/catalog/courses", r.coursesHandler)
	r.e.GET("/catalog/instructors", r.instructorsHandler)
	r.e.GET("/catalog/classrooms", r.classroomsHandler)
}

func (r *ExtractRouter) singleHandler(c echo.Context) error {
	courseID, err := strconv.Atoi(c.QueryParam("course_id"))
	if err != nil {
		return c.JSON(400, map[string]string{"error": "course_id must be an integer"})
	}
	assignmentID, err := strconv.Atoi(c.QueryParam("assignment_id"))
	if err != nil {
		return c.JSON(400, map[string]string{"error": "assignment_id must be an integer"})
	}

	req := domain.ScopeRequest{
		CourseID:       courseID,
		AssignmentID:   assignmentID,
		CourseName:     c.QueryParam("course_name"),
		AssignmentName: c.QueryParam("assignment_name"),
		Instructor:     c.QueryParam("instructor"),
	}

	result, err := r.engine.ResolveSingle(c.Request().Context(), req)
	if err != nil {
		return c.JSON(500, map[string]string{"error": "internal server error"})
	}
	return c.JSON(200, result)
}

type bulkRequest struct {
	ScopeKind    string `json:"scope_kind"`
	ScopeValue   string `json:"scope_value"`
	WithFeedback bool   `json:"with_feedback"`
}

func (r *ExtractRouter) bulkHandler(c echo.Context) error {
	var req bulkRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, map[string]string{"error": "invalid request body"})
	}
	if req.ScopeValue == "" {
		return c.JSON(400, map[string]string{"error": "scope_value is required"})
	}

	var scopes []domain.ScopeRequest
	var identifier string
	switch req.ScopeKind {
	case "course":
		scopes, identifier = r.catalog.ByCourseName(req.ScopeValue)
	case "instructor":
		scopes, identifier = r.catalog.ByInstructor(req.ScopeValue)
	case "classroom":
		scopes, identifier = r.catalog.ByClassroom(req.ScopeValue)
	default:
		return c.JSON(400, map[string]string{"error": "scope_kind must be one of course, instructor, classroom"})
	}
	if len(scopes) == 0 {
		return c.JSON(404, map[string]string{"error": "no activities found for the given scope"})
	}

	result, err := r.engine.ResolveBulk(c.Request().Context(), scopes, identifier, req.WithFeedback)
	if err != nil {
		return c.JSON(500, map[string]string{"error": "internal server error"})
	}
	return c.JSON(200, result)
}

type matrixRequest struct {
	Records []domain.GradeFeedbackRecord `json:"records"`
}

func (r *ExtractRouter) matrixHandler(c echo.Context) error {
	var req matrixRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, map[string]string{"error": "invalid request body"})
	}
	return c.JSON(200, matrix.Project(req.Records))
}

type cohortRequest struct {
	Records               []domain.GradeFeedbackRecord `json:"records"`
	Case                  cohort.Case                  `json:"case"`
	TargetAssignmentNames []string                     `json:"target_assignment_names"`
}

func (r *ExtractRouter) cohortHandler(c echo.Context) error {
	var req cohortRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, map[string]string{"error": "invalid request body"})
	}

	filtered, err := cohort.Classify(req.Records, req.Case, req.TargetAssignmentNames)
	if err != nil {
		return c.JSON(400, map[string]string{"error": err.Error()})
	}
	return c.JSON(200, map[string]any{"records": filtered, "count": len(filtered)})
}

func (r *ExtractRouter) coursesHandler(c echo.Context) error {
	return c.JSON(200, r.catalog.CourseNames())
}

func (r *ExtractRouter) instructorsHandler(c echo.Context) error {
	return c.JSON(200, r.catalog.Instructors())
}

func (r *ExtractRouter) classroomsHandler(c echo.Context) error {
	return c.JSON(200, r.catalog.Classrooms())
}
