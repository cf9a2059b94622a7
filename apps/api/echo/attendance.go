package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/presencaapp/presenca/core"
	"github.com/presencaapp/presenca/core/attendance"
	"github.com/presencaapp/presenca/core/school"
)

type (
	attendanceDeps struct {
		svc       *attendance.Service
		schoolSvc *school.Service
		suggester attendance.NoteSuggester
		logger    core.Logger
		validate  *validator.Validate
	}

	attendanceApi struct {
		attendanceDeps
	}
)

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps attendanceDeps) {
	api := attendanceApi{deps}

	cg := g.Group("/classes/:id/attendance", jwt)
	cg.GET("", api.retrieveSheet)
	cg.GET("/days", api.queryDays)
	cg.PUT("", api.commitSheet, teacherOrAdminMiddleware())

	g.POST("/attendance/suggest-note", api.suggestNote, jwt, teacherOrAdminMiddleware())
	g.GET("/reports/attendance", api.monthlyReport, jwt)
}

// Handlers

// retrieveSheet returns the marking sheet for one (class, day): one row per
// enrolled student, seeded from saved records when any exist.
func (api *attendanceApi) retrieveSheet(ctx echo.Context) error {
	day, err := bindDay(ctx)
	if err != nil {
		return err
	}

	seed, err := api.svc.SeedForClass(ctx.Param("id"), day)
	if err != nil {
		if errors.Cause(err) == attendance.ErrClassNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "seeding attendance sheet")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	return ctx.JSON(http.StatusOK, AttendanceSheetResponse{
		ClassID:      seed.Class.ID,
		Day:          seed.Day,
		Locked:       seed.Locked,
		WithinTenure: attendance.WithinTenure(seed.Class, claims.TeacherID, day),
		Rows:         seed.Rows,
	})
}

func (api *attendanceApi) queryDays(ctx echo.Context) error {
	if _, err := api.schoolSvc.GetClassByID(ctx.Param("id")); err != nil {
		if errors.Cause(err) == school.ErrClassNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding class by ID")
	}

	days, err := api.svc.DaysForClass(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying attendance days")
	}
	if days == nil {
		days = []string{}
	}
	return ctx.JSON(http.StatusOK, days)
}

// commitSheet runs a full editing session server-side: seed, unlock if a
// previous commit locked the day, apply the submitted marks and commit.
// The tenure gate decides authorization; an admin account with no bound
// roster teacher cannot commit.
func (api *attendanceApi) commitSheet(ctx echo.Context) error {
	day, err := bindDay(ctx)
	if err != nil {
		return err
	}

	var data CommitAttendanceRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CommitAttendanceRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	cls, err := api.schoolSvc.GetClassByID(ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == school.ErrClassNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding class by ID")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	sess := attendance.NewSession(api.svc, api.suggester, api.logger, cls, claims.TeacherID)
	defer sess.Close()

	if err := sess.Open(day); err != nil {
		return errors.Wrap(err, "opening attendance session")
	}
	if sess.State() == attendance.StateDraftingLocked {
		if err := sess.Unlock(); err != nil {
			if errors.Cause(err) == attendance.ErrOutsideTenure {
				return errOutsideTenure
			}
			return errors.Wrap(err, "unlocking attendance session")
		}
	}

	for _, mark := range data.Marks {
		sess.SetStatus(mark.StudentID, mark.Status)
		sess.SetNote(mark.StudentID, mark.Note)
	}

	if err := sess.Commit(); err != nil {
		switch errors.Cause(err) {
		case attendance.ErrOutsideTenure:
			return errOutsideTenure
		case attendance.ErrCommitInFlight, attendance.ErrLocked:
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return errors.Wrap(err, "committing attendance")
	}

	return ctx.JSON(http.StatusOK, AttendanceSheetResponse{
		ClassID:      cls.ID,
		Day:          day,
		Locked:       true,
		WithinTenure: true,
		Rows:         sess.Rows(),
	})
}

// suggestNote proxies the note suggester. Failures are logged and answered
// with an empty note so the draft flow never breaks on a flaky upstream.
func (api *attendanceApi) suggestNote(ctx echo.Context) error {
	var data SuggestNoteRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SuggestNoteRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	if api.suggester == nil {
		return ctx.JSON(http.StatusOK, SuggestNoteResponse{})
	}

	note, err := api.suggester.SuggestNote(ctx.Request().Context(), data.StudentName, data.Status)
	if err != nil {
		api.logger.Warn("note suggestion failed", err)
		return ctx.JSON(http.StatusOK, SuggestNoteResponse{})
	}
	return ctx.JSON(http.StatusOK, SuggestNoteResponse{Note: note})
}

// monthlyReport aggregates one class's records for a calendar month.
// Admins may read any class; a teacher may read a class only when one of
// their active tenure windows overlaps the month.
func (api *attendanceApi) monthlyReport(ctx echo.Context) error {
	var data MonthlyReportRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MonthlyReportRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	cls, err := api.schoolSvc.GetClassByID(data.ClassID)
	if err != nil {
		if errors.Cause(err) == school.ErrClassNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding class by ID")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !claims.IsAdmin && !teacherCoversMonth(cls, claims.TeacherID, data.Year, time.Month(data.Month)) {
		return errHttpForbidden
	}

	report, err := api.svc.MonthlyReport(cls.ID, data.Year, time.Month(data.Month))
	if err != nil {
		return errors.Wrap(err, "building monthly report")
	}
	return ctx.JSON(http.StatusOK, report)
}

// teacherCoversMonth reports whether the teacher holds an active tenure on
// the class overlapping any day of the given month.
func teacherCoversMonth(cls school.Class, teacherID string, year int, month time.Month) bool {
	if teacherID == "" {
		return false
	}
	first, last := core.MonthBounds(year, month)
	for _, ta := range cls.Tenures {
		if ta.TeacherID == teacherID && ta.Active && ta.StartDay <= last && first <= ta.EndDay {
			return true
		}
	}
	return false
}

// bindDay reads the `date` query param, defaulting to today.
func bindDay(ctx echo.Context) (string, error) {
	day := ctx.QueryParam("date")
	if day == "" {
		return core.Today(), nil
	}
	if !core.ValidDay(day) {
		return "", core.NewValidationError(nil, core.FieldError{Field: "date", Error: "must be a valid ISO day (YYYY-MM-DD)"})
	}
	return day, nil
}

type (
	AttendanceSheetResponse struct {
		ClassID      string           `json:"class_id"`
		Day          string           `json:"day"`
		Locked       bool             `json:"locked"`
		WithinTenure bool             `json:"within_tenure"`
		Rows         []attendance.Row `json:"rows"`
	}

	CommitAttendanceRequest struct {
		Marks []attendance.Mark `json:"marks" validate:"required,min=1,dive"`
	}

	SuggestNoteRequest struct {
		StudentName string            `json:"student_name" validate:"required"`
		Status      attendance.Status `json:"status" validate:"required,status"`
	}

	SuggestNoteResponse struct {
		Note string `json:"note"`
	}

	MonthlyReportRequest struct {
		ClassID string `query:"class_id" validate:"required,uuid4"`
		Year    int    `query:"year" validate:"required,min=2000,max=2100"`
		Month   int    `query:"month" validate:"required,min=1,max=12"`
	}
)
