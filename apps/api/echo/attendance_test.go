package echoapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presencaapp/presenca/core/attendance"
	"github.com/presencaapp/presenca/core/school"
	"github.com/presencaapp/presenca/core/user"
	testutil "github.com/presencaapp/presenca/tests"
)

type attendanceFixture struct {
	srv *testServer

	class   school.Class
	alice   school.Student
	bruno   school.Student
	teacher user.User // bound to a roster teacher with tenure 2024-02-01..2024-06-30
	admin   user.User
}

func newAttendanceFixture(t *testing.T) attendanceFixture {
	t.Helper()

	srv := setup(t)

	tchr := testutil.CreateTeacher(t, srv.schoolRepo, "Prof Ada", "ada@school.cd")
	cls := testutil.CreateClass(t, srv.schoolRepo, "Turma A", school.PeriodMorning,
		testutil.Tenure(tchr.ID, "2024-02-01", "2024-06-30"))
	alice := testutil.CreateStudent(t, srv.schoolRepo, "Alice", cls.ID)
	bruno := testutil.CreateStudent(t, srv.schoolRepo, "Bruno", cls.ID)

	teacher := testutil.CreateTeacherUser(t, srv.usrRepo, "Prof Ada", "profada", "ada@test.cd", "", tchr.ID)
	admin := testutil.CreateUser(t, srv.usrRepo, "Sec", "secretary", "sec@test.cd", "", []string{user.RoleAdminSecretary}, true)

	return attendanceFixture{srv: srv, class: cls, alice: alice, bruno: bruno, teacher: teacher, admin: admin}
}

func sheetPath(classID, day string) string {
	p := "/v1/classes/" + classID + "/attendance"
	if day != "" {
		p += "?date=" + day
	}
	return p
}

func commitBody(t *testing.T, marks ...attendance.Mark) []byte {
	return marchallObj(t, CommitAttendanceRequest{Marks: marks})
}

func decodeSheet(t *testing.T, body []byte) AttendanceSheetResponse {
	t.Helper()
	var sheet AttendanceSheetResponse
	require.NoError(t, json.Unmarshal(body, &sheet))
	return sheet
}

func Test_attendanceApi_retrieveSheet(t *testing.T) {
	fix := newAttendanceFixture(t)
	srv := fix.srv

	t.Run("auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, sheetPath(fix.class.ID, "2024-03-15"))
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown class", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, sheetPath("8b0d5f2e-14a7-4a65-93f5-6f9e5d7c0a11", "2024-03-15"), getToken(t, fix.teacher))
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid date", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, sheetPath(fix.class.ID, "15%2F03%2F2024"), getToken(t, fix.teacher))
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("fresh day defaults to present, unlocked", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, sheetPath(fix.class.ID, "2024-03-15"), getToken(t, fix.teacher))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		sheet := decodeSheet(t, rec.Body.Bytes())
		assert.Equal(t, "2024-03-15", sheet.Day)
		assert.False(t, sheet.Locked)
		assert.True(t, sheet.WithinTenure)
		require.Len(t, sheet.Rows, 2)
		assert.Equal(t, fix.alice.ID, sheet.Rows[0].Student.ID) // roster order
		for _, row := range sheet.Rows {
			assert.Equal(t, attendance.StatusPresent, row.Status)
			assert.Empty(t, row.Note)
		}
	})

	t.Run("secretary sees sheet but is not within tenure", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, sheetPath(fix.class.ID, "2024-03-15"), getToken(t, fix.admin))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		sheet := decodeSheet(t, rec.Body.Bytes())
		assert.False(t, sheet.WithinTenure)
	})
}

func Test_attendanceApi_commitSheet(t *testing.T) {
	fix := newAttendanceFixture(t)
	srv := fix.srv
	teacherToken := getToken(t, fix.teacher)

	t.Run("teacher commits the day", func(t *testing.T) {
		body := commitBody(t,
			attendance.Mark{StudentID: fix.alice.ID, Status: attendance.StatusPresent},
			attendance.Mark{StudentID: fix.bruno.ID, Status: attendance.StatusAbsent, Note: "Atestado médico"},
		)
		req, rec := newAuthRequest(http.MethodPut, sheetPath(fix.class.ID, "2024-03-15"), teacherToken, body)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		sheet := decodeSheet(t, rec.Body.Bytes())
		assert.True(t, sheet.Locked)

		recs, err := srv.attRepo.FindByDay("2024-03-15")
		require.NoError(t, err)
		assert.ElementsMatch(t, []attendance.Record{
			{Day: "2024-03-15", StudentID: fix.alice.ID, Status: attendance.StatusPresent},
			{Day: "2024-03-15", StudentID: fix.bruno.ID, Status: attendance.StatusAbsent, Note: "Atestado médico"},
		}, recs)
	})

	t.Run("reopening the day is locked and seeded from saved records", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, sheetPath(fix.class.ID, "2024-03-15"), teacherToken)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		sheet := decodeSheet(t, rec.Body.Bytes())
		assert.True(t, sheet.Locked)
		require.Len(t, sheet.Rows, 2)
		assert.Equal(t, attendance.StatusAbsent, sheet.Rows[1].Status)
		assert.Equal(t, "Atestado médico", sheet.Rows[1].Note)
	})

	t.Run("recommit replaces records in place", func(t *testing.T) {
		body := commitBody(t,
			attendance.Mark{StudentID: fix.alice.ID, Status: attendance.StatusPresent},
			attendance.Mark{StudentID: fix.bruno.ID, Status: attendance.StatusJustified, Note: "Consulta"},
		)
		req, rec := newAuthRequest(http.MethodPut, sheetPath(fix.class.ID, "2024-03-15"), teacherToken, body)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		recs, err := srv.attRepo.FindByDay("2024-03-15")
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Contains(t, recs, attendance.Record{
			Day: "2024-03-15", StudentID: fix.bruno.ID, Status: attendance.StatusJustified, Note: "Consulta",
		})
	})

	t.Run("outside tenure window", func(t *testing.T) {
		body := commitBody(t, attendance.Mark{StudentID: fix.alice.ID, Status: attendance.StatusAbsent})
		req, rec := newAuthRequest(http.MethodPut, sheetPath(fix.class.ID, "2024-07-01"), teacherToken, body)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		recs, err := srv.attRepo.FindByDay("2024-07-01")
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("secretary has no tenure and cannot commit", func(t *testing.T) {
		body := commitBody(t, attendance.Mark{StudentID: fix.alice.ID, Status: attendance.StatusAbsent})
		req, rec := newAuthRequest(http.MethodPut, sheetPath(fix.class.ID, "2024-03-20"), getToken(t, fix.admin), body)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("invalid status rejected", func(t *testing.T) {
		body := commitBody(t, attendance.Mark{StudentID: fix.alice.ID, Status: "late"})
		req, rec := newAuthRequest(http.MethodPut, sheetPath(fix.class.ID, "2024-03-21"), teacherToken, body)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown class", func(t *testing.T) {
		body := commitBody(t, attendance.Mark{StudentID: fix.alice.ID, Status: attendance.StatusPresent})
		req, rec := newAuthRequest(http.MethodPut, sheetPath("8b0d5f2e-14a7-4a65-93f5-6f9e5d7c0a11", "2024-03-15"), teacherToken, body)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_attendanceApi_queryDays(t *testing.T) {
	fix := newAttendanceFixture(t)
	srv := fix.srv
	token := getToken(t, fix.teacher)

	testutil.CreateRecord(t, srv.attRepo, "2024-03-18", fix.alice.ID, attendance.StatusPresent, "")
	testutil.CreateRecord(t, srv.attRepo, "2024-03-15", fix.alice.ID, attendance.StatusPresent, "")
	testutil.CreateRecord(t, srv.attRepo, "2024-03-15", fix.bruno.ID, attendance.StatusAbsent, "")

	t.Run("sorted, deduped", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, sheetPath(fix.class.ID, "")+"/days", token)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var days []string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &days))
		assert.Equal(t, []string{"2024-03-15", "2024-03-18"}, days)
	})

	t.Run("unknown class", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, sheetPath("8b0d5f2e-14a7-4a65-93f5-6f9e5d7c0a11", "")+"/days", token)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_attendanceApi_suggestNote(t *testing.T) {
	fix := newAttendanceFixture(t)
	srv := fix.srv
	token := getToken(t, fix.teacher)

	body := marchallObj(t, SuggestNoteRequest{StudentName: "Bruno", Status: attendance.StatusAbsent})

	t.Run("suggestion returned", func(t *testing.T) {
		srv.suggester.note = "Faltou sem justificativa."
		srv.suggester.err = nil

		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance/suggest-note", token, body)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp SuggestNoteResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Faltou sem justificativa.", resp.Note)
	})

	t.Run("upstream failure yields empty note, not an error", func(t *testing.T) {
		srv.suggester.note = ""
		srv.suggester.err = errors.New("upstream down")

		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance/suggest-note", token, body)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp SuggestNoteResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Empty(t, resp.Note)
	})

	t.Run("invalid status", func(t *testing.T) {
		bad := marchallObj(t, SuggestNoteRequest{StudentName: "Bruno", Status: "late"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance/suggest-note", token, bad)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func Test_attendanceApi_monthlyReport(t *testing.T) {
	fix := newAttendanceFixture(t)
	srv := fix.srv

	// one student, one present and one absent in March
	testutil.CreateRecord(t, srv.attRepo, "2024-03-15", fix.alice.ID, attendance.StatusPresent, "")
	testutil.CreateRecord(t, srv.attRepo, "2024-03-18", fix.alice.ID, attendance.StatusAbsent, "")
	// outside the month: ignored
	testutil.CreateRecord(t, srv.attRepo, "2024-04-01", fix.alice.ID, attendance.StatusAbsent, "")

	reportPath := func(classID string, year, month int) string {
		v := make(url.Values)
		if classID != "" {
			v.Add("class_id", classID)
		}
		if year != 0 {
			v.Add("year", strconv.Itoa(year))
		}
		if month != 0 {
			v.Add("month", strconv.Itoa(month))
		}
		return "/v1/reports/attendance?" + v.Encode()
	}

	t.Run("teacher with tenure over the month", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, reportPath(fix.class.ID, 2024, 3), getToken(t, fix.teacher))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var rpt attendance.MonthlyReport
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rpt))
		assert.Equal(t, fix.class.ID, rpt.ClassID)
		assert.Equal(t, attendance.ClassTotals{Presences: 1, Absences: 1, Total: 2, Percent: 50}, rpt.Totals)

		require.Len(t, rpt.Students, 2)
		assert.Equal(t, 50.0, rpt.Students[0].Percent) // Alice
		assert.Equal(t, 0, rpt.Students[1].Total)      // Bruno: no records
	})

	t.Run("wire format uses Portuguese keys", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, reportPath(fix.class.ID, 2024, 3), getToken(t, fix.admin))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var raw map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
		totals, ok := raw["totals"].(map[string]interface{})
		require.True(t, ok)
		for _, key := range []string{"presencas", "faltas", "justificadas", "total"} {
			assert.Contains(t, totals, key)
		}
	})

	t.Run("teacher without tenure over the month", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, reportPath(fix.class.ID, 2024, 8), getToken(t, fix.teacher))
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown class", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, reportPath("8b0d5f2e-14a7-4a65-93f5-6f9e5d7c0a11", 2024, 3), getToken(t, fix.admin))
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing params", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, reportPath("", 0, 0), getToken(t, fix.admin))
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
