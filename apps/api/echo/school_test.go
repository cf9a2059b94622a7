package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presencaapp/presenca/core/school"
	"github.com/presencaapp/presenca/core/user"
	testutil "github.com/presencaapp/presenca/tests"
)

func Test_schoolApi_teachers(t *testing.T) {
	srv := setup(t)

	secretary := testutil.CreateUser(t, srv.usrRepo, "Sec", "secretary", "sec@test.cd", "", []string{user.RoleAdminSecretary}, true)
	plain := testutil.CreateUser(t, srv.usrRepo, "Plain", "plainusr", "plain@test.cd", "", nil, true)
	secToken := getToken(t, secretary)

	t.Run("create requires secretary", func(t *testing.T) {
		body := marchallObj(t, school.NewTeacher{Name: "Prof Ada", Email: "ada@school.cd"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/teachers", getToken(t, plain), body)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	var created school.Teacher
	t.Run("secretary creates teacher", func(t *testing.T) {
		body := marchallObj(t, school.NewTeacher{Name: "Prof Ada", Email: "ada@school.cd"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/teachers", secToken, body)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		assert.Equal(t, "Prof Ada", created.Name)
		assert.NotEmpty(t, created.ID)
	})

	t.Run("any authed user reads", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/teachers/"+created.ID, getToken(t, plain))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("update", func(t *testing.T) {
		body := marchallObj(t, school.UpdateTeacher{Name: "Prof Ada Lovelace"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/teachers/"+created.ID, secToken, body)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var updated school.Teacher
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
		assert.Equal(t, "Prof Ada Lovelace", updated.Name)
		assert.Equal(t, "ada@school.cd", updated.Email) // unchanged
	})

	t.Run("unknown id", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/teachers/4e8d34ba-3a6a-4ba4-9b48-0d9d9e1b2c2e", secToken)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_schoolApi_classes(t *testing.T) {
	srv := setup(t)

	secretary := testutil.CreateUser(t, srv.usrRepo, "Sec", "secretary", "sec@test.cd", "", []string{user.RoleAdminSecretary}, true)
	secToken := getToken(t, secretary)

	tchr1 := testutil.CreateTeacher(t, srv.schoolRepo, "Prof Ada", "ada@school.cd")
	tchr2 := testutil.CreateTeacher(t, srv.schoolRepo, "Prof Bia", "bia@school.cd")

	var created school.Class
	t.Run("create with tenure", func(t *testing.T) {
		body := marchallObj(t, school.NewClass{
			Name:             "Turma A",
			Period:           school.PeriodMorning,
			PrimaryTeacherID: tchr1.ID,
			Tenures: []school.NewTenureAssignment{
				{TeacherID: tchr1.ID, StartDay: "2024-02-01", EndDay: "2024-06-30"},
			},
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes", secToken, body)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		require.Len(t, created.Tenures, 1)
		assert.Equal(t, tchr1.ID, created.Tenures[0].TeacherID)
		assert.True(t, created.Tenures[0].Active) // defaults to active
	})

	t.Run("tenure window must not be inverted", func(t *testing.T) {
		body := marchallObj(t, school.NewClass{
			Name:   "Turma B",
			Period: school.PeriodAfternoon,
			Tenures: []school.NewTenureAssignment{
				{TeacherID: tchr1.ID, StartDay: "2024-06-30", EndDay: "2024-02-01"},
			},
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes", secToken, body)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("update replaces the tenure set wholesale", func(t *testing.T) {
		body := marchallObj(t, school.UpdateClass{
			Tenures: &[]school.NewTenureAssignment{
				{TeacherID: tchr2.ID, StartDay: "2024-07-01", EndDay: "2024-12-20"},
			},
		})
		req, rec := newAuthRequest(http.MethodPut, "/v1/classes/"+created.ID, secToken, body)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var updated school.Class
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
		require.Len(t, updated.Tenures, 1)
		assert.Equal(t, tchr2.ID, updated.Tenures[0].TeacherID)
		assert.Equal(t, created.Name, updated.Name) // unchanged
	})
}

func Test_schoolApi_students(t *testing.T) {
	srv := setup(t)

	secretary := testutil.CreateUser(t, srv.usrRepo, "Sec", "secretary", "sec@test.cd", "", []string{user.RoleAdminSecretary}, true)
	secToken := getToken(t, secretary)

	tchr := testutil.CreateTeacher(t, srv.schoolRepo, "Prof Ada", "ada@school.cd")
	clsA := testutil.CreateClass(t, srv.schoolRepo, "Turma A", school.PeriodMorning, testutil.Tenure(tchr.ID, "2024-02-01", "2024-06-30"))
	clsB := testutil.CreateClass(t, srv.schoolRepo, "Turma B", school.PeriodAfternoon)

	alice := testutil.CreateStudent(t, srv.schoolRepo, "Alice", clsA.ID)
	bruno := testutil.CreateStudent(t, srv.schoolRepo, "Bruno", clsA.ID)
	carla := testutil.CreateStudent(t, srv.schoolRepo, "Carla", clsB.ID)

	t.Run("create in unknown class", func(t *testing.T) {
		body := marchallObj(t, school.NewStudent{Name: "Dudu", ClassID: "4e8d34ba-3a6a-4ba4-9b48-0d9d9e1b2c2e"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/students", secToken, body)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	tests := []httpTest{
		{name: "get all", path: "/v1/students", wantData: marchallList(t, alice, bruno, carla)},
		{name: "filter by class", path: "/v1/students?class_id=" + clsA.ID, wantData: marchallList(t, alice, bruno)},
		{name: "search", path: "/v1/students?search=car", wantData: marchallList(t, carla)},
		{name: "search (unknown)", path: "/v1/students?search=lol", wantData: marchallList(t, []interface{}{}...)},
		{name: "ordering", path: "/v1/students?ordering=-name", wantData: marchallList(t, carla, bruno, alice)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, secToken)
			srv.ServeHTTP(rec, req)
			tt.wantCode = http.StatusOK
			checkCodeAndData(t, tt, rec)
		})
	}
}
