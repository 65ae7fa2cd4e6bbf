package tests

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/malekai-gauntlet/tsa-platform-sub001/apps/api/echo"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/invitation"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/onboarding"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/user"
)

var stepBodies = []struct {
	path string
	data string
}{
	{"personal-info", `{"firstName":"Marcus","lastName":"Johnson","email":"marcus@example.com","phone":"512-555-0100","sex":"male","birthDate":"1985-02-03","city":"Austin","state":"TX","zip":"78701"}`},
	{"role-experience", `{"role":"coach","yearsExperience":10,"d1AthleticsCount":4}`},
	{"school-setup", `{"schoolType":"Microschool","sport":"Track","hasPhysicalLocation":true,"schoolStreet":"1 Main St","schoolCity":"Austin","schoolState":"TX","schoolZip":"78701"}`},
	{"school-name", `{"nameOfInstitution":"Austin Sprint Academy"}`},
	{"school-focus", `{"gradeLevels":["K","3rd"],"sports":["Track"]}`},
	{"student-planning", `{"estimatedStudentCount":12,"startDate":"2024-08-15"}`},
	{"students", `{"students":[{"firstName":"Sam","lastName":"Doe","sex":"m","gradeLevel":"3rd"}]}`},
	{"agreements", `{"platformAgreement":true,"backgroundCheckConsent":true}`},
	{"finalize", `{"referralSource":"friend"}`},
}

func saveStepBody(email, data string) []byte {
	return []byte(fmt.Sprintf(`{"email":%q,"data":%s}`, email, data))
}

func Test_onboardingApi_flow(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	inv, err := f.invitations.CreateCoachInvitation(ctx, coachInvite())
	require.NoError(t, err)

	// resume with the invitation
	req, rec := newRequest(http.MethodPost, "/api/onboarding/progress", []byte(`{"invite_token":"`+inv.Token+`"}`))
	f.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var p onboarding.Progress
	decode(t, rec, &p)
	assert.Equal(t, "marcus@example.com", p.Email)
	assert.True(t, p.InvitationBased)
	assert.Equal(t, onboarding.StepPersonalInfo, p.CurrentStep)
	require.NotNil(t, p.FormData.PersonalInfo)
	assert.Equal(t, "Marcus", p.FormData.PersonalInfo.FirstName, "pre-filled from the invitation")

	for _, sb := range stepBodies {
		req, rec = newRequest(http.MethodPut, "/api/onboarding/progress/"+sb.path, saveStepBody(p.Email, sb.data))
		f.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, "%s: %s", sb.path, rec.Body.String())
	}
	decode(t, rec, &p)
	assert.Equal(t, onboarding.StepComplete, p.CurrentStep)
	assert.Nil(t, p.FormData.PersonalInfo, "anonymous callers get a summary")

	// complete
	req, rec = newRequest(http.MethodPost, "/api/onboarding/complete", []byte(`{"email":"marcus@example.com"}`))
	f.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res echoapi.CompleteResponse
	decode(t, rec, &res)
	assert.NotEmpty(t, res.UserID)
	assert.NotEmpty(t, res.ProfileID)
	require.NotNil(t, res.Result)
	assert.NotZero(t, res.Result.SchoolID)
	assert.NotZero(t, res.Result.StaffUSI)
	assert.Len(t, res.Result.StudentUSIs, 1)
	assert.NotNil(t, res.Progress.CompletedAt)

	usr, err := f.users.GetUser(ctx, user.GetFilter{ID: res.UserID})
	require.NoError(t, err)
	assert.Equal(t, user.RoleCoach, usr.Role)

	accepted, err := f.invitations.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invitation.StatusAccepted, accepted.Status)

	t.Run("complete again", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/onboarding/complete", []byte(`{"email":"marcus@example.com"}`))
		f.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var again echoapi.CompleteResponse
		decode(t, rec, &again)
		assert.Equal(t, res.UserID, again.UserID)
		assert.Equal(t, res.Result, again.Result)
	})

	t.Run("progress by token", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/onboarding/progress", f.token(t, usr))
		f.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got onboarding.Progress
		decode(t, rec, &got)
		assert.Equal(t, p.ID, got.ID)
		assert.Equal(t, usr.ID, got.UserID)
		require.NotNil(t, got.FormData.PersonalInfo)
		assert.Equal(t, "Marcus", got.FormData.PersonalInfo.FirstName)
		assert.NotNil(t, got.Result)
	})

	t.Run("anonymous progress", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/api/onboarding/progress?email=marcus@example.com")
		f.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got onboarding.Progress
		decode(t, rec, &got)
		assert.Equal(t, p.ID, got.ID)
		assert.Equal(t, onboarding.StepComplete, got.CurrentStep)
		assert.NotNil(t, got.CompletedAt)
		assert.Equal(t, onboarding.FormData{}, got.FormData)
		assert.Nil(t, got.Result)
		assert.NotContains(t, rec.Body.String(), "Johnson")

		req, rec = newRequest(http.MethodGet, "/api/onboarding/progress?email=marcus@example.com&invite_token=wrong")
		f.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		got = onboarding.Progress{}
		decode(t, rec, &got)
		assert.Nil(t, got.FormData.PersonalInfo)
	})

	t.Run("progress by invitation token", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/api/onboarding/progress?email=marcus@example.com&invite_token="+inv.Token)
		f.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got onboarding.Progress
		decode(t, rec, &got)
		require.NotNil(t, got.FormData.PersonalInfo)
		assert.Equal(t, "Marcus", got.FormData.PersonalInfo.FirstName)
	})

	runHTTPTests(t, f, []httpTest{
		{
			name:     "save after completion",
			method:   http.MethodPut,
			path:     "/api/onboarding/progress/finalize",
			body:     saveStepBody("marcus@example.com", `{}`),
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: onboarding.ErrAlreadyComplete.Error()}),
		},
		{
			name:     "unknown step",
			method:   http.MethodPut,
			path:     "/api/onboarding/progress/hobbies",
			body:     saveStepBody("marcus@example.com", `{}`),
			wantCode: http.StatusNotFound,
		},
		{
			name:     "unknown progress",
			method:   http.MethodGet,
			path:     "/api/onboarding/progress?email=nobody@example.com",
			wantCode: http.StatusNotFound,
		},
		{
			name:     "invalid email",
			method:   http.MethodPost,
			path:     "/api/onboarding/progress",
			body:     []byte(`{"email":"nope"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email":"must be a valid email address"}`),
		},
		{
			name:     "expired or unknown invitation",
			method:   http.MethodPost,
			path:     "/api/onboarding/progress",
			body:     []byte(`{"invite_token":"nope"}`),
			wantCode: http.StatusNotFound,
		},
	})
}

func Test_onboardingApi_missingFields(t *testing.T) {
	f := setup(t)

	req, rec := newRequest(http.MethodPost, "/api/onboarding/progress", []byte(`{"email":"solo@example.com"}`))
	f.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req, rec = newRequest(http.MethodPut, "/api/onboarding/progress/PERSONAL_INFO",
		saveStepBody("solo@example.com", `{"lastName":"Solo","email":"solo@example.com","phone":"5125550100"}`))
	f.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req, rec = newRequest(http.MethodPost, "/api/onboarding/complete", []byte(`{"email":"solo@example.com"}`))
	f.serve(req, rec)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	var res struct {
		Error         string                    `json:"error"`
		MissingFields []onboarding.MissingField `json:"missing_fields"`
	}
	decode(t, rec, &res)
	assert.Equal(t, "missing required fields", res.Error)
	require.NotEmpty(t, res.MissingFields)
	assert.Equal(t, onboarding.MissingField{Field: "firstName", Label: "First Name"}, res.MissingFields[0])
	for _, mf := range res.MissingFields {
		assert.NotEqual(t, "lastName", mf.Field)
	}

	req, rec = newRequest(http.MethodGet, "/metrics")
	f.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `tsa_onboarding_completions_total{outcome="missing_fields"} 1`), rec.Body.String())
}
