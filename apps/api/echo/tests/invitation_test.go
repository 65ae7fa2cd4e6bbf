package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/malekai-gauntlet/tsa-platform-sub001/apps/api/echo"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/invitation"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/user"
	emailsvc "github.com/malekai-gauntlet/tsa-platform-sub001/services/email"
)

func coachInvite() invitation.CoachInvite {
	return invitation.CoachInvite{
		Name:             "Marcus  Lee Johnson",
		Email:            "Marcus@Example.com",
		Cell:             "(512) 555-0100",
		Location:         "Austin, tx",
		D1AthleticsCount: 4,
		Bio:              "Former sprinter, coaching for ten years.",
	}
}

func Test_invitationApi_inviteCoach(t *testing.T) {
	f := setup(t)
	admin := f.createUser(t, "boss@test.local", user.RoleAdmin)
	coach := f.createUser(t, "coach@test.local", user.RoleCoach)
	adminToken := f.token(t, admin)

	req, rec := newAuthRequest(http.MethodPost, "/api/invitations/coach", adminToken, marchallObj(t, coachInvite()))
	f.serve(req, rec)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var inv invitation.Invitation
	decode(t, rec, &inv)
	assert.Equal(t, "marcus@example.com", inv.Email)
	assert.Equal(t, admin.Email, inv.InvitedBy)
	assert.Equal(t, invitation.TypeCoach, inv.Type)
	assert.Equal(t, invitation.StatusPending, inv.Status)
	assert.Equal(t, "Marcus", inv.FirstName)
	assert.Equal(t, "Lee Johnson", inv.LastName)
	assert.Equal(t, "TX", inv.State)
	assert.Equal(t, "+15125550100", inv.Phone)

	sent := emailsvc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "marcus@example.com", sent[0].To[0].Address)

	_, err := f.identity.GetUserByEmail(context.Background(), "marcus@example.com")
	assert.NoError(t, err, "the invited coach gets a sign-in account")

	dup := coachInvite()
	dup.Location = "Nowhere"
	runHTTPTests(t, f, []httpTest{
		{
			name:     "pending invitation exists",
			method:   http.MethodPost,
			path:     "/api/invitations/coach",
			body:     marchallObj(t, coachInvite()),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email":"a pending invitation already exists for this email"}`),
		},
		{
			name:     "invalid location",
			method:   http.MethodPost,
			path:     "/api/invitations/coach",
			body:     marchallObj(t, dup),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "not admin",
			method:   http.MethodPost,
			path:     "/api/invitations/coach",
			body:     marchallObj(t, coachInvite()),
			token:    f.token(t, coach),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "missing token",
			method:   http.MethodPost,
			path:     "/api/invitations/coach",
			body:     marchallObj(t, coachInvite()),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
	})
}

func Test_invitationApi_validate(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	inv, err := f.invitations.CreateCoachInvitation(ctx, coachInvite())
	require.NoError(t, err)

	req, rec := newRequest(http.MethodGet, "/api/invitations/"+inv.Token)
	f.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res echoapi.InvitationResponse
	decode(t, rec, &res)
	assert.Equal(t, inv.ID, res.Invitation.ID)
	assert.Equal(t, inv.ID, res.Prefill.InvitationID)
	assert.Equal(t, invitation.TypeCoach, res.Prefill.Type)
	assert.Equal(t, "Marcus", res.Prefill.FirstName)
	assert.Equal(t, "Austin", res.Prefill.City)
	assert.Equal(t, 4, res.Prefill.D1AthleticsCount)

	revoked, err := f.invitations.CreateCoachInvitation(ctx, invitation.CoachInvite{
		Name: "Ann Smith", Email: "ann@example.com", Cell: "5125550111", Location: "Dallas, TX", Bio: "Basketball coach.",
	})
	require.NoError(t, err)
	_, err = f.invitations.Revoke(ctx, revoked.ID)
	require.NoError(t, err)

	runHTTPTests(t, f, []httpTest{
		{
			name:     "unknown token",
			method:   http.MethodGet,
			path:     "/api/invitations/unknown",
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: invitation.ErrNotFound.Error()}),
		},
		{
			name:     "revoked",
			method:   http.MethodGet,
			path:     "/api/invitations/" + revoked.Token,
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: invitation.ErrNotPending.Error()}),
		},
	})
}

func Test_invitationApi_admin(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	adminToken := f.token(t, f.createUser(t, "boss@test.local", user.RoleAdmin))

	inv, err := f.invitations.CreateCoachInvitation(ctx, coachInvite())
	require.NoError(t, err)
	other, err := f.invitations.CreateCoachInvitation(ctx, invitation.CoachInvite{
		Name: "Ann Smith", Email: "ann@example.com", Cell: "5125550111", Location: "Dallas, TX", Bio: "Basketball coach.",
	})
	require.NoError(t, err)

	t.Run("query", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/invitations?status=PENDING&email=ANN@example.com", adminToken)
		f.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var invs []invitation.Invitation
		decode(t, rec, &invs)
		require.Len(t, invs, 1)
		assert.Equal(t, other.ID, invs[0].ID)
	})

	t.Run("resend", func(t *testing.T) {
		emailsvc.ResetSentMessages()
		req, rec := newAuthRequest(http.MethodPost, "/api/invitations/"+inv.ID+"/resend", adminToken)
		f.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res echoapi.ResendResponse
		decode(t, rec, &res)
		assert.True(t, res.Success)
		assert.Len(t, emailsvc.Sent(), 1)
	})

	t.Run("revoke and cancel", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/invitations/"+inv.ID+"/revoke", adminToken)
		f.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res invitation.Invitation
		decode(t, rec, &res)
		assert.Equal(t, invitation.StatusRevoked, res.Status)

		req, rec = newAuthRequest(http.MethodPost, "/api/invitations/"+other.ID+"/cancel", adminToken)
		f.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decode(t, rec, &res)
		assert.Equal(t, invitation.StatusCancelled, res.Status)
	})

	runHTTPTests(t, f, []httpTest{
		{
			name:     "revoke twice",
			method:   http.MethodPost,
			path:     "/api/invitations/" + inv.ID + "/revoke",
			token:    adminToken,
			wantCode: http.StatusConflict,
		},
		{
			name:     "resend closed invitation",
			method:   http.MethodPost,
			path:     "/api/invitations/" + inv.ID + "/resend",
			token:    adminToken,
			wantCode: http.StatusConflict,
		},
		{
			name:     "unknown invitation",
			method:   http.MethodPost,
			path:     "/api/invitations/unknown/cancel",
			token:    adminToken,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "expire stale",
			method:   http.MethodPost,
			path:     "/api/invitations/expire",
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: []byte(`{"expired":0}`),
		},
	})
}

func Test_invitationApi_parentApplication(t *testing.T) {
	f := setup(t)

	app := invitation.ParentApplication{
		ParentName:   "Rosa  Diaz",
		Email:        "Rosa@Example.com",
		Phone:        "512-555-0199",
		State:        "tx",
		StudentName:  "Leo Diaz",
		StudentGrade: "5th",
		Sport:        "Soccer",
	}
	req, rec := newRequest(http.MethodPost, "/api/parent-application", marchallObj(t, app))
	f.serve(req, rec)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var inv invitation.Invitation
	decode(t, rec, &inv)
	assert.Equal(t, invitation.TypeParent, inv.Type)
	assert.Equal(t, "rosa@example.com", inv.Email)
	assert.Equal(t, "Rosa", inv.FirstName)
	assert.Equal(t, "Leo Diaz", inv.StudentName)
	assert.Len(t, emailsvc.Sent(), 1)

	runHTTPTests(t, f, []httpTest{
		{
			name:     "missing student",
			method:   http.MethodPost,
			path:     "/api/parent-application",
			body:     []byte(`{"parent_name":"Tom","email":"tom@example.com"}`),
			wantCode: http.StatusBadRequest,
		},
	})
}
