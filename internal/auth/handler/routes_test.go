package handler_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/LinhPhuong14/MediFlow/internal/auth/dto"
	"github.com/LinhPhuong14/MediFlow/pkg/constant"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRegisterRoutes verifies every route is mounted. A 404 means the route
// is missing; anything else (400 for an empty body, 401 without a token) is
// the handler answering.
func TestRegisterRoutes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	env := newTestEnv(t, ctrl)

	testCases := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/register"},
		{http.MethodPost, "/api/v1/login"},
		{http.MethodPost, "/api/v1/refresh"},
		{http.MethodDelete, "/api/v1/session"},
		{http.MethodPost, "/api/v1/password/forgot"},
		{http.MethodPost, "/api/v1/password/reset"},
		{http.MethodPost, "/api/v1/oauth/google"},
		{http.MethodPost, "/api/v1/oauth/link"},
		{http.MethodGet, "/api/v1/oauth/status"},
		{http.MethodGet, "/api/v1/sessions"},
		{http.MethodGet, "/api/v1/admin/report"},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%s_%s_exists", tc.method, tc.path), func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			resp, err := env.app.Test(req)
			require.NoError(t, err)

			assert.NotEqual(t, http.StatusNotFound, resp.StatusCode)
		})
	}
}

// TestAdminReportRoute covers the role gate on the report endpoint and the
// report payload itself.
func TestAdminReportRoute(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	env := newTestEnv(t, ctrl)

	doctorPair, err := env.signer.GeneratePair("user-1", "doc@hospital.com", constant.RoleDoctor)
	require.NoError(t, err)
	adminPair, err := env.signer.GeneratePair("admin-1", "admin@hospital.com", constant.RoleSuperAdmin)
	require.NoError(t, err)

	t.Run("no token is unauthorized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/report", nil)
		resp, err := env.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("wrong role is forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/report", nil)
		req.Header.Set("Authorization", "Bearer "+doctorPair.AccessToken)
		resp, err := env.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("super admin gets the report", func(t *testing.T) {
		env.users.EXPECT().CountUsers(gomock.Any()).Return(42, nil)
		env.users.EXPECT().CountUsersCreatedSince(gomock.Any(), gomock.Any()).Return(3, nil)
		env.users.EXPECT().CountBlockedUsers(gomock.Any(), gomock.Any()).Return(1, nil)
		env.tokens.EXPECT().CountCreatedSince(gomock.Any(), gomock.Any()).Return(9, nil)
		env.tokens.EXPECT().CountActive(gomock.Any(), gomock.Any()).Return(17, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/report", nil)
		req.Header.Set("Authorization", "Bearer "+adminPair.AccessToken)
		resp, err := env.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body dto.ReportOutput
		decodeBody(t, resp, &body)
		assert.Equal(t, 42, body.TotalUsers)
		assert.Equal(t, 17, body.ActiveTokens)
	})
}
