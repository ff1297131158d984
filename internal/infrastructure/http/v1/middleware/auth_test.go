package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bottleworks/internal/core/actor"
	"bottleworks/internal/core/apperror"
)

func roleTestContext(t *testing.T, a *actor.Actor) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	req := httptest.NewRequest(http.MethodPost, "/batches", nil)
	if a != nil {
		req = req.WithContext(actor.WithActor(req.Context(), a))
	}
	c.Request = req
	return c, rec
}

func TestRequireRole_AllowsMatchingRole(t *testing.T) {
	c, _ := roleTestContext(t, &actor.Actor{UserID: "op-1", Roles: []string{actor.RoleOperator}})

	RequireRole(actor.RoleOperator, actor.RoleAdmin)(c)

	assert.False(t, c.IsAborted())
	assert.Empty(t, c.Errors)
}

func TestRequireRole_ForbidsMissingRole(t *testing.T) {
	c, _ := roleTestContext(t, &actor.Actor{UserID: "viewer-1", Roles: []string{"viewer"}})

	RequireRole(actor.RoleOperator)(c)

	assert.True(t, c.IsAborted())
	require.Len(t, c.Errors, 1)
	appErr, ok := apperror.AsAppError(c.Errors.Last().Err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeForbidden, appErr.Code)
}

func TestRequireRole_RejectsAnonymous(t *testing.T) {
	c, _ := roleTestContext(t, nil)

	RequireRole(actor.RoleOperator)(c)

	assert.True(t, c.IsAborted())
	require.Len(t, c.Errors, 1)
	appErr, ok := apperror.AsAppError(c.Errors.Last().Err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeUnauthorized, appErr.Code)
}
