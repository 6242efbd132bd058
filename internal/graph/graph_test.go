package graph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	graphql "github.com/graph-gophers/graphql-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-editor/internal/achievements"
	"resume-editor/internal/resumes"
	"resume-editor/internal/shared/server/middleware"
	"resume-editor/internal/users"
)

func newTestSchema(t *testing.T) (*graphql.Schema, Services) {
	t.Helper()
	userSvc := users.NewService(users.NewMemoryRepo())
	resumeSvc := resumes.NewService(resumes.NewMemoryRepo(), userSvc)
	achSvc := achievements.NewService(achievements.NewMemoryRepo(), resumeSvc)
	userSvc.OnDelete(resumeSvc.DeleteByUser)
	resumeSvc.OnDelete(achSvc.DetachResume)

	svc := Services{Users: userSvc, Resumes: resumeSvc, Achievements: achSvc}
	schema, err := NewSchema(svc)
	require.NoError(t, err)
	return schema, svc
}

func authed() context.Context {
	return middleware.ContextWithIdentity(context.Background(), middleware.Identity{UserID: "1", Email: "ada@example.com"})
}

func exec(t *testing.T, schema *graphql.Schema, ctx context.Context, query string, vars map[string]interface{}) map[string]any {
	t.Helper()
	resp := schema.Exec(ctx, query, "", vars)
	require.Empty(t, resp.Errors, "graphql errors: %v", resp.Errors)
	var out map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	return out
}

func TestQueriesRequireAuth(t *testing.T) {
	schema, _ := newTestSchema(t)

	resp := schema.Exec(context.Background(), `{ users { id } }`, "", nil)
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0].Message, "permission")

	guest := middleware.ContextWithIdentity(context.Background(), middleware.Identity{UserID: "guest:g1", Guest: true})
	resp = schema.Exec(guest, `mutation { createUser(input: {email: "x@example.com"}) { id } }`, "", nil)
	require.NotEmpty(t, resp.Errors)
}

func TestCreateAndQueryRelations(t *testing.T) {
	schema, _ := newTestSchema(t)
	ctx := authed()

	out := exec(t, schema, ctx, `mutation { createUser(input: {name: "Ada", email: "ada@example.com"}) { id email name } }`, nil)
	user := out["createUser"].(map[string]any)
	assert.Equal(t, "ada@example.com", user["email"])
	userID := user["id"].(float64)

	out = exec(t, schema, ctx, `mutation($uid: Int!) { createResume(input: {title: "Engineer", userId: $uid}) { id title userId createdAt } }`,
		map[string]interface{}{"uid": userID})
	resume := out["createResume"].(map[string]any)
	assert.Equal(t, "Engineer", resume["title"])
	assert.NotEmpty(t, resume["createdAt"])
	resumeID := resume["id"].(float64)

	exec(t, schema, ctx, `mutation($rid: Int) { createAchievement(input: {body: "Shipped v2", resumeId: $rid}) { id } }`,
		map[string]interface{}{"rid": resumeID})

	out = exec(t, schema, ctx, `query($id: Int!) { user(id: $id) { resumes { title achievements { body resume { id } } } achievements { body } } }`,
		map[string]interface{}{"id": userID})
	got := out["user"].(map[string]any)
	resumesOut := got["resumes"].([]any)
	require.Len(t, resumesOut, 1)
	achOut := resumesOut[0].(map[string]any)["achievements"].([]any)
	require.Len(t, achOut, 1)
	assert.Equal(t, "Shipped v2", achOut[0].(map[string]any)["body"])
	assert.Len(t, got["achievements"].([]any), 1)

	out = exec(t, schema, ctx, `query($rid: Int!) { achievements(resumeId: $rid) { body resumeId } }`,
		map[string]interface{}{"rid": resumeID})
	assert.Len(t, out["achievements"].([]any), 1)
}

func TestMissingRecordResolvesNull(t *testing.T) {
	schema, _ := newTestSchema(t)
	out := exec(t, schema, authed(), `{ user(id: 99) { id } resume(id: 99) { id } achievement(id: 99) { id } }`, nil)
	assert.Nil(t, out["user"])
	assert.Nil(t, out["resume"])
	assert.Nil(t, out["achievement"])
}

func TestUpdateAndDeleteCascade(t *testing.T) {
	schema, svc := newTestSchema(t)
	ctx := authed()

	u, err := svc.Users.Create(ctx, users.CreateInput{Email: "grace@example.com"})
	require.NoError(t, err)
	r, err := svc.Resumes.Create(ctx, resumes.CreateInput{Title: "Draft", UserID: u.ID})
	require.NoError(t, err)
	a, err := svc.Achievements.Create(ctx, achievements.CreateInput{Body: "Led team", ResumeID: &r.ID})
	require.NoError(t, err)

	out := exec(t, schema, ctx, `mutation($id: Int!) { updateResume(id: $id, input: {title: "Final"}) { title } }`,
		map[string]interface{}{"id": float64(r.ID)})
	assert.Equal(t, "Final", out["updateResume"].(map[string]any)["title"])

	out = exec(t, schema, ctx, `mutation($id: Int!) { deleteUser(id: $id) { email resumes { id } } }`,
		map[string]interface{}{"id": float64(u.ID)})
	assert.Equal(t, "grace@example.com", out["deleteUser"].(map[string]any)["email"])

	_, err = svc.Resumes.GetByID(ctx, r.ID)
	assert.ErrorIs(t, err, resumes.ErrNotFound)

	out = exec(t, schema, ctx, `query($id: Int!) { achievement(id: $id) { body resumeId resume { id } } }`,
		map[string]interface{}{"id": float64(a.ID)})
	got := out["achievement"].(map[string]any)
	assert.Equal(t, "Led team", got["body"])
	assert.Nil(t, got["resumeId"])
	assert.Nil(t, got["resume"])
}

func TestValidationErrorSurfaces(t *testing.T) {
	schema, _ := newTestSchema(t)
	resp := schema.Exec(authed(), `mutation { createUser(input: {email: "not-an-email"}) { id } }`, "", nil)
	require.NotEmpty(t, resp.Errors)
	assert.Contains(t, resp.Errors[0].Message, users.ErrValidation.Error())
}

func TestHandlerRejectsGuests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	schema, _ := newTestSchema(t)

	r := gin.New()
	r.Use(middleware.Auth("test"))
	NewHandler(schema).RegisterRoutes(r.Group("/"))

	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":"{ users { id } }"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Guest-Id", "g-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
