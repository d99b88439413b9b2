package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"

	"networked/handlers"
	"networked/middleware"
	"networked/models"
	"networked/repository/memstore"
	"networked/services"
	"networked/uploads"
	"networked/websocket"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testAPI struct {
	router    *gin.Engine
	svc       *services.Services
	tokens    *middleware.Tokens
	uploadDir string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	tokens := middleware.NewTokens("test-secret", time.Hour)
	var h *handlers.Handler
	sockets := websocket.NewManager(func(ctx context.Context, userID, conversationID string, typing bool) error {
		return h.Typing(ctx, userID, conversationID, typing)
	})
	go sockets.Start()
	t.Cleanup(sockets.Stop)

	svc := services.New(memstore.New(), sockets)
	dir := t.TempDir()
	h = handlers.New(handlers.Deps{
		Services: svc,
		Tokens:   tokens,
		Uploads:  uploads.New(&uploads.DiskStorage{Root: dir, URLPrefix: "/uploads"}, uploads.DefaultMaxBytes),
	})
	router := SetupRouter(Options{
		Handler:   h,
		Tokens:    tokens,
		Users:     svc.Store.Users,
		Sockets:   sockets,
		UploadDir: dir,
	})
	return &testAPI{router: router, svc: svc, tokens: tokens, uploadDir: dir}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type account struct {
	ID    string
	Token string
}

func (a *testAPI) register(t *testing.T, email, first string, role models.Role) account {
	t.Helper()
	body := map[string]string{
		"email":     email,
		"password":  "secret1",
		"password2": "secret1",
		"firstName": first,
		"lastName":  "Tester",
		"role":      string(role),
	}
	if role == models.RoleCompany {
		body["companyName"] = first + " Inc"
	}
	w := a.do(t, http.MethodPost, "/auth/register", "", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	res := decode(t, w)
	user := res["user"].(map[string]interface{})
	return account{ID: user["id"].(string), Token: res["token"].(string)}
}

func (a *testAPI) admin(t *testing.T) account {
	t.Helper()
	u := &models.User{Email: "root@example.com", Role: models.RoleAdmin, FirstName: "Root"}
	require.NoError(t, a.svc.Store.Users.Create(context.Background(), u))
	token, err := a.tokens.Issue(u.ID)
	require.NoError(t, err)
	return account{ID: u.ID.Hex(), Token: token}
}

func TestHealthIsPublic(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestRegisterAndLogin(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "ada@example.com", "Ada", models.RoleUser)

	w := api.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "ada@example.com", "password": "secret1", "password2": "secret1",
		"firstName": "Ada", "lastName": "Again",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	fields := decode(t, w)["fields"].(map[string]interface{})
	assert.Contains(t, fields, "email")

	w = api.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ada@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ADA@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)
	token := decode(t, w)["token"].(string)

	w = api.do(t, http.MethodGet, "/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ada@example.com", decode(t, w)["email"])
	assert.NotContains(t, w.Body.String(), "password")
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	api := newTestAPI(t)
	for _, path := range []string{"/", "/counters", "/jobs", "/notifications/count", "/admin"} {
		w := api.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestConnectionFlow(t *testing.T) {
	api := newTestAPI(t)
	ada := api.register(t, "ada@example.com", "Ada", models.RoleUser)
	bob := api.register(t, "bob@example.com", "Bob", models.RoleUser)

	w := api.do(t, http.MethodPost, "/network/connect/"+bob.ID, ada.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = api.do(t, http.MethodPost, "/network/connect/"+bob.ID, ada.Token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(t, http.MethodGet, "/notifications/count", bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["count"])

	w = api.do(t, http.MethodPost, "/network/accept/"+ada.ID, bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = api.do(t, http.MethodPost, "/network/reject/"+ada.ID, bob.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, http.MethodGet, "/network/connections", ada.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	conns := decode(t, w)["connections"].([]interface{})
	require.Len(t, conns, 1)
	assert.Equal(t, bob.ID, conns[0].(map[string]interface{})["id"])

	w = api.do(t, http.MethodPost, "/network/connect/not-an-id", ada.Token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJobApplicationFlow(t *testing.T) {
	api := newTestAPI(t)
	acme := api.register(t, "hr@acme.example", "Acme", models.RoleCompany)
	ada := api.register(t, "ada@example.com", "Ada", models.RoleUser)

	job := map[string]interface{}{"title": "Go Engineer", "description": "Build services", "type": "Full-time"}
	w := api.do(t, http.MethodPost, "/jobs", ada.Token, job)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(t, http.MethodPost, "/jobs", acme.Token, job)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	jobID := decode(t, w)["id"].(string)

	w = api.do(t, http.MethodPost, "/jobs/"+jobID+"/apply", ada.Token, map[string]string{"coverLetter": "Hire me"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	convID := decode(t, w)["conversationId"].(string)
	w = api.do(t, http.MethodPost, "/jobs/"+jobID+"/apply", ada.Token, map[string]string{"coverLetter": "Again"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(t, http.MethodGet, "/counters", acme.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	counters := decode(t, w)
	assert.EqualValues(t, 1, counters["pendingApplications"])
	assert.EqualValues(t, 1, counters["unreadMessages"])

	w = api.do(t, http.MethodGet, "/messages/"+convID, acme.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Application for: Go Engineer")

	w = api.do(t, http.MethodPut, "/jobs/"+jobID+"/application/"+ada.ID, acme.Token, map[string]string{"status": "reviewed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = api.do(t, http.MethodPut, "/jobs/"+jobID+"/application/"+ada.ID, acme.Token, map[string]string{"status": "pending"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(t, http.MethodGet, "/jobs/my-jobs", acme.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeList(t, w), 1)
}

func TestMessagingFlow(t *testing.T) {
	api := newTestAPI(t)
	ada := api.register(t, "ada@example.com", "Ada", models.RoleUser)
	bob := api.register(t, "bob@example.com", "Bob", models.RoleUser)
	eve := api.register(t, "eve@example.com", "Eve", models.RoleUser)

	w := api.do(t, http.MethodPost, "/messages/start/"+bob.ID, ada.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	convID := decode(t, w)["conversationId"].(string)

	w = api.do(t, http.MethodPost, "/messages/"+convID, ada.Token, map[string]string{"content": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = api.do(t, http.MethodPost, "/messages/"+convID, ada.Token, map[string]string{"content": "hi bob"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = api.do(t, http.MethodGet, "/messages/"+convID, eve.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(t, http.MethodGet, "/messages", bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeList(t, w), 1)

	w = api.do(t, http.MethodGet, "/messages/"+convID, bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["markedRead"])
}

func multipartBody(t *testing.T, fields map[string]string, fileField, fileName, mime string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", `form-data; name="`+fileField+`"; filename="`+fileName+`"`)
		hdr.Set("Content-Type", mime)
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (a *testAPI) upload(t *testing.T, method, path, token string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func TestCreatePostWithMedia(t *testing.T) {
	api := newTestAPI(t)
	ada := api.register(t, "ada@example.com", "Ada", models.RoleUser)

	body, ct := multipartBody(t, map[string]string{"content": "hello"}, "postMedia", "cat.png", "image/png", []byte("png"))
	w := api.upload(t, http.MethodPost, "/posts", ada.Token, body, ct)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	post := decode(t, w)
	assert.Equal(t, "image", post["mediaType"])
	media := post["media"].(string)
	assert.Regexp(t, `^/uploads/posts/postMedia-\d+-\d+\.png$`, media)
	_, err := os.Stat(filepath.Join(api.uploadDir, "posts", filepath.Base(media)))
	assert.NoError(t, err)

	body, ct = multipartBody(t, map[string]string{"content": "nope"}, "postMedia", "run.exe", "application/octet-stream", []byte("MZ"))
	w = api.upload(t, http.MethodPost, "/posts", ada.Token, body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodGet, "/", ada.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	posts := decode(t, w)["posts"].([]interface{})
	require.Len(t, posts, 1)
	assert.Equal(t, "hello", posts[0].(map[string]interface{})["content"])
}

func TestFailedPostLeavesNoUpload(t *testing.T) {
	api := newTestAPI(t)
	ada := api.register(t, "ada@example.com", "Ada", models.RoleUser)

	body, ct := multipartBody(t, map[string]string{"content": "  "}, "postMedia", "cat.png", "image/png", []byte("png"))
	w := api.upload(t, http.MethodPost, "/posts", ada.Token, body, ct)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	missing := primitive.NewObjectID().Hex()
	body, ct = multipartBody(t, map[string]string{"content": "nice"}, "postMedia", "cat.png", "image/png", []byte("png"))
	w = api.upload(t, http.MethodPost, "/posts/"+missing+"/comment", ada.Token, body, ct)
	require.Equal(t, http.StatusNotFound, w.Code, w.Body.String())

	entries, err := os.ReadDir(filepath.Join(api.uploadDir, "posts"))
	if err == nil {
		assert.Empty(t, entries)
	} else {
		assert.True(t, os.IsNotExist(err))
	}
}

func TestReactAndComment(t *testing.T) {
	api := newTestAPI(t)
	ada := api.register(t, "ada@example.com", "Ada", models.RoleUser)
	bob := api.register(t, "bob@example.com", "Bob", models.RoleUser)

	w := api.do(t, http.MethodPost, "/posts", ada.Token, map[string]string{"content": "first"})
	require.Equal(t, http.StatusCreated, w.Code)
	postID := decode(t, w)["id"].(string)

	w = api.do(t, http.MethodPost, "/posts/"+postID+"/react", bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["reacted"])
	w = api.do(t, http.MethodPost, "/posts/"+postID+"/react", bob.Token, map[string]string{"type": "like"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["reacted"])

	w = api.do(t, http.MethodPost, "/posts/"+postID+"/comment", bob.Token, map[string]string{"content": "nice"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	commentID := decode(t, w)["id"].(string)

	w = api.do(t, http.MethodDelete, "/posts/"+postID, bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = api.do(t, http.MethodDelete, "/posts/"+postID+"/comment/"+commentID, ada.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProfileItemsAndCV(t *testing.T) {
	api := newTestAPI(t)
	ada := api.register(t, "ada@example.com", "Ada", models.RoleUser)

	w := api.do(t, http.MethodPost, "/profile/skills", ada.Token, map[string]string{"title": "Backend", "technology": "Go", "level": "Expert"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	skillID := decode(t, w)["id"].(string)

	w = api.do(t, http.MethodPost, "/profile/skills", ada.Token, map[string]string{"title": "Backend"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPut, "/profile", ada.Token, map[string]string{"headline": "Engineer"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Engineer", decode(t, w)["headline"])

	w = api.do(t, http.MethodGet, "/profile/cv/download", ada.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Ada_Tester_CV.pdf")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	w = api.do(t, http.MethodDelete, "/profile/skills/"+skillID, ada.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = api.do(t, http.MethodDelete, "/profile/skills/"+skillID, ada.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, http.MethodGet, "/profile/"+ada.ID, ada.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["isOwner"])
}

func TestAdminBanLocksOutUser(t *testing.T) {
	api := newTestAPI(t)
	root := api.admin(t)
	ada := api.register(t, "ada@example.com", "Ada", models.RoleUser)

	w := api.do(t, http.MethodGet, "/admin", ada.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(t, http.MethodPost, "/admin/users/"+ada.ID+"/ban", root.Token, map[string]string{"reason": "spam"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(t, http.MethodGet, "/", ada.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "spam")

	w = api.do(t, http.MethodGet, "/admin/users?status=banned", root.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeList(t, w), 1)

	w = api.do(t, http.MethodPost, "/admin/users/"+ada.ID+"/unban", root.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = api.do(t, http.MethodGet, "/", ada.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodPost, "/admin/users/"+root.ID+"/ban", root.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPushDisabled(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodGet, "/push/vapid-public-key", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestUnknownRoute(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
