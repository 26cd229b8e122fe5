package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"citizenconnect/config"
	"citizenconnect/controllers"
	"citizenconnect/logging"
	"citizenconnect/models"
	"citizenconnect/notify"
	"citizenconnect/repository"
	"citizenconnect/routes"
	"citizenconnect/targeting"
	authUtils "citizenconnect/utils"
	"citizenconnect/workflow"
)

const announcementBody = "The water supply in the district will be interrupted for scheduled maintenance on Saturday."

type harness struct {
	t      *testing.T
	router *gin.Engine
	stores repository.Stores
	cfg    config.Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logging.Init(logging.Config{Level: "error", Output: io.Discard})

	cfg := config.FromEnv(func(string) string { return "" })
	cfg.JWTSecret = "test-secret"

	stores := repository.NewMemoryStores()
	engine, err := workflow.NewEngine()
	require.NoError(t, err)

	h := controllers.NewHandler(stores, workflow.NewService(stores.Issues, engine), targeting.NewEncoder(nil), notify.Nop{}, cfg)
	r := gin.New()
	routes.Setup(r, h, cfg, nil)

	return &harness{t: t, router: r, stores: stores, cfg: cfg}
}

func (h *harness) user(name string, role models.Role) (primitive.ObjectID, string) {
	h.t.Helper()
	u := models.User{Name: name, Email: strings.ToLower(name) + "@example.com", Role: role}
	require.NoError(h.t, h.stores.Users.Create(context.Background(), &u))
	token, err := authUtils.GenerateToken(h.cfg.JWTSecret, u.ID.Hex(), string(role), time.Hour)
	require.NoError(h.t, err)
	return u.ID, token
}

func (h *harness) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	h.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (h *harness) createIssue(token string, extra map[string]interface{}) string {
	h.t.Helper()
	body := map[string]interface{}{
		"title":       "Broken streetlight",
		"description": "The streetlight on KG 11 Ave has been off for a week.",
		"category":    "Electricity",
		"location":    map[string]string{"district": "Gasabo", "sector": "Remera"},
	}
	for k, v := range extra {
		body[k] = v
	}
	w := h.do(http.MethodPost, "/api/issues", token, body)
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())
	return decode(h.t, w)["id"].(string)
}

func (h *harness) reply(token, issueID string, body map[string]interface{}) *httptest.ResponseRecorder {
	return h.do(http.MethodPost, "/api/issues/"+issueID+"/replies", token, body)
}

func replyID(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["reply"].(map[string]interface{})["id"].(string)
}

func TestAuthFlow(t *testing.T) {
	h := newHarness(t)

	register := map[string]string{"name": "Alice", "email": "alice@example.com", "password": "secret1"}
	w := h.do(http.MethodPost, "/api/auth/register", "", register)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "citizen", decode(t, w)["role"])

	w = h.do(http.MethodPost, "/api/auth/register", "", register)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "Alice@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token := decode(t, w)["token"].(string)

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "auth_token" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	w = h.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice@example.com", decode(t, w)["email"])

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/auth/me", "", nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/auth/logout", token, nil).Code)
}

func TestReplyWorkflowOverHTTP(t *testing.T) {
	h := newHarness(t)
	_, citizen := h.user("Citizen", models.RoleCitizen)
	_, official := h.user("Official", models.RoleOfficial)
	issueID := h.createIssue(citizen, nil)

	w := h.reply(citizen, issueID, map[string]interface{}{"content": "fixed", "replyType": "resolve"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.reply(official, issueID, map[string]interface{}{"content": "Escalating", "replyType": "escalation"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	fields := decode(t, w)["fields"].(map[string]interface{})
	assert.Contains(t, fields, "escalationReason")

	w = h.reply(official, issueID, map[string]interface{}{"content": "Crew assigned", "replyType": "progress"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "in_progress", body["status"])
	assert.Equal(t, true, body["acceptsComments"])

	w = h.reply(official, issueID, map[string]interface{}{"content": "Light replaced", "replyType": "resolve"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, false, decode(t, w)["allowsFurtherReplies"])

	w = h.reply(official, issueID, map[string]interface{}{"content": "One more thing", "replyType": "progress"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(http.MethodGet, "/api/issues/"+issueID, citizen, nil)
	require.Equal(t, http.StatusOK, w.Code)
	issue := decode(t, w)
	assert.Equal(t, "resolved", issue["status"])
	assert.Equal(t, "replied_terminal", issue["replyState"])
	assert.Len(t, issue["governmentReplies"], 2)
}

func TestFollowUpAndReplyComments(t *testing.T) {
	h := newHarness(t)
	_, author := h.user("Author", models.RoleCitizen)
	_, neighbour := h.user("Neighbour", models.RoleCitizen)
	_, official := h.user("Official", models.RoleOfficial)
	issueID := h.createIssue(author, nil)

	followup := replyID(t, h.reply(official, issueID, map[string]interface{}{"content": "Which pole exactly?", "replyType": "followup"}))
	path := "/api/issues/" + issueID + "/replies/" + followup

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, path+"/comments", neighbour, map[string]string{"text": "+1"}).Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodPost, path+"/followup", neighbour, map[string]string{"content": "not mine"}).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, path+"/followup", author, map[string]string{"content": "  "}).Code)

	w := h.do(http.MethodPost, path+"/followup", author, map[string]string{"content": "The one opposite the school"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["isPrivate"])
	assert.Equal(t, http.StatusConflict, h.do(http.MethodPost, path+"/followup", author, map[string]string{"content": "again"}).Code)

	replies := func(token string) []interface{} {
		w := h.do(http.MethodGet, "/api/issues/"+issueID, token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		return decode(t, w)["governmentReplies"].([]interface{})
	}
	assert.Contains(t, replies(author)[0], "followUpResponse")
	assert.Contains(t, replies(official)[0], "followUpResponse")
	assert.NotContains(t, replies(neighbour)[0], "followUpResponse")

	progress := replyID(t, h.reply(official, issueID, map[string]interface{}{"content": "Crew on the way", "replyType": "progress"}))
	commentPath := "/api/issues/" + issueID + "/replies/" + progress + "/comments"

	w = h.do(http.MethodPost, commentPath, neighbour, map[string]string{"text": "Thanks!"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	top := decode(t, w)
	assert.Equal(t, float64(0), top["depth"])

	w = h.do(http.MethodPost, commentPath, author, map[string]string{"text": "Agreed", "parentId": top["id"].(string)})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["depth"])
}

func TestIssueVisibilityAndVotes(t *testing.T) {
	h := newHarness(t)
	_, author := h.user("Author", models.RoleCitizen)
	_, other := h.user("Other", models.RoleCitizen)
	_, official := h.user("Official", models.RoleOfficial)

	private := h.createIssue(author, map[string]interface{}{"isPrivate": true})
	anonymous := h.createIssue(author, map[string]interface{}{"isAnonymous": true})

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/issues/"+private, other, nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/issues/"+private, official, nil).Code)

	w := h.do(http.MethodGet, "/api/issues", other, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["totalIssues"])

	w = h.do(http.MethodGet, "/api/issues/mine", author, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["totalIssues"])

	w = h.do(http.MethodGet, "/api/issues/"+anonymous, other, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Anonymous", decode(t, w)["createdBy"].(map[string]interface{})["name"])

	w = h.do(http.MethodPost, "/api/issues/"+anonymous+"/vote", other, nil)
	require.Equal(t, http.StatusOK, w.Code)
	vote := decode(t, w)
	assert.Equal(t, true, vote["voted"])
	assert.Equal(t, float64(1), vote["votes"])

	w = h.do(http.MethodGet, "/api/issues/"+anonymous, other, nil)
	assert.Equal(t, true, decode(t, w)["userHasVoted"])

	w = h.do(http.MethodPost, "/api/issues/"+anonymous+"/vote", other, nil)
	assert.Equal(t, float64(0), decode(t, w)["votes"])
}

func TestIssueEditsAndStatus(t *testing.T) {
	h := newHarness(t)
	_, author := h.user("Author", models.RoleCitizen)
	_, other := h.user("Other", models.RoleCitizen)
	_, official := h.user("Official", models.RoleOfficial)
	issueID := h.createIssue(author, nil)

	edit := map[string]interface{}{
		"title":       "Broken streetlights",
		"description": "Two streetlights are off.",
		"category":    "Electricity",
		"location":    map[string]string{"district": "Gasabo"},
	}
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodPut, "/api/issues/"+issueID, other, edit).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodPut, "/api/issues/"+issueID, author, edit).Code)

	edit["category"] = "Weather"
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPut, "/api/issues/"+issueID, author, edit).Code)

	replyID(t, h.reply(official, issueID, map[string]interface{}{"content": "Noted", "replyType": "progress"}))
	assert.Equal(t, http.StatusConflict, h.do(http.MethodDelete, "/api/issues/"+issueID, author, nil).Code)

	statusPath := "/api/issues/" + issueID + "/status"
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodPatch, statusPath, author, map[string]string{"status": "closed"}).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPatch, statusPath, official, map[string]string{"status": "done"}).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodPatch, statusPath, official, map[string]string{"status": "closed"}).Code)

	fresh := h.createIssue(author, nil)
	assert.Equal(t, http.StatusOK, h.do(http.MethodDelete, "/api/issues/"+fresh, author, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/issues/"+fresh, author, nil).Code)
}

func TestLeadersAndAnnouncements(t *testing.T) {
	h := newHarness(t)
	_, admin := h.user("Admin", models.RoleAdmin)
	_, citizen := h.user("Citizen", models.RoleCitizen)
	officialID, official := h.user("Official", models.RoleOfficial)
	_, stranger := h.user("Stranger", models.RoleOfficial)

	leader := map[string]interface{}{
		"userId":   officialID.Hex(),
		"name":     "Jane Mukamana",
		"title":    "District Mayor",
		"level":    "district",
		"location": map[string]string{"district": "Gasabo"},
	}
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodPost, "/api/leaders", citizen, leader).Code)

	bad := map[string]interface{}{"userId": officialID.Hex(), "name": "X", "title": "Y", "level": "sector", "location": map[string]string{"district": "Gasabo"}}
	w := h.do(http.MethodPost, "/api/leaders", admin, bad)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["fields"], "location.sector")

	w = h.do(http.MethodPost, "/api/leaders", admin, leader)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	leaderID := decode(t, w)["id"].(string)

	w = h.do(http.MethodGet, "/api/leaders/"+leaderID, citizen, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Jane Mukamana", decode(t, w)["name"])

	announcement := map[string]interface{}{
		"title":    "Water interruption",
		"content":  announcementBody,
		"category": "utilities",
		"priority": "important",
		"regionalFocus": map[string]interface{}{
			"enabled": true, "level": "sector", "district": "Gasabo", "sector": "Remera",
		},
	}
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodPost, "/api/announcements", stranger, announcement).Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodPost, "/api/announcements", citizen, announcement).Code)

	short := map[string]interface{}{"title": "Hi", "content": "Too short"}
	w = h.do(http.MethodPost, "/api/announcements", official, short)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["fields"], "content")

	w = h.do(http.MethodPost, "/api/announcements", official, announcement)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, []interface{}{"regional_district_default_Gasabo", "regional_sector_all_cells_Gasabo_Remera"}, created["targetAudience"])
	assert.Equal(t, true, created["classification"].(map[string]interface{})["sectorWide"])
	id := created["id"].(string)

	count := func(scope string) float64 {
		w := h.do(http.MethodGet, "/api/announcements?scope="+scope, citizen, nil)
		require.Equal(t, http.StatusOK, w.Code)
		return decode(t, w)["total"].(float64)
	}
	assert.Equal(t, float64(1), count("sector"))
	assert.Equal(t, float64(1), count("district"))
	assert.Equal(t, float64(0), count("cell"))

	announcement["regionalFocus"] = map[string]interface{}{"enabled": false}
	w = h.do(http.MethodPut, "/api/announcements/"+id, official, announcement)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []interface{}{"regional_district_default_Gasabo"}, decode(t, w)["targetAudience"])
	assert.Equal(t, float64(0), count("sector"))

	preview := map[string]interface{}{"enabled": true, "level": "cell", "district": "Gasabo", "sector": "Remera", "cell": "Rukiri"}
	w = h.do(http.MethodPost, "/api/audience/preview", official, preview)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []interface{}{"regional_district_default_Gasabo", "regional_cell_specific_cell_Gasabo_Remera_Rukiri"}, decode(t, w)["targetAudience"])

	preview["district"] = "Kicukiro"
	w = h.do(http.MethodPost, "/api/audience/preview", official, preview)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["fields"], "regionalFocus.district")
}
