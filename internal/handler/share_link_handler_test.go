package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/compliance-links-api/internal/dto"
	"github.com/noah-isme/compliance-links-api/internal/middleware"
	"github.com/noah-isme/compliance-links-api/internal/models"
	appErrors "github.com/noah-isme/compliance-links-api/pkg/errors"
)

type shareLinkServiceMock struct {
	createResp   *dto.CreateShareLinkResponse
	createErr    error
	resolveResp  *dto.ResolvedShareLink
	resolveErr   error
	revokeErr    error
	getResp      *dto.ShareLinkView
	listResp     []dto.ShareLinkView
	listPage     *models.Pagination
	logs         []models.AccessRecord
	err          error
	lastCreate   dto.CreateShareLinkRequest
	lastOperator models.Operator
	lastToken    string
	lastPassword string
	lastReqCtx   models.RequestContext
	lastQuery    dto.ShareLinkListQuery
	resolveCalls int
}

func (m *shareLinkServiceMock) Create(ctx context.Context, req dto.CreateShareLinkRequest, creator models.Operator) (*dto.CreateShareLinkResponse, error) {
	m.lastCreate = req
	m.lastOperator = creator
	return m.createResp, m.createErr
}

func (m *shareLinkServiceMock) Resolve(ctx context.Context, token, password string, reqCtx models.RequestContext) (*dto.ResolvedShareLink, error) {
	m.resolveCalls++
	m.lastToken = token
	m.lastPassword = password
	m.lastReqCtx = reqCtx
	return m.resolveResp, m.resolveErr
}

func (m *shareLinkServiceMock) Revoke(ctx context.Context, token string, requester models.Operator) error {
	m.lastToken = token
	m.lastOperator = requester
	return m.revokeErr
}

func (m *shareLinkServiceMock) Get(ctx context.Context, token string, requester models.Operator) (*dto.ShareLinkView, error) {
	m.lastToken = token
	return m.getResp, m.err
}

func (m *shareLinkServiceMock) List(ctx context.Context, requester models.Operator, query dto.ShareLinkListQuery) ([]dto.ShareLinkView, *models.Pagination, error) {
	m.lastOperator = requester
	m.lastQuery = query
	return m.listResp, m.listPage, m.err
}

func (m *shareLinkServiceMock) AccessLogs(ctx context.Context, token string, requester models.Operator) ([]models.AccessRecord, error) {
	m.lastToken = token
	return m.logs, m.err
}

func newShareLinkRouter(svc *shareLinkServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewShareLinkHandler(svc)
	r := gin.New()
	withOperator := func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleManager})
		c.Next()
	}
	links := r.Group("/links", withOperator)
	links.POST("", h.Create)
	links.GET("", h.List)
	links.GET("/:token", h.Get)
	links.DELETE("/:token", h.Revoke)
	links.GET("/:token/access-logs", h.AccessLogs)
	r.POST("/s/:token", h.Resolve)
	return r
}

func TestShareLinkHandlerCreate(t *testing.T) {
	svc := &shareLinkServiceMock{createResp: &dto.CreateShareLinkResponse{ID: "l1", Token: "tok", URL: "https://x/s/tok"}}
	r := newShareLinkRouter(svc)

	body := `{"resource_type":"employees","resource_id":"emp_1","password":"Secr3t!","expires_in":"1d"}`
	req := httptest.NewRequest(http.MethodPost, "/links", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, dto.ResourceIDList{"emp_1"}, svc.lastCreate.ResourceID)
	assert.Equal(t, "user-1", svc.lastOperator.ID)
	assert.NotContains(t, w.Body.String(), "Secr3t!")
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestShareLinkHandlerCreateInvalidBody(t *testing.T) {
	r := newShareLinkRouter(&shareLinkServiceMock{})

	req := httptest.NewRequest(http.MethodPost, "/links", bytes.NewBufferString(`{"resource_id":`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestShareLinkHandlerResolvePasswordSources(t *testing.T) {
	svc := &shareLinkServiceMock{resolveResp: &dto.ResolvedShareLink{ResourceType: "employees", AccessCount: 1, ExpiresAt: time.Now()}}
	r := newShareLinkRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/s/tok", nil)
	req.Header.Set(LinkPasswordHeader, "from-header")
	req.Header.Set("User-Agent", "curl/8.0")
	req.RemoteAddr = "198.51.100.4:5555"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tok", svc.lastToken)
	assert.Equal(t, "from-header", svc.lastPassword)
	assert.Equal(t, "198.51.100.4", svc.lastReqCtx.IPAddress)
	assert.Equal(t, "curl/8.0", svc.lastReqCtx.UserAgent)

	req = httptest.NewRequest(http.MethodPost, "/s/tok", bytes.NewBufferString(`{"password":"from-body"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "from-body", svc.lastPassword)
}

func TestShareLinkHandlerResolveMissingPassword(t *testing.T) {
	svc := &shareLinkServiceMock{resolveErr: appErrors.ErrLinkExpired}
	r := newShareLinkRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/s/tok", nil))

	assert.Equal(t, http.StatusGone, w.Code)
	assert.Equal(t, 1, svc.resolveCalls)
	assert.Equal(t, "", svc.lastPassword)

	req := httptest.NewRequest(http.MethodPost, "/s/tok", bytes.NewBufferString(`{"password":""}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusGone, w.Code)
	assert.Equal(t, 2, svc.resolveCalls)
}

func TestShareLinkHandlerResolveErrors(t *testing.T) {
	cases := map[*appErrors.Error]int{
		appErrors.ErrLinkNotFound:     http.StatusNotFound,
		appErrors.ErrLinkExpired:      http.StatusGone,
		appErrors.ErrLinkRevoked:      http.StatusGone,
		appErrors.ErrLinkExhausted:    http.StatusGone,
		appErrors.ErrLinkAuth:         http.StatusUnauthorized,
		appErrors.ErrRateLimited:      http.StatusTooManyRequests,
		appErrors.ErrStoreUnavailable: http.StatusServiceUnavailable,
	}
	for linkErr, status := range cases {
		r := newShareLinkRouter(&shareLinkServiceMock{resolveErr: linkErr})
		req := httptest.NewRequest(http.MethodPost, "/s/tok", nil)
		req.Header.Set(LinkPasswordHeader, "pw")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, status, w.Code, linkErr.Code)
		var body map[string]map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, linkErr.Code, body["error"]["code"])
	}
}

func TestShareLinkHandlerRevoke(t *testing.T) {
	svc := &shareLinkServiceMock{}
	r := newShareLinkRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/links/tok", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "tok", svc.lastToken)

	svc.revokeErr = appErrors.ErrForbidden
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/links/tok", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestShareLinkHandlerListAndLogs(t *testing.T) {
	svc := &shareLinkServiceMock{
		listResp: []dto.ShareLinkView{{Token: "tok", Status: models.LinkStatusActive}},
		listPage: &models.Pagination{Page: 2, PageSize: 10, TotalCount: 11},
		logs:     []models.AccessRecord{{ID: "a1", LinkID: "l1", Success: true}},
	}
	r := newShareLinkRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/links?resource_type=employees&page=2&page_size=10", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "employees", svc.lastQuery.ResourceType)
	assert.Equal(t, 2, svc.lastQuery.Page)
	assert.Contains(t, w.Body.String(), `"total_count":11`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/links/tok/access-logs", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"link_id":"l1"`)
}
