package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/compliance-links-api/internal/dto"
	"github.com/noah-isme/compliance-links-api/internal/models"
	appErrors "github.com/noah-isme/compliance-links-api/pkg/errors"
	"github.com/noah-isme/compliance-links-api/pkg/response"
)

// LinkPasswordHeader lets recipients send the link password outside the body.
const LinkPasswordHeader = "X-Link-Password"

type shareLinkService interface {
	Create(ctx context.Context, req dto.CreateShareLinkRequest, creator models.Operator) (*dto.CreateShareLinkResponse, error)
	Resolve(ctx context.Context, token, password string, reqCtx models.RequestContext) (*dto.ResolvedShareLink, error)
	Revoke(ctx context.Context, token string, requester models.Operator) error
	Get(ctx context.Context, token string, requester models.Operator) (*dto.ShareLinkView, error)
	List(ctx context.Context, requester models.Operator, query dto.ShareLinkListQuery) ([]dto.ShareLinkView, *models.Pagination, error)
	AccessLogs(ctx context.Context, token string, requester models.Operator) ([]models.AccessRecord, error)
}

// ShareLinkHandler exposes disclosure link endpoints.
type ShareLinkHandler struct {
	service shareLinkService
}

// NewShareLinkHandler builds a new handler.
func NewShareLinkHandler(service shareLinkService) *ShareLinkHandler {
	return &ShareLinkHandler{service: service}
}

// Create godoc
// @Summary Issue a disclosure link
// @Tags ShareLinks
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body dto.CreateShareLinkRequest true "Link payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /links [post]
func (h *ShareLinkHandler) Create(c *gin.Context) {
	var req dto.CreateShareLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid share link payload"))
		return
	}
	link, err := h.service.Create(c.Request.Context(), req, operatorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, link)
}

// List godoc
// @Summary List disclosure links
// @Tags ShareLinks
// @Security BearerAuth
// @Produce json
// @Param created_by query string false "Issuing operator (admins only for others)"
// @Param resource_type query string false "Resource type"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /links [get]
func (h *ShareLinkHandler) List(c *gin.Context) {
	var query dto.ShareLinkListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	links, pagination, err := h.service.List(c.Request.Context(), operatorFromContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, links, pagination)
}

// Get godoc
// @Summary Get a disclosure link
// @Tags ShareLinks
// @Security BearerAuth
// @Produce json
// @Param token path string true "Link token"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /links/{token} [get]
func (h *ShareLinkHandler) Get(c *gin.Context) {
	link, err := h.service.Get(c.Request.Context(), c.Param("token"), operatorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Revoke godoc
// @Summary Revoke a disclosure link
// @Tags ShareLinks
// @Security BearerAuth
// @Param token path string true "Link token"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /links/{token} [delete]
func (h *ShareLinkHandler) Revoke(c *gin.Context) {
	if err := h.service.Revoke(c.Request.Context(), c.Param("token"), operatorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AccessLogs godoc
// @Summary List access attempts for a link
// @Tags ShareLinks
// @Security BearerAuth
// @Produce json
// @Param token path string true "Link token"
// @Success 200 {object} response.Envelope
// @Router /links/{token}/access-logs [get]
func (h *ShareLinkHandler) AccessLogs(c *gin.Context) {
	records, err := h.service.AccessLogs(c.Request.Context(), c.Param("token"), operatorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Resolve godoc
// @Summary Redeem a disclosure link
// @Tags Disclosure
// @Accept json
// @Produce json
// @Param token path string true "Link token"
// @Param X-Link-Password header string false "Link password"
// @Param payload body dto.ResolveShareLinkRequest false "Password payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /s/{token} [post]
func (h *ShareLinkHandler) Resolve(c *gin.Context) {
	password := c.GetHeader(LinkPasswordHeader)
	if password == "" && c.Request.ContentLength != 0 {
		var req dto.ResolveShareLinkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid password payload"))
			return
		}
		password = req.Password
	}

	resolved, err := h.service.Resolve(c.Request.Context(), c.Param("token"), password, requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resolved, nil)
}
