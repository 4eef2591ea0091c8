// Legal request HTTP handlers.
//
//   - POST /requests   (generate, email and store an officer-filled request)
//   - GET  /requests   (list, optionally for one case)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/notice-escalator/internal/domain"
	"github.com/tbourn/notice-escalator/internal/services"
	"github.com/tbourn/notice-escalator/internal/utils"
)

// ListRequestsResponse wraps a page of legal requests.
type ListRequestsResponse struct {
	Requests []domain.LegalRequest `json:"requests"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
}

// CreateRequest godoc
// @ID          createLegalRequest
// @Summary     Generate a legal request
// @Description Renders the request PDF, emails it to the recipient and stores it.
// @Tags        Requests
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string                  false  "Replay key"
// @Param       body             body    services.RequestInput   true   "Request details"
// @Success     201  {object} domain.LegalRequest
// @Failure     400  {object} handlers.ErrorResponse "Missing or invalid fields"
// @Failure     502  {object} handlers.ErrorResponse "Delivery failed"
// @Router      /requests [post]
func (h *Handlers) CreateRequest(c *gin.Context) {
	var in services.RequestInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	r, err := h.requests.Generate(c.Request.Context(), in)
	if err != nil {
		failErr(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusCreated, r)
}

// ListRequests godoc
// @ID          listLegalRequests
// @Summary     List legal requests
// @Tags        Requests
// @Produce     json
// @Param       case_id    query  string  false  "Only requests produced for this case"
// @Param       page       query  int     false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object} handlers.ListRequestsResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /requests [get]
func (h *Handlers) ListRequests(c *gin.Context) {
	page, pageSize := utils.ClampPage(c.Query("page"), c.Query("page_size"))
	items, err := h.requests.List(c.Request.Context(), c.Query("case_id"), page, pageSize)
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}
	if items == nil {
		items = []domain.LegalRequest{}
	}
	ok(c, http.StatusOK, ListRequestsResponse{Requests: items, Page: page, PageSize: pageSize})
}
