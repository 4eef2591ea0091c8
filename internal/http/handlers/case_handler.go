// Case HTTP handlers.
//
//   - GET /cases          (list, paginated, filterable, ETag support)
//   - GET /cases/stats    (count per lifecycle state)
//   - GET /cases/{id}     (one case with its next transition)
package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/notice-escalator/internal/domain"
	"github.com/tbourn/notice-escalator/internal/services"
	"github.com/tbourn/notice-escalator/internal/utils"
)

// ListCasesResponse wraps a page of cases.
type ListCasesResponse struct {
	Cases      []domain.Case `json:"cases"`
	Pagination Pagination    `json:"pagination"`
}

// StateCountsResponse reports the number of cases in each state.
type StateCountsResponse struct {
	States map[domain.State]int64 `json:"states"`
	Total  int64                  `json:"total"`
}

// caseQuery parses the listing filters from the query string.
func caseQuery(c *gin.Context) (services.CaseQuery, error) {
	var q services.CaseQuery
	if s := strings.TrimSpace(c.Query("state")); s != "" {
		st := domain.State(strings.ToLower(s))
		if !st.Valid() {
			return q, fmt.Errorf("unknown state %q", s)
		}
		q.State = st
	}
	if s := strings.TrimSpace(c.Query("responded")); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return q, fmt.Errorf("responded must be a boolean")
		}
		q.Responded = &b
	}
	q.Contact = strings.TrimSpace(c.Query("contact"))
	return q, nil
}

// ListCases godoc
// @ID          listCases
// @Summary     List cases (paginated)
// @Description Returns flagged cases, most recently changed first. Supports a weak ETag via If-None-Match.
// @Tags        Cases
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       state          query   string  false "Lifecycle state"  Enums(pending, warned, followed_up, escalated, responded)
// @Param       responded      query   bool    false "Filter on the responded flag"
// @Param       contact        query   string  false "Contact address"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListCasesResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /cases [get]
func (h *Handlers) ListCases(c *gin.Context) {
	ctx := c.Request.Context()
	q, err := caseQuery(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	page, pageSize := utils.ClampPage(c.Query("page"), c.Query("page_size"))

	// ETag pre-check (best effort).
	if count, maxTS, err := h.cases.Stats(ctx, q); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		etag := fmt.Sprintf(`W/"cases:%s:%d:%d:%d:%d"`, c.Request.URL.RawQuery, page, pageSize, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.cases.ListPage(ctx, q, page, pageSize)
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}
	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, ListCasesResponse{
		Cases: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetCase godoc
// @ID          getCase
// @Summary     Get a case
// @Description Returns one case and, while it is open, the transition it is waiting for.
// @Tags        Cases
// @Produce     json
// @Param       id   path     string  true  "Case ID (UUID)"  format(uuid)
// @Success     200  {object} services.CaseView
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Case not found"
// @Router      /cases/{id} [get]
func (h *Handlers) GetCase(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "case id must be a UUID")
		return
	}
	v, err := h.cases.Get(c.Request.Context(), id)
	if err != nil {
		failErr(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, v)
}

// CaseStats godoc
// @ID          caseStats
// @Summary     Case counts per state
// @Tags        Cases
// @Produce     json
// @Success     200  {object} handlers.StateCountsResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /cases/stats [get]
func (h *Handlers) CaseStats(c *gin.Context) {
	counts, err := h.cases.StateCounts(c.Request.Context())
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	ok(c, http.StatusOK, StateCountsResponse{States: counts, Total: total})
}
