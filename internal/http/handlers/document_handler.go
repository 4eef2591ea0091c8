// Document HTTP handlers for generated PDFs.
//
//   - GET /documents          (names of stored documents)
//   - GET /documents/{name}   (download one)
package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ListDocumentsResponse lists stored document names.
type ListDocumentsResponse struct {
	Documents []string `json:"documents"`
}

// ListDocuments godoc
// @ID          listDocuments
// @Summary     List generated documents
// @Tags        Documents
// @Produce     json
// @Success     200  {object} handlers.ListDocumentsResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /documents [get]
func (h *Handlers) ListDocuments(c *gin.Context) {
	names, err := h.docs.List(c.Request.Context())
	if err != nil {
		failErr(c, err, ErrCodeDocumentFailed)
		return
	}
	if names == nil {
		names = []string{}
	}
	ok(c, http.StatusOK, ListDocumentsResponse{Documents: names})
}

// GetDocument godoc
// @ID          getDocument
// @Summary     Download a document
// @Tags        Documents
// @Produce     application/pdf
// @Param       name  path  string  true  "Document name"  example(crpc_0f8fad5bd9cb469fa16570867728950e.pdf)
// @Success     200  {file}   binary
// @Failure     400  {object} handlers.ErrorResponse "Invalid name"
// @Failure     404  {object} handlers.ErrorResponse "Not found"
// @Router      /documents/{name} [get]
func (h *Handlers) GetDocument(c *gin.Context) {
	name := c.Param("name")
	rc, err := h.docs.Open(c.Request.Context(), name)
	if err != nil {
		failErr(c, err, ErrCodeDocumentFailed)
		return
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		failErr(c, err, ErrCodeDocumentFailed)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(name))
	c.Data(http.StatusOK, "application/pdf", data)
}
