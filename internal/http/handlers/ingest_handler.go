// Ingest HTTP handlers.
//
//   - POST /ingest       (JSON array of content records)
//   - POST /ingest/csv   (CSV upload: multipart field "file" or a text/csv body)
package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/notice-escalator/internal/services"
)

// IngestJSON godoc
// @ID          ingestJSON
// @Summary     Ingest content records
// @Description Scores each record and opens a pending case for every flagged one. Records already ingested are skipped. Elements that cannot be read as a record are counted as invalid; only a body that is not a JSON array is rejected.
// @Tags        Ingest
// @Accept      json
// @Produce     json
// @Param       body  body     []services.Record  true  "Records"
// @Success     200   {object} services.IngestSummary
// @Failure     400   {object} handlers.ErrorResponse "Malformed body"
// @Failure     500   {object} handlers.ErrorResponse "Ingest failed"
// @Router      /ingest [post]
func (h *Handlers) IngestJSON(c *gin.Context) {
	batch, err := services.DecodeJSON(c.Request.Body)
	if err != nil {
		failErr(c, err, ErrCodeIngestFailed)
		return
	}
	sum, err := h.ingest.IngestBatch(c.Request.Context(), batch)
	if err != nil {
		failErr(c, err, ErrCodeIngestFailed)
		return
	}
	ok(c, http.StatusOK, sum)
}

// IngestCSV godoc
// @ID          ingestCSV
// @Summary     Ingest a CSV export
// @Description Accepts columns id (or _id), username, email and text.
// @Tags        Ingest
// @Accept      multipart/form-data
// @Accept      text/csv
// @Produce     json
// @Param       file  formData  file  false  "CSV file"
// @Success     200   {object}  services.IngestSummary
// @Failure     400   {object}  handlers.ErrorResponse "Malformed CSV"
// @Failure     500   {object}  handlers.ErrorResponse "Ingest failed"
// @Router      /ingest/csv [post]
func (h *Handlers) IngestCSV(c *gin.Context) {
	var src io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "multipart field \"file\" is required")
			return
		}
		f, err := fh.Open()
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "cannot read uploaded file")
			return
		}
		defer f.Close()
		src = f
	}

	sum, err := h.ingest.IngestCSV(c.Request.Context(), src)
	if err != nil {
		failErr(c, err, ErrCodeIngestFailed)
		return
	}
	ok(c, http.StatusOK, sum)
}
