// Workflow HTTP handlers. Each trigger runs one scan synchronously and
// returns its summary. Triggers are safe to repeat: a case that already
// moved is skipped, and clients may add an Idempotency-Key to get the first
// summary back on retry.
//
//   - POST /workflow/warnings      (pending -> warned)
//   - POST /workflow/followups     (warned -> followed_up)
//   - POST /workflow/escalations   (followed_up -> escalated)
//   - POST /workflow/replies       (poll the mailbox and correlate)
//   - POST /replies                (correlate one supplied reply)
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/notice-escalator/internal/services"
)

// ReplyRequest is an inbound reply pushed by a mail gateway.
type ReplyRequest struct {
	From string `json:"from" binding:"required,max=320" example:"user@example.com"`
	Body string `json:"body" example:"I have removed the post."`
}

func (h *Handlers) runScan(c *gin.Context, scan func(context.Context) (services.Summary, error)) {
	sum, err := scan(c.Request.Context())
	if err != nil {
		failErr(c, err, ErrCodeScanFailed)
		return
	}
	ok(c, http.StatusOK, sum)
}

// RunWarnings godoc
// @ID          runWarnings
// @Summary     Send pending warnings
// @Description Emails a warning to every pending case and moves it to warned.
// @Tags        Workflow
// @Produce     json
// @Param       Idempotency-Key  header  string  false  "Replay key"
// @Success     200  {object} services.Summary
// @Failure     500  {object} handlers.ErrorResponse "Scan failed"
// @Router      /workflow/warnings [post]
func (h *Handlers) RunWarnings(c *gin.Context) { h.runScan(c, h.workflow.SendPendingWarnings) }

// RunFollowUps godoc
// @ID          runFollowUps
// @Summary     Run the follow-up scan
// @Description Sends the final warning to cases warned at least the follow-up window ago.
// @Tags        Workflow
// @Produce     json
// @Param       Idempotency-Key  header  string  false  "Replay key"
// @Success     200  {object} services.Summary
// @Failure     500  {object} handlers.ErrorResponse "Scan failed"
// @Router      /workflow/followups [post]
func (h *Handlers) RunFollowUps(c *gin.Context) { h.runScan(c, h.workflow.RunFollowUpScan) }

// RunEscalations godoc
// @ID          runEscalations
// @Summary     Run the escalation scan
// @Description Generates and sends the legal request for cases followed up at least the escalation window ago.
// @Tags        Workflow
// @Produce     json
// @Param       Idempotency-Key  header  string  false  "Replay key"
// @Success     200  {object} services.Summary
// @Failure     500  {object} handlers.ErrorResponse "Scan failed"
// @Router      /workflow/escalations [post]
func (h *Handlers) RunEscalations(c *gin.Context) { h.runScan(c, h.workflow.RunEscalationScan) }

// ProcessReplies godoc
// @ID          processReplies
// @Summary     Poll the mailbox for replies
// @Tags        Workflow
// @Produce     json
// @Success     200  {object} services.InboxSummary
// @Failure     502  {object} handlers.ErrorResponse "Mailbox fetch failed"
// @Failure     503  {object} handlers.ErrorResponse "No mailbox configured"
// @Router      /workflow/replies [post]
func (h *Handlers) ProcessReplies(c *gin.Context) {
	sum, err := h.replies.ProcessInbox(c.Request.Context())
	if err != nil {
		failErr(c, err, ErrCodeScanFailed)
		return
	}
	ok(c, http.StatusOK, sum)
}

// CorrelateReply godoc
// @ID          correlateReply
// @Summary     Correlate one reply
// @Description Marks the newest open case for the sender as responded.
// @Tags        Workflow
// @Accept      json
// @Produce     json
// @Param       body  body     handlers.ReplyRequest  true  "Reply"
// @Success     200   {object} services.Correlation
// @Failure     400   {object} handlers.ErrorResponse "Bad request"
// @Router      /replies [post]
func (h *Handlers) CorrelateReply(c *gin.Context) {
	var req ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.From) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "from is required")
		return
	}
	res, err := h.replies.Correlate(c.Request.Context(), req.From, req.Body)
	if err != nil {
		failErr(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, res)
}
