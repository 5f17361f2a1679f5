package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/library-backend/internal/data/repos"
	"github.com/yungbote/library-backend/internal/http/response"
	"github.com/yungbote/library-backend/internal/platform/logger"
	"github.com/yungbote/library-backend/internal/services"
)

type LoanHandler struct {
	log    *logger.Logger
	ledger services.LoanLedger
}

func NewLoanHandler(log *logger.Logger, ledger services.LoanLedger) *LoanHandler {
	return &LoanHandler{log: log.With("handler", "LoanHandler"), ledger: ledger}
}

type extendRequest struct {
	AdditionalDays *int `json:"additional_days"`
}

// GET /api/loans?book_id=&member_id=&active=
func (h *LoanHandler) List(c *gin.Context) {
	p, err := parsePage(c)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	var f repos.LoanFilter
	if f.BookID, err = queryUUID(c, "book_id"); err != nil {
		respondErr(c, h.log, err)
		return
	}
	if f.MemberID, err = queryUUID(c, "member_id"); err != nil {
		respondErr(c, h.log, err)
		return
	}
	if f.Active, err = queryBool(c, "active"); err != nil {
		respondErr(c, h.log, err)
		return
	}
	loans, total, err := h.ledger.ListLoans(c.Request.Context(), f, p.repo())
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	response.OK(c, response.Page{Count: total, Page: p.page, PageSize: p.pageSize, Results: loans})
}

// GET /api/loans/:id
func (h *LoanHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		respondErr(c, h.log, notFound("loan_not_found"))
		return
	}
	loan, err := h.ledger.GetLoan(c.Request.Context(), id)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	response.OK(c, loan)
}

// POST /api/loans/:id/extend_due_date
func (h *LoanHandler) ExtendDueDate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		respondErr(c, h.log, notFound("loan_not_found"))
		return
	}
	var req extendRequest
	var bodyErr error
	switch err := c.ShouldBindJSON(&req); {
	case err != nil:
		bodyErr = badRequest("additional_days", "A valid integer is required.")
	case req.AdditionalDays == nil:
		bodyErr = badRequest("additional_days", "This field is required.")
	}
	if bodyErr != nil {
		// An overdue or returned loan is reported before the body.
		if err := h.ledger.CheckExtendable(c.Request.Context(), id); err != nil {
			bodyErr = err
		}
		respondErr(c, h.log, bodyErr)
		return
	}
	loan, err := h.ledger.ExtendDueDate(c.Request.Context(), id, *req.AdditionalDays)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	response.OK(c, loan)
}
