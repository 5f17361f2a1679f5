package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/library-backend/internal/http/response"
	"github.com/yungbote/library-backend/internal/platform/logger"
	"github.com/yungbote/library-backend/internal/services"
)

type BookHandler struct {
	log     *logger.Logger
	catalog services.CatalogService
	ledger  services.LoanLedger
}

func NewBookHandler(log *logger.Logger, catalog services.CatalogService, ledger services.LoanLedger) *BookHandler {
	return &BookHandler{log: log.With("handler", "BookHandler"), catalog: catalog, ledger: ledger}
}

type bookRequest struct {
	Title         string  `json:"title"`
	AuthorID      string  `json:"author_id"`
	ISBN          *string `json:"isbn"`
	Description   string  `json:"description"`
	Genre         string  `json:"genre"`
	PublishedDate *string `json:"published_date"`
	TotalCopies   *int    `json:"total_copies"`
}

func (r bookRequest) input() (services.BookInput, error) {
	authorID, err := bodyUUID("author_id", r.AuthorID)
	if err != nil {
		return services.BookInput{}, err
	}
	pd, err := parseDate("published_date", r.PublishedDate)
	if err != nil {
		return services.BookInput{}, err
	}
	total := 1
	if r.TotalCopies != nil {
		total = *r.TotalCopies
	}
	return services.BookInput{
		Title:         r.Title,
		AuthorID:      authorID,
		ISBN:          r.ISBN,
		Description:   r.Description,
		Genre:         r.Genre,
		PublishedDate: pd,
		TotalCopies:   total,
	}, nil
}

type memberRef struct {
	MemberID string `json:"member_id"`
}

// memberRef reads member_id from the body. A missing or unparsable id comes
// back as uuid.Nil, which the ledger reports as an unknown member only after
// its book checks.
func (h *BookHandler) memberRef(c *gin.Context) (uuid.UUID, bool) {
	var req memberRef
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, h.log, badRequest("", "Malformed JSON body."))
		return uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimSpace(req.MemberID))
	if err != nil {
		return uuid.Nil, true
	}
	return id, true
}

func (h *BookHandler) bind(c *gin.Context) (services.BookInput, bool) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, h.log, badRequest("", "Malformed JSON body."))
		return services.BookInput{}, false
	}
	in, err := req.input()
	if err != nil {
		respondErr(c, h.log, err)
		return services.BookInput{}, false
	}
	return in, true
}

// GET /api/books
func (h *BookHandler) List(c *gin.Context) {
	p, err := parsePage(c)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	books, total, err := h.catalog.ListBooks(c.Request.Context(), p.repo())
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	response.OK(c, response.Page{Count: total, Page: p.page, PageSize: p.pageSize, Results: books})
}

// POST /api/books
func (h *BookHandler) Create(c *gin.Context) {
	in, ok := h.bind(c)
	if !ok {
		return
	}
	b, err := h.catalog.CreateBook(c.Request.Context(), in)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	response.Created(c, b)
}

// GET /api/books/:id
func (h *BookHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		respondErr(c, h.log, notFound("book_not_found"))
		return
	}
	b, err := h.catalog.GetBook(c.Request.Context(), id)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	response.OK(c, b)
}

// PUT /api/books/:id
func (h *BookHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		respondErr(c, h.log, notFound("book_not_found"))
		return
	}
	in, ok := h.bind(c)
	if !ok {
		return
	}
	b, err := h.catalog.UpdateBook(c.Request.Context(), id, in)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	response.OK(c, b)
}

// DELETE /api/books/:id
func (h *BookHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		respondErr(c, h.log, notFound("book_not_found"))
		return
	}
	if err := h.catalog.DeleteBook(c.Request.Context(), id); err != nil {
		respondErr(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/books/:id/loan
func (h *BookHandler) Loan(c *gin.Context) {
	bookID, ok := pathID(c)
	if !ok {
		respondErr(c, h.log, notFound("book_not_found"))
		return
	}
	memberID, ok := h.memberRef(c)
	if !ok {
		return
	}
	loan, err := h.ledger.BorrowBook(c.Request.Context(), bookID, memberID)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	response.Created(c, loan)
}

// POST /api/books/:id/return
func (h *BookHandler) Return(c *gin.Context) {
	bookID, ok := pathID(c)
	if !ok {
		respondErr(c, h.log, notFound("book_not_found"))
		return
	}
	memberID, ok := h.memberRef(c)
	if !ok {
		return
	}
	loan, err := h.ledger.ReturnBook(c.Request.Context(), bookID, memberID)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"status": "Book returned successfully.", "loan": loan})
}
