package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/library-backend/internal/http/response"
	"github.com/yungbote/library-backend/internal/platform/logger"
	"github.com/yungbote/library-backend/internal/services"
)

type AuthorHandler struct {
	log     *logger.Logger
	catalog services.CatalogService
}

func NewAuthorHandler(log *logger.Logger, catalog services.CatalogService) *AuthorHandler {
	return &AuthorHandler{log: log.With("handler", "AuthorHandler"), catalog: catalog}
}

type authorRequest struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Biography string  `json:"biography"`
	BirthDate *string `json:"birth_date"`
}

func (r authorRequest) input() (services.AuthorInput, error) {
	bd, err := parseDate("birth_date", r.BirthDate)
	if err != nil {
		return services.AuthorInput{}, err
	}
	return services.AuthorInput{FirstName: r.FirstName, LastName: r.LastName, Biography: r.Biography, BirthDate: bd}, nil
}

func (h *AuthorHandler) bind(c *gin.Context) (services.AuthorInput, bool) {
	var req authorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, h.log, badRequest("", "Malformed JSON body."))
		return services.AuthorInput{}, false
	}
	in, err := req.input()
	if err != nil {
		respondErr(c, h.log, err)
		return services.AuthorInput{}, false
	}
	return in, true
}

// GET /api/authors
func (h *AuthorHandler) List(c *gin.Context) {
	p, err := parsePage(c)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	authors, total, err := h.catalog.ListAuthors(c.Request.Context(), p.repo())
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	response.OK(c, response.Page{Count: total, Page: p.page, PageSize: p.pageSize, Results: authors})
}

// POST /api/authors
func (h *AuthorHandler) Create(c *gin.Context) {
	in, ok := h.bind(c)
	if !ok {
		return
	}
	a, err := h.catalog.CreateAuthor(c.Request.Context(), in)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	response.Created(c, a)
}

// GET /api/authors/:id
func (h *AuthorHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		respondErr(c, h.log, notFound("author_not_found"))
		return
	}
	a, err := h.catalog.GetAuthor(c.Request.Context(), id)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	response.OK(c, a)
}

// PUT /api/authors/:id
func (h *AuthorHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		respondErr(c, h.log, notFound("author_not_found"))
		return
	}
	in, ok := h.bind(c)
	if !ok {
		return
	}
	a, err := h.catalog.UpdateAuthor(c.Request.Context(), id, in)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	response.OK(c, a)
}

// DELETE /api/authors/:id
func (h *AuthorHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		respondErr(c, h.log, notFound("author_not_found"))
		return
	}
	if err := h.catalog.DeleteAuthor(c.Request.Context(), id); err != nil {
		respondErr(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
