package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/library-backend/internal/http/response"
	"github.com/yungbote/library-backend/internal/platform/logger"
	"github.com/yungbote/library-backend/internal/services"
)

const topActiveLimit = 5

type MemberHandler struct {
	log     *logger.Logger
	members services.MemberService
}

func NewMemberHandler(log *logger.Logger, members services.MemberService) *MemberHandler {
	return &MemberHandler{log: log.With("handler", "MemberHandler"), members: members}
}

type memberRequest struct {
	Username       string  `json:"username"`
	Email          string  `json:"email"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	MembershipDate *string `json:"membership_date"`
}

func (h *MemberHandler) bind(c *gin.Context) (services.MemberInput, bool) {
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, h.log, badRequest("", "Malformed JSON body."))
		return services.MemberInput{}, false
	}
	md, err := parseDate("membership_date", req.MembershipDate)
	if err != nil {
		respondErr(c, h.log, err)
		return services.MemberInput{}, false
	}
	return services.MemberInput{
		Username:       req.Username,
		Email:          req.Email,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		MembershipDate: md,
	}, true
}

// respond treats a missing member as 404 on its own resource; the ledger
// reports the same error as a 400 precondition failure.
func (h *MemberHandler) respond(c *gin.Context, err error) {
	if errors.Is(err, services.ErrMemberNotFound) {
		respondErr(c, h.log, notFound("member_not_found"))
		return
	}
	respondErr(c, h.log, err)
}

// GET /api/members
func (h *MemberHandler) List(c *gin.Context) {
	p, err := parsePage(c)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	members, total, err := h.members.ListMembers(c.Request.Context(), p.repo())
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	response.OK(c, response.Page{Count: total, Page: p.page, PageSize: p.pageSize, Results: members})
}

// POST /api/members
func (h *MemberHandler) Create(c *gin.Context) {
	in, ok := h.bind(c)
	if !ok {
		return
	}
	m, err := h.members.CreateMember(c.Request.Context(), in)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	response.Created(c, m)
}

// GET /api/members/:id
func (h *MemberHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		respondErr(c, h.log, notFound("member_not_found"))
		return
	}
	m, err := h.members.GetMember(c.Request.Context(), id)
	if err != nil {
		h.respond(c, err)
		return
	}
	response.OK(c, m)
}

// PUT /api/members/:id
func (h *MemberHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		respondErr(c, h.log, notFound("member_not_found"))
		return
	}
	in, ok := h.bind(c)
	if !ok {
		return
	}
	m, err := h.members.UpdateMember(c.Request.Context(), id, in)
	if err != nil {
		h.respond(c, err)
		return
	}
	response.OK(c, m)
}

// DELETE /api/members/:id
func (h *MemberHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		respondErr(c, h.log, notFound("member_not_found"))
		return
	}
	if err := h.members.DeleteMember(c.Request.Context(), id); err != nil {
		h.respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/members/top-active
func (h *MemberHandler) TopActive(c *gin.Context) {
	top, err := h.members.TopActive(c.Request.Context(), topActiveLimit)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	response.OK(c, top)
}
