package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/library-backend/internal/http/response"
	"github.com/yungbote/library-backend/internal/platform/dbctx"
	"github.com/yungbote/library-backend/internal/platform/logger"
	"github.com/yungbote/library-backend/internal/services"
)

type JobHandler struct {
	log  *logger.Logger
	jobs services.JobService
}

func NewJobHandler(log *logger.Logger, jobs services.JobService) *JobHandler {
	return &JobHandler{log: log.With("handler", "JobHandler"), jobs: jobs}
}

// GET /api/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		respondErr(c, h.log, notFound("job_not_found"))
		return
	}
	job, err := h.jobs.GetByID(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	if job == nil {
		respondErr(c, h.log, notFound("job_not_found"))
		return
	}
	response.OK(c, gin.H{"job": job})
}
