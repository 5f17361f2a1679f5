package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/library-backend/internal/http/handlers"
	httpMW "github.com/yungbote/library-backend/internal/http/middleware"
	"github.com/yungbote/library-backend/internal/observability"
	"github.com/yungbote/library-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	AuthorHandler *httpH.AuthorHandler
	BookHandler   *httpH.BookHandler
	MemberHandler *httpH.MemberHandler
	LoanHandler   *httpH.LoanHandler
	JobHandler    *httpH.JobHandler
	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Authors
		if cfg.AuthorHandler != nil {
			api.GET("/authors", cfg.AuthorHandler.List)
			api.POST("/authors", cfg.AuthorHandler.Create)
			api.GET("/authors/:id", cfg.AuthorHandler.Get)
			api.PUT("/authors/:id", cfg.AuthorHandler.Update)
			api.DELETE("/authors/:id", cfg.AuthorHandler.Delete)
		}

		// Books
		if cfg.BookHandler != nil {
			api.GET("/books", cfg.BookHandler.List)
			api.POST("/books", cfg.BookHandler.Create)
			api.GET("/books/:id", cfg.BookHandler.Get)
			api.PUT("/books/:id", cfg.BookHandler.Update)
			api.DELETE("/books/:id", cfg.BookHandler.Delete)
			api.POST("/books/:id/loan", cfg.BookHandler.Loan)
			api.POST("/books/:id/return", cfg.BookHandler.Return)
		}

		// Members
		if cfg.MemberHandler != nil {
			api.GET("/members", cfg.MemberHandler.List)
			api.POST("/members", cfg.MemberHandler.Create)
			api.GET("/members/top-active", cfg.MemberHandler.TopActive)
			api.GET("/members/:id", cfg.MemberHandler.Get)
			api.PUT("/members/:id", cfg.MemberHandler.Update)
			api.DELETE("/members/:id", cfg.MemberHandler.Delete)
		}

		// Loans
		if cfg.LoanHandler != nil {
			api.GET("/loans", cfg.LoanHandler.List)
			api.GET("/loans/:id", cfg.LoanHandler.Get)
			api.POST("/loans/:id/extend_due_date", cfg.LoanHandler.ExtendDueDate)
		}

		// Job
		if cfg.JobHandler != nil {
			api.GET("/jobs/:id", cfg.JobHandler.GetJob)
		}
	}

	return r
}
