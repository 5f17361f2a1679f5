package app

import (
	"gorm.io/gorm"

	apphttp "github.com/yungbote/library-backend/internal/http"
	httpH "github.com/yungbote/library-backend/internal/http/handlers"
	"github.com/yungbote/library-backend/internal/observability"
	"github.com/yungbote/library-backend/internal/platform/logger"
)

type Handlers struct {
	Health *httpH.HealthHandler
	Author *httpH.AuthorHandler
	Book   *httpH.BookHandler
	Member *httpH.MemberHandler
	Loan   *httpH.LoanHandler
	Job    *httpH.JobHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health: httpH.NewHealthHandler(db),
		Author: httpH.NewAuthorHandler(log, services.Catalog),
		Book:   httpH.NewBookHandler(log, services.Catalog, services.Ledger),
		Member: httpH.NewMemberHandler(log, services.Members),
		Loan:   httpH.NewLoanHandler(log, services.Ledger),
		Job:    httpH.NewJobHandler(log, services.Jobs),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers) *apphttp.Server {
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return apphttp.NewServer(log, apphttp.RouterConfig{
		Log:           log,
		Metrics:       observability.Current(),
		ServiceName:   serviceName,
		CORSOrigins:   cfg.CORSOrigins,
		HealthHandler: handlers.Health,
		AuthorHandler: handlers.Author,
		BookHandler:   handlers.Book,
		MemberHandler: handlers.Member,
		LoanHandler:   handlers.Loan,
		JobHandler:    handlers.Job,
	})
}
