package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/library-backend/internal/data/repos"
	"github.com/yungbote/library-backend/internal/data/repos/testutil"
	types "github.com/yungbote/library-backend/internal/domain"
	"github.com/yungbote/library-backend/internal/services"
)

var fixedNow = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

type testAPI struct {
	db     *gorm.DB
	engine *gin.Engine
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	r := repos.New(db, log)
	now := func() time.Time { return fixedNow }
	jobs := services.NewJobService(db, log, r.JobRun, services.NewJobNotifier(log, services.NewWakeup()))
	ledger := services.NewLoanLedger(db, log, r.Book, r.Member, r.Loan, jobs, services.LedgerConfig{}, now)
	catalog := services.NewCatalogService(db, log, r.Author, r.Book, r.Loan)
	members := services.NewMemberService(db, log, r.User, r.Member, r.Loan, now)

	authorH := NewAuthorHandler(log, catalog)
	bookH := NewBookHandler(log, catalog, ledger)
	memberH := NewMemberHandler(log, members)
	loanH := NewLoanHandler(log, ledger)
	jobH := NewJobHandler(log, jobs)

	e := gin.New()
	api := e.Group("/api")
	api.GET("/authors", authorH.List)
	api.POST("/authors", authorH.Create)
	api.GET("/authors/:id", authorH.Get)
	api.DELETE("/authors/:id", authorH.Delete)
	api.GET("/books", bookH.List)
	api.POST("/books", bookH.Create)
	api.GET("/books/:id", bookH.Get)
	api.PUT("/books/:id", bookH.Update)
	api.POST("/books/:id/loan", bookH.Loan)
	api.POST("/books/:id/return", bookH.Return)
	api.GET("/members/top-active", memberH.TopActive)
	api.POST("/members", memberH.Create)
	api.GET("/members/:id", memberH.Get)
	api.DELETE("/members/:id", memberH.Delete)
	api.GET("/loans", loanH.List)
	api.POST("/loans/:id/extend_due_date", loanH.ExtendDueDate)
	api.GET("/jobs/:id", jobH.GetJob)
	return &testAPI{db: db, engine: e}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

type errBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field"`
}

func TestLoanAndReturnOverHTTP(t *testing.T) {
	a := newTestAPI(t)
	ctx := context.Background()
	book := testutil.SeedBook(t, ctx, a.db, "Dune", 1, 1)
	alice := testutil.SeedMember(t, ctx, a.db, "alice", "alice@example.com")
	bob := testutil.SeedMember(t, ctx, a.db, "bob", "bob@example.com")

	rec := a.do(t, http.MethodPost, "/api/books/"+book.ID.String()+"/loan", gin.H{"member_id": alice.ID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("loan status: want=%d got=%d body=%s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	loan := decode[types.Loan](t, rec)
	if loan.BookID != book.ID || loan.MemberID != alice.ID || loan.IsReturned {
		t.Fatalf("loan: unexpected %+v", loan)
	}
	if got, want := loan.DueDate.Format("2006-01-02"), "2026-03-24"; got != want {
		t.Fatalf("due date: want=%s got=%s", want, got)
	}

	rec = a.do(t, http.MethodPost, "/api/books/"+book.ID.String()+"/loan", gin.H{"member_id": bob.ID})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("second loan status: want=%d got=%d", http.StatusBadRequest, rec.Code)
	}
	if got := decode[errBody](t, rec).Error; got != "No available copies." {
		t.Fatalf("second loan error: got=%q", got)
	}

	rec = a.do(t, http.MethodPost, "/api/books/"+book.ID.String()+"/return", gin.H{"member_id": alice.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("return status: want=%d got=%d body=%s", http.StatusOK, rec.Code, rec.Body.String())
	}
	ret := decode[struct {
		Status string     `json:"status"`
		Loan   types.Loan `json:"loan"`
	}](t, rec)
	if ret.Status != "Book returned successfully." || !ret.Loan.IsReturned || ret.Loan.ReturnDate == nil {
		t.Fatalf("return body: unexpected %+v", ret)
	}

	rec = a.do(t, http.MethodGet, "/api/books/"+book.ID.String(), nil)
	if got := decode[types.Book](t, rec).AvailableCopies; got != 1 {
		t.Fatalf("available after return: want=1 got=%d", got)
	}
}

func TestLedgerErrorsOverHTTP(t *testing.T) {
	a := newTestAPI(t)
	ctx := context.Background()
	book := testutil.SeedBook(t, ctx, a.db, "Emma", 2, 2)
	soldOut := testutil.SeedBook(t, ctx, a.db, "Persuasion", 1, 0)
	member := testutil.SeedMember(t, ctx, a.db, "carol", "carol@example.com")

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		msg    string
	}{
		{"unknown member", "/api/books/" + book.ID.String() + "/loan", gin.H{"member_id": uuid.NewString()}, http.StatusBadRequest, "Member does not exist."},
		{"missing member id", "/api/books/" + book.ID.String() + "/loan", gin.H{}, http.StatusBadRequest, "Member does not exist."},
		{"unparsable member id", "/api/books/" + book.ID.String() + "/loan", gin.H{"member_id": "42"}, http.StatusBadRequest, "Member does not exist."},
		{"no copies before member", "/api/books/" + soldOut.ID.String() + "/loan", gin.H{}, http.StatusBadRequest, "No available copies."},
		{"no copies before unparsable member", "/api/books/" + soldOut.ID.String() + "/loan", gin.H{"member_id": "42"}, http.StatusBadRequest, "No available copies."},
		{"return with unparsable member id", "/api/books/" + book.ID.String() + "/return", gin.H{"member_id": "42"}, http.StatusBadRequest, "Active loan does not exist."},
		{"unknown book", "/api/books/" + uuid.NewString() + "/loan", gin.H{"member_id": member.ID}, http.StatusNotFound, "Not found."},
		{"return unknown book", "/api/books/" + uuid.NewString() + "/return", gin.H{"member_id": member.ID}, http.StatusNotFound, "Not found."},
		{"return without loan", "/api/books/" + book.ID.String() + "/return", gin.H{"member_id": member.ID}, http.StatusBadRequest, "Active loan does not exist."},
		{"malformed id", "/api/books/not-a-uuid/loan", gin.H{"member_id": member.ID}, http.StatusNotFound, "Not found."},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := a.do(t, http.MethodPost, tc.path, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("status: want=%d got=%d body=%s", tc.status, rec.Code, rec.Body.String())
			}
			if got := decode[errBody](t, rec).Error; got != tc.msg {
				t.Fatalf("error: want=%q got=%q", tc.msg, got)
			}
		})
	}
}

func TestExtendDueDateOverHTTP(t *testing.T) {
	a := newTestAPI(t)
	ctx := context.Background()
	book := testutil.SeedBook(t, ctx, a.db, "Ulysses", 3, 1)
	member := testutil.SeedMember(t, ctx, a.db, "dave", "dave@example.com")
	today := types.Today(fixedNow)
	current := testutil.SeedLoan(t, ctx, a.db, book.ID, member.ID, today, types.AddDays(today, 3))
	other := testutil.SeedMember(t, ctx, a.db, "erin", "erin@example.com")
	overdue := testutil.SeedLoan(t, ctx, a.db, book.ID, other.ID, types.AddDays(today, -20), types.AddDays(today, -1))

	rec := a.do(t, http.MethodPost, "/api/loans/"+current.ID.String()+"/extend_due_date", gin.H{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing days status: want=%d got=%d", http.StatusBadRequest, rec.Code)
	}
	if got := decode[errBody](t, rec); got.Field != "additional_days" || got.Code != "validation_error" {
		t.Fatalf("missing days body: unexpected %+v", got)
	}

	rec = a.do(t, http.MethodPost, "/api/loans/"+current.ID.String()+"/extend_due_date", gin.H{"additional_days": 7})
	if rec.Code != http.StatusOK {
		t.Fatalf("extend status: want=%d got=%d body=%s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if got, want := decode[types.Loan](t, rec).DueDate.Format("2006-01-02"), "2026-03-20"; got != want {
		t.Fatalf("extended due date: want=%s got=%s", want, got)
	}

	// Overdue is reported whatever the body holds.
	for _, body := range []gin.H{{"additional_days": 0}, {}, {"additional_days": "abc"}} {
		rec = a.do(t, http.MethodPost, "/api/loans/"+overdue.ID.String()+"/extend_due_date", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("overdue %v status: want=%d got=%d", body, http.StatusBadRequest, rec.Code)
		}
		if got := decode[errBody](t, rec).Error; got != "Due date has already passed." {
			t.Fatalf("overdue %v error: got=%q", body, got)
		}
	}

	rec = a.do(t, http.MethodPost, "/api/loans/"+uuid.NewString()+"/extend_due_date", gin.H{})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown loan status: want=%d got=%d", http.StatusNotFound, rec.Code)
	}

	rec = a.do(t, http.MethodGet, "/api/loans?active=true&member_id="+member.ID.String(), nil)
	page := decode[struct {
		Count int64 `json:"count"`
	}](t, rec)
	if page.Count != 1 {
		t.Fatalf("filtered loans: want=1 got=%d", page.Count)
	}

	rec = a.do(t, http.MethodGet, "/api/loans?active=maybe", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad filter status: want=%d got=%d", http.StatusBadRequest, rec.Code)
	}
}

func TestCatalogOverHTTP(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/api/authors", gin.H{"first_name": "Mary", "last_name": "Shelley", "birth_date": "1797-08-30"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create author: want=%d got=%d body=%s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	author := decode[types.Author](t, rec)

	// A client-sent available_copies is ignored; a new book has every copy on the shelf.
	rec = a.do(t, http.MethodPost, "/api/books", gin.H{"title": "Frankenstein", "author_id": author.ID, "total_copies": 2, "available_copies": 0, "published_date": "1818-01-01"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create book: want=%d got=%d body=%s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	book := decode[types.Book](t, rec)
	if book.TotalCopies != 2 || book.AvailableCopies != 2 {
		t.Fatalf("new book copies: want=2/2 got=%d/%d", book.AvailableCopies, book.TotalCopies)
	}

	rec = a.do(t, http.MethodPost, "/api/books", gin.H{"title": "Bad date", "author_id": author.ID, "published_date": "01/01/1818"})
	if got := decode[errBody](t, rec).Field; rec.Code != http.StatusBadRequest || got != "published_date" {
		t.Fatalf("bad date: status=%d field=%q", rec.Code, got)
	}

	rec = a.do(t, http.MethodGet, "/api/books?page=1&page_size=5000", nil)
	page := decode[struct {
		Count    int64 `json:"count"`
		PageSize int   `json:"page_size"`
	}](t, rec)
	if page.Count != 1 || page.PageSize != maxPageSize {
		t.Fatalf("page: want count=1 size=%d got %+v", maxPageSize, page)
	}

	rec = a.do(t, http.MethodDelete, "/api/authors/"+author.ID.String(), nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("delete author with books: want=%d got=%d", http.StatusConflict, rec.Code)
	}
	rec = a.do(t, http.MethodGet, "/api/books/"+uuid.NewString(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown book: want=%d got=%d", http.StatusNotFound, rec.Code)
	}
}

func TestMembersOverHTTP(t *testing.T) {
	a := newTestAPI(t)
	ctx := context.Background()

	rec := a.do(t, http.MethodPost, "/api/members", gin.H{"username": "frank", "email": "frank@example.com"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create member: want=%d got=%d body=%s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	member := decode[types.Member](t, rec)

	rec = a.do(t, http.MethodPost, "/api/members", gin.H{"username": "frank", "email": "other@example.com"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate username: want=%d got=%d", http.StatusConflict, rec.Code)
	}

	rec = a.do(t, http.MethodGet, "/api/members/"+uuid.NewString(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown member: want=%d got=%d", http.StatusNotFound, rec.Code)
	}

	book := testutil.SeedBook(t, ctx, a.db, "Beloved", 2, 2)
	rec = a.do(t, http.MethodPost, "/api/books/"+book.ID.String()+"/loan", gin.H{"member_id": member.ID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("loan: want=%d got=%d", http.StatusCreated, rec.Code)
	}

	rec = a.do(t, http.MethodGet, "/api/members/top-active", nil)
	top := decode[[]repos.MemberActivity](t, rec)
	if len(top) != 1 || top[0].ID != member.ID || top[0].ActiveLoans != 1 {
		t.Fatalf("top active: unexpected %+v", top)
	}

	rec = a.do(t, http.MethodDelete, "/api/members/"+member.ID.String(), nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("delete with loans: want=%d got=%d", http.StatusConflict, rec.Code)
	}
	rec = a.do(t, http.MethodPost, "/api/books/"+book.ID.String()+"/return", gin.H{"member_id": member.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("return: want=%d got=%d", http.StatusOK, rec.Code)
	}
	rec = a.do(t, http.MethodDelete, "/api/members/"+member.ID.String(), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: want=%d got=%d body=%s", http.StatusNoContent, rec.Code, rec.Body.String())
	}
}

func TestGetJobOverHTTP(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(t, http.MethodGet, "/api/jobs/"+uuid.NewString(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown job: want=%d got=%d", http.StatusNotFound, rec.Code)
	}
}
