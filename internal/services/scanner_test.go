package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/library-backend/internal/data/repos/testutil"
	types "github.com/yungbote/library-backend/internal/domain"
)

func TestScanOverdueOneReminderPerRecipient(t *testing.T) {
	h := newHarness(t)
	ctx := h.ctx

	hobbit := testutil.SeedBook(t, ctx, h.db, "The Hobbit", 3, 0)
	dune := testutil.SeedBook(t, ctx, h.db, "Dune", 3, 1)
	emma := testutil.SeedBook(t, ctx, h.db, "Emma", 3, 2)

	ann := testutil.SeedMember(t, ctx, h.db, "ann", "ann@example.com")
	ben := testutil.SeedMember(t, ctx, h.db, "ben", "ben@example.com")
	cat := testutil.SeedMember(t, ctx, h.db, "cat", "cat@example.com")
	nomail := testutil.SeedMember(t, ctx, h.db, "nomail", "")

	testutil.SeedLoan(t, ctx, h.db, hobbit.ID, ann.ID, types.AddDays(h.today, -30), types.AddDays(h.today, -10))
	testutil.SeedLoan(t, ctx, h.db, dune.ID, ann.ID, types.AddDays(h.today, -25), types.AddDays(h.today, -9))
	testutil.SeedLoan(t, ctx, h.db, hobbit.ID, ben.ID, types.AddDays(h.today, -20), types.AddDays(h.today, -5))
	// Due today is not overdue.
	testutil.SeedLoan(t, ctx, h.db, emma.ID, cat.ID, types.AddDays(h.today, -14), h.today)
	testutil.SeedLoan(t, ctx, h.db, hobbit.ID, nomail.ID, types.AddDays(h.today, -20), types.AddDays(h.today, -2))
	// Returned loans never count.
	old := testutil.SeedLoan(t, ctx, h.db, dune.ID, cat.ID, types.AddDays(h.today, -60), types.AddDays(h.today, -40))
	require.NoError(t, h.db.Model(&types.Loan{}).Where("id = ?", old.ID).
		Updates(map[string]any{"is_returned": true, "return_date": types.AddDays(h.today, -41)}).Error)

	res, err := h.scanner.ScanOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, ScanResult{Loans: 4, Recipients: 2, Enqueued: 2, Skipped: 1}, res)
	assert.True(t, h.drainWake())

	jobs := h.jobsOfType(t, JobTypeOverdueReminder)
	require.Len(t, jobs, 2)

	got := map[string][]string{}
	for _, j := range jobs {
		assert.Equal(t, types.JobStatusQueued, j.Status)
		var p OverdueReminder
		require.NoError(t, json.Unmarshal(j.Payload, &p))
		got[p.Recipient] = p.Titles
	}
	assert.Equal(t, map[string][]string{
		"ann@example.com": {"The Hobbit", "Dune"},
		"ben@example.com": {"The Hobbit"},
	}, got)
}

func TestScanOverdueNothingDue(t *testing.T) {
	h := newHarness(t)
	book := testutil.SeedBook(t, h.ctx, h.db, "Persuasion", 1, 0)
	m := testutil.SeedMember(t, h.ctx, h.db, "dee", "dee@example.com")
	testutil.SeedLoan(t, h.ctx, h.db, book.ID, m.ID, h.today, types.AddDays(h.today, 14))

	res, err := h.scanner.ScanOverdue(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, ScanResult{}, res)
	assert.Empty(t, h.jobsOfType(t, JobTypeOverdueReminder))
	assert.False(t, h.drainWake())
}

func TestGroupOverdueKeepsDuplicateTitles(t *testing.T) {
	ann := &types.Member{User: &types.User{Email: "ann@example.com"}}
	bob := &types.Member{User: &types.User{Email: "bob@example.com"}}
	book := func(title string) *types.Book { return &types.Book{Title: title} }

	loans := []*types.Loan{
		{Member: bob, Book: book("Beloved")},
		{Member: ann, Book: book("Beloved")},
		{Member: &types.Member{}, Book: book("Orphan")},
		{Member: bob, Book: book("Beloved")},
		nil,
	}
	got := GroupOverdue(loans)
	want := []OverdueReminder{
		{Recipient: "bob@example.com", Titles: []string{"Beloved", "Beloved"}},
		{Recipient: "ann@example.com", Titles: []string{"Beloved"}},
	}
	assert.Equal(t, want, got)
	assert.Empty(t, GroupOverdue(nil))
}
