package library

import (
	"testing"
	"time"
)

func TestTodayTruncatesToUTCDate(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	in := time.Date(2024, 3, 2, 5, 30, 0, 0, loc) // 2024-03-01 19:30 UTC
	got := Today(in)
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Today: want=%v got=%v", want, got)
	}
}

func TestLoanIsOverdue(t *testing.T) {
	today := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		loan Loan
		want bool
	}{
		{"due yesterday", Loan{DueDate: AddDays(today, -1)}, true},
		{"due today", Loan{DueDate: Today(today)}, false},
		{"due tomorrow", Loan{DueDate: AddDays(today, 1)}, false},
		{"returned late", Loan{DueDate: AddDays(today, -5), IsReturned: true}, false},
	}
	for _, tc := range cases {
		if got := tc.loan.IsOverdue(today); got != tc.want {
			t.Fatalf("%s: want=%v got=%v", tc.name, tc.want, got)
		}
	}
}

func TestMemberRecipientWithoutUser(t *testing.T) {
	var m *Member
	if m.Recipient() != "" || m.Username() != "" {
		t.Fatalf("nil member: want empty recipient and username")
	}
}
