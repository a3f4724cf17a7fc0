package worker

import (
	"context"
	"testing"
	"time"
)

func TestPreviousMonthLabel(t *testing.T) {
	cases := []struct {
		now  time.Time
		want string
	}{
		{time.Date(2025, 8, 1, 0, 30, 0, 0, time.UTC), "2025-07"},
		{time.Date(2025, 8, 3, 12, 0, 0, 0, time.UTC), "2025-07"},
		{time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), "2024-12"},
		{time.Date(2024, 3, 2, 6, 0, 0, 0, time.UTC), "2024-02"},
	}
	for _, tc := range cases {
		if got := previousMonthLabel(tc.now); got != tc.want {
			t.Fatalf("unexpected month label for %s, want %q, got %q", tc.now.Format(time.RFC3339), tc.want, got)
		}
	}
}

func TestScheduleMonthlySummarySkipsAfterGraceWindow(t *testing.T) {
	svc := &Service{}
	// 超出补发窗口后不应触达任何依赖，nil consumer 不会被解引用
	svc.scheduleMonthlySummaryIfDue(context.Background(), time.Date(2025, 8, 15, 9, 0, 0, 0, time.UTC))
}

func TestScheduleMonthlySummarySkipsWhenAlreadyDone(t *testing.T) {
	svc := &Service{lastSummaryMonth: "2025-07"}
	svc.scheduleMonthlySummaryIfDue(context.Background(), time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC))
	if svc.lastSummaryMonth != "2025-07" {
		t.Fatalf("expected month marker unchanged, got %q", svc.lastSummaryMonth)
	}
}
