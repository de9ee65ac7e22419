package core

import (
	"testing"

	"flowcore/pkg/domain"
)

func TestReportCacheComputesOncePerRevision(t *testing.T) {
	cache := NewReportCache()
	calls := 0
	compute := func() domain.SampleSheetReport {
		calls++
		report := domain.SampleSheetReport{}
		report.Add("L1", FieldName, "bad")
		return report
	}

	first := cache.SampleSheet("fc1", 3, compute)
	second := cache.SampleSheet("fc1", 3, compute)
	if calls != 1 {
		t.Fatalf("expected one computation, got %d", calls)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("unexpected reports %v %v", first, second)
	}
}

func TestReportCacheRecomputesOnNewRevision(t *testing.T) {
	cache := NewReportCache()
	calls := 0
	compute := func() domain.SampleSheetReport {
		calls++
		return domain.SampleSheetReport{}
	}

	cache.SampleSheet("fc1", 1, compute)
	cache.SampleSheet("fc1", 2, compute)
	if calls != 2 {
		t.Fatalf("expected recompute on revision bump, got %d calls", calls)
	}
	// The newer revision supersedes the cached entry.
	cache.SampleSheet("fc1", 2, compute)
	if calls != 2 {
		t.Fatalf("revision 2 should now be cached, got %d calls", calls)
	}
}

func TestReportCacheKeysByFlowCell(t *testing.T) {
	cache := NewReportCache()
	calls := map[string]int{}
	compute := func(id string) func() domain.IndexReport {
		return func() domain.IndexReport {
			calls[id]++
			return domain.IndexReport{}
		}
	}

	cache.Index("fc1", 1, compute("fc1"))
	cache.Index("fc2", 1, compute("fc2"))
	cache.Index("fc1", 1, compute("fc1"))
	if calls["fc1"] != 1 || calls["fc2"] != 1 {
		t.Fatalf("unexpected computation counts %v", calls)
	}
}

func TestReportCacheInvalidate(t *testing.T) {
	cache := NewReportCache()
	sheetCalls, indexCalls := 0, 0

	cache.SampleSheet("fc1", 1, func() domain.SampleSheetReport {
		sheetCalls++
		return domain.SampleSheetReport{}
	})
	cache.Index("fc1", 1, func() domain.IndexReport {
		indexCalls++
		return domain.IndexReport{}
	})

	cache.Invalidate("fc1")

	cache.SampleSheet("fc1", 1, func() domain.SampleSheetReport {
		sheetCalls++
		return domain.SampleSheetReport{}
	})
	cache.Index("fc1", 1, func() domain.IndexReport {
		indexCalls++
		return domain.IndexReport{}
	})
	if sheetCalls != 2 || indexCalls != 2 {
		t.Fatalf("expected recompute after invalidation, got sheet=%d index=%d", sheetCalls, indexCalls)
	}
}
