package core

import (
	"sync"

	"flowcore/pkg/domain"
)

// ReportCache memoizes validation reports keyed by flow cell ID and store
// revision. A lookup with a newer revision recomputes and supersedes the
// cached entry, so explicit invalidation is only needed when a flow cell
// disappears entirely. Correctness never depends on the cache: reports are
// pure functions of the flow cell snapshot.
type ReportCache struct {
	mu      sync.Mutex
	sheets  map[string]cachedSheet
	indexes map[string]cachedIndex
}

type cachedSheet struct {
	revision uint64
	report   domain.SampleSheetReport
}

type cachedIndex struct {
	revision uint64
	report   domain.IndexReport
}

// NewReportCache constructs an empty cache.
func NewReportCache() *ReportCache {
	return &ReportCache{
		sheets:  make(map[string]cachedSheet),
		indexes: make(map[string]cachedIndex),
	}
}

// SampleSheet returns the cached report for (flowCellID, revision) or runs
// compute and stores its result.
func (c *ReportCache) SampleSheet(flowCellID string, revision uint64, compute func() domain.SampleSheetReport) domain.SampleSheetReport {
	c.mu.Lock()
	if entry, ok := c.sheets[flowCellID]; ok && entry.revision == revision {
		c.mu.Unlock()
		return entry.report
	}
	c.mu.Unlock()

	report := compute()

	c.mu.Lock()
	c.sheets[flowCellID] = cachedSheet{revision: revision, report: report}
	c.mu.Unlock()
	return report
}

// Index returns the cached index report for (flowCellID, revision) or runs
// compute and stores its result.
func (c *ReportCache) Index(flowCellID string, revision uint64, compute func() domain.IndexReport) domain.IndexReport {
	c.mu.Lock()
	if entry, ok := c.indexes[flowCellID]; ok && entry.revision == revision {
		c.mu.Unlock()
		return entry.report
	}
	c.mu.Unlock()

	report := compute()

	c.mu.Lock()
	c.indexes[flowCellID] = cachedIndex{revision: revision, report: report}
	c.mu.Unlock()
	return report
}

// Invalidate drops any cached reports for the flow cell.
func (c *ReportCache) Invalidate(flowCellID string) {
	c.mu.Lock()
	delete(c.sheets, flowCellID)
	delete(c.indexes, flowCellID)
	c.mu.Unlock()
}
