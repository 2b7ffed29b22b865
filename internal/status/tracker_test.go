package status

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestTracker(t *testing.T, nowFn func() time.Time) *Tracker {
	t.Helper()

	tracker := NewTracker(setupTestStore(t), 10*time.Minute)
	if nowFn != nil {
		tracker.now = nowFn
	}
	return tracker
}

func TestTracker_BeginNewFile(t *testing.T) {
	tracker := newTestTracker(t, nil)
	ctx := context.Background()

	rec, err := tracker.Begin(ctx, "file-1", "org-a", "user-a", "doc.md")
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	if rec.Status != StateProcessing {
		t.Errorf("Status = %q, want %q", rec.Status, StateProcessing)
	}
	if rec.Filename != "doc.md" {
		t.Errorf("Filename = %q, want %q", rec.Filename, "doc.md")
	}
}

func TestTracker_BeginWhileProcessing(t *testing.T) {
	tracker := newTestTracker(t, nil)
	ctx := context.Background()

	if _, err := tracker.Begin(ctx, "file-1", "org-a", "user-a", "doc.md"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	_, err := tracker.Begin(ctx, "file-1", "org-a", "user-a", "doc.md")
	if !errors.Is(err, ErrAlreadyProcessing) {
		t.Errorf("Begin() error = %v, want ErrAlreadyProcessing", err)
	}
}

func TestTracker_BeginTakesOverStuckProcessing(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker := newTestTracker(t, func() time.Time { return now })
	ctx := context.Background()

	if _, err := tracker.Begin(ctx, "file-1", "org-a", "user-a", "doc.md"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	// Within the timeout the record is still owned by the first upload.
	now = now.Add(5 * time.Minute)
	if _, err := tracker.Begin(ctx, "file-1", "org-a", "user-a", "doc.md"); !errors.Is(err, ErrAlreadyProcessing) {
		t.Fatalf("Begin() error = %v, want ErrAlreadyProcessing", err)
	}

	// Past the timeout a new upload takes over.
	now = now.Add(6 * time.Minute)
	rec, err := tracker.Begin(ctx, "file-1", "org-a", "user-a", "doc.md")
	if err != nil {
		t.Fatalf("Begin() after timeout error = %v", err)
	}
	if rec.Status != StateProcessing {
		t.Errorf("Status = %q, want %q", rec.Status, StateProcessing)
	}
	if !rec.CreatedAt.Equal(now.UTC()) {
		t.Errorf("CreatedAt = %v, want reset to %v", rec.CreatedAt, now.UTC())
	}
}

func TestTracker_BeginRetriesAfterError(t *testing.T) {
	tracker := newTestTracker(t, nil)
	ctx := context.Background()

	if _, err := tracker.Begin(ctx, "file-1", "org-a", "user-a", "doc.md"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := tracker.MarkError(ctx, "file-1", "org-a", "user-a", "embedding failed"); err != nil {
		t.Fatalf("MarkError() error = %v", err)
	}

	rec, err := tracker.Begin(ctx, "file-1", "org-a", "user-a", "doc.md")
	if err != nil {
		t.Fatalf("Begin() retry error = %v", err)
	}
	if rec.Status != StateProcessing {
		t.Errorf("Status = %q, want %q", rec.Status, StateProcessing)
	}
	if rec.ErrorMessage != "" {
		t.Errorf("ErrorMessage = %q, want empty after retry", rec.ErrorMessage)
	}
}

func TestTracker_BeginReuploadAfterReady(t *testing.T) {
	tracker := newTestTracker(t, nil)
	ctx := context.Background()

	if _, err := tracker.Begin(ctx, "file-1", "org-a", "user-a", "doc.md"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := tracker.MarkReady(ctx, "file-1", "org-a", "user-a", 12); err != nil {
		t.Fatalf("MarkReady() error = %v", err)
	}

	rec, err := tracker.Begin(ctx, "file-1", "org-a", "user-a", "doc-v2.md")
	if err != nil {
		t.Fatalf("Begin() re-upload error = %v", err)
	}
	if rec.Status != StateProcessing {
		t.Errorf("Status = %q, want %q", rec.Status, StateProcessing)
	}
	if rec.ChunkCount != 0 {
		t.Errorf("ChunkCount = %d, want 0 after re-upload", rec.ChunkCount)
	}
	if rec.Filename != "doc-v2.md" {
		t.Errorf("Filename = %q, want %q", rec.Filename, "doc-v2.md")
	}
}

func TestTracker_BeginOtherTenantSameFileID(t *testing.T) {
	tracker := newTestTracker(t, nil)
	ctx := context.Background()

	if _, err := tracker.Begin(ctx, "file-1", "org-a", "user-a", "a.md"); err != nil {
		t.Fatalf("Begin(org-a) error = %v", err)
	}
	if err := tracker.MarkReady(ctx, "file-1", "org-a", "user-a", 7); err != nil {
		t.Fatalf("MarkReady(org-a) error = %v", err)
	}

	// Another tenant uploading under the same client-supplied file ID starts
	// its own lifecycle without touching the first tenant's record.
	if _, err := tracker.Begin(ctx, "file-1", "org-b", "user-b", "b.md"); err != nil {
		t.Fatalf("Begin(org-b) error = %v", err)
	}

	recA, err := tracker.Get(ctx, "file-1", "org-a", "user-a")
	if err != nil {
		t.Fatalf("Get(org-a) error = %v", err)
	}
	if recA.Status != StateReady {
		t.Errorf("org-a Status = %q, want %q", recA.Status, StateReady)
	}
	if recA.ChunkCount != 7 {
		t.Errorf("org-a ChunkCount = %d, want 7", recA.ChunkCount)
	}
	if recA.Filename != "a.md" {
		t.Errorf("org-a Filename = %q, want %q", recA.Filename, "a.md")
	}

	// And org-a can still finish its own transitions.
	if err := tracker.MarkError(ctx, "file-1", "org-b", "user-b", "embedding failed"); err != nil {
		t.Fatalf("MarkError(org-b) error = %v", err)
	}
	recA, err = tracker.Get(ctx, "file-1", "org-a", "user-a")
	if err != nil {
		t.Fatalf("Get(org-a) after org-b error = %v", err)
	}
	if recA.Status != StateReady || recA.ErrorMessage != "" {
		t.Errorf("org-a record = %+v, want untouched ready record", recA)
	}
}

func TestTracker_MarkReady(t *testing.T) {
	tracker := newTestTracker(t, nil)
	ctx := context.Background()

	if _, err := tracker.Begin(ctx, "file-1", "org-a", "user-a", "doc.md"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := tracker.MarkReady(ctx, "file-1", "org-a", "user-a", 9); err != nil {
		t.Fatalf("MarkReady() error = %v", err)
	}

	rec, err := tracker.Get(ctx, "file-1", "org-a", "user-a")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.Status != StateReady {
		t.Errorf("Status = %q, want %q", rec.Status, StateReady)
	}
	if rec.ChunkCount != 9 {
		t.Errorf("ChunkCount = %d, want 9", rec.ChunkCount)
	}
	if rec.IndexedAt == nil {
		t.Error("IndexedAt is nil, want set")
	}
}

func TestTracker_MarkErrorTruncatesMessage(t *testing.T) {
	tracker := newTestTracker(t, nil)
	ctx := context.Background()

	if _, err := tracker.Begin(ctx, "file-1", "org-a", "user-a", "doc.md"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	long := strings.Repeat("x", 800)
	if err := tracker.MarkError(ctx, "file-1", "org-a", "user-a", long); err != nil {
		t.Fatalf("MarkError() error = %v", err)
	}

	rec, err := tracker.Get(ctx, "file-1", "org-a", "user-a")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.Status != StateError {
		t.Errorf("Status = %q, want %q", rec.Status, StateError)
	}
	if len(rec.ErrorMessage) != maxErrorMessageLen {
		t.Errorf("ErrorMessage length = %d, want %d", len(rec.ErrorMessage), maxErrorMessageLen)
	}
	if rec.IndexedAt != nil {
		t.Errorf("IndexedAt = %v, want nil", rec.IndexedAt)
	}
}

func TestTracker_Sweep(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker := newTestTracker(t, func() time.Time { return now })
	ctx := context.Background()

	if _, err := tracker.Begin(ctx, "stuck-file", "org-a", "user-a", "a.md"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := tracker.Begin(ctx, "fresh-file", "org-a", "user-a", "b.md"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if _, err := tracker.Begin(ctx, "done-file", "org-a", "user-a", "c.md"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := tracker.MarkReady(ctx, "done-file", "org-a", "user-a", 3); err != nil {
		t.Fatalf("MarkReady() error = %v", err)
	}

	// Eleven minutes after the first upload began; the second is still
	// inside the timeout window.
	now = now.Add(9 * time.Minute)
	swept, err := tracker.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}

	if len(swept) != 1 || swept[0] != "stuck-file" {
		t.Fatalf("Sweep() = %v, want [stuck-file]", swept)
	}

	rec, err := tracker.Get(ctx, "stuck-file", "org-a", "user-a")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.Status != StateError {
		t.Errorf("Status = %q, want %q", rec.Status, StateError)
	}
	if !strings.Contains(rec.ErrorMessage, "timed out") {
		t.Errorf("ErrorMessage = %q, want timeout message", rec.ErrorMessage)
	}

	fresh, err := tracker.Get(ctx, "fresh-file", "org-a", "user-a")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if fresh.Status != StateProcessing {
		t.Errorf("fresh Status = %q, want %q", fresh.Status, StateProcessing)
	}

	// A second sweep finds nothing new.
	swept, err = tracker.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep() repeat error = %v", err)
	}
	if len(swept) != 0 {
		t.Errorf("Sweep() repeat = %v, want empty", swept)
	}
}
