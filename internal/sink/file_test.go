package sink

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/yourflock/viewlog/internal/model"
)

func mustEvent(ts time.Time, userID int64) model.Event {
	return model.Event{
		Timestamp:     ts,
		UserID:        userID,
		EventCategory: model.CategoryAccess,
		EventType:     model.TypeIn,
		Detail:        model.Detail{Platform: model.PlatformAndroid, HasPlatform: true},
	}
}

// TestWrite_HourBucketPromotion exercises §8 scenario 4: writing events at
// 10:30, 10:59, 11:05, 11:45, 12:10 must produce three files (hour=10,
// hour=11, hour=12), each offset 0, each NDJSON-sorted ascending.
func TestWrite_HourBucketPromotion(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileSink(dir, "viewlog", time.UTC)

	times := []time.Time{
		time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC),
		time.Date(2025, 6, 15, 10, 59, 0, 0, time.UTC),
		time.Date(2025, 6, 15, 11, 5, 0, 0, time.UTC),
		time.Date(2025, 6, 15, 11, 45, 0, 0, time.UTC),
		time.Date(2025, 6, 15, 12, 10, 0, 0, time.UTC),
	}
	for i, ts := range times {
		if err := fs.Write(context.Background(), mustEvent(ts, int64(i+1))); err != nil {
			t.Fatalf("Write(%v) error = %v", ts, err)
		}
	}
	if err := fs.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	var files []string
	filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			files = append(files, p)
		}
		return nil
	})
	sort.Strings(files)
	if len(files) != 3 {
		t.Fatalf("got %d files, want 3: %v", len(files), files)
	}

	wantHours := []string{"hour=10", "hour=11", "hour=12"}
	for i, f := range files {
		if filepath.Base(filepath.Dir(f)) != wantHours[i] {
			t.Errorf("file[%d] = %s, want under %s", i, f, wantHours[i])
		}
		if !strings.HasPrefix(filepath.Base(f), "viewlog-000000-") {
			t.Errorf("file[%d] = %s, want offset 000000", i, filepath.Base(f))
		}
		data, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("ReadFile(%s): %v", f, err)
		}
		lines := splitNDJSON(data)
		var prev time.Time
		for j, line := range lines {
			var e struct {
				Timestamp string `json:"timestamp"`
			}
			if err := json.Unmarshal(line, &e); err != nil {
				t.Fatalf("line %d: unmarshal: %v", j, err)
			}
			ts, err := time.Parse("2006-01-02 15:04:05", e.Timestamp)
			if err != nil {
				t.Fatalf("line %d: parse timestamp: %v", j, err)
			}
			if j > 0 && ts.Before(prev) {
				t.Errorf("file %s not sorted ascending at line %d", f, j)
			}
			prev = ts
		}
	}
}

func splitNDJSON(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				lines = append(lines, data[start:i])
			}
			start = i + 1
		}
	}
	return lines
}

// TestWrite_LateArrivalAfterFlushIsIgnored covers §4.6/§8's "late-arriving
// events that belong to an already-flushed hour are ignored (not
// re-opened)": an event for hour 10 written after hour 10 has been flushed
// must not resurrect it.
func TestWrite_LateArrivalAfterFlushIsIgnored(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileSink(dir, "viewlog", time.UTC)
	ctx := context.Background()

	fs.Write(ctx, mustEvent(time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC), 1))
	fs.Write(ctx, mustEvent(time.Date(2025, 6, 15, 11, 0, 0, 0, time.UTC), 2))
	// Hour 11 is "next" until a third, later hour arrives; hour 12 forces
	// promotion: current(10) flushes and next(11) becomes current.
	fs.Write(ctx, mustEvent(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC), 3))

	// hour 10 has now been flushed (promoted out). A late event for hour 10
	// must be dropped, not reopen a new file.
	if err := fs.Write(ctx, mustEvent(time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC), 4)); err != nil {
		t.Fatalf("late Write() error = %v", err)
	}
	fs.Close(ctx)

	hour10Dir := filepath.Join(dir, "viewlog", "year=2025/month=06/day=15/hour=10")
	entries, err := os.ReadDir(hour10Dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("hour=10 has %d files, want 1 (late arrival must not add a second flush)", len(entries))
	}
}

func TestFilenameScheme_OffsetIncrementsPerHourKey(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileSink(dir, "viewlog", time.UTC)
	ctx := context.Background()

	day1 := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 6, 16, 9, 0, 0, 0, time.UTC)
	fs.Write(ctx, mustEvent(day1, 1))
	fs.Close(ctx)
	fs.Write(ctx, mustEvent(day2, 2))
	fs.Close(ctx)

	dir1 := filepath.Join(dir, "viewlog", "year=2025/month=06/day=15/hour=09")
	dir2 := filepath.Join(dir, "viewlog", "year=2025/month=06/day=16/hour=09")
	for _, d := range []string{dir1, dir2} {
		entries, err := os.ReadDir(d)
		if err != nil {
			t.Fatalf("ReadDir(%s): %v", d, err)
		}
		if len(entries) != 1 {
			t.Fatalf("%s has %d entries, want 1", d, len(entries))
		}
		if filepath.Ext(entries[0].Name()) != ".json" {
			t.Errorf("filename %q missing .json extension", entries[0].Name())
		}
		// Each hour key keeps its own counter, so both first flushes are 000000.
		if !strings.HasPrefix(entries[0].Name(), "viewlog-000000-") {
			t.Errorf("filename %q, want offset 000000 for the first flush of its hour key", entries[0].Name())
		}
	}
}
