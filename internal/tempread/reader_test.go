// internal/tempread/reader_test.go
package tempread

import (
	"context"
	"errors"
	"testing"
)

type fakePMCTemp struct {
	c   float64
	err error
}

func (f *fakePMCTemp) BoardTemperatureC() (float64, error) { return f.c, f.err }

func TestPollOnceBoardTempOK(t *testing.T) {
	r := New(Config{}, &fakePMCTemp{c: 42})
	res := r.PollOnce(context.Background())
	if res.BoardStale || res.BoardC != 42 {
		t.Fatalf("expected fresh board temp 42, got %+v", res)
	}
}

func TestPollOnceBoardTempFailureMarksStale(t *testing.T) {
	r := New(Config{}, &fakePMCTemp{err: errors.New("link down")})
	res := r.PollOnce(context.Background())
	if !res.BoardStale {
		t.Fatalf("expected board temp to be marked stale")
	}
}

func TestPollOnceDiskFailureDoesNotFailTick(t *testing.T) {
	r := New(Config{Drives: []string{"/dev/sda"}, ToolPath: "/nonexistent-tool-binary"}, &fakePMCTemp{c: 30})
	res := r.PollOnce(context.Background())

	if res.BoardStale {
		t.Fatalf("board reading should still succeed when disk tool fails")
	}
	if res.DiskStale["/dev/sda"] != 1 {
		t.Fatalf("expected stale count 1 for /dev/sda, got %d", res.DiskStale["/dev/sda"])
	}
}

func TestPollOnceDiskStaleCountIncrements(t *testing.T) {
	r := New(Config{Drives: []string{"/dev/sda"}, ToolPath: "/nonexistent-tool-binary"}, &fakePMCTemp{c: 30})
	r.PollOnce(context.Background())
	res := r.PollOnce(context.Background())

	if res.DiskStale["/dev/sda"] != 2 {
		t.Fatalf("expected stale count to increment to 2, got %d", res.DiskStale["/dev/sda"])
	}
}
