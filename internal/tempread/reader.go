// internal/tempread/reader.go
package tempread

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// PMCTemp is the minimal PMC surface the reader needs: a board
// temperature getter. There must be no other version of this
// interface anywhere.
type PMCTemp interface {
	BoardTemperatureC() (float64, error)
}

// Result is a snapshot produced by one poll cycle. Failure of any
// single source does not fail the tick: a stale source keeps its last
// good value. A stale disk's stale-count in DiskStale increments; the
// board reading has no count, only the BoardStale flag.
type Result struct {
	At         time.Time
	BoardC     float64
	BoardStale bool
	DiskC      map[string]float64
	DiskStale  map[string]int
}

// Config is the minimal runtime config the reader needs.
type Config struct {
	Interval       time.Duration
	Drives         []string // device paths, e.g. /dev/sda
	ToolPath       string   // external temperature tool, e.g. hddtemp
	ToolTimeout    time.Duration
}

// Reader is a dumb, clock-driven acquirer, mirroring the Protocol
// Engine's single-purpose poller shape.
type Reader struct {
	cfg Config
	pmc PMCTemp

	lastBoardC float64
	lastDiskC  map[string]float64
	staleCnt   map[string]int
}

func New(cfg Config, pmc PMCTemp) *Reader {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = 30 * time.Second
	}
	if cfg.ToolPath == "" {
		cfg.ToolPath = "hddtemp"
	}
	return &Reader{
		cfg:       cfg,
		pmc:       pmc,
		lastDiskC: make(map[string]float64, len(cfg.Drives)),
		staleCnt:  make(map[string]int, len(cfg.Drives)),
	}
}

// PollOnce performs exactly one acquisition cycle. Never fails as a
// whole: each source degrades independently to its last known value.
func (r *Reader) PollOnce(ctx context.Context) Result {
	res := Result{
		At:        time.Now(),
		DiskC:     make(map[string]float64, len(r.cfg.Drives)),
		DiskStale: make(map[string]int, len(r.cfg.Drives)),
	}

	if boardC, err := r.pmc.BoardTemperatureC(); err == nil {
		r.lastBoardC = boardC
		res.BoardC = boardC
	} else {
		res.BoardC = r.lastBoardC
		res.BoardStale = true
	}

	for _, dev := range r.cfg.Drives {
		c, err := r.readDiskTemp(ctx, dev)
		if err != nil {
			r.staleCnt[dev]++
			res.DiskC[dev] = r.lastDiskC[dev]
			res.DiskStale[dev] = r.staleCnt[dev]
			continue
		}
		r.lastDiskC[dev] = c
		r.staleCnt[dev] = 0
		res.DiskC[dev] = c
	}

	return res
}

func (r *Reader) readDiskTemp(ctx context.Context, dev string) (float64, error) {
	cctx, cancel := context.WithTimeout(ctx, r.cfg.ToolTimeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, r.cfg.ToolPath, "-n", dev)
	out, err := cmd.Output()
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
}
