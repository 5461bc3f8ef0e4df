// internal/hwstate/thermal.go
package hwstate

import "sync"

// Level is a hysteretic thermal alert level, ordered from coldest to
// hottest. Descent moves one level per tick; ascent can jump directly
// to any higher level.
type Level int

const (
	LevelUnder Level = iota
	LevelCool
	LevelNormal
	LevelWarm
	LevelHot
	LevelDanger
	LevelShutdown
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelUnder:
		return "under"
	case LevelCool:
		return "cool"
	case LevelNormal:
		return "normal"
	case LevelWarm:
		return "warm"
	case LevelHot:
		return "hot"
	case LevelDanger:
		return "danger"
	case LevelShutdown:
		return "shutdown"
	case LevelCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ThermalSnapshot is exactly what any consumer (IPC server, notification
// dispatcher) is allowed to see of thermal state. No logic, no memory
// of the past beyond what is copied in.
type ThermalSnapshot struct {
	BoardTempC  float64
	DiskTempsC  map[string]float64
	HottestC    float64
	Level       Level
	FanDuty     int
	FanTarget   int
	FanRPM      int
	FanFault    bool
}

// ThermalState guards a ThermalSnapshot behind a lock held only across
// the copy, never across I/O.
type ThermalState struct {
	mu   sync.Mutex
	snap ThermalSnapshot
}

func (s *ThermalState) Store(snap ThermalSnapshot) {
	cp := snap
	cp.DiskTempsC = make(map[string]float64, len(snap.DiskTempsC))
	for k, v := range snap.DiskTempsC {
		cp.DiskTempsC[k] = v
	}
	s.mu.Lock()
	s.snap = cp
	s.mu.Unlock()
}

func (s *ThermalState) Load() ThermalSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := s.snap
	cp.DiskTempsC = make(map[string]float64, len(s.snap.DiskTempsC))
	for k, v := range s.snap.DiskTempsC {
		cp.DiskTempsC[k] = v
	}
	return cp
}
