package core

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Profiler keeps the last CPU duration of named frame scopes and a
// frames-per-second estimate refreshed once per second.
type Profiler struct {
	Scopes     map[string]time.Duration
	StartTimes map[string]time.Time
	Counts     map[string]int
	Order      []string

	frames     int
	windowFrom time.Time
	FPS        float64
}

func NewProfiler() *Profiler {
	return &Profiler{
		Scopes:     make(map[string]time.Duration),
		StartTimes: make(map[string]time.Time),
		Counts:     make(map[string]int),
		Order:      make([]string, 0),
	}
}

func (p *Profiler) BeginScope(name string) {
	p.StartTimes[name] = time.Now()
	for _, n := range p.Order {
		if n == name {
			return
		}
	}
	p.Order = append(p.Order, name)
}

func (p *Profiler) EndScope(name string) {
	if start, ok := p.StartTimes[name]; ok {
		p.Scopes[name] = time.Since(start)
	}
}

func (p *Profiler) Add(name string, n int) {
	p.Counts[name] += n
}

// Frame counts one presented frame at now and reports whether a new FPS
// value was computed.
func (p *Profiler) Frame(now time.Time) bool {
	if p.windowFrom.IsZero() {
		p.windowFrom = now
	}
	p.frames++
	elapsed := now.Sub(p.windowFrom)
	if elapsed < time.Second {
		return false
	}
	p.FPS = float64(p.frames) / elapsed.Seconds()
	p.frames = 0
	p.windowFrom = now
	return true
}

func (p *Profiler) StatsString() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%.1f fps |", p.FPS))
	for _, name := range p.Order {
		ms := float64(p.Scopes[name].Microseconds()) / 1000.0
		sb.WriteString(fmt.Sprintf(" %s %.2fms", name, ms))
	}

	keys := make([]string, 0, len(p.Counts))
	for k := range p.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf(" %s=%d", k, p.Counts[k]))
	}

	return sb.String()
}
