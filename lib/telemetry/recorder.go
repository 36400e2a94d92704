package telemetry

import (
	"fmt"
	"strings"
	"sync"
)

type Report struct {
	Id     string
	Params []any
}

// Recorder is an API that keeps every report in memory, meant for asserting
// on reported telemetry in tests.
type Recorder struct {
	mutex    sync.Mutex
	Broken   []Report
	Warnings []Report
	Debug    []Report
	Counts   map[string]int64
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.Broken = append(r.Broken, Report{Id: id, Params: params})
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.Warnings = append(r.Warnings, Report{Id: id, Params: params})
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.Debug = append(r.Debug, Report{Id: msg, Params: params})
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.Counts == nil {
		r.Counts = map[string]int64{}
	}
	r.Counts[id] = count
}

// WarningsWithId returns the warnings whose id ends with suffix.
func (r *Recorder) WarningsWithId(suffix string) []Report {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	var out []Report
	for _, w := range r.Warnings {
		if strings.HasSuffix(w.Id, suffix) {
			out = append(out, w)
		}
	}
	return out
}

func (r Report) String() string {
	return fmt.Sprintf("%s %v", r.Id, r.Params)
}
