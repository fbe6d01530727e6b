package runtime

import (
	"os"
	gorun "runtime"
	"strings"
)

// DefaultThreads picks the thread count for inference: physical core count
// when it can be determined, else the logical CPU count, else one. Physical
// cores are preferred because llama.cpp gains nothing from SMT siblings.
func DefaultThreads() int {
	if n := physicalCores(); n > 0 {
		return n
	}
	if n := gorun.NumCPU(); n > 0 {
		return n
	}
	return 1
}

// physicalCores counts distinct (physical id, core id) pairs from
// /proc/cpuinfo. Returns 0 when the file is missing or unparseable
// (non-Linux hosts, restricted containers).
func physicalCores() int {
	b, err := os.ReadFile("/proc/cpuinfo")
	if err != nil {
		return 0
	}
	cores := map[string]struct{}{}
	var physicalID, coreID string
	flush := func() {
		if coreID != "" {
			cores[physicalID+"/"+coreID] = struct{}{}
		}
		physicalID, coreID = "", ""
	}
	for _, line := range strings.Split(string(b), "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "physical id":
			physicalID = strings.TrimSpace(value)
		case "core id":
			coreID = strings.TrimSpace(value)
		}
	}
	flush()
	return len(cores)
}
