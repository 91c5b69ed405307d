package hardware

import (
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/v3/cpu"
	"go.uber.org/zap"

	"github.com/lk2023060901/archive-go/pkg/log"
)

var (
	cpuNumOnce sync.Once
	cpuNum     int
)

// GetCPUNum returns the number of logical cores of the host. It falls back
// to runtime.NumCPU when the host cannot be inspected.
func GetCPUNum() int {
	cpuNumOnce.Do(func() {
		n, err := cpu.Counts(true)
		if err != nil || n <= 0 {
			log.Warn("failed to get cpu counts, use runtime.NumCPU", zap.Error(err))
			n = runtime.NumCPU()
		}
		cpuNum = n
	})
	return cpuNum
}

// GetMaxProcs returns the current GOMAXPROCS, which automaxprocs may have
// lowered below the host core count inside a container.
func GetMaxProcs() int {
	return runtime.GOMAXPROCS(0)
}
