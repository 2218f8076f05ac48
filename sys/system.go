package sys

import (
	"errors"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

type HostStats struct {
	Goroutines    int
	CPUPercent    float64
	MemoryPercent float64
}

// GetHostStats samples CPU and memory usage of the host.
func GetHostStats() (HostStats, error) {
	stats := HostStats{Goroutines: runtime.NumGoroutine()}

	percentages, err := cpu.Percent(0, false)
	if err != nil {
		return stats, err
	}
	if len(percentages) == 0 {
		return stats, errors.New("could not get CPU usage")
	}
	stats.CPUPercent = percentages[0]

	vm, err := mem.VirtualMemory()
	if err != nil {
		return stats, err
	}
	stats.MemoryPercent = vm.UsedPercent
	return stats, nil
}
