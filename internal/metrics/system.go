// Package metrics collects host resource usage for the serve-mode API
// and the preflight disk check.
package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemMetrics represents current system resource usage.
type SystemMetrics struct {
	CPU     CPUMetrics    `json:"cpu"`
	Memory  MemoryMetrics `json:"memory"`
	Disks   []DiskMetrics `json:"disks"`
	Uptime  int64         `json:"uptime"` // seconds
	LoadAvg []float64     `json:"load_avg"`
}

// CPUMetrics represents CPU usage information.
type CPUMetrics struct {
	UsagePercent float64 `json:"usage_percent"`
	Cores        int     `json:"cores"`
}

// MemoryMetrics represents memory usage information.
type MemoryMetrics struct {
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	Available   uint64  `json:"available"`
	UsedPercent float64 `json:"used_percent"`
}

// DiskMetrics represents disk usage information.
type DiskMetrics struct {
	MountPoint  string  `json:"mount_point"`
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	Available   uint64  `json:"available"`
	UsedPercent float64 `json:"used_percent"`
}

// FreeSpace returns the free bytes on the filesystem containing path.
func FreeSpace(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, fmt.Errorf("disk usage for %s: %w", path, err)
	}
	return usage.Free, nil
}

// Collect gathers current system metrics. Individual collector
// failures leave their section zeroed rather than failing the whole
// snapshot.
func Collect(ctx context.Context) (*SystemMetrics, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	metrics := &SystemMetrics{}
	var wg sync.WaitGroup
	var mu sync.Mutex

	wg.Add(1)
	go func() {
		defer wg.Done()
		if ctx.Err() != nil {
			return
		}
		cpuPercent, err := cpu.Percent(200*time.Millisecond, false)
		if err == nil && len(cpuPercent) > 0 {
			mu.Lock()
			metrics.CPU.UsagePercent = cpuPercent[0]
			mu.Unlock()
		}
		cores, err := cpu.Counts(true)
		if err == nil {
			mu.Lock()
			metrics.CPU.Cores = cores
			mu.Unlock()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if ctx.Err() != nil {
			return
		}
		vmem, err := mem.VirtualMemory()
		if err == nil {
			mu.Lock()
			metrics.Memory = MemoryMetrics{
				Total:       vmem.Total,
				Used:        vmem.Used,
				Available:   vmem.Available,
				UsedPercent: vmem.UsedPercent,
			}
			mu.Unlock()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if ctx.Err() != nil {
			return
		}
		partitions, err := disk.Partitions(false)
		if err != nil {
			return
		}
		var disks []DiskMetrics
		for _, p := range partitions {
			usage, err := disk.Usage(p.Mountpoint)
			if err != nil {
				continue
			}
			disks = append(disks, DiskMetrics{
				MountPoint:  p.Mountpoint,
				Total:       usage.Total,
				Used:        usage.Used,
				Available:   usage.Free,
				UsedPercent: usage.UsedPercent,
			})
		}
		mu.Lock()
		metrics.Disks = disks
		mu.Unlock()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if ctx.Err() != nil {
			return
		}
		if uptime, err := host.Uptime(); err == nil {
			mu.Lock()
			metrics.Uptime = int64(uptime)
			mu.Unlock()
		}
		if avg, err := load.Avg(); err == nil {
			mu.Lock()
			metrics.LoadAvg = []float64{avg.Load1, avg.Load5, avg.Load15}
			mu.Unlock()
		}
	}()

	wg.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return metrics, nil
}
