package system

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Report describes the machine the editor runs on.
type Report struct {
	Hostname     string
	Platform     string
	Kernel       string
	LogicalCPUs  int
	PhysicalCPUs int
	MemTotal     uint64
	MemAvailable uint64
	DiskPath     string
	DiskFree     uint64
	DiskUsedPct  float64
	// Problems lists probes that failed. A partial report is still usable.
	Problems []string
}

// HostReport probes the host. diskPath selects the volume to report on,
// usually the project directory.
func HostReport(ctx context.Context, diskPath string) Report {
	r := Report{DiskPath: diskPath}

	if info, err := host.InfoWithContext(ctx); err == nil {
		r.Hostname = info.Hostname
		r.Platform = fmt.Sprintf("%s %s", info.Platform, info.PlatformVersion)
		r.Kernel = info.KernelVersion
	} else {
		r.Problems = append(r.Problems, fmt.Sprintf("host: %v", err))
	}

	if n, err := cpu.CountsWithContext(ctx, true); err == nil && n > 0 {
		r.LogicalCPUs = n
	} else {
		r.LogicalCPUs = runtime.NumCPU()
	}
	if n, err := cpu.CountsWithContext(ctx, false); err == nil {
		r.PhysicalCPUs = n
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		r.MemTotal = vm.Total
		r.MemAvailable = vm.Available
	} else {
		r.Problems = append(r.Problems, fmt.Sprintf("memory: %v", err))
	}

	if diskPath != "" {
		if usage, err := disk.UsageWithContext(ctx, diskPath); err == nil {
			r.DiskFree = usage.Free
			r.DiskUsedPct = usage.UsedPercent
		} else {
			r.Problems = append(r.Problems, fmt.Sprintf("disk %s: %v", diskPath, err))
		}
	}
	return r
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
