package proc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/leeineian/biochemie/sys"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
)

const (
	SamplerInterval = 5 * time.Second
	MsgSamplerFail  = "Host sample failed: %v"
	diskRoot        = "/"
)

// HostSnapshot is a point-in-time view of the machine the bot runs on.
// Optional readings are nil when the platform does not provide them.
type HostSnapshot struct {
	OS      string
	Machine string
	Uptime  time.Duration

	CPUName       string
	PhysicalCores int
	LogicalCores  int
	CPUPercent    float64

	MemTotal   uint64
	MemUsed    uint64
	MemFree    uint64
	MemPercent float64

	DiskTotal uint64
	DiskUsed  uint64
	DiskRead  *uint64
	DiskWrite *uint64

	NetBytesSent     uint64
	NetBytesRecv     uint64
	NetPacketsSent   uint64
	NetPacketsRecv   uint64
	NetworkAvailable bool
}

// Sampler keeps a warm CPU usage reading so snapshots do not block for a
// measurement interval.
type Sampler struct {
	mu         sync.RWMutex
	cpuPercent float64
	sampledAt  time.Time
}

// Host is the process-wide sampler, kept warm by the sampler daemon.
var Host = &Sampler{}

func init() {
	sys.RegisterDaemon("sampler", func(ctx context.Context, b *sys.Bot) (bool, func(), func()) {
		logger := sys.Component(b.Logger, "sampler")
		return true, func() {
			Host.Run(ctx, SamplerInterval, func(err error) {
				logger.Debug(fmt.Sprintf(MsgSamplerFail, err))
			})
		}, nil
	})
}

// Run samples CPU usage every interval until ctx is done.
func (s *Sampler) Run(ctx context.Context, interval time.Duration, onErr func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// First call primes gopsutil's delta.
	if err := s.sampleCPU(ctx); err != nil && onErr != nil {
		onErr(err)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.sampleCPU(ctx); err != nil && onErr != nil {
				onErr(err)
			}
		}
	}
}

func (s *Sampler) sampleCPU(ctx context.Context) error {
	pcts, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return err
	}
	if len(pcts) == 0 {
		return errors.New("no cpu reading")
	}
	s.mu.Lock()
	s.cpuPercent = pcts[0]
	s.sampledAt = time.Now()
	s.mu.Unlock()
	return nil
}

// CPUPercent returns the latest warm reading, sampling on demand if the
// daemon has not produced one yet.
func (s *Sampler) CPUPercent(ctx context.Context) float64 {
	s.mu.RLock()
	pct, at := s.cpuPercent, s.sampledAt
	s.mu.RUnlock()
	if !at.IsZero() {
		return pct
	}
	if pcts, err := cpu.PercentWithContext(ctx, 200*time.Millisecond, false); err == nil && len(pcts) > 0 {
		return pcts[0]
	}
	return 0
}

// Snapshot collects a HostSnapshot. Individual failures leave their fields
// zero; the first error is returned alongside the partial snapshot.
func (s *Sampler) Snapshot(ctx context.Context) (HostSnapshot, error) {
	var (
		snap     HostSnapshot
		firstErr error
	)
	note := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if info, err := host.InfoWithContext(ctx); err == nil {
		snap.OS = titleCase(info.OS)
		snap.Machine = info.KernelArch
		if info.BootTime > 0 {
			snap.Uptime = time.Since(time.Unix(int64(info.BootTime), 0))
		}
	} else {
		note(err)
	}

	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		snap.CPUName = strings.TrimSpace(infos[0].ModelName)
	} else {
		note(err)
	}
	if n, err := cpu.CountsWithContext(ctx, false); err == nil {
		snap.PhysicalCores = n
	} else {
		note(err)
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		snap.LogicalCores = n
	} else {
		note(err)
	}
	snap.CPUPercent = s.CPUPercent(ctx)

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		snap.MemTotal = vm.Total
		snap.MemUsed = vm.Used
		snap.MemFree = vm.Free
		snap.MemPercent = vm.UsedPercent
	} else {
		note(err)
	}

	if du, err := disk.UsageWithContext(ctx, diskRoot); err == nil {
		snap.DiskTotal = du.Total
		snap.DiskUsed = du.Used
	} else {
		note(err)
	}
	if counters, err := disk.IOCountersWithContext(ctx); err == nil && len(counters) > 0 {
		var read, write uint64
		for _, c := range counters {
			read += c.ReadBytes
			write += c.WriteBytes
		}
		snap.DiskRead, snap.DiskWrite = &read, &write
	}

	if counters, err := net.IOCountersWithContext(ctx, false); err == nil && len(counters) > 0 {
		snap.NetBytesSent = counters[0].BytesSent
		snap.NetBytesRecv = counters[0].BytesRecv
		snap.NetPacketsSent = counters[0].PacketsSent
		snap.NetPacketsRecv = counters[0].PacketsRecv
		snap.NetworkAvailable = true
	} else {
		note(err)
	}

	return snap, firstErr
}

// ProcessRSS returns the resident set size of this process.
func ProcessRSS(ctx context.Context) (uint64, error) {
	p, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return 0, err
	}
	info, err := p.MemoryInfoWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return info.RSS, nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
