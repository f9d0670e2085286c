// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package sysinfo gathers the host figures published alongside the kiosk
// state. Every figure is optional; a read failure leaves it nil.
package sysinfo

import (
	"math"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/prometheus/procfs"
	"github.com/prometheus/procfs/sysfs"
	"github.com/samber/lo"
	"golang.org/x/sys/unix"
)

// Stats is one host sample.
type Stats struct {
	Hostname      string   `json:"hostname"`
	UptimeSeconds *int64   `json:"uptime_seconds"`
	CPUTempC      *float64 `json:"cpu_temp_c"`
	Load1         *float64 `json:"load1"`
	MemUsedPct    *int     `json:"mem_used_pct"`
	DiskUsedPct   *int     `json:"disk_used_pct"`
	IPs           []string `json:"ips"`
	IPv4          string   `json:"ipv4"`
	IPsCSV        string   `json:"ips_csv"`
}

// Collector reads from configurable proc and sys roots.
type Collector struct {
	hostname string
	procRoot string
	sysRoot  string
	diskPath string
	addrs    func() ([]net.Addr, error)
}

// New creates a Collector for the live host.
func New(hostname string) *Collector {
	return &Collector{
		hostname: hostname,
		procRoot: procfs.DefaultMountPoint,
		sysRoot:  sysfs.DefaultMountPoint,
		diskPath: "/",
		addrs:    net.InterfaceAddrs,
	}
}

// Collect takes a sample.
func (c *Collector) Collect() Stats {
	ips := c.ipv4s()
	return Stats{
		Hostname:      c.hostname,
		UptimeSeconds: c.uptime(),
		CPUTempC:      c.cpuTemp(),
		Load1:         c.load1(),
		MemUsedPct:    c.memUsedPct(),
		DiskUsedPct:   c.diskUsedPct(),
		IPs:           ips,
		IPv4:          lo.FirstOrEmpty(ips),
		IPsCSV:        strings.Join(ips, ","),
	}
}

// uptime reads /proc/uptime, which procfs does not expose.
func (c *Collector) uptime() *int64 {
	data, err := os.ReadFile(filepath.Join(c.procRoot, "uptime"))
	if err != nil {
		return nil
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return nil
	}
	f, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return nil
	}
	return lo.ToPtr(int64(f))
}

func (c *Collector) cpuTemp() *float64 {
	fs, err := sysfs.NewFS(c.sysRoot)
	if err != nil {
		return nil
	}
	zones, err := fs.ClassThermalZoneStats()
	if err != nil || len(zones) == 0 {
		return nil
	}
	zone, ok := lo.Find(zones, func(z sysfs.ClassThermalZoneStats) bool { return z.Name == "0" })
	if !ok {
		zone = zones[0]
	}
	v := float64(zone.Temp)
	// Most drivers report millidegrees.
	if v > 1000 {
		v /= 1000
	}
	return lo.ToPtr(math.Round(v*10) / 10)
}

func (c *Collector) load1() *float64 {
	fs, err := procfs.NewFS(c.procRoot)
	if err != nil {
		return nil
	}
	avg, err := fs.LoadAvg()
	if err != nil {
		return nil
	}
	return lo.ToPtr(avg.Load1)
}

func (c *Collector) memUsedPct() *int {
	fs, err := procfs.NewFS(c.procRoot)
	if err != nil {
		return nil
	}
	mi, err := fs.Meminfo()
	if err != nil || mi.MemTotal == nil || *mi.MemTotal == 0 {
		return nil
	}
	total := float64(*mi.MemTotal)
	avail := float64(lo.FromPtr(mi.MemAvailable))
	return lo.ToPtr(int(math.Round((total - avail) / total * 100)))
}

func (c *Collector) diskUsedPct() *int {
	var st unix.Statfs_t
	if err := unix.Statfs(c.diskPath, &st); err != nil {
		return nil
	}
	bsize := uint64(st.Bsize)
	total := st.Blocks * bsize
	if total == 0 {
		return nil
	}
	used := total - st.Bfree*bsize
	return lo.ToPtr(int(math.Round(float64(used) / float64(total) * 100)))
}

func (c *Collector) ipv4s() []string {
	addrs, err := c.addrs()
	if err != nil {
		return []string{}
	}
	return lo.FilterMap(addrs, func(a net.Addr, _ int) (string, bool) {
		ipnet, ok := a.(*net.IPNet)
		if !ok {
			return "", false
		}
		ip := ipnet.IP.To4()
		if ip == nil || ip.IsLoopback() {
			return "", false
		}
		return ip.String(), true
	})
}
