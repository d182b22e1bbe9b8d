// SPDX-License-Identifier: MPL-2.0

package bridge

import (
	"context"
	"math"
	"time"

	gnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/exp/slices"
)

// maxPortTreeDepth bounds how far below Rscript the process tree is searched.
// Rscript execs R, which may fork a worker.
const maxPortTreeDepth = 3

// portLister returns the TCP ports in LISTEN state owned by pid or its
// descendants.
type portLister func(ctx context.Context, pid int32) ([]uint32, error)

func listeningPorts(ctx context.Context, pid int32) ([]uint32, error) {
	pids := []int32{pid}
	if p, err := process.NewProcessWithContext(ctx, pid); err == nil {
		pids = append(pids, descendants(ctx, p, maxPortTreeDepth)...)
	}

	var ports []uint32
	for _, id := range pids {
		conns, err := gnet.ConnectionsPidWithContext(ctx, "tcp", id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		for _, c := range conns {
			if c.Status == "LISTEN" {
				ports = append(ports, c.Laddr.Port)
			}
		}
	}

	slices.Sort(ports)
	return slices.Compact(ports), nil
}

func descendants(ctx context.Context, p *process.Process, depth int) []int32 {
	if depth == 0 {
		return nil
	}
	children, err := p.ChildrenWithContext(ctx)
	if err != nil {
		return nil
	}
	var out []int32
	for _, c := range children {
		out = append(out, c.Pid)
		out = append(out, descendants(ctx, c, depth-1)...)
	}
	return out
}

// verifyPort polls the child's listening sockets until the advertised port
// shows up, the timeout elapses or the dashboard exits. It only logs.
func (d *Dashboard) verifyPort(timeout, interval time.Duration) {
	pid := d.Pid()
	if pid <= 0 || pid > math.MaxInt32 || d.Port <= 0 {
		return
	}
	want := uint32(d.Port) //nolint:gosec // port validated 1-65535 by config

	ctx, cancel := context.WithTimeout(d.tracker.Context(), timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last []uint32
	for {
		ports, err := d.listPorts(ctx, int32(pid))
		if err == nil {
			last = ports
			if slices.Contains(ports, want) {
				d.verified.Store(true)
				d.logger.Info("dashboard is listening", "url", d.URL)
				return
			}
		}

		select {
		case <-ctx.Done():
			if d.tracker.Context().Err() == nil {
				d.logger.Warn("dashboard is not listening on the advertised port",
					"port", d.Port, "listening", last, "waited", timeout)
			}
			return
		case <-ticker.C:
		}
	}
}
