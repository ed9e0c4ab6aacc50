package training

import (
	"fmt"

	"github.com/klauspost/cpuid/v2"
	"github.com/takuma-ynd/fever-baselines/fever-golib/errors"
	"golang.org/x/sync/errgroup"
)

// Device decides how the per-unit work of a training step is spread over
// goroutines. Work is always split by hidden unit or parameter range, never
// by row, so every device computes bitwise identical results.
type Device struct {
	Name   string
	Shards int
}

// CPU runs everything on the calling goroutine.
var CPU = Device{Name: "cpu", Shards: 1}

// Parallel spreads work over n goroutines.
func Parallel(n int) Device {
	if n < 1 {
		n = 1
	}
	return Device{Name: fmt.Sprintf("parallel(%d)", n), Shards: n}
}

// SelectDevice maps a device flag to a Device. "auto" picks Parallel when
// the CPU has AVX2 and more than one logical core.
func SelectDevice(name string) (Device, error) {
	switch name {
	case "cpu":
		return CPU, nil
	case "parallel":
		return Parallel(cpuid.CPU.LogicalCores), nil
	case "", "auto":
		if cpuid.CPU.Supports(cpuid.AVX2) && cpuid.CPU.LogicalCores > 1 {
			return Parallel(cpuid.CPU.LogicalCores), nil
		}
		return CPU, nil
	default:
		return Device{}, errors.Errorf("unknown device %q, expected auto, cpu or parallel", name)
	}
}

func (d Device) String() string {
	return d.Name
}

// run calls f on contiguous sub-ranges of [0, n) covering it exactly once.
func (d Device) run(n int, f func(lo, hi int)) error {
	if d.Shards <= 1 || n < 2*d.Shards {
		f(0, n)
		return nil
	}
	size := (n + d.Shards - 1) / d.Shards
	var g errgroup.Group
	for lo := 0; lo < n; lo += size {
		lo, hi := lo, min(lo+size, n)
		g.Go(func() error {
			f(lo, hi)
			return nil
		})
	}
	return g.Wait()
}
