package affinity

import (
	"runtime"
	"slices"
	"testing"
)

func TestCPUsIsStartupSet(t *testing.T) {
	cpus := CPUs()
	if len(cpus) == 0 {
		t.Fatalf("CPUs() = %v", cpus)
	}
	if !slices.IsSorted(cpus) {
		t.Errorf("CPUs() not ascending: %v", cpus)
	}
	if runtime.GOOS == "linux" {
		now, err := Allowed()
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(now, cpus) {
			t.Errorf("CPUs() = %v, allowed now %v", cpus, now)
		}
	}
	cpus[0] = -42
	if CPUs()[0] == -42 {
		t.Error("CPUs() exposes internal storage")
	}
}

func TestWorkerCPU(t *testing.T) {
	cpus := CPUs()
	n := len(cpus)
	cases := []struct {
		offset, worker, want int
	}{
		{-1, 0, -1},
		{-5, 3, -1},
		{0, 0, cpus[0]},
		{0, n, cpus[0]},
		{1, n - 1, cpus[0]},
		{0, n - 1, cpus[n-1]},
	}
	for _, c := range cases {
		if got := WorkerCPU(c.offset, c.worker); got != c.want {
			t.Errorf("WorkerCPU(%d,%d) = %d, want %d", c.offset, c.worker, got, c.want)
		}
	}
}

func TestWorkerCPUStaysInRestrictedSet(t *testing.T) {
	saved := startup
	defer func() { startup = saved }()
	startup = []int{4, 5, 6, 7}

	for i := 0; i < 10; i++ {
		if got, want := WorkerCPU(1, i), startup[(1+i)%4]; got != want {
			t.Errorf("worker %d: cpu %d, want %d", i, got, want)
		}
	}
	if err := SetAffinity(0); err == nil {
		t.Error("cpu outside the usable set accepted")
	}
}

func TestSetAffinityRejectsOutOfRange(t *testing.T) {
	cpus := CPUs()
	if err := SetAffinity(-1); err == nil {
		t.Error("negative cpu accepted")
	}
	if err := SetAffinity(cpus[len(cpus)-1] + 1); err == nil {
		t.Error("cpu past the usable set accepted")
	}
}

func TestPinRoundTrip(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("affinity is only verified on linux")
	}
	cpus := CPUs()
	target := cpus[len(cpus)-1]
	if err := Pin(target); err != nil {
		t.Skipf("pinning not permitted here: %v", err)
	}
	got, err := Allowed()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != target {
		t.Errorf("allowed after pin = %v, want [%d]", got, target)
	}
	if err := Unpin(); err != nil {
		t.Fatal(err)
	}
	if got, _ := Allowed(); !slices.Equal(got, cpus) {
		t.Errorf("allowed after unpin = %v, want %v", got, cpus)
	}
}
