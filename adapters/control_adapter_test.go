package adapters_test

import (
	"testing"

	"github.com/momentics/envpool/adapters"
	"github.com/momentics/envpool/control"
)

func TestControlAdapterBasic(t *testing.T) {
	store := control.NewConfigStore()
	store.SetConfig(map[string]any{"num_envs": 4})
	ctrl := adapters.NewControlAdapter(store, nil, nil)

	if ctrl.GetConfig()["num_envs"] != 4 {
		t.Error("config snapshot not exposed")
	}
	ctrl.Metrics().Counter("recv.calls").Add(2)
	ctrl.RegisterDebugProbe("pool.stepping", func() any { return 0 })

	stats := ctrl.Stats()
	if stats["recv.calls"] != int64(2) {
		t.Errorf("recv.calls = %v", stats["recv.calls"])
	}
	if stats["debug.pool.stepping"] != 0 {
		t.Errorf("debug.pool.stepping = %v", stats["debug.pool.stepping"])
	}
	if _, ok := stats["debug.platform.cpus"]; !ok {
		t.Error("platform probes not registered")
	}
}
