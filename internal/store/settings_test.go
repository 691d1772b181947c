package store

import (
	"context"
	"testing"

	"github.com/spec-kit/triage-service/internal/config"
)

func testSettingsStore() *SettingsStore {
	return NewSettingsStore(NewMemoryKV(), config.TriageConfig{
		AwaitCustomerOps: true,
		ResolutionOps:    true,
		RTAOps:           false,
		DryRun:           true,
	}, config.MonitorConfig{PollIntervalSec: 15})
}

func TestSettingsLoadDefaults(t *testing.T) {
	s := testSettingsStore()

	settings, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !settings.AwaitCustomerOps || !settings.ResolutionOps || settings.RTAOps || !settings.DryRun {
		t.Fatalf("defaults must mirror env config, got %+v", settings)
	}
	if settings.PollIntervalSec != 15 {
		t.Fatalf("unexpected poll interval %d", settings.PollIntervalSec)
	}
	if len(settings.Phrases.AwaitCustomer) == 0 || len(settings.Phrases.Resolution) == 0 {
		t.Fatalf("defaults must include the stock phrases")
	}
}

func TestSettingsSaveAndReload(t *testing.T) {
	s := testSettingsStore()
	ctx := context.Background()

	settings, _ := s.Load(ctx)
	settings.DryRun = false
	settings.Phrases.Resolution[0].Enabled = false
	if err := s.Save(ctx, settings); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	reloaded, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.DryRun {
		t.Fatalf("saved settings must win over defaults")
	}
	if reloaded.Phrases.Resolution[0].Enabled {
		t.Fatalf("phrase toggle must persist")
	}
	if enabled := reloaded.Phrases.EnabledResolution(); len(enabled) != len(reloaded.Phrases.Resolution)-1 {
		t.Fatalf("disabled phrase must be excluded from the enabled list, got %v", enabled)
	}
}
