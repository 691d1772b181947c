package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/domain"
)

const settingsKey = "triage:settings"

// Settings is the operator-adjustable configuration persisted across
// restarts. Env config supplies the defaults; the control API mutates these
// at runtime.
type Settings struct {
	AwaitCustomerOps bool                    `json:"await_customer_ops"`
	ResolutionOps    bool                    `json:"resolution_ops"`
	RTAOps           bool                    `json:"rta_ops"`
	DryRun           bool                    `json:"dry_run"`
	PollIntervalSec  int                     `json:"poll_interval_sec"`
	Phrases          domain.TriggerPhraseSet `json:"phrases"`
}

// SettingsStore persists the operator settings record.
type SettingsStore struct {
	kv       KV
	defaults Settings
}

// NewSettingsStore constructs the store; defaults come from env config.
func NewSettingsStore(kv KV, triage config.TriageConfig, monitor config.MonitorConfig) *SettingsStore {
	return &SettingsStore{
		kv: kv,
		defaults: Settings{
			AwaitCustomerOps: triage.AwaitCustomerOps,
			ResolutionOps:    triage.ResolutionOps,
			RTAOps:           triage.RTAOps,
			DryRun:           triage.DryRun,
			PollIntervalSec:  monitor.PollIntervalSec,
			Phrases:          domain.DefaultTriggerPhrases(),
		},
	}
}

// Load returns the persisted settings, or the defaults when none exist.
func (s *SettingsStore) Load(ctx context.Context) (Settings, error) {
	raw, err := s.kv.Get(ctx, settingsKey)
	if errors.Is(err, ErrKeyAbsent) {
		return s.defaults, nil
	}
	if err != nil {
		return s.defaults, err
	}
	var settings Settings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return s.defaults, err
	}
	return settings, nil
}

// Save persists the settings record.
func (s *SettingsStore) Save(ctx context.Context, settings Settings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, settingsKey, raw)
}
