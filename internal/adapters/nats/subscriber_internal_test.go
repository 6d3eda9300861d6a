package natsadapter

import (
	"errors"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/parcelview/internal/core/domain"
)

func TestDecodeEvent(t *testing.T) {
	event, err := decodeEvent([]byte(`{"ids":["a","b"],"source":"seed.geojson","occurred_at":"2024-05-01T10:00:00Z"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(event.IDs) != 2 || event.IDs[1] != "b" || event.Source != "seed.geojson" {
		t.Errorf("unexpected event %+v", event)
	}
	if event.OccurredAt.Year() != 2024 {
		t.Errorf("unexpected timestamp %v", event.OccurredAt)
	}
}

func TestDecodeEvent_Malformed(t *testing.T) {
	if _, err := decodeEvent([]byte("{")); !errors.Is(err, domain.ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", err)
	}
}

func TestStreamConfig_CoversUpdateSubject(t *testing.T) {
	cfg := streamConfig()
	if cfg.Name != StreamProperties {
		t.Errorf("unexpected stream name %q", cfg.Name)
	}
	if cfg.Retention != nats.InterestPolicy {
		t.Errorf("expected interest retention, got %v", cfg.Retention)
	}
	if len(cfg.Subjects) != 1 || cfg.Subjects[0] != "properties.>" {
		t.Errorf("stream subjects %v do not cover %s", cfg.Subjects, SubjectPropertiesUpdated)
	}
}
