package metrics

import "testing"

func TestCountersWithoutStorage(t *testing.T) {
	if err := Close(); err != nil {
		t.Fatalf("close without storage: %v", err)
	}
	name := "test_counter_without_storage"
	if v := Inc(name, 2); v != 2 {
		t.Fatalf("expected 2, got %d", v)
	}
	if v := Inc(name, 3); v != 5 {
		t.Fatalf("expected 5, got %d", v)
	}
	if v := GetCounter(name); v != 5 {
		t.Errorf("expected counter 5, got %d", v)
	}
	SetGauge("test_gauge", 10)
}

func TestInitAndClose(t *testing.T) {
	if err := InitMetrics(t.TempDir()); err != nil {
		t.Fatalf("init metrics: %v", err)
	}
	Inc("test_counter_with_storage", 1)
	ObserveFloat("test_amount", 12.5)
	if err := Close(); err != nil {
		t.Fatalf("close metrics: %v", err)
	}
}
