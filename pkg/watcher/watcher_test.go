package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vcanio/Terio-sub000/pkg/config"
)

func TestDebouncerBatchesBurst(t *testing.T) {
	in := make(chan ChangeEvent)
	d := NewDebouncer(in, 200*time.Millisecond, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	in <- ChangeEvent{Type: ChangeTypeEnv, Paths: []string{".env"}}
	in <- ChangeEvent{Type: ChangeTypeConfig, Paths: []string{"terio.toml"}}
	in <- ChangeEvent{Type: ChangeTypeConfig, Paths: []string{"terio.toml"}}
	close(in)

	var got []ChangeEvent
	for ev := range d.Output() {
		got = append(got, ev)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(got), got)
	}
	if got[0].Type != ChangeTypeConfig || len(got[0].Paths) != 1 {
		t.Errorf("first event = %+v, want a single deduplicated config path", got[0])
	}
	if got[1].Type != ChangeTypeEnv {
		t.Errorf("second event = %+v", got[1])
	}
}

func TestDebouncerQuietPeriod(t *testing.T) {
	in := make(chan ChangeEvent)
	d := NewDebouncer(in, 10*time.Millisecond, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	in <- ChangeEvent{Type: ChangeTypeConfig, Paths: []string{"terio.toml"}}
	select {
	case ev := <-d.Output():
		if ev.Type != ChangeTypeConfig {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event after the quiet period")
	}
}

func TestFileWatcherSeesConfigWrites(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "terio.toml")
	if err := os.WriteFile(cfgPath, []byte("port = 8080\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	fw, err := NewFileWatcher(cfgPath, "")
	if err != nil {
		t.Fatalf("NewFileWatcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := fw.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfgPath, []byte("port = 9090\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-fw.Events():
		if ev.Type != ChangeTypeConfig {
			t.Errorf("event type = %v", ev.Type)
		}
		for _, p := range ev.Paths {
			if filepath.Base(p) != "terio.toml" {
				t.Errorf("unexpected path %s", p)
			}
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no event for the config write")
	}
}

func TestClassify(t *testing.T) {
	dir := t.TempDir()
	fw, err := NewFileWatcher(filepath.Join(dir, "terio.yaml"), filepath.Join(dir, ".env"))
	if err != nil {
		t.Fatalf("NewFileWatcher: %v", err)
	}
	defer fw.Stop()

	tests := []struct {
		name   string
		want   ChangeType
		wantOK bool
	}{
		{"terio.yaml", ChangeTypeConfig, true},
		{".env", ChangeTypeEnv, true},
		{"terio.yaml~", 0, false},
	}
	for _, tt := range tests {
		got, ok := fw.classify(filepath.Join(dir, tt.name))
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("classify(%s) = %v, %v; want %v, %v", tt.name, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestAnalyzeChanges(t *testing.T) {
	base := config.Config{Port: 8080, Data: "terio.db", Verbosity: "info", ContainerWidth: 1000, ContainerHeight: 1000}

	same := base
	if a := AnalyzeChanges(&base, &same); !a.Empty() {
		t.Errorf("identical configs: %+v", a)
	}

	updated := base
	updated.Verbosity = "debug"
	updated.Port = 9090
	updated.Seed = 4
	a := AnalyzeChanges(&base, &updated)
	if !a.Logging || a.Auth || !a.Layout {
		t.Errorf("analysis = %+v", a)
	}
	if len(a.NeedRestart) != 1 || a.NeedRestart[0] != "port" {
		t.Errorf("NeedRestart = %v", a.NeedRestart)
	}
}

func TestReloaderAppliesChanges(t *testing.T) {
	current := &config.Config{Verbosity: "info"}
	next := &config.Config{Verbosity: "debug"}
	loads := []struct {
		cfg *config.Config
		err error
	}{
		{nil, errors.New("parse error")},
		{next, nil},
		{next, nil},
	}

	var applied []*ChangeAnalysis
	calls := 0
	r := NewReloader(current, func() (*config.Config, error) {
		l := loads[calls]
		calls++
		return l.cfg, l.err
	}, func(cfg *config.Config, c *ChangeAnalysis) {
		applied = append(applied, c)
	})

	events := make(chan ChangeEvent, 3)
	for range loads {
		events <- ChangeEvent{Type: ChangeTypeConfig}
	}
	close(events)
	r.Run(context.Background(), events)

	if calls != 3 {
		t.Fatalf("Load called %d times", calls)
	}
	// The failed load is skipped and the repeated one is a no-op
	if len(applied) != 1 || !applied[0].Logging {
		t.Errorf("applied = %+v", applied)
	}
	if r.Current() != next {
		t.Error("Current() was not updated")
	}
}
