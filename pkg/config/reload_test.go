package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/realmforge/realmforge/pkg/config"
)

const minimalConfig = `
version: "1.0"
realms:
  - id: core
projects:
  - path: project.yaml
`

func waitForEvent(t *testing.T, events <-chan config.ReloadEvent) config.ReloadEvent {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload event")
		return config.ReloadEvent{}
	}
}

func TestReloadManager_TriggerReload(t *testing.T) {
	path := writeFile(t, t.TempDir(), config.DefaultConfigFile, minimalConfig)

	rm := config.NewReloadManager(path, nil)
	events := make(chan config.ReloadEvent, 4)
	rm.AddCallback(func(ev config.ReloadEvent) { events <- ev })

	rm.TriggerReload()
	ev := waitForEvent(t, events)
	if ev.Error != nil || ev.Config == nil {
		t.Fatalf("event = %+v", ev)
	}
	if ev.Config.Realms[0].ID != "core" {
		t.Errorf("realms = %+v", ev.Config.Realms)
	}
	if rm.GetLastReloadTime().IsZero() {
		t.Error("last reload time not recorded")
	}
}

func TestReloadManager_InvalidConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), config.DefaultConfigFile, "version: \"9.9\"\n")

	rm := config.NewReloadManager(path, nil)
	events := make(chan config.ReloadEvent, 1)
	rm.AddCallback(func(ev config.ReloadEvent) { events <- ev })

	rm.TriggerReload()
	ev := waitForEvent(t, events)
	if ev.EventType != config.ReloadEventTypeError || ev.Error == nil {
		t.Fatalf("event = %+v", ev)
	}
	if !strings.Contains(ev.Error.Error(), "unsupported config version") {
		t.Errorf("error = %v", ev.Error)
	}
}

func TestReloadManager_WatchesProjectFiles(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, config.DefaultConfigFile, minimalConfig)
	projectPath := writeFile(t, dir, "app/project.yaml", "groupId: g\nartifactId: a\n")

	rm := config.NewReloadManager(cfgPath, nil)
	rm.SetDebouncePeriod(20 * time.Millisecond)
	rm.AddPath(projectPath)
	events := make(chan config.ReloadEvent, 4)
	rm.AddCallback(func(ev config.ReloadEvent) { events <- ev })

	if err := rm.StartWatching(); err != nil {
		t.Fatalf("StartWatching: %v", err)
	}
	defer rm.StopWatching()
	if !rm.IsWatching() {
		t.Fatal("manager should be watching")
	}
	if err := rm.StartWatching(); err == nil {
		t.Error("second StartWatching should fail")
	}

	// mod times have one second resolution on some filesystems
	later := time.Now().Add(2 * time.Second)
	if err := os.WriteFile(projectPath, []byte("groupId: g\nartifactId: b\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(projectPath, later, later); err != nil {
		t.Fatal(err)
	}

	ev := waitForEvent(t, events)
	if ev.Error != nil {
		t.Fatalf("reload error: %v", ev.Error)
	}
	if filepath.Clean(ev.Path) != filepath.Clean(projectPath) {
		t.Errorf("event path = %s, want %s", ev.Path, projectPath)
	}

	if err := rm.StopWatching(); err != nil {
		t.Errorf("StopWatching: %v", err)
	}
	if rm.IsWatching() {
		t.Error("manager still watching after stop")
	}
}
