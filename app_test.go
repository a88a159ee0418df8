package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kwv/plannotate/plan"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// initApp runs Init against a config pointing into dir with MQTT disabled.
func initApp(t *testing.T, dir string) *App {
	t.Helper()
	t.Setenv("MQTT_BROKER", "")
	cfg := writeFile(t, dir, "config.yaml", "storage:\n  path: "+filepath.Join(dir, "plan.json")+"\nbuilding:\n  name: HQ\n  address: 1 Main St\n")
	app := NewApp()
	app.ApplyOptions(AppOptions{ConfigFile: cfg, ConfigExplicit: true})
	if err := app.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return app
}

func TestNewApp(t *testing.T) {
	app := NewApp()
	if app.Config == nil || app.Engine == nil || app.Store == nil || app.Notices == nil {
		t.Fatal("expected NewApp to wire config, engine, store and notices")
	}
	if app.Publisher != nil {
		t.Error("expected no publisher before Init")
	}
}

func TestApplyOptions(t *testing.T) {
	app := NewApp()
	app.ApplyOptions(AppOptions{
		ConfigFile:  "custom.yaml",
		StorePath:   "/tmp/plan.json",
		HttpPort:    9090,
		ImportFile:  "rooms.csv",
		ImportFloor: "f1",
	})
	if app.ConfigFile != "custom.yaml" || app.StorePath != "/tmp/plan.json" {
		t.Errorf("paths not applied: %+v", app)
	}
	if app.HttpPort != 9090 || app.ImportFile != "rooms.csv" || app.ImportFloor != "f1" {
		t.Errorf("options not applied: %+v", app)
	}
}

func TestInit_SeedsBuildingFromConfig(t *testing.T) {
	app := initApp(t, t.TempDir())
	b := app.Engine.Building()
	if b == nil {
		t.Fatal("expected a seeded building")
	}
	if b.Name != "HQ" || b.Address != "1 Main St" {
		t.Errorf("unexpected building %+v", b)
	}
	if _, ok := app.Store.(plan.MultiStore); !ok {
		t.Errorf("expected a MultiStore, got %T", app.Store)
	}
}

func TestInit_MissingConfig(t *testing.T) {
	t.Setenv("MQTT_BROKER", "")
	dir := t.TempDir()

	app := NewApp()
	app.ApplyOptions(AppOptions{
		ConfigFile: filepath.Join(dir, "absent.yaml"),
		StorePath:  filepath.Join(dir, "plan.json"),
		HttpPort:   9999,
	})
	if err := app.Init(context.Background()); err != nil {
		t.Fatalf("implicit config should fall back to defaults: %v", err)
	}
	if app.Config.HTTP.Port != 9999 {
		t.Errorf("expected port override 9999, got %d", app.Config.HTTP.Port)
	}
	if app.Engine.Building().Name != "Untitled building" {
		t.Errorf("expected default building name, got %s", app.Engine.Building().Name)
	}

	explicit := NewApp()
	explicit.ApplyOptions(AppOptions{ConfigFile: filepath.Join(dir, "absent.yaml"), ConfigExplicit: true})
	if err := explicit.Init(context.Background()); err == nil {
		t.Error("expected explicit missing config to fail")
	}
}

func TestInit_LoadsSnapshot(t *testing.T) {
	dir := t.TempDir()
	e := plan.NewEngine()
	e.SetBuilding(plan.Building{Name: "Stored"})
	if _, err := e.AddFloor(plan.Floor{Name: "Ground"}); err != nil {
		t.Fatal(err)
	}
	if err := e.Save(context.Background(), plan.NewFileStore(filepath.Join(dir, "plan.json"))); err != nil {
		t.Fatal(err)
	}

	app := initApp(t, dir)
	if got := app.Engine.Building().Name; got != "Stored" {
		t.Errorf("expected stored building to win over config, got %s", got)
	}
	if len(app.Engine.Floors()) != 1 {
		t.Errorf("expected 1 floor, got %d", len(app.Engine.Floors()))
	}
	if app.Engine.UnsavedChanges() {
		t.Error("expected a freshly loaded engine to be clean")
	}
}

func TestRunImport(t *testing.T) {
	dir := t.TempDir()
	app := initApp(t, dir)
	f, err := app.Engine.AddFloor(plan.Floor{Name: "Ground"})
	if err != nil {
		t.Fatal(err)
	}

	app.ImportFile = writeFile(t, dir, "rooms.csv", "Room,Seats\nname,capacity\nKitchen,4\nOffice,2\n")
	app.ImportFloor = f.ID
	var out bytes.Buffer
	if err := app.RunImport(context.Background(), &out); err != nil {
		t.Fatalf("RunImport failed: %v", err)
	}
	if !strings.Contains(out.String(), "Imported 2 room(s) from "+app.ImportFile) {
		t.Errorf("expected import report, got %q", out.String())
	}
	if n := len(app.Engine.FloorRooms(f.ID)); n != 2 {
		t.Errorf("expected 2 rooms, got %d", n)
	}
	if app.Engine.UnsavedChanges() {
		t.Error("expected import to be saved")
	}

	app.ImportFile = filepath.Join(dir, "missing.csv")
	if err := app.RunImport(context.Background(), io.Discard); err == nil {
		t.Error("expected error for missing import file")
	}
}

func TestRunSummary(t *testing.T) {
	app := initApp(t, t.TempDir())
	f, _ := app.Engine.AddFloor(plan.Floor{Name: "Ground", Width: 1000, Height: 800})
	app.Engine.SetActiveFloor(f.ID)
	app.Engine.AddPanos(plan.Pano{NodeID: "n1"})

	var out bytes.Buffer
	app.RunSummary(&out)
	for _, want := range []string{
		"Building: HQ (1 Main St)",
		"Floor 0: Ground [active], 1000x800 px, uncalibrated",
		"Rooms: 0, Measurements: 0",
		"Panos: 1 total, 1 unassigned",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected summary to contain %q, got:\n%s", want, out.String())
		}
	}
}
