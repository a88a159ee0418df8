package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kwv/plannotate/plan"
)

// AppOptions carries CLI flags into the App.
type AppOptions struct {
	ConfigFile     string
	ConfigExplicit bool
	StorePath      string
	HttpPort       int
	ImportFile     string
	ImportFloor    string
}

// App encapsulates the application state and dependencies. The engine is
// single-threaded, so every access goes through mu.
type App struct {
	Config    *plan.Config
	Engine    *plan.Engine
	Store     plan.Store
	Publisher *plan.Publisher
	Notices   *plan.RecordingNotifier

	ConfigFile     string
	ConfigExplicit bool
	StorePath      string
	HttpPort       int
	ImportFile     string
	ImportFloor    string

	mu sync.Mutex
}

// NewApp creates an App with an empty engine and a file store at the
// default path.
func NewApp() *App {
	notices := plan.NewRecordingNotifier(50, plan.LogNotifier{})
	return &App{
		Config:  plan.DefaultConfig(),
		Engine:  plan.NewEngine(plan.WithNotifier(notices)),
		Store:   plan.NewFileStore(plan.DefaultStorePath),
		Notices: notices,
	}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.ConfigExplicit = opts.ConfigExplicit
	a.StorePath = opts.StorePath
	a.HttpPort = opts.HttpPort
	a.ImportFile = opts.ImportFile
	a.ImportFloor = opts.ImportFloor
}

// Init loads the config, wires storage and MQTT, and seeds the engine from
// the stored snapshot.
func (a *App) Init(ctx context.Context) error {
	if a.ConfigFile != "" {
		cfg, err := plan.LoadConfig(a.ConfigFile)
		switch {
		case err == nil:
			a.Config = cfg
			log.Printf("Loaded config from %s", a.ConfigFile)
		case a.ConfigExplicit:
			return err
		default:
			log.Printf("Warning: %v, using defaults", err)
		}
	}
	if a.StorePath != "" {
		a.Config.Storage.Path = a.StorePath
	}
	if a.HttpPort != 0 {
		a.Config.HTTP.Port = a.HttpPort
	}

	stores := plan.MultiStore{plan.NewFileStore(a.Config.Storage.Path)}
	if client := plan.ConnectMQTT(a.Config.MQTT); client != nil {
		a.Publisher = plan.NewPublisher(client, a.Config.MQTT.PublishPrefix)
		a.Publisher.Attach(ctx, a.Engine)
		stores = append(stores, a.Publisher)
	}
	a.Store = stores

	a.mu.Lock()
	defer a.mu.Unlock()
	loaded, err := a.Engine.LoadFrom(ctx, a.Store)
	if err != nil {
		return err
	}
	if loaded {
		log.Printf("Loaded snapshot from %s", a.Config.Storage.Path)
	}
	if a.Engine.Building() == nil {
		name := a.Config.Building.Name
		if name == "" {
			name = "Untitled building"
		}
		a.Engine.SetBuilding(plan.Building{Name: name, Address: a.Config.Building.Address})
	}
	return nil
}

// withEngine runs fn with exclusive access to the engine.
func (a *App) withEngine(fn func(e *plan.Engine) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return fn(a.Engine)
}

// Save persists the engine snapshot.
func (a *App) Save(ctx context.Context) error {
	return a.withEngine(func(e *plan.Engine) error {
		return e.Save(ctx, a.Store)
	})
}

// RunImport stages a CSV file into rooms on the chosen floor, reports the
// count to w and saves.
func (a *App) RunImport(ctx context.Context, w io.Writer) error {
	f, err := os.Open(a.ImportFile)
	if err != nil {
		return fmt.Errorf("opening import file: %w", err)
	}
	defer f.Close()

	table := plan.ParseCSV(f)
	var rooms []plan.Room
	err = a.withEngine(func(e *plan.Engine) error {
		var err error
		rooms, err = e.ImportRooms(a.ImportFloor, table)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Imported %d room(s) from %s\n", len(rooms), a.ImportFile)
	return a.Save(ctx)
}

// RunSummary prints the loaded state.
func (a *App) RunSummary(w io.Writer) {
	_ = a.withEngine(func(e *plan.Engine) error {
		if b := e.Building(); b != nil {
			fmt.Fprintf(w, "Building: %s", b.Name)
			if b.Address != "" {
				fmt.Fprintf(w, " (%s)", b.Address)
			}
			fmt.Fprintln(w)
		}
		for _, f := range e.Floors() {
			active := ""
			if f.ID == e.ActiveFloorID() {
				active = " [active]"
			}
			scale := "uncalibrated"
			if f.Calibration != nil {
				scale = fmt.Sprintf("%.2f px/m", f.Calibration.PixelsPerMeter)
			}
			fmt.Fprintf(w, "Floor %d: %s%s, %dx%d px, %s\n",
				f.OrderIndex, f.Name, active, f.Width, f.Height, scale)
			fmt.Fprintf(w, "  Rooms: %d, Measurements: %d\n",
				len(e.FloorRooms(f.ID)), len(e.Measurements(f.ID)))
			for _, m := range e.Measurements(f.ID) {
				fmt.Fprintf(w, "    %s: %s\n", m.Name, e.DisplayLength(m))
			}
		}
		fmt.Fprintf(w, "Panos: %d total, %d unassigned\n", len(e.Panos()), len(e.UnassignedPanos()))
		return nil
	})
}

// RunService serves the HTTP API until interrupted, then saves unsaved
// changes.
func (a *App) RunService() {
	addr := fmt.Sprintf(":%d", a.Config.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           newHTTPServer(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}

	unsaved := false
	_ = a.withEngine(func(e *plan.Engine) error {
		unsaved = e.UnsavedChanges()
		return nil
	})
	if unsaved {
		if err := a.Save(ctx); err != nil {
			log.Printf("Warning: unsaved changes lost: %v", err)
		} else {
			log.Println("Saved pending changes")
		}
	}
}
