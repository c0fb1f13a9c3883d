// Command trackgraph loads a spot scene into a track-graph model, computes
// track features and prints one row per track. It can journal every model
// change to SQLite and serve the result over HTTP until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fiji/fiji-sub027/internal/api"
	"github.com/fiji/fiji-sub027/internal/config"
	"github.com/fiji/fiji-sub027/internal/features"
	"github.com/fiji/fiji-sub027/internal/journal"
	"github.com/fiji/fiji-sub027/internal/model"
	"github.com/fiji/fiji-sub027/internal/monitoring"
	"github.com/fiji/fiji-sub027/internal/scene"
	"github.com/fiji/fiji-sub027/internal/version"
)

const defaultColumns = "NUMBER_SPOTS,NUMBER_SPLITS,NUMBER_MERGES,NUMBER_GAPS,TRACK_DURATION,TRACK_DISPLACEMENT,TRACK_MEAN_SPEED"

// options holds the command line.
type options struct {
	ConfigPath  string
	ScenePath   string
	JournalPath string
	Listen      string
	ExportPath  string
	Columns     string
	Threads     int
	VisibleOnly bool
	Verbose     bool
	Version     bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("trackgraph", flag.ContinueOnError)
	fs.StringVar(&o.ConfigPath, "config", "", "Path to a JSON config file (default: "+config.DefaultConfigPath+" if found, else built-in defaults)")
	fs.StringVar(&o.ScenePath, "scene", "", "Path to a .json/.yaml scene file (required)")
	fs.StringVar(&o.JournalPath, "journal", "", "SQLite journal path (overrides config journal_path)")
	fs.StringVar(&o.Listen, "listen", "", "Serve /metrics and /api on this address until interrupted (overrides config listen)")
	fs.StringVar(&o.ExportPath, "export", "", "Write the final model as a scene to this .json/.yaml path")
	fs.StringVar(&o.Columns, "features", defaultColumns, "Comma-separated track features to print")
	fs.IntVar(&o.Threads, "threads", 0, "Feature worker count (overrides config feature_threads)")
	fs.BoolVar(&o.VisibleOnly, "visible", false, "Print visible tracks only")
	fs.BoolVar(&o.Verbose, "v", false, "Enable diagnostic and trace logging")
	fs.BoolVar(&o.Version, "version", false, "Print the version and exit")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.Version {
		return o, nil
	}
	if o.ScenePath == "" {
		return o, errors.New("-scene is required")
	}
	if o.Threads < 0 {
		return o, fmt.Errorf("-threads must be non-negative, got %d", o.Threads)
	}
	return o, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("trackgraph: %v", err)
	}
}

// loadConfig reads path when set. Otherwise it falls back to the shipped
// defaults file, then to built-in defaults when that file is not found.
func loadConfig(path string) (*config.TrackGraphConfig, error) {
	if path != "" {
		return config.LoadConfig(path)
	}
	cfg, found, err := config.FindDefaultConfig()
	switch {
	case err == nil:
		monitoring.Logf("using defaults from %s", found)
		return cfg, nil
	case errors.Is(err, fs.ErrNotExist):
		monitoring.Logf("no %s found, using built-in defaults", config.DefaultConfigPath)
		return config.EmptyConfig(), nil
	default:
		return nil, err
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args)
	if err != nil {
		return err
	}
	if o.Version {
		fmt.Fprintln(stdout, version.String())
		return nil
	}

	if o.Verbose {
		model.SetLogWriters(stderr, stderr, stderr)
	} else {
		model.SetLogWriters(stderr, nil, nil)
	}

	cfg, err := loadConfig(o.ConfigPath)
	if err != nil {
		return err
	}
	if o.Threads > 0 {
		cfg.FeatureThreads = &o.Threads
	}
	journalPath := cfg.GetJournalPath()
	if o.JournalPath != "" {
		journalPath = o.JournalPath
	}
	listen := cfg.GetListen()
	if o.Listen != "" {
		listen = o.Listen
	}
	columns, err := parseColumns(o.Columns)
	if err != nil {
		return err
	}

	sc, err := scene.Load(o.ScenePath)
	if err != nil {
		return err
	}
	frames, err := sc.FrameSource()
	if err != nil {
		return err
	}
	var src features.FrameSource
	if frames != nil {
		src = frames
	}
	mcfg, err := model.ConfigFromFile(cfg, src)
	if err != nil {
		return err
	}
	m := model.New(mcfg)

	var j *journal.Journal
	if journalPath != "" {
		j, err = journal.Open(journalPath)
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer j.Close()
		session, detach, err := j.Attach(m)
		if err != nil {
			return err
		}
		defer detach()
		monitoring.Logf("journaling model %s to %s (session %s)", m.ID(), journalPath, session)
	}

	if _, err := sc.Build(m); err != nil {
		if !errors.Is(err, model.ErrFeatureComputation) {
			return err
		}
		monitoring.Logf("warning: %v", err)
	}
	monitoring.Logf("loaded %d spots, %d edges, %d tracks from %s", m.NSpots(), m.NEdges(), m.NTracks(false), o.ScenePath)

	if threshold, ok := cfg.GetInitialQualityThreshold(); ok {
		removed, err := m.ExecInitialSpotFiltering(threshold)
		if err != nil && !errors.Is(err, model.ErrFeatureComputation) {
			return err
		}
		monitoring.Logf("initial filtering at quality %g removed %d spots", threshold, removed)
	}

	if err := printTracks(stdout, m, columns, o.VisibleOnly); err != nil {
		return err
	}

	if o.ExportPath != "" {
		if err := exportScene(o.ExportPath, m); err != nil {
			return err
		}
		monitoring.Logf("exported scene to %s", o.ExportPath)
	}

	if listen != "" {
		return serve(ctx, listen, m, j)
	}
	return nil
}

// serve publishes m and serves the API on addr until ctx is done.
func serve(ctx context.Context, addr string, m *model.Model, j *journal.Journal) error {
	apiServer := api.NewServer(j)
	apiServer.Publish(m)

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.LoggingMiddleware(apiServer.ServeMux()),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	monitoring.Logf("serving /api and /metrics on %s", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

func parseColumns(s string) ([]features.TrackFeature, error) {
	var out []features.TrackFeature
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		f, err := features.ParseTrackFeature(name)
		if err != nil {
			return nil, fmt.Errorf("-features: %w", err)
		}
		out = append(out, f)
	}
	return out, nil
}

// printTracks writes a tab-aligned table, one row per track. Unset features
// print as "-".
func printTracks(w io.Writer, m *model.Model, columns []features.TrackFeature, visibleOnly bool) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := []string{"TRACK", "NAME", "VISIBLE"}
	for _, f := range columns {
		header = append(header, f.String())
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, i := range m.TrackIDs(visibleOnly) {
		row := []string{fmt.Sprint(i), m.TrackName(i), fmt.Sprint(m.IsTrackVisible(i))}
		for _, f := range columns {
			if v, ok := m.TrackFeature(i, f); ok {
				row = append(row, fmt.Sprintf("%.4g", v))
			} else {
				row = append(row, "-")
			}
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func exportScene(path string, m *model.Model) error {
	format, err := scene.FormatOf(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := scene.Encode(f, scene.FromModel(m), format); err != nil {
		f.Close()
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return f.Close()
}
