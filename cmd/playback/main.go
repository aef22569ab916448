package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/banshee-data/arplayback/internal/api"
	"github.com/banshee-data/arplayback/internal/capture"
	"github.com/banshee-data/arplayback/internal/config"
	"github.com/banshee-data/arplayback/internal/db"
	"github.com/banshee-data/arplayback/internal/fsutil"
	"github.com/banshee-data/arplayback/internal/playback"
	"github.com/banshee-data/arplayback/internal/provider"
	"github.com/banshee-data/arplayback/internal/report"
	"github.com/banshee-data/arplayback/internal/rpc"
	"github.com/banshee-data/arplayback/internal/security"
	"github.com/banshee-data/arplayback/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to a .json or .yaml playback config")
	datasetDir  = flag.String("dataset", "", "Capture dataset directory (overrides dataset_dir in the config)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

const shutdownTimeout = 2 * time.Second

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("arplayback"))
		return
	}

	cfg := &config.PlaybackConfig{}
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	cfg.ApplyFlags(*datasetDir)
	if cfg.DatasetDir == "" {
		log.Fatal("a dataset directory is required (-dataset or dataset_dir)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, nil); err != nil {
		log.Fatalf("playback: %v", err)
	}
	log.Printf("Graceful shutdown complete")
}

// listeners is called once both servers are bound. Tests use it to learn
// the chosen ports.
type listeners func(httpAddr, grpcAddr net.Addr)

func run(ctx context.Context, cfg *config.PlaybackConfig, ready listeners) error {
	fsys := fsutil.OSFileSystem{}
	ds, err := capture.Load(fsys, cfg.DatasetDir)
	if err != nil {
		return err
	}
	log.Printf("loaded dataset %s: %d frames at %d fps", ds.Dir, ds.Len(), ds.FrameRate)

	store, err := db.OpenMigrated(cfg.GetDBPath())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	datasetID, err := store.UpsertDataset(ds)
	if err != nil {
		return err
	}

	reader, err := playback.NewReader(ds, playback.ReaderOptions{
		LoopInfinitely: cfg.GetLoopInfinitely(),
		StartFrame:     cfg.GetStartFrame(),
		EndFrame:       cfg.GetEndFrame(),
	})
	if err != nil {
		return err
	}

	sessionID, err := store.StartSession(datasetID, reader.StartFrame(), reader.EndFrame(), reader.LoopInfinitely())
	if err != nil {
		return err
	}
	timeline := report.NewTimeline(0)

	driver, err := playback.NewDriver(reader, playback.DriverOptions{
		ManualStepping: cfg.GetManualStepping(),
		Rate:           cfg.GetRate(),
		Paused:         cfg.GetPaused(),
		ExitOnFinish:   cfg.GetExitOnFinish(),
		Observers:      []playback.StepObserver{store.NewSessionObserver(sessionID), timeline},
	})
	if err != nil {
		return err
	}

	frames := provider.NewPlayback(driver, playback.NewFrameCache(fsys, ds))
	if err := frames.Start(ctx); err != nil {
		return err
	}
	defer frames.Stop()

	mux := api.NewServer(driver, frames, store, timeline).ServeMux()
	if err := store.AttachAdminRoutes(mux); err != nil {
		return err
	}
	httpServer := &http.Server{Handler: api.LoggingMiddleware(mux)}

	grpcServer := grpc.NewServer()
	rpc.NewService(driver, rpc.Options{WatchInterval: cfg.GetWatchInterval()}).Register(grpcServer)

	httpLis, err := net.Listen("tcp", cfg.GetHTTPAddr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GetHTTPAddr(), err)
	}
	grpcLis, err := net.Listen("tcp", cfg.GetGRPCAddr())
	if err != nil {
		httpLis.Close()
		return fmt.Errorf("failed to listen on %s: %w", cfg.GetGRPCAddr(), err)
	}
	log.Printf("HTTP listening on %s, gRPC on %s, session %s", httpLis.Addr(), grpcLis.Addr(), sessionID)
	if ready != nil {
		ready(httpLis.Addr(), grpcLis.Addr())
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		defer cancel()
		return driver.Run(gctx)
	})
	g.Go(func() error {
		if err := httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := grpcServer.Serve(grpcLis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("shutting down servers...")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			httpServer.Close()
		}
		stopGRPC(grpcServer, shutdownTimeout)
		return nil
	})

	runErr := g.Wait()

	st := driver.Snapshot()
	if err := store.EndSession(sessionID, st.Finished); err != nil {
		log.Printf("failed to end session %s: %v", sessionID, err)
	}
	log.Printf("session %s ended after %d steps (finished=%v)", sessionID, st.Steps, st.Finished)

	if err := writeTimelinePlot(cfg.GetPlotsDir(), sessionID, timeline); err != nil {
		log.Printf("failed to write timeline plot: %v", err)
	}
	return runErr
}

// stopGRPC waits up to timeout for in-flight calls, then cuts open watch
// streams.
func stopGRPC(s *grpc.Server, timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		s.Stop()
		<-done
	}
}

func writeTimelinePlot(dir, sessionID string, timeline *report.Timeline) error {
	samples := timeline.Samples()
	if len(samples) == 0 {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	path := filepath.Join(dir, fmt.Sprintf("timestamps-%s.png", sessionID))
	if err := security.ValidateOutputPath(path, []string{dir}); err != nil {
		return err
	}
	if err := report.PlotTimestamps(samples, path); err != nil {
		return err
	}
	log.Printf("wrote %s", path)
	return nil
}
