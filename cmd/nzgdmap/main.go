package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/quakecoresoft/nzgdmap/internal/api"
	"github.com/quakecoresoft/nzgdmap/internal/dataset"
	"github.com/quakecoresoft/nzgdmap/internal/metrics"
	"github.com/quakecoresoft/nzgdmap/internal/mirror"
	"github.com/quakecoresoft/nzgdmap/internal/store"
)

var cli struct {
	DB             string                   `help:"Path to the extracted NZGD SQLite dataset." default:"data/extracted_nzgd.db" env:"NZGD_DB"`
	Port           string                   `help:"HTTP server port." default:"8080" env:"PORT"`
	ReloadInterval time.Duration            `help:"How often to reload the dataset snapshot. Zero disables reloading." default:"0" env:"NZGD_RELOAD_INTERVAL"`
	MirrorHost     string                   `help:"FTP mirror host:port to fetch the dataset from before each reload." env:"NZGD_MIRROR_HOST"`
	MirrorPath     string                   `help:"Remote path of the dataset file on the mirror." env:"NZGD_MIRROR_PATH"`
	EnvFile        kongdotenv.ENVFileConfig `kong:"optional,name='env-file',help='Path to a .env file.'"`
}

func main() {
	kong.Parse(&cli,
		kong.Name("nzgdmap"),
		kong.Description("Serves NZGD geotechnical records, Vs30 estimates and derived data products."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	snap, err := loadSnapshot(cli.DB)
	if err != nil {
		log.Fatalf("load dataset: %v", err)
	}
	log.Printf("dataset loaded: %d records (%d skipped)", len(snap.Records), snap.Meta.Skipped)

	handle := dataset.NewHandle(snap)
	server := api.NewServer(handle, cli.Port)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cli.ReloadInterval > 0 {
		go reloadLoop(ctx, handle)
	}

	log.Printf("starting server on :%s", cli.Port)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}

// loadSnapshot opens the dataset file, builds an in-memory snapshot and
// closes the connection again. Nothing reads the file between reloads, so
// the mirror can replace it safely.
func loadSnapshot(path string) (*dataset.Snapshot, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return dataset.Load(st)
}

func reloadLoop(ctx context.Context, handle *dataset.Handle) {
	var mc *mirror.Client
	if cli.MirrorHost != "" && cli.MirrorPath != "" {
		mc = mirror.New(cli.MirrorHost, cli.MirrorPath)
	}

	ticker := time.NewTicker(cli.ReloadInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if mc != nil {
			if err := mc.Fetch(cli.DB); err != nil {
				log.Printf("mirror fetch failed, reloading existing file: %v", err)
			}
		}

		snap, err := loadSnapshot(cli.DB)
		if err != nil {
			metrics.DatasetReloads.WithLabelValues("error").Inc()
			log.Printf("dataset reload failed, keeping current snapshot: %v", err)
			continue
		}
		handle.Swap(snap)
		metrics.DatasetReloads.WithLabelValues("ok").Inc()
		log.Printf("dataset reloaded: %d records (%d skipped)", len(snap.Records), snap.Meta.Skipped)
	}
}
