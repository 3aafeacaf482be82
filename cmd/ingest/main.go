// Command ingest walks a directory of DICOM files and loads their
// metadata into the configured store, without starting the HTTP server.
// Useful for bulk-importing an archive before serving it.
package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/DavidGamba/go-getoptions"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"

	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/config"
	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/database"
	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/framecache"
	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/ingest"
	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/repository"
	"github.com/ThalesMMS/Isis-for-Windows-sub002/pkg/logger"
)

// Options command line parameters
type Options struct {
	Input    string
	Coverage float64
	UseDB    bool
	Debug    bool
	Help     bool

	opt *getoptions.GetOpt
}

func initOptions() *Options {
	opt := &Options{
		opt:      getoptions.New(),
		Coverage: framecache.DefaultCoverageThreshold,
	}

	opt.opt.BoolVar(&opt.Help, "help", false, opt.opt.Alias("h"),
		opt.opt.Description("show help information"))
	opt.opt.BoolVar(&opt.Debug, "debug", false,
		opt.opt.Description("show more info"))
	opt.opt.StringVar(&opt.Input, "input", "", opt.opt.Alias("i"),
		opt.opt.Description("path to a DICOM file or directory"))
	opt.opt.Float64Var(&opt.Coverage, "coverage", framecache.DefaultCoverageThreshold,
		opt.opt.Description("minimum fraction of the pixel range a declared window must cover"))
	opt.opt.BoolVar(&opt.UseDB, "db", false,
		opt.opt.Description("persist metadata to the configured database instead of memory"))

	_, err := opt.opt.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if opt.opt.Called("help") || opt.Input == "" {
		fmt.Fprintf(os.Stderr, "%s", opt.opt.Help())
		os.Exit(1)
	}

	return opt
}

// collectFiles gathers candidate file paths so the progress bar has a
// known total before ingestion starts.
func collectFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

func main() {
	options := initOptions()

	level := "info"
	if options.Debug {
		level = "debug"
	}
	logger.Init(level, "console")

	var store repository.MetadataStore
	if options.UseDB {
		cfg, err := config.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}
		dbConfig := database.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
			LogLevel: cfg.Database.LogLevel,
		}
		if err := database.Connect(dbConfig); err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer database.Close()
		store = repository.NewGormStore()
	} else {
		store = repository.NewMemoryStore()
	}

	files, err := collectFiles(options.Input)
	if err != nil {
		log.Fatal().Err(err).Str("input", options.Input).Msg("Failed to scan input")
	}
	if len(files) == 0 {
		log.Fatal().Str("input", options.Input).Msg("No files found")
	}

	svc := ingest.New(store, options.Coverage, 0)
	ctx := context.Background()

	bar := progressbar.Default(int64(len(files)), "ingesting")
	start := time.Now()

	var ingested, skipped, failed int
	for _, path := range files {
		res, err := svc.IngestFile(ctx, path)
		switch res.Status {
		case ingest.StatusIngested:
			ingested++
		case ingest.StatusSkipped:
			skipped++
		default:
			failed++
			log.Debug().Err(err).Str("path", path).Msg("Ingestion failed")
		}
		// Volumes are only needed while serving; drop them as we go to
		// keep bulk runs flat on memory.
		if res.SOPUID != "" {
			svc.CloseImage(res.SOPUID)
		}
		_ = bar.Add(1)
	}

	elapsed := time.Since(start)
	fmt.Println("\n=== Ingest Summary ===")
	fmt.Printf("Total files: %d\n", len(files))
	fmt.Printf("Ingested: %d\n", ingested)
	fmt.Printf("Skipped: %d\n", skipped)
	fmt.Printf("Failed: %d\n", failed)
	fmt.Printf("Total time: %s\n", elapsed.Round(time.Second))

	if failed > 0 {
		log.Warn().Int("failed", failed).Msg("Some files failed to ingest; re-run with --debug for details")
	}
}
