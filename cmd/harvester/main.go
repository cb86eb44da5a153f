package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"menuharvest-backend/lib/configutil"
	configsqlite "menuharvest-backend/lib/configutil/sqlite"
	"menuharvest-backend/lib/scrapers/yelp"
	"menuharvest-backend/lib/scrapers/yelpmenu"
	"menuharvest-backend/lib/serviceutil"
	"menuharvest-backend/lib/telemetry"
	"menuharvest-backend/services/harvester"
	harvesterdb "menuharvest-backend/services/harvester/db"
)

type DirectoryConfig struct {
	ApiKey  string `json:"api_key"`
	BaseUrl string `json:"base_url"`
}

type MenuConfig struct {
	BaseUrl         string   `json:"base_url"`
	Localities      []string `json:"localities"`
	DefaultLocality string   `json:"default_locality"`
}

type Config struct {
	Directory  DirectoryConfig     `json:"directory"`
	Menu       MenuConfig          `json:"menu"`
	Database   configsqlite.Struct `json:"database"`
	Location   string              `json:"location"`
	TotalLimit int                 `json:"total_limit"`
	Verbose    bool                `json:"verbose"`
}

func main() {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}

	telemetry.InitSlog(cfg.Verbose)

	if cfg.Directory.ApiKey == "" {
		serviceutil.Fatal("invalid config", fmt.Errorf("directory.api_key is required"))
	}
	if cfg.Location == "" {
		serviceutil.Fatal("invalid config", fmt.Errorf("location is required"))
	}
	if cfg.TotalLimit <= 0 {
		cfg.TotalLimit = 200
	}

	ctx := serviceutil.SignalContext()

	t, err := telemetry.SetupFromEnv(ctx, "harvester")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer t.Shutdown(context.Background())

	out, err := cfg.Database.OpenDB(harvesterdb.Schema)
	if err != nil {
		serviceutil.Fatal("failed to open db", err)
	}

	directory := yelp.NewClient(yelp.ClientOptions{
		BaseUrl: cfg.Directory.BaseUrl,
		ApiKey:  cfg.Directory.ApiKey,
	})
	menus := yelpmenu.NewScraper(yelpmenu.ScraperOptions{
		BaseUrl:         cfg.Menu.BaseUrl,
		Localities:      cfg.Menu.Localities,
		DefaultLocality: cfg.Menu.DefaultLocality,
	})
	ingestor := harvester.NewIngestor(
		directory,
		menus,
		harvester.NewStore(out),
		harvester.Options{},
	)

	t1 := time.Now()
	summary, err := ingestor.Run(ctx, cfg.Location, cfg.TotalLimit)
	if err != nil {
		serviceutil.Fatal("collection failed", err)
	}
	t2 := time.Now()

	slog.Info(
		"done",
		"seconds", t2.Sub(t1).Seconds(),
		"checked", summary.Checked,
		"processed", summary.Processed,
		"skipped", summary.Skipped,
	)
}
