package archive_test

import (
	"context"
	"fmt"

	"github.com/compmonks/instArchiver/pkg/archive"
	"github.com/compmonks/instArchiver/pkg/config"
	"github.com/compmonks/instArchiver/pkg/download"
	"github.com/compmonks/instArchiver/pkg/graph"
	"github.com/compmonks/instArchiver/pkg/logger"
	"github.com/compmonks/instArchiver/pkg/state"
)

func ExampleWalker_Run() {
	// Configuration (credentials normally come from the environment
	// or the credential store)
	cfg := config.DefaultConfig()
	cfg.API.UserID = "17841400000000000"
	cfg.API.AccessToken = "YOUR_ACCESS_TOKEN"
	cfg.Archive.BaseDirectory = "InstagramArchive"

	log := logger.NewNopLogger()

	// Wire the pipeline
	client := graph.NewClient(cfg, log)
	store := state.NewStore(cfg.StatePath(), log)
	downloader := download.NewDownloader(cfg, log)
	archiver := archive.NewArchiver(cfg, client, downloader, log)
	walker := archive.NewWalker(cfg, client, archiver, store, log)

	// Incremental run: stops at the newest item of the previous run
	summary, err := walker.Run(context.Background(), archive.Options{SinceLast: true})
	if err != nil {
		fmt.Printf("archive run failed: %v\n", err)
		return
	}

	fmt.Printf("archived %d new items across %d pages\n", summary.Archived, summary.Pages)
}
