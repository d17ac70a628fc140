package main

import (
	"fmt"
	"log"
	"os"

	"github.com/ironsheep/image-pyramid-service/internal/compress"
	"github.com/ironsheep/image-pyramid-service/internal/config"
	"github.com/ironsheep/image-pyramid-service/internal/pyramid"
	"github.com/ironsheep/image-pyramid-service/internal/server"
	"github.com/ironsheep/image-pyramid-service/internal/service"
	"github.com/ironsheep/image-pyramid-service/internal/storage"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := "config.yaml"
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("pyramid-service %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("pyramid-service - image pyramid and tiling HTTP service")
			fmt.Println()
			fmt.Println("Usage: pyramid-service [config.yaml]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  PYRAMID_LOG_LEVEL=debug    Enable debug logging")
			fmt.Println()
			fmt.Println("Uploaded images get a multi-level pyramid derived and tiled")
			fmt.Println("on the spot; tiles are served back over HTTP by coordinate.")
			return
		default:
			configPath = os.Args[1]
		}
	}

	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	logLevel := os.Getenv("PYRAMID_LOG_LEVEL")
	if logLevel == "debug" {
		log.Printf("Pyramid Service v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	var store storage.Store
	switch cfg.Storage.Engine {
	case "badger":
		store, err = storage.OpenBadger(cfg.Storage.Path)
		if err != nil {
			log.Fatalf("Opening badger store: %v", err)
		}
	default:
		store = storage.NewMemoryStore()
	}
	defer store.Close()

	builder, err := pyramid.NewBuilder(pyramid.Config{
		TileSize:     cfg.Pyramid.TileSize,
		MinLevelSize: cfg.Pyramid.MinLevelSize,
		Kernel:       pyramid.Gaussian5x5(),
		Border:       pyramid.BorderReplicate,
	})
	if err != nil {
		log.Fatalf("Pyramid config: %v", err)
	}

	codec, err := compress.ParseCodec(cfg.Compression.Codec)
	if err != nil {
		log.Fatalf("Compression config: %v", err)
	}

	srv := server.New(
		service.NewImages(store, builder, codec),
		service.NewMatrices(store),
	)
	if err := srv.ListenAndServe(cfg.Server.Addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
