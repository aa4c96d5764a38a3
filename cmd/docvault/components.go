package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hyperjump/docvault/internal/config"
	"github.com/hyperjump/docvault/internal/extract"
	"github.com/hyperjump/docvault/internal/keyword"
	"github.com/hyperjump/docvault/internal/search"
	"github.com/hyperjump/docvault/internal/storage"
	"github.com/hyperjump/docvault/internal/upload"
)

const defaultConfigPath = "/usr/local/etc/docvault/config.yaml"

// loadConfig loads config from path. When path is the default, a config.yaml in the
// current directory takes precedence so that running from a project directory uses it.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				cfg, err := config.Load(fallback)
				if err != nil {
					return nil, "", err
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// Components holds initialized services.
type Components struct {
	Storage      *storage.SQLiteStorage
	Blobs        *storage.FileStore
	KeywordIndex keyword.KeywordIndex
	Dispatcher   *extract.Dispatcher
	Uploads      *upload.Coordinator
	Engine       *search.Engine
}

// Close releases the database and the index.
func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c := &Components{Storage: store}

	c.Blobs, err = storage.NewFileStore(cfg.Storage.UploadDir)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize upload directory: %w", err)
	}

	index, err := keyword.NewBleveIndex(cfg.Storage.IndexPath)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	c.KeywordIndex = index

	ocr := extract.NewImageStrategy(
		extract.NewTesseractEngine(cfg.OCR.TesseractPath, cfg.OCR.Timeout()),
		cfg.OCR.Language,
		cfg.OCR.FallbackLanguage,
	)
	c.Dispatcher, err = extract.NewDispatcher(extract.DefaultStrategies(ocr))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize extraction: %w", err)
	}

	c.Uploads = upload.NewCoordinator(c.Blobs, store, c.Dispatcher,
		upload.WithLogger(logger),
		upload.WithIndex(c.KeywordIndex),
		upload.WithPageCounter(extract.CountPDFPages),
		upload.WithAllowedExtensions(cfg.Upload.AllowedExtensions),
	)
	c.Engine = search.NewEngine(store, c.KeywordIndex, logger)
	return c, nil
}
