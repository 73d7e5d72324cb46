package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"

	"hurracloud.io/jadwal/internal/backend"
	"hurracloud.io/jadwal/internal/indexer"
	"hurracloud.io/jadwal/internal/server"
	"hurracloud.io/jadwal/internal/watcher"
)

type Options struct {
	Verbose        bool   `short:"v" long:"verbose" description:"Enable verbose logging"`
	LogFormat      string `long:"log-format" env:"LOG_FORMAT" description:"Log output format" default:"text" choice:"text" choice:"json"`
	IndexDir       string `short:"i" long:"index-dir" env:"INDEX_DIR_PATH" description:"Where to store the index" default:"/tmp/__jadwal_data"`
	MetadataDir    string `short:"d" long:"metadata-dir" env:"METADATA_DIR" description:"Where to store the ingestion queue (defaults to a directory inside the index dir)"`
	Parallelism    int    `short:"p" long:"parallelism" env:"PARALLELISM" description:"How many files are ingested in parallel" default:"2"`
	MaxFileSizeMB  int    `long:"max-file-size" env:"MAX_FILE_SIZE_MB" description:"Files of this size (MB) or larger are not ingested, 0 for no limit" default:"100"`
	QueryCacheSize int    `long:"query-cache-size" env:"QUERY_CACHE_SIZE" description:"How many compiled queries to cache" default:"256"`
}

type ServeCommand struct {
	Listen   string   `short:"L" long:"listen" env:"SERVICE_HOST" description:"Address to bind servers to" default:"0.0.0.0"`
	Port     int      `short:"o" long:"port" env:"SERVICE_PORT" description:"HTTP port" default:"8080"`
	GRPCPort int      `short:"g" long:"grpc-port" env:"GRPC_PORT" description:"gRPC port" default:"10001"`
	Watch    []string `short:"w" long:"watch" description:"Directory to watch for changed files (repeatable)"`
	Exclude  []string `short:"x" long:"exclude" description:"Glob of files never ingested by reindex or watch (repeatable)"`
}

type ClientOptions struct {
	Server  string        `short:"s" long:"server" env:"JADWAL_SERVER" description:"gRPC address of the jadwal server" default:"127.0.0.1:10001"`
	Timeout time.Duration `long:"timeout" description:"Request timeout" default:"30s"`
	Output  string        `long:"output" description:"Output format" default:"json" choice:"json" choice:"yaml"`
}

type IngestCommand struct {
	ClientOptions
	Args struct {
		Files []string `positional-arg-name:"FILE" required:"1"`
	} `positional-args:"yes" required:"yes"`
}

type ReindexCommand struct {
	ClientOptions
	Args struct {
		Dir string `positional-arg-name:"DIR"`
	} `positional-args:"yes" required:"yes"`
}

type SearchCommand struct {
	ClientOptions
	QueryType string `short:"t" long:"query-type" description:"How the query is matched" default:"termQuery" choice:"termQuery" choice:"regexQuery" choice:"fuzzySearch" choice:"queryParser"`
	Page      int    `long:"page" description:"Zero based result page" default:"0"`
	PerPage   int    `short:"n" long:"per-page" description:"Results per page" default:"10"`
	Args      struct {
		Query string `positional-arg-name:"QUERY"`
	} `positional-args:"yes" required:"yes"`
}

type StatusCommand struct {
	ClientOptions
	Args struct {
		File string `positional-arg-name:"FILE"`
	} `positional-args:"yes"`
}

var options Options

func main() {
	parser := flags.NewParser(&options, flags.Default)
	parser.CommandHandler = func(command flags.Commander, args []string) error {
		setupLogging(&options)
		return command.Execute(args)
	}

	parser.AddCommand("serve", "Run the jadwal server", "Serve ingestion and search over HTTP and gRPC", &ServeCommand{})
	parser.AddCommand("ingest", "Queue files for ingestion", "Ask a running server to ingest files", &IngestCommand{})
	parser.AddCommand("reindex", "Rebuild the index from a directory", "Ask a running server to wipe the index and ingest a directory", &ReindexCommand{})
	parser.AddCommand("search", "Search the index", "Search a running server", &SearchCommand{})
	parser.AddCommand("status", "Show ingestion status", "Show the ingestion status of one or every dispatched file", &StatusCommand{})

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

func setupLogging(opts *Options) {
	if opts.Verbose {
		log.SetLevel(log.DebugLevel)
	}
	if opts.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}
}

func (c *ServeCommand) Execute(args []string) error {
	metadataDir := options.MetadataDir
	if metadataDir == "" {
		metadataDir = filepath.Join(options.IndexDir, "metadata")
	}

	searchBackend, err := backend.NewBleve(filepath.Join(options.IndexDir, "cells.bleve"), options.QueryCacheSize)
	if err != nil {
		return fmt.Errorf("Error opening search backend: %v", err)
	}
	defer searchBackend.Close()

	idx, err := indexer.New(searchBackend, &indexer.Settings{
		MetadataDir:     metadataDir,
		Parallelism:     options.Parallelism,
		MaxFileSizeMB:   options.MaxFileSizeMB,
		ExcludePatterns: c.Exclude,
	})
	if err != nil {
		return fmt.Errorf("Failed creating indexer: %v", err)
	}
	defer idx.Close()

	var w *watcher.Watcher
	if len(c.Watch) > 0 {
		w = watcher.New(idx, idx.Excludes())
		for _, dir := range c.Watch {
			if err := w.Add(dir); err != nil {
				return err
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.NewJadwalServer(idx, w, c.Listen, c.Port, c.GRPCPort).Start(ctx)
}

func (o *ClientOptions) connect() (*server.Client, context.Context, context.CancelFunc, error) {
	client, err := server.NewClient(o.Server)
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), o.Timeout)
	return client, ctx, cancel, nil
}

func (c *IngestCommand) Execute(args []string) error {
	client, ctx, cancel, err := c.connect()
	if err != nil {
		return err
	}
	defer client.Close()
	defer cancel()

	var results []indexer.DispatchResult
	for _, file := range c.Args.Files {
		abs, err := filepath.Abs(file)
		if err != nil {
			return err
		}
		result, err := client.Ingest(ctx, abs)
		if err != nil {
			result = indexer.DispatchResult{FilePath: abs, Outcome: indexer.OutcomeFailed, Error: err.Error()}
		}
		results = append(results, result)
	}
	return render(os.Stdout, c.Output, results)
}

func (c *ReindexCommand) Execute(args []string) error {
	client, ctx, cancel, err := c.connect()
	if err != nil {
		return err
	}
	defer client.Close()
	defer cancel()

	dir, err := filepath.Abs(c.Args.Dir)
	if err != nil {
		return err
	}
	results, err := client.Reindex(ctx, dir)
	if err != nil {
		return err
	}
	return render(os.Stdout, c.Output, results)
}

func (c *SearchCommand) Execute(args []string) error {
	queryType, err := backend.ParseQueryType(c.QueryType)
	if err != nil {
		return err
	}

	client, ctx, cancel, err := c.connect()
	if err != nil {
		return err
	}
	defer client.Close()
	defer cancel()

	docs, err := client.Search(ctx, c.Args.Query, queryType, c.Page, c.PerPage)
	if err != nil {
		return err
	}
	return render(os.Stdout, c.Output, docs)
}

func (c *StatusCommand) Execute(args []string) error {
	client, ctx, cancel, err := c.connect()
	if err != nil {
		return err
	}
	defer client.Close()
	defer cancel()

	file := c.Args.File
	if file != "" {
		if file, err = filepath.Abs(file); err != nil {
			return err
		}
	}
	files, err := client.Status(ctx, file)
	if err != nil {
		return err
	}
	return render(os.Stdout, c.Output, files)
}
