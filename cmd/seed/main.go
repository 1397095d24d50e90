package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"passdist/entity"
	"passdist/internal/config"
	"passdist/internal/store"
	"passdist/internal/store/github"
	"passdist/lib/logger"
	"passdist/lib/sl"
)

func main() {
	csvPath := flag.String("csv", "passwords.csv", "CSV file with one code per row in the first column")
	outPath := flag.String("out", "passwords-data.json", "where to write the JSON document; empty to skip")
	push := flag.Bool("push", false, "commit the document to the configured GitHub repository")
	force := flag.Bool("force", false, "overwrite an existing document when pushing")
	configPath := flag.String("conf", "config.yml", "path to config file, used with -push")
	flag.Parse()

	log := logger.SetupLogger("local", "")

	file, err := os.Open(*csvPath)
	if err != nil {
		log.Error("open csv", sl.Err(err))
		os.Exit(1)
	}
	codes, err := readCodes(file)
	_ = file.Close()
	if err != nil {
		log.Error("read csv", sl.Err(err))
		os.Exit(1)
	}
	if len(codes) == 0 {
		log.Error("no codes found", slog.String("file", *csvPath))
		os.Exit(1)
	}

	set := entity.NewCodeSet(codes, time.Now())
	data, err := store.Encode(set)
	if err != nil {
		log.Error("encode document", sl.Err(err))
		os.Exit(1)
	}

	if *outPath != "" {
		if err = os.WriteFile(*outPath, data, 0o644); err != nil {
			log.Error("write document", sl.Err(err))
			os.Exit(1)
		}
	}

	if *push {
		conf := config.MustLoad(*configPath)
		client := github.NewClient(github.Config{
			APIURL:         conf.GitHub.APIURL,
			Owner:          conf.GitHub.Owner,
			Repo:           conf.GitHub.Repo,
			Branch:         conf.GitHub.Branch,
			Token:          conf.GitHub.Token,
			CommitterName:  conf.GitHub.CommitterName,
			CommitterEmail: conf.GitHub.CommitterEmail,
			Timeout:        conf.GitHub.TimeoutDuration(),
		}, log)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		version, err := publish(ctx, client, conf.GitHub.Path, set, *force, log)
		cancel()
		if errors.Is(err, store.ErrVersionConflict) {
			log.Error("document already exists; use -force to overwrite", slog.String("path", conf.GitHub.Path))
			os.Exit(1)
		}
		if err != nil {
			log.Error("push document", sl.Err(err))
			os.Exit(1)
		}
		log.Info("document pushed", slog.String("path", conf.GitHub.Path), slog.String("version", version))
	}

	printSummary(os.Stdout, set, len(data), *outPath)
}
