// Command scenegen generates labelled plausible/implausible image datasets.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"scenegen/internal/config"
	"scenegen/internal/dataset"
	"scenegen/internal/generate"
	"scenegen/internal/version"
)

func main() {
	kindName := flag.String("type", "", "Generator: bboxreplace, segreplace, compose, classify, outlines")
	cfgPath := flag.String("config", "", "TOML config file")
	dataDir := flag.String("data", "", "Dataset directory (overrides config)")
	outDir := flag.String("out", "", "Output directory (overrides config)")
	count := flag.Int("count", 0, "Images to generate per category (overrides config)")
	compare := flag.Bool("compare", false, "Also produce implausible samples and comparison pairs")
	background := flag.String("background", "", "Region clearing: none, black, inpaint")
	seed := flag.Int64("seed", 0, "Random seed (overrides config)")
	workers := flag.Int("workers", 0, "Parallel jobs (overrides config)")
	categories := flag.String("categories", "", "Comma-separated category ids")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("scenegen %s\n", version.String())
		return
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	kind, err := generate.ParseKind(*kindName)
	if err != nil {
		fmt.Println("Usage: scenegen -type bboxreplace|segreplace|compose|classify|outlines [-config file] [-data dir] [-count n] [-compare] [-background none|black|inpaint]")
		os.Exit(1)
	}

	if err := config.LoadEnv(".env"); err != nil {
		log.Fatalf("Failed to load environment: %v", err)
	}
	cfg := config.Default()
	if *cfgPath != "" {
		if cfg, err = config.Load(*cfgPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		log.Fatalf("Failed to apply environment: %v", err)
	}

	// Only flags given on the command line override the file.
	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data":
			cfg.Data.Dir = *dataDir
		case "out":
			cfg.Output.Dir = *outDir
		case "count":
			cfg.Generate.Count = *count
		case "compare":
			cfg.Generate.Compare = *compare
		case "background":
			cfg.Generate.Background = *background
		case "seed":
			cfg.Generate.Seed = *seed
		case "workers":
			cfg.Generate.Workers = *workers
		case "categories":
			ids, err := parseIDs(*categories)
			if err != nil {
				flagErr = err
			}
			cfg.Data.CategoryIDs = ids
		}
	})
	if flagErr != nil {
		log.Fatalf("Invalid -categories: %v", flagErr)
	}

	opts, err := generate.OptionsFromConfig(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	g, err := newGenerator(kind, cfg, opts)
	if err != nil {
		log.Printf("Failed to open dataset: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := generate.Run(ctx, kind, g, opts, version.Version, cfg)
	fmt.Printf("\n%s: %s\n", kind, stats)
	if err != nil {
		if errors.Is(err, generate.ErrSystemic) {
			fmt.Fprintf(os.Stderr, "Run aborted: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "Run stopped: %v\n", err)
		}
		os.Exit(1)
	}
}

func newGenerator(kind generate.Kind, cfg *config.Config, opts generate.Options) (generate.Generator, error) {
	if kind == generate.KindCompose {
		scenes, err := dataset.LoadRenderSet(filepath.Join(cfg.Data.Dir, cfg.Data.Scenes))
		if err != nil {
			return nil, err
		}
		return generate.NewCompose(scenes, opts, cfg.Inpainter()), nil
	}

	coco, err := dataset.LoadCOCO(
		filepath.Join(cfg.Data.Dir, cfg.Data.Annotations),
		filepath.Join(cfg.Data.Dir, cfg.Data.Images),
	)
	if err != nil {
		return nil, err
	}
	log.Printf("Loaded %d categories from %s", len(coco.Categories()), cfg.Data.Annotations)

	switch kind {
	case generate.KindBBoxReplace:
		return generate.NewReplace(generate.RegionBoxes, coco, opts, cfg.Inpainter()), nil
	case generate.KindSegReplace:
		return generate.NewReplace(generate.RegionMasks, coco, opts, cfg.Inpainter()), nil
	case generate.KindClassify:
		return generate.NewClassify(coco, opts), nil
	case generate.KindOutlines:
		return generate.NewOutlines(coco, opts), nil
	}
	return nil, fmt.Errorf("unknown generator %q", kind)
}

func parseIDs(s string) ([]int, error) {
	var ids []int
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
