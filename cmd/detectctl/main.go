// Package main is a command line front end for the detection pipeline.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"

	"detectboard/internal/config"
	"detectboard/internal/logger"
	"detectboard/internal/model"
	"detectboard/internal/presenter"
	"detectboard/internal/service"
	"detectboard/internal/service/ai"
	"detectboard/internal/service/analysis"
)

const (
	// Flags.
	flagImage      = "image"
	flagConfidence = "confidence"
	flagIoU        = "iou"
	flagAgnostic   = "agnostic"
	flagMultiLabel = "multi-label"
	flagMaxDet     = "max-det"
	flagOut        = "out"
	flagChart      = "chart"
	flagPrompt     = "prompt"
	flagMime       = "mime"
)

func main() {
	cfg := config.Load()
	defaults := cfg.DetectionDefaults()

	app := &cli.App{
		Name:  "detectctl",
		Usage: "run object detection and image analysis from the command line",
		Commands: []*cli.Command{
			{
				Name:      "detect",
				Usage:     "detect objects in an image and print the per-class summary",
				UsageText: "detectctl detect --image FILE [options]",
				Flags: []cli.Flag{
					&cli.PathFlag{Name: flagImage, Aliases: []string{"i"}, Required: true, Usage: "image `FILE` to analyse"},
					&cli.Float64Flag{Name: flagConfidence, Value: defaults.Confidence, Usage: "confidence threshold"},
					&cli.Float64Flag{Name: flagIoU, Value: defaults.IoU, Usage: "IoU threshold for non-maximum suppression"},
					&cli.BoolFlag{Name: flagAgnostic, Value: defaults.Agnostic, Usage: "class-agnostic NMS"},
					&cli.BoolFlag{Name: flagMultiLabel, Value: defaults.MultiLabel, Usage: "allow several labels per box"},
					&cli.IntFlag{Name: flagMaxDet, Value: defaults.MaxDetections, Usage: "maximum number of detections"},
					&cli.PathFlag{Name: flagOut, Aliases: []string{"o"}, Usage: "write the annotated JPEG to `FILE`"},
					&cli.PathFlag{Name: flagChart, Usage: "write the bar chart HTML to `FILE`"},
				},
				Action: func(c *cli.Context) error {
					return detectAction(c, cfg)
				},
			},
			{
				Name:      "analyze",
				Usage:     "stream a description of an image from the analysis service",
				UsageText: "detectctl analyze --image FILE [--prompt TEXT]",
				Flags: []cli.Flag{
					&cli.PathFlag{Name: flagImage, Aliases: []string{"i"}, Required: true, Usage: "image `FILE` to describe"},
					&cli.StringFlag{Name: flagPrompt, Aliases: []string{"p"}, Usage: "prompt sent with the image"},
					&cli.StringFlag{Name: flagMime, Usage: "image mime type, detected when empty"},
				},
				Action: func(c *cli.Context) error {
					return analyzeAction(c, cfg)
				},
			},
			{
				Name:  "labels",
				Usage: "print the label table of the configured model",
				Action: func(c *cli.Context) error {
					return labelsAction(c, cfg)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(cfg.LogDirectory, io.Discard, os.Stderr)
}

func detectAction(c *cli.Context, cfg *config.Config) error {
	image, err := os.ReadFile(c.Path(flagImage))
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	params := model.DetectionParams{
		Confidence:    c.Float64(flagConfidence),
		IoU:           c.Float64(flagIoU),
		Agnostic:      c.Bool(flagAgnostic),
		MultiLabel:    c.Bool(flagMultiLabel),
		MaxDetections: c.Int(flagMaxDet),
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	labels, err := ai.LoadLabels(cfg)
	if err != nil {
		return err
	}
	detector, err := ai.NewDetectorService(cfg, labels, log)
	if err != nil {
		return err
	}

	manager := service.NewManager(service.Dependencies{
		Detectors: []service.Detector{detector},
		Labels:    labels,
	}, cfg, log)
	defer manager.Stop()

	result, err := manager.Detect(c.Context, service.RunRequest{Image: image, Source: "cli", Params: params})
	if err != nil {
		return err
	}
	if result.Skipped {
		return fmt.Errorf("image %s is empty", c.Path(flagImage))
	}

	out := c.App.Writer
	if err := presenter.RenderTable(out, result.Summaries); err != nil {
		return err
	}
	if stats := presenter.Stats(result.Batch.Detections); stats.Detections > 0 {
		fmt.Fprintf(out, "confidence mean %.2f, min %.2f, max %.2f\n", stats.Mean, stats.Min, stats.Max)
	}

	if path := c.Path(flagOut); path != "" {
		if err := os.WriteFile(path, result.Batch.Annotated, 0644); err != nil {
			return fmt.Errorf("failed to write annotated image: %w", err)
		}
	}
	if path := c.Path(flagChart); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create chart file: %w", err)
		}
		defer f.Close()
		if err := presenter.RenderBarChart(f, "Detections", result.Summaries); err != nil {
			return err
		}
	}
	return nil
}

func analyzeAction(c *cli.Context, cfg *config.Config) error {
	image, err := os.ReadFile(c.Path(flagImage))
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	client, err := analysis.NewClient(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	chunks, err := client.Analyze(ctx, image, c.String(flagMime), c.String(flagPrompt))
	if err != nil {
		return err
	}

	out := c.App.Writer
	for chunk := range chunks {
		if chunk.Err != nil {
			fmt.Fprintln(out)
			return chunk.Err
		}
		fmt.Fprint(out, chunk.Text)
	}
	fmt.Fprintln(out)
	return ctxErr(ctx)
}

func ctxErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("analysis interrupted: %w", err)
	}
	return nil
}

func labelsAction(c *cli.Context, cfg *config.Config) error {
	labels, err := ai.LoadLabels(cfg)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Label"})
	for id := 0; id <= maxClassID(labels); id++ {
		if name, ok := labels.Lookup(id); ok {
			t.AppendRow(table.Row{id, name})
		}
	}
	fmt.Fprintln(c.App.Writer, t.Render())
	return nil
}

func maxClassID(labels model.LabelTable) int {
	highest := -1
	for id := range labels {
		if id > highest {
			highest = id
		}
	}
	return highest
}
