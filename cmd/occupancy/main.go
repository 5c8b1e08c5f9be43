// Command occupancy checks a camera frame against a lot's saved slots and
// writes an annotated copy of the frame.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/disintegration/imaging"

	"slot-editor/internal/app"
	"slot-editor/internal/config"
	refimage "slot-editor/internal/image"
	"slot-editor/internal/occupancy"
	"slot-editor/internal/persist"
	"slot-editor/internal/slots"
)

func main() {
	imagePath := flag.String("image", "", "camera frame to check")
	slotsPath := flag.String("slots", "", "JSON file of slots (labeled or bare polygons)")
	lotID := flag.String("lot", "", "fetch the lot's slots from the server instead of -slots")
	configPath := flag.String("config", "", "path to config file")
	threshold := flag.Int("threshold", 0, "edge-pixel count above which a slot is occupied (0 uses config)")
	booked := flag.String("booked", "", "comma-separated slot labels that are reserved")
	outPath := flag.String("out", "annotated.png", "where to write the annotated frame (empty to skip)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg := config.DefaultConfig()
	var cfgErr error
	if *configPath != "" {
		cfg, cfgErr = config.Load(*configPath)
	}
	logger := app.NewLogger(*debug || cfg.Debug, nil)
	if cfgErr != nil {
		logger.Warn("config unreadable, using defaults", "path", *configPath, slog.Any("err", cfgErr))
	}

	if *imagePath == "" || (*slotsPath == "" && *lotID == "") {
		fmt.Fprintln(os.Stderr, "usage: occupancy -image frame.jpg (-slots slots.json | -lot ID) [-out annotated.png]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	frame, err := refimage.Load(*imagePath)
	if err != nil {
		logger.Error("load frame", slog.Any("err", err))
		os.Exit(1)
	}

	labeled, err := loadSlots(cfg, logger, *slotsPath, *lotID)
	if err != nil {
		logger.Error("load slots", slog.Any("err", err))
		os.Exit(1)
	}

	t := *threshold
	if t <= 0 {
		t = cfg.OccupancyThreshold
	}
	checker := occupancy.NewChecker(t, logger)
	if p, err := occupancy.PaletteFromConfig(cfg); err != nil {
		logger.Warn("bad occupancy colors, using defaults", slog.Any("err", err))
	} else {
		checker.Palette = p
	}

	annotated, statuses, err := checker.Annotate(frame.Image, labeled, parseBooked(*booked))
	if err != nil {
		logger.Error("check frame", slog.Any("err", err))
		os.Exit(1)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLOT\tSTATE\tEDGES")
	for _, s := range statuses {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", s.Label, s.State, s.Count)
	}
	tw.Flush()

	if *outPath != "" {
		if err := imaging.Save(annotated, *outPath); err != nil {
			logger.Error("write annotated frame", "path", *outPath, slog.Any("err", err))
			os.Exit(1)
		}
		logger.Info("annotated frame written", "path", *outPath)
	}
}

// loadSlots reads slots from a file, or from the server when lot is set.
func loadSlots(cfg *config.Config, logger *slog.Logger, path, lot string) ([]slots.Labeled, error) {
	if lot != "" {
		client := persist.NewClient(persist.Endpoints{Slots: cfg.SlotsURL}, cfg.Timeout(), logger)
		polys, err := client.LoadSlots(context.Background(), lot)
		if err != nil {
			return nil, err
		}
		return slots.LabelAll(polys), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var labeled []slots.Labeled
	if err := json.Unmarshal(data, &labeled); err == nil && len(labeled) > 0 && labeled[0].Points != nil {
		return labeled, nil
	}
	return slots.LabelAll(slots.ParseInitial(data)), nil
}

func parseBooked(s string) map[string]bool {
	booked := make(map[string]bool)
	for _, label := range strings.Split(s, ",") {
		if label = strings.TrimSpace(label); label != "" {
			booked[label] = true
		}
	}
	return booked
}
