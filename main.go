// Package main provides the entry point for the Slot Editor application.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"slot-editor/internal/app"
	"slot-editor/internal/config"
	"slot-editor/internal/version"
	"slot-editor/ui/mainwindow"
	"slot-editor/ui/prefs"

	fyneapp "fyne.io/fyne/v2/app"
)

const appID = "com.slot-editor.app"

func main() {
	configPath := flag.String("config", filepath.Join(prefs.Dir(), "config.json"), "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	lotID := flag.String("lot", "", "lot ID to edit")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] [project%s]\n", filepath.Base(os.Args[0]), ".slotproj")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("slot-editor %s (%s, %s)\n", version.Version, version.GitCommit, version.BuildTime)
		return
	}

	cfg, err := config.Load(*configPath)
	logger := app.NewLogger(*debug || cfg.Debug, nil)
	if err != nil {
		logger.Warn("config unreadable, using defaults", "path", *configPath, slog.Any("err", err))
	}
	logger.Info("starting slot editor", "version", version.Version, "commit", version.GitCommit)

	appState, err := app.NewState(cfg, logger)
	if err != nil {
		logger.Error("init state", slog.Any("err", err))
		os.Exit(1)
	}
	appPrefs := prefs.Load()

	fyneApp := fyneapp.NewWithID(appID)
	fyneApp.Settings().SetTheme(&app.SlotEditorTheme{})

	win := mainwindow.New(fyneApp, appState, appPrefs, logger)

	// Handle command line arguments
	if flag.NArg() > 0 {
		projectPath := flag.Arg(0)
		if err := win.OpenProject(projectPath); err != nil {
			logger.Error("load project", "path", projectPath, slog.Any("err", err))
		}
	} else {
		win.RestoreLast()
	}

	if *lotID != "" {
		win.SetLot(*lotID)
	}

	win.ShowAndRun()
}
