// Package mainwindow provides the main application window.
package mainwindow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"slot-editor/internal/app"
	"slot-editor/internal/editor"
	"slot-editor/internal/image"
	"slot-editor/internal/persist"
	"slot-editor/internal/project"
	"slot-editor/internal/version"
	"slot-editor/pkg/geometry"
	"slot-editor/ui/canvas"
	"slot-editor/ui/prefs"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

const (
	prefKeyLastDir     = "lastDirectory"
	prefKeyLastProject = "lastProject"
	prefKeyLastImage   = "lastImage"
	prefKeyWinWidth    = "windowWidth"
	prefKeyWinHeight   = "windowHeight"

	watchInterval = 2 * time.Second
)

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app     fyne.App
	state   *app.State
	prefs   *prefs.Prefs
	logger  *slog.Logger
	canvas  *canvas.SlotCanvas
	watcher *app.ReferenceWatcher

	modeSelect *widget.RadioGroup
	helpLabel  *widget.Label
	zoomLabel  *widget.Label
	lotEntry   *widget.Entry
	saveBtn    *widget.Button
	statusBar  *widget.Label
	cursorPos  *widget.Label
}

// New creates a new main window.
func New(fyneApp fyne.App, state *app.State, appPrefs *prefs.Prefs, logger *slog.Logger) *MainWindow {
	win := fyneApp.NewWindow("Slot Editor")

	mw := &MainWindow{
		Window:  win,
		app:     fyneApp,
		state:   state,
		prefs:   appPrefs,
		logger:  logger,
		watcher: app.NewReferenceWatcher(watchInterval),
	}
	// Background saves, loads and file watches report back on the UI goroutine.
	state.SetDispatcher(fyne.Do)

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()
	mw.setupWatcher()

	w := float32(appPrefs.FloatWithFallback(prefKeyWinWidth, 1280))
	h := float32(appPrefs.FloatWithFallback(prefKeyWinHeight, 860))
	mw.Resize(fyne.NewSize(w, h))
	mw.SetOnClosed(func() {
		mw.watcher.Stop()
		mw.SavePreferences()
	})

	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.canvas = canvas.NewSlotCanvas(mw.state.Editor)
	mw.canvas.OnHover(func(p geometry.Point2D) {
		mw.cursorPos.SetText(fmt.Sprintf("%.0f, %.0f", p.X, p.Y))
	})

	mw.statusBar = widget.NewLabel("Ready")
	mw.cursorPos = widget.NewLabel("")
	mw.helpLabel = widget.NewLabel(mw.state.Editor.HelpText())
	mw.helpLabel.TextStyle = fyne.TextStyle{Italic: true}

	toolbar := mw.createToolbar()

	canvasArea := container.NewBorder(
		container.NewVBox(toolbar, mw.helpLabel), // top
		nil,                   // bottom
		nil,                   // left
		nil,                   // right
		mw.canvas.Container(), // center
	)

	content := container.NewBorder(
		nil, // top
		container.NewPadded(container.NewBorder(nil, nil, nil, mw.cursorPos, mw.statusBar)), // bottom
		nil,        // left
		nil,        // right
		canvasArea, // center
	)

	mw.SetContent(content)
}

// createToolbar creates the mode, zoom and save controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	var names []string
	for _, m := range editor.Modes() {
		names = append(names, modeLabel(m))
	}
	mw.modeSelect = widget.NewRadioGroup(names, func(selected string) {
		m, err := editor.ParseMode(selected)
		if err != nil {
			return
		}
		mw.state.Editor.SetMode(m)
	})
	mw.modeSelect.Horizontal = true
	mw.modeSelect.Required = true
	mw.modeSelect.SetSelected(modeLabel(mw.state.Editor.Mode()))

	undoBtn := widget.NewButton("Undo", mw.onUndo)

	zoomOutBtn := widget.NewButton("-", mw.onZoomOut)
	zoomInBtn := widget.NewButton("+", mw.onZoomIn)
	mw.zoomLabel = widget.NewLabel(mw.state.Editor.Viewport().Percent())

	mw.lotEntry = widget.NewEntry()
	mw.lotEntry.SetPlaceHolder("Lot ID")
	mw.lotEntry.SetText(mw.state.LotID())
	mw.lotEntry.OnChanged = func(text string) {
		if strings.TrimSpace(text) != mw.state.LotID() {
			mw.state.SetLotID(text)
		}
	}
	lotBox := container.NewGridWrap(fyne.NewSize(120, mw.lotEntry.MinSize().Height), mw.lotEntry)

	mw.saveBtn = widget.NewButton("Save Slots", mw.onSaveSlots)
	mw.saveBtn.Importance = widget.HighImportance

	return container.NewHBox(
		mw.modeSelect,
		widget.NewSeparator(),
		undoBtn,
		widget.NewSeparator(),
		widget.NewLabel("Zoom:"),
		zoomOutBtn,
		mw.zoomLabel,
		zoomInBtn,
		widget.NewSeparator(),
		widget.NewLabel("Lot:"),
		lotBox,
		mw.saveBtn,
	)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	// File menu
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("New Project", mw.onNewProject),
		fyne.NewMenuItem("Open Project...", mw.onOpenProject),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Open Image...", mw.onOpenImage),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save Project", mw.onSaveProject),
		fyne.NewMenuItem("Save Project As...", mw.onSaveProjectAs),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Load Slots from Server", mw.onLoadFromServer),
		fyne.NewMenuItem("Save Slots to Server", mw.onSaveSlots),
	)

	// Edit menu
	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Undo", mw.onUndo),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Rectangle Mode", func() { mw.selectMode(editor.ModeRectangle) }),
		fyne.NewMenuItem("Polygon Mode", func() { mw.selectMode(editor.ModePolygon) }),
		fyne.NewMenuItem("Delete Mode", func() { mw.selectMode(editor.ModeDelete) }),
	)

	// View menu
	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", mw.onZoomIn),
		fyne.NewMenuItem("Zoom Out", mw.onZoomOut),
		fyne.NewMenuItem("Actual Size", mw.onActualSize),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Open Dashboard", mw.onOpenDashboard),
	)

	// Help menu
	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, viewMenu, helpMenu))
}

// setupEventHandlers registers for application events.
func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventProjectLoaded, func(data interface{}) {
		path, _ := data.(string)
		mw.lotEntry.SetText(mw.state.LotID())
		if path == "" {
			mw.SetTitle("Slot Editor - New Project")
			mw.canvas.SetReference(nil)
			mw.watcher.Watch(nil)
			return
		}
		mw.SetTitle("Slot Editor - " + filepath.Base(path))
		mw.updateStatus("Project loaded: " + path)
	})

	mw.state.On(app.EventProjectSaved, func(data interface{}) {
		if path, ok := data.(string); ok {
			mw.SetTitle("Slot Editor - " + filepath.Base(path))
			mw.updateStatus("Project saved: " + path)
		}
	})

	mw.state.On(app.EventImageLoaded, func(data interface{}) {
		ref, ok := data.(*image.Reference)
		if !ok {
			return
		}
		mw.canvas.SetReference(ref.Image)
		mw.watcher.Watch(ref)
		mw.updateStatus(fmt.Sprintf("Image loaded: %s (%dx%d)", filepath.Base(ref.Path), ref.Width(), ref.Height()))
	})

	mw.state.On(app.EventOverlayChanged, func(data interface{}) {
		mw.canvas.SetOverlay(mw.state.Overlay())
		mw.updateStatus(fmt.Sprintf("%d slots", len(mw.state.Editor.Slots())))
	})

	mw.state.On(app.EventModeChanged, func(data interface{}) {
		if m, ok := data.(editor.Mode); ok && mw.modeSelect.Selected != modeLabel(m) {
			mw.modeSelect.SetSelected(modeLabel(m))
		}
		mw.helpLabel.SetText(mw.state.Editor.HelpText())
	})

	mw.state.On(app.EventZoomChanged, func(data interface{}) {
		mw.zoomLabel.SetText(mw.state.Editor.Viewport().Percent())
		mw.canvas.UpdateZoom()
	})

	mw.state.On(app.EventModified, func(data interface{}) {
		modified, ok := data.(bool)
		if !ok {
			return
		}
		title := strings.TrimSuffix(mw.Title(), " *")
		if modified {
			title += " *"
		}
		mw.SetTitle(title)
	})
}

// setupWatcher reloads the reference image when it changes on disk.
func (mw *MainWindow) setupWatcher() {
	mw.watcher.OnChange(func(path string) {
		mw.logger.Info("reference image changed on disk", "path", path)
		fyne.Do(func() { mw.confirmReload(path) })
	})
	mw.watcher.Start()
}

func (mw *MainWindow) confirmReload(path string) {
	dialog.ShowConfirm("Image Changed",
		fmt.Sprintf("%s was updated.\nReload it?", filepath.Base(path)),
		func(reload bool) {
			if reload {
				mw.loadImage(path)
				return
			}
			// Keep watching the copy on screen so a later update asks again.
			if ref := mw.state.Reference; ref != nil {
				ref.ModTime = time.Now()
				mw.watcher.Watch(ref)
			}
		}, mw.Window)
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.prefs.String(prefKeyLastDir)
	if path == "" {
		return nil
	}
	uri := storage.NewFileURI(path)
	listable, err := storage.ListerForURI(uri)
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir saves the directory of the given file path.
func (mw *MainWindow) saveLastDir(filePath string) {
	mw.prefs.SetString(prefKeyLastDir, filepath.Dir(filePath))
}

// SavePreferences writes the window size and recent paths to disk.
func (mw *MainWindow) SavePreferences() {
	size := mw.Canvas().Size()
	if size.Width > 0 && size.Height > 0 {
		mw.prefs.SetFloat(prefKeyWinWidth, float64(size.Width))
		mw.prefs.SetFloat(prefKeyWinHeight, float64(size.Height))
	}
	if mw.state.HasProject() {
		mw.prefs.SetString(prefKeyLastProject, mw.state.ProjectPath)
	}
	if err := mw.prefs.Save(); err != nil {
		mw.logger.Warn("save preferences", slog.Any("err", err))
	}
}

// RestoreLast reopens the previous project, or failing that the previous
// image.
func (mw *MainWindow) RestoreLast() {
	if path := mw.prefs.String(prefKeyLastProject); path != "" {
		if err := mw.OpenProject(path); err == nil {
			return
		}
	}
	if path := mw.prefs.String(prefKeyLastImage); path != "" {
		mw.loadImage(path)
	}
}

// OpenProject loads the project at path and its reference image.
func (mw *MainWindow) OpenProject(path string) error {
	if err := mw.state.LoadProject(path); err != nil {
		mw.logger.Warn("open project", "path", path, slog.Any("err", err))
		return err
	}
	mw.saveLastDir(path)
	mw.prefs.SetString(prefKeyLastProject, path)
	if img := mw.state.ImagePath(); img != "" {
		mw.loadImage(img)
	}
	return nil
}

// SetLot selects the lot to edit without marking the project modified.
func (mw *MainWindow) SetLot(id string) {
	modified := mw.state.Modified
	mw.lotEntry.SetText(id)
	mw.state.SetModified(modified)
}

// availableSize is the area the reference image is fitted into.
func (mw *MainWindow) availableSize() geometry.Size {
	if s := mw.canvas.AvailableSize(); !s.Empty() {
		return s
	}
	s := mw.Canvas().Size()
	if s.Width > 0 && s.Height > 0 {
		return geometry.Size{Width: float64(s.Width), Height: float64(s.Height)}
	}
	return geometry.Size{
		Width:  mw.prefs.FloatWithFallback(prefKeyWinWidth, 1280),
		Height: mw.prefs.FloatWithFallback(prefKeyWinHeight, 860),
	}
}

func (mw *MainWindow) loadImage(path string) {
	ref, err := image.Load(path)
	if err != nil {
		mw.logger.Warn("load image", "path", path, slog.Any("err", err))
		dialog.ShowError(err, mw.Window)
		return
	}
	mw.prefs.SetString(prefKeyLastImage, path)
	mw.state.LoadReference(ref, mw.availableSize())
}

func (mw *MainWindow) selectMode(m editor.Mode) {
	mw.modeSelect.SetSelected(modeLabel(m))
}

// modeLabel capitalizes a mode name for display.
func modeLabel(m editor.Mode) string {
	s := m.String()
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Menu action handlers

func (mw *MainWindow) onNewProject() {
	mw.state.NewProject()
}

func (mw *MainWindow) onOpenProject() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		if err := mw.OpenProject(reader.URI().Path()); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{project.Extension}))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onOpenImage() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(path)
		mw.loadImage(path)
	}, mw.Window)

	fd.SetFilter(storage.NewExtensionFileFilter(image.SupportedFormats()))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onSaveProject() {
	if !mw.state.HasProject() {
		mw.onSaveProjectAs()
		return
	}
	if err := mw.state.SaveProject(mw.state.ProjectPath); err != nil {
		dialog.ShowError(err, mw.Window)
	}
}

func (mw *MainWindow) onSaveProjectAs() {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		if filepath.Ext(path) != project.Extension {
			path += project.Extension
		}
		mw.saveLastDir(path)
		if err := mw.state.SaveProject(path); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.prefs.SetString(prefKeyLastProject, path)
	}, mw.Window)
	name := "lot"
	if lot := mw.state.LotID(); lot != "" {
		name += "-" + lot
	}
	fd.SetFileName(name + project.Extension)
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

// onSaveSlots posts a snapshot of the slots in the background and reports
// the outcome. The editor stays usable while the request is in flight.
func (mw *MainWindow) onSaveSlots() {
	count := len(mw.state.Editor.Slots())
	mw.saveBtn.Disable()
	mw.updateStatus(fmt.Sprintf("Saving %d slots...", count))

	mw.state.SaveAsync(context.Background(), func(res persist.Result) {
		mw.saveBtn.Enable()
		mw.showSaveResult(res, count)
	})
}

func (mw *MainWindow) showSaveResult(res persist.Result, count int) {
	if !res.OK {
		mw.updateStatus("Save failed")
		if errors.Is(res.Err, app.ErrNoLot) {
			dialog.ShowError(errors.New("enter a lot ID before saving"), mw.Window)
			return
		}
		dialog.ShowError(fmt.Errorf("error saving: %s", res.Reason), mw.Window)
		return
	}

	mw.updateStatus(fmt.Sprintf("Saved %d slots", count))
	info := dialog.NewInformation("Saved!", fmt.Sprintf("%d slots saved for lot %s.", count, mw.state.LotID()), mw.Window)
	info.SetOnClosed(func() { mw.openURL(res.Redirect) })
	info.Show()
}

func (mw *MainWindow) onLoadFromServer() {
	load := func() {
		mw.updateStatus("Loading slots...")
		mw.state.LoadFromServer(context.Background(), func(n int, err error) {
			if err != nil {
				mw.updateStatus("Load failed")
				dialog.ShowError(err, mw.Window)
				return
			}
			mw.updateStatus(fmt.Sprintf("Loaded %d slots for lot %s", n, mw.state.LotID()))
		})
	}

	if mw.state.Modified && len(mw.state.Editor.Slots()) > 0 {
		dialog.ShowConfirm("Replace Slots",
			"Replace the slots on screen with the saved ones?",
			func(ok bool) {
				if ok {
					load()
				}
			}, mw.Window)
		return
	}
	load()
}

func (mw *MainWindow) onOpenDashboard() {
	mw.openURL(mw.state.Config().DashboardURL)
}

func (mw *MainWindow) openURL(raw string) {
	if raw == "" {
		return
	}
	u, err := url.Parse(raw)
	if err != nil {
		mw.logger.Warn("bad dashboard url", "url", raw, slog.Any("err", err))
		return
	}
	if err := mw.app.OpenURL(u); err != nil {
		mw.logger.Warn("open url", "url", raw, slog.Any("err", err))
	}
}

func (mw *MainWindow) onUndo() {
	if !mw.state.Editor.Undo() {
		mw.updateStatus("Nothing to undo")
	}
}

func (mw *MainWindow) onZoomIn() {
	mw.state.Editor.Viewport().ZoomIn()
}

func (mw *MainWindow) onZoomOut() {
	mw.state.Editor.Viewport().ZoomOut()
}

func (mw *MainWindow) onActualSize() {
	mw.state.Editor.Viewport().SetZoom(1.0)
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About Slot Editor",
		fmt.Sprintf("Slot Editor v%s\n\n"+
			"Outline parking slots on a lot image and\n"+
			"publish them to the occupancy backend.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}
