// Package app provides application lifecycle management, configuration, and events.
package app

import (
	"context"
	"errors"
	"fmt"
	goimage "image"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"sync"

	"slot-editor/internal/config"
	"slot-editor/internal/editor"
	"slot-editor/internal/image"
	"slot-editor/internal/persist"
	"slot-editor/internal/project"
	"slot-editor/internal/render"
	"slot-editor/internal/slots"
	"slot-editor/internal/viewport"
	"slot-editor/pkg/geometry"
)

var (
	// ErrNoLot is returned when an operation needs a lot id and none is set.
	ErrNoLot = errors.New("no lot selected")
	// ErrLotChanged is reported when the lot is switched while its slots are
	// being fetched. The fetched slots are discarded.
	ErrLotChanged = errors.New("lot changed")
)

// State holds the application state: the editor, the rendered overlay, the
// reference image and the open project.
type State struct {
	mu sync.RWMutex

	// Project
	ProjectPath string
	Project     *project.File
	Modified    bool

	Editor    *editor.Editor
	Reference *image.Reference

	cfg      *config.Config
	renderer *render.Renderer
	client   *persist.Client
	overlay  *goimage.RGBA
	logger   *slog.Logger
	dispatch Dispatcher

	// Event listeners
	listeners map[EventType][]EventListener
}

// EventType identifies different application events.
type EventType int

const (
	EventProjectLoaded EventType = iota
	EventProjectSaved
	EventImageLoaded
	EventOverlayChanged
	EventModeChanged
	EventZoomChanged
	EventModified
	EventSaveFinished
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// NewState creates a new application state from cfg.
func NewState(cfg *config.Config, logger *slog.Logger) (*State, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = NewLogger(false, nil)
	}
	style, err := render.StyleFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	s := &State{
		Project:   project.New("Untitled", ""),
		cfg:       cfg,
		renderer:  render.NewRenderer(style),
		client:    newClient(cfg, "", logger),
		overlay:   goimage.NewRGBA(goimage.Rect(0, 0, 1, 1)),
		logger:    logger,
		listeners: make(map[EventType][]EventListener),
	}
	s.Editor = editor.New(editor.Options{
		MinRectSize: cfg.MinRectSize,
		Limits:      viewport.Limits{Min: cfg.ZoomMin, Max: cfg.ZoomMax, Step: cfg.ZoomStep},
		Logger:      logger,
	})

	s.Editor.On(editor.EventSlotsChanged, func(interface{}) {
		s.Redraw()
		s.SetModified(true)
	})
	s.Editor.On(editor.EventBufferChanged, func(interface{}) { s.Redraw() })
	s.Editor.On(editor.EventModeChanged, func(data interface{}) { s.Emit(EventModeChanged, data) })
	s.Editor.On(editor.EventZoomChanged, func(data interface{}) { s.Emit(EventZoomChanged, data) })
	return s, nil
}

func newClient(cfg *config.Config, saveOverride string, logger *slog.Logger) *persist.Client {
	save := cfg.SaveURL
	if saveOverride != "" {
		save = saveOverride
	}
	return persist.NewClient(persist.Endpoints{
		Save:      save,
		Slots:     cfg.SlotsURL,
		Dashboard: cfg.DashboardURL,
	}, cfg.Timeout(), logger)
}

// Config returns the runtime configuration.
func (s *State) Config() *config.Config {
	return s.cfg
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// SetModified marks the project as modified and emits an event.
func (s *State) SetModified(modified bool) {
	s.mu.Lock()
	s.Modified = modified
	s.mu.Unlock()
	s.Emit(EventModified, modified)
}

// Overlay returns the most recently rendered overlay at logical resolution.
func (s *State) Overlay() *goimage.RGBA {
	return s.overlay
}

// Redraw renders the editor scene onto the overlay and emits
// EventOverlayChanged.
func (s *State) Redraw() {
	s.renderer.Render(s.overlay, s.Editor.Scene())
	s.Emit(EventOverlayChanged, s.overlay)
}

// LoadReference installs ref as the background, sizes the overlay to its
// pixel dimensions and fits it into avail minus the configured padding.
func (s *State) LoadReference(ref *image.Reference, avail geometry.Size) {
	size := ref.Size()
	s.Reference = ref
	if w, h := int(size.Width), int(size.Height); w > 0 && h > 0 {
		if b := s.overlay.Bounds(); b.Dx() != w || b.Dy() != h {
			s.overlay = goimage.NewRGBA(goimage.Rect(0, 0, w, h))
		}
	}

	pad := s.cfg.FitPadding
	fit := geometry.Size{
		Width:  math.Max(avail.Width-pad, 1),
		Height: math.Max(avail.Height-pad, 1),
	}
	s.Editor.ImageLoaded(size, fit)
	s.Redraw()
	s.logger.Info("reference image loaded", "path", ref.Path, "width", size.Width, "height", size.Height,
		"zoom", s.Editor.Viewport().Percent())
	s.Emit(EventImageLoaded, ref)
}

// LotID returns the lot of the open project.
func (s *State) LotID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Project.LotID
}

// SetLotID changes the lot of the open project.
func (s *State) SetLotID(id string) {
	s.mu.Lock()
	s.Project.LotID = strings.TrimSpace(id)
	s.mu.Unlock()
	s.SetModified(true)
}

// Dispatcher runs fn on the goroutine that owns the editor. The desktop app
// uses fyne.Do.
type Dispatcher func(fn func())

// SetDispatcher routes the completion of background requests through d.
// Without one, completions run on the request goroutine, which is only safe
// when nothing else touches the editor meanwhile.
func (s *State) SetDispatcher(d Dispatcher) {
	s.mu.Lock()
	s.dispatch = d
	s.mu.Unlock()
}

func (s *State) runOnUI(fn func()) {
	s.mu.RLock()
	d := s.dispatch
	s.mu.RUnlock()
	if d == nil {
		fn()
		return
	}
	d(fn)
}

// Save posts the current slots to the save endpoint and emits
// EventSaveFinished with the persist.Result. It blocks; the desktop app uses
// SaveAsync.
func (s *State) Save(ctx context.Context) persist.Result {
	return s.SaveSlots(ctx, s.Editor.Slots())
}

// SaveSlots posts polys for the current lot and finishes the save on the
// calling goroutine.
func (s *State) SaveSlots(ctx context.Context, polys []slots.Polygon) persist.Result {
	lot := s.LotID()
	res := s.post(ctx, lot, polys)
	s.finishSave(res, lot, polys)
	return res
}

// SaveAsync snapshots the slots and posts them in the background. Editing may
// continue meanwhile. done is called with the result through the dispatcher,
// after EventSaveFinished. Call SaveAsync on the UI goroutine.
func (s *State) SaveAsync(ctx context.Context, done func(persist.Result)) {
	polys := s.Editor.Slots()
	lot := s.LotID()
	go func() {
		res := s.post(ctx, lot, polys)
		s.runOnUI(func() {
			s.finishSave(res, lot, polys)
			if done != nil {
				done(res)
			}
		})
	}()
}

func (s *State) post(ctx context.Context, lot string, polys []slots.Polygon) persist.Result {
	if lot == "" {
		return persist.Result{Reason: ErrNoLot.Error(), Err: ErrNoLot}
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout())
	defer cancel()
	return s.clientFor().SaveSlots(ctx, lot, polys)
}

// finishSave clears the modified flag only when the editor still shows what
// was posted: edits made while the request was in flight stay unsaved.
func (s *State) finishSave(res persist.Result, lot string, polys []slots.Polygon) {
	if res.OK && lot == s.LotID() && slots.Equal(s.Editor.Slots(), polys) {
		s.SetModified(false)
	}
	s.Emit(EventSaveFinished, res)
}

// FetchSlots reads the saved slots of the current lot from the backend.
// It does not touch the editor.
func (s *State) FetchSlots(ctx context.Context) ([]slots.Polygon, error) {
	return s.fetch(ctx, s.LotID())
}

// LoadFromServer fetches the current lot's saved slots in the background and
// replaces the editor's slots with them through the dispatcher. done receives
// the number of slots loaded, or the error. Call it on the UI goroutine.
func (s *State) LoadFromServer(ctx context.Context, done func(n int, err error)) {
	lot := s.LotID()
	go func() {
		polys, err := s.fetch(ctx, lot)
		s.runOnUI(func() {
			if err == nil && s.LotID() != lot {
				err = fmt.Errorf("lot changed from %q to %q while loading: %w", lot, s.LotID(), ErrLotChanged)
			}
			if err != nil {
				s.logger.Warn("load slots", "lot", lot, slog.Any("err", err))
				if done != nil {
					done(0, err)
				}
				return
			}
			s.Editor.Load(polys)
			s.logger.Info("slots loaded from server", "lot", lot, "count", len(polys))
			if done != nil {
				done(len(polys), nil)
			}
		})
	}()
}

func (s *State) fetch(ctx context.Context, lot string) ([]slots.Polygon, error) {
	if lot == "" {
		return nil, ErrNoLot
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout())
	defer cancel()
	return s.clientFor().LoadSlots(ctx, lot)
}

func (s *State) clientFor() *persist.Client {
	s.mu.RLock()
	override := s.Project.SaveURL
	s.mu.RUnlock()
	if override == "" {
		return s.client
	}
	return newClient(s.cfg, override, s.logger)
}

// NewProject discards the open project, its slots and the reference image.
func (s *State) NewProject() {
	s.mu.Lock()
	s.ProjectPath = ""
	s.Project = project.New("Untitled", "")
	s.Reference = nil
	s.mu.Unlock()

	s.Editor.Load(nil)
	s.SetModified(false)
	s.Emit(EventProjectLoaded, "")
}

// LoadProject loads a project from the specified path. The reference image
// is loaded separately by the caller once the window size is known.
func (s *State) LoadProject(path string) error {
	proj, err := project.Load(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.ProjectPath = path
	s.Project = proj
	s.mu.Unlock()

	s.Editor.Load(proj.Slots)
	s.SetModified(false)
	s.logger.Info("project loaded", "path", path, "lot", proj.LotID, "slots", len(proj.Slots))
	s.Emit(EventProjectLoaded, path)
	return nil
}

// ImagePath returns the absolute reference image path of the open project.
func (s *State) ImagePath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Project.GetImagePath(s.ProjectPath)
}

// SaveProject writes the project, with the current slots, to path.
func (s *State) SaveProject(path string) error {
	if filepath.Ext(path) == "" {
		path += project.Extension
	}

	s.mu.Lock()
	s.Project.SetSlots(s.Editor.Slots())
	if s.Reference != nil && s.Reference.Path != "" {
		s.Project.SetImage(path, s.Reference.Path)
	}
	if s.Project.Name == "" || s.Project.Name == "Untitled" {
		s.Project.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	err := s.Project.Save(path)
	if err == nil {
		s.ProjectPath = path
	}
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	s.SetModified(false)
	s.Emit(EventProjectSaved, path)
	return nil
}

// HasProject returns true if a project file is associated with the state.
func (s *State) HasProject() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ProjectPath != ""
}
