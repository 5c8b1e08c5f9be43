// Package project provides slot project file handling and persistence.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"slot-editor/internal/slots"
)

// Extension is the file extension of slot project files.
const Extension = ".slotproj"

// File represents a slot editor project file (.slotproj).
type File struct {
	Version  int       `json:"version"`
	Name     string    `json:"name"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`

	// LotID identifies the lot on the save endpoint.
	LotID string `json:"lot_id"`

	// Image path (relative to project file)
	ImagePath string `json:"image,omitempty"`

	// SaveURL overrides the configured save endpoint when set.
	SaveURL string `json:"save_url,omitempty"`

	// Slots in label order.
	Slots []slots.Polygon `json:"slots"`
}

// New creates a new project file for a lot.
func New(name, lotID string) *File {
	now := time.Now()
	return &File{
		Version:  1,
		Name:     name,
		Created:  now,
		Modified: now,
		LotID:    lotID,
		Slots:    []slots.Polygon{},
	}
}

// Load loads a project from a .slotproj file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var proj File
	if err := json.Unmarshal(data, &proj); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if proj.Slots == nil {
		proj.Slots = []slots.Polygon{}
	}

	return &proj, nil
}

// Save saves the project to a file.
func (p *File) Save(path string) error {
	p.Modified = time.Now()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// SetImage sets the reference image path (relative to project).
func (p *File) SetImage(projectPath, imagePath string) {
	rel, err := filepath.Rel(filepath.Dir(projectPath), imagePath)
	if err != nil {
		p.ImagePath = imagePath
	} else {
		p.ImagePath = rel
	}
	p.Modified = time.Now()
}

// GetImagePath returns the absolute path to the reference image.
func (p *File) GetImagePath(projectPath string) string {
	if p.ImagePath == "" {
		return ""
	}
	if filepath.IsAbs(p.ImagePath) {
		return p.ImagePath
	}
	return filepath.Join(filepath.Dir(projectPath), p.ImagePath)
}

// SetSlots records the current slot list.
func (p *File) SetSlots(polys []slots.Polygon) {
	p.Slots = make([]slots.Polygon, len(polys))
	for i, poly := range polys {
		p.Slots[i] = poly.Clone()
	}
	p.Modified = time.Now()
}
