package editor

import (
	"context"
)

// DroppedFile is a file dropped onto an image zone
type DroppedFile struct {
	Name string
	Data []byte
}

// DropZone tracks whether something is being dragged over an image zone.
// Contains reports whether an element belongs to the zone; leaving into one of the
// zone's own children must not end the drag.
type DropZone struct {
	Contains func(element string) bool
	dragging bool
}

// Enter marks the start of a drag over the zone
func (z *DropZone) Enter() {
	z.dragging = true
}

// Leave ends the drag unless related (the element the pointer moved to) is inside the zone
func (z *DropZone) Leave(related string) {
	if related == "" || z.Contains == nil || !z.Contains(related) {
		z.dragging = false
	}
}

// Dragging reports whether a drag is in progress over the zone
func (z *DropZone) Dragging() bool {
	return z.dragging
}

// DragEnter forwards to the editor's drop zone
func (e *Editor) DragEnter() {
	e.zone.Enter()
}

// DragLeave forwards to the editor's drop zone
func (e *Editor) DragLeave(related string) {
	e.zone.Leave(related)
}

// Dragging reports whether something is being dragged over the image zone
func (e *Editor) Dragging() bool {
	return e.zone.Dragging()
}

// SetDropZoneContains installs the containment check used by DragLeave
func (e *Editor) SetDropZoneContains(contains func(element string) bool) {
	e.zone.Contains = contains
}

// Drop ends the drag and attaches the first dropped file to the meaning at index.
// Dropping nothing returns a nil task.
func (e *Editor) Drop(ctx context.Context, index int, files []DroppedFile) (*ImageTask, error) {
	e.zone.dragging = false
	if len(files) == 0 {
		return nil, nil
	}
	return e.AttachImage(ctx, index, files[0].Data)
}
