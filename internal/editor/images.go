package editor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/parsely/flipcards/internal/imaging"
)

// ImageTask decodes image bytes for one meaning. Run may be called from any goroutine.
type ImageTask struct {
	EntryID string
	Seq     uint64

	ctx     context.Context
	data    []byte
	decoder imaging.ImageDecoder
}

// ImageResult is the outcome of an ImageTask, to be handed to Editor.ApplyImage
type ImageResult struct {
	EntryID string
	Seq     uint64
	DataURI string
	Err     error
}

// Run performs the decode
func (t *ImageTask) Run() ImageResult {
	uri, err := t.decoder.Decode(t.ctx, t.data)
	return ImageResult{EntryID: t.EntryID, Seq: t.Seq, DataURI: uri, Err: err}
}

// AttachImage starts attaching data as the image of the meaning at index.
// Any earlier attach for the same meaning that has not been applied yet is cancelled,
// so whatever order the decodes finish in, the last call wins.
func (e *Editor) AttachImage(ctx context.Context, index int, data []byte) (*ImageTask, error) {
	if index < 0 || index >= len(e.draft.Means) {
		return nil, fmt.Errorf("meaning %d: %w", index, ErrIndexOutOfRange)
	}

	id := e.draft.Means[index].ID
	e.cancelPending(id)

	e.seq++
	taskCtx, cancel := context.WithCancel(ctx)
	e.pending[id] = pendingImage{seq: e.seq, cancel: cancel}

	return &ImageTask{
		EntryID: id,
		Seq:     e.seq,
		ctx:     taskCtx,
		data:    data,
		decoder: e.decoder,
	}, nil
}

// ApplyImage stores a finished decode on its meaning. It reports false without error when the
// result is stale: the meaning was removed, its image was edited, or a newer attach superseded it.
// Decode failures of the current attach are returned.
func (e *Editor) ApplyImage(res ImageResult) (bool, error) {
	p, ok := e.pending[res.EntryID]
	if !ok || p.seq != res.Seq {
		e.log.Debug("discarding stale image result", zap.String("entry", res.EntryID), zap.Uint64("seq", res.Seq))
		return false, nil
	}
	p.cancel()
	delete(e.pending, res.EntryID)

	if res.Err != nil {
		return false, fmt.Errorf("failed to attach image: %w", res.Err)
	}

	index := e.draft.meaningIndex(res.EntryID)
	if index < 0 {
		return false, nil
	}

	means := append([]MeaningEntry(nil), e.draft.Means...)
	means[index].Image = res.DataURI
	e.draft.Means = means
	return true, nil
}

// AttachImageSync decodes and applies an image in one step
func (e *Editor) AttachImageSync(ctx context.Context, index int, data []byte) error {
	task, err := e.AttachImage(ctx, index, data)
	if err != nil {
		return err
	}
	_, err = e.ApplyImage(task.Run())
	return err
}

// PendingImages returns the number of attaches still waiting to be applied
func (e *Editor) PendingImages() int {
	return len(e.pending)
}
