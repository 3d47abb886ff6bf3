// Package speech pronounces words and sentences. Speaking never fails from the caller's point
// of view: utterances are queued and played in the background, and when no engine is
// available they are dropped.
package speech

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Utterance settings shared by every engine
const (
	Rate     = 0.8
	Pitch    = 1.0
	Language = "en-US"
)

// Engine names accepted in Config.Engine
const (
	EngineESpeak = "espeak"
	EngineOpenAI = "openai"
	EngineNone   = "none"
)

const (
	queueSize       = 16
	utterTimeout    = 30 * time.Second
	defaultVoice    = "en-us"
	defaultModel    = "tts-1"
	defaultTTSVoice = "alloy"
)

// Speaker pronounces text in the background
type Speaker interface {
	Speak(text string)
	Close() error
}

// Engine turns text into sound, blocking until playback finishes
type Engine interface {
	Name() string
	Say(ctx context.Context, text string) error
}

// Config selects and tunes the engine
type Config struct {
	Engine      string // espeak, openai or none
	Voice       string // espeak-ng voice
	OpenAIKey   string
	OpenAIModel string
	OpenAIVoice string
}

// Queue plays utterances one after another on a background goroutine so Speak never blocks.
// The ordering and the queueSize buffer are local policy: playback is best effort, and callers
// must not count on an utterance being heard.
type Queue struct {
	engine Engine
	log    *zap.Logger
	items  chan string
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// NewQueue starts a queue in front of engine
func NewQueue(engine Engine, log *zap.Logger) *Queue {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		engine: engine,
		log:    log,
		items:  make(chan string, queueSize),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	defer close(q.done)
	for text := range q.items {
		if q.ctx.Err() != nil {
			continue
		}
		ctx, cancel := context.WithTimeout(q.ctx, utterTimeout)
		if err := q.engine.Say(ctx, text); err != nil {
			q.log.Debug("speech failed", zap.String("engine", q.engine.Name()), zap.Error(err))
		}
		cancel()
	}
}

// Speak queues text. Blank text is ignored, and so is text arriving while the queue is full.
func (q *Queue) Speak(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	select {
	case q.items <- text:
	default:
		q.log.Debug("speech queue full, dropping utterance")
	}
}

// Close stops the current utterance, drops the queued ones and waits for the worker to exit
func (q *Queue) Close() error {
	q.cancel()
	q.shutdown()
	return nil
}

// Wait lets queued utterances finish, then stops the worker
func (q *Queue) Wait() {
	q.shutdown()
	q.cancel()
}

func (q *Queue) shutdown() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.items)
	}
	q.mu.Unlock()
	<-q.done
}

// Nop is the speaker used when no engine is available
type Nop struct{}

func (Nop) Speak(string) {}

func (Nop) Close() error { return nil }

// Fallback tries primary and, when it fails, secondary
type Fallback struct {
	primary   Engine
	secondary Engine
	log       *zap.Logger
}

// NewFallback wraps two engines
func NewFallback(primary, secondary Engine, log *zap.Logger) *Fallback {
	if log == nil {
		log = zap.NewNop()
	}
	return &Fallback{primary: primary, secondary: secondary, log: log}
}

func (f *Fallback) Name() string {
	return fmt.Sprintf("%s (fallback: %s)", f.primary.Name(), f.secondary.Name())
}

func (f *Fallback) Say(ctx context.Context, text string) error {
	err := f.primary.Say(ctx, text)
	if err == nil {
		return nil
	}
	f.log.Debug("primary speech engine failed",
		zap.String("primary", f.primary.Name()),
		zap.String("fallback", f.secondary.Name()),
		zap.Error(err))
	return f.secondary.Say(ctx, text)
}

// New builds the speaker named by cfg, degrading to Nop when the engine cannot run here
func New(cfg Config, log *zap.Logger) Speaker {
	if log == nil {
		log = zap.NewNop()
	}
	return newWith(cfg, log, defaultSystem())
}

func newWith(cfg Config, log *zap.Logger, sys system) Speaker {
	var espeak Engine
	if e, err := newESpeak(cfg.Voice, sys); err == nil {
		espeak = e
	} else {
		log.Debug("espeak-ng unavailable", zap.Error(err))
	}

	switch cfg.Engine {
	case EngineNone:
		return Nop{}

	case EngineOpenAI:
		if cfg.OpenAIKey == "" {
			log.Debug("no OpenAI key, using espeak-ng")
			break
		}
		tts, err := newOpenAI(cfg, sys)
		if err != nil {
			log.Debug("OpenAI speech unavailable", zap.Error(err))
			break
		}
		if espeak != nil {
			return NewQueue(NewFallback(tts, espeak, log), log)
		}
		return NewQueue(tts, log)

	case EngineESpeak, "":
	default:
		log.Warn("unknown speech engine, using espeak-ng", zap.String("engine", cfg.Engine))
	}

	if espeak == nil {
		return Nop{}
	}
	return NewQueue(espeak, log)
}
