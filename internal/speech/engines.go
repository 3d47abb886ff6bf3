package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"runtime"
	"strconv"

	"github.com/sashabaranov/go-openai"
)

// ErrNoPlayer is returned when no audio player is installed
var ErrNoPlayer = errors.New("no audio player found")

// system is the slice of the OS the engines touch, swapped out in tests
type system struct {
	goos     string
	lookPath func(file string) (string, error)
	run      func(ctx context.Context, name string, args ...string) error
	tempDir  string
	baseURL  string
}

func defaultSystem() system {
	return system{
		goos:     runtime.GOOS,
		lookPath: exec.LookPath,
		run: func(ctx context.Context, name string, args ...string) error {
			out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
			if err != nil {
				return fmt.Errorf("%s failed: %w (output: %s)", name, err, out)
			}
			return nil
		},
	}
}

// espeak-ng speaks at 175 words per minute and pitch 50 by default
const (
	espeakBaseSpeed = 175
	espeakBasePitch = 50
)

// ESpeak speaks through the espeak-ng command
type ESpeak struct {
	voice string
	sys   system
}

func newESpeak(voice string, sys system) (*ESpeak, error) {
	if _, err := sys.lookPath("espeak-ng"); err != nil {
		return nil, fmt.Errorf("espeak-ng is not installed: %w", err)
	}
	if voice == "" {
		voice = defaultVoice
	}
	return &ESpeak{voice: voice, sys: sys}, nil
}

func (e *ESpeak) Name() string {
	return "espeak-ng"
}

func (e *ESpeak) Say(ctx context.Context, text string) error {
	return e.sys.run(ctx, "espeak-ng", e.args(text)...)
}

func (e *ESpeak) args(text string) []string {
	speed := int(math.Round(espeakBaseSpeed * Rate))
	pitch := int(math.Round(espeakBasePitch * Pitch))
	return []string{
		"-v", e.voice,
		"-s", strconv.Itoa(speed),
		"-p", strconv.Itoa(pitch),
		"--", text,
	}
}

// OpenAI renders speech with the OpenAI TTS API and plays it with a local audio player
type OpenAI struct {
	client *openai.Client
	model  string
	voice  string
	player []string
	sys    system
}

func newOpenAI(cfg Config, sys system) (*OpenAI, error) {
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	player, err := findPlayer(sys)
	if err != nil {
		return nil, err
	}

	clientCfg := openai.DefaultConfig(cfg.OpenAIKey)
	if sys.baseURL != "" {
		clientCfg.BaseURL = sys.baseURL
	}

	model := cfg.OpenAIModel
	if model == "" {
		model = defaultModel
	}
	voice := cfg.OpenAIVoice
	if voice == "" {
		voice = defaultTTSVoice
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		voice:  voice,
		player: player,
		sys:    sys,
	}, nil
}

func (o *OpenAI) Name() string {
	return "openai"
}

func (o *OpenAI) Say(ctx context.Context, text string) error {
	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.model),
		Input:          text,
		Voice:          openai.SpeechVoice(o.voice),
		Speed:          Rate,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return fmt.Errorf("OpenAI TTS API error: %w", err)
	}
	defer resp.Close()

	out, err := os.CreateTemp(o.sys.tempDir, "flipcards-*.mp3")
	if err != nil {
		return fmt.Errorf("failed to create audio file: %w", err)
	}
	defer os.Remove(out.Name())

	written, err := io.Copy(out, resp)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	if written == 0 {
		return fmt.Errorf("no audio data received from OpenAI")
	}

	args := append(append([]string(nil), o.player[1:]...), out.Name())
	return o.sys.run(ctx, o.player[0], args...)
}

// findPlayer picks a command line that plays an audio file appended as its last argument. The player
// must decode MP3 and block until playback ends, since the file is removed once it returns.
func findPlayer(sys system) ([]string, error) {
	if sys.goos == "darwin" {
		return []string{"afplay"}, nil
	}

	candidates := [][]string{
		{"mpg123", "-q"},
		{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet"},
	}
	if sys.goos != "windows" {
		candidates = append(candidates, []string{"play", "-q"}, []string{"paplay"})
	}
	for _, c := range candidates {
		if _, err := sys.lookPath(c[0]); err == nil {
			return c, nil
		}
	}
	if sys.goos == "windows" {
		return nil, fmt.Errorf("%w: install mpg123 or ffplay", ErrNoPlayer)
	}
	return nil, fmt.Errorf("%w: install mpg123, ffplay, sox or paplay", ErrNoPlayer)
}
