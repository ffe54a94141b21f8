// Package core runs one user exchange end to end: scoring, memory
// consolidation, model streaming, speech and the shared transcript.
package core

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"jarvis/internal/analyzer"
	"jarvis/internal/audio"
	"jarvis/internal/config"
	"jarvis/internal/llm"
	"jarvis/internal/memory"
	"jarvis/internal/metrics"
	"jarvis/internal/proactive"
	"jarvis/internal/storage"
	"jarvis/pkg"

	"github.com/rs/zerolog"
)

// State is the coordinator's position in an exchange
type State string

const (
	StateIdle            State = "idle"
	StateSubmitting      State = "submitting"
	StateOfflineFallback State = "offline"
	StateScoring         State = "scoring"
	StateImageBranch     State = "image"
	StateTextBranch      State = "text"
	StateSpeaking        State = "speaking"
	StateError           State = "error"
)

// Exchange branches, used in outcomes and metrics
const (
	BranchOffline = "offline"
	BranchImage   = "image"
	BranchText    = "text"
)

// TaskSource lists the user's tasks
type TaskSource interface {
	ListTasks(ctx context.Context) ([]pkg.Task, error)
}

// ActivityLog records completed interactions
type ActivityLog interface {
	LogAction(ctx context.Context, action string) error
}

// AudioIO is the sound surface the coordinator drives
type AudioIO interface {
	PlayCue(cue audio.Cue)
	PlaySpeech(ctx context.Context, b64 string) error
	Capture(ctx context.Context) (*audio.Recording, error)
}

// Options are the user-facing switches
type Options struct {
	VoiceEnabled     bool
	ReasoningEnabled bool
	Search           bool
	HistoryTurns     int
}

// Deps are the collaborators of a Coordinator
type Deps struct {
	Analyzer *analyzer.Analyzer
	Memory   *memory.Store
	LLM      llm.Client
	Audio    AudioIO
	Tasks    TaskSource
	Activity ActivityLog
	Network  Network
	Persona  config.Persona
	Options  Options

	Clock    func() time.Time
	Entropy  io.Reader
	Logger   zerolog.Logger
	Observer Observer
}

// Outcome describes a finished exchange
type Outcome struct {
	Branch       string
	Decision     *pkg.ContextDecision
	Consolidated *pkg.MemoryRecord
	Reply        *pkg.Turn
}

// Coordinator serializes exchanges over a single transcript
type Coordinator struct {
	deps       Deps
	transcript *Transcript
	offline    *OfflineResponder
	logger     zerolog.Logger
	now        func() time.Time

	busy  atomic.Bool
	state atomic.Value // State

	speakerWarned atomic.Bool
	background    sync.WaitGroup
}

// NewCoordinator creates a coordinator with a fresh greeting transcript
func NewCoordinator(deps Deps) *Coordinator {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Observer == nil {
		deps.Observer = NopObserver{}
	}
	if deps.Network == nil {
		deps.Network = StaticNetwork(true)
	}
	if deps.Audio == nil {
		deps.Audio = audio.NewBridge(nil, nil, audio.BridgeConfig{}, deps.Logger)
	}

	greeting := []pkg.Turn{
		{Role: pkg.RoleSystem, Text: deps.Persona.Greeting.System},
		{Role: pkg.RoleModel, Text: deps.Persona.Greeting.Model},
	}

	c := &Coordinator{
		deps:       deps,
		transcript: NewTranscript(NewIDSource(deps.Clock, deps.Entropy), deps.Observer, greeting...),
		offline:    NewOfflineResponder(deps.Persona.Offline, deps.Clock),
		logger:     deps.Logger.With().Str("component", "coordinator").Logger(),
		now:        deps.Clock,
	}
	c.state.Store(StateIdle)
	return c
}

// Transcript exposes the shared conversation log
func (c *Coordinator) Transcript() *Transcript {
	return c.transcript
}

// State returns the current exchange state
func (c *Coordinator) State() State {
	return c.state.Load().(State)
}

func (c *Coordinator) setState(s State) {
	c.state.Store(s)
	c.deps.Observer.StateChanged(s)
}

// Submit runs one exchange. Only one exchange may be in flight; a second
// call fails with ErrBusy and leaves the transcript untouched. Model and
// generation failures are recorded as system error turns and returned.
func (c *Coordinator) Submit(ctx context.Context, sub pkg.Submission) (*Outcome, error) {
	text := strings.TrimSpace(sub.Text)
	if text == "" && sub.Media == nil {
		return nil, ErrEmptySubmission
	}
	if !c.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer c.busy.Store(false)

	return c.run(ctx, text, sub)
}

// run executes an exchange; the caller holds the busy guard
func (c *Coordinator) run(ctx context.Context, text string, sub pkg.Submission) (*Outcome, error) {
	defer c.setState(StateIdle)

	started := c.now()
	c.setState(StateSubmitting)

	var media *llm.InlineData
	if sub.Media != nil {
		decoded, err := decodeMedia(sub.Media)
		if err != nil {
			return c.reject(err, started)
		}
		media = decoded
	}

	c.deps.Audio.PlayCue(audio.CueActivate)

	// history is taken before the new user turn; the turn is sent separately
	history := c.transcript.History(c.deps.Options.HistoryTurns)
	userText := text
	if userText == "" {
		userText = placeholderText(sub.Media.Kind)
	}
	c.transcript.Append(userTurn(userText, sub.Media))

	if !c.deps.Network.Online(ctx) {
		return c.respondOffline(userText, started), nil
	}

	outcome, err := c.respondOnline(ctx, text, userText, media, history)
	if err != nil {
		return c.fail(outcome, err, started)
	}

	c.background.Add(1)
	go func() {
		defer c.background.Done()
		if err := c.deps.Activity.LogAction(context.WithoutCancel(ctx), storage.ActivityAction); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to log activity")
		}
	}()

	metrics.ObserveExchange(outcome.Branch, metrics.OutcomeOK, started)
	return outcome, nil
}

func (c *Coordinator) respondOffline(userText string, started time.Time) *Outcome {
	c.setState(StateOfflineFallback)
	c.logger.Info().Msg("Network unavailable, answering offline")

	reply := c.transcript.Append(pkg.Turn{Role: pkg.RoleModel, Text: c.offline.Respond(userText)})
	metrics.ObserveExchange(BranchOffline, metrics.OutcomeOK, started)
	return &Outcome{Branch: BranchOffline, Reply: &reply}
}

func (c *Coordinator) respondOnline(ctx context.Context, text, userText string, media *llm.InlineData, history []llm.Message) (*Outcome, error) {
	c.setState(StateScoring)
	decision := c.deps.Analyzer.Analyze(userText)
	outcome := &Outcome{Branch: BranchText, Decision: &decision}

	c.deps.Memory.LoadAll(ctx)
	if decision.Score >= analyzer.StrategyThreshold && text != "" {
		record := c.deps.Memory.Append(ctx, text, decision.Score)
		outcome.Consolidated = &record
		decision.Reasoning = append(decision.Reasoning, msgConsolidating)
		metrics.MemoryConsolidations.Inc()
		metrics.MemoryRecords.Set(float64(c.deps.Memory.Len()))
	}

	c.logger.Debug().
		Int("score", decision.Score).
		Str("tone", string(decision.Tone)).
		Bool("strategy", decision.RequiresStrategy).
		Bool("image", decision.IsImageRequest).
		Msg("Context analyzed")
	if c.deps.Options.ReasoningEnabled {
		c.deps.Observer.Reasoning(decision.Reasoning)
	}

	if decision.IsImageRequest {
		outcome.Branch = BranchImage
		reply, err := c.generateImage(ctx, text)
		outcome.Reply = reply
		return outcome, err
	}

	system := BuildSystemInstruction(c.deps.Persona, decision.Tone, c.deps.Memory.AsText(), decision.RequiresStrategy)
	reply, err := c.streamText(ctx, system, history, text, media)
	outcome.Reply = reply
	return outcome, err
}

func (c *Coordinator) generateImage(ctx context.Context, prompt string) (*pkg.Turn, error) {
	c.setState(StateImageBranch)

	image, err := c.deps.LLM.GenerateImage(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if image == nil {
		return nil, ErrGenerationFailed
	}

	reply := c.transcript.Append(pkg.Turn{Role: pkg.RoleModel, Text: msgImageReady, ImageRef: image.DataURI()})
	c.speak(ctx, msgImageSpoken)
	c.deps.Audio.PlayCue(audio.CueComplete)
	return &reply, nil
}

func (c *Coordinator) streamText(ctx context.Context, system string, history []llm.Message, text string, media *llm.InlineData) (*pkg.Turn, error) {
	c.setState(StateTextBranch)

	current := llm.Message{Role: pkg.RoleUser, Text: text}
	if media != nil {
		if current.Text == "" {
			current.Text = defaultInstruction(media.MIMEType)
		}
		current.Media = []llm.InlineData{*media}
	}

	stream, err := c.deps.LLM.StreamText(ctx, llm.TextRequest{
		System:  system,
		History: append(history, current),
		Search:  c.deps.Options.Search,
	})
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	id := c.transcript.Begin(pkg.RoleModel)
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			partial, _ := c.transcript.Interrupt(id)
			return &partial, err
		}
		if err := c.transcript.Extend(id, chunk); err != nil {
			return nil, err
		}
	}

	reply, err := c.transcript.Finalize(id)
	if err != nil {
		return nil, err
	}
	c.speak(ctx, reply.Text)
	c.deps.Audio.PlayCue(audio.CueComplete)
	return &reply, nil
}

// speak synthesizes and plays text when voice is enabled. Failures never
// fail the exchange.
func (c *Coordinator) speak(ctx context.Context, text string) {
	if !c.deps.Options.VoiceEnabled || strings.TrimSpace(text) == "" {
		return
	}

	speech, err := c.deps.LLM.SynthesizeSpeech(ctx, text, c.deps.Persona.Voice)
	switch {
	case err == nil:
	case llm.IsQuotaError(err):
		c.appendError(msgVoiceQuota)
		return
	case errors.Is(err, llm.ErrUnsupported):
		c.logger.Debug().Msg("Speech synthesis not available for this provider")
		return
	default:
		c.logger.Warn().Err(err).Msg("Speech synthesis failed")
		return
	}
	if speech == "" {
		return
	}

	c.setState(StateSpeaking)
	if err := c.deps.Audio.PlaySpeech(ctx, speech); err != nil {
		if errors.Is(err, audio.ErrDeviceUnavailable) {
			if c.speakerWarned.CompareAndSwap(false, true) {
				c.appendError(msgSpeakerMissing)
			}
			return
		}
		c.logger.Warn().Err(err).Msg("Speech playback failed")
	}
}

func (c *Coordinator) fail(outcome *Outcome, err error, started time.Time) (*Outcome, error) {
	c.setState(StateError)
	c.deps.Audio.PlayCue(audio.CueError)

	branch := BranchText
	if outcome != nil {
		branch = outcome.Branch
	}

	message, result := msgProcessingError, metrics.OutcomeError
	if llm.IsQuotaError(err) {
		message, result = msgQuotaExceeded, metrics.OutcomeQuota
	}
	c.logger.Error().Err(err).Str("branch", branch).Msg("Exchange failed")
	c.appendError(message)

	metrics.ObserveExchange(branch, result, started)
	return outcome, fmt.Errorf("%s exchange failed: %w", branch, err)
}

// reject reports media that never reached the model
func (c *Coordinator) reject(err error, started time.Time) (*Outcome, error) {
	c.setState(StateError)
	c.deps.Audio.PlayCue(audio.CueError)

	message := msgProcessingError
	if errors.Is(err, ErrMediaTooLarge) {
		message = msgMediaTooLarge
	}
	c.logger.Warn().Err(err).Msg("Media rejected")
	c.appendError(message)

	metrics.ObserveExchange(BranchText, metrics.OutcomeError, started)
	return nil, err
}

func (c *Coordinator) appendError(text string) {
	c.transcript.Append(pkg.Turn{Role: pkg.RoleSystem, Text: text, IsError: true})
}

// InjectAdvisory checks the task list and adds a proactive model turn while
// the transcript still holds only its greeting
func (c *Coordinator) InjectAdvisory(ctx context.Context) (string, bool, error) {
	tasks, err := c.deps.Tasks.ListTasks(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to list tasks for proactivity check")
		return "", false, fmt.Errorf("failed to list tasks: %w", err)
	}

	advice, ok := proactive.Check(tasks, c.now())
	if !ok || c.transcript.Len() > 2 {
		return "", false, nil
	}
	c.transcript.Append(pkg.Turn{Role: pkg.RoleModel, Text: advice})
	return advice, true, nil
}

// RecordVoice captures speech until stop is closed, ctx is done or the
// recording limit is hit, then submits it as a voice message. The busy guard
// is held from the start of capture, so Submit fails with ErrBusy meanwhile.
func (c *Coordinator) RecordVoice(ctx context.Context, stop <-chan struct{}) (*Outcome, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer c.busy.Store(false)

	captureCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-captureCtx.Done():
		}
	}()

	recording, err := c.deps.Audio.Capture(captureCtx)
	if err != nil {
		if !errors.Is(err, audio.ErrEmptyRecording) {
			c.appendError(msgMicUnavailable)
		}
		return nil, err
	}

	return c.run(ctx, "", pkg.Submission{Media: &pkg.Media{
		Kind:     pkg.MediaAudio,
		Base64:   recording.Base64,
		MIMEType: recording.MIMEType,
	}})
}

// Close waits for background work and pending memory writes
func (c *Coordinator) Close() {
	c.background.Wait()
	c.deps.Memory.Flush()
}

func decodeMedia(m *pkg.Media) (*llm.InlineData, error) {
	if base64.StdEncoding.DecodedLen(len(m.Base64)) > MaxMediaBytes+2 {
		return nil, ErrMediaTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(m.Base64)
	if err != nil {
		return nil, fmt.Errorf("invalid media encoding: %w", err)
	}
	if len(data) > MaxMediaBytes {
		return nil, ErrMediaTooLarge
	}
	return &llm.InlineData{MIMEType: m.MIMEType, Data: data}, nil
}

func placeholderText(kind pkg.MediaKind) string {
	switch kind {
	case pkg.MediaVideo:
		return "[VÍDEO ENVIADO]"
	case pkg.MediaAudio:
		return "[MENSAGEM DE VOZ]"
	default:
		return "[IMAGEM ENVIADA]"
	}
}

func defaultInstruction(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "video/"):
		return "Analise este vídeo."
	case strings.HasPrefix(mimeType, "audio/"):
		return "Responda a esta mensagem de voz."
	default:
		return "Analise esta imagem."
	}
}

func userTurn(text string, media *pkg.Media) pkg.Turn {
	turn := pkg.Turn{Role: pkg.RoleUser, Text: text}
	if media == nil {
		return turn
	}
	switch media.Kind {
	case pkg.MediaVideo:
		turn.VideoRef = media.URL
	case pkg.MediaImage:
		turn.ImageRef = media.URL
	}
	return turn
}
