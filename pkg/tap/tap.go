package tap

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"tap-instagram/pkg/config"
	errs "tap-instagram/pkg/errors"
	"tap-instagram/pkg/graph"
	"tap-instagram/pkg/logger"
	"tap-instagram/pkg/schema"
	"tap-instagram/pkg/singer"
	"tap-instagram/pkg/sink"
	"tap-instagram/pkg/state"
	"tap-instagram/pkg/stream"
	"tap-instagram/pkg/ui"
)

// TokenSource resolves a stored access token by account name. An empty name
// selects the default account.
type TokenSource interface {
	Token(name string) (string, error)
}

// Options wires a Tap. Only Config is required; every other field has a
// default built from it.
type Options struct {
	Config      *config.Config
	Registry    *stream.Registry
	Fetcher     graph.Fetcher
	Sink        sink.Sink
	Stdout      io.Writer
	Credentials TokenSource
	StateFile   *state.Manager
	InputState  *state.State
	Logger      logger.Logger
	Now         func() time.Time
}

// Tap drives a full-refresh sync of the stream graph
type Tap struct {
	cfg       *config.Config
	registry  *stream.Registry
	fetcher   graph.Fetcher
	sink      sink.Sink
	stateFile *state.Manager
	input     *state.State
	logger    logger.Logger
	now       func() time.Time

	selection *Selection
	checkers  map[string]*schema.Checker
	tracker   *state.Tracker
	status    *ui.StatusTracker
	runID     string
}

// New validates the configuration and builds a Tap. A missing access token
// fails here, before any request is made.
func New(opts Options) (*Tap, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	token, err := resolveToken(cfg, opts.Credentials)
	if err != nil {
		return nil, err
	}

	registry := opts.Registry
	if registry == nil {
		if registry, err = stream.Default(); err != nil {
			return nil, err
		}
	}

	selection, err := NewSelection(registry, cfg.Streams.Selected)
	if err != nil {
		return nil, err
	}

	t := &Tap{
		cfg:       cfg,
		registry:  registry,
		fetcher:   opts.Fetcher,
		sink:      opts.Sink,
		stateFile: opts.StateFile,
		input:     opts.InputState,
		logger:    log,
		now:       opts.Now,
		selection: selection,
		checkers:  map[string]*schema.Checker{},
	}
	if t.now == nil {
		t.now = time.Now
	}

	if cfg.Streams.CheckSchema {
		for _, s := range registry.Streams() {
			if !selection.Selected(s.Name()) {
				continue
			}
			checker, err := schema.NewChecker(s.Schema())
			if err != nil {
				return nil, fmt.Errorf("stream %q: %w", s.Name(), err)
			}
			t.checkers[s.Name()] = checker
		}
	}

	if t.fetcher == nil {
		client, err := graph.NewClient(cfg, token, log)
		if err != nil {
			return nil, err
		}
		t.fetcher = client
	}

	if t.sink == nil {
		stdout := opts.Stdout
		if stdout == nil {
			stdout = os.Stdout
		}
		if t.sink, err = sink.New(cfg.Output, stdout, log); err != nil {
			return nil, errs.NewConfigurationError("output.sink", "%v", err)
		}
	}

	if t.stateFile == nil && cfg.Output.StateFile != "" {
		t.stateFile = state.NewManager(cfg.Output.StateFile, log)
	}

	return t, nil
}

// resolveToken prefers the configured token and falls back to the
// credential store.
func resolveToken(cfg *config.Config, creds TokenSource) (string, error) {
	if cfg.AccessToken != "" {
		return cfg.AccessToken, nil
	}
	if creds != nil {
		if token, err := creds.Token(cfg.Account); err == nil && token != "" {
			return token, nil
		}
	}
	return "", errs.MissingRequiredConfig("access_token")
}

// Registry returns the stream graph the tap syncs
func (t *Tap) Registry() *stream.Registry {
	return t.registry
}

// Selection returns the resolved stream selection
func (t *Tap) Selection() *Selection {
	return t.selection
}

// Summary returns per-stream counts of the last run
func (t *Tap) Summary() []ui.StreamCount {
	if t.status == nil {
		return nil
	}
	return t.status.Summary()
}

// Status returns the counters of the last run, or nil before Run
func (t *Tap) Status() *ui.StatusTracker {
	return t.status
}

// State returns the state accumulated by the last run
func (t *Tap) State() *state.State {
	if t.tracker == nil {
		return state.New()
	}
	return t.tracker.Snapshot()
}

// Close flushes and closes the sink
func (t *Tap) Close() error {
	return t.sink.Close()
}

// Abort closes the sink without finalising its outputs
func (t *Tap) Abort() error {
	return t.sink.Abort()
}

// Finish closes the sink after a run: outputs are finalised when runErr is
// nil and discarded otherwise. It returns runErr, or the close error.
func (t *Tap) Finish(runErr error) error {
	if runErr != nil {
		if err := t.Abort(); err != nil {
			t.logger.WarnWithFields("Failed to discard sink output", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return runErr
	}
	if err := t.Close(); err != nil {
		return fmt.Errorf("failed to close sink: %w", err)
	}
	return nil
}

// Run emits SCHEMA messages for the selected streams, then walks every root
// stream depth first. A STATE message follows each root record's subtree
// and the end of the run.
func (t *Tap) Run(ctx context.Context) error {
	t.runID = uuid.NewString()
	t.tracker = state.NewTracker()
	t.status = ui.NewStatusTracker()
	log := t.logger.WithField("run_id", t.runID)

	log.InfoWithFields("Starting sync", map[string]interface{}{
		"streams": t.selection.Names(),
	})
	if t.input != nil {
		log.InfoWithFields("Input state provided; full refresh ignores it", map[string]interface{}{
			"partitions": t.input.PartitionCount(),
		})
	}

	for _, s := range t.registry.Streams() {
		if !t.selection.Selected(s.Name()) {
			continue
		}
		msg := singer.NewSchemaMessage(s.Name(), s.Schema(), s.PrimaryKeys(), bookmarkKeys(s))
		if err := t.sink.WriteSchema(ctx, msg); err != nil {
			return fmt.Errorf("failed to write schema for %q: %w", s.Name(), err)
		}
	}

	for _, root := range t.registry.Roots() {
		if !t.selection.Needed(root.Name()) {
			continue
		}
		w := &walker{tap: t, log: log}
		if err := w.sync(ctx, root, stream.Context{}, w.emitState); err != nil {
			log.WithError(err).WithField("stream", root.Name()).Error("Sync failed")
			return err
		}
	}

	if err := t.emitState(ctx); err != nil {
		return err
	}

	log.InfoWithFields("Sync completed", map[string]interface{}{
		"records":    t.status.Total(),
		"partitions": t.tracker.Snapshot().PartitionCount(),
		"duration":   t.status.Elapsed().String(),
	})
	return nil
}

// emitState writes the current state to the sink and the state file
func (t *Tap) emitState(ctx context.Context) error {
	snapshot := t.tracker.Snapshot()
	if err := t.sink.WriteState(ctx, singer.NewStateMessage(snapshot)); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	if t.stateFile != nil {
		if err := t.stateFile.Save(snapshot); err != nil {
			return fmt.Errorf("failed to save state file: %w", err)
		}
	}
	return nil
}

func bookmarkKeys(s *stream.Stream) []string {
	if key := s.ReplicationKey(); key != "" {
		return []string{key}
	}
	return nil
}
