package tap

import (
	"context"
	"fmt"

	errs "tap-instagram/pkg/errors"
	"tap-instagram/pkg/graph"
	"tap-instagram/pkg/logger"
	"tap-instagram/pkg/singer"
	"tap-instagram/pkg/stream"
)

// walker performs one depth-first traversal
type walker struct {
	tap *Tap
	log logger.Logger
}

// sync fetches every page of s for one partition. Each record is emitted,
// then its children are synced with the context it seeds, then afterRecord
// runs. Children are visited in declaration order.
func (w *walker) sync(ctx context.Context, s *stream.Stream, sctx stream.Context, afterRecord func(context.Context) error) error {
	t := w.tap
	path, err := s.RequestPath(sctx)
	if err != nil {
		return err
	}

	log := w.log.WithFields(map[string]interface{}{
		"stream":  s.Name(),
		"context": sctx.String(),
	})
	log.Debug("Syncing partition")

	pager := graph.NewPaginator(t.fetcher, path, s.RecordSelector(), s.NextPageSelector(), t.cfg.API.MaxPages)
	count := 0
	for pager.HasNext() {
		if err := ctx.Err(); err != nil {
			return err
		}

		records, err := pager.Next(ctx)
		if err != nil {
			return extractionError(s, err)
		}
		t.status.IncrementPages(s.Name())

		for rec := range records {
			if err = w.visit(ctx, s, rec); err != nil {
				break
			}
			count++
			if afterRecord != nil {
				if err = afterRecord(ctx); err != nil {
					break
				}
			}
		}
		if err != nil {
			return err
		}
	}

	if t.selection.Selected(s.Name()) {
		t.tracker.Complete(s.Name(), sctx)
	}
	log.DebugWithFields("Partition complete", map[string]interface{}{
		"records": count,
		"pages":   pager.Pages(),
	})
	return nil
}

// visit emits rec when s is selected and descends into the needed children
func (w *walker) visit(ctx context.Context, s *stream.Stream, rec stream.Record) error {
	t := w.tap
	if t.selection.Selected(s.Name()) {
		if err := w.emit(ctx, s, rec); err != nil {
			return err
		}
	}
	if s.IsLeaf() {
		return nil
	}

	childCtx, err := s.ChildContext(rec)
	if err != nil {
		return err
	}
	for _, child := range s.Children() {
		if !t.selection.Needed(child.Name()) {
			continue
		}
		if err := w.sync(ctx, child, childCtx.Clone(), nil); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) emit(ctx context.Context, s *stream.Stream, rec stream.Record) error {
	t := w.tap
	if checker, ok := t.checkers[s.Name()]; ok {
		issues, err := checker.Check(rec)
		if err != nil {
			w.log.WithError(err).WithField("stream", s.Name()).Debug("Schema check skipped")
		} else if len(issues) > 0 {
			t.status.AddMismatches(s.Name(), len(issues))
			w.log.DebugWithFields("Record does not match schema", map[string]interface{}{
				"stream": s.Name(),
				"issues": issues,
			})
		}
	}

	if err := t.sink.WriteRecord(ctx, singer.NewRecordMessage(s.Name(), rec, t.now())); err != nil {
		return fmt.Errorf("failed to write record for %q: %w", s.Name(), err)
	}
	t.status.IncrementRecords(s.Name())
	return nil
}

// emitState adapts Tap.emitState to the afterRecord hook
func (w *walker) emitState(ctx context.Context) error {
	return w.tap.emitState(ctx)
}

// extractionError turns an undecodable body into an ExtractionError. Other
// fetch failures pass through unchanged.
func extractionError(s *stream.Stream, err error) error {
	if fe, ok := errs.AsFetch(err); ok && fe.Type == errs.ErrorTypeParsing {
		return &errs.ExtractionError{Stream: s.Name(), Selector: s.RecordSelector().String(), Err: err}
	}
	return fmt.Errorf("stream %q: %w", s.Name(), err)
}
