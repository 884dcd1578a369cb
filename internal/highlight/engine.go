package highlight

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/studydesk/api/internal/models"
	"go.uber.org/zap"
)

// Engine reconstructs the canonical highlight list from a note's serialized
// content. The content is authoritative for text, category and number; the
// sidecar only contributes the user-authored commentary and expansion state.
//
// The engine is a synchronous, pure computation: it performs no I/O and holds
// no state between calls. Scheduling of the fallback retry loop belongs to
// RestoreWithRetry's caller-supplied fetcher, not to the engine itself.
type Engine struct {
	categories models.CategoryConfig
	log        *zap.Logger
}

// NewEngine creates a highlight engine with an explicit category
// configuration. There is no ambient category registry.
func NewEngine(categories models.CategoryConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{categories: categories, log: logger}
}

// Categories returns the configuration the engine was built with, so callers
// constructing working sets over its output use the same palette.
func (e *Engine) Categories() models.CategoryConfig {
	return e.categories
}

// Restore extracts highlights from serialized content, merging in sidecar
// fields. It tries structural extraction first and falls back to a flat
// markup scan when the structural layer yields nothing. Extraction never
// errors: unparseable or empty content degrades to an empty result.
func (e *Engine) Restore(content string, sidecar []models.HighlightSidecar) []models.Highlight {
	if strings.TrimSpace(content) == "" {
		// Empty document: valid terminal state, not a failure.
		return nil
	}

	frags := extractStructural(content)
	if len(frags) == 0 {
		frags = extractMarkup(content)
	}

	highlights := e.assemble(frags)
	mergeSidecar(highlights, sidecar)
	return highlights
}

// RestoreWithRetry runs Restore against freshly fetched content, retrying the
// fetch-and-extract cycle per the schedule when it yields nothing. This
// tolerates asynchronous render completion in the layer producing the markup.
// Exhaustion is a terminal empty result, logged but never surfaced as an
// error.
func (e *Engine) RestoreWithRetry(ctx context.Context, schedule RetrySchedule, fetch ContentFetcher) []models.Highlight {
	for attempt := 1; ; attempt++ {
		content, sidecar, err := fetch(ctx)
		if err == nil {
			if highlights := e.Restore(content, sidecar); len(highlights) > 0 {
				return highlights
			}
			if strings.TrimSpace(content) == "" {
				// Empty content is a definitive answer, not a transient state.
				return nil
			}
		} else {
			e.log.Debug("highlight_content_fetch_failed",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}

		if attempt >= schedule.MaxAttempts() {
			e.log.Info("highlight_extraction_exhausted",
				zap.Int("attempts", attempt),
			)
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(schedule.Delay(attempt)):
		}
	}
}

// assemble groups fragments by id, merges split ranges, filters unknown
// categories, and resequences every observed category to a contiguous 1..K.
func (e *Engine) assemble(frags []fragment) []models.Highlight {
	highlights := mergeFragments(frags)

	kept := highlights[:0]
	for _, h := range highlights {
		if !e.categories.Valid(h.Category) {
			// Unknown category: the highlight is dropped, not defaulted.
			continue
		}
		kept = append(kept, h)
	}
	highlights = kept

	sort.SliceStable(highlights, func(i, j int) bool {
		if highlights[i].Category != highlights[j].Category {
			return highlights[i].Category < highlights[j].Category
		}
		return highlights[i].Number < highlights[j].Number
	})

	// Persisted content may carry historical gaps from deletions made by an
	// older encoding, or duplicated numbers from corrupt legacy input. Numbers
	// are reassigned positionally; an old->new number plan cannot split a
	// duplicate. The stable sort above keeps document order among equals.
	seq := make(map[models.Category]int)
	for i := range highlights {
		seq[highlights[i].Category]++
		highlights[i].Number = seq[highlights[i].Category]
	}
	return highlights
}

func mergeSidecar(highlights []models.Highlight, sidecar []models.HighlightSidecar) {
	if len(sidecar) == 0 {
		return
	}
	byID := make(map[string]models.HighlightSidecar, len(sidecar))
	for _, s := range sidecar {
		byID[s.ID] = s
	}
	for i := range highlights {
		if s, ok := byID[highlights[i].ID]; ok {
			highlights[i].Commentary = s.Commentary
			highlights[i].IsExpanded = s.IsExpanded
		}
	}
}
