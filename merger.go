package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// MergeProcessor handles the main workflow: stage archives, enumerate
// sources, initialize the combined output, append every source, clean up,
// and finalize the root element. Strictly sequential; the first failing step
// aborts the run and partial state is left as-is.
type MergeProcessor struct {
	settings *Settings
	baseDir  string
	newRoot  string

	stager   *ArchiveStager
	files    *Enumerator
	rewriter *RootRewriter
	handlers []SourceHandler

	now func() time.Time
}

// NewMergeProcessor creates a processor operating below baseDir. A non-empty
// newRoot selects XML re-rooting mode; an empty one selects flat
// concatenation.
func NewMergeProcessor(baseDir, newRoot string, settings *Settings) *MergeProcessor {
	mp := &MergeProcessor{
		settings: settings,
		baseDir:  baseDir,
		newRoot:  newRoot,
		stager:   NewArchiveStager(baseDir),
		files:    NewEnumerator(baseDir, settings.Output.CombinedMarker),
		rewriter: &RootRewriter{},
		now:      time.Now,
	}

	if newRoot != "" {
		mp.AddHandler(&RecordHandler{splitter: NewRecordSplitter(settings)})
	}
	mp.AddHandler(&VerbatimHandler{})

	return mp
}

// AddHandler adds a source handler to the chain
func (mp *MergeProcessor) AddHandler(handler SourceHandler) {
	mp.handlers = append(mp.handlers, handler)
}

// Merge runs the full pipeline for one mask and returns the result report.
func (mp *MergeProcessor) Merge(ctx context.Context, mask string) (*MergeResult, error) {
	log.Printf("Staging archives for %q...", mask)
	stagedDirs, err := mp.stager.Stage(ctx, mask)
	if err != nil {
		return nil, err
	}
	if len(stagedDirs) > 0 {
		log.Printf("  → Extracted %d archive(s)", len(stagedDirs))
	}

	sources, err := mp.files.ListSources(mask)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no files match mask %q", mask)
	}

	output, err := mp.files.OutputName(mask, mp.now(), mp.settings.Output.TimestampFormat)
	if err != nil {
		return nil, err
	}
	debugLog("Combined output: %s", output)

	if err := mp.initOutput(output, sources[0]); err != nil {
		return nil, err
	}

	out, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening output file %s: %w", output, err)
	}
	defer out.Close()

	records := 0
	for i, source := range sources {
		log.Printf("[%d/%d] Adding: %s", i+1, len(sources), source)

		n, err := mp.appendSource(ctx, source, out)
		if err != nil {
			return nil, err
		}
		records += n

		if err := os.Remove(source); err != nil {
			return nil, fmt.Errorf("removing source %s: %w", source, err)
		}
	}

	for _, dir := range stagedDirs {
		if err := os.Remove(dir); err != nil {
			return nil, fmt.Errorf("removing staged directory %s: %w", dir, err)
		}
		debugLog("Removed staged directory %s", dir)
	}

	if mp.newRoot != "" {
		if _, err := io.WriteString(out, closingTag(mp.newRoot)); err != nil {
			return nil, fmt.Errorf("closing root element in %s: %w", output, err)
		}
	}
	if err := out.Sync(); err != nil {
		return nil, fmt.Errorf("finalizing output file %s: %w", output, err)
	}

	return &MergeResult{
		Output:   output,
		Sources:  len(sources),
		Archives: len(stagedDirs),
		Records:  records,
	}, nil
}

// initOutput creates the combined output file. In re-rooting mode it holds
// the rewritten header; otherwise it starts empty.
func (mp *MergeProcessor) initOutput(output, sample string) error {
	if mp.newRoot == "" {
		if err := os.WriteFile(output, nil, 0644); err != nil {
			return fmt.Errorf("creating output file %s: %w", output, err)
		}
		return nil
	}

	info, err := mp.rewriter.WriteHeader(output, mp.newRoot, sample)
	if err != nil {
		return err
	}
	log.Printf("  → Rewrote root <%s> as <%s>", info.OriginalRoot, sanitizeRootName(mp.newRoot))
	if info.Child != "" {
		log.Printf("  → Record element: <%s>", info.Child)
	}
	return nil
}

// appendSource consumes one source through the first handler that accepts it.
func (mp *MergeProcessor) appendSource(ctx context.Context, source string, out io.Writer) (int, error) {
	for _, handler := range mp.handlers {
		if handler.CanHandle(source) {
			return handler.Append(ctx, source, out)
		}
	}
	return 0, fmt.Errorf("no handler found for %s", source)
}
