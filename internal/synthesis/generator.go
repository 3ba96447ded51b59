package synthesis

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/54b3r/kscan/internal/api"
	"github.com/54b3r/kscan/internal/budget"
	"github.com/54b3r/kscan/internal/logging"
	"github.com/54b3r/kscan/internal/search"
)

// DefaultConcurrency bounds parallel chat-model calls per synthesis.
const DefaultConcurrency = 4

const summarySystem = "You are an AI assistant that summarizes texts."

// Records is the read-only index access the generator needs.
type Records interface {
	Lookup(ctx context.Context, ids []string) ([]api.Record, error)
	FirstChunk(ctx context.Context, baseName string) (*api.Record, error)
}

// GeneratorConfig configures a Generator.
type GeneratorConfig struct {
	// Records resolves document IDs to full index records.
	Records Records
	// Model produces every summary and bibliography.
	Model model.BaseChatModel
	// Concurrency bounds parallel model calls (default DefaultConcurrency).
	Concurrency int
	// MaxPromptTokens bounds each prompt (default budget.DefaultMaxPromptTokens).
	MaxPromptTokens int
}

// Generator builds knowledge scans in-process. Generation itself is always
// delegated to the configured chat model.
type Generator struct {
	records     Records
	model       model.BaseChatModel
	concurrency int
	maxTokens   int
	now         func() time.Time
	newID       func() string
}

// NewGenerator returns a Generator for cfg.
func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
	if cfg.Records == nil || cfg.Model == nil {
		return nil, fmt.Errorf("synthesis: generator needs both records and a model")
	}
	g := &Generator{
		records:     cfg.Records,
		model:       cfg.Model,
		concurrency: cfg.Concurrency,
		maxTokens:   cfg.MaxPromptTokens,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
	if g.concurrency <= 0 {
		g.concurrency = DefaultConcurrency
	}
	if g.maxTokens <= 0 {
		g.maxTokens = budget.DefaultMaxPromptTokens
	}
	return g, nil
}

// group is the set of chunks belonging to one source PDF.
type group struct {
	pdfName string
	records []api.Record
}

// groupByPDF groups records by BaseName, in first-seen order.
func groupByPDF(records []api.Record) []group {
	var groups []group
	index := make(map[string]int)
	for _, r := range records {
		name := search.BaseName(r.FileName)
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, group{pdfName: name})
		}
		groups[i].records = append(groups[i].records, r)
	}
	return groups
}

// Synthesize builds a knowledge scan for req: one summary and one
// bibliography per source PDF, then an overall summary.
func (g *Generator) Synthesize(ctx context.Context, req *api.SynthesisRequest) (*api.KnowledgeScan, error) {
	if err := api.Validate(req); err != nil {
		return nil, err
	}
	log := logging.FromContext(ctx)
	start := time.Now()

	records, err := g.records.Lookup(ctx, req.Documents)
	if err != nil {
		return nil, fmt.Errorf("synthesis: lookup: %w", err)
	}
	groups := groupByPDF(records)

	summaries := make([]api.CombinedSummary, len(groups))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for i, grp := range groups {
		eg.Go(func() error {
			texts := make([]string, 0, len(grp.records))
			for _, r := range grp.records {
				texts = append(texts, r.Summary)
			}
			prefix := fmt.Sprintf("Can you please summarize these documents based on the user query: '%s'?", req.Query)
			summary, err := g.generate(egCtx, summarySystem, prefix, texts)
			if err != nil {
				return fmt.Errorf("summarise %s: %w", grp.pdfName, err)
			}
			summaries[i] = api.CombinedSummary{
				PDFName:      grp.pdfName,
				Bibliography: g.bibliography(egCtx, grp.pdfName),
				Summary:      summary,
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("synthesis: %w", err)
	}

	overall, err := g.overall(ctx, req.Query, summaries)
	if err != nil {
		return nil, fmt.Errorf("synthesis: overall summary: %w", err)
	}

	scan := &api.KnowledgeScan{
		ID:                g.newID(),
		Query:             req.Query,
		GeneralNotes:      GeneralNotes(req.Query),
		CombinedSummaries: summaries,
		OverallSummary:    overall,
		Keywords:          collect(records, func(r api.Record) []string { return r.Keywords }),
		ResourcesSearched: collect(records, func(r api.Record) []string { return []string{r.Resource} }),
		DocIDs:            slices.Clone(req.Documents),
		CreatedAt:         g.now(),
	}

	log.Info("synthesis: knowledge scan generated",
		slog.String("scan_id", scan.ID),
		slog.Int("documents", len(req.Documents)),
		slog.Int("pdfs", len(groups)),
		slog.Duration("duration", time.Since(start)),
	)
	return scan, nil
}

// Bibliographies returns one formatted entry per source PDF of req.Documents.
func (g *Generator) Bibliographies(ctx context.Context, req *api.BibliographyRequest) (*api.BibliographyResponse, error) {
	if err := api.Validate(req); err != nil {
		return nil, err
	}
	records, err := g.records.Lookup(ctx, req.Documents)
	if err != nil {
		return nil, fmt.Errorf("synthesis: lookup: %w", err)
	}
	groups := groupByPDF(records)

	out := make([]string, len(groups))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for i, grp := range groups {
		eg.Go(func() error {
			out[i] = g.bibliography(egCtx, grp.pdfName)
			return nil
		})
	}
	_ = eg.Wait()
	return &api.BibliographyResponse{Bibliographies: out}, nil
}

// GeneralNotes is the fixed preamble of every knowledge scan.
func GeneralNotes(query string) string {
	return fmt.Sprintf("Generated based on query: %s. This scan covers documents from various sources and provides a summarized overview.", query)
}

// bibliography extracts a citation from the PDF's first chunk. Failures
// degrade to NoBibliography; a missing citation never fails a scan.
func (g *Generator) bibliography(ctx context.Context, pdfName string) string {
	log := logging.FromContext(ctx)

	chunk, err := g.records.FirstChunk(ctx, pdfName)
	if err != nil {
		log.Warn("synthesis: first chunk lookup failed", slog.String("pdf", pdfName), slog.String("error", err.Error()))
		return NoBibliography
	}
	if chunk == nil || chunk.ContentText == "" {
		log.Debug("synthesis: no first chunk", slog.String("pdf", pdfName))
		return NoBibliography
	}

	reply, err := g.complete(ctx, bibliographySystem, bibliographyPrompt(chunk.ContentText))
	if err != nil {
		log.Warn("synthesis: bibliography extraction failed", slog.String("pdf", pdfName), slog.String("error", err.Error()))
		return NoBibliography
	}
	if entry := ParseBibliography(reply).String(); entry != "" {
		return entry
	}
	return NoBibliography
}

// overall combines the per-PDF summaries. A single PDF's summary is reused
// as-is.
func (g *Generator) overall(ctx context.Context, query string, summaries []api.CombinedSummary) (string, error) {
	switch len(summaries) {
	case 0:
		return "", nil
	case 1:
		return summaries[0].Summary, nil
	}
	texts := make([]string, 0, len(summaries))
	for _, s := range summaries {
		texts = append(texts, s.PDFName+": "+s.Summary)
	}
	prefix := fmt.Sprintf("Can you please write an overall summary of these document summaries based on the user query: '%s'?", query)
	return g.generate(ctx, summarySystem, prefix, texts)
}

// generate sends prefix followed by as many texts as fit in the prompt budget.
func (g *Generator) generate(ctx context.Context, system, prefix string, texts []string) (string, error) {
	room := g.maxTokens - budget.Estimate(system) - budget.Estimate(prefix)
	kept := budget.Fit(texts, room)
	if len(kept) == 0 && len(texts) > 0 {
		kept = []string{budget.Truncate(texts[0], room)}
	}
	if dropped := len(texts) - len(kept); dropped > 0 {
		logging.FromContext(ctx).Warn("synthesis: prompt over budget, dropping texts",
			slog.Int("dropped", dropped), slog.Int("max_tokens", g.maxTokens))
	}
	return g.complete(ctx, system, prefix+strings.Join(kept, " "))
}

func (g *Generator) complete(ctx context.Context, system, prompt string) (string, error) {
	msg, err := g.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(prompt),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(msg.Content), nil
}

// collect unions the non-empty strings selected from records, sorted.
func collect(records []api.Record, pick func(api.Record) []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range records {
		for _, v := range pick(r) {
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out
}
