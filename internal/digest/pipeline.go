// Package digest implements the four-stage transformation that turns a flat
// message log into a formatted digest: preprocess, group, summarize, format.
// Each stage is a pure function of its input; no state is carried between runs.
package digest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/edgard/digestbot/internal/config"
	"github.com/edgard/digestbot/internal/database"
)

// NoMessagesDigest is returned when nothing survives preprocessing. The
// summarizer is never invoked in that case.
const NoMessagesDigest = "No messages to summarize for today."

// Summarizer is the external text-generation capability consumed by the
// summarize stage.
type Summarizer interface {
	Summarize(ctx context.Context, instruction, text string) (string, error)
}

// Document is a normalized message produced by the preprocess stage.
type Document struct {
	Content   string
	Author    string
	ChannelID string
	Timestamp time.Time
}

// ChannelGroups partitions documents by channel while remembering first-seen
// channel order, so the rendered digest is deterministic for a given input
// sequence.
type ChannelGroups struct {
	order []string
	docs  map[string][]Document
}

func newChannelGroups() *ChannelGroups {
	return &ChannelGroups{docs: make(map[string][]Document)}
}

func (g *ChannelGroups) add(doc Document) {
	if _, ok := g.docs[doc.ChannelID]; !ok {
		g.order = append(g.order, doc.ChannelID)
	}
	g.docs[doc.ChannelID] = append(g.docs[doc.ChannelID], doc)
}

// Channels returns the channel IDs in first-seen order.
func (g *ChannelGroups) Channels() []string { return g.order }

// Documents returns the documents of one channel in insertion order.
func (g *ChannelGroups) Documents(channelID string) []Document { return g.docs[channelID] }

// Len returns the number of channels.
func (g *ChannelGroups) Len() int { return len(g.order) }

// ChannelSummaries holds the per-channel and cross-channel summary text of
// one run.
type ChannelSummaries struct {
	order        []string
	byChannel    map[string]string
	CrossChannel string
}

// Summary returns the summary text for one channel.
func (s *ChannelSummaries) Summary(channelID string) string { return s.byChannel[channelID] }

// RunStats carries the aggregate counts rendered in the digest footer.
type RunStats struct {
	TotalMessages      int
	ActiveChannels     int
	UniqueContributors int
}

// Pipeline runs the staged digest transformation. It is constructed once from
// configuration and a summarizer and is safe to reuse across runs.
type Pipeline struct {
	summarizer      Summarizer
	minLength       int
	excludedAuthors map[string]struct{}
	logger          *slog.Logger
}

// NewPipeline creates a digest pipeline from the preprocessing configuration
// and the summarizer capability.
func NewPipeline(cfg config.DigestConfig, summarizer Summarizer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{
		summarizer:      summarizer,
		minLength:       cfg.MinMessageLength,
		excludedAuthors: cfg.ExcludedAuthorSet(),
		logger:          logger.With("component", "digest_pipeline"),
	}
}

// Preprocess filters out messages shorter than the configured minimum and
// messages from excluded authors, normalizing the rest into documents.
func (p *Pipeline) Preprocess(messages []database.Message) []Document {
	p.logger.Debug("Starting preprocessing", "message_count", len(messages))

	docs := make([]Document, 0, len(messages))
	for _, msg := range messages {
		if len([]rune(msg.Content)) < p.minLength {
			continue
		}
		if _, excluded := p.excludedAuthors[msg.Author]; excluded {
			continue
		}
		docs = append(docs, Document{
			Content:   msg.Content,
			Author:    msg.Author,
			ChannelID: msg.ChannelID,
			Timestamp: msg.Timestamp,
		})
	}

	p.logger.Debug("Preprocessing complete", "documents", len(docs), "dropped", len(messages)-len(docs))
	return docs
}

// Group partitions documents by channel ID. Insertion order is preserved
// within a channel and channels keep their first-seen order.
func (p *Pipeline) Group(docs []Document) *ChannelGroups {
	p.logger.Debug("Grouping documents", "document_count", len(docs))

	groups := newChannelGroups()
	for _, doc := range docs {
		groups.add(doc)
	}
	return groups
}

// Summarize produces one summary per channel plus a cross-channel synthesis.
// Any summarizer failure fails the whole stage; no partial summaries escape.
func (p *Pipeline) Summarize(ctx context.Context, groups *ChannelGroups) (*ChannelSummaries, error) {
	p.logger.Debug("Starting summarization", "channel_count", groups.Len())

	summaries := &ChannelSummaries{byChannel: make(map[string]string, groups.Len())}

	var allLines []string
	for _, channelID := range groups.Channels() {
		lines := make([]string, 0, len(groups.Documents(channelID)))
		for _, doc := range groups.Documents(channelID) {
			lines = append(lines, fmt.Sprintf("%s: %s", doc.Author, doc.Content))
		}
		allLines = append(allLines, lines...)

		text := strings.Join(lines, "\n")
		summary, err := p.summarizer.Summarize(ctx, channelInstruction(channelID), text)
		if err != nil {
			return nil, fmt.Errorf("failed to summarize channel %s: %w", channelID, err)
		}

		summaries.order = append(summaries.order, channelID)
		summaries.byChannel[channelID] = summary
	}

	crossSummary, err := p.summarizer.Summarize(ctx, crossChannelInstruction, strings.Join(allLines, "\n"))
	if err != nil {
		return nil, fmt.Errorf("failed to summarize across channels: %w", err)
	}
	summaries.CrossChannel = crossSummary

	p.logger.Debug("Summarization complete", "channel_count", groups.Len())
	return summaries, nil
}

// Format renders the final digest: a dated header, per-channel sections in
// group order, then the aggregate overview with the cross-channel summary.
func (p *Pipeline) Format(now time.Time, summaries *ChannelSummaries, stats RunStats) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Daily Digest - %s\n\n", now.Format("2006-01-02")))

	for _, channelID := range summaries.order {
		sb.WriteString(fmt.Sprintf("Channel ID: %s\n", channelID))
		sb.WriteString(summaries.byChannel[channelID])
		sb.WriteString("\n\n")
	}

	sb.WriteString("Daily Activity Overview:\n")
	sb.WriteString(fmt.Sprintf("- Total Messages: %d\n", stats.TotalMessages))
	sb.WriteString(fmt.Sprintf("- Active Channels: %d\n", stats.ActiveChannels))
	sb.WriteString(fmt.Sprintf("- Unique Contributors: %d\n", stats.UniqueContributors))

	sb.WriteString("\nOverall Discussion:\n")
	sb.WriteString(summaries.CrossChannel)

	return strings.TrimSpace(sb.String())
}

// Run executes the full pipeline over the given messages. It returns the
// formatted digest and the aggregate stats, or an error when any summarizer
// call fails; a failed run yields no digest text at all.
func (p *Pipeline) Run(ctx context.Context, messages []database.Message, now time.Time) (string, *RunStats, error) {
	docs := p.Preprocess(messages)
	if len(docs) == 0 {
		p.logger.Info("No documents after preprocessing, skipping summarization")
		return NoMessagesDigest, &RunStats{}, nil
	}

	groups := p.Group(docs)

	stats := RunStats{
		TotalMessages:  len(docs),
		ActiveChannels: groups.Len(),
	}
	contributors := make(map[string]struct{})
	for _, doc := range docs {
		contributors[doc.Author] = struct{}{}
	}
	stats.UniqueContributors = len(contributors)

	summaries, err := p.Summarize(ctx, groups)
	if err != nil {
		return "", nil, err
	}

	return p.Format(now, summaries, stats), &stats, nil
}
