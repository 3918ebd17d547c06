// Package collector loads raw complaints from the mock source exports in a
// data directory and normalizes them into model.ComplaintRecord values.
package collector

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Vini334/ReclamaAI/internal/model"
)

// Source export file names inside the data directory.
const (
	ReclameAquiFile = "reclame_aqui.json"
	JiraFile        = "jira_issues.json"
	ChatFile        = "chat_transcripts.json"
	PhoneFile       = "phone_transcripts.json"
	EmailFile       = "support_emails.json"
)

// Collector reads source exports from a directory. Parsed files are cached
// for the lifetime of the Collector; call ClearCache to pick up edits.
type Collector struct {
	dir string
	now func() time.Time

	mu    sync.Mutex
	cache map[string][]model.ComplaintRecord
}

// New returns a Collector over dir.
func New(dir string) *Collector {
	return &Collector{
		dir:   dir,
		now:   time.Now,
		cache: make(map[string][]model.ComplaintRecord),
	}
}

// Dir returns the data directory.
func (c *Collector) Dir() string { return c.dir }

// loader describes how one export file is decoded.
type loader struct {
	file   string
	decode func(data []byte, now time.Time) ([]model.ComplaintRecord, error)
}

// loaders are visited in this order when all sources are requested.
var loaders = []loader{
	{ReclameAquiFile, decodeReclameAqui},
	{JiraFile, decodeJira},
	{ChatFile, decodeChat},
	{PhoneFile, decodePhone},
	{EmailFile, decodeEmail},
}

// fileFor returns the export file holding records of source.
func fileFor(source model.ComplaintSource) string {
	switch source {
	case model.SourceReclameAqui:
		return ReclameAquiFile
	case model.SourceJira:
		return JiraFile
	case model.SourceChat, model.SourceWhatsApp:
		return ChatFile
	case model.SourcePhone:
		return PhoneFile
	case model.SourceEmail:
		return EmailFile
	}
	return ""
}

// Load returns complaints from every source, or only from source when it is
// non-empty, truncated to limit when limit is positive. Missing export files
// are skipped with a warning.
func (c *Collector) Load(ctx context.Context, source model.ComplaintSource, limit int) ([]model.ComplaintRecord, error) {
	if source != "" && !source.Valid() {
		return nil, eris.Errorf("collector: unknown source %q", source)
	}

	var out []model.ComplaintRecord
	for _, l := range loaders {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "collector: load")
		}
		if source != "" && fileFor(source) != l.file {
			continue
		}

		recs, err := c.loadFile(l)
		if err != nil {
			return nil, err
		}
		for _, r := range recs {
			if source != "" && r.Source != source {
				continue
			}
			out = append(out, r)
		}
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	zap.L().Debug("collector: loaded complaints",
		zap.String("source", string(source)),
		zap.Int("count", len(out)),
	)
	return out, nil
}

// FindByExternalID returns the first complaint whose external ID matches.
func (c *Collector) FindByExternalID(ctx context.Context, externalID string) (*model.ComplaintRecord, bool, error) {
	all, err := c.Load(ctx, "", 0)
	if err != nil {
		return nil, false, err
	}
	for i := range all {
		if all[i].ExternalID == externalID {
			return &all[i], true, nil
		}
	}
	return nil, false, nil
}

// Stats counts available complaints per source plus a "total" entry.
func (c *Collector) Stats(ctx context.Context) (map[string]int, error) {
	all, err := c.Load(ctx, "", 0)
	if err != nil {
		return nil, err
	}
	stats := map[string]int{"total": len(all)}
	for _, s := range model.Sources {
		stats[string(s)] = 0
	}
	for _, r := range all {
		stats[string(r.Source)]++
	}
	return stats, nil
}

// ClearCache drops every parsed file.
func (c *Collector) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string][]model.ComplaintRecord)
}

func (c *Collector) loadFile(l loader) ([]model.ComplaintRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if recs, ok := c.cache[l.file]; ok {
		return recs, nil
	}

	path := filepath.Join(c.dir, l.file)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		zap.L().Warn("collector: source export missing", zap.String("path", path))
		c.cache[l.file] = nil
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "collector: read %s", l.file)
	}

	recs, err := l.decode(data, c.now().UTC())
	if err != nil {
		return nil, eris.Wrapf(err, "collector: decode %s", l.file)
	}
	c.cache[l.file] = recs
	return recs, nil
}

// Export timestamps come with or without a zone.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(raw string, now time.Time) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return now
}
