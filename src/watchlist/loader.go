// Package watchlist loads the daily focus list and its static per-symbol context.
package watchlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"intradaybot/src/model"
	"intradaybot/src/utils"
)

var ErrNoWatchlist = errors.New("no watchlist file found")

var flatFields = map[string]struct{}{
	"sector": {}, "industry": {}, "price": {}, "change_pct": {}, "gap_pct": {},
	"rel_volume": {}, "avg_volume_3m": {}, "float_shares": {}, "short_float_pct": {},
	"pe": {}, "week52_pos": {}, "earnings_date": {}, "analyst_recom": {}, "tags": {},
	"tier": {}, "score": {},
}

var featureFields = map[string]struct{}{
	"relvol": {}, "avgvol": {}, "float_band": {}, "gap": {}, "change": {},
	"after_hours": {}, "52w_pos": {}, "short_float": {}, "analyst": {},
	"insider_inst": {}, "news_fresh": {},
}

// FocusList is one loaded watchlist. Ranks are 1-based in file order.
type FocusList struct {
	RunID      string
	RunDate    string
	SourcePath string
	Symbols    []string
	Context    map[string]model.ContextFields
	Ranks      map[string]int
}

// Store persists a loaded run; implemented by repository.WatchlistRepository.
type Store interface {
	SaveRun(ctx context.Context, run model.WatchlistRun, items []model.WatchlistItem) error
}

type Config struct {
	File      string
	Glob      string
	SymbolKey string
	Location  *time.Location
}

type Loader struct {
	cfg   Config
	store Store
	log   *logger.Entry
	now   func() time.Time
	newID func() string
}

// NewLoader returns a loader; store may be nil to skip persistence.
func NewLoader(cfg Config, store Store, log *logger.Entry) *Loader {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}
	if cfg.SymbolKey == "" {
		cfg.SymbolKey = "symbol"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Loader{
		cfg:   cfg,
		store: store,
		log:   log.WithField("component", "watchlist"),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// ResolvePath returns file when it exists, otherwise the last match of glob
// in lexical order.
func ResolvePath(file, glob string) (string, error) {
	if file != "" {
		if _, err := os.Stat(file); err == nil {
			return file, nil
		}
	}
	if glob != "" {
		matches, err := filepath.Glob(glob)
		if err != nil {
			return "", fmt.Errorf("watchlist glob %q: %w", glob, err)
		}
		if len(matches) > 0 {
			sort.Strings(matches)
			return matches[len(matches)-1], nil
		}
	}
	return "", ErrNoWatchlist
}

// Load reads path (or the configured file/glob when empty), normalizes the
// entries and records the run.
func (l *Loader) Load(ctx context.Context, path string) (*FocusList, error) {
	if path == "" {
		var err error
		if path, err = ResolvePath(l.cfg.File, l.cfg.Glob); err != nil {
			return nil, err
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read watchlist: %w", err)
	}
	raw, err := decode(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("decode watchlist %s: %w", path, err)
	}

	now := l.now()
	focus := &FocusList{
		RunID:      l.newID(),
		RunDate:    utils.RunDate(now, l.cfg.Location),
		SourcePath: path,
		Context:    make(map[string]model.ContextFields),
		Ranks:      make(map[string]int),
	}

	symbolKey := strings.ToLower(l.cfg.SymbolKey)
	var items []model.WatchlistItem
	for _, entry := range raw {
		normalized := lowerKeys(entry)
		symbol, _ := normalized[symbolKey].(string)
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			l.log.WithField("entry", entry).Warn("skipping entry missing symbol")
			continue
		}
		if _, dup := focus.Ranks[symbol]; dup {
			l.log.WithField("symbol", symbol).Info("duplicate symbol, keeping first entry")
			continue
		}

		focus.Symbols = append(focus.Symbols, symbol)
		focus.Ranks[symbol] = len(focus.Symbols)
		focus.Context[symbol] = flatten(normalized)

		payload, _ := json.Marshal(entry)
		items = append(items, model.WatchlistItem{
			RunID:       focus.RunID,
			Symbol:      symbol,
			Rank:        focus.Ranks[symbol],
			ContextJSON: string(payload),
		})
	}

	if l.store != nil {
		run := model.WatchlistRun{
			RunID:      focus.RunID,
			RunDate:    focus.RunDate,
			SourcePath: path,
			Symbols:    len(focus.Symbols),
			LoadedTs:   utils.ToISO(now.Unix()),
		}
		if err := l.store.SaveRun(ctx, run, items); err != nil {
			return nil, fmt.Errorf("save watchlist run: %w", err)
		}
	}

	l.log.WithFields(logger.Fields{"path": path, "symbols": len(focus.Symbols), "run_id": focus.RunID}).
		Info("watchlist loaded")
	return focus, nil
}

func decode(data []byte, ext string) ([]map[string]interface{}, error) {
	var out []map[string]interface{}
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &out); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("watchlist must be a list of objects: %w", err)
		}
	}
	return out, nil
}

func lowerKeys(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[strings.ToLower(k)] = v
	}
	return out
}

func flatten(entry map[string]interface{}) model.ContextFields {
	ctx := model.ContextFields{}
	for key, val := range entry {
		if _, ok := flatFields[key]; ok {
			if cv, ok := contextValue(val); ok {
				ctx[key] = cv
			}
		}
	}
	features, ok := entry["features"].(map[string]interface{})
	if !ok {
		return ctx
	}
	for key, val := range lowerKeys(features) {
		if _, ok := featureFields[key]; ok {
			if cv, ok := contextValue(val); ok {
				ctx[key] = cv
			}
		}
	}
	return ctx
}

func contextValue(v interface{}) (model.ContextValue, bool) {
	switch t := v.(type) {
	case nil:
		return model.ContextValue{}, false
	case float64:
		return model.NumValue(t), true
	case int:
		return model.NumValue(float64(t)), true
	case int64:
		return model.NumValue(float64(t)), true
	case bool:
		return model.TextValue(strconv.FormatBool(t)), true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return model.NumValue(f), true
		}
		return model.TextValue(t), true
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, fmt.Sprint(p))
		}
		return model.TextValue(strings.Join(parts, ",")), true
	default:
		return model.TextValue(fmt.Sprint(t)), true
	}
}
