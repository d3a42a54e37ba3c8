// Package inspection serves cursor inspections and batch document checks
// to the CLI and the MCP server. It owns the session store, so repeated
// requests against an unchanged document reuse its parse and type cache.
package inspection

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/zap"

	"github.com/panbanda/pqinspect/internal/cache"
	"github.com/panbanda/pqinspect/pkg/analyzer"
	"github.com/panbanda/pqinspect/pkg/analyzer/autocomplete"
	"github.com/panbanda/pqinspect/pkg/analyzer/scope"
	"github.com/panbanda/pqinspect/pkg/analyzer/typeinfer"
	"github.com/panbanda/pqinspect/pkg/ast"
	"github.com/panbanda/pqinspect/pkg/config"
	"github.com/panbanda/pqinspect/pkg/library"
	"github.com/panbanda/pqinspect/pkg/parser"
)

// Service orchestrates parsing, session caching and inspection.
type Service struct {
	config   *config.Config
	library  *library.Library
	store    *cache.Store
	logger   *zap.Logger
	settings analyzer.Settings
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// WithLibrary replaces the library built from the configuration.
func WithLibrary(lib *library.Library) Option {
	return func(s *Service) {
		s.library = lib
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New creates an inspection service. Unless WithLibrary is given, the
// library is the embedded standard definitions (when enabled) merged with
// every configured definition file.
func New(opts ...Option) (*Service, error) {
	s := &Service{}
	for _, opt := range opts {
		opt(s)
	}
	if s.config == nil {
		s.config = config.LoadOrDefault()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.library == nil {
		lib, err := LoadLibrary(s.config.Library)
		if err != nil {
			return nil, err
		}
		s.library = lib
	}

	cc := s.config.Cache
	s.store = cache.New(cc.Capacity, time.Duration(cc.TTLMinutes)*time.Minute, cc.Enabled)
	s.settings = settingsFor(s.config, s.library, s.logger)
	return s, nil
}

// LoadLibrary builds the library described by cfg.
func LoadLibrary(cfg config.LibraryConfig) (*library.Library, error) {
	lib := library.New()
	if cfg.Standard {
		std, err := library.Standard()
		if err != nil {
			return nil, fmt.Errorf("standard library: %w", err)
		}
		lib.Merge(std)
	}
	for _, path := range cfg.Paths {
		extra, err := library.Load(path)
		if err != nil {
			return nil, err
		}
		lib.Merge(extra)
	}
	return lib, nil
}

func settingsFor(cfg *config.Config, lib *library.Library, logger *zap.Logger) analyzer.Settings {
	settings := analyzer.DefaultSettings()
	settings.Inference.Strategy = typeinfer.Strategy(cfg.Inference.Strategy)
	settings.Inference.Logger = logger
	if lib.Len() > 0 {
		settings.Inference.Resolver = lib
	}
	settings.Completion = autocomplete.Options{
		MaxItems:       cfg.Autocomplete.MaxItems,
		BoostThreshold: cfg.Autocomplete.BoostThreshold,
		PrefixSize:     cfg.Autocomplete.PrefixSize,
	}
	if cfg.Autocomplete.IncludeLibrary {
		settings.Library = lib.Candidates()
	}
	return settings
}

// Config returns the service configuration.
func (s *Service) Config() *config.Config {
	return s.config
}

// Library returns the host library.
func (s *Service) Library() *library.Library {
	return s.library
}

// CacheStats reports session store activity.
func (s *Service) CacheStats() cache.Stats {
	return s.store.Stats()
}

// Document is the text of one document version.
type Document struct {
	URI  uri.URI
	Text string
}

// NewDocument wraps in-memory text under a file name.
func NewDocument(name, text string) Document {
	return Document{URI: uri.File(name), Text: text}
}

// ReadDocument reads a document from disk.
func ReadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read document: %w", err)
	}
	return Document{URI: uri.File(path), Text: string(data)}, nil
}

// Result is the serializable outcome of one inspection.
type Result struct {
	URI         string       `json:"uri" toon:"uri"`
	Line        int          `json:"line" toon:"line"`
	Character   int          `json:"character" toon:"character"`
	LeafKind    string       `json:"leafKind,omitempty" toon:"leafKind,omitempty"`
	NodeKind    string       `json:"nodeKind,omitempty" toon:"nodeKind,omitempty"`
	Identifier  string       `json:"identifier,omitempty" toon:"identifier,omitempty"`
	PartialText string       `json:"partialText,omitempty" toon:"partialText,omitempty"`
	InKeySlot   bool         `json:"inKeySlot,omitempty" toon:"inKeySlot,omitempty"`
	Type        string       `json:"type,omitempty" toon:"type,omitempty"`
	Hover       string       `json:"hover,omitempty" toon:"hover,omitempty"`
	FieldTarget string       `json:"fieldTarget,omitempty" toon:"fieldTarget,omitempty"`
	SyntaxError string       `json:"syntaxError,omitempty" toon:"syntaxError,omitempty"`
	Scope       []Binding    `json:"scope,omitempty" toon:"scope,omitempty"`
	Completions []Completion `json:"completions,omitempty" toon:"completions,omitempty"`
	Cached      bool         `json:"cached" toon:"cached"`
}

// Binding is one visible identifier with its inferred type.
type Binding struct {
	Name      string `json:"name" toon:"name"`
	Kind      string `json:"kind" toon:"kind"`
	Type      string `json:"type,omitempty" toon:"type,omitempty"`
	Recursive bool   `json:"recursive,omitempty" toon:"recursive,omitempty"`
}

// Completion is one ranked completion.
type Completion struct {
	Label string  `json:"label" toon:"label"`
	Kind  string  `json:"kind" toon:"kind"`
	Score float64 `json:"score" toon:"score"`
	Type  string  `json:"type,omitempty" toon:"type,omitempty"`
}

// Inspect inspects doc at pos. A document with a syntax error is still
// inspected against its partial graph; the error is reported on the
// result.
func (s *Service) Inspect(ctx context.Context, doc Document, pos ast.Position) (*Result, error) {
	sess, hit := s.store.Session(string(doc.URI), []byte(doc.Text), s.parseFunc(parser.New(), doc.URI.Filename()))
	sess.Lock()
	defer sess.Unlock()

	in, err := analyzer.Inspect(ctx, s.settings, sess.Graph, pos, sess.Types)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("inspect",
		zap.String("uri", string(doc.URI)),
		zap.Stringer("position", pos),
		zap.Bool("cached", hit),
	)
	return newResult(doc, pos, sess, in, hit), nil
}

func (s *Service) parseFunc(p *parser.Parser, path string) cache.ParseFunc {
	return func(content []byte) (*ast.Graph, error) {
		res := p.Parse(content, path)
		if res.Err != nil {
			return res.Graph, res.Err
		}
		return res.Graph, nil
	}
}

func newResult(doc Document, pos ast.Position, sess *cache.Session, in *analyzer.Inspection, hit bool) *Result {
	r := &Result{
		URI:       string(doc.URI),
		Line:      pos.Line,
		Character: pos.Character,
		LeafKind:  string(in.Active.LeafKind),
		Cached:    hit,
	}
	if sess.ParseErr != nil {
		r.SyntaxError = sess.ParseErr.Error()
	}
	if in.Active.InBounds() {
		r.NodeKind = string(in.Active.Leaf().Kind())
		r.PartialText = in.Active.PartialText()
		r.InKeySlot = in.Active.IsInKeySlot
	}
	if id := in.Active.IdentifierInclusive; id != nil {
		r.Identifier = id.Literal
	}
	if in.Type != nil {
		r.Type = in.Type.String()
		r.Hover = in.Hover()
	}
	if in.FieldTarget != nil {
		r.FieldTarget = in.FieldTarget.String()
	}
	if in.Scope != nil {
		in.Scope.Each(func(key string, item scope.Item) {
			b := Binding{Name: key, Kind: string(item.Kind), Recursive: item.IsRecursive}
			if t, ok := in.ScopeTypes[key]; ok && t != nil {
				b.Type = t.String()
			}
			r.Scope = append(r.Scope, b)
		})
	}
	for _, item := range in.Completions {
		r.Completions = append(r.Completions, Completion{
			Label: item.Label,
			Kind:  KindName(item.Kind),
			Score: item.Score,
			Type:  item.TypeText,
		})
	}
	return r
}

// KindName names the completion kinds the engine produces.
func KindName(kind protocol.CompletionItemKind) string {
	switch kind {
	case protocol.CompletionItemKindKeyword:
		return "keyword"
	case protocol.CompletionItemKindFunction:
		return "function"
	case protocol.CompletionItemKindField:
		return "field"
	case protocol.CompletionItemKindVariable:
		return "variable"
	case protocol.CompletionItemKindTypeParameter:
		return "type"
	case protocol.CompletionItemKindConstant:
		return "constant"
	default:
		return "text"
	}
}

// IsUnavailable reports whether err means the position could not be
// inspected, as opposed to cancellation or an I/O failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, analyzer.ErrUnavailable)
}

// sortReports orders reports by path.
func sortReports(reports []DocumentReport) {
	sort.Slice(reports, func(i, j int) bool { return reports[i].Path < reports[j].Path })
}
