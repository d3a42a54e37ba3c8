package inspection

import (
	"context"
	"errors"
	"os"

	"go.lsp.dev/uri"
	"go.uber.org/zap"

	"github.com/panbanda/pqinspect/internal/fileproc"
	"github.com/panbanda/pqinspect/pkg/analyzer/graph"
	"github.com/panbanda/pqinspect/pkg/analyzer/typeinfer"
	"github.com/panbanda/pqinspect/pkg/ast"
	"github.com/panbanda/pqinspect/pkg/parser"
	"github.com/panbanda/pqinspect/pkg/types"
)

// Document check statuses.
const (
	StatusOK          = "ok"
	StatusPartial     = "partial"
	StatusUnavailable = "unavailable"
	StatusError       = "error"
)

// CheckOptions configures a batch check.
type CheckOptions struct {
	// Workers bounds parallelism; zero picks a default.
	Workers    int
	OnProgress func()
}

// DocumentReport summarizes one checked document.
type DocumentReport struct {
	Path            string     `json:"path" toon:"path"`
	Status          string     `json:"status" toon:"status"`
	Error           string     `json:"error,omitempty" toon:"error,omitempty"`
	RootType        string     `json:"rootType,omitempty" toon:"rootType,omitempty"`
	Nodes           int        `json:"nodes" toon:"nodes"`
	NoneCount       int        `json:"noneCount" toon:"noneCount"`
	RecursiveGroups [][]string `json:"recursiveGroups,omitempty" toon:"recursiveGroups,omitempty"`
	// CentralBinding is the binding of the outermost container that its
	// siblings depend on most.
	CentralBinding string `json:"centralBinding,omitempty" toon:"centralBinding,omitempty"`
}

// CheckSummary totals a batch check.
type CheckSummary struct {
	Documents int `json:"documents" toon:"documents"`
	OK        int `json:"ok" toon:"ok"`
	Partial   int `json:"partial" toon:"partial"`
	Failed    int `json:"failed" toon:"failed"`
	WithNone  int `json:"withNone" toon:"withNone"`
	Recursive int `json:"recursive" toon:"recursive"`
}

// CheckReport is the outcome of a batch check, ordered by path.
type CheckReport struct {
	Documents []DocumentReport `json:"documents" toon:"documents"`
	Summary   CheckSummary     `json:"summary" toon:"summary"`
}

// Check parses and types every document in paths in parallel. Each
// document reports its syntax status, the type of its root expression,
// the groups of mutually recursive bindings and how many expressions
// typed as none. Unreadable documents are reported, not returned as
// errors; only cancellation fails the whole check.
func (s *Service) Check(ctx context.Context, paths []string, opts CheckOptions) (*CheckReport, error) {
	reports, errs := fileproc.MapFilesN(ctx, paths, opts.Workers, func(p *parser.Parser, path string) (DocumentReport, error) {
		return s.checkFile(ctx, p, path)
	}, opts.OnProgress)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if errs != nil {
		for _, pe := range errs.Errors {
			reports = append(reports, DocumentReport{Path: pe.Path, Status: StatusError, Error: pe.Err.Error()})
		}
	}
	sortReports(reports)

	report := &CheckReport{Documents: reports}
	for _, r := range reports {
		report.Summary.Documents++
		switch r.Status {
		case StatusOK:
			report.Summary.OK++
		case StatusPartial:
			report.Summary.Partial++
		default:
			report.Summary.Failed++
		}
		if r.NoneCount > 0 {
			report.Summary.WithNone++
		}
		if len(r.RecursiveGroups) > 0 {
			report.Summary.Recursive++
		}
	}
	s.logger.Info("checked documents",
		zap.Int("documents", report.Summary.Documents),
		zap.Int("failed", report.Summary.Failed),
	)
	return report, nil
}

func (s *Service) checkFile(ctx context.Context, p *parser.Parser, path string) (DocumentReport, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return DocumentReport{}, err
	}
	sess, _ := s.store.Session(string(uri.File(path)), content, s.parseFunc(p, path))
	sess.Lock()
	defer sess.Unlock()

	r := DocumentReport{Path: path, Status: StatusOK, Nodes: sess.Graph.Len()}
	if sess.ParseErr != nil {
		r.Status = StatusPartial
		r.Error = sess.ParseErr.Error()
	}
	if err := s.typeDocument(ctx, sess.Graph, sess.Types, &r); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return DocumentReport{}, err
		}
		s.logger.Warn("check unavailable", zap.String("path", path), zap.Error(err))
		r.Status = StatusUnavailable
		r.Error = err.Error()
	}
	return r, nil
}

// typeDocument infers every node of g and collects recursive binding
// groups from each let expression, record and section.
func (s *Service) typeDocument(ctx context.Context, g *ast.Graph, tc *typeinfer.Cache, r *DocumentReport) error {
	if _, ok := g.Root(); !ok {
		return nil
	}
	root, err := typeinfer.InferType(ctx, s.settings.Inference, g, g.RootID(), tc)
	if err != nil {
		return err
	}
	r.RootType = root.String()

	var ids []int
	g.Walk(g.RootID(), func(ref ast.NodeRef) bool {
		ids = append(ids, ref.ID())
		return true
	})
	for _, id := range ids {
		t, err := typeinfer.InferType(ctx, s.settings.Inference, g, id, tc)
		if err != nil {
			return err
		}
		if t.Kind() == types.KindNone {
			r.NoneCount++
		}
	}

	bindings := graph.New(graph.WithPageRank())
	for i, containerID := range graph.Containers(g) {
		_, m, err := bindings.Analyze(ctx, g, containerID, tc.Scopes)
		if err != nil {
			return err
		}
		if i == 0 {
			r.CentralBinding = central(m.PageRank)
		}
		r.RecursiveGroups = append(r.RecursiveGroups, m.Cycles...)
		for _, name := range m.SelfReferencing {
			r.RecursiveGroups = append(r.RecursiveGroups, []string{name})
		}
	}
	return nil
}

// central returns the highest ranked name, breaking ties by name. A
// container with fewer than two bindings has no central binding.
func central(ranks map[string]float64) string {
	if len(ranks) < 2 {
		return ""
	}
	best, bestRank := "", -1.0
	for name, rank := range ranks {
		if rank > bestRank || (rank == bestRank && name < best) {
			best, bestRank = name, rank
		}
	}
	return best
}
