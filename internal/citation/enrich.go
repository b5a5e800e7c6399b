package citation

import (
	"log/slog"
	"strings"

	"auditgraph/internal/model"
)

type Resolver interface {
	Resolve(citation string) (string, bool)
	IsValid(citation string) bool
}

// Enricher fills in statute URLs on analysis legal references. Citations the
// registry does not know (ethics codes, auditing standards) stay text-only.
type Enricher struct {
	resolver Resolver
	logger   *slog.Logger
}

func NewEnricher(resolver Resolver, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{resolver: resolver, logger: logger}
}

func (e *Enricher) Enrich(analysis model.AnalysisResult) model.AnalysisResult {
	out := analysis.Clone()
	if len(out.LegalReferences) == 0 {
		return out
	}

	var textOnly []string
	refs := make([]model.LegalReference, 0, len(out.LegalReferences))
	for _, ref := range out.LegalReferences {
		name := strings.TrimSpace(ref.Name)
		if !e.resolver.IsValid(name) {
			textOnly = append(textOnly, name)
			refs = append(refs, model.LegalReference{Name: name})
			continue
		}
		url := ref.URLString()
		if url == "" {
			url, _ = e.resolver.Resolve(name)
		}
		refs = append(refs, model.NewLegalReference(name, url))
	}
	out.LegalReferences = refs

	if len(textOnly) > 0 {
		e.logger.Info("citation: no url for references outside the registry", "names", textOnly)
	}
	return out
}
