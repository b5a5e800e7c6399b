package diagram

import (
	"regexp"
	"strings"

	"auditgraph/internal/model"
)

type Shape int

const (
	ShapeRectangle Shape = iota
	ShapeSubroutine
	ShapeStadium
	ShapeCircle
	ShapeRounded
)

func (s Shape) Brackets() (opening, closing string) {
	switch s {
	case ShapeSubroutine:
		return "[[", "]]"
	case ShapeStadium:
		return "([", "])"
	case ShapeCircle:
		return "((", "))"
	case ShapeRounded:
		return "(", ")"
	default:
		return "[", "]"
	}
}

var labelShapes = map[string]Shape{
	"회계법인":   ShapeSubroutine,
	"감사인":    ShapeSubroutine,
	"공인회계사":  ShapeStadium,
	"인물":     ShapeStadium,
	"회사":     ShapeRectangle,
	"피감사회사":  ShapeRectangle,
	"감사대상회사": ShapeRectangle,
	"배우자":    ShapeCircle,
	"가족":     ShapeCircle,
	"직계가족":   ShapeCircle,
	"임원":     ShapeRounded,
	"이사":     ShapeRounded,
	"대표이사":   ShapeRounded,
	"재무이사":   ShapeRounded,
}

func ShapeFor(label string) Shape {
	if shape, ok := labelShapes[label]; ok {
		return shape
	}
	return ShapeRectangle
}

const (
	classNormal = "normalNode"
	classRisky  = "riskyNode"

	maxEdgeLabel   = 20
	defaultRelType = "관계"
)

// unsafeNameChars keeps Hangul syllables, ASCII letters and digits, and any
// Unicode whitespace (ideographic space and NBSP included).
var unsafeNameChars = regexp.MustCompile(`[^가-힣a-zA-Z0-9\s\v\x{1c}-\x{1f}\x{85}\p{Z}]`)

// Render produces a Mermaid flowchart for the graph. Entities and edges named
// in flagged are drawn with the risky style.
func Render(g model.Graph, flagged []model.VulnerableConnection) string {
	type pair struct{ source, target string }
	flaggedEdges := make(map[pair]struct{}, len(flagged))
	flaggedNodes := make(map[string]struct{}, len(flagged)*2)
	for _, vc := range flagged {
		flaggedEdges[pair{vc.SourceID, vc.TargetID}] = struct{}{}
		flaggedNodes[vc.SourceID] = struct{}{}
		flaggedNodes[vc.TargetID] = struct{}{}
	}

	lines := make([]string, 0, 3+len(g.Entities)+len(g.Connections))
	lines = append(lines,
		"graph TD",
		"    classDef normalNode fill:#fff,stroke:#333,stroke-width:1px",
		"    classDef riskyNode fill:#fff5f5,stroke:#c62828,stroke-width:2px,stroke-dasharray:5 5",
	)

	for _, e := range g.Entities {
		opening, closing := ShapeFor(e.Label).Brackets()
		text := unsafeNameChars.ReplaceAllString(e.Name, "")
		if e.Label != "" {
			text += "<br>" + sanitizeLabel(e.Label)
		}
		class := classNormal
		if _, ok := flaggedNodes[e.ID]; ok {
			class = classRisky
		}
		lines = append(lines, "    "+e.ID+opening+`"`+text+`"`+closing+":::"+class)
	}

	for _, c := range g.Connections {
		rel := edgeLabel(c.RelType)
		if _, ok := flaggedEdges[pair{c.SourceID, c.TargetID}]; ok {
			lines = append(lines, "    "+c.SourceID+` -. "[!] `+rel+`" .-> `+c.TargetID)
			continue
		}
		lines = append(lines, "    "+c.SourceID+` ---|"`+rel+`"| `+c.TargetID)
	}

	return strings.Join(lines, "\n")
}

// RenderChecked renders g after validating it. A graph that fails validation,
// such as one written by another tool, yields the placeholder and the error.
func RenderChecked(g model.Graph, flagged []model.VulnerableConnection) (string, error) {
	if err := g.Validate(); err != nil {
		return Placeholder(), err
	}
	return Render(g, flagged), nil
}

// Placeholder is shown when no stored graph exists yet.
func Placeholder() string {
	return "graph LR\n    A[Empty] --> B[No stored graph]"
}

func edgeLabel(relType string) string {
	rel := relType
	if rel == "" {
		rel = defaultRelType
	}
	rel = strings.TrimSpace(rel)
	if runes := []rune(rel); len(runes) > maxEdgeLabel {
		rel = string(runes[:maxEdgeLabel])
	}
	return sanitizeLabel(rel)
}

func sanitizeLabel(s string) string {
	s = strings.ReplaceAll(s, `"`, "'")
	return strings.ReplaceAll(s, "\n", " ")
}
