package service

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/YoshitsuguKoike/deepatch/internal/domain/model/edit"
)

// ResponseShape recognizes one output layout and extracts edits from it.
// Parse returns nil when the text is not in this shape.
type ResponseShape interface {
	Name() string
	Parse(raw string) []edit.Edit
}

// ResponseParser tries each shape in order and returns the first non-empty result
type ResponseParser struct {
	shapes []ResponseShape
}

// NewResponseParser creates a parser; with no shapes it uses DefaultShapes
func NewResponseParser(shapes ...ResponseShape) *ResponseParser {
	if len(shapes) == 0 {
		shapes = DefaultShapes()
	}
	return &ResponseParser{shapes: shapes}
}

// DefaultShapes returns the built-in shapes, most structured first
func DefaultShapes() []ResponseShape {
	return []ResponseShape{
		JSONChangesShape{},
		FencedLangPathShape{},
		FencedPathShape{},
		FileLabelShape{},
	}
}

// Parse returns the edits and the name of the shape that matched
func (p *ResponseParser) Parse(raw string) ([]edit.Edit, string) {
	for _, shape := range p.shapes {
		if edits := dedupe(shape.Parse(raw)); len(edits) > 0 {
			return edits, shape.Name()
		}
	}
	return nil, ""
}

// dedupe drops invalid paths and keeps the last edit for a repeated path, in first-seen order
func dedupe(edits []edit.Edit) []edit.Edit {
	if len(edits) == 0 {
		return nil
	}
	index := make(map[string]int, len(edits))
	out := make([]edit.Edit, 0, len(edits))
	for _, e := range edits {
		if e.Validate() != nil {
			continue
		}
		if i, ok := index[e.Path]; ok {
			out[i] = e
			continue
		}
		index[e.Path] = len(out)
		out = append(out, e)
	}
	return out
}

// JSONChangesShape reads {"changes":[{"type":"edit","filepath":"...","content":"...","description":"..."}]},
// bare or inside a ```json fence or surrounded by prose
type JSONChangesShape struct{}

func (JSONChangesShape) Name() string { return "json" }

type jsonChange struct {
	Type        string `json:"type"`
	Filepath    string `json:"filepath"`
	Path        string `json:"path"`
	File        string `json:"file"`
	Content     string `json:"content"`
	Description string `json:"description"`
}

type jsonChanges struct {
	Changes []jsonChange `json:"changes"`
}

func (JSONChangesShape) Parse(raw string) []edit.Edit {
	for _, candidate := range jsonCandidates(raw) {
		var doc jsonChanges
		if err := json.Unmarshal([]byte(candidate), &doc); err != nil || len(doc.Changes) == 0 {
			continue
		}
		var edits []edit.Edit
		for _, c := range doc.Changes {
			p := firstNonEmpty(c.Filepath, c.Path, c.File)
			if p == "" {
				continue
			}
			kind := edit.KindModify
			if strings.EqualFold(c.Type, "create") {
				kind = edit.KindCreate
			}
			edits = append(edits, edit.New(p, []byte(c.Content), kind, c.Description))
		}
		if len(edits) > 0 {
			return edits
		}
	}
	return nil
}

var jsonFence = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*\\n(\\{.*?\\})\\s*```")

func jsonCandidates(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	candidates := []string{trimmed}
	for _, m := range jsonFence.FindAllStringSubmatch(raw, -1) {
		candidates = append(candidates, m[1])
	}
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start >= 0 && end > start {
		candidates = append(candidates, raw[start:end+1])
	}
	return candidates
}

// FencedLangPathShape reads ```python:src/app.py blocks
type FencedLangPathShape struct{}

func (FencedLangPathShape) Name() string { return "fenced-lang-path" }

var langPathInfo = regexp.MustCompile(`^([A-Za-z0-9_+#.-]+):(.+)$`)

func (FencedLangPathShape) Parse(raw string) []edit.Edit {
	var edits []edit.Edit
	for _, b := range scanFences(raw) {
		m := langPathInfo.FindStringSubmatch(b.info)
		if m == nil {
			continue
		}
		p := strings.TrimSpace(m[2])
		if p == "" {
			continue
		}
		edits = append(edits, edit.New(p, []byte(b.body), edit.KindModify, ""))
	}
	return edits
}

// FencedPathShape reads ```src/app.py blocks where the info string is a path rather than a language
type FencedPathShape struct{}

func (FencedPathShape) Name() string { return "fenced-path" }

func (FencedPathShape) Parse(raw string) []edit.Edit {
	var edits []edit.Edit
	for _, b := range scanFences(raw) {
		if !looksLikePath(b.info) {
			continue
		}
		edits = append(edits, edit.New(b.info, []byte(b.body), edit.KindModify, ""))
	}
	return edits
}

func looksLikePath(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t:") {
		return false
	}
	return strings.Contains(s, ".") || strings.Contains(s, "/")
}

// FileLabelShape reads "File: path" sections whose content runs to the next label.
// A section holding a fenced block contributes only that block's body.
type FileLabelShape struct{}

func (FileLabelShape) Name() string { return "file-label" }

var fileLabel = regexp.MustCompile(`^\s*(?:#+\s*)?(?:\*\*)?(?i:file):\s*(?:\*\*)?\s*` + "`?" + `([^\s` + "`" + `*]+)` + "`?" + `\s*(?:\*\*)?\s*$`)

func (FileLabelShape) Parse(raw string) []edit.Edit {
	var (
		edits   []edit.Edit
		current string
		body    []string
		fence   fenceTracker
	)
	flush := func() {
		if current == "" {
			return
		}
		edits = append(edits, edit.New(current, []byte(sectionContent(body)), edit.KindModify, ""))
	}

	for _, line := range strings.Split(raw, "\n") {
		if !fence.inside() {
			if m := fileLabel.FindStringSubmatch(line); m != nil {
				flush()
				current, body = m[1], nil
				continue
			}
		}
		fence.step(line)
		if current != "" {
			body = append(body, line)
		}
	}
	flush()
	return edits
}

// sectionContent returns the first fenced block of a labelled section, or the
// section text without surrounding blank lines and a dangling opening fence
func sectionContent(lines []string) string {
	if blocks := scanFences(strings.Join(lines, "\n")); len(blocks) > 0 {
		return blocks[0].body
	}
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) > 0 {
		if _, _, ok := fenceLine(lines[0]); ok {
			lines = lines[1:]
		}
	}
	return joinLines(lines)
}

type fencedBlock struct {
	info string
	body string
}

// scanFences returns the closed top-level ``` blocks of raw. Unterminated
// blocks are dropped.
func scanFences(raw string) []fencedBlock {
	var (
		blocks []fencedBlock
		fence  fenceTracker
		info   string
		body   []string
	)
	for _, line := range strings.Split(raw, "\n") {
		opened, closed, lineInfo := fence.step(line)
		switch {
		case opened:
			info, body = lineInfo, nil
		case closed:
			blocks = append(blocks, fencedBlock{info: info, body: joinLines(body)})
		case fence.inside():
			body = append(body, line)
		}
	}
	return blocks
}

// fenceTracker follows ``` nesting line by line. Inside a block, a fence at
// least as long as the opener with an info string opens a nested block and a
// bare one closes the innermost block. Shorter fences are content.
type fenceTracker struct {
	ticks int
	depth int
}

func (f *fenceTracker) inside() bool { return f.ticks > 0 }

// step consumes one line and reports whether it opened or closed the outer block
func (f *fenceTracker) step(line string) (opened, closed bool, info string) {
	n, lineInfo, ok := fenceLine(line)
	switch {
	case !ok:
		return false, false, ""
	case f.ticks == 0:
		f.ticks = n
		return true, false, lineInfo
	case n < f.ticks:
		return false, false, ""
	case lineInfo != "":
		f.depth++
		return false, false, ""
	case f.depth > 0:
		f.depth--
		return false, false, ""
	default:
		f.ticks = 0
		return false, true, ""
	}
}

// fenceLine reports whether line is a ``` fence and returns its length and info string
func fenceLine(line string) (int, string, bool) {
	s := strings.TrimLeft(line, " \t")
	n := 0
	for n < len(s) && s[n] == '`' {
		n++
	}
	if n < 3 {
		return 0, "", false
	}
	info := strings.TrimSpace(s[n:])
	if strings.Contains(info, "`") {
		return 0, "", false
	}
	return n, info, true
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
