// Package interchange reads and writes the textual region interchange format.
//
// A document lists regions grouped by name; each group holds one entry per
// tray placement:
//
//	Foo:
//	  - tray: P1
//	    upper_left: A1
//	    lower_right: C3
//
// Corners are well labels of the cells drawn at the rendered top-left and
// bottom-right of the box, so they depend on the tray's rotation. The parser
// normalizes both corners back into a logical box. Treatments and dilutions
// are not part of the format.
package interchange

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"traycore/internal/geometry"
	"traycore/pkg/domain"
)

// ErrNothingImported aborts an import in which no entry could be recovered.
var ErrNothingImported = errors.New("no regions could be imported")

const (
	keyTray       = "tray"
	keyUpperLeft  = "upper_left"
	keyLowerRight = "lower_right"
)

// Skipped describes an entry left out of an export or import.
type Skipped struct {
	Line   int    `json:"line,omitempty"`
	Name   string `json:"name,omitempty"`
	Tray   string `json:"tray,omitempty"`
	Reason string `json:"reason"`
}

func (s Skipped) String() string {
	var b strings.Builder
	if s.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", s.Line)
	}
	if s.Name != "" {
		fmt.Fprintf(&b, "%s: ", s.Name)
	}
	b.WriteString(s.Reason)
	return b.String()
}

// ImportResult carries the regions recovered from a document.
type ImportResult struct {
	Regions []domain.Region
	Skipped []Skipped
}

// Codec converts between region stores and interchange documents.
type Codec struct {
	log *zap.Logger
}

// Option configures a Codec.
type Option func(*Codec)

// WithLogger routes skip diagnostics to l.
func WithLogger(l *zap.Logger) Option {
	return func(c *Codec) {
		if l != nil {
			c.log = l
		}
	}
}

// New constructs a Codec.
func New(opts ...Option) *Codec {
	c := &Codec{log: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Export renders regions grouped by trimmed name in first appearance order.
// Regions without a name or on a tray absent from trays are skipped.
func (c *Codec) Export(regions []domain.Region, trays []domain.Tray) ([]byte, []Skipped) {
	type placement struct{ tray, upperLeft, lowerRight string }
	var order []string
	groups := make(map[string][]placement)
	var skipped []Skipped

	for _, r := range regions {
		name := r.TrimmedName()
		if name == "" {
			skipped = append(skipped, c.skip(Skipped{Reason: "region has no name"}))
			continue
		}
		if !r.HasTray() {
			skipped = append(skipped, c.skip(Skipped{Name: name, Reason: "region has no tray"}))
			continue
		}
		t, ok := domain.FindTrayBySequence(trays, *r.TraySequenceID)
		if !ok {
			skipped = append(skipped, c.skip(Skipped{Name: name, Reason: fmt.Sprintf("unknown tray %d", *r.TraySequenceID)}))
			continue
		}
		g := geometry.New(t, geometry.WithLogger(c.log))
		ul, lr := g.DisplayCorners(r.Bounds())
		upper, errUL := geometry.FormatLabel(ul, t)
		lower, errLR := geometry.FormatLabel(lr, t)
		if err := errors.Join(errUL, errLR); err != nil {
			skipped = append(skipped, c.skip(Skipped{Name: name, Tray: t.Name, Reason: err.Error()}))
			continue
		}
		if _, seen := groups[name]; !seen {
			order = append(order, name)
		}
		groups[name] = append(groups[name], placement{tray: t.Name, upperLeft: upper, lowerRight: lower})
	}

	var buf bytes.Buffer
	for i, name := range order {
		if i > 0 {
			buf.WriteByte('\n')
		}
		fmt.Fprintf(&buf, "%s:\n", quote(name))
		for _, p := range groups[name] {
			fmt.Fprintf(&buf, "  - %s: %s\n", keyTray, quote(p.tray))
			fmt.Fprintf(&buf, "    %s: %s\n", keyUpperLeft, p.upperLeft)
			fmt.Fprintf(&buf, "    %s: %s\n", keyLowerRight, p.lowerRight)
		}
	}
	return buf.Bytes(), skipped
}

type entry struct {
	line       int
	name       string
	tray       string
	upperLeft  string
	lowerRight string
}

// Import parses a document into unnamed-treatment regions. Trays are matched
// by name. Colors cycle from startIndex, normally the current store length.
// Malformed or unresolvable entries are skipped; ErrNothingImported is
// returned when nothing survives.
func (c *Codec) Import(data []byte, trays []domain.Tray, startIndex int) (ImportResult, error) {
	var res ImportResult
	var entries []entry
	var current *entry
	group := ""

	flush := func() {
		if current != nil {
			entries = append(entries, *current)
			current = nil
		}
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		indented := raw[0] == ' ' || raw[0] == '\t'
		switch {
		case !indented && strings.HasSuffix(trimmed, ":"):
			flush()
			group = unquote(strings.TrimSpace(strings.TrimSuffix(trimmed, ":")))
			if group == "" {
				res.Skipped = append(res.Skipped, c.skip(Skipped{Line: lineNo, Reason: "empty region name"}))
			}
		case strings.HasPrefix(trimmed, "- "+keyTray+":") || strings.HasPrefix(trimmed, "-"+keyTray+":"):
			flush()
			value := trimmed[strings.Index(trimmed, ":")+1:]
			current = &entry{line: lineNo, name: group, tray: unquote(strings.TrimSpace(value))}
		case strings.HasPrefix(trimmed, keyUpperLeft+":"), strings.HasPrefix(trimmed, keyLowerRight+":"):
			key, value, _ := strings.Cut(trimmed, ":")
			if current == nil {
				res.Skipped = append(res.Skipped, c.skip(Skipped{Line: lineNo, Name: group, Reason: key + " outside a tray entry"}))
				continue
			}
			if key == keyUpperLeft {
				current.upperLeft = unquote(strings.TrimSpace(value))
			} else {
				current.lowerRight = unquote(strings.TrimSpace(value))
			}
		default:
			res.Skipped = append(res.Skipped, c.skip(Skipped{Line: lineNo, Name: group, Reason: fmt.Sprintf("unrecognized line %q", trimmed)}))
		}
	}
	flush()
	if err := scanner.Err(); err != nil {
		return ImportResult{}, fmt.Errorf("read document: %w", err)
	}

	for _, e := range entries {
		r, skip, ok := resolve(e, trays)
		if !ok {
			res.Skipped = append(res.Skipped, c.skip(skip))
			continue
		}
		r.Color = domain.ColorFor(startIndex + len(res.Regions))
		res.Regions = append(res.Regions, r)
	}
	if len(res.Regions) == 0 {
		return res, fmt.Errorf("%w: %d entries skipped", ErrNothingImported, len(res.Skipped))
	}
	return res, nil
}

func resolve(e entry, trays []domain.Tray) (domain.Region, Skipped, bool) {
	skip := Skipped{Line: e.line, Name: e.name, Tray: e.tray}
	switch {
	case e.name == "":
		skip.Reason = "entry outside a named region"
	case e.tray == "":
		skip.Reason = "entry has no tray"
	case e.upperLeft == "" || e.lowerRight == "":
		skip.Reason = "entry needs both upper_left and lower_right"
	}
	if skip.Reason != "" {
		return domain.Region{}, skip, false
	}
	t, ok := domain.FindTrayByName(trays, e.tray)
	if !ok {
		skip.Reason = fmt.Sprintf("unknown tray %q", e.tray)
		return domain.Region{}, skip, false
	}
	ul, errUL := geometry.ParseLabel(e.upperLeft, t)
	lr, errLR := geometry.ParseLabel(e.lowerRight, t)
	if err := errors.Join(errUL, errLR); err != nil {
		skip.Reason = err.Error()
		return domain.Region{}, skip, false
	}
	r := domain.Region{Name: e.name, TraySequenceID: domain.SequenceID(t.SequenceID)}
	r.SetBounds(domain.NormalizeBounds(ul, lr))
	return r, Skipped{}, true
}

func (c *Codec) skip(s Skipped) Skipped {
	c.log.Warn("interchange entry skipped",
		zap.Int("line", s.Line),
		zap.String("name", s.Name),
		zap.String("tray", s.Tray),
		zap.String("reason", s.Reason),
	)
	return s
}

var defaultCodec = New()

// Export renders regions with a codec that discards diagnostics.
func Export(regions []domain.Region, trays []domain.Tray) ([]byte, []Skipped) {
	return defaultCodec.Export(regions, trays)
}

// Import parses a document with a codec that discards diagnostics.
func Import(data []byte, trays []domain.Tray, startIndex int) (ImportResult, error) {
	return defaultCodec.Import(data, trays, startIndex)
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, ":#\"'\t\n\r") || strings.HasPrefix(s, "-") || strings.TrimSpace(s) != s {
		return strconv.Quote(s)
	}
	return s
}

func unquote(s string) string {
	if len(s) >= 2 {
		switch {
		case s[0] == '"' && s[len(s)-1] == '"':
			if v, err := strconv.Unquote(s); err == nil {
				return v
			}
			return s[1 : len(s)-1]
		case s[0] == '\'' && s[len(s)-1] == '\'':
			return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
		}
	}
	return s
}
