// Package diagram turns transition definitions into renderer-ready
// projections: deduplicated node labels, directed edge statements with
// synthetic begin/end markers, and the textual diagram source built from
// them. Rasterizing that source is an external concern behind the Renderer
// interface; no layout logic lives here.
package diagram

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/zatosource/bst/config"
	"github.com/zatosource/bst/statestore"
)

// Renderer rasterizes a diagram source produced by this package.
type Renderer interface {
	Render(ctx context.Context, source string) ([]byte, error)
}

// Defaults for Options fields left unset.
const (
	DefaultNodeWidth      = 200
	DefaultOrientation    = "portrait"
	DefaultHighlightColor = "bccc73"
	DefaultTimeZone       = "UTC"
	DefaultDateTimeFormat = "Mon 02/01/06 15:04:05"
)

// Options control diagram appearance and timestamp formatting.
type Options struct {
	NodeWidth      int
	Orientation    string // "portrait" or "landscape"
	HighlightColor string // hex color without the leading '#'
	TimeZone       string // IANA zone name used to reformat timestamps
	DateTimeFormat string // Go reference layout
	// ExcludeForceStop leaves the force-stop group out of the projection.
	ExcludeForceStop bool
}

func (o Options) withDefaults() Options {
	if o.NodeWidth == 0 {
		o.NodeWidth = DefaultNodeWidth
	}
	if o.Orientation == "" {
		o.Orientation = DefaultOrientation
	}
	o.HighlightColor = strings.TrimPrefix(o.HighlightColor, "#")
	if o.HighlightColor == "" {
		o.HighlightColor = DefaultHighlightColor
	}
	if o.TimeZone == "" {
		o.TimeZone = DefaultTimeZone
	}
	if o.DateTimeFormat == "" {
		o.DateTimeFormat = DefaultDateTimeFormat
	}
	return o
}

// Projection is the renderer-facing view of one definition: node labels,
// edge statements and force-stop labels, each deduplicated and sorted.
type Projection struct {
	Labels    []string
	Edges     []string
	ForceStop []string

	opts Options
}

// Build projects a definition onto labels and edges. When info is non-nil the
// current and previous states are annotated with their transition timestamps
// and emphasized for highlighting; history supplies the previous-state record
// and may be nil otherwise.
func Build(item *config.Item, info *statestore.StateInfo, history []statestore.StateInfo, opts Options) (*Projection, error) {
	opts = opts.withDefaults()

	loc, err := time.LoadLocation(opts.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("unknown time zone %q: %w", opts.TimeZone, err)
	}

	declared := make(map[string]struct{})
	for _, decl := range item.EdgeDecls() {
		declared[decl.Key] = struct{}{}
	}

	roots := make(map[string]struct{})
	for _, root := range item.Def.Roots() {
		roots[root] = struct{}{}
	}

	p := &Projection{opts: opts}
	seenEdges := make(map[string]struct{})
	addEdge := func(stmt string) {
		if _, ok := seenEdges[stmt]; !ok {
			seenEdges[stmt] = struct{}{}
			p.Edges = append(p.Edges, stmt)
		}
	}
	seenLabels := make(map[string]struct{})
	addLabel := func(name string, isStop bool) (string, error) {
		label, err := buildLabel(name, info, history, loc, opts, isStop)
		if err != nil {
			return "", err
		}
		if _, ok := seenLabels[label]; !ok {
			seenLabels[label] = struct{}{}
			if isStop {
				p.ForceStop = append(p.ForceStop, label)
			} else {
				p.Labels = append(p.Labels, label)
			}
		}
		return label, nil
	}

	for _, decl := range item.EdgeDecls() {
		fromSafe := SafeName(decl.Key)

		for _, to := range decl.Values {
			toSafe := SafeName(to)
			addEdge(fmt.Sprintf("%s -> %s;", fromSafe, toSafe))

			// Labels are separate statements so node names can contain
			// whitespace.
			if _, err := addLabel(decl.Key, false); err != nil {
				return nil, err
			}
			if _, err := addLabel(to, false); err != nil {
				return nil, err
			}

			// States that never appear as a from-state are leaves.
			if _, ok := declared[to]; !ok {
				addEdge(fmt.Sprintf("%s -> end;", toSafe))
			}
		}

		if _, ok := roots[decl.Key]; ok {
			addEdge(fmt.Sprintf("begin -> %s;", fromSafe))
		}
	}

	if !opts.ExcludeForceStop {
		for _, name := range item.ForceStop {
			if _, err := addLabel(name, true); err != nil {
				return nil, err
			}
		}
	}

	sort.Strings(p.Labels)
	sort.Strings(p.Edges)
	sort.Strings(p.ForceStop)
	return p, nil
}

// SafeName converts a state name into a diagram-safe identifier.
func SafeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// ReformatTimestamp converts a stored ISO-8601 UTC timestamp into the given
// time zone and layout.
func ReformatTimestamp(value string, loc *time.Location, layout string) (string, error) {
	ts, err := parseTimestamp(value)
	if err != nil {
		return "", err
	}
	return ts.In(loc).Format(layout), nil
}

func parseTimestamp(value string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	// Stored data from older versions carries no zone designator; it is UTC.
	ts, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid transition timestamp %q: %w", value, err)
	}
	return ts, nil
}

// buildLabel renders one node label statement. The current and previous
// states of the supplied snapshot gain an emphasis class plus stop/forced
// markers and a reformatted timestamp line.
func buildLabel(name string, info *statestore.StateInfo, history []statestore.StateInfo,
	loc *time.Location, opts Options, isStop bool) (string, error) {

	options := ""
	if info != nil && (name == info.StateCurrent || name == info.StateOld) {
		options = `, class="emphasis"`
	}

	nameState, err := nameWithState(name, info, history, loc, opts, isStop)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s [label=\"%s\"%s]", SafeName(name), nameState, options), nil
}

func nameWithState(name string, info *statestore.StateInfo, history []statestore.StateInfo,
	loc *time.Location, opts Options, isStop bool) (string, error) {

	if info == nil {
		return name, nil
	}

	var record *statestore.StateInfo
	switch name {
	case info.StateCurrent:
		record = info
	case info.StateOld:
		// The penultimate history entry describes the transition into the
		// previous state.
		if len(history) < 2 {
			return name, nil
		}
		record = &history[len(history)-2]
	default:
		return name, nil
	}

	date, err := ReformatTimestamp(record.TransitionTSUTC, loc, opts.DateTimeFormat)
	if err != nil {
		return "", err
	}

	stop := ""
	if isStop {
		stop = " (s)"
	}
	forced := ""
	if record.IsForced {
		forced = " (f)"
	}
	// Long zone names such as America/New_York go on their own line.
	tzSep := ""
	if len(opts.TimeZone) > 5 {
		tzSep = "\n"
	}

	return fmt.Sprintf("%s%s%s\n%s %s%s", name, stop, forced, date, tzSep, opts.TimeZone), nil
}

var sourceTemplate = template.Must(template.New("diagram").Parse(`blockdiag {
   orientation = {{.Orientation}};
   default_shape = box;
   node_width = {{.NodeWidth}};
   class emphasis [color="#{{.HighlightColor}}", style = dashed];

group {
  orientation = portrait;
  color = "#ccccdd";
{{.ForceStop}}
}

   begin [shape = beginpoint];
   end [shape = endpoint];

{{.Labels}}

{{.Edges}}
}
`))

// Source renders the projection into the textual diagram definition a
// Renderer consumes.
func (p *Projection) Source() (string, error) {
	indent := func(items []string) string {
		out := make([]string, 0, len(items))
		for _, item := range items {
			out = append(out, "   "+item)
		}
		return strings.Join(out, "\n")
	}

	var b strings.Builder
	err := sourceTemplate.Execute(&b, map[string]any{
		"Orientation":    p.opts.Orientation,
		"NodeWidth":      p.opts.NodeWidth,
		"HighlightColor": p.opts.HighlightColor,
		"ForceStop":      indent(p.ForceStop),
		"Labels":         indent(p.Labels),
		"Edges":          indent(p.Edges),
	})
	if err != nil {
		return "", fmt.Errorf("rendering diagram source: %w", err)
	}
	return b.String(), nil
}
