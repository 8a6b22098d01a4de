package machine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zatosource/bst/config"
	"github.com/zatosource/bst/diagram"
	"github.com/zatosource/bst/statestore"
)

// OutputFormat selects the representation produced by RenderDefinition and
// RenderCurrentState.
type OutputFormat int

const (
	FormatText OutputFormat = iota
	FormatJSON
	FormatYAML
	FormatDiagramDef
	FormatDiagramPNG
)

var formatNames = map[OutputFormat]string{
	FormatText:       "text",
	FormatJSON:       "json",
	FormatYAML:       "yaml",
	FormatDiagramDef: "diagram-def",
	FormatDiagramPNG: "diagram-png",
}

func (f OutputFormat) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("OutputFormat(%d)", int(f))
}

// ParseOutputFormat maps a wire name such as "diagram-png" onto its format.
func ParseOutputFormat(name string) (OutputFormat, error) {
	for format, formatName := range formatNames {
		if name == formatName {
			return format, nil
		}
	}
	return 0, fmt.Errorf("unknown output format %q", name)
}

// Rendered is the outcome of a render call: the payload and its MIME type.
type Rendered struct {
	Data     []byte
	MimeType string
}

// RenderDefinition returns a registered definition in the requested format.
// The renderer is consulted only for FormatDiagramPNG and may be nil
// otherwise.
func (m *StateMachine) RenderDefinition(ctx context.Context, defTag string, format OutputFormat,
	renderer diagram.Renderer, opts diagram.Options) (*Rendered, error) {
	return m.render(ctx, defTag, format, renderer, opts, nil, nil)
}

// RenderCurrentState renders a definition with the object's current and
// previous states highlighted. FormatJSON returns the current state record
// itself rather than the definition.
func (m *StateMachine) RenderCurrentState(ctx context.Context, objectTag, defTag string, format OutputFormat,
	renderer diagram.Renderer, opts diagram.Options) (*Rendered, error) {

	info, err := m.GetCurrentStateInfo(ctx, objectTag, defTag)
	if err != nil && !errors.Is(err, statestore.ErrNotFound) {
		return nil, err
	}

	var history []statestore.StateInfo
	if info != nil {
		if history, err = m.GetHistory(ctx, objectTag, defTag); err != nil {
			return nil, err
		}
	}

	if format == FormatJSON {
		data, err := encodeStateJSON(info)
		if err != nil {
			return nil, err
		}
		return &Rendered{Data: data, MimeType: "application/json"}, nil
	}

	return m.render(ctx, defTag, format, renderer, opts, info, history)
}

func (m *StateMachine) render(ctx context.Context, defTag string, format OutputFormat,
	renderer diagram.Renderer, opts diagram.Options,
	info *statestore.StateInfo, history []statestore.StateInfo) (*Rendered, error) {

	item, ok := m.registry.Get(defTag)
	if !ok {
		return nil, &UnknownDefinitionError{DefTag: defTag}
	}

	switch format {
	case FormatText:
		return &Rendered{Data: []byte(item.Def.String()), MimeType: "text/plain"}, nil

	case FormatJSON:
		data, err := item.EncodeJSON()
		if err != nil {
			return nil, err
		}
		return &Rendered{Data: data, MimeType: "application/json"}, nil

	case FormatYAML:
		data, err := item.EncodeYAML()
		if err != nil {
			return nil, err
		}
		return &Rendered{Data: data, MimeType: "application/yaml"}, nil

	case FormatDiagramDef:
		source, err := m.diagramSource(item, info, history, opts)
		if err != nil {
			return nil, err
		}
		return &Rendered{Data: []byte(source), MimeType: "text/plain"}, nil

	case FormatDiagramPNG:
		if renderer == nil {
			return nil, fmt.Errorf("format %s requires a diagram renderer", format)
		}
		source, err := m.diagramSource(item, info, history, opts)
		if err != nil {
			return nil, err
		}
		png, err := renderer.Render(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("rendering diagram for `%s`: %w", defTag, err)
		}
		return &Rendered{Data: png, MimeType: "image/png"}, nil

	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

func (m *StateMachine) diagramSource(item *config.Item, info *statestore.StateInfo,
	history []statestore.StateInfo, opts diagram.Options) (string, error) {

	projection, err := diagram.Build(item, info, history, opts)
	if err != nil {
		return "", err
	}
	return projection.Source()
}

// encodeStateJSON serializes a current state record, or a JSON null when the
// object has never transitioned.
func encodeStateJSON(info *statestore.StateInfo) ([]byte, error) {
	if info == nil {
		return []byte("null"), nil
	}
	return json.MarshalIndent(info, "", "  ")
}
