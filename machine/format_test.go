package machine

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatosource/bst/diagram"
)

func TestParseOutputFormat(t *testing.T) {
	for name, want := range map[string]OutputFormat{
		"text":        FormatText,
		"json":        FormatJSON,
		"yaml":        FormatYAML,
		"diagram-def": FormatDiagramDef,
		"diagram-png": FormatDiagramPNG,
	} {
		got, err := ParseOutputFormat(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, name, got.String())
	}

	_, err := ParseOutputFormat("gif")
	assert.Error(t, err)
}

func TestRenderDefinitionText(t *testing.T) {
	m := newOrdersMachine(t)

	out, err := m.RenderDefinition(context.Background(), "Orders.v1", FormatText, nil, diagram.Options{})
	require.NoError(t, err)
	assert.Equal(t, "text/plain", out.MimeType)
	assert.Contains(t, string(out.Data), "~new")
	assert.Contains(t, string(out.Data), "sent_to_client")
}

func TestRenderDefinitionJSON(t *testing.T) {
	m := newOrdersMachine(t)

	out, err := m.RenderDefinition(context.Background(), "Orders.v1", FormatJSON, nil, diagram.Options{})
	require.NoError(t, err)
	assert.Equal(t, "application/json", out.MimeType)

	var decoded map[string]map[string]any
	require.NoError(t, json.Unmarshal(out.Data, &decoded))
	require.Contains(t, decoded, "Orders")
	assert.Equal(t, "submitted", decoded["Orders"]["new"])
}

func TestRenderDefinitionYAML(t *testing.T) {
	m := newOrdersMachine(t)

	out, err := m.RenderDefinition(context.Background(), "Orders.v1", FormatYAML, nil, diagram.Options{})
	require.NoError(t, err)
	assert.Equal(t, "application/yaml", out.MimeType)
	assert.Contains(t, string(out.Data), "Orders:")
}

func TestRenderDefinitionDiagram(t *testing.T) {
	m := newOrdersMachine(t)

	out, err := m.RenderDefinition(context.Background(), "Orders.v1", FormatDiagramDef, nil, diagram.Options{})
	require.NoError(t, err)
	assert.Equal(t, "text/plain", out.MimeType)
	assert.Contains(t, string(out.Data), "blockdiag {")
	assert.Contains(t, string(out.Data), "new -> submitted;")
}

func TestRenderDefinitionPNGNeedsRenderer(t *testing.T) {
	m := newOrdersMachine(t)

	_, err := m.RenderDefinition(context.Background(), "Orders.v1", FormatDiagramPNG, nil, diagram.Options{})
	require.ErrorContains(t, err, "requires a diagram renderer")
}

type stubRenderer struct {
	lastSource string
}

func (r *stubRenderer) Render(_ context.Context, source string) ([]byte, error) {
	r.lastSource = source
	return []byte{0x89, 'P', 'N', 'G'}, nil
}

func TestRenderDefinitionPNG(t *testing.T) {
	m := newOrdersMachine(t)
	renderer := &stubRenderer{}

	out, err := m.RenderDefinition(context.Background(), "Orders.v1", FormatDiagramPNG, renderer, diagram.Options{})
	require.NoError(t, err)
	assert.Equal(t, "image/png", out.MimeType)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, out.Data)
	assert.Contains(t, renderer.lastSource, "blockdiag {")
}

func TestRenderDefinitionUnknownTag(t *testing.T) {
	m := newOrdersMachine(t)

	_, err := m.RenderDefinition(context.Background(), "Invoices.v1", FormatText, nil, diagram.Options{})
	var derr *UnknownDefinitionError
	assert.ErrorAs(t, err, &derr)
}

func TestRenderCurrentStateJSON(t *testing.T) {
	m := newOrdersMachine(t)
	ctx := context.Background()

	// Never-transitioned objects render as a JSON null.
	out, err := m.RenderCurrentState(ctx, "order.1", "Orders.v1", FormatJSON, nil, diagram.Options{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(out.Data))

	_, err = m.Transition(ctx, "order.1", "new", "Orders.v1", nil, nil, false)
	require.NoError(t, err)

	out, err = m.RenderCurrentState(ctx, "order.1", "Orders.v1", FormatJSON, nil, diagram.Options{})
	require.NoError(t, err)

	var info map[string]any
	require.NoError(t, json.Unmarshal(out.Data, &info))
	assert.Equal(t, "new", info["state_current"])
	assert.Equal(t, "order.1", info["object_tag"])
}

func TestRenderCurrentStateDiagramHighlights(t *testing.T) {
	m := newOrdersMachine(t)
	ctx := context.Background()

	_, err := m.Transition(ctx, "order.1", "new", "Orders.v1", nil, nil, false)
	require.NoError(t, err)
	_, err = m.Transition(ctx, "order.1", "submitted", "Orders.v1", nil, nil, false)
	require.NoError(t, err)

	out, err := m.RenderCurrentState(ctx, "order.1", "Orders.v1", FormatDiagramDef, nil, diagram.Options{})
	require.NoError(t, err)
	assert.Contains(t, string(out.Data), `class="emphasis"`)
}
