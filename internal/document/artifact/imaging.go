package artifact

import (
	"bytes"
	"context"
)

// TextImaging is the built-in imaging backend: it frames the payload in a
// scan-block so the artifact stays self-contained without a rendering
// service. The payload is embedded literally and decodes back unchanged.
// Deployments with a real 2D-code renderer swap this out via the Imaging
// interface.
type TextImaging struct{}

func NewTextImaging() TextImaging { return TextImaging{} }

func (TextImaging) RenderScannableImage(_ context.Context, payload string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("[SCAN-BLOCK]\n")
	buf.WriteString(payload)
	buf.WriteString("\n[/SCAN-BLOCK]")
	return buf.Bytes(), nil
}
