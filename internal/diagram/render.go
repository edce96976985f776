package diagram

import (
	"context"
	"fmt"
)

// Formats lists what Render accepts.
var Formats = []string{"mermaid", "ascii", "png", "svg", "dot"}

// Render dispatches to the renderer for format. Text formats come back as
// UTF-8 bytes.
func Render(ctx context.Context, model *DiagramModel, format string) ([]byte, error) {
	switch format {
	case "mermaid", "":
		return []byte(RenderMermaid(model)), nil
	case "ascii":
		return []byte(RenderASCII(model)), nil
	case "png", "svg", "dot":
		return RenderImage(ctx, model, ImageFormat(format))
	}
	return nil, fmt.Errorf("diagram: unknown format %q (want one of %v)", format, Formats)
}
