// Package image provides the image_transform tool: decode an image,
// optionally resize it, and re-encode it in the format implied by the
// output file name.
package image

import (
	"bytes"
	"context"
	"fmt"
	stdimage "image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/c360studio/semstreams/agentic"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/c360studio/semtasks/sandbox"
	"github.com/c360studio/semtasks/tools/toolcall"
)

// DefaultJPEGQuality is used when no quality is configured.
const DefaultJPEGQuality = 85

// Size is a target width and height in pixels.
type Size struct {
	Width  int
	Height int
}

// Executor implements the image_transform tool
type Executor struct {
	guard       *sandbox.Guard
	jpegQuality int
	logger      *slog.Logger
}

// NewExecutor creates a new image executor
func NewExecutor(guard *sandbox.Guard, jpegQuality int, logger *slog.Logger) *Executor {
	if jpegQuality <= 0 || jpegQuality > 100 {
		jpegQuality = DefaultJPEGQuality
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{guard: guard, jpegQuality: jpegQuality, logger: logger}
}

// Transform decodes inPath, resizes it when size is non-nil, and saves it to outPath.
func (e *Executor) Transform(ctx context.Context, inPath, outPath string, size *Size) error {
	if err := e.guard.Check(inPath, outPath); err != nil {
		return err
	}
	if size != nil && (size.Width <= 0 || size.Height <= 0) {
		return fmt.Errorf("resize dimensions must be positive, got %dx%d", size.Width, size.Height)
	}

	f, err := e.guard.Open(inPath)
	if err != nil {
		return err
	}
	img, srcFormat, err := stdimage.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("decode %s: %w", inPath, err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if size != nil {
		img = resize(img, size.Width, size.Height)
	}

	var buf bytes.Buffer
	if err := e.encode(&buf, img, outPath); err != nil {
		return err
	}
	if err := e.guard.WriteFile(outPath, buf.Bytes()); err != nil {
		return err
	}

	bounds := img.Bounds()
	e.logger.Debug("Image transformed",
		"input", inPath, "output", outPath, "source_format", srcFormat,
		"width", bounds.Dx(), "height", bounds.Dy())
	return nil
}

// resize scales img to exactly w×h with Catmull-Rom resampling.
func resize(img stdimage.Image, w, h int) stdimage.Image {
	dst := stdimage.NewRGBA(stdimage.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// encode writes img in the format named by the output file extension.
func (e *Executor) encode(buf *bytes.Buffer, img stdimage.Image, outPath string) error {
	switch ext := strings.ToLower(filepath.Ext(outPath)); ext {
	case ".png":
		return png.Encode(buf, img)
	case ".jpg", ".jpeg":
		return jpeg.Encode(buf, img, &jpeg.Options{Quality: e.jpegQuality})
	case ".gif":
		return gif.Encode(buf, img, nil)
	case ".bmp":
		return bmp.Encode(buf, img)
	case ".tif", ".tiff":
		return tiff.Encode(buf, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("unsupported output format %q", ext)
	}
}

// Execute executes an image tool call
func (e *Executor) Execute(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	switch call.Name {
	case "image_transform":
		return e.transform(ctx, call)
	default:
		return toolcall.Unknown(call)
	}
}

// ListTools returns the tool definitions for image operations
func (e *Executor) ListTools() []agentic.ToolDefinition {
	return []agentic.ToolDefinition{
		{
			Name:        "image_transform",
			Description: "Re-encode an image, optionally resizing it; the output format follows the output file extension",
			Parameters: toolcall.Schema([]string{"input_path", "output_path"}, map[string]any{
				"input_path":  toolcall.Prop("string", "Source image (png, jpeg, gif, bmp, tiff, webp)"),
				"output_path": toolcall.Prop("string", "Destination (.png, .jpg, .gif, .bmp, .tiff)"),
				"width":       toolcall.Prop("integer", "Target width; requires height"),
				"height":      toolcall.Prop("integer", "Target height; requires width"),
			}),
		},
	}
}

func (e *Executor) transform(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	inPath, err := toolcall.String(call, "input_path")
	if err != nil {
		return toolcall.Failure(call, err), nil
	}
	outPath, err := toolcall.String(call, "output_path")
	if err != nil {
		return toolcall.Failure(call, err), nil
	}

	var size *Size
	w, hasW := toolcall.Int(call, "width")
	h, hasH := toolcall.Int(call, "height")
	switch {
	case hasW && hasH:
		size = &Size{Width: w, Height: h}
	case hasW || hasH:
		return toolcall.Failure(call, fmt.Errorf("width and height must be given together")), nil
	}

	if err := e.Transform(ctx, inPath, outPath, size); err != nil {
		return toolcall.Failure(call, err), nil
	}
	return toolcall.Result(call, fmt.Sprintf("Saved %s", outPath)), nil
}
