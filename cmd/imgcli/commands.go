package main

import (
	"fmt"
	"image"

	"github.com/dyollb/imgcli"
	"github.com/dyollb/imgcli/raster"
	"github.com/dyollb/imgcli/transform"
)

// ThresholdParams selects pixels above a gray level.
type ThresholdParams struct {
	Input *raster.Image `cli:"input,usage:Input image"`
	Level int           `cli:"level,default:128,usage:Gray threshold level" validate:"gte=0,lte=255"`
}

func threshold(p *ThresholdParams) (*raster.Image, error) {
	return raster.Threshold(p.Input, uint8(p.Level)), nil
}

// DenoiseParams configures the median filter.
type DenoiseParams struct {
	Input  *raster.Image `cli:"input,usage:Input image"`
	Radius int           `cli:"radius,default:2,usage:Median filter radius" validate:"gte=0"`
}

func denoise(p *DenoiseParams) (*raster.Image, error) {
	return raster.Median(p.Input, p.Radius)
}

// ResizeParams carries target dimensions; both are required options.
type ResizeParams struct {
	Input  *raster.Image `cli:"input,usage:Input image"`
	Width  int           `cli:"width,usage:Target width in pixels" validate:"gt=0"`
	Height int           `cli:"height,usage:Target height in pixels" validate:"gt=0"`
}

func resize(p *ResizeParams) (*raster.Image, error) {
	return raster.Resize(p.Input, p.Width, p.Height)
}

// ConvertParams has no options: the output format follows the output file
// extension, so the function itself is the identity.
type ConvertParams struct {
	Input *raster.Image `cli:"input,usage:Input image"`
}

func convert(p *ConvertParams) (*raster.Image, error) {
	return p.Input, nil
}

// FlipParams mirrors the image.
type FlipParams struct {
	Input    *raster.Image `cli:"input,usage:Input image"`
	Vertical bool          `cli:"vertical,usage:Flip around the horizontal axis instead"`
}

func flip(p *FlipParams) (*raster.Image, error) {
	if p.Vertical {
		return raster.FlipVertical(p.Input), nil
	}
	return raster.FlipHorizontal(p.Input), nil
}

// CheckerboardParams configures the generator; there are no image inputs,
// so the output path is the only positional argument.
type CheckerboardParams struct {
	Width  int `cli:"width,default:256,usage:Image width" validate:"gt=0"`
	Height int `cli:"height,default:256,usage:Image height" validate:"gt=0"`
	Square int `cli:"square,default:32,usage:Square size" validate:"gt=0"`
}

func checkerboard(p *CheckerboardParams) (*raster.Image, error) {
	return raster.Checkerboard(p.Width, p.Height, p.Square)
}

// RotateParams rotates the image by right angles.
type RotateParams struct {
	Input   *raster.Image `cli:"input,usage:Input image"`
	Degrees int           `cli:"degrees,default:90,usage:Clockwise rotation (multiple of 90)"`
}

func rotate(p *RotateParams) (*raster.Image, error) {
	return raster.Rotate(p.Input, p.Degrees)
}

// GrayscaleParams converts to 8-bit grayscale.
type GrayscaleParams struct {
	Input *raster.Image `cli:"input,usage:Input image"`
}

func grayscale(p *GrayscaleParams) (*raster.Image, error) {
	return raster.Grayscale(p.Input), nil
}

// ComposeParams combines two transforms, first then second.
type ComposeParams struct {
	First  *transform.Transform `cli:"first,usage:Transform applied first"`
	Second *transform.Transform `cli:"second,usage:Transform applied second"`
}

func compose(p *ComposeParams) (*transform.Transform, error) {
	return p.First.Compose(p.Second), nil
}

// InvertTransformParams inverts a transform.
type InvertTransformParams struct {
	Input *transform.Transform `cli:"input,usage:Transform to invert"`
}

func invertTransform(p *InvertTransformParams) (*transform.Transform, error) {
	return p.Input.Invert()
}

// WarpParams resamples an image through a transform. The transform is a
// named option while the image stays positional.
type WarpParams struct {
	Input     *raster.Image        `cli:"input,usage:Input image"`
	Transform *transform.Transform `cli:"transform,named,usage:Transform mapping output to input coordinates"`
}

func warp(p *WarpParams) (*raster.Image, error) {
	inv, err := p.Transform.Invert()
	if err != nil {
		return nil, fmt.Errorf("transform is not invertible: %w", err)
	}

	src := p.Input.Image()
	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			sx, sy := inv.Apply(float64(x), float64(y))
			ix, iy := bounds.Min.X+int(sx+0.5), bounds.Min.Y+int(sy+0.5)
			if ix < bounds.Min.X || ix >= bounds.Max.X || iy < bounds.Min.Y || iy >= bounds.Max.Y {
				continue
			}
			dst.Set(x, y, src.At(ix, iy))
		}
	}
	return raster.New(dst), nil
}

// StatsParams reports image geometry instead of producing a file.
type StatsParams struct {
	Input *raster.Image `cli:"input,usage:Input image"`
}

func stats(p *StatsParams) (string, error) {
	return fmt.Sprintf("%dx%d %s", p.Input.Width(), p.Input.Height(), p.Input.Format()), nil
}

func registerCommands(app *imgcli.App) {
	app.MustRegister("threshold", threshold,
		imgcli.WithShort("Binarize an image at a gray level"))
	app.MustRegister("denoise", denoise,
		imgcli.WithShort("Median-filter an image"))
	app.MustRegister("resize", resize,
		imgcli.WithShort("Resize an image to exact dimensions"))
	app.MustRegister("convert", convert,
		imgcli.WithShort("Convert an image to the format of the output extension"))
	app.MustRegister("flip", flip,
		imgcli.WithShort("Mirror an image"))
	app.MustRegister("rotate", rotate,
		imgcli.WithShort("Rotate an image by right angles"))
	app.MustRegister("grayscale", grayscale,
		imgcli.WithShort("Convert an image to grayscale"))
	app.MustRegister("checkerboard", checkerboard,
		imgcli.WithShort("Generate a checkerboard test image"))
	app.MustRegister("compose", compose,
		imgcli.WithShort("Compose two transforms"))
	app.MustRegister("invert-transform", invertTransform,
		imgcli.WithShort("Invert a transform"))
	app.MustRegister("warp", warp,
		imgcli.WithShort("Resample an image through a transform"))
	app.MustRegister("stats", stats,
		imgcli.WithShort("Print image geometry"))

	app.MustRegisterBatch("batch-threshold", threshold,
		imgcli.WithShort("Binarize every matched image in a directory"))
	app.MustRegisterBatch("batch-denoise", denoise,
		imgcli.WithShort("Median-filter every matched image in a directory"))
	app.MustRegisterBatch("batch-warp", warp,
		imgcli.WithShort("Resample every matched image through one transform"))
}
