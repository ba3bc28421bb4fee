// Package imgcli generates command-line interfaces from plain functions
// that consume and produce image and transform objects.
//
// A registered function declares its parameters as a tagged struct:
//
//	type DenoiseParams struct {
//		Input  *raster.Image `cli:"input,usage:Input image"`
//		Radius int           `cli:"radius,default:2,usage:Median radius"`
//	}
//
//	func Denoise(p *DenoiseParams) (*raster.Image, error) {
//		return raster.Median(p.Input, p.Radius)
//	}
//
// Registering Denoise yields a subcommand whose image parameters are file
// paths ("denoise INPUT OUTPUT --radius 3"): paths are loaded into objects
// before the call, and the returned object is written to the output path.
// Batch registration turns the same function into a directory processor
// that pairs input files across directories by filename stem.
package imgcli
