package convert

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const jpegQuality = 90

func decodeImage(path string) (image.Image, error) {
	f, err := openUpload(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, contentErr("decode image", err)
	}
	return img, nil
}

// flatten composites img over white into an opaque RGBA whose bounds start
// at the origin. PDF embedding and JPEG both need an image without alpha.
func flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

// imageToPDF places the image on a single page of the same size, one pixel
// per point.
func imageToPDF(ctx context.Context, req *Request) error {
	img, err := decodeImage(req.Upload.Path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	rgb := flatten(img)
	b := rgb.Bounds()
	if b.Empty() {
		return contentErr("decode image", fmt.Errorf("image has no pixels"))
	}

	var encoded bytes.Buffer
	if err := png.Encode(&encoded, rgb); err != nil {
		return contentErr("encode image", err)
	}

	w, h := float64(b.Dx()), float64(b.Dy())
	size := fpdf.SizeType{Wd: w, Ht: h}
	doc := fpdf.NewCustom(&fpdf.InitType{UnitStr: "pt", Size: size})
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	doc.AddPageFormat("P", size)
	doc.RegisterImageOptionsReader(req.Upload.Name, fpdf.ImageOptions{ImageType: "PNG"}, &encoded)
	doc.ImageOptions(req.Upload.Name, 0, 0, w, h, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	if err := doc.Error(); err != nil {
		return contentErr("build pdf", err)
	}

	return writeFile(req.OutputPath, "write pdf", doc.Output)
}

// imageToImage re-encodes the upload in the requested target format.
func imageToImage(ctx context.Context, req *Request) error {
	img, err := decodeImage(req.Upload.Path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeFile(req.OutputPath, "write image", func(w io.Writer) error {
		if err := encodeImage(w, img, req.Target.Format); err != nil {
			return contentErr("encode "+req.Target.Format, err)
		}
		return nil
	})
}

func encodeImage(w io.Writer, img image.Image, format string) error {
	switch format {
	case "png":
		return png.Encode(w, img)
	case "jpeg":
		return jpeg.Encode(w, flatten(img), &jpeg.Options{Quality: jpegQuality})
	case "gif":
		return gif.Encode(w, img, &gif.Options{NumColors: 256, Drawer: draw.FloydSteinberg})
	case "bmp":
		return bmp.Encode(w, img)
	case "tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("no encoder for %q", format)
	}
}
