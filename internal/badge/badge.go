// Package badge renders student QR badges.
//
// A badge is the payload STUDENT_ID:<id>|NAME:<name>|DEPT:<department>
// encoded as a low error-correction QR code, drawn black on white and
// centered on a fixed square canvas. Renders larger than the inner bound are
// downscaled with Catmull-Rom resampling before compositing.
package badge

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	"github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"
)

const (
	CanvasSize = 400
	InnerBound = 360
	ModuleSize = 10
)

var (
	ErrEncoding    = errors.New("badge: qr encoding failed")
	ErrCompositing = errors.New("badge: image compositing failed")
	ErrBadPayload  = errors.New("badge: malformed payload")
)

const (
	idPrefix   = "STUDENT_ID:"
	namePrefix = "NAME:"
	deptPrefix = "DEPT:"
)

// Payload builds the string encoded in a badge.
func Payload(studentID, name, department string) string {
	return idPrefix + studentID + "|" + namePrefix + name + "|" + deptPrefix + department
}

// StudentIDFromPayload extracts the student id from a scanned badge payload.
func StudentIDFromPayload(payload string) (string, error) {
	rest, ok := strings.CutPrefix(payload, idPrefix)
	if !ok {
		return "", ErrBadPayload
	}
	id, _, ok := strings.Cut(rest, "|")
	if !ok || id == "" {
		return "", ErrBadPayload
	}
	return id, nil
}

// FileKey is the storage key a student's badge is written under.
func FileKey(studentID string) string {
	return fmt.Sprintf("qr_code_%s.png", studentID)
}

type Generator struct {
	canvasSize int
	innerBound int
	moduleSize int
}

func NewGenerator() *Generator {
	return &Generator{
		canvasSize: CanvasSize,
		innerBound: InnerBound,
		moduleSize: ModuleSize,
	}
}

// Generate returns the PNG bytes of the badge for the given identity.
func (g *Generator) Generate(studentID, name, department string) ([]byte, error) {
	qr, err := qrcode.New(Payload(studentID, name, department), qrcode.Low)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	canvas, _, err := g.Compose(g.render(qr.Bitmap()))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompositing, err)
	}
	return buf.Bytes(), nil
}

// render draws the module bitmap (quiet zone included) at moduleSize px per module.
func (g *Generator) render(bitmap [][]bool) *image.Gray {
	side := len(bitmap) * g.moduleSize
	img := image.NewGray(image.Rect(0, 0, side, side))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}

	for y, row := range bitmap {
		for x, dark := range row {
			if !dark {
				continue
			}
			cell := image.Rect(x*g.moduleSize, y*g.moduleSize, (x+1)*g.moduleSize, (y+1)*g.moduleSize)
			draw.Draw(img, cell, image.Black, image.Point{}, draw.Src)
		}
	}
	return img
}

// Compose centers qr on a white canvas and returns the canvas together with
// the rectangle the QR image occupies on it.
func (g *Generator) Compose(qr image.Image) (*image.RGBA, image.Rectangle, error) {
	b := qr.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, image.Rectangle{}, fmt.Errorf("%w: empty qr render %v", ErrCompositing, b)
	}

	src := qr
	if b.Dx() > g.innerBound || b.Dy() > g.innerBound {
		w, h := fit(b.Dx(), b.Dy(), g.innerBound)
		scaled := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), qr, b, draw.Src, nil)
		src = scaled
	}

	canvas := image.NewRGBA(image.Rect(0, 0, g.canvasSize, g.canvasSize))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	sb := src.Bounds()
	offset := image.Pt((g.canvasSize-sb.Dx())/2, (g.canvasSize-sb.Dy())/2)
	placed := image.Rectangle{Min: offset, Max: offset.Add(sb.Size())}
	draw.Draw(canvas, placed, src, sb.Min, draw.Src)

	return canvas, placed, nil
}

// fit scales (w, h) down to lie within bound x bound keeping the aspect ratio.
func fit(w, h, bound int) (int, int) {
	if w >= h {
		nh := h * bound / w
		if nh < 1 {
			nh = 1
		}
		return bound, nh
	}
	nw := w * bound / h
	if nw < 1 {
		nw = 1
	}
	return nw, bound
}
