package badge_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/campus-cafe/internal/badge"
)

func TestPayload(t *testing.T) {
	assert.Equal(t, "STUDENT_ID:S100|NAME:Ada|DEPT:CS", badge.Payload("S100", "Ada", "CS"))
}

func TestStudentIDFromPayload(t *testing.T) {
	id, err := badge.StudentIDFromPayload(badge.Payload("S100", "Ada", "CS"))
	require.NoError(t, err)
	assert.Equal(t, "S100", id)

	for _, bad := range []string{"", "S100", "STUDENT_ID:", "STUDENT_ID:|NAME:x", "STUDENT_ID:S100"} {
		_, err := badge.StudentIDFromPayload(bad)
		assert.ErrorIs(t, err, badge.ErrBadPayload, bad)
	}
}

func TestFileKey(t *testing.T) {
	assert.Equal(t, "qr_code_S100.png", badge.FileKey("S100"))
}

func TestGenerator_Generate_FixedCanvas(t *testing.T) {
	g := badge.NewGenerator()

	for _, name := range []string{"Ada", strings.Repeat("Lovelace ", 20)} {
		pngBytes, err := g.Generate("S100", name, "CS")
		require.NoError(t, err)

		img, err := png.Decode(bytes.NewReader(pngBytes))
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, badge.CanvasSize, badge.CanvasSize), img.Bounds())

		r, gr, b, _ := img.At(0, 0).RGBA()
		assert.Equal(t, [3]uint32{0xffff, 0xffff, 0xffff}, [3]uint32{r, gr, b}, "canvas corner should be white")
	}
}

func TestGenerator_Generate_Deterministic(t *testing.T) {
	g := badge.NewGenerator()

	first, err := g.Generate("S100", "Ada", "CS")
	require.NoError(t, err)
	second, err := g.Generate("S100", "Ada", "CS")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestGenerator_Generate_EncodingFailure(t *testing.T) {
	g := badge.NewGenerator()

	_, err := g.Generate("S100", strings.Repeat("x", 5000), "CS")
	require.Error(t, err)
	assert.ErrorIs(t, err, badge.ErrEncoding)
}

func TestGenerator_Compose(t *testing.T) {
	g := badge.NewGenerator()

	tests := []struct {
		name       string
		src        image.Rectangle
		wantPlaced image.Rectangle
	}{
		{
			name:       "small_is_centered_unscaled",
			src:        image.Rect(0, 0, 250, 250),
			wantPlaced: image.Rect(75, 75, 325, 325),
		},
		{
			name:       "exact_bound_is_not_scaled",
			src:        image.Rect(0, 0, 360, 360),
			wantPlaced: image.Rect(20, 20, 380, 380),
		},
		{
			name:       "wide_render_is_downscaled",
			src:        image.Rect(0, 0, 500, 500),
			wantPlaced: image.Rect(20, 20, 380, 380),
		},
		{
			name:       "non_square_keeps_aspect",
			src:        image.Rect(0, 0, 720, 360),
			wantPlaced: image.Rect(20, 110, 380, 290),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := image.NewGray(tt.src)
			canvas, placed, err := g.Compose(src)
			require.NoError(t, err)

			assert.Equal(t, tt.wantPlaced, placed)
			assert.Equal(t, image.Rect(0, 0, 400, 400), canvas.Bounds())
			assert.Equal(t, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, canvas.RGBAAt(0, 0))
			assert.Equal(t, color.RGBA{A: 0xff}, canvas.RGBAAt(200, 200))
		})
	}
}

func TestGenerator_Compose_Empty(t *testing.T) {
	_, _, err := badge.NewGenerator().Compose(image.NewGray(image.Rect(0, 0, 0, 0)))
	assert.ErrorIs(t, err, badge.ErrCompositing)
}
