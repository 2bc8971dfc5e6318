package inpaint

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// MeanFill is a deterministic Inpainter that replaces masked pixels with the
// mean colour of the unmasked ones. It stands in for the network in tests
// and offline runs.
type MeanFill struct{}

var _ Inpainter = MeanFill{}

func (MeanFill) Inpaint(ctx context.Context, img *image.RGBA, mask *image.Alpha) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if img.Bounds().Size() != mask.Bounds().Size() {
		return nil, fmt.Errorf("image %v, mask %v: %w", img.Bounds().Size(), mask.Bounds().Size(), ErrInpaintService)
	}
	return meanFill(img, mask), nil
}

func meanFill(img *image.RGBA, mask *image.Alpha) *image.RGBA {
	b := img.Bounds()
	mb := mask.Bounds()

	var sumR, sumG, sumB, n uint64
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			if mask.AlphaAt(mb.Min.X+x, mb.Min.Y+y).A != 0 {
				continue
			}
			c := img.RGBAAt(b.Min.X+x, b.Min.Y+y)
			sumR += uint64(c.R)
			sumG += uint64(c.G)
			sumB += uint64(c.B)
			n++
		}
	}
	fill := color.RGBA{A: 255}
	if n > 0 {
		fill = color.RGBA{R: uint8(sumR / n), G: uint8(sumG / n), B: uint8(sumB / n), A: 255}
	}

	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			if mask.AlphaAt(mb.Min.X+x, mb.Min.Y+y).A != 0 {
				out.SetRGBA(x, y, fill)
				continue
			}
			c := img.RGBAAt(b.Min.X+x, b.Min.Y+y)
			c.A = 255
			out.SetRGBA(x, y, c)
		}
	}
	return out
}

// NewStubRouter serves the inpainting contract on POST /inpaint. Like the
// real service it crops its input to the Grid before filling, so callers
// that skip alignment see a size mismatch.
func NewStubRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.POST("/inpaint", handleInpaint)
	return r
}

func handleInpaint(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	img, err := DecodeImage(req.Image)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Mask) != img.Bounds().Dy() || len(req.Mask[0]) != img.Bounds().Dx() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("image shape is %v while mask has %d rows",
			img.Bounds().Size(), len(req.Mask))})
		return
	}

	mask := image.NewAlpha(img.Bounds())
	for y, row := range req.Mask {
		for x, v := range row {
			if v != 0 && x < img.Bounds().Dx() {
				mask.SetAlpha(x, y, color.Alpha{A: 255})
			}
		}
	}

	aligned := GridAligned(img.Bounds(), Grid)
	if aligned.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image smaller than inpainting grid"})
		return
	}
	log.Printf("inpaint: %v -> %v", img.Bounds().Size(), aligned.Size())

	out := meanFill(img.SubImage(aligned).(*image.RGBA), mask.SubImage(aligned).(*image.Alpha))
	c.JSON(http.StatusOK, Response{Result: EncodeImage(out, out.Bounds())})
}
