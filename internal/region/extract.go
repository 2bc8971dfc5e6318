package region

import (
	"fmt"
	"image"

	sgimage "scenegen/internal/image"
	"scenegen/pkg/geometry"
)

// Crop is the content of a region lifted out of its image.
type Crop struct {
	Image  *image.RGBA
	Size   geometry.Size
	Alpha  *image.Alpha     // nil for boxes
	Bounds geometry.RectInt // where the crop came from
}

// Masked reports whether the crop carries per-pixel alpha.
func (c *Crop) Masked() bool {
	return c.Alpha != nil
}

// Extract resolves r against img and copies out its bounding box. Mask
// regions also carry their mask, cropped to the same box, as 0/255 alpha.
func Extract(img image.Image, r Region) (*Crop, error) {
	size := geometry.SizeOf(img.Bounds())

	mask := r.AsMask()
	if mask != nil && mask.Size() != size {
		return nil, fmt.Errorf("mask %s on image %s: %w", mask.Size(), size, ErrOutOfBounds)
	}

	box, err := r.Bounds()
	if err != nil {
		return nil, err
	}
	if !box.Within(size) {
		return nil, fmt.Errorf("box %s on image %s: %w", box, size, ErrOutOfBounds)
	}

	src := img.Bounds()
	crop, err := sgimage.Crop(img, box.ImageRect().Add(src.Min))
	if err != nil {
		return nil, fmt.Errorf("failed to crop region: %w", err)
	}

	c := &Crop{Image: crop, Size: box.Size(), Bounds: box}
	if mask != nil {
		c.Alpha = mask.Alpha(box)
	}
	return c, nil
}
