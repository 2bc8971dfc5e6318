package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"

	"scenegen/internal/region"
	"scenegen/pkg/geometry"

	"golang.org/x/image/vector"
)

type cocoFile struct {
	Images      []cocoImage      `json:"images"`
	Annotations []cocoAnnotation `json:"annotations"`
	Categories  []cocoCategory   `json:"categories"`
}

type cocoImage struct {
	ID       int    `json:"id"`
	FileName string `json:"file_name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type cocoAnnotation struct {
	ID           int             `json:"id"`
	ImageID      int             `json:"image_id"`
	CategoryID   int             `json:"category_id"`
	BBox         []float64       `json:"bbox"` // x, y, w, h
	Segmentation json.RawMessage `json:"segmentation"`
	IsCrowd      int             `json:"iscrowd"`
}

type cocoCategory struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// COCO reads an instances-style annotation file.
type COCO struct {
	imageDir   string
	images     map[int]cocoImage
	byImage    map[int][]cocoAnnotation
	categories []Category
	order      []int // image ids in file order
}

var _ Adapter = (*COCO)(nil)

// LoadCOCO parses annotationFile. Image file names resolve against imageDir,
// or the annotation file's directory when imageDir is empty.
func LoadCOCO(annotationFile, imageDir string) (*COCO, error) {
	f, err := openManifest(annotationFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var raw cocoFile
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %v: %w", annotationFile, err, ErrAdapterIO)
	}
	if imageDir == "" {
		imageDir = filepath.Dir(annotationFile)
	}

	c := &COCO{
		imageDir: imageDir,
		images:   make(map[int]cocoImage, len(raw.Images)),
		byImage:  make(map[int][]cocoAnnotation),
	}
	for _, img := range raw.Images {
		c.images[img.ID] = img
		c.order = append(c.order, img.ID)
	}
	for _, a := range raw.Annotations {
		c.byImage[a.ImageID] = append(c.byImage[a.ImageID], a)
	}
	for _, cat := range raw.Categories {
		name := cat.Name
		if name == "" {
			name = cat.Category
		}
		c.categories = append(c.categories, Category{ID: cat.ID, Name: name})
	}
	return c, nil
}

// Categories lists the dataset's categories in file order.
func (c *COCO) Categories() []Category {
	out := make([]Category, len(c.categories))
	copy(out, c.categories)
	return out
}

// ImageIDs lists images that have at least one annotation of every
// requested category, or every image when categoryIDs is empty.
func (c *COCO) ImageIDs(categoryIDs []int) ([]string, error) {
	var ids []string
	for _, id := range c.order {
		if c.hasAll(id, categoryIDs) {
			ids = append(ids, strconv.Itoa(id))
		}
	}
	SortIDs(ids)
	return ids, nil
}

func (c *COCO) hasAll(imageID int, categoryIDs []int) bool {
	for _, want := range categoryIDs {
		found := false
		for _, a := range c.byImage[imageID] {
			if a.CategoryID == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Path returns the image file for id.
func (c *COCO) Path(id string) (string, error) {
	img, err := c.lookup(id)
	if err != nil {
		return "", err
	}
	return resolve(c.imageDir, img.FileName), nil
}

func (c *COCO) lookup(id string) (cocoImage, error) {
	n, err := strconv.Atoi(id)
	if err != nil {
		return cocoImage{}, fmt.Errorf("image %q: %w", id, ErrUnknownImage)
	}
	img, ok := c.images[n]
	if !ok {
		return cocoImage{}, fmt.Errorf("image %q: %w", id, ErrUnknownImage)
	}
	return img, nil
}

// Image loads id and the annotations whose category is in categoryIDs.
// Crowd annotations keep their box but carry no mask.
func (c *COCO) Image(ctx context.Context, id string, categoryIDs []int) (*Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	meta, err := c.lookup(id)
	if err != nil {
		return nil, err
	}

	path := resolve(c.imageDir, meta.FileName)
	img, err := loadImage(path)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()

	s := &Sample{ID: id, Path: path, Image: img}
	for _, a := range c.byImage[meta.ID] {
		if len(categoryIDs) > 0 && !containsInt(categoryIDs, a.CategoryID) {
			continue
		}
		if len(a.BBox) != 4 {
			continue
		}
		box := geometry.Rect{X: a.BBox[0], Y: a.BBox[1], Width: a.BBox[2], Height: a.BBox[3]}.Round()
		frame := image.Rect(0, 0, b.Dx(), b.Dy())
		ann := Annotation{
			CategoryID: a.CategoryID,
			Box:        region.Box(geometry.RectFromImage(box.ImageRect().Intersect(frame))),
		}
		if a.IsCrowd == 0 {
			if polys := decodePolygons(a.Segmentation); len(polys) > 0 {
				ann.Mask = RasterizePolygons(polys, b.Dx(), b.Dy())
			}
		}
		s.Annotations = append(s.Annotations, ann)
	}
	return s, nil
}

// GroupCategories returns, per image, the distinct category ids of its
// annotations in first-seen order. Images without annotations are omitted.
func (c *COCO) GroupCategories() map[string][]int {
	out := make(map[string][]int)
	for _, id := range c.order {
		for _, a := range c.byImage[id] {
			key := strconv.Itoa(id)
			if !containsInt(out[key], a.CategoryID) {
				out[key] = append(out[key], a.CategoryID)
			}
		}
	}
	return out
}

// ImageExists reports whether the file behind id is on disk.
func (c *COCO) ImageExists(id string) bool {
	path, err := c.Path(id)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// decodePolygons returns the polygon form of a segmentation. Run-length
// encoded segmentations decode to nil.
func decodePolygons(raw json.RawMessage) [][]float64 {
	if len(raw) == 0 || raw[0] != '[' {
		return nil
	}
	var polys [][]float64
	if err := json.Unmarshal(raw, &polys); err != nil {
		return nil
	}
	return polys
}

// RasterizePolygons fills each flat x0,y0,x1,y1,... polygon into a mask of
// the given size. Polygons are clipped to the frame first; a pixel is set
// when at least half of it is covered.
func RasterizePolygons(polys [][]float64, width, height int) *region.Mask {
	m := region.NewMask(width, height)
	if width <= 0 || height <= 0 {
		return m
	}

	size := geometry.NewSize(width, height)
	for _, flat := range polys {
		p := geometry.PolygonFromFlat(flat).ClipToSize(size)
		if len(p) < 3 {
			continue
		}
		r := vector.NewRasterizer(width, height)
		r.MoveTo(float32(p[0].X), float32(p[0].Y))
		for _, pt := range p[1:] {
			r.LineTo(float32(pt.X), float32(pt.Y))
		}
		r.ClosePath()

		cover := image.NewAlpha(image.Rect(0, 0, width, height))
		r.Draw(cover, cover.Bounds(), image.Opaque, image.Point{})
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				if cover.AlphaAt(x, y).A >= 128 {
					m.Set(x, y, true)
				}
			}
		}
	}
	return m
}
