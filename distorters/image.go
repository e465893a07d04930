package distorters

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	_ "golang.org/x/image/webp" // static stickers

	"github.com/graynk/magikbot/tools"
)

const (
	DefaultMagikTimeout = 60 * time.Second
	shrinkFactor        = 0.5
	growFactor          = 1.5
)

// Magik pipes images through ImageMagick's liquid rescale. Everything stays
// in memory, the image is fed on stdin and read back from stdout.
type Magik struct {
	magickPath string
	timeout    time.Duration
}

type Warped struct {
	PNG  []byte
	Size image.Point
}

func NewMagik(magickPath string, timeout time.Duration) Magik {
	if magickPath == "" {
		magickPath = "convert"
	}
	if timeout <= 0 {
		timeout = DefaultMagikTimeout
	}
	return Magik{magickPath: magickPath, timeout: timeout}
}

// Geometry returns both liquid rescale targets. Both are relative to the
// original size, the second pass does not compound on the first.
func Geometry(width, height int) (small, big image.Point) {
	scale := func(side int, factor float64) int {
		scaled := int(float64(side) * factor)
		if scaled < 1 {
			return 1
		}
		return scaled
	}
	small = image.Pt(scale(width, shrinkFactor), scale(height, shrinkFactor))
	big = image.Pt(scale(width, growFactor), scale(height, growFactor))
	return small, big
}

func liquidGeometry(p image.Point) string {
	// delta_x defaults to 1 and rigidity to 0 when the offsets are omitted
	return fmt.Sprintf("%dx%d!", p.X, p.Y)
}

func (m Magik) Distort(ctx context.Context, data []byte) (*Warped, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrap(tools.DecodeErr, err.Error())
	}
	bounds := img.Bounds()
	small, big := Geometry(bounds.Dx(), bounds.Dy())

	// normalizing to png spares ImageMagick from guessing the format
	var input bytes.Buffer
	if err := imaging.Encode(&input, img, imaging.PNG); err != nil {
		return nil, errors.WithStack(err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	outbuf, errbuf, err := runCommand(ctx, &input, m.magickPath,
		"png:-",
		"-liquid-rescale", liquidGeometry(small),
		"-liquid-rescale", liquidGeometry(big),
		"png:-")
	if ctx.Err() == context.DeadlineExceeded {
		return nil, &tools.ToolError{Diagnostics: errbuf.String(), TimedOut: true, Err: err}
	}
	if err != nil {
		return nil, errors.Wrap(err, errbuf.String())
	}
	if outbuf.Len() == 0 {
		return nil, errors.New("imagemagick produced no output")
	}
	return &Warped{PNG: outbuf.Bytes(), Size: big}, nil
}
