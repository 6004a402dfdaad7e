package dicom

import (
	"errors"
	"fmt"
	"image"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// ErrNoPixelData is returned by LoadFrame for files without a native image frame.
var ErrNoPixelData = errors.New("no pixel data")

// LoadFrame decodes the first frame of a DICOM file.
func LoadFrame(path string) (image.Image, error) {
	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	elem, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoPixelData, path)
	}

	info, ok := elem.Value.GetValue().(dicom.PixelDataInfo)
	if !ok || len(info.Frames) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPixelData, path)
	}

	img, err := info.Frames[0].GetImage()
	if err != nil {
		return nil, fmt.Errorf("decode frame of %s: %w", path, err)
	}
	return img, nil
}
