package detection

import (
	"fmt"

	"github.com/teslashibe/go-facenode/pkg/facedetect"
	"gocv.io/x/gocv"
)

// FrameFromJPEG decodes an encoded image (JPEG, PNG, ...) into a BGR8 frame.
func FrameFromJPEG(data []byte, header facedetect.Header) (facedetect.Frame, error) {
	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return facedetect.Frame{}, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()

	return FrameFromMat(img, header)
}

// FrameFromFile reads an image file into a BGR8 frame.
func FrameFromFile(path string, header facedetect.Header) (facedetect.Frame, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	defer img.Close()

	if img.Empty() {
		return facedetect.Frame{}, fmt.Errorf("read image %s: empty or unsupported", path)
	}
	return FrameFromMat(img, header)
}

// FrameFromMat copies a Mat into a BGR8 frame, converting gray and BGRA input.
func FrameFromMat(img gocv.Mat, header facedetect.Header) (facedetect.Frame, error) {
	if img.Empty() {
		return facedetect.Frame{}, fmt.Errorf("empty image")
	}

	bgr := img
	switch img.Channels() {
	case 3:
	case 1:
		bgr = gocv.NewMat()
		defer bgr.Close()
		gocv.CvtColor(img, &bgr, gocv.ColorGrayToBGR)
	case 4:
		bgr = gocv.NewMat()
		defer bgr.Close()
		gocv.CvtColor(img, &bgr, gocv.ColorBGRAToBGR)
	default:
		return facedetect.Frame{}, fmt.Errorf("unsupported channel count %d", img.Channels())
	}

	if bgr.Type() != gocv.MatTypeCV8UC3 {
		return facedetect.Frame{}, fmt.Errorf("unsupported mat type %v", bgr.Type())
	}

	// ToBytes copies the pixel data, so the frame outlives the Mat.
	return facedetect.Frame{
		Pixels: bgr.ToBytes(),
		Width:  bgr.Cols(),
		Height: bgr.Rows(),
		Stride: bgr.Cols() * facedetect.Channels,
		Header: header,
	}, nil
}

// MatFromFrame builds a Mat over a copy of the frame's pixels, dropping any
// row padding.
func MatFromFrame(frame facedetect.Frame) (gocv.Mat, error) {
	if err := frame.Validate(); err != nil {
		return gocv.NewMat(), err
	}

	row := frame.Width * facedetect.Channels
	packed := frame.Pixels[:frame.Height*row]
	if frame.Stride != row {
		packed = make([]byte, frame.Height*row)
		for y := 0; y < frame.Height; y++ {
			copy(packed[y*row:(y+1)*row], frame.Pixels[y*frame.Stride:])
		}
	}

	view, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, packed)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("mat from frame: %w", err)
	}
	defer view.Close()

	// Clone so the Mat owns its pixels independent of the Go slice.
	return view.Clone(), nil
}
