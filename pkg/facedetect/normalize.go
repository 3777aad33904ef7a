package facedetect

// Face is a detection after normalization, in source-image pixels.
type Face struct {
	X          int `json:"x"`
	Y          int `json:"y"`
	Width      int `json:"width"`
	Height     int `json:"height"`
	Confidence int `json:"confidence"` // 0-100
	Angle      int `json:"angle"`
}

// Normalize drops records scoring below threshold and clamps the rest to a
// frameWidth x frameHeight image. In-range coordinates are left untouched.
// Width and height are shrunk so the box ends inside the frame; the result is
// not re-validated, so a box starting on the last column comes out with zero
// or negative width. Input order is preserved.
func Normalize(records []RawRecord, frameWidth, frameHeight, threshold int) []Face {
	faces := make([]Face, 0, len(records))
	for _, r := range records {
		if int(r.Confidence) < threshold {
			continue
		}

		x, y := int(r.X), int(r.Y)
		w, h := int(r.Width), int(r.Height)

		if x < 0 {
			x = 0
		} else if x >= frameWidth {
			x = frameWidth - 1
		}

		if y < 0 {
			y = 0
		} else if y >= frameHeight {
			y = frameHeight - 1
		}

		if x+w >= frameWidth {
			w = frameWidth - 1 - x
		}
		if y+h >= frameHeight {
			h = frameHeight - 1 - y
		}

		faces = append(faces, Face{
			X:          x,
			Y:          y,
			Width:      w,
			Height:     h,
			Confidence: int(r.Confidence),
			Angle:      int(r.Angle),
		})
	}
	return faces
}
