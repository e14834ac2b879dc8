package rsrc

import (
	"github.com/ZacharyZcR/pecoff/internal/binio"
)

// RGBQuad is a palette entry. On disk the channels are stored blue first.
type RGBQuad struct {
	Red      uint8
	Green    uint8
	Blue     uint8
	Reserved uint8
}

// ReadRGBQuad decodes blue, green, red, reserved.
func ReadRGBQuad(r *binio.Reader) (RGBQuad, error) {
	var q RGBQuad
	for _, dst := range []*uint8{&q.Blue, &q.Green, &q.Red, &q.Reserved} {
		b, err := r.ReadByte()
		if err != nil {
			return q, wrap(err, "读取RGBQUAD失败")
		}
		*dst = b
	}
	return q, nil
}

// WriteRGBQuad encodes blue, green, red, reserved.
func WriteRGBQuad(w *binio.Writer, q RGBQuad) {
	for _, b := range []uint8{q.Blue, q.Green, q.Red, q.Reserved} {
		_ = w.WriteByte(b)
	}
}
