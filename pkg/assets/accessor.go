package assets

import (
	"errors"
	"fmt"
	"math"

	"github.com/qmuntal/gltf"
)

var errAccessor = errors.New("invalid accessor")

func componentCount(t gltf.AccessorType) int {
	switch t {
	case gltf.AccessorScalar:
		return 1
	case gltf.AccessorVec2:
		return 2
	case gltf.AccessorVec3:
		return 3
	case gltf.AccessorVec4:
		return 4
	case gltf.AccessorMat2:
		return 4
	case gltf.AccessorMat3:
		return 9
	case gltf.AccessorMat4:
		return 16
	}
	return 0
}

func componentSize(c gltf.ComponentType) int {
	switch c {
	case gltf.ComponentByte, gltf.ComponentUbyte:
		return 1
	case gltf.ComponentShort, gltf.ComponentUshort:
		return 2
	case gltf.ComponentUint, gltf.ComponentFloat:
		return 4
	}
	return 0
}

// accessorBytes returns the buffer bytes an accessor reads from, its
// element stride and the element count.
func accessorBytes(doc *gltf.Document, idx int) (*gltf.Accessor, []byte, int, error) {
	if idx < 0 || idx >= len(doc.Accessors) {
		return nil, nil, 0, fmt.Errorf("%w: index %d out of range", errAccessor, idx)
	}
	acr := doc.Accessors[idx]
	if acr.BufferView == nil {
		return nil, nil, 0, fmt.Errorf("%w: accessor %d has no buffer view", errAccessor, idx)
	}
	view := doc.BufferViews[*acr.BufferView]
	buf := doc.Buffers[view.Buffer]
	if buf.Data == nil {
		return nil, nil, 0, fmt.Errorf("%w: buffer %d has no data", errAccessor, view.Buffer)
	}
	width := componentCount(acr.Type) * componentSize(acr.ComponentType)
	if width == 0 {
		return nil, nil, 0, fmt.Errorf("%w: unsupported %v/%v", errAccessor, acr.Type, acr.ComponentType)
	}
	stride := view.ByteStride
	if stride == 0 {
		stride = width
	}
	start := view.ByteOffset + acr.ByteOffset
	if acr.Count > 0 {
		end := start + (acr.Count-1)*stride + width
		if end > len(buf.Data) {
			return nil, nil, 0, fmt.Errorf("%w: accessor %d reads past buffer end", errAccessor, idx)
		}
	}
	return acr, buf.Data[start:], stride, nil
}

// readFloats decodes any numeric accessor into float64, applying the
// normalization rules for integer components.
func readFloats(doc *gltf.Document, idx int) ([]float64, int, error) {
	acr, data, stride, err := accessorBytes(doc, idx)
	if err != nil {
		return nil, 0, err
	}
	n := componentCount(acr.Type)
	size := componentSize(acr.ComponentType)
	out := make([]float64, 0, acr.Count*n)
	for i := range acr.Count {
		base := i * stride
		for j := range n {
			out = append(out, readComponent(data[base+j*size:], acr.ComponentType, acr.Normalized))
		}
	}
	return out, n, nil
}

func readComponent(b []byte, c gltf.ComponentType, normalized bool) float64 {
	switch c {
	case gltf.ComponentFloat:
		return float64(math.Float32frombits(le32(b)))
	case gltf.ComponentUbyte:
		v := float64(b[0])
		if normalized {
			return v / 255
		}
		return v
	case gltf.ComponentByte:
		v := float64(int8(b[0]))
		if normalized {
			return math.Max(v/127, -1)
		}
		return v
	case gltf.ComponentUshort:
		v := float64(le16(b))
		if normalized {
			return v / 65535
		}
		return v
	case gltf.ComponentShort:
		v := float64(int16(le16(b)))
		if normalized {
			return math.Max(v/32767, -1)
		}
		return v
	case gltf.ComponentUint:
		return float64(le32(b))
	}
	return 0
}

// readIndices reads a scalar unsigned index accessor.
func readIndices(doc *gltf.Document, idx int) ([]int, error) {
	acr, data, stride, err := accessorBytes(doc, idx)
	if err != nil {
		return nil, err
	}
	if acr.Type != gltf.AccessorScalar {
		return nil, fmt.Errorf("%w: indices must be SCALAR, got %v", errAccessor, acr.Type)
	}
	out := make([]int, acr.Count)
	for i := range acr.Count {
		b := data[i*stride:]
		switch acr.ComponentType {
		case gltf.ComponentUbyte:
			out[i] = int(b[0])
		case gltf.ComponentUshort:
			out[i] = int(le16(b))
		case gltf.ComponentUint:
			out[i] = int(le32(b))
		default:
			return nil, fmt.Errorf("%w: index component %v", errAccessor, acr.ComponentType)
		}
	}
	return out, nil
}

func le16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
