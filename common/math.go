package common

import (
	"unsafe"

	"github.com/chewxy/math32"
)

// Mat3 is a 3x3 affine transform stored in column-major order, the layout
// expected by WGSL mat3x3<f32> uniforms. Element (row r, column c) lives at
// index c*3+r.
type Mat3 [9]float32

// Mat3Identity returns the identity transform.
//
// Returns:
//   - Mat3: the identity matrix
func Mat3Identity() Mat3 {
	return Mat3{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}
}

// Mat3Translate returns a transform that translates by (x, y).
//
// Parameters:
//   - x: translation along the x axis
//   - y: translation along the y axis
//
// Returns:
//   - Mat3: the translation matrix
func Mat3Translate(x, y float32) Mat3 {
	return Mat3{
		1, 0, 0,
		0, 1, 0,
		x, y, 1,
	}
}

// Mat3Rotate returns a transform that rotates counter-clockwise by the given
// angle in radians.
//
// Parameters:
//   - radians: rotation angle in radians
//
// Returns:
//   - Mat3: the rotation matrix
func Mat3Rotate(radians float32) Mat3 {
	s := math32.Sin(radians)
	c := math32.Cos(radians)
	return Mat3{
		c, s, 0,
		-s, c, 0,
		0, 0, 1,
	}
}

// Mat3Scale returns a transform that scales by (sx, sy).
//
// Parameters:
//   - sx: scale factor along the x axis
//   - sy: scale factor along the y axis
//
// Returns:
//   - Mat3: the scale matrix
func Mat3Scale(sx, sy float32) Mat3 {
	return Mat3{
		sx, 0, 0,
		0, sy, 0,
		0, 0, 1,
	}
}

// Mul returns the matrix product a * b. Composing transforms this way applies
// b in the local space established by a, which is the hierarchical parent to
// child convention used throughout the engine.
//
// Parameters:
//   - b: the right-hand matrix
//
// Returns:
//   - Mat3: the product a * b
func (a Mat3) Mul(b Mat3) Mat3 {
	var out Mat3
	for c := 0; c < 3; c++ {
		for r := 0; r < 3; r++ {
			sum := float32(0)
			for k := 0; k < 3; k++ {
				sum += a[k*3+r] * b[c*3+k]
			}
			out[c*3+r] = sum
		}
	}
	return out
}

// Apply transforms the point (x, y) by the matrix, treating it as a position
// (w = 1).
//
// Parameters:
//   - x: point x coordinate
//   - y: point y coordinate
//
// Returns:
//   - float32: the transformed x coordinate
//   - float32: the transformed y coordinate
func (a Mat3) Apply(x, y float32) (float32, float32) {
	ox := a[0]*x + a[3]*y + a[6]
	oy := a[1]*x + a[4]*y + a[7]
	return ox, oy
}

// Ortho returns a 4x4 column-major orthographic projection mapping pixel
// coordinates (origin top-left, y down) to clip space. Suitable for upload as
// a mat4x4<f32> projection uniform.
//
// Parameters:
//   - width: viewport width in pixels
//   - height: viewport height in pixels
//
// Returns:
//   - [16]float32: the projection matrix
func Ortho(width, height float32) [16]float32 {
	return [16]float32{
		2 / width, 0, 0, 0,
		0, -2 / height, 0, 0,
		0, 0, 1, 0,
		-1, 1, 0, 1,
	}
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// StructToBytes reinterprets a pointer to a struct as a raw byte slice using unsafe.
// The returned slice has length equal to the struct's size in memory.
//
// Parameters:
//   - v: pointer to the struct to reinterpret
//
// Returns:
//   - []byte: byte slice view of the struct's memory
func StructToBytes[T any](v *T) []byte {
	size := unsafe.Sizeof(*v)
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), int(size))
}
