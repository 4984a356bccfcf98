package core

import (
	"fmt"
	"math/bits"
)

// BytesPerSample is the size of one R32Float voxel.
const BytesPerSample = 4

type Extents struct {
	W, H, D uint32
}

// Voxels returns W*H*D. ok is false when the product overflows uint64.
func (e Extents) Voxels() (n uint64, ok bool) {
	hi, n := bits.Mul64(uint64(e.W)*uint64(e.H), uint64(e.D))
	return n, hi == 0
}

// Bytes returns the size of the grid at sampleSize bytes per voxel. It
// fails with ErrInvalidCube when the size does not fit in an int.
func (e Extents) Bytes(sampleSize uint64) (uint64, error) {
	n, ok := e.Voxels()
	if ok {
		var hi uint64
		hi, n = bits.Mul64(n, sampleSize)
		ok = hi == 0 && n <= uint64(maxInt)
	}
	if !ok {
		return 0, fmt.Errorf("%w: extents %s at %d bytes per sample overflow", ErrInvalidCube, e, sampleSize)
	}
	return n, nil
}

const maxInt = int(^uint(0) >> 1)

func (e Extents) String() string {
	return fmt.Sprintf("%dx%dx%d", e.W, e.H, e.D)
}

// ValidateCube checks the CubeTextureFactory preconditions. maxDim of 0
// disables the per-axis limit.
func ValidateCube(extents Extents, sampleBytes int, maxDim uint32) error {
	if extents.W == 0 || extents.H == 0 || extents.D == 0 {
		return fmt.Errorf("%w: extents %s must all be >= 1", ErrInvalidCube, extents)
	}
	if maxDim > 0 && (extents.W > maxDim || extents.H > maxDim || extents.D > maxDim) {
		return fmt.Errorf("%w: extents %s exceed the texture limit %d", ErrInvalidCube, extents, maxDim)
	}
	want, err := extents.Bytes(BytesPerSample)
	if err != nil {
		return err
	}
	if sampleBytes < 0 || uint64(sampleBytes) != want {
		return fmt.Errorf("%w: %d sample bytes for extents %s, want %d", ErrInvalidCube, sampleBytes, extents, want)
	}
	return nil
}

// VolumeTexture is a GPU-resident cube: 3-D texture, view and sampler.
type VolumeTexture interface {
	Extents() Extents
	Release()
}

// TextureFactory uploads raw samples. It must fail with ErrInvalidCube,
// without allocating, when ValidateCube rejects the input.
type TextureFactory interface {
	Build(extents Extents, samples []byte) (VolumeTexture, error)
}
