// ABOUTME: Word-backed PCM buffers in the bus's native sample layout
// ABOUTME: 16-bit samples are packed two per word, 24-bit samples use a whole word
package audio

import (
	"fmt"
	"unsafe"
)

// Block is a fixed-size PCM buffer allocated as 32-bit words so that it
// satisfies the transfer alignment of the bus hardware. Samples are stored
// in host byte order.
type Block struct {
	words    []uint32
	bitDepth int
	samples  int
}

// NewBlock allocates a block holding samples PCM values at bitDepth
func NewBlock(bitDepth, samples int) (*Block, error) {
	if _, err := FullScale(bitDepth); err != nil {
		return nil, err
	}
	if samples <= 0 {
		return nil, fmt.Errorf("%w: %d samples", ErrBlockSize, samples)
	}

	wordBytes := Format{BitDepth: bitDepth}.WordBytes()
	nWords := (samples*wordBytes + 3) / 4

	return &Block{
		words:    make([]uint32, nWords),
		bitDepth: bitDepth,
		samples:  samples,
	}, nil
}

// Len returns the number of samples in the block
func (b *Block) Len() int { return b.samples }

// BitDepth returns the sample bit depth
func (b *Block) BitDepth() int { return b.bitDepth }

// Words returns the backing word storage, as handed to transfer hardware
func (b *Block) Words() []uint32 { return b.words }

// Bytes returns the sample memory as bytes (host byte order)
func (b *Block) Bytes() []byte {
	n := b.samples * Format{BitDepth: b.bitDepth}.WordBytes()
	return unsafe.Slice((*byte)(unsafe.Pointer(&b.words[0])), n)
}

// Int16 returns a typed view of a 16-bit block
func (b *Block) Int16() []int16 {
	if b.bitDepth != 16 {
		panic(fmt.Sprintf("audio: Int16 view of %d-bit block", b.bitDepth))
	}
	return unsafe.Slice((*int16)(unsafe.Pointer(&b.words[0])), b.samples)
}

// Int32 returns a typed view of a 24-bit (32-bit word) block
func (b *Block) Int32() []int32 {
	if b.bitDepth != 24 {
		panic(fmt.Sprintf("audio: Int32 view of %d-bit block", b.bitDepth))
	}
	return unsafe.Slice((*int32)(unsafe.Pointer(&b.words[0])), b.samples)
}

// At returns sample i widened to int32
func (b *Block) At(i int) int32 {
	if b.bitDepth == 16 {
		return int32(b.Int16()[i])
	}
	return b.Int32()[i]
}

// Set stores v as sample i. v must already be in range for the bit depth.
func (b *Block) Set(i int, v int32) {
	if b.bitDepth == 16 {
		b.Int16()[i] = int16(v)
		return
	}
	b.Int32()[i] = v
}

// Zero clears every sample
func (b *Block) Zero() {
	clear(b.words)
}

// Aligned reports whether the sample memory starts on an align-byte boundary
func (b *Block) Aligned(align uintptr) bool {
	if align == 0 {
		return true
	}
	return uintptr(unsafe.Pointer(&b.words[0]))%align == 0
}
