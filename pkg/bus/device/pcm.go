// ABOUTME: Little-endian PCM packing between device byte buffers and bus blocks
// ABOUTME: Short device periods are zero filled
package device

import "encoding/binary"

// readS16 copies captured S16LE bytes into dst, zero filling a short period
func readS16(dst []int16, input []byte) {
	n := min(len(dst), len(input)/2)
	for i := 0; i < n; i++ {
		dst[i] = int16(binary.LittleEndian.Uint16(input[i*2:]))
	}
	clear(dst[n:])
}

func writeS16(output []byte, src []int16) {
	n := min(len(src), len(output)/2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(output[i*2:], uint16(src[i]))
	}
	clear(output[n*2:])
}

// readS32 takes the upper 24 bits of each captured S32LE sample
func readS32(dst []int32, input []byte) {
	n := min(len(dst), len(input)/4)
	for i := 0; i < n; i++ {
		dst[i] = int32(binary.LittleEndian.Uint32(input[i*4:])) >> 8
	}
	clear(dst[n:])
}

// writeS32 shifts each 24-bit sample into the upper bits of an S32LE word
func writeS32(output []byte, src []int32) {
	n := min(len(src), len(output)/4)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(output[i*4:], uint32(src[i]<<8))
	}
	clear(output[n*4:])
}
