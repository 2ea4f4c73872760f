package hachimi

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"
)

const (
	// ChunkBits is the width of one payload chunk.
	ChunkBits = 10
	chunkMask = 1<<ChunkBits - 1

	checksumSize = 4
)

// ============================================================
// Pack / Unpack
// ============================================================

// Checksum is the 32-bit FNV-1a hash of data.
func Checksum(data []byte) uint32 {
	h := fnv.New32a()
	h.Write(data)
	return h.Sum32()
}

// Pack returns the bytes of text followed by their big-endian checksum.
func Pack(text string) []byte {
	buf := make([]byte, 0, len(text)+checksumSize)
	buf = append(buf, text...)
	return binary.BigEndian.AppendUint32(buf, Checksum(buf))
}

// Unpack verifies the checksum trailer and returns the body as text.
func Unpack(payload []byte) (string, error) {
	if len(payload) < checksumSize {
		return "", fmt.Errorf("%w: %d bytes", ErrPayloadTooShort, len(payload))
	}
	body := payload[:len(payload)-checksumSize]
	stored := binary.BigEndian.Uint32(payload[len(payload)-checksumSize:])
	if computed := Checksum(body); computed != stored {
		return "", fmt.Errorf("%w: stored %08x, computed %08x", ErrChecksumMismatch, stored, computed)
	}
	return string(body), nil
}

// ============================================================
// Compression
// ============================================================

// Compress gzips data at maximum compression with a zero modification
// time, so equal input always yields equal output.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompressionFailed, err)
	}
	// The header stores ModTime.Unix() as is; a zero time.Time is not zero.
	zw.ModTime = time.Unix(0, 0)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompressionFailed, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompressionFailed, err)
	}
	return buf.Bytes(), nil
}

// Decompress inflates a single gzip member. If limit is positive, output
// longer than limit bytes fails with ErrPayloadTooLarge.
func Decompress(data []byte, limit int64) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompressionFailed, err)
	}
	defer zr.Close()
	zr.Multistream(false)

	var r io.Reader = zr
	if limit > 0 {
		r = io.LimitReader(zr, limit+1)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompressionFailed, err)
	}
	if limit > 0 && int64(len(out)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrPayloadTooLarge, limit)
	}
	return out, nil
}

// ============================================================
// Chunking
// ============================================================

// Chunkify slices data, read as one big-endian bit stream, into 10-bit
// chunks. A trailing partial chunk is left-aligned and tailBits reports how
// many of its bits are real; tailBits is 0 when the stream divides evenly.
func Chunkify(data []byte) (chunks []uint16, tailBits int) {
	chunks = make([]uint16, 0, (len(data)*8+ChunkBits-1)/ChunkBits)
	var buf uint32
	bits := 0
	for _, b := range data {
		buf = buf<<8 | uint32(b)
		bits += 8
		for bits >= ChunkBits {
			bits -= ChunkBits
			chunks = append(chunks, uint16(buf>>bits)&chunkMask)
			buf &= 1<<bits - 1
		}
	}
	if bits > 0 {
		chunks = append(chunks, uint16(buf<<(ChunkBits-bits))&chunkMask)
	}
	return chunks, bits
}

// Unchunkify reverses Chunkify. Bits left over that do not form a whole
// byte fail with ErrDanglingBits.
func Unchunkify(chunks []uint16, tailBits int) ([]byte, error) {
	out := make([]byte, 0, len(chunks)*ChunkBits/8)
	var buf uint32
	bits := 0
	for i, c := range chunks {
		value := uint32(c) & chunkMask
		width := ChunkBits
		if i == len(chunks)-1 && tailBits > 0 && tailBits < ChunkBits {
			value >>= ChunkBits - tailBits
			width = tailBits
		}
		buf = buf<<width | value
		bits += width
		for bits >= 8 {
			bits -= 8
			out = append(out, byte(buf>>bits))
			buf &= 1<<bits - 1
		}
	}
	if bits != 0 {
		return nil, fmt.Errorf("%w: %d left over", ErrDanglingBits, bits)
	}
	return out, nil
}
