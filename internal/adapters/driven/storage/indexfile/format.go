package indexfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math"

	"github.com/google/uuid"
)

const (
	// VectorFile is the name of the vector artifact.
	VectorFile = "index.vec"

	// MetaFile is the name of the side table artifact.
	MetaFile = "index.meta.json"

	formatVersion = 1
)

var magic = [8]byte{'R', 'G', 'F', 'Y', 'V', 'E', 'C', 0}

// header precedes the vectors in index.vec.
type header struct {
	Magic      [8]byte
	Version    uint32
	Dimensions uint32
	Count      uint32
	Generation [16]byte
}

var headerSize = binary.Size(header{})

// metaFile is the JSON layout of index.meta.json.
type metaFile struct {
	Version    int         `json:"version"`
	Generation string      `json:"generation"`
	Model      string      `json:"model,omitempty"`
	Dimensions int         `json:"dimensions"`
	Entries    []metaEntry `json:"entries"`
}

type metaEntry struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

var errGenerationMismatch = errors.New("generation mismatch")

// encodeVectors returns the full contents of index.vec.
func encodeVectors(gen uuid.UUID, dims int, vectors [][]float32) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(headerSize + len(vectors)*dims*4 + 4)

	h := header{
		Magic:      magic,
		Version:    formatVersion,
		Dimensions: uint32(dims),
		Count:      uint32(len(vectors)),
		Generation: gen,
	}
	if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
		return nil, err
	}

	b := make([]byte, 4)
	for i, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("vector %d has %d dimensions, want %d", i, len(v), dims)
		}
		for _, f := range v {
			binary.LittleEndian.PutUint32(b, math.Float32bits(f))
			buf.Write(b)
		}
	}

	binary.LittleEndian.PutUint32(b, crc32.ChecksumIEEE(buf.Bytes()))
	buf.Write(b)
	return buf.Bytes(), nil
}

// decodeVectors parses index.vec.
func decodeVectors(data []byte) (header, [][]float32, error) {
	var h header
	if len(data) < headerSize+4 {
		return h, nil, fmt.Errorf("vector file truncated: %d bytes", len(data))
	}

	body, sum := data[:len(data)-4], binary.LittleEndian.Uint32(data[len(data)-4:])
	if crc32.ChecksumIEEE(body) != sum {
		return h, nil, errors.New("vector file checksum mismatch")
	}

	if err := binary.Read(bytes.NewReader(body[:headerSize]), binary.LittleEndian, &h); err != nil {
		return h, nil, err
	}
	if h.Magic != magic {
		return h, nil, errors.New("not a vector index file")
	}
	if h.Version != formatVersion {
		return h, nil, fmt.Errorf("unsupported vector file version %d", h.Version)
	}
	if h.Dimensions == 0 {
		return h, nil, errors.New("vector file has zero dimensions")
	}

	dims, count := int(h.Dimensions), int(h.Count)
	payload := body[headerSize:]
	if len(payload) != count*dims*4 {
		return h, nil, fmt.Errorf("vector payload is %d bytes, want %d", len(payload), count*dims*4)
	}

	vectors := make([][]float32, count)
	for i := range count {
		v := make([]float32, dims)
		for j := range dims {
			off := (i*dims + j) * 4
			v[j] = math.Float32frombits(binary.LittleEndian.Uint32(payload[off:]))
		}
		vectors[i] = v
	}
	return h, vectors, nil
}
