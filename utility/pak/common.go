// Copyright (c) 2026 lumen3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package pak is an api for an lz4 backed archive format built for
// resource streaming. It is designed to be memory mapped, so (unlike
// tar) it knows where every file is located before it is read. The
// archive itself is not compressed, every file is compressed
// individually so it can be read from its place and decompressed on
// the fly. That compromises space efficiency for read latency. It can
// be read from concurrently.
package pak

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
)

// package errors
var (
	ErrFileFormat = errors.New("corrupted or not a pak archive")
	ErrNotFound   = errors.New("no such file in archive")
	ErrTempFail   = errors.New("temporary folder or file operation failed")
)

// Sizes relevant to the head of the file
const (
	MagicLength            = 4
	HeaderSizeNumberLength = binary.MaxVarintLen64
)

var magic = [MagicLength]byte{'P', 'A', 'K', '\x00'}

// IndexEntry is info for one file in the file index. Offset is
// relative to the start of the data section, which begins right after
// the encoded header.
type IndexEntry struct {
	Name           string
	Offset         int64
	Size           int64
	CompressedSize int64
}

// Header is the file header for pak files.
type Header struct {
	Author      string
	DateCreated int64
	Version     int64
	Index       []IndexEntry
}

func int64ToBinary(num int64) []byte {
	numBytes := make([]byte, binary.MaxVarintLen64)
	binary.PutVarint(numBytes, num)
	return numBytes
}

func binaryToint64(bts []byte) (int64, error) {
	num, err := binary.ReadVarint(bytes.NewReader(bts))
	if err != nil {
		return 0, err
	}
	return num, nil
}

func gobEncode(data interface{}) ([]byte, error) {
	var encoded bytes.Buffer
	enc := gob.NewEncoder(&encoded)
	if err := enc.Encode(data); err != nil {
		return nil, err
	}
	return encoded.Bytes(), nil
}

func gobDecode(obj interface{}, bts []byte) error {
	return gob.NewDecoder(bytes.NewBuffer(bts)).Decode(obj)
}
