// Copyright (c) 2026 lumen3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package pak

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pierrec/lz4"
	"golang.org/x/exp/mmap"
)

// Open opens the pak archive from r. It checks the magic up front and
// returns ErrFileFormat when the file is not a pak archive.
func Open(r io.ReaderAt) (*Archive, error) {
	head := make([]byte, MagicLength)
	if num, err := r.ReadAt(head, 0); err != nil {
		return nil, err
	} else if num < MagicLength || !bytes.Equal(head, magic[:]) {
		return nil, ErrFileFormat
	}

	headerSizeBytes := make([]byte, HeaderSizeNumberLength)
	if num, err := r.ReadAt(headerSizeBytes, MagicLength); err != nil {
		return nil, err
	} else if num < HeaderSizeNumberLength {
		return nil, ErrFileFormat
	}

	headerSize, err := binaryToint64(headerSizeBytes)
	if err != nil || headerSize <= 0 {
		return nil, ErrFileFormat
	}

	headerBytes := make([]byte, headerSize)
	if num, err := r.ReadAt(headerBytes, MagicLength+HeaderSizeNumberLength); err != nil {
		return nil, err
	} else if int64(num) < headerSize {
		return nil, ErrFileFormat
	}

	var header Header
	if err := gobDecode(&header, headerBytes); err != nil {
		return nil, ErrFileFormat
	}

	ar := &Archive{
		reader:     r,
		header:     header,
		dataOffset: MagicLength + HeaderSizeNumberLength + headerSize,
		index:      make(map[string]IndexEntry, len(header.Index)),
	}
	for _, e := range header.Index {
		ar.index[e.Name] = e
	}
	return ar, nil
}

// OpenFile memory maps the archive at path and opens it
func OpenFile(path string) (*Archive, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	ar, err := Open(r)
	if err != nil {
		r.Close()
		return nil, err
	}
	ar.closer = r
	return ar, nil
}

// Archive provides concurrent io for a pak file, and can provide an
// io.Reader for each file separately to perform actions on.
type Archive struct {
	reader     io.ReaderAt
	closer     io.Closer
	header     Header
	dataOffset int64
	index      map[string]IndexEntry
}

// Header returns the archive metadata
func (a *Archive) Header() Header {
	return a.header
}

// Names lists the archived files in index order
func (a *Archive) Names() []string {
	out := make([]string, 0, len(a.header.Index))
	for _, e := range a.header.Index {
		out = append(out, e.Name)
	}
	return out
}

// Open returns a Reader that decompresses the named file on the fly
func (a *Archive) Open(name string) (*Reader, error) {
	entry, ok := a.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	section := io.NewSectionReader(a.reader, a.dataOffset+entry.Offset, entry.CompressedSize)
	return &Reader{
		entry:   entry,
		decoder: lz4.NewReader(section),
	}, nil
}

// ReadAll returns the entire decompressed contents of a file with a
// given name
func (a *Archive) ReadAll(name string) ([]byte, error) {
	r, err := a.Open(name)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, r.Size())
	buf := bytes.NewBuffer(out)
	if _, err := io.Copy(buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Close releases the underlying mapping if the archive owns one
func (a *Archive) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

// Reader is a reader for a single file in an Archive. Abstracts away
// the location that needs to be known.
type Reader struct {
	entry   IndexEntry
	decoder io.Reader
}

// Size returns the decompressed size of the file
func (r *Reader) Size() int64 {
	return r.entry.Size
}

// Read reads already decompressed data
func (r *Reader) Read(p []byte) (n int, err error) {
	return r.decoder.Read(p)
}
