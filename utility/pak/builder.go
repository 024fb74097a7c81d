// Copyright (c) 2026 lumen3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package pak

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/pierrec/lz4"
)

// NewBuilder creates a new Builder. Do not fill the Index in the
// header, it will be overwritten anyway.
func NewBuilder(header Header) (*Builder, error) {
	temp, err := os.MkdirTemp("", "pakBuilder")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTempFail, err)
	}
	builder := &Builder{
		tempDir: temp,
		header:  header,
	}
	runtime.SetFinalizer(builder, func(builder *Builder) {
		os.RemoveAll(builder.tempDir)
	})
	return builder, nil
}

type tempFile struct {

	// Name is the actual name of the file
	Name string

	// TempName is the temporary name given by the Builder
	TempName string

	// Size of the original data
	Size int64

	Compressed int64
}

// Builder is the high level builder for the archive format. Archives
// are versioned and cannot be appended to, this Builder is the way to
// create one. Whenever Add is called, the file is compressed into a
// temporary dir, WriteTo finally bundles everything together.
type Builder struct {
	io.WriterTo

	tempDir string
	header  Header

	mutex sync.Mutex
	files []tempFile
}

// Add appends data to the builder with a given name. Will block until
// lz4 finishes compression. Is safe to use concurrently in different
// goroutines.
func (b *Builder) Add(name string, data []byte) error {
	tempName := strconv.Itoa(time.Now().Nanosecond())
	f, err := os.Create(filepath.Join(b.tempDir, tempName))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTempFail, err)
	}
	defer f.Close()

	writer := lz4.NewWriter(f)
	written, err := io.Copy(writer, bytes.NewReader(data))
	if err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		return err
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.files = append(b.files, tempFile{
		Name:       name,
		TempName:   tempName,
		Size:       written,
		Compressed: info.Size(),
	})
	return nil
}

// WriteTo bundles and writes all of the files added to the Builder
// into a pak archive that is ready to use. Entry offsets are relative
// to the data section, so the header size does not influence them.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	header := b.header
	header.Index = nil
	var offset int64
	for _, v := range b.files {
		header.Index = append(header.Index, IndexEntry{
			Name:           v.Name,
			Offset:         offset,
			Size:           v.Size,
			CompressedSize: v.Compressed,
		})
		offset += v.Compressed
	}

	rawHeader, err := gobEncode(header)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, chunk := range [][]byte{magic[:], int64ToBinary(int64(len(rawHeader))), rawHeader} {
		n, err := w.Write(chunk)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}

	for _, v := range b.files {
		f, err := os.Open(filepath.Join(b.tempDir, v.TempName))
		if err != nil {
			return total, fmt.Errorf("%w: %v", ErrTempFail, err)
		}
		n, err := io.Copy(w, f)
		f.Close()
		total += n
		if err != nil {
			return total, err
		}
	}

	b.files = b.files[:0]
	return total, nil
}

// Close removes the temporary files backing the builder
func (b *Builder) Close() error {
	return os.RemoveAll(b.tempDir)
}
