package core_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/lumen3d/lumen/core"
)

func TestGetPixelsTightPacking(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	img.Set(3, 1, color.RGBA{0, 255, 0, 255})

	pixels, err := core.GetPixels(img, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(pixels) != 4*2*4 {
		t.Fatalf("got %d bytes, want %d", len(pixels), 4*2*4)
	}
	if pixels[0] != 255 || pixels[1] != 0 {
		t.Errorf("first pixel = %v", pixels[:4])
	}
	last := pixels[len(pixels)-4:]
	if last[1] != 255 {
		t.Errorf("last pixel = %v", last)
	}
}

func TestGetPixelsRowPitch(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	img.Set(0, 1, color.RGBA{0, 0, 255, 255})

	const pitch = 32
	pixels, err := core.GetPixels(img, pitch)
	if err != nil {
		t.Fatal(err)
	}
	if len(pixels) != pitch*2 {
		t.Fatalf("got %d bytes, want %d", len(pixels), pitch*2)
	}
	// The second row starts at the pitch boundary, not at width*4.
	if pixels[pitch+2] != 255 {
		t.Errorf("second row first pixel = %v", pixels[pitch:pitch+4])
	}
}

func TestSliceUint32(t *testing.T) {
	data := []byte{0x01, 0x00, 0x00, 0x00, 0xff, 0xff, 0x00, 0x00}

	words := core.SliceUint32(data)
	if len(words) != 2 {
		t.Fatalf("got %d words, want 2", len(words))
	}
	if words[0] != 1 || words[1] != 0xffff {
		t.Errorf("words = %v", words)
	}
}

func BenchmarkSliceUint32Small(b *testing.B) {
	data := make([]byte, 100)
	for idx := 0; idx < b.N; idx++ {
		core.SliceUint32(data)
	}
}

func BenchmarkSliceUint32Big(b *testing.B) {
	data := make([]byte, 100000)
	for idx := 0; idx < b.N; idx++ {
		core.SliceUint32(data)
	}
}
