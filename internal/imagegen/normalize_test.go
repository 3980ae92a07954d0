package imagegen

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		img.Set(x, x, color.RGBA{R: 200, A: 255})
	}
	return img
}

func TestNormalize(t *testing.T) {
	var jpg bytes.Buffer
	if err := jpeg.Encode(&jpg, testImage(), nil); err != nil {
		t.Fatal(err)
	}
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, testImage()); err != nil {
		t.Fatal(err)
	}

	t.Run("jpeg re-encoded", func(t *testing.T) {
		out, ct := Normalize(jpg.Bytes())
		if ct != ContentTypePNG {
			t.Errorf("content type = %q", ct)
		}
		if _, format, err := image.Decode(bytes.NewReader(out)); err != nil || format != "png" {
			t.Errorf("output is not png: format=%q err=%v", format, err)
		}
	})

	t.Run("png passthrough", func(t *testing.T) {
		out, ct := Normalize(pngBuf.Bytes())
		if ct != ContentTypePNG || !bytes.Equal(out, pngBuf.Bytes()) {
			t.Errorf("png should pass through unchanged")
		}
	})

	t.Run("undecodable kept", func(t *testing.T) {
		raw := []byte("not an image at all")
		out, ct := Normalize(raw)
		if !bytes.Equal(out, raw) {
			t.Error("raw bytes should be kept")
		}
		if ct != "text/plain; charset=utf-8" {
			t.Errorf("content type = %q", ct)
		}
	})
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("imagebytes"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher()
	data, err := f.Fetch(context.Background(), srv.URL+"/ok")
	if err != nil || string(data) != "imagebytes" {
		t.Fatalf("Fetch = %q, %v", data, err)
	}
	if _, err := f.Fetch(context.Background(), srv.URL+"/missing"); err == nil {
		t.Error("expected error for 404")
	}

	inline, err := Materialize(context.Background(), f, &Result{Data: []byte("inline")})
	if err != nil || string(inline) != "inline" {
		t.Errorf("Materialize inline = %q, %v", inline, err)
	}
	if _, err := Materialize(context.Background(), f, &Result{}); err == nil {
		t.Error("expected error for empty result")
	}
}
