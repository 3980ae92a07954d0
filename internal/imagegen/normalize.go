package imagegen

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"net/http"

	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp"
)

// ContentTypePNG is the content type of every normalized image.
const ContentTypePNG = "image/png"

// Normalize re-encodes a generated image as PNG so stored artifacts match
// their .png keys. Data that cannot be decoded is returned unchanged with a
// sniffed content type.
func Normalize(data []byte) ([]byte, string) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		ct := http.DetectContentType(data)
		log.Warn().Err(err).Str("contentType", ct).Msg("Image not decodable, storing as-is")
		return data, ct
	}
	if format == "png" {
		return data, ContentTypePNG
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		ct := http.DetectContentType(data)
		log.Warn().Err(err).Str("format", format).Msg("PNG encode failed, storing original")
		return data, ct
	}
	log.Debug().
		Str("from", format).
		Int("inBytes", len(data)).
		Int("outBytes", buf.Len()).
		Msg("Image normalized to PNG")
	return buf.Bytes(), ContentTypePNG
}
