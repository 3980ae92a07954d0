package story

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"unicode"
)

// Container names a logical artifact collection.
type Container string

const (
	ContainerStories Container = "storyfairy-stories"
	ContainerImages  Container = "storyfairy-images"
)

// Containers lists every container an artifact may be stored in.
var Containers = []Container{ContainerStories, ContainerImages}

// ParseContainer validates a container name. Empty selects the images container.
func ParseContainer(name string) (Container, error) {
	if name == "" {
		return ContainerImages, nil
	}
	for _, c := range Containers {
		if string(c) == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown container %q", ErrValidation, name)
}

const maxSlugLength = 60

// Slug turns a topic into a key-safe lowercase fragment.
func Slug(topic string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(topic) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	slug := strings.TrimRight(b.String(), "_")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "_")
	}
	if slug == "" {
		slug = "story"
	}
	return slug
}

// ArtifactKeys derives the storage keys for one pipeline run.
type ArtifactKeys struct {
	base string
}

// NewArtifactKeys combines the topic slug with a run identifier so two runs
// on the same topic never share keys.
func NewArtifactKeys(topic, runID string) ArtifactKeys {
	short := strings.ReplaceAll(runID, "-", "")
	if len(short) > 8 {
		short = short[:8]
	}
	base := Slug(topic)
	if short != "" {
		base += "-" + short
	}
	return ArtifactKeys{base: base}
}

// Story is the key of the simplified narrative.
func (k ArtifactKeys) Story() string { return k.base + ".txt" }

// DetailedStory is the key of the detailed narrative.
func (k ArtifactKeys) DetailedStory() string { return k.base + "_detailed.txt" }

// Image is the key of the illustration for the sentence at index.
func (k ArtifactKeys) Image(index int) string {
	return fmt.Sprintf("%s-image%d.png", k.base, index+1)
}

// KeyFromURL returns the final path segment of an artifact URL, unescaped.
func KeyFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: invalid artifact url: %v", ErrValidation, err)
	}
	key := path.Base(u.Path)
	if key == "." || key == "/" || key == "" {
		return "", fmt.Errorf("%w: artifact url has no object name", ErrValidation)
	}
	return key, nil
}

// ProxyURL rewrites an artifact URL into the blob proxy form served by the API.
func ProxyURL(raw string, container Container) string {
	key, err := KeyFromURL(raw)
	if err != nil {
		return raw
	}
	return "/api/blob/" + url.PathEscape(key) + "?container=" + url.QueryEscape(string(container))
}
