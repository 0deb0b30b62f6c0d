package synth

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/saypipe/saypipe/internal/fault"
)

// catalogTTL bounds how long a loaded voice list is served before the
// loader is consulted again.
const catalogTTL = time.Hour

// Voice describes one synthesis voice.
type Voice struct {
	ID          string
	DisplayName string
	Language    string
	Gender      string
}

// Catalog resolves and lists available voices. Reads are memoized; the
// loader is consulted at most once per TTL window.
type Catalog struct {
	loader func() ([]Voice, error)

	mu       sync.Mutex
	voices   []Voice
	loadedAt time.Time
}

// NewCatalog creates a catalog backed by loader. A nil loader serves the
// built-in voice list.
func NewCatalog(loader func() ([]Voice, error)) *Catalog {
	if loader == nil {
		loader = func() ([]Voice, error) { return builtinVoices(), nil }
	}
	return &Catalog{loader: loader}
}

// List returns voices, optionally filtered by a language prefix such as
// "en" or "zh-CN". The result is sorted by voice ID.
func (c *Catalog) List(languageFilter string) ([]Voice, error) {
	voices, err := c.load()
	if err != nil {
		return nil, err
	}

	filter := strings.ToLower(languageFilter)
	out := make([]Voice, 0, len(voices))
	for _, v := range voices {
		if filter != "" && !strings.HasPrefix(strings.ToLower(v.Language), filter) {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Resolve maps a voice ID or display name to a catalog voice. Unknown
// identifiers are an unsupported-voice fault: fatal, never retried.
func (c *Catalog) Resolve(nameOrID string) (Voice, error) {
	if nameOrID == "" {
		return Voice{}, fault.New(fault.CodeUnsupportedVoice, fault.StageValidate,
			"voice must not be empty", nil)
	}

	voices, err := c.load()
	if err != nil {
		return Voice{}, err
	}

	for _, v := range voices {
		if strings.EqualFold(v.ID, nameOrID) || strings.EqualFold(v.DisplayName, nameOrID) {
			return v, nil
		}
	}
	return Voice{}, fault.New(fault.CodeUnsupportedVoice, fault.StageValidate,
		fmt.Sprintf("unknown voice %q", nameOrID), nil)
}

func (c *Catalog) load() ([]Voice, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.voices != nil && time.Since(c.loadedAt) < catalogTTL {
		return c.voices, nil
	}
	voices, err := c.loader()
	if err != nil {
		// Serve the previous snapshot rather than failing a reporting call.
		if c.voices != nil {
			return c.voices, nil
		}
		return nil, fmt.Errorf("load voice catalog: %w", err)
	}
	c.voices = voices
	c.loadedAt = time.Now()
	return c.voices, nil
}

// builtinVoices is the curated set of commonly used Edge neural voices.
func builtinVoices() []Voice {
	return []Voice{
		{ID: "zh-CN-XiaoxiaoNeural", DisplayName: "Xiaoxiao", Language: "zh-CN", Gender: "Female"},
		{ID: "zh-CN-XiaoyiNeural", DisplayName: "Xiaoyi", Language: "zh-CN", Gender: "Female"},
		{ID: "zh-CN-YunyangNeural", DisplayName: "Yunyang", Language: "zh-CN", Gender: "Male"},
		{ID: "zh-CN-YunxiNeural", DisplayName: "Yunxi", Language: "zh-CN", Gender: "Male"},
		{ID: "en-US-AriaNeural", DisplayName: "Aria", Language: "en-US", Gender: "Female"},
		{ID: "en-US-JennyNeural", DisplayName: "Jenny", Language: "en-US", Gender: "Female"},
		{ID: "en-US-GuyNeural", DisplayName: "Guy", Language: "en-US", Gender: "Male"},
		{ID: "en-GB-SoniaNeural", DisplayName: "Sonia", Language: "en-GB", Gender: "Female"},
		{ID: "ja-JP-NanamiNeural", DisplayName: "Nanami", Language: "ja-JP", Gender: "Female"},
		{ID: "de-DE-KatjaNeural", DisplayName: "Katja", Language: "de-DE", Gender: "Female"},
		{ID: "fr-FR-DeniseNeural", DisplayName: "Denise", Language: "fr-FR", Gender: "Female"},
		{ID: "es-ES-ElviraNeural", DisplayName: "Elvira", Language: "es-ES", Gender: "Female"},
	}
}
