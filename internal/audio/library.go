package audio

import (
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/oshokin/attention-check/internal/config"
	"github.com/oshokin/attention-check/internal/domain/alert"
)

// SelectClip returns the clip to play: a random existing custom clip when
// custom sounds are enabled, otherwise fallback.
func SelectClip(settings config.Sound, fallback string, src alert.Intn) string {
	if !settings.UseCustom {
		return fallback
	}

	existing := make([]string, 0, len(settings.CustomClips))

	for _, candidate := range settings.CustomClips {
		info, err := os.Stat(filepath.Clean(candidate))
		if err == nil && !info.IsDir() {
			existing = append(existing, candidate)
		}
	}

	if len(existing) == 0 {
		return fallback
	}

	intn := rand.IntN
	if src != nil {
		intn = src.IntN
	}

	return existing[intn(len(existing))]
}
