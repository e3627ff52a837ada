package speech

import "strings"

var preferredVoiceVendors = []string{"Google", "Microsoft", "Natural"}

// SelectVoice picks the first English voice from a known high-quality vendor.
// It returns nil when none matches, meaning the engine default.
func SelectVoice(voices []Voice) *Voice {
	for i := range voices {
		v := voices[i]
		if !strings.HasPrefix(v.Lang, "en") {
			continue
		}
		for _, vendor := range preferredVoiceVendors {
			if strings.Contains(v.Name, vendor) {
				return &v
			}
		}
	}
	return nil
}
