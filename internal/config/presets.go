package config

// QualityPreset bundles the encoder settings for one output quality
// level.
type QualityPreset struct {
	Width        int
	Height       int
	Bitrate      string
	AudioBitrate string
	FPS          int
	// Speed is the x264 preset name.
	Speed string
}

var qualityPresets = map[string]QualityPreset{
	"low": {
		Width: 1280, Height: 720,
		Bitrate: "500k", AudioBitrate: "96k",
		FPS: 30, Speed: "ultrafast",
	},
	"medium": {
		Width: 1280, Height: 720,
		Bitrate: "1500k", AudioBitrate: "128k",
		FPS: 30, Speed: "medium",
	},
	"high": {
		Width: 1920, Height: 1080,
		Bitrate: "3000k", AudioBitrate: "192k",
		FPS: 30, Speed: "slow",
	},
}

// PresetFor returns the quality preset for a name.
func PresetFor(name string) (QualityPreset, bool) {
	p, ok := qualityPresets[name]
	return p, ok
}

// PresetNames returns the recognized quality preset names.
func PresetNames() []string {
	return []string{"low", "medium", "high"}
}
