package camera

// Preset names for common frame sizes
const (
	PresetQVGA  = "qvga"
	PresetVGA   = "vga"
	Preset720p  = "720p"
	Preset1080p = "1080p"
)

// Presets returns all available frame size presets.
func Presets() map[string]CameraSection {
	return map[string]CameraSection{
		PresetQVGA:  {Width: 320, Height: 240},
		PresetVGA:   {Width: 640, Height: 480},
		Preset720p:  {Width: 1280, Height: 720},
		Preset1080p: {Width: 1920, Height: 1080},
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetQVGA,
		PresetVGA,
		Preset720p,
		Preset1080p,
	}
}

// GetPreset returns a preset by name, or nil if not found.
func GetPreset(name string) *CameraSection {
	if p, ok := Presets()[name]; ok {
		return &p
	}
	return nil
}
