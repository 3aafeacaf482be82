package render

// PresentationState carries the per-viewport display parameters consumed
// read-only by the renderer. A WindowWidth of 0 selects the frame's
// default window.
type PresentationState struct {
	WindowCenter   float64 `json:"window_center"`
	WindowWidth    float64 `json:"window_width"`
	InvertColors   bool    `json:"invert_colors"`
	FlipHorizontal bool    `json:"flip_horizontal"`
	FlipVertical   bool    `json:"flip_vertical"`
	RotationSteps  int     `json:"rotation_steps"`
}

// NormalizedRotation reduces RotationSteps to 0..3 quarter turns,
// normalizing negative step counts.
func (s PresentationState) NormalizedRotation() int {
	return ((s.RotationSteps % 4) + 4) % 4
}
