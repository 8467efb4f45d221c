package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
)

// SetCrtcBrightness scales a CRTC's gamma ramp by the given brightness
// factor (1.0 = identity, 0.05 = near-black). The ramp is applied at the
// display output stage, below window compositing, so it darkens every
// window including full-screen apps and is invisible to X11 screen capture.
func (c *Connection) SetCrtcBrightness(crtc randr.Crtc, brightness float64) error {
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return fmt.Errorf("randr init failed: %w", err)
	}

	sizeReply, err := randr.GetCrtcGammaSize(c.XUtil.Conn(), crtc).Reply()
	if err != nil {
		return fmt.Errorf("failed to query gamma size for crtc %d: %w", crtc, err)
	}
	if sizeReply.Size == 0 {
		return fmt.Errorf("crtc %d reports zero gamma size", crtc)
	}

	red, green, blue := buildGammaRamp(int(sizeReply.Size), brightness)
	err = randr.SetCrtcGammaChecked(c.XUtil.Conn(), crtc, sizeReply.Size, red, green, blue).Check()
	if err != nil {
		return fmt.Errorf("failed to set gamma on crtc %d: %w", crtc, err)
	}
	return nil
}

// RestoreCrtcGamma resets a CRTC to the identity gamma ramp.
func (c *Connection) RestoreCrtcGamma(crtc randr.Crtc) error {
	return c.SetCrtcBrightness(crtc, 1.0)
}

// buildGammaRamp constructs linear R/G/B ramps of the given size scaled by
// brightness. All three channels are scaled equally so the transform only
// reduces luminance, never shifts color.
func buildGammaRamp(size int, brightness float64) (red, green, blue []uint16) {
	red = make([]uint16, size)
	green = make([]uint16, size)
	blue = make([]uint16, size)

	denom := float64(size - 1)
	if denom < 1 {
		denom = 1
	}

	for i := 0; i < size; i++ {
		v := float64(i) / denom * 65535.0 * brightness
		if v > 65535.0 {
			v = 65535.0
		}
		red[i] = uint16(v)
		green[i] = uint16(v)
		blue[i] = uint16(v)
	}
	return red, green, blue
}
