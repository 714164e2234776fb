package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// shimmerConfig tunes the highlight sweeping across the selected timer's title.
type shimmerConfig struct {
	Speed      time.Duration // tick period
	Cycle      time.Duration // one sweep across the text
	Pause      time.Duration // idle gap between sweeps
	WidthRatio float64       // highlight width relative to the text
}

func defaultShimmerConfig() shimmerConfig {
	return shimmerConfig{
		Speed:      100 * time.Millisecond,
		Cycle:      1800 * time.Millisecond,
		Pause:      500 * time.Millisecond,
		WidthRatio: 0.25,
	}
}

// shimmer is the sweep state. It is driven by shimmerTickMsg, so advance
// only moves on ticks and rendering stays a pure function of the state.
type shimmer struct {
	cfg    shimmerConfig
	active bool
	center float64
	paused time.Duration // time left in the gap between sweeps
}

func newShimmer(cfg shimmerConfig) *shimmer {
	return &shimmer{cfg: cfg, active: true}
}

// advance moves the highlight by one tick over a text of length n.
func (s *shimmer) advance(n int) {
	if !s.active || n <= 0 {
		return
	}
	if s.paused > 0 {
		s.paused -= s.cfg.Speed
		if s.paused <= 0 {
			s.center = -float64(n) * s.cfg.WidthRatio
		}
		return
	}

	ticks := float64(s.cfg.Cycle) / float64(s.cfg.Speed)
	distance := float64(n) * (1 + 2*s.cfg.WidthRatio)
	s.center += distance / ticks

	if end := float64(n) * (1 + s.cfg.WidthRatio); s.center >= end {
		s.center = end
		s.paused = s.cfg.Pause
	}
}

// reset restarts the sweep, e.g. when the selection moves.
func (s *shimmer) reset() {
	s.center = 0
	s.paused = 0
}

func (s *shimmer) setActive(active bool) {
	s.active = active
}

// render truncates text to maxWidth runes and paints the highlight.
func (s *shimmer) render(text string, maxWidth int) string {
	runes := []rune(text)
	if maxWidth > 3 && len(runes) > maxWidth {
		runes = append(runes[:maxWidth-3], []rune("...")...)
	}
	if len(runes) == 0 {
		return ""
	}
	if !s.active {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBright)).Render(string(runes))
	}

	sigma := math.Max(1, s.cfg.WidthRatio*float64(len(runes))/2)

	var b strings.Builder
	for i, r := range runes {
		dx := float64(i) - s.center
		w := math.Exp(-(dx * dx) / (2 * sigma * sigma))
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(blend(shimmerBase, shimmerPeak, w)))
		b.WriteString(style.Render(string(r)))
	}
	return b.String()
}

type rgb struct{ r, g, b float64 }

var (
	shimmerBase = rgb{177, 184, 199} // ColorSecondaryText
	shimmerPeak = rgb{234, 230, 255}
)

// blend mixes two colours, returning a hex string lipgloss can downsample.
func blend(from, to rgb, w float64) string {
	w = math.Min(1, math.Max(0, w))
	mix := func(a, b float64) int { return int(a*(1-w) + b*w) }
	return fmt.Sprintf("#%02X%02X%02X", mix(from.r, to.r), mix(from.g, to.g), mix(from.b, to.b))
}
