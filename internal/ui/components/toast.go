// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/marquee-tui/internal/ui/styles"
)

// =============================================================================
// TOAST TYPES
// =============================================================================

// ToastKind represents the type of toast notification.
type ToastKind int

const (
	ToastKindStatus ToastKind = iota
	ToastKindError
	ToastKindWarning
	ToastKindSuccess
)

// DefaultToastDuration is the auto-dismiss duration for status toasts.
const DefaultToastDuration = 4 * time.Second

// ErrorToastDuration is longer so errors can be read.
const ErrorToastDuration = 8 * time.Second

// Toast is a non-blocking notification that dismisses itself.
type Toast struct {
	ID        int
	Message   string
	Kind      ToastKind
	CreatedAt time.Time
	Duration  time.Duration
}

// IsExpired reports whether the toast should be dismissed at now.
func (t Toast) IsExpired(now time.Time) bool {
	return now.Sub(t.CreatedAt) >= t.Duration
}

// =============================================================================
// TOAST MANAGER
// =============================================================================

// ToastManager keeps the visible toasts, newest first. It is owned by the
// bubbletea model and is not safe for concurrent use.
type ToastManager struct {
	toasts    []Toast
	nextID    int
	maxToasts int
	now       func() time.Time
}

// NewToastManager creates a manager that shows at most three toasts.
func NewToastManager() *ToastManager {
	return &ToastManager{nextID: 1, maxToasts: 3, now: time.Now}
}

func (m *ToastManager) add(kind ToastKind, message string, d time.Duration) int {
	t := Toast{ID: m.nextID, Message: message, Kind: kind, CreatedAt: m.now(), Duration: d}
	m.nextID++
	m.toasts = append([]Toast{t}, m.toasts...)
	if len(m.toasts) > m.maxToasts {
		m.toasts = m.toasts[:m.maxToasts]
	}
	return t.ID
}

// AddError adds an error toast.
func (m *ToastManager) AddError(message string) int {
	return m.add(ToastKindError, message, ErrorToastDuration)
}

// AddWarning adds a warning toast.
func (m *ToastManager) AddWarning(message string) int {
	return m.add(ToastKindWarning, message, ErrorToastDuration)
}

// AddStatus adds an informational toast.
func (m *ToastManager) AddStatus(message string) int {
	return m.add(ToastKindStatus, message, DefaultToastDuration)
}

// AddSuccess adds a success toast.
func (m *ToastManager) AddSuccess(message string) int {
	return m.add(ToastKindSuccess, message, DefaultToastDuration)
}

// Tick drops expired toasts.
func (m *ToastManager) Tick() {
	now := m.now()
	active := m.toasts[:0]
	for _, t := range m.toasts {
		if !t.IsExpired(now) {
			active = append(active, t)
		}
	}
	m.toasts = active
}

// Dismiss removes the newest toast.
func (m *ToastManager) Dismiss() {
	if len(m.toasts) > 0 {
		m.toasts = m.toasts[1:]
	}
}

// Toasts returns a copy of the visible toasts.
func (m *ToastManager) Toasts() []Toast {
	return append([]Toast(nil), m.toasts...)
}

// HasToasts reports whether any toast is visible.
func (m *ToastManager) HasToasts() bool {
	return len(m.toasts) > 0
}

// Clear removes all toasts.
func (m *ToastManager) Clear() {
	m.toasts = nil
}

// ToastTickMsg is sent periodically to expire toasts.
type ToastTickMsg struct {
	Time time.Time
}

// ToastTickCmd ticks toasts every 250ms.
func ToastTickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return ToastTickMsg{Time: t}
	})
}

// =============================================================================
// TOAST RENDERING
// =============================================================================

// View renders the toast stack, newest on top.
func (m *ToastManager) View(theme *styles.Theme, width int) string {
	if len(m.toasts) == 0 {
		return ""
	}
	rendered := make([]string, len(m.toasts))
	for i, t := range m.toasts {
		rendered[i] = RenderToast(theme, t, width)
	}
	return lipgloss.JoinVertical(lipgloss.Right, rendered...)
}

// RenderToast renders a single toast.
func RenderToast(theme *styles.Theme, t Toast, width int) string {
	maxWidth := 60
	if width > 0 && width-4 < maxWidth {
		maxWidth = width - 4
	}
	if maxWidth < 20 {
		maxWidth = 20
	}

	var color lipgloss.AdaptiveColor
	var icon string
	switch t.Kind {
	case ToastKindError:
		color, icon = styles.Rose, styles.StatusIndicators.Error
	case ToastKindWarning:
		color, icon = styles.Amber, styles.StatusIndicators.Warning
	case ToastKindSuccess:
		color, icon = styles.Emerald, styles.StatusIndicators.Success
	default:
		color, icon = styles.Cyan, styles.StatusIndicators.Info
	}

	iconView := lipgloss.NewStyle().Foreground(color).Bold(true).Render(icon)
	body := wrapText(t.Message, maxWidth-len(icon)-5)
	return theme.Toast.BorderForeground(color).Render(iconView + " " + body)
}

// wrapText performs simple word wrapping.
func wrapText(text string, maxWidth int) string {
	words := strings.Fields(text)
	if maxWidth <= 0 || len(words) == 0 {
		return text
	}

	var lines []string
	var line strings.Builder
	for _, word := range words {
		switch {
		case line.Len() == 0:
			line.WriteString(word)
		case lipgloss.Width(line.String())+1+lipgloss.Width(word) <= maxWidth:
			line.WriteString(" ")
			line.WriteString(word)
		default:
			lines = append(lines, line.String())
			line.Reset()
			line.WriteString(word)
		}
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}
