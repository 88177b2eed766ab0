package acquire

import (
	"fmt"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/tbeaulieu/mlxcam-go/domain/roi"
)

// Session owns the user-facing selection state of an acquisition run. It
// delegates region and mode bookkeeping to the roi.Manager and applies the
// generic input events any rendering collaborator can produce.
// Not safe for concurrent use; Apply runs on the driver goroutine.
type Session struct {
	logger    *slog.Logger
	manager   *roi.Manager
	listeners []SessionListener
}

// NewSession returns a session in Selecting mode with no regions.
func NewSession(logger *slog.Logger, manager *roi.Manager) *Session {
	if manager == nil {
		manager = roi.NewManager()
	}
	return &Session{logger: logger, manager: manager}
}

// AddListener registers a listener for session state changes.
func (s *Session) AddListener(l SessionListener) {
	if l != nil {
		s.listeners = append(s.listeners, l)
	}
}

// Apply processes one input event and reports what it changed.
func (s *Session) Apply(ev InputEvent) Change {
	var ch Change
	switch e := ev.(type) {
	case ClickEvent:
		ch = s.click(e)
	case ToggleLiveEvent:
		s.manager.SetLive(!s.manager.Live())
		if s.logger != nil {
			s.logger.Info("live mode toggled", "live", s.manager.Live())
		}
		ch = ChangeMode
	case ResetEvent:
		s.manager.Reset()
		if s.logger != nil {
			s.logger.Info("all regions cleared")
		}
		ch = ChangeRegions
	case EditEvent:
		wasLive := s.manager.Live()
		s.manager.EnterEditMode()
		if s.logger != nil {
			s.logger.Info("edit mode entered", "was_live", wasLive)
		}
		ch = ChangeMode
	default:
		if s.logger != nil {
			s.logger.Warn("unknown input event", "type", fmt.Sprintf("%T", ev))
		}
		return ChangeNone
	}
	if ch != ChangeNone {
		for _, l := range s.listeners {
			l(ch)
		}
	}
	return ch
}

func (s *Session) click(e ClickEvent) Change {
	sel, err := s.manager.BeginSelection(roi.Point{X: e.X, Y: e.Y})
	if err != nil {
		var ire *roi.InvalidRegionError
		if errors.As(err, &ire) && s.logger != nil {
			s.logger.Warn("region rejected", "reason", ire.Reason)
		}
		// The pending corner was discarded; the overlay must drop it.
		return ChangeRegions
	}
	switch sel.State {
	case roi.SelectionArmed:
		if s.logger != nil {
			s.logger.Info("first corner set", "x", e.X, "y", e.Y)
		}
		return ChangeRegions
	case roi.SelectionAdded:
		r := sel.Region
		if s.logger != nil {
			s.logger.Info("region added",
				"x", r.X, "y", r.Y, "width", r.Width, "height", r.Height, "count", s.manager.Count())
		}
		return ChangeRegions
	default:
		return ChangeNone
	}
}

// Regions returns the current regions in creation order.
func (s *Session) Regions() []roi.Region { return s.manager.Regions() }

// Mode returns the current session mode.
func (s *Session) Mode() roi.Mode { return s.manager.Mode() }

// Live reports whether acquisition is active.
func (s *Session) Live() bool { return s.manager.Live() }

// Pending returns the pending first corner, or nil.
func (s *Session) Pending() *roi.Point { return s.manager.Pending() }
