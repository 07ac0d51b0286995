package pump_control

import "time"

// Mode governs whether manual pump commands are accepted.
type Mode string

const (
	ModeManual    Mode = "MANUAL"
	ModeAutomatic Mode = "AUTOMATIC"
)

// Valid reports whether m is one of the two known modes.
func (m Mode) Valid() bool { return m == ModeManual || m == ModeAutomatic }

// PumpSnapshot is the read-only view of the pump exposed to the view layer.
//
// ReportedOn is the last device-reported value (authoritative once no command
// is pending); nil means no report has been obtained yet. OptimisticOn is the
// locally assumed value set on command dispatch and cleared when the device
// confirms; nil means no local assumption. DisplayOn is the value a view
// should render: optimistic when set, reported otherwise.
type PumpSnapshot struct {
	Mode             Mode       `json:"mode"`
	ReportedOn       *bool      `json:"reported_on"`
	OptimisticOn     *bool      `json:"optimistic_on,omitempty"`
	DisplayOn        *bool      `json:"display_on"`
	PendingCommandID string     `json:"pending_command_id,omitempty"`
	StatusUnknown    bool       `json:"status_unknown"`
	LastReportAt     *time.Time `json:"last_report_at,omitempty"`
}

// ControlEvent is a single entry in the append-only control log.
type ControlEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // COMMAND | PULSE | MODE_CHANGE | ERROR | STATUS
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}

// Control event types.
const (
	EventCommand    = "COMMAND"
	EventPulse      = "PULSE"
	EventModeChange = "MODE_CHANGE"
	EventError      = "ERROR"
	EventStatus     = "STATUS"
)
