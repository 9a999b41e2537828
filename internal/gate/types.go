package gate

// #region veto-type
// VetoType enumerates hard veto categories.
type VetoType string

const (
	VetoValidation VetoType = "validation"
	VetoPayload    VetoType = "payload"
	VetoEndpoint   VetoType = "endpoint"
)

// #endregion veto-type

// #region veto-signal
// VetoSignal represents a detected hard veto condition.
type VetoSignal struct {
	Type   VetoType
	Path   string // field path for validation vetoes
	Reason string
}

// #endregion veto-signal

// #region gate-config
// GateConfig holds the limits a submission must respect.
type GateConfig struct {
	MaxPayloadBytes int  // hard cap on the encoded report
	RequireEndpoint bool // reject when no service URL is configured
}

// DefaultGateConfig returns the limits used by the daemon.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		MaxPayloadBytes: 1 << 20,
		RequireEndpoint: true,
	}
}

// #endregion gate-config

// #region gate-decision
// GateDecision is the output of the gate evaluation.
type GateDecision struct {
	Action       string // "submit" | "reject"
	Reason       string
	Vetoed       bool
	VetoSignals  []VetoSignal // non-empty if vetoed
	Completeness float32      // 0-1 share of optional sections filled in (for logging)
}

// #endregion gate-decision
