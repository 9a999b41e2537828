package gate

import (
	"fmt"
	"strings"

	"github.com/MrDragar/LDPR-reports-generator/internal/report"
	"github.com/MrDragar/LDPR-reports-generator/internal/validate"
)

// #region gate
// Gate decides whether a report may leave the process.
type Gate struct {
	config GateConfig
}

// NewGate creates a gate with the given configuration.
func NewGate(config GateConfig) *Gate {
	return &Gate{config: config}
}

// Evaluate checks hard vetoes first, then scores how complete the optional
// sections of the normalized report are.
func (g *Gate) Evaluate(errs validate.Errors, normalized report.Report, payload []byte, endpoint string) GateDecision {
	var vetoes []VetoSignal

	// --- Hard veto pass ---

	// 1. Any field error blocks submission, in path order.
	for _, p := range errs.Paths() {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoValidation,
			Path:   p,
			Reason: fmt.Sprintf("%s: %s", p, errs[p]),
		})
	}

	// 2. Payload size
	if g.config.MaxPayloadBytes > 0 && len(payload) > g.config.MaxPayloadBytes {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoPayload,
			Reason: fmt.Sprintf("payload %d bytes exceeds cap %d", len(payload), g.config.MaxPayloadBytes),
		})
	}

	// 3. Nowhere to send it
	if g.config.RequireEndpoint && strings.TrimSpace(endpoint) == "" {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoEndpoint,
			Reason: "report service URL is not configured",
		})
	}

	if len(vetoes) > 0 {
		return GateDecision{
			Action:      "reject",
			Reason:      fmt.Sprintf("hard veto: %s", vetoes[0].Reason),
			Vetoed:      true,
			VetoSignals: vetoes,
		}
	}

	score := Completeness(normalized)
	return GateDecision{
		Action:       "submit",
		Reason:       fmt.Sprintf("passed gate: completeness=%.4f", score),
		Completeness: score,
	}
}

// #endregion gate

// #region helpers
// Completeness is the share of optional sections that carry content, out of
// legislation, examples, svo projects, project activity, party orders and
// other info.
func Completeness(r report.Report) float32 {
	filled := 0
	if len(r.Legislation) > 0 {
		filled++
	}
	if hasEntries(r.CitizenRequests.Examples) {
		filled++
	}
	if hasEntries(r.SvoSupport.Projects) {
		filled++
	}
	if len(r.ProjectActivity) > 0 {
		filled++
	}
	if len(r.LdprOrders) > 0 {
		filled++
	}
	if strings.TrimSpace(r.OtherInfo) != "" {
		filled++
	}
	return float32(filled) / 6
}

func hasEntries(es []report.Entry) bool {
	for _, e := range es {
		if strings.TrimSpace(e.Text) != "" {
			return true
		}
		for _, l := range e.Links {
			if strings.TrimSpace(l) != "" {
				return true
			}
		}
	}
	return false
}

// #endregion helpers
