package permission

import "github.com/Cyclone1070/agentgate/internal/permission/risk"

// Decide is the policy table. It looks only at its arguments; remembered
// decisions are handled by the Orchestrator before it gets here.
//
//	deny          -> Deny
//	auto          -> Allow, even for critical threats
//	ask           -> Ask
//	smart_approve -> Ask when any threat was found, Allow read-only tools,
//	                 Allow read-write tools only with autoApproveReadWrite,
//	                 Ask otherwise
//
// An unrecognized mode decides Deny.
func Decide(class risk.Class, in Inspection, mode Mode, autoApproveReadWrite bool) Decision {
	switch mode {
	case ModeDeny:
		return Deny
	case ModeAuto:
		return Allow
	case ModeAsk:
		return Ask
	case ModeSmartApprove:
		if !in.Safe {
			return Ask
		}
		switch {
		case class == risk.ReadOnly:
			return Allow
		case class == risk.ReadWrite && autoApproveReadWrite:
			return Allow
		default:
			return Ask
		}
	default:
		return Deny
	}
}
