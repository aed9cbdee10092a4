package agentloop

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

const maxLoopPeriod = 3

func callSignature(name string, arguments json.RawMessage) string {
	sum := sha256.Sum256(arguments)
	return name + ":" + hex.EncodeToString(sum[:8])
}

// recentSignatures returns up to n tool-call signatures from the end of
// history, oldest first.
func recentSignatures(history []Turn, n int) []string {
	var sigs []string
	for i := len(history) - 1; i >= 0 && len(sigs) < n; i-- {
		a := history[i].Assistant
		if history[i].Kind != TurnAssistant || a == nil {
			continue
		}
		for j := len(a.ToolCalls) - 1; j >= 0 && len(sigs) < n; j-- {
			sigs = append(sigs, callSignature(a.ToolCalls[j].Name, a.ToolCalls[j].Arguments))
		}
	}
	for i, j := 0, len(sigs)-1; i < j; i, j = i+1, j-1 {
		sigs[i], sigs[j] = sigs[j], sigs[i]
	}
	return sigs
}

// DetectLoop reports whether the last window tool calls repeat a cycle of one
// to three identical calls.
func DetectLoop(history []Turn, window int) bool {
	if window < 2 {
		return false
	}
	sigs := recentSignatures(history, window)
	if len(sigs) < window {
		return false
	}
	for period := 1; period <= maxLoopPeriod && period < window; period++ {
		if window%period == 0 && repeatsWithPeriod(sigs, period) {
			return true
		}
	}
	return false
}

func repeatsWithPeriod(sigs []string, period int) bool {
	for i := period; i < len(sigs); i++ {
		if sigs[i] != sigs[i-period] {
			return false
		}
	}
	return true
}
