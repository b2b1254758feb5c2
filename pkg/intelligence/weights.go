package intelligence

import "sort"

// DefaultTypeWeight applies to memory types absent from the weight table.
const DefaultTypeWeight = 50.0

// TypeWeights maps memory types to 0-100 weights, with per-agent overrides.
type TypeWeights struct {
	defaults map[string]float64
	presets  map[string]map[string]float64
}

// NewTypeWeights returns the built-in weight table and the content-agent,
// email-agent and orchestrator presets.
func NewTypeWeights() *TypeWeights {
	return &TypeWeights{
		defaults: map[string]float64{
			"lesson":              85,
			"decision":            80,
			"pattern":             75,
			"outcome":             70,
			"signal":              70,
			"plan":                65,
			"uncertainty":         60,
			"contact_insight":     60,
			"campaign_result":     60,
			"content_performance": 60,
			"reasoning_trace":     55,
			"step":                50,
			"monitoring_event":    50,
			"loyalty_transaction": 45,
			"audit_log":           40,
		},
		presets: map[string]map[string]float64{
			"content-agent": {
				"content_performance": 95,
				"pattern":             90,
				"campaign_result":     85,
			},
			"email-agent": {
				"campaign_result": 95,
				"contact_insight": 90,
			},
			"orchestrator": {
				"plan":     95,
				"decision": 90,
				"outcome":  85,
			},
		},
	}
}

// Weight returns the weight of memoryType as seen by sourceAgent.
func (w *TypeWeights) Weight(memoryType, sourceAgent string) float64 {
	if preset, ok := w.presets[sourceAgent]; ok {
		if weight, ok := preset[memoryType]; ok {
			return weight
		}
	}
	if weight, ok := w.defaults[memoryType]; ok {
		return weight
	}
	return DefaultTypeWeight
}

// SetDefault overrides the default weight of a memory type.
func (w *TypeWeights) SetDefault(memoryType string, weight float64) {
	w.defaults[memoryType] = clampScore(weight)
}

// SetPreset overrides a memory type's weight for one source agent.
func (w *TypeWeights) SetPreset(sourceAgent, memoryType string, weight float64) {
	preset, ok := w.presets[sourceAgent]
	if !ok {
		preset = make(map[string]float64)
		w.presets[sourceAgent] = preset
	}
	preset[memoryType] = clampScore(weight)
}

// Presets returns the sorted names of the agents with weight overrides.
func (w *TypeWeights) Presets() []string {
	names := make([]string, 0, len(w.presets))
	for name := range w.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
