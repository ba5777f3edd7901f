// Package persona holds the static catalog of agent personas and builds
// their system instructions.
package persona

import (
	"fmt"

	contractx "github.com/dhraviq/agent-gateway/gateway/contract"
)

var catalog = map[string]contractx.AgentPersona{
	"GoalClarifier": {
		ID:        "GoalClarifier",
		Name:      "Goal Clarifier",
		Focus:     "Helps users define SMART goals.",
		Technical: "Breaks down ambitions using goal frameworks.",
	},
	"SkillMap": {
		ID:        "SkillMap",
		Name:      "Skill Map",
		Focus:     "Identifies skills needed for success.",
		Technical: "Maps learning paths, courses, and gaps.",
	},
	"TimelineWizard": {
		ID:        "TimelineWizard",
		Name:      "Timeline Wizard",
		Focus:     "Creates realistic timelines to reach goals.",
		Technical: "Uses sprints, time-blocking, and planning.",
	},
	"ProgressCoach": {
		ID:        "ProgressCoach",
		Name:      "Progress Coach",
		Focus:     "Monitors execution and keeps momentum.",
		Technical: "Applies habit tracking and feedback.",
	},
	"MindsetMentor": {
		ID:        "MindsetMentor",
		Name:      "Mindset Mentor",
		Focus:     "Builds mental resilience.",
		Technical: "Uses CBT and habit reinforcement tools.",
	},
}

// Registry resolves agent ids to personas. Read-only after process start.
type Registry struct {
	personas map[string]contractx.AgentPersona
}

func NewRegistry() *Registry {
	return &Registry{personas: catalog}
}

// Resolve is total: an unknown id yields a synthesized generic persona
// named after the id, never an error.
func (r *Registry) Resolve(agentID string) contractx.AgentPersona {
	if p, ok := r.personas[agentID]; ok {
		return p
	}
	return contractx.AgentPersona{
		ID:        agentID,
		Name:      agentID,
		Focus:     "General support",
		Technical: "Provide helpful guidance",
	}
}

// IDs returns the known persona ids, for diagnostics.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.personas))
	for id := range r.personas {
		ids = append(ids, id)
	}
	return ids
}

// SystemPrompt builds the role-scoped instruction for one persona,
// confining replies to a short, role-focused answer.
func SystemPrompt(p contractx.AgentPersona) string {
	return fmt.Sprintf(
		"You are %s.\n"+
			"Focus: %s\n"+
			"Technical Role: %s\n\n"+
			"Instructions:\n"+
			"- Respond only in your role.\n"+
			"- Use markdown (bold, lists, etc).\n"+
			"- Stay focused and professional.\n"+
			"- Intro for greetings, guidance for questions.\n"+
			"- Ensure your response is concise and only 2 lines long.",
		p.Name, p.Focus, p.Technical,
	)
}
