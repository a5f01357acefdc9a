package briefing

import "github.com/bryan-buckman/iantel/internal/model"

// DefaultMessages returns the fixed message pools.
func DefaultMessages() model.Messages {
	return model.Messages{
		Family: []string{
			"For your eyes only: keep it calm, keep it sharp. Love your family ♥",
			"Good intelligence is slow. Your day can be too. Love your family ♥",
			"Pick one thing and enjoy it. The rest can wait. Love your family ♥",
			"No rushing. You’ve earned a quiet win. Love your family ♥",
		},
		Son: []string{
			"No rushing. No proving. Just a good day. — love, your son",
			"One headline. One full read. That’s the win. — love, your son",
			"Curiosity first. Certainty later. — love, your son",
			"If it’s interesting, it’s worth your time. — love, your son",
		},
	}
}
