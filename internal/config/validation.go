package config

import (
	"fmt"

	"github.com/toolsmith-ai/advisor/internal/learning"
)

// Validate checks that the learning parameters are inside their legal
// ranges and that tool registrations are well-formed.
func (c *Config) Validate() error {
	l := c.Learning

	if l.Alpha <= 0 || l.Alpha > 1 {
		return fmt.Errorf("learning.alpha must be in (0, 1], got %v", l.Alpha)
	}
	if l.Gamma < 0 || l.Gamma > 1 {
		return fmt.Errorf("learning.gamma must be in [0, 1], got %v", l.Gamma)
	}
	if l.Epsilon < 0 || l.Epsilon > 1 {
		return fmt.Errorf("learning.epsilon must be in [0, 1], got %v", l.Epsilon)
	}
	if l.EpsilonDecay <= 0 || l.EpsilonDecay > 1 {
		return fmt.Errorf("learning.epsilonDecay must be in (0, 1], got %v", l.EpsilonDecay)
	}
	if l.MinEpsilon < 0 || l.MinEpsilon > l.Epsilon {
		return fmt.Errorf("learning.minEpsilon must be in [0, epsilon], got %v", l.MinEpsilon)
	}
	if l.MinSamples < 0 {
		return fmt.Errorf("learning.minSamples must not be negative, got %d", l.MinSamples)
	}
	if l.Bootstrap != learning.BootstrapSingle && l.Bootstrap != learning.BootstrapEpisode {
		return fmt.Errorf("learning.bootstrap must be %q or %q, got %q",
			learning.BootstrapSingle, learning.BootstrapEpisode, l.Bootstrap)
	}
	if l.Reward.MinReward >= l.Reward.MaxReward {
		return fmt.Errorf("reward bounds inverted: min %v >= max %v", l.Reward.MinReward, l.Reward.MaxReward)
	}

	seen := make(map[string]bool)
	for _, tool := range c.Tools {
		if tool.Name == "" {
			return fmt.Errorf("tools: empty tool name")
		}
		if seen[tool.Name] {
			return fmt.Errorf("tools: duplicate tool name %q", tool.Name)
		}
		seen[tool.Name] = true
	}

	return nil
}
