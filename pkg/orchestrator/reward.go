package orchestrator

import "math/big"

// microStepScale is 10^6: one STEP equals one million micro-STEP.
var microStepScale = big.NewInt(1_000_000)

// RewardMicro computes the micro-STEP reward for a click landing on a
// triangle at level: reward(level) =
// floor(10^6 / 2^(level-1)). Level 21 yields exactly 0 — a "mint at
// least one" carve-out was considered and deliberately not applied (see
// DESIGN.md, Open Question 2), so this stays a pure function of level.
func RewardMicro(level int) *big.Int {
	denominator := new(big.Int).Lsh(big.NewInt(1), uint(level-1))
	reward := new(big.Int).Div(microStepScale, denominator)
	return reward
}
