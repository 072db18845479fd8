package orchestrator

import "testing"

func TestRewardMicroHalvesEachLevel(t *testing.T) {
	cases := []struct {
		level int
		want  string
	}{
		{1, "1000000"},
		{2, "500000"},
		{3, "250000"},
		{11, "976"},
		{20, "1"},
		{21, "0"},
	}
	for _, tc := range cases {
		got := RewardMicro(tc.level).String()
		if got != tc.want {
			t.Errorf("RewardMicro(%d) = %s, want %s", tc.level, got, tc.want)
		}
	}
}

func TestRewardMicroMonotonicallyNonIncreasing(t *testing.T) {
	prev := RewardMicro(1)
	for level := 2; level <= 21; level++ {
		cur := RewardMicro(level)
		if cur.Cmp(prev) > 0 {
			t.Errorf("reward at level %d (%s) exceeds level %d (%s)", level, cur, level-1, prev)
		}
		prev = cur
	}
}

func TestFormatMicroAsStep(t *testing.T) {
	cases := []struct {
		micro, want string
	}{
		{"1000000", "1"},
		{"1500000", "1.5"},
		{"0", "0"},
		{"976", "0.000976"},
		{"1", "0.000001"},
	}
	for _, tc := range cases {
		got := formatMicroAsStep(tc.micro)
		if got != tc.want {
			t.Errorf("formatMicroAsStep(%q) = %q, want %q", tc.micro, got, tc.want)
		}
	}
}

func TestPathString(t *testing.T) {
	got := pathString([]int{0, 2, 1, 3})
	if got != "0213" {
		t.Errorf("pathString = %q, want %q", got, "0213")
	}
}
