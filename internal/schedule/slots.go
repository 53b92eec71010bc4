package schedule

import "sort"

// Durations a doctor may cut a window into, in minutes.
var AllowedDurations = []int{15, 30, 45, 60}

// Window is one availability range subdivided by Duration minutes.
type Window struct {
	Start    string
	End      string
	Duration int
}

// GenerateSlots returns the bookable start times in [start, end) spaced by
// durationMinutes. A slot is only produced when the full duration fits
// before end, so the result is empty when end-start < duration.
func GenerateSlots(start, end string, durationMinutes int) []string {
	if durationMinutes <= 0 {
		return []string{}
	}

	current := Minutes(start)
	last := Minutes(end)

	slots := make([]string, 0, max(0, (last-current)/durationMinutes))
	for current+durationMinutes <= last {
		slots = append(slots, FormatMinutes(current))
		current += durationMinutes
	}
	return slots
}

// Candidates unions the slots of every window, dropping duplicates, in
// ascending order.
func Candidates(windows []Window) []string {
	seen := make(map[string]struct{})
	out := []string{}

	for _, w := range windows {
		for _, s := range GenerateSlots(w.Start, w.End, w.Duration) {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}

	sort.Strings(out)
	return out
}

// Contains reports whether slot is one of the candidates of windows.
func Contains(windows []Window, slot string) bool {
	for _, s := range Candidates(windows) {
		if s == slot {
			return true
		}
	}
	return false
}

// AllowedDuration reports whether d is one of AllowedDurations.
func AllowedDuration(d int) bool {
	for _, a := range AllowedDurations {
		if a == d {
			return true
		}
	}
	return false
}
