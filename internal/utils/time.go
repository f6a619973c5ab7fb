package utils

import "time"

// Now returns the current time in UTC. All persisted timestamps go through
// this so rows compare consistently regardless of server timezone.
func Now() time.Time { return time.Now().UTC() }

func Hours(n int) time.Duration { return time.Duration(n) * time.Hour }
