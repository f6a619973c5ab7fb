// Package strategy captures the behavior differences between ActiveSync
// client families. Outlook, iOS and Android disagree on initial-response
// emptiness, window sizing, body-type preference and commit discipline;
// handlers never branch on User-Agent directly, they ask the strategy.
package strategy

import "strings"

// Body types per MS-ASAIRS.
const (
	BodyTypePlain = 1
	BodyTypeHTML  = 2
	BodyTypeRTF   = 3
	BodyTypeMIME  = 4
)

// MIMETruncationCap is the hard ceiling for Type=4 bodies regardless of
// what the client requests.
const MIMETruncationCap = 512000

// ClientStrategy is the capability set consulted by every command handler.
type ClientStrategy interface {
	Name() string

	// NeedsEmptyInitialResponse reports whether a SyncKey "0" request must
	// be answered with an empty batch before any items are sent.
	NeedsEmptyInitialResponse(syncKey string) bool

	DefaultWindowSize() int
	MaxWindowSize() int

	// BodyTypePreference is the preference order intersected with the
	// client's BodyPreference list.
	BodyTypePreference() []int

	// UsePendingConfirmation reports whether issued batches stay pending
	// until the client advances the SyncKey.
	UsePendingConfirmation() bool

	// Truncation returns the effective truncation size in bytes for the
	// given body type. requested <= 0 means the client sent no
	// TruncationSize.
	Truncation(bodyType, requested int, initial bool) int

	// BatchByteBudget returns the per-response byte budget, or 0 for no
	// budget beyond WindowSize.
	BatchByteBudget() int
}

type outlookStrategy struct{}
type iosStrategy struct{}
type androidStrategy struct{}

func (outlookStrategy) Name() string { return "outlook" }
func (iosStrategy) Name() string     { return "ios" }
func (androidStrategy) Name() string { return "android" }

func (outlookStrategy) NeedsEmptyInitialResponse(syncKey string) bool { return syncKey == "0" }
func (iosStrategy) NeedsEmptyInitialResponse(string) bool             { return false }
func (androidStrategy) NeedsEmptyInitialResponse(string) bool         { return false }

func (outlookStrategy) DefaultWindowSize() int { return 25 }
func (iosStrategy) DefaultWindowSize() int     { return 50 }
func (androidStrategy) DefaultWindowSize() int { return 25 }

func (outlookStrategy) MaxWindowSize() int { return 512 }
func (iosStrategy) MaxWindowSize() int     { return 100 }
func (androidStrategy) MaxWindowSize() int { return 100 }

func (outlookStrategy) BodyTypePreference() []int {
	return []int{BodyTypeHTML, BodyTypePlain, BodyTypeMIME}
}

func (iosStrategy) BodyTypePreference() []int {
	return []int{BodyTypePlain, BodyTypeHTML, BodyTypeMIME}
}

func (androidStrategy) BodyTypePreference() []int {
	return []int{BodyTypeHTML, BodyTypePlain, BodyTypeMIME}
}

// Outlook advances the SyncKey unilaterally; it never resends the previous
// key to confirm a batch.
func (outlookStrategy) UsePendingConfirmation() bool { return false }
func (iosStrategy) UsePendingConfirmation() bool     { return true }
func (androidStrategy) UsePendingConfirmation() bool { return true }

const outlookTextFloor = 32 * 1024

func (outlookStrategy) Truncation(bodyType, requested int, initial bool) int {
	if bodyType == BodyTypeMIME {
		return capMIME(requested)
	}
	if requested <= 0 {
		return 0
	}
	if requested < outlookTextFloor {
		return outlookTextFloor
	}
	return requested
}

func (iosStrategy) Truncation(bodyType, requested int, initial bool) int {
	return honorClient(bodyType, requested)
}

func (androidStrategy) Truncation(bodyType, requested int, initial bool) int {
	return honorClient(bodyType, requested)
}

func honorClient(bodyType, requested int) int {
	if bodyType == BodyTypeMIME {
		return capMIME(requested)
	}
	if requested <= 0 {
		return 0
	}
	return requested
}

func capMIME(requested int) int {
	if requested <= 0 || requested > MIMETruncationCap {
		return MIMETruncationCap
	}
	return requested
}

func (outlookStrategy) BatchByteBudget() int { return 50 * 1024 }
func (iosStrategy) BatchByteBudget() int     { return 0 }
func (androidStrategy) BatchByteBudget() int { return 0 }

// Detect maps (User-Agent, DeviceType) onto a client strategy. iOS is the
// default: it is the most permissive family when the client is unknown.
func Detect(userAgent, deviceType string) ClientStrategy {
	ua := strings.ToLower(userAgent)
	dt := strings.ToLower(deviceType)
	switch {
	case contains(ua, dt, "outlook"), contains(ua, dt, "windowsoutlook"):
		return outlookStrategy{}
	case contains(ua, dt, "iphone"), contains(ua, dt, "ipad"), contains(ua, dt, "ipod"):
		return iosStrategy{}
	case contains(ua, dt, "android"):
		return androidStrategy{}
	default:
		return iosStrategy{}
	}
}

func contains(ua, dt, needle string) bool {
	return strings.Contains(ua, needle) || strings.Contains(dt, needle)
}

// ClampWindowSize normalizes a client WindowSize against a strategy:
// absent or zero falls back sensibly, oversized clamps silently.
func ClampWindowSize(s ClientStrategy, requested int) int {
	switch {
	case requested < 0:
		return s.DefaultWindowSize()
	case requested == 0:
		return 1
	case requested > s.MaxWindowSize():
		return s.MaxWindowSize()
	default:
		return requested
	}
}

// SelectBodyType intersects the client's requested body types with the
// strategy's preference order and returns the winner plus the requested
// truncation size for it.
func SelectBodyType(s ClientStrategy, prefs []BodyPreference) (int, int) {
	if len(prefs) == 0 {
		return s.BodyTypePreference()[0], 0
	}
	for _, want := range s.BodyTypePreference() {
		for _, p := range prefs {
			if p.Type == want {
				return want, p.TruncationSize
			}
		}
	}
	// Nothing the strategy likes; honor the client's first choice.
	return prefs[0].Type, prefs[0].TruncationSize
}

// BodyPreference mirrors one AirSyncBase:BodyPreference block.
type BodyPreference struct {
	Type           int
	TruncationSize int
	AllOrNone      bool
}

// ForTesting returns a deterministic strategy slot for unit tests: iOS-like
// two-phase commit with a tiny fixed window.
func ForTesting(window int) ClientStrategy {
	return testStrategy{window: window}
}

type testStrategy struct{ window int }

func (t testStrategy) Name() string                          { return "test" }
func (t testStrategy) NeedsEmptyInitialResponse(string) bool { return false }
func (t testStrategy) DefaultWindowSize() int                { return t.window }
func (t testStrategy) MaxWindowSize() int                    { return t.window }
func (t testStrategy) BodyTypePreference() []int {
	return []int{BodyTypePlain, BodyTypeHTML, BodyTypeMIME}
}
func (t testStrategy) UsePendingConfirmation() bool { return true }
func (t testStrategy) Truncation(bodyType, requested int, initial bool) int {
	return honorClient(bodyType, requested)
}
func (t testStrategy) BatchByteBudget() int { return 0 }
