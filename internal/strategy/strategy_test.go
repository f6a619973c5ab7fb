package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name       string
		userAgent  string
		deviceType string
		want       string
	}{
		{"outlook desktop", "Outlook/16.0 (16.0.14326.21018; Microsoft Outlook)", "WindowsOutlook15", "outlook"},
		{"outlook by device type only", "", "WindowsOutlook15", "outlook"},
		{"iphone", "Apple-iPhone12C1/1905.258", "iPhone", "ios"},
		{"ipad", "Apple-iPad7C4/1707.99", "iPad", "ios"},
		{"android", "Android-Mail/2023.05.28", "Android", "android"},
		{"unknown falls back to ios", "SomeClient/1.0", "SmartPhone", "ios"},
		{"empty", "", "", "ios"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.userAgent, tt.deviceType).Name())
		})
	}
}

func TestClampWindowSize(t *testing.T) {
	ios := Detect("iPhone", "")
	assert.Equal(t, 50, ClampWindowSize(ios, -1), "absent window uses default")
	assert.Equal(t, 1, ClampWindowSize(ios, 0), "zero treated as one")
	assert.Equal(t, 30, ClampWindowSize(ios, 30))
	assert.Equal(t, 100, ClampWindowSize(ios, 4000), "clamped to strategy max")

	outlook := Detect("outlook", "")
	assert.Equal(t, 512, ClampWindowSize(outlook, 9999))
}

func TestSelectBodyType(t *testing.T) {
	outlook := Detect("outlook", "")
	ios := Detect("iPhone", "")

	prefs := []BodyPreference{
		{Type: BodyTypePlain, TruncationSize: 1000},
		{Type: BodyTypeHTML, TruncationSize: 2000},
	}

	bt, trunc := SelectBodyType(outlook, prefs)
	assert.Equal(t, BodyTypeHTML, bt)
	assert.Equal(t, 2000, trunc)

	bt, trunc = SelectBodyType(ios, prefs)
	assert.Equal(t, BodyTypePlain, bt)
	assert.Equal(t, 1000, trunc)

	// No client preference falls back to the strategy's first choice.
	bt, trunc = SelectBodyType(ios, nil)
	assert.Equal(t, BodyTypePlain, bt)
	assert.Equal(t, 0, trunc)

	// Client asks only for something the strategy does not rank.
	bt, _ = SelectBodyType(ios, []BodyPreference{{Type: BodyTypeRTF}})
	assert.Equal(t, BodyTypeRTF, bt)
}

func TestTruncationPolicy(t *testing.T) {
	outlook := Detect("outlook", "")
	ios := Detect("iPhone", "")

	// MIME is capped at 512 KB for everyone, even when asked for 1 MB.
	assert.Equal(t, MIMETruncationCap, outlook.Truncation(BodyTypeMIME, 1024*1024, false))
	assert.Equal(t, MIMETruncationCap, ios.Truncation(BodyTypeMIME, 1024*1024, false))
	assert.Equal(t, 100000, ios.Truncation(BodyTypeMIME, 100000, false))
	assert.Equal(t, MIMETruncationCap, ios.Truncation(BodyTypeMIME, 0, false))

	// Outlook floors text truncation at 32 KB.
	assert.Equal(t, outlookTextFloor, outlook.Truncation(BodyTypeHTML, 500, false))
	assert.Equal(t, 64*1024, outlook.Truncation(BodyTypeHTML, 64*1024, false))
	assert.Equal(t, 0, outlook.Truncation(BodyTypeHTML, 0, false), "no request means untruncated")

	// iOS/Android honor the client verbatim for text types.
	assert.Equal(t, 500, ios.Truncation(BodyTypePlain, 500, false))
}

func TestInitialResponseBehavior(t *testing.T) {
	assert.True(t, Detect("outlook", "").NeedsEmptyInitialResponse("0"))
	assert.False(t, Detect("outlook", "").NeedsEmptyInitialResponse("1"))
	assert.False(t, Detect("iPhone", "").NeedsEmptyInitialResponse("0"))
	assert.False(t, Detect("android", "").NeedsEmptyInitialResponse("0"))
}

func TestCommitDiscipline(t *testing.T) {
	assert.False(t, Detect("outlook", "").UsePendingConfirmation())
	assert.True(t, Detect("iPhone", "").UsePendingConfirmation())
	assert.True(t, Detect("android", "").UsePendingConfirmation())
	assert.Equal(t, 50*1024, Detect("outlook", "").BatchByteBudget())
	assert.Zero(t, Detect("iPhone", "").BatchByteBudget())
}
