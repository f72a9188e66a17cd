package transcode

import (
	"testing"
)

func TestPreflightMissingBinary(t *testing.T) {
	f := NewFFmpeg("definitely-not-a-real-binary-9f2c", nil)
	if err := f.Preflight(); err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestPreflightPresentBinary(t *testing.T) {
	f := NewFFmpeg("sh", nil)
	if err := f.Preflight(); err != nil {
		t.Fatalf("expected sh to be found: %v", err)
	}
}

func TestSessionVolumeClamp(t *testing.T) {
	s := &Session{}
	s.SetVolume(-2)
	if s.Volume() != 0 {
		t.Fatalf("expected negative volume clamped to 0, got %g", s.Volume())
	}
	s.SetVolume(1.5)
	if s.Volume() != 1.5 {
		t.Fatalf("expected volume 1.5, got %g", s.Volume())
	}
}
