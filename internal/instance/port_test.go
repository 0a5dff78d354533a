package instance

import (
	"net"
	"testing"
	"time"
)

func TestIsPortAvailable(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	if IsPortAvailable(port) {
		t.Errorf("IsPortAvailable(%d) = true, want false (port is held)", port)
	}
}

func TestFindAvailablePort_SkipsHeldPort(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()
	held := ln.Addr().(*net.TCPAddr).Port

	found := FindAvailablePort(held)
	if found == 0 {
		t.Fatal("FindAvailablePort returned 0, want a free port")
	}
	if found == held {
		t.Errorf("FindAvailablePort returned the held port %d", held)
	}
}

func TestWaitForPortToBeAvailable_TimesOutWhenHeld(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()
	held := ln.Addr().(*net.TCPAddr).Port

	if WaitForPortToBeAvailable(held, 200*time.Millisecond) {
		t.Error("WaitForPortToBeAvailable returned true for a port that never frees")
	}
}

func TestHealthCheck_FailsWhenNothingListening(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	if err := HealthCheck(port); err == nil {
		t.Error("HealthCheck succeeded against a port nothing is listening on")
	}
}
