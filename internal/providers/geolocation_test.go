package providers

import "testing"

func TestIsLocalIP(t *testing.T) {
	local := []string{"127.0.0.1", "::1", "0.0.0.0", "192.168.1.20", "10.0.0.7", "172.16.4.1"}
	for _, ip := range local {
		if !isLocalIP(ip) {
			t.Errorf("isLocalIP(%q) = false, want true", ip)
		}
	}

	public := []string{"8.8.8.8", "203.0.113.9", "2606:4700::1111"}
	for _, ip := range public {
		if isLocalIP(ip) {
			t.Errorf("isLocalIP(%q) = true, want false", ip)
		}
	}
}
