package ratelimit

import (
	"net/http"
	"sync"
	"testing"
	"time"
)

// mockClock is a controllable clock for testing.
type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMockClock() *mockClock {
	return &mockClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestCheckLogin_Lockout(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{
		MaxAttempts:  3,
		Lockout:      10 * time.Minute,
		MaxIPPerHour: 100,
		Clock:        clock,
	})
	defer limiter.Close()

	email := "coach@example.com"
	ip := "203.0.113.10"

	for i := 0; i < 2; i++ {
		if lockedOut := limiter.RecordFailure(email); lockedOut {
			t.Fatalf("failure %d should not lock out", i+1)
		}
		if result := limiter.CheckLogin(email, ip); !result.Allowed {
			t.Fatalf("attempt %d should be allowed, got %s", i+2, result.Reason)
		}
	}

	if lockedOut := limiter.RecordFailure(email); !lockedOut {
		t.Fatal("third failure should start a lockout")
	}

	clock.Advance(4 * time.Minute)
	result := limiter.CheckLogin(email, ip)
	if result.Allowed {
		t.Fatal("locked account should be blocked")
	}
	if result.Reason != "lockout" {
		t.Errorf("Expected reason 'lockout', got '%s'", result.Reason)
	}
	if result.RetryAfter != 6*time.Minute {
		t.Errorf("Expected RetryAfter 6m, got %v", result.RetryAfter)
	}

	clock.Advance(6 * time.Minute)
	if result := limiter.CheckLogin(email, ip); !result.Allowed {
		t.Fatalf("lockout should expire, got %s", result.Reason)
	}

	// An expired lockout starts a fresh count.
	if lockedOut := limiter.RecordFailure(email); lockedOut {
		t.Fatal("first failure after lockout should not lock out again")
	}
}

func TestCheckLogin_EmailNormalization(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{MaxAttempts: 1, Lockout: time.Minute, MaxIPPerHour: 100, Clock: clock})
	defer limiter.Close()

	limiter.RecordFailure("Coach@Example.com")

	variants := []string{"coach@example.com", "COACH@EXAMPLE.COM", "  coach@example.com  "}
	for _, variant := range variants {
		if result := limiter.CheckLogin(variant, "203.0.113.10"); result.Allowed {
			t.Errorf("%q should share the lockout", variant)
		}
	}
}

func TestReset_ClearsFailures(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{MaxAttempts: 2, Lockout: time.Minute, MaxIPPerHour: 100, Clock: clock})
	defer limiter.Close()

	email := "coach@example.com"
	limiter.RecordFailure(email)
	limiter.Reset(email)

	if lockedOut := limiter.RecordFailure(email); lockedOut {
		t.Fatal("reset should clear earlier failures")
	}
	if result := limiter.CheckLogin(email, "203.0.113.10"); !result.Allowed {
		t.Fatalf("expected allowed after reset, got %s", result.Reason)
	}
}

func TestCheckLogin_IPLimit(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{MaxAttempts: 100, Lockout: time.Minute, MaxIPPerHour: 3, Clock: clock})
	defer limiter.Close()

	ip := "203.0.113.10"
	for i := 0; i < 3; i++ {
		limiter.RecordAttempt(ip)
	}

	result := limiter.CheckLogin("someone-new@example.com", ip)
	if result.Allowed {
		t.Fatal("IP over its hourly cap should be blocked")
	}
	if result.Reason != "ip_hourly_limit" {
		t.Errorf("Expected reason 'ip_hourly_limit', got '%s'", result.Reason)
	}

	if result := limiter.CheckLogin("someone-new@example.com", "203.0.113.11"); !result.Allowed {
		t.Fatal("other IPs should not be affected")
	}

	clock.Advance(time.Hour)
	if result := limiter.CheckLogin("someone-new@example.com", ip); !result.Allowed {
		t.Fatalf("IP window should reset after an hour, got %s", result.Reason)
	}
}

func TestCheckLogin_DoesNotRecord(t *testing.T) {
	limiter := New(&Config{MaxAttempts: 1, Lockout: time.Minute, MaxIPPerHour: 1, Clock: newMockClock()})
	defer limiter.Close()

	for i := 0; i < 10; i++ {
		if result := limiter.CheckLogin("coach@example.com", "203.0.113.10"); !result.Allowed {
			t.Fatalf("check %d should be allowed without prior records", i+1)
		}
	}
}

func TestGetClientIP_TrustProxy(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		trustProxy bool
		expected   string
	}{
		{
			name:       "TrustProxy=true, XFF rightmost public IP",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.50, 10.0.0.1"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			expected:   "203.0.113.50",
		},
		{
			name:       "TrustProxy=true, XFF all private",
			headers:    map[string]string{"X-Forwarded-For": "192.168.1.1, 10.0.0.1"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			expected:   "10.0.0.1",
		},
		{
			name:       "TrustProxy=true, X-Real-IP",
			headers:    map[string]string{"X-Real-IP": "203.0.113.51"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			expected:   "203.0.113.51",
		},
		{
			name:       "TrustProxy=false, ignores XFF",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.50"},
			remoteAddr: "192.168.1.100:54321",
			trustProxy: false,
			expected:   "192.168.1.100",
		},
		{
			name:       "RemoteAddr without port",
			headers:    map[string]string{},
			remoteAddr: "192.168.1.100",
			trustProxy: false,
			expected:   "192.168.1.100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := http.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			got := GetClientIP(r, tt.trustProxy)
			if got != tt.expected {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestSanitizeEmail(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"john.doe@example.com", "jo***@example.com"},
		{"JOHN.DOE@EXAMPLE.COM", "jo***@example.com"},
		{"ab@example.com", "***@example.com"},
		{"not-an-email", "***"},
		{"", "***"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := SanitizeEmail(tt.input); got != tt.expected {
				t.Errorf("SanitizeEmail(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip       string
		expected bool
	}{
		{"10.0.0.1", true},
		{"172.16.0.1", true},
		{"192.168.1.1", true},
		{"127.0.0.1", true},
		{"::1", true},
		{"fe80::1", true},
		{"::ffff:192.168.1.1", true},
		{"::ffff:8.8.8.8", false},
		{"203.0.113.50", false},
		{"2001:4860:4860::8888", false},
		{"invalid", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			if got := isPrivateIP(tt.ip); got != tt.expected {
				t.Errorf("isPrivateIP(%q) = %v, want %v", tt.ip, got, tt.expected)
			}
		})
	}
}

func TestConcurrentAccess(t *testing.T) {
	limiter := New(nil)
	defer limiter.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			email := "coach@example.com"
			ip := "203.0.113.10"
			limiter.CheckLogin(email, ip)
			limiter.RecordAttempt(ip)
			if i%2 == 0 {
				limiter.RecordFailure(email)
			} else {
				limiter.Reset(email)
			}
		}(i)
	}
	wg.Wait()
}
