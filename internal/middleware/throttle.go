package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	authpkg "notedeck/pkg/auth"
)

// requestRecord tracks the number of requests and the window start time
type requestRecord struct {
	count       int
	windowStart time.Time
	mu          sync.Mutex
}

// throttleStore stores rate limit data per user and traffic class
type throttleStore struct {
	records map[string]*requestRecord
	mu      sync.RWMutex
}

// newThrottleStore creates a new throttle store
func newThrottleStore() *throttleStore {
	store := &throttleStore{
		records: make(map[string]*requestRecord),
	}
	// Start cleanup goroutine to remove old entries
	go store.startCleanup()
	return store
}

// startCleanup periodically cleans up old entries to prevent memory leaks
func (ts *throttleStore) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		ts.cleanupOldRecords()
	}
}

// cleanupOldRecords removes records older than 1 hour
func (ts *throttleStore) cleanupOldRecords() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	oneHourAgo := time.Now().Add(-1 * time.Hour)
	for key, record := range ts.records {
		record.mu.Lock()
		if record.windowStart.Before(oneHourAgo) {
			delete(ts.records, key)
		}
		record.mu.Unlock()
	}
}

// getOrCreateRecord gets or creates a request record for a throttle key
func (ts *throttleStore) getOrCreateRecord(key string) *requestRecord {
	ts.mu.RLock()
	record, exists := ts.records[key]
	ts.mu.RUnlock()

	if exists {
		return record
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	// Double-check after acquiring write lock
	if record, exists := ts.records[key]; exists {
		return record
	}
	record = &requestRecord{
		count:       0,
		windowStart: time.Now(),
	}
	ts.records[key] = record
	return record
}

// checkAndIncrement checks if the key can make a request and increments the counter
// Returns true if allowed, false if rate limited
func (ts *throttleStore) checkAndIncrement(key string, maxRequests int, period time.Duration) bool {
	record := ts.getOrCreateRecord(key)

	record.mu.Lock()
	defer record.mu.Unlock()

	now := time.Now()
	// If the window has expired, reset it
	if now.Sub(record.windowStart) >= period {
		record.count = 1
		record.windowStart = now
		return true
	}

	// Check if limit is exceeded
	if record.count >= maxRequests {
		return false
	}

	// Increment and allow
	record.count++
	return true
}

// Global throttle store (one per application instance)
var globalThrottleStore = newThrottleStore()

// requestClass buckets a request for throttling. Listing and read traffic is
// cheap and frequent; mutations (create, update, delete, share, copy) fan out
// notifications and get a tighter budget.
func requestClass(r *http.Request) string {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return "read"
	default:
		return "mutation"
	}
}

// ThrottleMiddleware creates an HTTP middleware that rate limits requests per
// user, with independent windows for read and mutation traffic. It requires
// authentication middleware to be applied before it (to get user ID from
// context).
// maxReads: maximum read requests allowed per window
// maxMutations: maximum mutating requests allowed per window
// period: time window for both limits (e.g., time.Minute)
func ThrottleMiddleware(maxReads, maxMutations int, period time.Duration) func(http.Handler) http.Handler {
	if maxReads <= 0 {
		maxReads = 1
	}
	if maxMutations <= 0 {
		maxMutations = 1
	}
	if period <= 0 {
		period = time.Minute
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Get user from context (set by auth middleware)
			userCtx, err := authpkg.GetUserFromContext(r.Context())
			if err != nil {
				// If no user context, we can't throttle per-user
				// Let the request pass (auth middleware should have handled this)
				next.ServeHTTP(w, r)
				return
			}

			class := requestClass(r)
			limit := maxReads
			if class == "mutation" {
				limit = maxMutations
			}

			// Check rate limit; read and mutation windows are independent.
			allowed := globalThrottleStore.checkAndIncrement(userCtx.UserID+"|"+class, limit, period)
			if !allowed {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", formatRetryAfter(period))
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"rate limit exceeded"}`))
				return
			}

			// Request allowed, proceed
			next.ServeHTTP(w, r)
		})
	}
}

// formatRetryAfter formats the period as seconds for Retry-After header
func formatRetryAfter(period time.Duration) string {
	seconds := int(period.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}
