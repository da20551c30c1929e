package gate

import (
	"sync"
	"time"
)

// CooldownConfig sets the window per granularity. A zero duration means the
// granularity is not tracked.
type CooldownConfig struct {
	Global  time.Duration
	User    time.Duration
	Guild   time.Duration
	Channel time.Duration
	// Member tracks one bucket per (guild, user) pair.
	Member time.Duration
}

type memberKey struct {
	guildID string
	userID  string
}

// CooldownTracker records the last successful invocation per configured
// bucket. A command owns exactly one tracker; invocations race on it, so
// all access goes through the mutex. Remaining and Start are the only
// operations, so the lock is never held across I/O.
type CooldownTracker struct {
	mu  sync.Mutex
	cfg CooldownConfig
	now func() time.Time

	global  time.Time
	user    map[string]time.Time
	guild   map[string]time.Time
	channel map[string]time.Time
	member  map[memberKey]time.Time
}

// NewCooldownTracker returns a tracker with no buckets started.
func NewCooldownTracker(cfg CooldownConfig) *CooldownTracker {
	return &CooldownTracker{
		cfg:     cfg,
		now:     time.Now,
		user:    make(map[string]time.Time),
		guild:   make(map[string]time.Time),
		channel: make(map[string]time.Time),
		member:  make(map[memberKey]time.Time),
	}
}

// Remaining returns the longest outstanding wait across every configured
// bucket that applies to inv. hit is false when the invocation may proceed.
// Querying never consumes or resets a bucket.
func (t *CooldownTracker) Remaining(inv *Invocation) (remaining time.Duration, hit bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	check := func(last time.Time, window time.Duration) {
		if window <= 0 || last.IsZero() {
			return
		}
		if rem := window - now.Sub(last); rem > remaining {
			remaining = rem
		}
	}

	check(t.global, t.cfg.Global)
	check(t.user[inv.UserID], t.cfg.User)
	check(t.guild[inv.GuildID], t.cfg.Guild)
	check(t.channel[inv.ChannelID], t.cfg.Channel)
	check(t.member[memberKey{inv.GuildID, inv.UserID}], t.cfg.Member)

	return remaining, remaining > 0
}

// Start stamps every applicable bucket with the current time. Only the gate
// calls this, and only after every other stage has passed.
func (t *CooldownTracker) Start(inv *Invocation) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if t.cfg.Global > 0 {
		t.global = now
	}
	if t.cfg.User > 0 {
		t.user[inv.UserID] = now
	}
	if t.cfg.Guild > 0 {
		t.guild[inv.GuildID] = now
	}
	if t.cfg.Channel > 0 {
		t.channel[inv.ChannelID] = now
	}
	if t.cfg.Member > 0 {
		t.member[memberKey{inv.GuildID, inv.UserID}] = now
	}
}
