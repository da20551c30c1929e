package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	testGuildID   = "guild-1"
	testChannelID = "chan-1"
	testUserID    = "user-1"
	testBotID     = "bot-1"
)

type stubCache struct {
	guilds map[string]*discordgo.Guild
	botID  string
	calls  int
}

func (c *stubCache) Guild(id string) (*discordgo.Guild, bool) {
	c.calls++
	g, ok := c.guilds[id]
	return g, ok
}

func (c *stubCache) CurrentUserID() string { return c.botID }

type stubFetcher struct {
	member *discordgo.Member
	err    error
	calls  int
}

func (f *stubFetcher) GuildMember(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.member, nil
}

func testGuild() *discordgo.Guild {
	return &discordgo.Guild{
		ID: testGuildID,
		Channels: []*discordgo.Channel{
			{ID: testChannelID, Type: discordgo.ChannelTypeGuildText},
		},
		Members: []*discordgo.Member{
			{User: &discordgo.User{ID: testUserID}},
			{User: &discordgo.User{ID: testBotID}},
		},
	}
}

// knownResolver resolves every user to the given permission set.
func knownResolver(actual PermissionSet) (*Resolver, *stubCache) {
	cache := &stubCache{
		guilds: map[string]*discordgo.Guild{testGuildID: testGuild()},
		botID:  testBotID,
	}
	r := &Resolver{
		Cache:   cache,
		Fetcher: &stubFetcher{},
		Compute: func(*discordgo.Guild, *discordgo.Channel, *discordgo.Member) (PermissionSet, error) {
			return actual, nil
		},
		Logf: func(string, ...any) {},
	}
	return r, cache
}

// unknownResolver has no guild in cache, so every resolution is unknown.
func unknownResolver() (*Resolver, *stubCache) {
	cache := &stubCache{guilds: map[string]*discordgo.Guild{}, botID: testBotID}
	r := &Resolver{
		Cache:   cache,
		Fetcher: &stubFetcher{},
		Compute: func(*discordgo.Guild, *discordgo.Channel, *discordgo.Member) (PermissionSet, error) {
			return 0, nil
		},
		Logf: func(string, ...any) {},
	}
	return r, cache
}

func guildInvocation() *Invocation {
	return &Invocation{GuildID: testGuildID, ChannelID: testChannelID, UserID: testUserID}
}

func TestEmptyRequiredPermissionsSkipResolver(t *testing.T) {
	resolver, cache := unknownResolver()
	g := New(resolver, nil)

	err := g.Authorize(context.Background(), &CommandSpec{}, guildInvocation())
	if err != nil {
		t.Fatalf("expected pass, got %v", err)
	}
	if cache.calls != 0 {
		t.Errorf("resolver consulted the cache %d times for empty required sets", cache.calls)
	}
}

func TestDirectMessageAlwaysPasses(t *testing.T) {
	resolver, cache := unknownResolver()
	g := New(resolver, nil)

	spec := &CommandSpec{RequiredPermissions: PermissionSet(discordgo.PermissionManageMessages)}
	inv := &Invocation{ChannelID: "dm-chan", UserID: testUserID}

	if err := g.Authorize(context.Background(), spec, inv); err != nil {
		t.Fatalf("expected DM invocation to pass, got %v", err)
	}
	if cache.calls != 0 {
		t.Errorf("DM resolution touched the guild cache %d times", cache.calls)
	}
}

func TestGuildNotCachedDeniesUserAsUnknown(t *testing.T) {
	resolver, _ := unknownResolver()
	g := New(resolver, nil)

	spec := &CommandSpec{RequiredPermissions: PermissionSet(discordgo.PermissionManageMessages)}
	err := g.Authorize(context.Background(), spec, guildInvocation())

	var denial *MissingUserPermissionsError
	if !errors.As(err, &denial) {
		t.Fatalf("expected MissingUserPermissionsError, got %v", err)
	}
	if denial.Known {
		t.Error("expected unknown (Known=false) denial")
	}
}

// The same unresolvable permissions deny the user stage but pass the bot
// stage. Both specs run against identical resolver output.
func TestUnknownPermissionAsymmetry(t *testing.T) {
	resolver, _ := unknownResolver()
	g := New(resolver, nil)
	required := PermissionSet(discordgo.PermissionManageMessages)

	userSpec := &CommandSpec{RequiredPermissions: required}
	if err := g.Authorize(context.Background(), userSpec, guildInvocation()); err == nil {
		t.Fatal("expected user-permission stage to fail closed on unknown")
	}

	botSpec := &CommandSpec{RequiredBotPermissions: required}
	if err := g.Authorize(context.Background(), botSpec, guildInvocation()); err != nil {
		t.Fatalf("expected bot-permission stage to fail open on unknown, got %v", err)
	}
}

func TestMissingUserPermissionsCarriesDiff(t *testing.T) {
	actual := PermissionSet(discordgo.PermissionSendMessages)
	required := PermissionSet(discordgo.PermissionSendMessages | discordgo.PermissionManageMessages)
	resolver, _ := knownResolver(actual)
	g := New(resolver, nil)

	err := g.Authorize(context.Background(), &CommandSpec{RequiredPermissions: required}, guildInvocation())

	var denial *MissingUserPermissionsError
	if !errors.As(err, &denial) {
		t.Fatalf("expected MissingUserPermissionsError, got %v", err)
	}
	if !denial.Known {
		t.Error("expected a known denial")
	}
	if want := PermissionSet(discordgo.PermissionManageMessages); denial.Missing != want {
		t.Errorf("missing = 0x%x, want 0x%x", int64(denial.Missing), int64(want))
	}
}

func TestMissingBotPermissionsAlwaysConcrete(t *testing.T) {
	resolver, _ := knownResolver(0)
	g := New(resolver, nil)

	spec := &CommandSpec{RequiredBotPermissions: PermissionSet(discordgo.PermissionManageMessages)}
	err := g.Authorize(context.Background(), spec, guildInvocation())

	var denial *MissingBotPermissionsError
	if !errors.As(err, &denial) {
		t.Fatalf("expected MissingBotPermissionsError, got %v", err)
	}
	if want := PermissionSet(discordgo.PermissionManageMessages); denial.Missing != want {
		t.Errorf("missing = 0x%x, want 0x%x", int64(denial.Missing), int64(want))
	}
}

func TestOwnershipCheckedBeforePermissions(t *testing.T) {
	resolver, _ := unknownResolver()
	g := New(resolver, []string{"someone-else"})

	spec := &CommandSpec{
		OwnersOnly:          true,
		RequiredPermissions: PermissionSet(discordgo.PermissionManageMessages),
	}
	err := g.Authorize(context.Background(), spec, guildInvocation())

	var denial *NotAnOwnerError
	if !errors.As(err, &denial) {
		t.Fatalf("expected NotAnOwnerError, got %v", err)
	}
}

func TestOwnerPassesOwnershipStage(t *testing.T) {
	resolver, _ := knownResolver(AllPermissions)
	g := New(resolver, []string{testUserID})

	if err := g.Authorize(context.Background(), &CommandSpec{OwnersOnly: true}, guildInvocation()); err != nil {
		t.Fatalf("expected owner to pass, got %v", err)
	}
}

func TestCheckReturningFalseDenies(t *testing.T) {
	resolver, _ := knownResolver(AllPermissions)
	g := New(resolver, nil)

	spec := &CommandSpec{
		Check: func(ctx context.Context, inv *Invocation) (bool, error) { return false, nil },
	}
	err := g.Authorize(context.Background(), spec, guildInvocation())

	var denial *CheckFailedError
	if !errors.As(err, &denial) {
		t.Fatalf("expected CheckFailedError, got %v", err)
	}
}

func TestCheckErrorTaggedWithCheckLocation(t *testing.T) {
	resolver, _ := knownResolver(AllPermissions)
	g := New(resolver, nil)

	cause := errors.New("boom")
	spec := &CommandSpec{
		Check: func(ctx context.Context, inv *Invocation) (bool, error) { return false, cause },
	}
	err := g.Authorize(context.Background(), spec, guildInvocation())

	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected CommandError, got %v", err)
	}
	if cmdErr.Location != LocationCheck {
		t.Errorf("location = %s, want check", cmdErr.Location)
	}
	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to be reachable via errors.Is")
	}

	// The same cause raised by a command body carries a different tag.
	bodyErr := &CommandError{Err: cause, Location: LocationBody}
	if bodyErr.Location == cmdErr.Location {
		t.Error("check and body locations must differ")
	}
}

func TestDefaultCheckAppliesWhenCommandHasNone(t *testing.T) {
	resolver, _ := knownResolver(AllPermissions)
	g := New(resolver, nil)
	g.DefaultCheck = func(ctx context.Context, inv *Invocation) (bool, error) { return false, nil }

	err := g.Authorize(context.Background(), &CommandSpec{}, guildInvocation())
	var denial *CheckFailedError
	if !errors.As(err, &denial) {
		t.Fatalf("expected default check to deny, got %v", err)
	}

	// A command-level check replaces the default entirely.
	spec := &CommandSpec{
		Check: func(ctx context.Context, inv *Invocation) (bool, error) { return true, nil },
	}
	if err := g.Authorize(context.Background(), spec, guildInvocation()); err != nil {
		t.Fatalf("expected command check to override default, got %v", err)
	}
}

func TestDeniedInvocationNeverStartsCooldown(t *testing.T) {
	resolver, _ := unknownResolver()
	g := New(resolver, nil)

	tracker := NewCooldownTracker(CooldownConfig{User: 10 * time.Second})
	spec := &CommandSpec{
		RequiredPermissions: PermissionSet(discordgo.PermissionManageMessages),
		Cooldowns:           tracker,
	}
	inv := guildInvocation()

	if err := g.Authorize(context.Background(), spec, inv); err == nil {
		t.Fatal("expected denial")
	}
	if _, hit := tracker.Remaining(inv); hit {
		t.Error("denied invocation started a cooldown")
	}

	// Same for a check denial.
	spec = &CommandSpec{
		Check:     func(ctx context.Context, inv *Invocation) (bool, error) { return false, nil },
		Cooldowns: tracker,
	}
	if err := g.Authorize(context.Background(), spec, inv); err == nil {
		t.Fatal("expected denial")
	}
	if _, hit := tracker.Remaining(inv); hit {
		t.Error("check-denied invocation started a cooldown")
	}
}

func TestCooldownCommitsOnlyOnFullPass(t *testing.T) {
	resolver, _ := knownResolver(AllPermissions)
	g := New(resolver, nil)

	spec := &CommandSpec{
		Cooldowns: NewCooldownTracker(CooldownConfig{User: 10 * time.Second}),
	}
	inv := guildInvocation()

	if err := g.Authorize(context.Background(), spec, inv); err != nil {
		t.Fatalf("first invocation should pass, got %v", err)
	}

	err := g.Authorize(context.Background(), spec, inv)
	var denial *CooldownError
	if !errors.As(err, &denial) {
		t.Fatalf("second invocation should hit cooldown, got %v", err)
	}
	if denial.Remaining <= 0 || denial.Remaining > 10*time.Second {
		t.Errorf("remaining = %s, want within (0, 10s]", denial.Remaining)
	}
}

func TestCooldownQueryDoesNotConsume(t *testing.T) {
	resolver, _ := knownResolver(AllPermissions)
	g := New(resolver, nil)

	tracker := NewCooldownTracker(CooldownConfig{User: 10 * time.Second})
	clock := time.Unix(1000, 0)
	tracker.now = func() time.Time { return clock }

	spec := &CommandSpec{Cooldowns: tracker}
	inv := guildInvocation()

	if err := g.Authorize(context.Background(), spec, inv); err != nil {
		t.Fatalf("first invocation should pass, got %v", err)
	}

	// Repeated denials must not push the window forward.
	clock = clock.Add(5 * time.Second)
	for i := 0; i < 3; i++ {
		var denial *CooldownError
		if err := g.Authorize(context.Background(), spec, inv); !errors.As(err, &denial) {
			t.Fatalf("expected cooldown denial, got %v", err)
		}
		if denial.Remaining != 5*time.Second {
			t.Errorf("remaining = %s, want 5s", denial.Remaining)
		}
	}
}
