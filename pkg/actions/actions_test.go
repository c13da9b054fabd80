package actions

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/crystal-mush/gomaze/pkg/grid"
	"github.com/crystal-mush/gomaze/pkg/room"
)

type fakeTransport struct {
	mu       sync.Mutex
	sent     map[string][]string
	bcast    []string
	moves    []room.ID
	items    []int
	itemErr  map[int]error
	itemLocs []room.ItemLocation
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{sent: make(map[string][]string), itemErr: make(map[int]error)}
}

func (f *fakeTransport) SendMessage(_ context.Context, _ int, p *room.Player, lines []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[p.ID] = append(f.sent[p.ID], lines...)
	return nil
}

func (f *fakeTransport) BroadcastMessage(_ context.Context, _ int, lines []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bcast = append(f.bcast, lines...)
	return nil
}

func (f *fakeTransport) MovePlayer(_ context.Context, _ int, _ *room.Player, dest room.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, dest)
	return nil
}

func (f *fakeTransport) MoveItem(_ context.Context, _ int, _ *room.Player, item int, loc room.ItemLocation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.itemErr[item]; err != nil {
		return err
	}
	f.items = append(f.items, item)
	f.itemLocs = append(f.itemLocs, loc)
	return nil
}

func (f *fakeTransport) lines(p *room.Player) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent[p.ID]...)
}

func (f *fakeTransport) last(p *room.Player) string {
	l := f.lines(p)
	if len(l) == 0 {
		return ""
	}
	return l[len(l)-1]
}

func (f *fakeTransport) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = make(map[string][]string)
	f.bcast = nil
}

var (
	alice = &room.Player{ID: "a", Name: "alice"}
	bob   = &room.Player{ID: "b", Name: "bob"}
)

// newTestEnv builds room 0 of a 3x3 maze with the given actions and both test
// players inside.
func newTestEnv(t *testing.T, acts ...room.ActionFactory) (*room.Room, *fakeTransport) {
	t.Helper()
	topo, _ := grid.New(3, 3)
	tr := newFakeTransport()
	r := room.New(room.Config{
		Number:      0,
		Owner:       "here",
		Topology:    topo,
		Transport:   tr,
		Actions:     acts,
		ScrollDelay: time.Millisecond,
	})
	t.Cleanup(r.Close)
	ctx := context.Background()
	r.PlayerEntered(ctx, alice)
	r.PlayerEntered(ctx, bob)
	tr.reset()
	return r, tr
}

func TestGo(t *testing.T) {
	r, tr := newTestEnv(t, Defaults()...)
	r.Dispatch(context.Background(), alice, "go north")
	if len(tr.moves) != 1 || tr.moves[0] != (room.ID{Owner: "here", Number: 3}) {
		t.Errorf("moves = %v", tr.moves)
	}
}

func TestSayAndShout(t *testing.T) {
	r, tr := newTestEnv(t, Defaults()...)
	ctx := context.Background()

	r.Dispatch(ctx, alice, "say hello world")
	for _, p := range []*room.Player{alice, bob} {
		if got := tr.last(p); got != "alice says: hello world" {
			t.Errorf("%s got %q", p.Name, got)
		}
	}

	r.Dispatch(ctx, bob, "/shout oi")
	if len(tr.bcast) != 1 || tr.bcast[0] != "bob shouts: oi" {
		t.Errorf("broadcast = %q", tr.bcast)
	}

	// "say" with nothing to say is not a say command.
	r.Dispatch(ctx, alice, "say")
	if got := tr.last(alice); got != "Unrecognised command!" {
		t.Errorf("bare say = %q", got)
	}
}

func TestTakeAndRelease(t *testing.T) {
	r, tr := newTestEnv(t, Defaults()...)
	ctx := context.Background()
	tr.itemErr[7] = room.ErrCantMoveItem

	tests := []struct {
		cmd   string
		who   *room.Player
		reply string
	}{
		{"take x", alice, "Not a valid item number!"},
		{"take 7", alice, "You're not holding that item!"},
		{"release 7", alice, "You're not carrying that item!"},
		{"take 1", bob, "alice picked up an item"},
		{"release 1", bob, "alice dropped an item"},
	}
	for _, tt := range tests {
		r.Dispatch(ctx, alice, tt.cmd)
		if got := tr.last(tt.who); got != tt.reply {
			t.Errorf("%q: %s got %q, want %q", tt.cmd, tt.who.Name, got, tt.reply)
		}
	}
	if len(tr.itemLocs) != 2 || !tr.itemLocs[0].Held() || tr.itemLocs[1].Held() {
		t.Errorf("item locations = %+v", tr.itemLocs)
	}
	if tr.itemLocs[1].Room != r.ID() {
		t.Errorf("released into %v, want %v", tr.itemLocs[1].Room, r.ID())
	}
}

func TestDragon(t *testing.T) {
	r, tr := newTestEnv(t, DungeonSet()...)
	r.Dispatch(context.Background(), alice, "show me   a dragon")
	got := tr.lines(alice)
	if len(got) != len(dragonArt) || got[len(got)-1] != " RRRRRRAAAAAWWWR, A DRAGON!" {
		t.Errorf("dragon = %d lines, last %q", len(got), tr.last(alice))
	}
	if len(tr.lines(bob)) != 0 {
		t.Error("bob saw alice's dragon")
	}
}

func TestSciFiScrolls(t *testing.T) {
	r, tr := newTestEnv(t, DungeonSet()...)
	r.Dispatch(context.Background(), alice, "how does star wars start?")

	deadline := time.Now().Add(5 * time.Second)
	for len(tr.lines(alice)) < len(starWarsCrawl) {
		if time.Now().After(deadline) {
			t.Fatalf("crawl delivered %d of %d lines", len(tr.lines(alice)), len(starWarsCrawl))
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := tr.lines(alice); got[0] != starWarsCrawl[0] {
		t.Errorf("first line = %q", got[0])
	}
}

func TestWall(t *testing.T) {
	r, tr := newTestEnv(t, MessageWallSet(t.TempDir())...)
	ctx := context.Background()

	r.Dispatch(ctx, alice, "read")
	if got := tr.lines(alice); len(got) != 1 || got[0] != "There's nothing written on the wall" {
		t.Errorf("empty wall = %q", got)
	}

	r.Dispatch(ctx, alice, "write kilroy was here")
	if got := tr.last(bob); got != "alice wrote a message on the wall" {
		t.Errorf("bob got %q", got)
	}
	r.Dispatch(ctx, bob, "write me too")

	tr.reset()
	r.Dispatch(ctx, bob, "read")
	want := []string{`"kilroy was here" - alice`, `"me too" - bob`}
	got := tr.lines(bob)
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("read = %q, want %q", got, want)
	}
}

func TestGuessTheNumber(t *testing.T) {
	var game *GuessTheNumber
	secrets := []int{42, 7, 63, 11}
	draws := 0
	r, tr := newTestEnv(t, func(r *room.Room) room.Action {
		game = NewGuessTheNumber(r)
		game.intn = func(n int) int {
			if n != 100 {
				t.Errorf("intn(%d), want intn(100)", n)
			}
			v := secrets[draws]
			draws++
			return v
		}
		return game
	})
	ctx := context.Background()

	const welcome = "Welcome to guess the number! Type /guess followed by your first guess"
	steps := []struct {
		who   *room.Player
		cmd   string
		reply string
		draws int
	}{
		{alice, "guess 1", "You're not playing a game!", 0},
		{alice, "play guess the number", welcome, 1},
		{bob, "play guess the number", "Sorry, someone else is already playing!", 1},
		{bob, "guess 42", "alice is already playing!", 1},
		{alice, "guess banana", "Not a number! banana", 1},
		{alice, "guess 50", "You guessed too high", 1},
		{alice, "guess 10", "You guessed too low", 1},
		{alice, "play guess the number", "Sorry, someone else is already playing!", 1},
		{alice, "guess 42", "Well done! You got it right. End of game.", 1},
		{alice, "guess 42", "You're not playing a game!", 1},
		{bob, "play guess the number", welcome, 2},
		{alice, "play guess the number", "Sorry, someone else is already playing!", 2},
		{bob, "guess 42", "You guessed too high", 2},
		{bob, "guess 7", "Well done! You got it right. End of game.", 2},
		{bob, "play guess the number", welcome, 3},
		{bob, "guess 62", "You guessed too low", 3},
	}
	for i, s := range steps {
		r.Dispatch(ctx, s.who, s.cmd)
		if got := tr.last(s.who); got != s.reply {
			t.Errorf("step %d %s %q: got %q, want %q", i, s.who.Name, s.cmd, got, s.reply)
		}
		if draws != s.draws {
			t.Errorf("step %d %s %q: %d secrets drawn, want %d", i, s.who.Name, s.cmd, draws, s.draws)
		}
	}

	// Leaving frees the game for the next player.
	r.PlayerLeft(ctx, bob)
	if game.Playing() != nil {
		t.Fatal("game still held after player left")
	}
	r.Dispatch(ctx, alice, "play guess the number")
	if p := game.Playing(); p == nil || p.ID != alice.ID {
		t.Errorf("Playing = %v, want alice", p)
	}
	r.Dispatch(ctx, alice, "guess 11")
	if got := tr.last(alice); got != "Well done! You got it right. End of game." {
		t.Errorf("new game secret: got %q", got)
	}
}

func TestHelpListsEveryAction(t *testing.T) {
	set := append(Defaults(), MainHallSet(t.TempDir())...)
	r, tr := newTestEnv(t, set...)
	r.Dispatch(context.Background(), alice, "help")
	if got := len(tr.lines(alice)); got != 2+len(set) {
		t.Errorf("help has %d lines, want %d", got, 2+len(set))
	}
}
