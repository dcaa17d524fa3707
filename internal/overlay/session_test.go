package overlay

import (
	"math"
	"testing"
	"time"
)

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// fixedClock returns a clock that never advances
func fixedClock(ms int64) func() time.Time {
	return func() time.Time {
		return time.UnixMilli(ms)
	}
}

func testSticker() SavedSticker {
	return SavedSticker{Src: "data:image/png;base64,AAAA", AspectRatio: 2}
}

func openTestSession(t *testing.T) *Session {
	t.Helper()
	return Open(1, nil, &Viewport{Width: 500, Height: 500}, WithClock(fixedClock(1000)))
}

// TestPlace_Defaults verifies a placement lands centred at one fifth of the width
func TestPlace_Defaults(t *testing.T) {
	s := openTestSession(t)

	placed := s.Place(testSticker())

	if placed.X != 50 || placed.Y != 50 || placed.Width != 20 {
		t.Errorf("Expected 50/50/20, got %v/%v/%v", placed.X, placed.Y, placed.Width)
	}
	if placed.Src != testSticker().Src {
		t.Errorf("Expected sticker source to be copied, got %s", placed.Src)
	}
	if !approxEqual(placed.Height(), 10) {
		t.Errorf("Expected derived height 10, got %v", placed.Height())
	}
	if len(s.Stickers()) != 1 {
		t.Errorf("Expected 1 sticker in working set, got %d", len(s.Stickers()))
	}
}

// TestPlace_UniqueIDs verifies ids stay unique when the clock does not move
func TestPlace_UniqueIDs(t *testing.T) {
	s := openTestSession(t)

	seen := map[int64]bool{}
	for i := 0; i < 5; i++ {
		p := s.Place(testSticker())
		if seen[p.ID] {
			t.Fatalf("Duplicate sticker id %d", p.ID)
		}
		seen[p.ID] = true
	}
}

// TestPlace_IDsSeededFromExisting verifies new ids never collide with committed ones
func TestPlace_IDsSeededFromExisting(t *testing.T) {
	existing := []PlacedSticker{{ID: 5000, SavedSticker: testSticker(), X: 10, Y: 10, Width: 30}}
	s := Open(1, existing, &Viewport{Width: 100, Height: 100}, WithClock(fixedClock(1000)))

	p := s.Place(testSticker())
	if p.ID != 5001 {
		t.Errorf("Expected id 5001, got %d", p.ID)
	}
}

// TestPlace_CopyOnPlace verifies later library edits do not leak into placements
func TestPlace_CopyOnPlace(t *testing.T) {
	s := openTestSession(t)
	lib := testSticker()

	p := s.Place(lib)
	lib.Src = "changed"

	got, _ := s.Sticker(p.ID)
	if got.Src == "changed" {
		t.Error("Placed sticker shares state with the library entry")
	}
}

// TestOpen_WorkingCopy verifies edits do not touch the caller's slice
func TestOpen_WorkingCopy(t *testing.T) {
	committed := []PlacedSticker{{ID: 1, SavedSticker: testSticker(), X: 50, Y: 50, Width: 20}}
	s := Open(1, committed, &Viewport{Width: 500, Height: 500})

	s.BeginInteraction(1, Move, 0, 0)
	s.UpdateInteraction(100, 100)

	if committed[0].X != 50 {
		t.Errorf("Committed slice was mutated: x=%v", committed[0].X)
	}
}

// TestMove_ScenarioA verifies a (+10px, +5px) drag in a 500x500 container
func TestMove_ScenarioA(t *testing.T) {
	s := openTestSession(t)
	p := s.Place(testSticker())

	s.BeginInteraction(p.ID, Move, 100, 100)
	s.UpdateInteraction(110, 105)

	got, _ := s.Sticker(p.ID)
	if !approxEqual(got.X, 52) || !approxEqual(got.Y, 51) {
		t.Errorf("Expected x=52 y=51, got x=%v y=%v", got.X, got.Y)
	}
	if got.Width != 20 {
		t.Errorf("Expected width unchanged by move, got %v", got.Width)
	}
}

// TestMove_Unclamped verifies stickers may leave the visible image
func TestMove_Unclamped(t *testing.T) {
	s := openTestSession(t)
	p := s.Place(testSticker())

	s.BeginInteraction(p.ID, Move, 0, 0)
	s.UpdateInteraction(-1000, 1000)

	got, _ := s.Sticker(p.ID)
	if !approxEqual(got.X, -150) || !approxEqual(got.Y, 250) {
		t.Errorf("Expected x=-150 y=250, got x=%v y=%v", got.X, got.Y)
	}
}

// TestResize_ScenarioB verifies the minimum width floor
func TestResize_ScenarioB(t *testing.T) {
	s := openTestSession(t)
	p := s.Place(testSticker())

	s.BeginInteraction(p.ID, Resize, 400, 400)
	s.UpdateInteraction(100, 400)

	got, _ := s.Sticker(p.ID)
	if got.Width != MinWidth {
		t.Errorf("Expected width clamped to %v, got %v", MinWidth, got.Width)
	}
}

// TestResize_IgnoresY verifies only the horizontal delta drives resize
func TestResize_IgnoresY(t *testing.T) {
	s := openTestSession(t)
	p := s.Place(testSticker())

	s.BeginInteraction(p.ID, Resize, 0, 0)
	s.UpdateInteraction(50, 400)

	got, _ := s.Sticker(p.ID)
	if !approxEqual(got.Width, 30) {
		t.Errorf("Expected width 30, got %v", got.Width)
	}
	if got.X != 50 || got.Y != 50 {
		t.Errorf("Expected position unchanged by resize, got %v/%v", got.X, got.Y)
	}
}

// TestResize_FloorHoldsOverSequence verifies width never drops below the floor
func TestResize_FloorHoldsOverSequence(t *testing.T) {
	s := openTestSession(t)
	p := s.Place(testSticker())

	s.BeginInteraction(p.ID, Resize, 250, 0)
	for _, x := range []float64{200, 0, -500, 260, 100, 249, -3000} {
		s.UpdateInteraction(x, 0)
		got, _ := s.Sticker(p.ID)
		if got.Width < MinWidth {
			t.Fatalf("Width %v dropped below floor after pointer x=%v", got.Width, x)
		}
	}
}

// TestUpdate_RemeasuresContainer verifies the container is read on every update
func TestUpdate_RemeasuresContainer(t *testing.T) {
	vp := &Viewport{Width: 500, Height: 500}
	s := Open(1, nil, vp, WithClock(fixedClock(1)))
	p := s.Place(testSticker())

	s.BeginInteraction(p.ID, Move, 0, 0)
	s.UpdateInteraction(50, 0)
	vp.Resize(1000, 1000)
	s.UpdateInteraction(50, 0)

	got, _ := s.Sticker(p.ID)
	if !approxEqual(got.X, 55) {
		t.Errorf("Expected x=55 after container resize, got %v", got.X)
	}
}

// TestUpdate_ZeroContainer verifies a collapsed container does not divide by zero
func TestUpdate_ZeroContainer(t *testing.T) {
	vp := &Viewport{}
	s := Open(1, nil, vp, WithClock(fixedClock(1)))
	p := s.Place(testSticker())

	s.BeginInteraction(p.ID, Move, 0, 0)
	s.UpdateInteraction(50, 50)

	got, _ := s.Sticker(p.ID)
	if got.X != 50 || got.Y != 50 {
		t.Errorf("Expected no movement, got %v/%v", got.X, got.Y)
	}
}

// TestUpdate_NoSession verifies updates without a drag do nothing
func TestUpdate_NoSession(t *testing.T) {
	s := openTestSession(t)
	p := s.Place(testSticker())

	s.UpdateInteraction(500, 500)

	got, _ := s.Sticker(p.ID)
	if got.X != 50 || got.Y != 50 {
		t.Errorf("Expected no movement, got %v/%v", got.X, got.Y)
	}
}

// TestBegin_UnknownSticker verifies pointer-down on a stale id is ignored
func TestBegin_UnknownSticker(t *testing.T) {
	s := openTestSession(t)

	s.BeginInteraction(42, Move, 0, 0)

	if _, ok := s.Active(); ok {
		t.Error("Expected no interaction for unknown sticker")
	}
}

// TestBegin_UnknownType verifies unknown interaction kinds are ignored
func TestBegin_UnknownType(t *testing.T) {
	s := openTestSession(t)
	p := s.Place(testSticker())

	s.BeginInteraction(p.ID, InteractionType("rotate"), 0, 0)

	if _, ok := s.Active(); ok {
		t.Error("Expected no interaction for unknown type")
	}
}

// TestBegin_Rebases verifies a new interaction never reuses the old baseline
func TestBegin_Rebases(t *testing.T) {
	s := openTestSession(t)
	a := s.Place(testSticker())
	b := s.Place(testSticker())

	s.BeginInteraction(a.ID, Move, 0, 0)
	s.UpdateInteraction(100, 100) // a -> 70/70
	s.EndInteraction()

	s.BeginInteraction(b.ID, Move, 300, 300)
	in, ok := s.Active()
	if !ok {
		t.Fatal("Expected active interaction")
	}
	if in.StickerID != b.ID || in.StartStickerX != 50 || in.StartStickerY != 50 {
		t.Errorf("Expected baseline from sticker b at 50/50, got %+v", in)
	}

	s.UpdateInteraction(300, 300)
	gotA, _ := s.Sticker(a.ID)
	gotB, _ := s.Sticker(b.ID)
	if !approxEqual(gotA.X, 70) || gotB.X != 50 {
		t.Errorf("Expected a=70 b=50, got a=%v b=%v", gotA.X, gotB.X)
	}
}

// TestBegin_LastPointerDownWins verifies a second pointer-down replaces the first
func TestBegin_LastPointerDownWins(t *testing.T) {
	s := openTestSession(t)
	a := s.Place(testSticker())
	b := s.Place(testSticker())

	s.BeginInteraction(a.ID, Move, 0, 0)
	s.BeginInteraction(b.ID, Resize, 10, 10)

	in, _ := s.Active()
	if in.StickerID != b.ID || in.Type != Resize {
		t.Errorf("Expected resize on b, got %+v", in)
	}
}

// TestEndInteraction_Idempotent verifies ending twice equals ending once
func TestEndInteraction_Idempotent(t *testing.T) {
	s := openTestSession(t)
	p := s.Place(testSticker())

	s.BeginInteraction(p.ID, Move, 0, 0)
	s.EndInteraction()
	s.EndInteraction()

	if _, ok := s.Active(); ok {
		t.Error("Expected no active interaction")
	}
	s.UpdateInteraction(100, 100)
	got, _ := s.Sticker(p.ID)
	if got.X != 50 {
		t.Errorf("Expected no movement after end, got %v", got.X)
	}
}

// TestRemove_Unknown verifies removing a missing id leaves the set untouched
func TestRemove_Unknown(t *testing.T) {
	s := openTestSession(t)
	p := s.Place(testSticker())
	before := s.Stickers()

	s.Remove(p.ID + 999)

	after := s.Stickers()
	if len(after) != len(before) || after[0] != before[0] {
		t.Errorf("Expected working set unchanged, got %+v", after)
	}
}

// TestRemove_EndsTargetedInteraction verifies dragging a removed sticker stops
func TestRemove_EndsTargetedInteraction(t *testing.T) {
	s := openTestSession(t)
	p := s.Place(testSticker())

	s.BeginInteraction(p.ID, Move, 0, 0)
	s.Remove(p.ID)

	if _, ok := s.Active(); ok {
		t.Error("Expected interaction to end with its sticker")
	}
	if len(s.Stickers()) != 0 {
		t.Errorf("Expected empty working set, got %d", len(s.Stickers()))
	}
}

// TestClose_EndsInteraction verifies close discards the session and freezes edits
func TestClose_EndsInteraction(t *testing.T) {
	s := openTestSession(t)
	p := s.Place(testSticker())

	s.BeginInteraction(p.ID, Move, 0, 0)
	s.UpdateInteraction(50, 0)
	final := s.Close()

	if _, ok := s.Active(); ok {
		t.Error("Expected close to end the interaction")
	}
	if s.IsOpen() {
		t.Error("Expected session to be closed")
	}
	if len(final) != 1 || !approxEqual(final[0].X, 60) {
		t.Errorf("Expected applied delta to survive close, got %+v", final)
	}

	s.Place(testSticker())
	s.Remove(p.ID)
	if len(s.Stickers()) != 1 {
		t.Errorf("Expected closed session to ignore edits, got %d stickers", len(s.Stickers()))
	}
}

// TestView_TogglesResetOnReopen verifies display flags belong to one editing session
func TestView_TogglesResetOnReopen(t *testing.T) {
	s := openTestSession(t)

	if v := s.ToggleInverted(); !v.Inverted || v.Mirrored {
		t.Fatalf("Expected only inverted after first toggle, got %+v", v)
	}
	s.ToggleMirrored()
	s.ToggleMirrored()
	if v := s.ToggleMirrored(); !v.Inverted || !v.Mirrored {
		t.Fatalf("Expected both flags set, got %+v", v)
	}

	final := s.Close()
	if v := s.ToggleInverted(); !v.Inverted {
		t.Errorf("Expected closed session to ignore toggles, got %+v", v)
	}

	reopened := Open(1, final, s.Container())
	if v := reopened.View(); v.Inverted || v.Mirrored {
		t.Errorf("Expected fresh session to start with flags off, got %+v", v)
	}
}

// TestContainer_Accessor verifies the session reports the container it was opened with
func TestContainer_Accessor(t *testing.T) {
	vp := &Viewport{Width: 300, Height: 200}
	s := Open(1, nil, vp)

	if got, ok := s.Container().(*Viewport); !ok || got != vp {
		t.Errorf("Expected the opening viewport back, got %#v", s.Container())
	}
}
