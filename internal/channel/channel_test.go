package channel

import (
	"bytes"
	"testing"
	"time"

	"sonorium/internal/mixer"
	th "sonorium/internal/theme"
)

func emptyThemeStream(id string) *mixer.ThemeStream {
	return mixer.New(&th.Theme{ID: id}, false)
}

func TestChannelStartsIdleAndEmitsSilence(t *testing.T) {
	ch := New(1)
	ch.Start()
	defer ch.Shutdown()

	time.Sleep(80 * time.Millisecond)

	if ch.State() != StateIdle {
		t.Fatalf("expected idle state, got %s", ch.State())
	}
	if ch.CurrentSequence() == 0 {
		t.Fatal("expected the generator to have produced at least one chunk while idle")
	}
}

func TestChannelSetThemeBecomesPlaying(t *testing.T) {
	ch := New(2)
	ch.Start()
	defer ch.Shutdown()

	ch.SetTheme(emptyThemeStream("a"))
	time.Sleep(50 * time.Millisecond)

	if ch.State() != StatePlaying {
		t.Fatalf("expected playing state, got %s", ch.State())
	}
}

func TestChannelStopReturnsToIdleButKeepsRunning(t *testing.T) {
	ch := New(3)
	ch.Start()
	defer ch.Shutdown()

	ch.SetTheme(emptyThemeStream("a"))
	time.Sleep(30 * time.Millisecond)
	seqBeforeStop := ch.CurrentSequence()

	ch.Stop()
	if ch.State() != StateIdle {
		t.Fatal("expected idle state after Stop")
	}

	time.Sleep(50 * time.Millisecond)
	if ch.CurrentSequence() <= seqBeforeStop {
		t.Fatal("expected the generator to keep producing chunks after Stop")
	}
}

func TestChannelSequenceIsMonotonic(t *testing.T) {
	ch := New(4)
	ch.Start()
	defer ch.Shutdown()

	time.Sleep(60 * time.Millisecond)
	entries := ch.ChunksSince(0)
	if len(entries) < 2 {
		t.Skip("not enough chunks produced in the sampling window")
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Seq != entries[i-1].Seq+1 {
			t.Fatalf("expected strictly monotonic +1 sequence, got %d then %d", entries[i-1].Seq, entries[i].Seq)
		}
	}
}

func TestThemeVersionIncrementsOnSetAndStop(t *testing.T) {
	ch := New(5)
	ch.Start()
	defer ch.Shutdown()

	v0 := ch.ThemeVersion()
	ch.SetTheme(emptyThemeStream("a"))
	v1 := ch.ThemeVersion()
	ch.Stop()
	v2 := ch.ThemeVersion()

	if v1 <= v0 || v2 <= v1 {
		t.Fatalf("expected strictly increasing theme version, got %d -> %d -> %d", v0, v1, v2)
	}
}

func TestClientConnectDisconnectCount(t *testing.T) {
	ch := New(6)
	ch.Start()
	defer ch.Shutdown()

	var buf bytes.Buffer
	client := NewClient(ch, &buf)
	if ch.ClientCount() != 1 {
		t.Fatalf("expected client count 1, got %d", ch.ClientCount())
	}

	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- client.Run(stop) }()

	time.Sleep(30 * time.Millisecond)
	close(stop)
	<-done

	if ch.ClientCount() != 0 {
		t.Fatalf("expected client count 0 after disconnect, got %d", ch.ClientCount())
	}
}

func TestManagerAvailableReturnsLowestIdle(t *testing.T) {
	m := NewManager(3)
	defer m.Shutdown()

	avail := m.Available()
	if avail == nil || avail.ID != 1 {
		t.Fatalf("expected channel 1 to be available first, got %+v", avail)
	}

	avail.SetTheme(emptyThemeStream("a"))
	time.Sleep(20 * time.Millisecond)

	avail2 := m.Available()
	if avail2 == nil || avail2.ID != 2 {
		t.Fatalf("expected channel 2 to be the next available, got %+v", avail2)
	}
}

func TestManagerChannelLookup(t *testing.T) {
	m := NewManager(2)
	defer m.Shutdown()

	if m.Channel(1) == nil {
		t.Fatal("expected channel 1 to exist")
	}
	if m.Channel(99) != nil {
		t.Fatal("expected no channel with id 99")
	}
}
