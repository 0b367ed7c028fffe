package pipe_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dudk/midiflow"
	"github.com/dudk/midiflow/mock"
	"github.com/dudk/midiflow/pipe"
)

var (
	noteOn = midiflow.ChannelMessage{Type: midiflow.NoteOn, Data1: 0x40, Data2: 0x7F}
	clock  = midiflow.RealTimeMessage{Type: midiflow.TimingClock}
)

func newPipe(t *testing.T, options ...pipe.Option) *pipe.Pipe {
	t.Helper()
	p, err := pipe.New(options...)
	require.NoError(t, err)
	return p
}

func newSink(name string) (*pipe.Sink, *mock.Receiver) {
	r := &mock.Receiver{}
	return pipe.NewSink(r, pipe.Named(name)), r
}

func connect(t *testing.T, src *pipe.Source, dst *pipe.Sink, options ...pipe.Option) *pipe.Pipe {
	t.Helper()
	p, err := pipe.Connect(src, dst, options...)
	require.NoError(t, err)
	return p
}

func received(r *mock.Receiver) int {
	n, _ := r.Count()
	return n
}

func TestRoute(t *testing.T) {
	src := pipe.NewSource(pipe.Named("src"))
	dst, r := newSink("dst")
	p := newPipe(t, pipe.WithName("route"))
	pipe.Route(src, p, dst)

	assert.NoError(t, src.SourceMessage(noteOn))
	assert.Equal(t, []midiflow.Message{noteOn}, r.Received())
	assert.Equal(t, dst, p.FinalSink())
	assert.Equal(t, src, p.InitialSource())
	assert.Contains(t, p.String(), "route")
}

func TestFanIn(t *testing.T) {
	dst, r := newSink("dst")
	src1, src2, src3 := pipe.NewSource(), pipe.NewSource(), pipe.NewSource()
	p1 := connect(t, src1, dst)
	p2 := connect(t, src2, dst)
	p3 := connect(t, src3, dst)

	// later connections are appended to the through chain
	assert.Equal(t, p1, dst.SourcePipe())
	assert.Equal(t, p2, p1.ThroughIn())
	assert.Equal(t, p3, p2.ThroughIn())

	for _, src := range []*pipe.Source{src1, src2, src3} {
		assert.NoError(t, src.SourceMessage(noteOn))
	}
	assert.Equal(t, 3, received(r))
}

func TestFanOut(t *testing.T) {
	var order []string
	record := func(name string) *pipe.Sink {
		return pipe.NewSink(pipe.ReceiverFunc(func(midiflow.Message) {
			order = append(order, name)
		}), pipe.Named(name))
	}
	src := pipe.NewSource()
	dst1, dst2 := record("first"), record("second")
	p1 := connect(t, src, dst1)
	p2 := connect(t, src, dst2)
	assert.Equal(t, p1, src.SinkPipe())
	assert.Equal(t, p2, p1.ThroughOut())

	assert.NoError(t, src.SourceMessage(noteOn))
	// through output is served before the pipe's own sink
	assert.Equal(t, []string{"second", "first"}, order)
}

func TestTopologySplice(t *testing.T) {
	src := pipe.NewSource()
	dst, r := newSink("dst")
	a := newPipe(t, pipe.WithName("a"))
	b := newPipe(t, pipe.WithName("b"))
	c := newPipe(t, pipe.WithName("c"))
	pipe.Chain(src, dst, a, b, c)

	assert.NoError(t, src.SourceMessage(noteOn))
	assert.Equal(t, 1, received(r))

	b.Disconnect()
	assert.False(t, b.HasSink())
	assert.False(t, b.HasSource())
	assert.Equal(t, c, dst.SourcePipe())
	assert.Equal(t, a, c.ThroughIn())
	assert.Equal(t, dst, a.FinalSink())

	r.Reset()
	assert.NoError(t, src.SourceMessage(noteOn))
	assert.Equal(t, []midiflow.Message{noteOn}, r.Received())
}

func TestSpliceThroughOut(t *testing.T) {
	src := pipe.NewSource()
	dst1, r1 := newSink("dst1")
	dst2, r2 := newSink("dst2")
	dst3, r3 := newSink("dst3")
	p1 := connect(t, src, dst1)
	p2 := connect(t, src, dst2)
	p3 := connect(t, src, dst3)

	p2.Disconnect()
	assert.Equal(t, p3, p1.ThroughOut())
	assert.Nil(t, dst2.SourcePipe())

	assert.NoError(t, src.SourceMessage(noteOn))
	assert.Equal(t, 1, received(r1))
	assert.Equal(t, 0, received(r2))
	assert.Equal(t, 1, received(r3))

	// the head of the chain
	p1.Disconnect()
	assert.Equal(t, p3, src.SinkPipe())
	assert.NoError(t, src.SourceMessage(noteOn))
	assert.Equal(t, 1, received(r1))
	assert.Equal(t, 2, received(r3))
}

func TestDisconnectByIdentity(t *testing.T) {
	dst, r := newSink("dst")
	src1 := pipe.NewSource(pipe.Named("src1"))
	src2 := pipe.NewSource(pipe.Named("src2"))
	src3 := pipe.NewSource(pipe.Named("src3"))
	connect(t, src1, dst)
	p2 := connect(t, src2, dst)
	p3 := connect(t, src3, dst)

	assert.True(t, dst.Disconnect(src2))
	assert.False(t, dst.Disconnect(src2))
	assert.False(t, src2.HasSinkPipe())
	assert.False(t, p2.HasSink())
	assert.Equal(t, p3, dst.SourcePipe().ThroughIn())

	assert.NoError(t, src1.SourceMessage(noteOn))
	assert.NoError(t, src2.SourceMessage(noteOn))
	assert.NoError(t, src3.SourceMessage(noteOn))
	assert.Equal(t, 2, received(r))

	other, _ := newSink("other")
	connect(t, src1, other)
	assert.True(t, src1.Disconnect(dst))
	assert.False(t, src1.Disconnect(dst))
	assert.Equal(t, other, src1.SinkPipe().FinalSink())
}

func TestDisconnectAll(t *testing.T) {
	dst, r := newSink("dst")
	src := pipe.NewSource()
	sources := []*pipe.Source{pipe.NewSource(), pipe.NewSource(), pipe.NewSource()}
	for _, s := range sources {
		connect(t, s, dst)
	}
	connect(t, src, dst)
	other, ro := newSink("other")
	connect(t, src, other)

	assert.NoError(t, dst.Close())
	assert.False(t, dst.HasSourcePipe())
	for _, s := range sources {
		assert.False(t, s.HasSinkPipe())
	}
	// src still feeds other
	assert.NoError(t, src.SourceMessage(noteOn))
	assert.Equal(t, 0, received(r))
	assert.Equal(t, 1, received(ro))

	assert.NoError(t, src.Close())
	assert.False(t, src.HasSinkPipe())
	assert.False(t, other.HasSourcePipe())
}

func TestMapper(t *testing.T) {
	dst, r := newSink("dst")
	filtered := pipe.NewSource()
	plain := pipe.NewSource()
	connect(t, filtered, dst, pipe.WithMapper(pipe.Mappers(
		pipe.ChannelFilter(1, 2),
		pipe.ChannelRemap(2, 9),
		pipe.CableRemap(3),
		pipe.DropRealTime,
	)))
	connect(t, plain, dst)

	for ch := midiflow.Channel(0); ch < 4; ch++ {
		msg := noteOn
		msg.Channel = ch
		assert.NoError(t, filtered.SourceMessage(msg))
	}
	assert.NoError(t, filtered.SourceMessage(clock))
	assert.NoError(t, plain.SourceMessage(noteOn))

	expected := []midiflow.Message{
		midiflow.ChannelMessage{Type: midiflow.NoteOn, Channel: 1, Data1: 0x40, Data2: 0x7F, Cable: 3},
		midiflow.ChannelMessage{Type: midiflow.NoteOn, Channel: 9, Data1: 0x40, Data2: 0x7F, Cable: 3},
		noteOn,
	}
	assert.Equal(t, expected, r.Received())

	_, err := pipe.New(pipe.WithMapper(nil))
	assert.Equal(t, pipe.ErrNilMapper, err)
}

func TestGraphInvariants(t *testing.T) {
	src := pipe.NewSource()
	dst, _ := newSink("dst")
	p := newPipe(t)
	pipe.Route(src, p, dst)

	// the pipe's slots are taken
	err := midiflow.Catch(func() {
		other, _ := newSink("other")
		other.ConnectSourcePipe(p)
	})
	assert.ErrorIs(t, err, midiflow.ErrGraphInvariant)
	err = midiflow.Catch(func() {
		pipe.NewSource().ConnectSinkPipe(p)
	})
	assert.ErrorIs(t, err, midiflow.ErrGraphInvariant)
	assert.Equal(t, uint16(0x9146), err.(*midiflow.Error).Code)

	// a message reaching a pipe with nowhere to go
	dangling := pipe.NewSource()
	dangling.ConnectSinkPipe(newPipe(t))
	err = midiflow.Catch(func() {
		_ = dangling.SourceMessage(noteOn)
	})
	assert.ErrorIs(t, err, midiflow.ErrGraphInvariant)

	// the graph is still usable after a fatal condition was caught
	assert.NoError(t, src.SourceMessage(noteOn))
}

func TestIdempotentStall(t *testing.T) {
	src := pipe.NewSource()
	dst, _ := newSink("dst")
	p := connect(t, src, dst)
	x := &mock.Staller{Name: "x"}
	y := &mock.Staller{Name: "y"}

	src.Stall(x)
	assert.True(t, src.IsStalled())
	assert.Equal(t, pipe.Staller(x), p.Staller())
	assert.Equal(t, pipe.Staller(x), dst.Staller())

	src.Stall(x)
	assert.True(t, src.IsStalled())
	assert.Equal(t, pipe.Staller(x), p.Staller())
	assert.Equal(t, pipe.Staller(x), dst.Staller())

	err := midiflow.Catch(func() { src.Stall(y) })
	assert.ErrorIs(t, err, midiflow.ErrStallConflict)
	assert.Contains(t, err.Error(), "x")
	assert.Contains(t, err.Error(), "y")
	assert.Equal(t, pipe.Staller(x), p.Staller())

	err = midiflow.Catch(func() { src.Unstall(y) })
	assert.ErrorIs(t, err, midiflow.ErrStallConflict)

	src.Unstall(x)
	assert.False(t, src.IsStalled())
	assert.False(t, dst.IsStalled())
	// unstalling twice is harmless
	src.Unstall(x)
	assert.False(t, src.IsStalled())

	err = midiflow.Catch(func() { src.Stall(nil) })
	assert.ErrorIs(t, err, midiflow.ErrGraphInvariant)
}

func TestBackpressure(t *testing.T) {
	a := pipe.NewSource(pipe.Named("A"))
	b, _ := newSink("B")
	p := connect(t, a, b)
	x := &mock.Staller{Name: "x"}

	b.Stall(x)
	assert.True(t, a.IsStalled())
	assert.True(t, p.IsStalled())
	assert.Equal(t, pipe.Staller(x), a.Staller())

	b.Unstall(x)
	assert.False(t, a.IsStalled())
	assert.Nil(t, a.Staller())
}

func TestStallFanIn(t *testing.T) {
	dst, _ := newSink("dst")
	owner := &mock.Staller{Name: "owner"}
	src1 := pipe.NewSource(pipe.OwnedBy(owner))
	src2 := pipe.NewSource()
	src3 := pipe.NewSource()
	connect(t, src1, dst)
	connect(t, src2, dst)
	connect(t, src3, dst)

	src2.Stall(owner)
	for _, s := range []*pipe.Source{src1, src2, src3} {
		assert.True(t, s.IsStalled())
	}
	assert.Equal(t, pipe.Staller(owner), dst.Staller())

	// a producer connected to a held sink is held too
	late := pipe.NewSource()
	connect(t, late, dst)
	assert.True(t, late.IsStalled())

	src2.Unstall(owner)
	for _, s := range []*pipe.Source{src1, src2, src3, late} {
		assert.False(t, s.IsStalled())
	}
}

func TestStallFanOut(t *testing.T) {
	src := pipe.NewSource()
	dst1, _ := newSink("dst1")
	dst2, _ := newSink("dst2")
	other := pipe.NewSource()
	connect(t, src, dst1)
	connect(t, src, dst2)
	connect(t, other, dst2)
	x := &mock.Staller{Name: "x"}

	src.Stall(x)
	assert.True(t, dst1.IsStalled())
	assert.True(t, dst2.IsStalled())
	assert.True(t, other.IsStalled())

	src.Unstall(x)
	assert.False(t, dst1.IsStalled())
	assert.False(t, dst2.IsStalled())
	assert.False(t, other.IsStalled())

	// a sink at the end of the through chain holds the source
	dst2.Stall(x)
	assert.True(t, src.IsStalled())
	assert.False(t, dst1.IsStalled())
	dst2.Unstall(x)
	assert.False(t, src.IsStalled())
}

func TestStallRestoresThroughOutput(t *testing.T) {
	src := pipe.NewSource()
	dst0, _ := newSink("dst0")
	dst1, _ := newSink("dst1")
	dst2, _ := newSink("dst2")
	connect(t, src, dst0)
	connect(t, src, dst1)
	connect(t, src, dst2)
	c := &mock.Staller{Name: "c"}
	d := &mock.Staller{Name: "d"}

	dst2.Stall(d)
	assert.Equal(t, pipe.Staller(d), src.Staller())
	dst1.Stall(c)
	assert.Equal(t, pipe.Staller(c), src.Staller())

	// lifting c brings back d, which is still outstanding
	dst1.Unstall(c)
	assert.True(t, src.IsStalled())
	assert.Equal(t, pipe.Staller(d), src.Staller())

	dst2.Unstall(d)
	assert.False(t, src.IsStalled())
}

func TestSourceMessageStalled(t *testing.T) {
	src := pipe.NewSource()
	dst, r := newSink("dst")
	connect(t, src, dst)

	stubborn := &mock.Staller{Name: "stubborn"}
	dst.Stall(stubborn)
	assert.Equal(t, pipe.ErrStalled, src.SourceMessage(noteOn))
	assert.Equal(t, pipe.StallRetries, stubborn.Calls())
	// real-time messages are never held back
	assert.NoError(t, src.SourceMessage(clock))
	assert.Equal(t, []midiflow.Message{clock}, r.Received())
	dst.Unstall(stubborn)

	cooperative := &mock.Staller{Name: "cooperative"}
	cooperative.Resolve = func() { dst.Unstall(cooperative) }
	dst.Stall(cooperative)
	assert.NoError(t, src.SourceMessage(noteOn))
	assert.Equal(t, 1, cooperative.Calls())
	assert.Equal(t, 2, received(r))
}

func TestOwnerKeepsSending(t *testing.T) {
	owner := &mock.Staller{Name: "owner"}
	src := pipe.NewSource(pipe.OwnedBy(owner))
	other := pipe.NewSource()
	dst, r := newSink("dst")
	connect(t, src, dst)
	connect(t, other, dst)

	src.Stall(owner)
	assert.False(t, src.Blocked())
	assert.True(t, other.Blocked())
	assert.NoError(t, src.SourceMessage(noteOn))
	assert.Equal(t, pipe.ErrStalled, other.SourceMessage(noteOn))
	assert.Equal(t, pipe.StallRetries, owner.Calls())
	assert.Equal(t, 1, received(r))
	assert.Equal(t, pipe.Staller(owner), src.Owner())
	src.Unstall(owner)
	assert.NoError(t, other.SourceMessage(noteOn))
}

func TestEternalStall(t *testing.T) {
	src := pipe.NewSource()
	dst, _ := newSink("dst")
	p := connect(t, src, dst)
	src.Stall(pipe.EternalStall)

	assert.Equal(t, pipe.ErrStalled, src.SourceMessage(noteOn))
	for _, fn := range []func(){src.HandleStallers, dst.HandleStallers, p.HandleStallers} {
		err := midiflow.Catch(fn)
		assert.ErrorIs(t, err, midiflow.ErrEternalStall)
	}

	src.Unstall(pipe.EternalStall)
	assert.False(t, src.IsStalled())
	assert.NotPanics(t, src.HandleStallers)
}

func TestNewStaller(t *testing.T) {
	var calls int
	s := pipe.NewStaller("named", func() { calls++ })
	src := pipe.NewSource()
	dst, _ := newSink("dst")
	connect(t, src, dst)
	dst.Stall(s)
	dst.HandleStallers()
	assert.Equal(t, pipe.StallRetries, calls)

	err := midiflow.Catch(func() { dst.Stall(pipe.NewStaller("other", nil)) })
	assert.ErrorIs(t, err, midiflow.ErrStallConflict)
	assert.Contains(t, err.Error(), "named")
}

func TestFactory(t *testing.T) {
	f, err := pipe.NewFactory(2, pipe.WithName("pooled"))
	require.NoError(t, err)
	assert.Equal(t, 2, f.Len())

	dst, r := newSink("dst")
	src1, src2 := pipe.NewSource(), pipe.NewSource()
	assert.Equal(t, f.Pipe(0), pipe.Link(src1, f, dst))
	assert.Equal(t, f.Pipe(1), pipe.Link(src2, f, dst))
	assert.NoError(t, src1.SourceMessage(noteOn))
	assert.NoError(t, src2.SourceMessage(noteOn))
	assert.Equal(t, 2, received(r))

	err = midiflow.Catch(func() { f.Next() })
	assert.ErrorIs(t, err, midiflow.ErrBufferExhausted)
	assert.Equal(t, uint16(0x2459), err.(*midiflow.Error).Code)
}

type duplex struct {
	src *pipe.Source
	dst *pipe.Sink
	r   *mock.Receiver
}

func newDuplex(name string) *duplex {
	r := &mock.Receiver{}
	return &duplex{
		src: pipe.NewSource(pipe.Named(name)),
		dst: pipe.NewSink(r, pipe.Named(name)),
		r:   r,
	}
}

func (d *duplex) Source() *pipe.Source { return d.src }
func (d *duplex) Sink() *pipe.Sink     { return d.dst }

func TestBidirectional(t *testing.T) {
	a, b := newDuplex("a"), newDuplex("b")
	f, err := pipe.NewBidirectionalFactory(1)
	require.NoError(t, err)
	bp := pipe.LinkBidirectional(a, f, b)

	assert.NoError(t, a.src.SourceMessage(noteOn))
	assert.NoError(t, b.src.SourceMessage(clock))
	assert.Equal(t, []midiflow.Message{noteOn}, b.r.Received())
	assert.Equal(t, []midiflow.Message{clock}, a.r.Received())

	bp.Disconnect()
	assert.False(t, a.src.HasSinkPipe())
	assert.False(t, b.src.HasSinkPipe())

	err = midiflow.Catch(func() { f.Next() })
	assert.ErrorIs(t, err, midiflow.ErrBufferExhausted)

	c, d := newDuplex("c"), newDuplex("d")
	bp, err = pipe.NewBidirectional()
	require.NoError(t, err)
	bp.Connect(c, d)
	assert.NoError(t, d.src.SourceMessage(noteOn))
	assert.Equal(t, 1, received(c.r))
}

func TestDisconnectReleasesSourceStall(t *testing.T) {
	dst, r := newSink("dst")
	src1, src2 := pipe.NewSource(), pipe.NewSource()
	p1 := connect(t, src1, dst)
	connect(t, src2, dst)

	a := &mock.Staller{Name: "a"}
	src1.Stall(a)
	assert.True(t, dst.IsStalled())
	assert.True(t, src2.Blocked())

	// the stalling producer leaves before lifting its stall
	p1.Disconnect()
	assert.False(t, dst.IsStalled())
	assert.False(t, src2.IsStalled())
	src1.Unstall(a)
	assert.NoError(t, src2.SourceMessage(noteOn))
	assert.Equal(t, 1, received(r))
	assert.Zero(t, a.Calls())
}

func TestDisconnectKeepsSinkStall(t *testing.T) {
	dst, r := newSink("dst")
	src1, src2 := pipe.NewSource(), pipe.NewSource()
	p1 := connect(t, src1, dst)
	connect(t, src2, dst)

	b := &mock.Staller{Name: "b"}
	dst.Stall(b)
	p1.Disconnect()
	assert.True(t, dst.IsStalled())
	assert.True(t, src2.Blocked())
	assert.Equal(t, pipe.ErrStalled, src2.SourceMessage(noteOn))

	dst.Unstall(b)
	assert.False(t, src2.IsStalled())
	assert.NoError(t, src2.SourceMessage(noteOn))
	assert.Equal(t, 1, received(r))
}

func TestDeliveryWhileRewiring(t *testing.T) {
	defer goleak.VerifyNone(t)
	src := pipe.NewSource()
	dst, r := newSink("dst")
	connect(t, src, dst)

	const messages = 1000
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < messages; i++ {
			_ = src.SourceMessage(noteOn)
		}
	}()

	other := pipe.NewSource()
	extra, _ := newSink("extra")
	for i := 0; i < 100; i++ {
		fanIn := connect(t, other, dst)
		fanOut := connect(t, src, extra)
		fanIn.Disconnect()
		fanOut.Disconnect()
	}
	<-done
	assert.Equal(t, messages, received(r))
	assert.Equal(t, dst, src.SinkPipe().FinalSink())
	assert.Nil(t, src.SinkPipe().ThroughOut())
}
