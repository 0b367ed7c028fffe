/*
Package midiflow allows to parse, route and send MIDI messages.

Concept

This package offers a small MIDI core suitable for devices and hosts alike.
Messages travel through three kinds of components:

    Parser - turns raw bytes or USB-MIDI packets into messages;
    Pipe - connects one Source to one Sink and maps messages on the way;
    Interface - reads from and writes to a port;

Messages are plain values defined in this package: ChannelMessage,
SysExMessage, SysCommonMessage and RealTimeMessage. A SysExMessage is a view
into its parser's buffer and must be copied to outlive the next parse call.

Routing

Every interface has a pipe.Source and a pipe.Sink. Connecting them builds a
graph:

    din, _ := transport.NewSerial(device)
    usb, _ := transport.NewUSB(packets)
    p, _ := pipe.Connect(din.Source(), usb.Sink(),
        pipe.WithMapper(pipe.ChannelRemap(0, 9)),
    )

Any number of pipes can feed a sink and any number of sinks can be fed by a
source. Pipes sharing an endpoint are chained through each other, so
disconnecting one never leaves the graph inconsistent.

Backpressure

A consumer that can't take messages stalls its sink with a Staller as the
cause. The stall travels upstream to every producer of that consumer and,
from there, downstream to their other consumers, which keeps multi-message
sequences from interleaving. Producers ask the causes to lift their stalls
with HandleStallers before giving up on a message. Real-time messages are
never held back.

Wiring mistakes, like stalling a pipe held by another cause, are fatal: Fail
logs them and panics with an *Error, Catch recovers it.

Execution

Nothing runs on its own. Update polls an interface, reads what is pending
and sends it down the graph:

    for {
        if err := din.Update(); err != nil {
            return err
        }
    }
*/
package midiflow
