// Package modem drives a Sigfox modem over a byte-oriented serial link.
package modem

// The modem firmware accepts short commands and answers every command with
// exactly one reply. A command frame is
//
//	NUL 'S' 'F' <code> [payload...] ';'
//
// and a reply is any byte sequence terminated by ';'. Simple replies carry a
// single status byte (OK is 'O', anything else is an opaque error code),
// structured replies (ID, firmware revision) carry their payload followed by
// the "OK" trailer.
//
// The link is half-duplex and strictly request/reply: a Session never writes
// a command before the reply to the previous one is fully read. A reply left
// half-read desynchronizes every following exchange; Begin writes the NUL
// flush frame which resynchronizes the firmware's parser.
//
// Sigfox operates on public frequencies where a device may only transmit 1%
// of the time. A message takes about 6 seconds on air (3 repetitions), so the
// Session refuses to transmit more often than once every 10 minutes.
