// Package link sends the dispatched routine to the firmware driving
// the hardware, over a serial line.
//
// The link is a byte stream carrying packets:
//
//	seq code [len] data...
//
// seq runs from 1 to 0xef and wraps, each side numbering its own
// packets. The low nibble of code is the operation, bit 7 marks an
// event, bits 4-6 hold the data length when below 7, otherwise 7 and
// the length follows in its own byte.
//
// Either side may send 0xff seq to request synchronization, answered
// by 0xfe seq. Packets are only accepted in order after that, any
// unexpected byte triggers a resync. There's no checksum, enable
// parity on the serial port if the line is noisy.
//
// A command reply carries the command seq as its first data byte and
// sets bit 0 of code on failure.
package link
