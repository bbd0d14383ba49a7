// Package slcan provides a CAN bus over a serial-line CAN adapter.
package slcan

// SLCAN (Lawicel) adapters are USB serial devices which carry CAN
// frames as ASCII lines terminated by CR:
//
//	tIIILDD..  standard data frame, 3 hex digits ID, length, data
//	TIIIIIIIILDD..  extended data frame, 8 hex digits ID
//	rIIIL / RIIIIIIIIL  remote frames
//
// Commands to the adapter are answered with CR on success or BEL
// on failure. Transmitted frames may be acknowledged with "z"/"Z".
// The adapter may append a 4 hex digit timestamp to received frames,
// which is accepted and discarded.
