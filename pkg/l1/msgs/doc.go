// Package msgs provides L1 protocol support and all message schemas.
package msgs

// L1 protocol is communicated between L1 controller and L2 brain,
// and uses hardware-agnostic primitives. Messages are protobuf
// encoded and wrapped in Typed carrying the type ID.
//
// Producer: L1 controller (e.g. us1d)
// Consumer: L2 brain
