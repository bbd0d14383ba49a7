package us1

import "fmt"

// MaxDevices is the number of mrm-us1 sensors a board supports.
const MaxDevices = 8

// Addresses is the pair of CAN IDs of a sensor.
type Addresses struct {
	// Inbound receives commands.
	Inbound uint32 `yaml:"inbound"`
	// Outbound carries readings sent by the sensor.
	Outbound uint32 `yaml:"outbound"`
}

// String implements fmt.Stringer.
func (a Addresses) String() string {
	return fmt.Sprintf("in=0x%03x out=0x%03x", a.Inbound, a.Outbound)
}

// AddressTable maps a slot to its addresses.
type AddressTable [MaxDevices]Addresses

// DefaultAddressTable is the factory addressing of mrm-us1.
var DefaultAddressTable = AddressTable{
	{Inbound: 0x310, Outbound: 0x311},
	{Inbound: 0x312, Outbound: 0x313},
	{Inbound: 0x314, Outbound: 0x315},
	{Inbound: 0x316, Outbound: 0x317},
	{Inbound: 0x318, Outbound: 0x319},
	{Inbound: 0x31a, Outbound: 0x31b},
	{Inbound: 0x31c, Outbound: 0x31d},
	{Inbound: 0x31e, Outbound: 0x31f},
}

// AddressesFor returns the addresses of the slot.
func (t *AddressTable) AddressesFor(slot int) (Addresses, error) {
	if slot < 0 || slot >= len(t) {
		return Addresses{}, fmt.Errorf("%w: %d", ErrSlotIndexOutOfRange, slot)
	}
	return t[slot], nil
}

// Validate checks every ID is a standard CAN ID used only once.
func (t *AddressTable) Validate() error {
	seen := make(map[uint32]int)
	for slot, addrs := range t {
		for _, id := range []uint32{addrs.Inbound, addrs.Outbound} {
			if id > 0x7ff {
				return fmt.Errorf("slot %d: invalid CAN ID 0x%x", slot, id)
			}
			if prev, ok := seen[id]; ok {
				return fmt.Errorf("slot %d: CAN ID 0x%03x already used by slot %d", slot, id, prev)
			}
			seen[id] = slot
		}
	}
	return nil
}
