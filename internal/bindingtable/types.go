package bindingtable

import (
	"encoding/binary"
	"fmt"

	"github.com/shimmeringbee/zigbee"
	"github.com/supby/zbinder/internal/utils"
)

// Capacity is the number of slots in the binding table.
const Capacity = 60

type BindingType uint8

const (
	Unused    BindingType = 0
	Unicast   BindingType = 1
	Multicast BindingType = 2
)

func (t BindingType) String() string {
	switch t {
	case Unused:
		return "unused"
	case Unicast:
		return "unicast"
	case Multicast:
		return "multicast"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Entry is a single binding table slot. Identifier holds the destination
// EUI64 in wire order for unicast bindings and the little-endian group id in
// its first two bytes for multicast bindings.
type Entry struct {
	Type       BindingType
	Local      zigbee.Endpoint
	Remote     zigbee.Endpoint
	ClusterID  zigbee.ClusterID
	Identifier [8]byte
}

func NewUnicastEntry(local zigbee.Endpoint, clusterID zigbee.ClusterID, address zigbee.IEEEAddress, remote zigbee.Endpoint) Entry {
	e := Entry{
		Type:      Unicast,
		Local:     local,
		Remote:    remote,
		ClusterID: clusterID,
	}
	copy(e.Identifier[:], utils.I64tob(uint64(address)))

	return e
}

func NewMulticastEntry(local zigbee.Endpoint, clusterID zigbee.ClusterID, group uint16) Entry {
	e := Entry{
		Type:      Multicast,
		Local:     local,
		ClusterID: clusterID,
	}
	binary.LittleEndian.PutUint16(e.Identifier[:2], group)

	return e
}

func (e Entry) IEEEAddress() zigbee.IEEEAddress {
	return zigbee.IEEEAddress(utils.Btoi64(e.Identifier[:]))
}

func (e Entry) GroupID() uint16 {
	return binary.LittleEndian.Uint16(e.Identifier[:2])
}

func (e Entry) String() string {
	switch e.Type {
	case Unicast:
		return fmt.Sprintf("unicast ep %d -> 0x%016x ep %d, cluster 0x%04x", e.Local, uint64(e.IEEEAddress()), e.Remote, uint16(e.ClusterID))
	case Multicast:
		return fmt.Sprintf("multicast ep %d -> group 0x%04x, cluster 0x%04x", e.Local, e.GroupID(), uint16(e.ClusterID))
	default:
		return e.Type.String()
	}
}

// matches reports whether the stored entry e is the same binding as candidate.
func (e Entry) matches(candidate Entry) bool {
	if e.Type != candidate.Type ||
		e.Local != candidate.Local ||
		e.ClusterID != candidate.ClusterID ||
		e.Remote != candidate.Remote {
		return false
	}

	switch candidate.Type {
	case Unicast:
		return e.Identifier == candidate.Identifier
	case Multicast:
		return e.GroupID() == candidate.GroupID()
	}

	return false
}

type SlotKind uint8

const (
	SlotFull SlotKind = iota
	SlotFree
	SlotFound
)

func (k SlotKind) String() string {
	switch k {
	case SlotFound:
		return "found"
	case SlotFree:
		return "free"
	default:
		return "full"
	}
}

// SlotResult is the outcome of a FindSlot scan. Index is only meaningful
// when Kind is SlotFound or SlotFree.
type SlotResult struct {
	Kind  SlotKind
	Index int
}

type ChangeOp uint8

const (
	ChangeSet ChangeOp = iota
	ChangeDelete
	ChangeReset
)

func (op ChangeOp) String() string {
	switch op {
	case ChangeSet:
		return "set"
	case ChangeDelete:
		return "delete"
	default:
		return "reset"
	}
}

// Change describes a single applied mutation. Index and Entry are zero for
// ChangeReset.
type Change struct {
	Op    ChangeOp
	Index int
	Entry Entry
}
