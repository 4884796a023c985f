package db

// Binding is the stored form of a binding table slot.
type Binding struct {
	Index      uint8
	Type       uint8
	Local      uint8
	Remote     uint8
	ClusterID  uint16
	Identifier [8]byte
}
