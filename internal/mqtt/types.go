package mqtt

// BindingMessage is the JSON form of a binding used on the management topics.
// IEEEAddress is set for unicast bindings, GroupID for multicast ones.
type BindingMessage struct {
	Index          int
	Type           string
	LocalEndpoint  uint8
	RemoteEndpoint uint8
	ClusterID      uint16
	ClusterName    string
	IEEEAddress    uint64
	GroupID        uint16
}

type BindingResultMessage struct {
	Operation string
	Binding   BindingMessage
	Success   bool
	Error     string
}

type BindingChangedMessage struct {
	Operation string
	Binding   *BindingMessage
}

type BindingsMessage struct {
	Capacity int
	Count    int
	Bindings []BindingMessage
}
