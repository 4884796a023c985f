package zcldef

type ClusterDefinition struct {
	ID         uint16
	Name       string
	Attributes map[uint16]AttributeDefinition
}

type AttributeDefinition struct {
	ID   uint16
	Name string
	Type byte
}
