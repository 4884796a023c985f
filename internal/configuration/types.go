package configuration

type ZNetworkConfiguration struct {
	PANID         uint16 `yaml:"panId"`
	ExtendedPANID uint64 `yaml:"extendedPanId"`
	NetworkKey    string `yaml:"networkKey"` // 32 hex digits
	Channel       uint8  `yaml:"channel"`
}

type MqttConfiguration struct {
	Address   string `yaml:"address"`
	Port      uint16 `yaml:"port"`
	RootTopic string `yaml:"rootTopic"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
}

type SerialConfiguration struct {
	PortName string `yaml:"portName"`
	BaudRate uint32 `yaml:"baudRate"`
}

type BindingsConfiguration struct {
	DBPath  string `yaml:"dbPath"`
	Persist bool   `yaml:"persist"`
}

type Configuration struct {
	ZNetworkConfiguration ZNetworkConfiguration `yaml:"network"`
	MqttConfiguration     MqttConfiguration     `yaml:"mqtt"`
	SerialConfiguration   SerialConfiguration   `yaml:"serial"`
	Bindings              BindingsConfiguration `yaml:"bindings"`
	ZCLDefinitionFile     string                `yaml:"zclDefinitionFile"`
	PermitJoin            bool                  `yaml:"permitJoin"`
	LogLevel              string                `yaml:"logLevel"` // error, warn, info, debug
}
