package engine

import "encoding/json"

// Config 引擎读取的完整配置文档，字段顺序即输出顺序
type Config struct {
	Log       Log        `json:"log"`
	Inbounds  []Inbound  `json:"inbounds"`
	Stats     Empty      `json:"stats"`
	API       API        `json:"api"`
	Policy    Policy     `json:"policy"`
	Outbounds []Outbound `json:"outbounds"`
	DNS       DNS        `json:"dns"`
	Routing   Routing    `json:"routing"`
	Transport Empty      `json:"transport"`
}

type Empty struct{}

type Log struct {
	Error    string `json:"error"`
	LogLevel string `json:"loglevel"`
	Access   string `json:"access"`
}

type Inbound struct {
	Listen   string           `json:"listen"`
	Port     uint16           `json:"port"`
	Protocol string           `json:"protocol"`
	Tag      string           `json:"tag"`
	Allocate *Allocate        `json:"allocate,omitempty"`
	Settings *InboundSettings `json:"settings,omitempty"`
}

type Allocate struct {
	Strategy    string `json:"strategy"`
	Refresh     uint32 `json:"refresh"`
	Concurrency uint32 `json:"concurrency"`
}

type InboundSettings struct {
	Address string `json:"address"`
}

type API struct {
	Services []string `json:"services"`
	Tag      string   `json:"tag"`
}

type Policy struct {
	Levels map[string]PolicyLevel `json:"levels"`
	System SystemPolicy           `json:"system"`
}

type PolicyLevel struct {
	StatsUserUplink   bool `json:"statsUserUplink"`
	StatsUserDownlink bool `json:"statsUserDownlink"`
}

type SystemPolicy struct {
	StatsInboundUplink    bool `json:"statsInboundUplink"`
	StatsInboundDownlink  bool `json:"statsInboundDownlink"`
	StatsOutboundUplink   bool `json:"statsOutboundUplink"`
	StatsOutboundDownlink bool `json:"statsOutboundDownlink"`
}

// DNS 覆盖文档，只接受固定字段
type DNS struct {
	Hosts   map[string]string `json:"hosts"`
	Servers []json.RawMessage `json:"servers,omitempty"`
}

type Routing struct {
	Settings RoutingSettings `json:"settings"`
}

type RoutingSettings struct {
	DomainStrategy string        `json:"domainStrategy"`
	Rules          []RoutingRule `json:"rules"`
}

type RoutingRule struct {
	Type        string   `json:"type"`
	InboundTag  []string `json:"inboundTag"`
	OutboundTag string   `json:"outboundTag"`
}

// ===== 出站 =====

const (
	TagDirect = "direct"
	TagBlock  = "block"
	TagAPI    = "api"
)

type Outbound struct {
	Protocol       string           `json:"protocol"`
	Tag            string           `json:"tag"`
	SendThrough    string           `json:"sendThrough,omitempty"`
	Mux            Mux              `json:"mux"`
	StreamSettings StreamSettings   `json:"streamSettings"`
	Settings       OutboundSettings `json:"settings"`
}

type Mux struct {
	Enabled     bool   `json:"enabled"`
	Concurrency uint32 `json:"concurrency"`
}

// OutboundSettings 按协议区分的出站设置，每种协议只持有自己的字段
type OutboundSettings interface {
	Protocol() string
	outboundSettings()
}

type VmessSettings struct {
	Vnext []VmessServer `json:"vnext"`
}

type VmessServer struct {
	Address string      `json:"address"`
	Port    uint16      `json:"port"`
	Users   []VmessUser `json:"users"`
}

type VmessUser struct {
	ID       string `json:"id"`
	AlterID  uint32 `json:"alterId"`
	Level    uint32 `json:"level"`
	Security string `json:"security"`
}

type ShadowsocksSettings struct {
	Servers []ShadowsocksServer `json:"servers"`
}

type ShadowsocksServer struct {
	Address  string `json:"address"`
	Port     uint16 `json:"port"`
	Method   string `json:"method"`
	Password string `json:"password"`
	Level    uint32 `json:"level"`
	Email    string `json:"email,omitempty"`
}

type TrojanSettings struct {
	Servers []TrojanServer `json:"servers"`
}

type TrojanServer struct {
	Address  string `json:"address"`
	Port     uint16 `json:"port"`
	Password string `json:"password"`
	Level    uint32 `json:"level"`
	Email    string `json:"email,omitempty"`
}

type Hysteria2Settings struct {
	Servers []Hysteria2Server `json:"servers"`
}

type Hysteria2Server struct {
	Address string `json:"address"`
	Port    uint16 `json:"port"`
}

type FreedomSettings struct {
	DomainStrategy string `json:"domainStrategy"`
	UserLevel      uint32 `json:"userLevel"`
}

type BlackholeSettings struct {
	Response BlackholeResponse `json:"response"`
}

type BlackholeResponse struct {
	Type string `json:"type"`
}

func (VmessSettings) Protocol() string       { return "vmess" }
func (ShadowsocksSettings) Protocol() string { return "shadowsocks" }
func (TrojanSettings) Protocol() string      { return "trojan" }
func (Hysteria2Settings) Protocol() string   { return "hysteria2" }
func (FreedomSettings) Protocol() string     { return "freedom" }
func (BlackholeSettings) Protocol() string   { return "blackhole" }

func (VmessSettings) outboundSettings()       {}
func (ShadowsocksSettings) outboundSettings() {}
func (TrojanSettings) outboundSettings()      {}
func (Hysteria2Settings) outboundSettings()   {}
func (FreedomSettings) outboundSettings()     {}
func (BlackholeSettings) outboundSettings()   {}

// ===== 传输层 =====

type StreamSettings struct {
	Network      string        `json:"network"`
	Security     string        `json:"security"`
	TLSSettings  *TLSSettings  `json:"tlsSettings,omitempty"`
	TCPSettings  *TCPSettings  `json:"tcpSettings,omitempty"`
	KCPSettings  *KCPSettings  `json:"kcpSettings,omitempty"`
	HTTPSettings *HTTPSettings `json:"httpSettings,omitempty"`
	QUICSettings *QUICSettings `json:"quicSettings,omitempty"`
	GRPCSettings *GRPCSettings `json:"grpcSettings,omitempty"`
	WSSettings   *WSSettings   `json:"wsSettings,omitempty"`
}

type TLSSettings struct {
	AllowInsecure bool   `json:"allowInsecure"`
	ServerName    string `json:"serverName"`
	Fingerprint   string `json:"fingerprint"`
}

type TCPSettings struct {
	Header TCPHeader `json:"header"`
}

type TCPHeader struct {
	Type    string      `json:"type"`
	Request *TCPRequest `json:"request,omitempty"`
}

type TCPRequest struct {
	Path    []string            `json:"path,omitempty"`
	Headers map[string][]string `json:"headers,omitempty"`
}

type KCPSettings struct {
	MTU              uint32       `json:"mtu"`
	TTI              uint32       `json:"tti"`
	UplinkCapacity   uint32       `json:"uplinkCapacity"`
	DownlinkCapacity uint32       `json:"downlinkCapacity"`
	Congestion       bool         `json:"congestion"`
	ReadBufferSize   uint32       `json:"readBufferSize"`
	WriteBufferSize  uint32       `json:"writeBufferSize"`
	Header           PacketHeader `json:"header"`
}

type PacketHeader struct {
	Type string `json:"type"`
}

type HTTPSettings struct {
	Host   []string `json:"host"`
	Path   string   `json:"path"`
	Method string   `json:"method"`
}

type QUICSettings struct {
	Security string       `json:"security"`
	Key      string       `json:"key"`
	Header   PacketHeader `json:"header"`
}

type GRPCSettings struct {
	ServiceName string `json:"serviceName"`
}

type WSSettings struct {
	Path    string            `json:"path"`
	Headers map[string]string `json:"headers,omitempty"`
}
