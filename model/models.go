package model

// 表结构由前端设置流程创建和维护，这里只映射核心需要读写的列。
// 列名沿用 PascalCase，端口等数值字段以文本存储，由 engine 包负责转换。

const (
	ProxyModeManual = "manual"
	ProxyModePAC    = "pac"
	ProxyModeGlobal = "global"
)

const (
	TagHTTPInbound  = "http-inbound"
	TagSocksInbound = "socks-inbound"
)

// DefaultBypassDomains AppSettings.BypassDomains 的默认值
const DefaultBypassDomains = `{"bypass":["127.0.0.1","192.168.0.0/16","10.0.0.0/8","FE80::/64","::1","FD00::/8,","localhost"]}`

// DefaultDNS 用户未配置 DNS 时使用的默认覆盖
const DefaultDNS = `{"hosts":{"dns.google":"8.8.8.8"}}`

// ===== 节点 =====

// EndpointsGroup 节点分组，归属于某个用户
type EndpointsGroup struct {
	GroupID       string `gorm:"column:GroupID;primaryKey" json:"GroupID"`
	GroupName     string `gorm:"column:GroupName" json:"GroupName"`
	Remark        string `gorm:"column:Remark" json:"Remark"`
	Link          string `gorm:"column:Link" json:"Link"`
	SpeedTestType string `gorm:"column:SpeedTestType" json:"SpeedTestType"`
	UserID        string `gorm:"column:UserID;index" json:"UserID"`
}

func (EndpointsGroup) TableName() string { return "EndpointsGroups" }

// Endpoint 远端代理节点，核心只会修改 Active
type Endpoint struct {
	EndpointID    string `gorm:"column:EndpointID;primaryKey" json:"EndpointID"`
	GroupID       string `gorm:"column:GroupID;index" json:"GroupID"`
	GroupName     string `gorm:"column:GroupName" json:"GroupName"`
	Remark        string `gorm:"column:Remark" json:"Remark"`
	Link          string `gorm:"column:Link" json:"Link"`
	Latency       *int64 `gorm:"column:Latency" json:"Latency"`
	SpeedTestType string `gorm:"column:SpeedTestType" json:"SpeedTestType"`
	Active        int    `gorm:"column:Active;default:0" json:"Active"`
}

func (Endpoint) TableName() string { return "Endpoints" }

// ===== 协议 =====

type VmessVnext struct {
	VnextID    string `gorm:"column:VnextID;primaryKey" json:"VnextID"`
	EndpointID string `gorm:"column:EndpointID;index" json:"EndpointID"`
	UserID     string `gorm:"column:UserID" json:"UserID"`
	Address    string `gorm:"column:Address" json:"Address"`
	Port       string `gorm:"column:Port" json:"Port"`
}

func (VmessVnext) TableName() string { return "VmessVnext" }

type VmessUser struct {
	ID         uint    `gorm:"column:ID;primaryKey;autoIncrement" json:"ID"`
	VnextID    string  `gorm:"column:VnextID;index" json:"VnextID"`
	EndpointID string  `gorm:"column:EndpointID" json:"EndpointID"`
	UUID       string  `gorm:"column:UUID" json:"UUID"`
	AlterID    string  `gorm:"column:AlterID" json:"AlterID"`
	Level      *string `gorm:"column:Level" json:"Level"`
	Security   string  `gorm:"column:Security" json:"Security"`
}

func (VmessUser) TableName() string { return "VmessUsers" }

type Shadowsocks struct {
	ID         uint    `gorm:"column:ID;primaryKey;autoIncrement" json:"ID"`
	EndpointID string  `gorm:"column:EndpointID;index" json:"EndpointID"`
	Method     string  `gorm:"column:Method" json:"Method"`
	Password   string  `gorm:"column:Password" json:"Password"`
	Level      string  `gorm:"column:Level" json:"Level"`
	Email      *string `gorm:"column:Email" json:"Email"`
	Address    string  `gorm:"column:Address" json:"Address"`
	Port       string  `gorm:"column:Port" json:"Port"`
}

func (Shadowsocks) TableName() string { return "Shadowsocks" }

type TrojanServer struct {
	ID         uint    `gorm:"column:ID;primaryKey;autoIncrement" json:"ID"`
	EndpointID string  `gorm:"column:EndpointID;index" json:"EndpointID"`
	Address    string  `gorm:"column:Address" json:"Address"`
	Port       string  `gorm:"column:Port" json:"Port"`
	Password   string  `gorm:"column:Password" json:"Password"`
	Email      *string `gorm:"column:Email" json:"Email"`
	Level      *string `gorm:"column:Level" json:"Level"`
}

func (TrojanServer) TableName() string { return "TrojanServers" }

type Hysteria2 struct {
	ID         uint   `gorm:"column:ID;primaryKey;autoIncrement" json:"ID"`
	EndpointID string `gorm:"column:EndpointID;index" json:"EndpointID"`
	Address    string `gorm:"column:Address" json:"Address"`
	Port       string `gorm:"column:Port" json:"Port"`
}

func (Hysteria2) TableName() string { return "Hysteria2" }

// Outbound 节点的主出站：协议、标签和多路复用
type Outbound struct {
	EndpointID     string `gorm:"column:EndpointID;primaryKey" json:"EndpointID"`
	Protocol       string `gorm:"column:Protocol" json:"Protocol"`
	Tag            string `gorm:"column:Tag" json:"Tag"`
	MuxEnabled     int    `gorm:"column:MuxEnabled;default:0" json:"MuxEnabled"`
	MuxConcurrency string `gorm:"column:MuxConcurrency;default:'8'" json:"MuxConcurrency"`
	SendThrough    string `gorm:"column:SendThrough;default:'0.0.0.0'" json:"SendThrough"`
}

func (Outbound) TableName() string { return "Outbounds" }

// ===== 传输层 =====

type StreamSettings struct {
	EndpointID string `gorm:"column:EndpointID;primaryKey" json:"EndpointID"`
	Network    string `gorm:"column:Network" json:"Network"`
	Security   string `gorm:"column:Security" json:"Security"`
}

func (StreamSettings) TableName() string { return "StreamSettings" }

type TcpSettings struct {
	EndpointID  string  `gorm:"column:EndpointID;primaryKey" json:"EndpointID"`
	HeaderType  string  `gorm:"column:HeaderType;default:'none'" json:"HeaderType"`
	RequestPath *string `gorm:"column:RequestPath" json:"RequestPath"`
	RequestHost *string `gorm:"column:RequestHost" json:"RequestHost"`
}

func (TcpSettings) TableName() string { return "TcpSettings" }

type KcpSettings struct {
	EndpointID       string `gorm:"column:EndpointID;primaryKey" json:"EndpointID"`
	MTU              string `gorm:"column:MTU" json:"MTU"`
	TTI              string `gorm:"column:TTI" json:"TTI"`
	UplinkCapacity   string `gorm:"column:UplinkCapacity" json:"UplinkCapacity"`
	DownlinkCapacity string `gorm:"column:DownlinkCapacity" json:"DownlinkCapacity"`
	Congestion       int    `gorm:"column:Congestion" json:"Congestion"`
	ReadBufferSize   string `gorm:"column:ReadBufferSize" json:"ReadBufferSize"`
	WriteBufferSize  string `gorm:"column:WriteBufferSize" json:"WriteBufferSize"`
	HeaderType       string `gorm:"column:HeaderType" json:"HeaderType"`
}

func (KcpSettings) TableName() string { return "KcpSettings" }

type Http2Settings struct {
	EndpointID string  `gorm:"column:EndpointID;primaryKey" json:"EndpointID"`
	Host       string  `gorm:"column:Host" json:"Host"`
	Path       *string `gorm:"column:Path" json:"Path"`
	Method     *string `gorm:"column:Method" json:"Method"`
}

func (Http2Settings) TableName() string { return "Http/2Settings" }

type QuicSettings struct {
	EndpointID string `gorm:"column:EndpointID;primaryKey" json:"EndpointID"`
	Security   string `gorm:"column:Security" json:"Security"`
	Key        string `gorm:"column:Key" json:"Key"`
	HeaderType string `gorm:"column:HeaderType" json:"HeaderType"`
}

func (QuicSettings) TableName() string { return "QuicSettings" }

type GrpcSettings struct {
	EndpointID  string `gorm:"column:EndpointID;primaryKey" json:"EndpointID"`
	ServiceName string `gorm:"column:ServiceName" json:"ServiceName"`
}

func (GrpcSettings) TableName() string { return "GrpcSettings" }

type WsSettings struct {
	EndpointID string `gorm:"column:EndpointID;primaryKey" json:"EndpointID"`
	Host       string `gorm:"column:Host" json:"Host"`
	Path       string `gorm:"column:Path" json:"Path"`
}

func (WsSettings) TableName() string { return "WsSettings" }

// TlsSettings 可选，不存在时不输出 tlsSettings
type TlsSettings struct {
	EndpointID    string `gorm:"column:EndpointID;primaryKey" json:"EndpointID"`
	AllowInsecure int    `gorm:"column:AllowInsecure;default:0" json:"AllowInsecure"`
	ServerName    string `gorm:"column:ServerName" json:"ServerName"`
	FingerPrint   string `gorm:"column:FingerPrint" json:"FingerPrint"`
}

func (TlsSettings) TableName() string { return "TlsSettings" }

// ===== 用户级配置 =====

// Inbound 引擎暴露给系统的本地监听
type Inbound struct {
	ID          uint    `gorm:"column:ID;primaryKey;autoIncrement" json:"ID"`
	UserID      string  `gorm:"column:UserID;index" json:"UserID"`
	Listen      string  `gorm:"column:Listen;default:'127.0.0.1'" json:"Listen"`
	Port        string  `gorm:"column:Port" json:"Port"`
	Protocol    string  `gorm:"column:Protocol" json:"Protocol"`
	Tag         string  `gorm:"column:Tag" json:"Tag"`
	Strategy    *string `gorm:"column:Strategy" json:"Strategy"`
	Refresh     *string `gorm:"column:Refresh" json:"Refresh"`
	Concurrency *string `gorm:"column:Concurrency" json:"Concurrency"`
}

func (Inbound) TableName() string { return "Inbounds" }

type Log struct {
	UserID     string `gorm:"column:UserID;primaryKey" json:"UserID"`
	ErrorPath  string `gorm:"column:ErrorPath" json:"ErrorPath"`
	LogLevel   string `gorm:"column:LogLevel;default:'warning'" json:"LogLevel"`
	AccessPath string `gorm:"column:AccessPath" json:"AccessPath"`
}

func (Log) TableName() string { return "Log" }

// DNS Value 为 JSON 文档 {"hosts": {...}}
type DNS struct {
	UserID string `gorm:"column:UserID;primaryKey" json:"UserID"`
	Value  string `gorm:"column:Value;type:text" json:"Value"`
}

func (DNS) TableName() string { return "DNS" }

// AppSettings 用户设置，核心只写 ProxyMode
type AppSettings struct {
	UserID             string `gorm:"column:UserID;primaryKey" json:"UserID"`
	ProxyMode          string `gorm:"column:ProxyMode;default:'manual'" json:"ProxyMode"`
	PAC                string `gorm:"column:PAC;type:text" json:"PAC"`
	BypassDomains      string `gorm:"column:BypassDomains;type:text" json:"BypassDomains"`
	AutoStartProxy     int    `gorm:"column:AutoStartProxy;default:0" json:"AutoStartProxy"`
	LatencyTestUrl     string `gorm:"column:LatencyTestUrl" json:"LatencyTestUrl"`
	LatencyTestTimeout int    `gorm:"column:LatencyTestTimeout;default:3000" json:"LatencyTestTimeout"`
	SpeedTestType      string `gorm:"column:SpeedTestType" json:"SpeedTestType"`
}

func (AppSettings) TableName() string { return "AppSettings" }

// AppStatus 运行状态，ServiceRunningState 只由核心写入
type AppStatus struct {
	UserID              string `gorm:"column:UserID;primaryKey" json:"UserID"`
	ServiceRunningState int    `gorm:"column:ServiceRunningState;default:0" json:"ServiceRunningState"`
	LoginState          int    `gorm:"column:LoginState;default:0" json:"LoginState"`
	V2rayCoreVersion    string `gorm:"column:V2rayCoreVersion" json:"V2rayCoreVersion"`
	AppVersion          string `gorm:"column:AppVersion" json:"AppVersion"`
}

func (AppStatus) TableName() string { return "AppStatus" }
