// Package modeltest 为各包测试准备临时数据库和示例数据
package modeltest

import (
	"testing"

	"github.com/raydesk/raydesk/model"
	"gorm.io/gorm"
)

const (
	VmessUUID = "b831381d-6324-4d53-ad4f-8cda48b30811"
	HTTPPort  = "10809"
	SocksPort = "10808"
)

// NewDB 在临时目录创建数据库，测试结束时关闭
func NewDB(t testing.TB) (*gorm.DB, string) {
	t.Helper()
	dir := t.TempDir()
	db, err := model.InitDB(dir)
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db, dir
}

func mustCreate(t testing.TB, db *gorm.DB, values ...any) {
	t.Helper()
	for _, v := range values {
		if err := db.Create(v).Error; err != nil {
			t.Fatalf("create %T: %v", v, err)
		}
	}
}

func strPtr(s string) *string { return &s }

// SeedUser 已登录用户：日志、三个入站、DNS、设置和状态
func SeedUser(t testing.TB, db *gorm.DB, userID string, autoStart bool) {
	t.Helper()
	auto := 0
	if autoStart {
		auto = 1
	}
	mustCreate(t, db,
		&model.AppStatus{UserID: userID, LoginState: 1},
		&model.AppSettings{
			UserID:         userID,
			ProxyMode:      model.ProxyModePAC,
			PAC:            "||custom.example\n! comment",
			BypassDomains:  model.DefaultBypassDomains,
			AutoStartProxy: auto,
		},
		&model.Log{UserID: userID, ErrorPath: "error.log", LogLevel: "warning", AccessPath: "access.log"},
		&model.DNS{UserID: userID, Value: `{"hosts":{"dns.google":"8.8.8.8","domain:example.org":"1.1.1.1"}}`},
		&model.Inbound{UserID: userID, Listen: "127.0.0.1", Port: HTTPPort, Protocol: "http", Tag: model.TagHTTPInbound},
		&model.Inbound{UserID: userID, Listen: "127.0.0.1", Port: SocksPort, Protocol: "socks", Tag: model.TagSocksInbound},
		&model.Inbound{UserID: userID, Listen: "127.0.0.1", Port: "10085", Protocol: "dokodemo-door", Tag: "api"},
	)
}

// SeedGroup 创建用户拥有的分组
func SeedGroup(t testing.TB, db *gorm.DB, userID, groupID string) {
	t.Helper()
	mustCreate(t, db, &model.EndpointsGroup{GroupID: groupID, GroupName: groupID, UserID: userID})
}

// SeedVmessEndpoint vmess + ws + tls 节点
func SeedVmessEndpoint(t testing.TB, db *gorm.DB, groupID, endpointID string, active bool) {
	t.Helper()
	mustCreate(t, db,
		endpoint(groupID, endpointID, active),
		&model.Outbound{EndpointID: endpointID, Protocol: "vmess", Tag: "proxy", MuxEnabled: 1, MuxConcurrency: "8"},
		&model.StreamSettings{EndpointID: endpointID, Network: "ws", Security: "tls"},
		&model.WsSettings{EndpointID: endpointID, Host: "cdn.example.com", Path: "/ray"},
		&model.TlsSettings{EndpointID: endpointID, AllowInsecure: 0, ServerName: "cdn.example.com", FingerPrint: "chrome"},
		&model.VmessVnext{VnextID: endpointID + "-v1", EndpointID: endpointID, Address: "vmess.example.com", Port: "443"},
		&model.VmessUser{VnextID: endpointID + "-v1", EndpointID: endpointID, UUID: VmessUUID, AlterID: "0", Security: "auto"},
	)
}

// SeedShadowsocksEndpoint shadowsocks + tcp 节点，无 TLS
func SeedShadowsocksEndpoint(t testing.TB, db *gorm.DB, groupID, endpointID string, active bool) {
	t.Helper()
	mustCreate(t, db,
		endpoint(groupID, endpointID, active),
		&model.Outbound{EndpointID: endpointID, Protocol: "shadowsocks", Tag: "proxy", MuxConcurrency: "8"},
		&model.StreamSettings{EndpointID: endpointID, Network: "tcp", Security: "none"},
		&model.TcpSettings{EndpointID: endpointID, HeaderType: "none"},
		&model.Shadowsocks{
			EndpointID: endpointID,
			Method:     "aes-256-gcm",
			Password:   "secret",
			Level:      "0",
			Email:      strPtr("me@example.com"),
			Address:    "ss.example.com",
			Port:       "8388",
		},
	)
}

func endpoint(groupID, endpointID string, active bool) *model.Endpoint {
	e := &model.Endpoint{EndpointID: endpointID, GroupID: groupID, Remark: endpointID}
	if active {
		e.Active = 1
	}
	return e
}
